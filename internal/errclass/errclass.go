// Package errclass classifies errors into the small taxonomy the
// submission flow and the route guard act on. Classification is by
// error shape (sentinel types, then message substrings) because most
// failures surface as opaque errors from the provider SDKs.
package errclass

import (
	"errors"
	"regexp"
	"strings"
)

// Class is an error category with a distinct user-facing treatment.
type Class string

const (
	// Network covers transient connectivity failures (DNS, refused
	// connections, CORS-shaped fetch failures, timeouts).
	Network Class = "network"
	// Session covers failures to establish an authenticated identity.
	Session Class = "session"
	// Database covers storage write/constraint/policy failures.
	Database Class = "database"
	// Unknown is everything else.
	Unknown Class = "unknown"
)

// authRequired is implemented by the session package's sentinel error.
// Matching on the method avoids an import cycle.
type authRequired interface {
	AuthRequired() bool
}

var (
	networkPattern = regexp.MustCompile(`(?i)failed to fetch|network|fetch|cors|connection refused|connection reset|dial tcp|no such host|timeout|deadline exceeded|tls handshake|temporar|unexpected eof`)
	sessionPattern = regexp.MustCompile(`(?i)auth|session|expired|not authenticated|auth_required|jwt|invalid_grant|unauthorized`)
	dbPattern      = regexp.MustCompile(`(?i)database|sqlstate|constraint|duplicate key|foreign key|row-level security|rls|policy|insert|update|delete`)

	// authTokenPattern mirrors the provider's 401-shaped messages: an
	// auth-ish word combined with an expiry/validity word.
	authTokenWord = regexp.MustCompile(`(?i)jwt|token|not authenticated|auth`)
	authStateWord = regexp.MustCompile(`(?i)expired|invalid|missing|malformed`)
)

// Classify buckets err into a Class. nil classifies as Unknown; callers
// are expected to check for success first.
func Classify(err error) Class {
	if err == nil {
		return Unknown
	}

	var ar authRequired
	if errors.As(err, &ar) && ar.AuthRequired() {
		return Session
	}

	msg := strings.ToLower(err.Error())
	switch {
	case networkPattern.MatchString(msg):
		return Network
	case sessionPattern.MatchString(msg):
		return Session
	case dbPattern.MatchString(msg):
		return Database
	default:
		return Unknown
	}
}

// IsNetwork reports whether err looks like a transient connectivity
// failure. These are deliberately not treated as "signed out": forcing
// a logout over a flaky connection is worse than retrying.
func IsNetwork(err error) bool {
	if err == nil {
		return false
	}
	var ar authRequired
	if errors.As(err, &ar) && ar.AuthRequired() {
		return false
	}
	return networkPattern.MatchString(err.Error())
}

// IsAuthToken reports whether err looks like a rejected or expired
// credential on an otherwise healthy connection, the case where a
// forced refresh and a single retry is worth attempting.
func IsAuthToken(err error) bool {
	if err == nil {
		return false
	}
	var ar authRequired
	if errors.As(err, &ar) && ar.AuthRequired() {
		return true
	}
	if IsNetwork(err) {
		return false
	}
	msg := err.Error()
	return authTokenWord.MatchString(msg) && authStateWord.MatchString(msg)
}
