// Package session maintains the authenticated session against the
// upstream auth provider: a local persistent copy, a redundant backup
// slot, an observable in-memory state, and a tiered resolver that can
// re-establish identity after restarts, token expiry and provider
// hiccups.
package session

import (
	"encoding/json"
	"time"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// ExpiryBuffer is subtracted from a session's remaining lifetime before
// it is considered usable. A token that expires inside the buffer is
// treated as already expired so in-flight requests don't race the
// provider's clock.
const ExpiryBuffer = 30 * time.Second

// User is the identity carried inside a session.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

// Session is the credential bundle representing a logged-in identity.
// ExpiresAt is epoch seconds, matching the provider's wire format.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user"`
	ExpiresAt    int64  `json:"expires_at,omitempty"`
}

// UserID returns the session's user id, or "" for a nil/incomplete
// session.
func (s *Session) UserID() string {
	if s == nil || s.User == nil {
		return ""
	}
	return s.User.ID
}

// complete reports whether the minimal required fields are present.
func (s *Session) complete() bool {
	return s != nil && s.AccessToken != "" && s.RefreshToken != "" && s.UserID() != ""
}

// Valid reports whether the session is usable right now: all required
// fields present and the access token not expiring within ExpiryBuffer.
// A session without an expiry claim is assumed usable; the provider
// will reject it if not.
func (s *Session) Valid() bool {
	if !s.complete() {
		return false
	}
	if s.ExpiresAt == 0 {
		return true
	}
	return s.ExpiresAt > NowTimeFunc().Unix()+int64(ExpiryBuffer/time.Second)
}

// sessionEnvelope covers the wrapper shapes the stored value has had
// across provider client versions.
type sessionEnvelope struct {
	CurrentSession *Session `json:"currentSession"`
	Session        *Session `json:"session"`
}

// extractSession parses a stored value into a Session, accepting the
// {currentSession: ...}, {session: ...} and bare-object shapes. Returns
// nil when nothing complete can be extracted; it never fails loudly
// because stored values are not owned exclusively by this code.
func extractSession(raw []byte) *Session {
	var env sessionEnvelope
	if err := json.Unmarshal(raw, &env); err == nil {
		if env.CurrentSession.complete() {
			return env.CurrentSession
		}
		if env.Session.complete() {
			return env.Session
		}
	}

	var bare Session
	if err := json.Unmarshal(raw, &bare); err != nil {
		return nil
	}
	if !bare.complete() {
		return nil
	}
	return &bare
}
