package config

import "strings"

type Auth struct{}

var _ AuthConfig = Auth{}

// GetAuthBaseURL returns the upstream auth provider's API root. Empty
// selects the embedded development provider.
func (Auth) GetAuthBaseURL() string {
	return GetEnv("AUTH_BASE_URL", "")
}

func (Auth) GetAuthClientID() string {
	return GetEnv("AUTH_CLIENT_ID", "")
}

// GetProjectRef identifies the provider project; the session storage
// key is derived from it when no explicit key is configured.
func (Auth) GetProjectRef() string {
	return GetEnv("AUTH_PROJECT_REF", "")
}

// GetSessionStorageKey overrides the derived session slot key.
func (Auth) GetSessionStorageKey() string {
	return GetEnv("SESSION_STORAGE_KEY", "")
}

// GetGuardFailOpen controls whether the route guard lets requests
// through when identity resolution fails with a network-shaped error.
// Defaults to on: a flaky connection should degrade, not lock out.
func (Auth) GetGuardFailOpen() bool {
	return GetEnv("GUARD_FAIL_OPEN", "true") != "false"
}

func (Auth) GetAdminEmails() []string {
	raw := GetEnv("ADMIN_EMAILS", "")
	if raw == "" {
		return nil
	}
	var emails []string
	for _, email := range strings.Split(raw, ",") {
		email = strings.TrimSpace(email)
		if email != "" {
			emails = append(emails, email)
		}
	}
	return emails
}

func (Auth) GetDevAuthSecret() string {
	return GetEnv("DEV_AUTH_SECRET", "dev-only-secret")
}
