package session

// AuthRequiredError is returned when no usable identity can be
// established through any resolution tier. Callers pattern-match on it
// to trigger re-authentication instead of showing a generic failure.
type AuthRequiredError struct {
	Reason string
}

func (e *AuthRequiredError) Error() string {
	if e.Reason == "" {
		return "AUTH_REQUIRED"
	}
	return "AUTH_REQUIRED: " + e.Reason
}

// AuthRequired marks the error for classification without forcing
// importers to depend on this package's concrete type.
func (e *AuthRequiredError) AuthRequired() bool { return true }
