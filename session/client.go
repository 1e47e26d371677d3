package session

import "context"

// Event identifies a change in the provider client's auth state,
// mirroring the provider's notification stream.
type Event string

const (
	EventInitialSession Event = "INITIAL_SESSION"
	EventSignedIn       Event = "SIGNED_IN"
	EventTokenRefreshed Event = "TOKEN_REFRESHED"
	EventSignedOut      Event = "SIGNED_OUT"
)

// Client is the upstream auth-provider client. Implementations own the
// primary storage slot (they persist their session there and may clear
// it on their own); everything else in this package treats that slot as
// read-mostly.
type Client interface {
	// CurrentSession returns the client's current session, refreshing
	// through the network if the client decides it has to. A nil
	// session with a nil error means "signed out".
	CurrentSession(ctx context.Context) (*Session, error)

	// RefreshSession exchanges refreshToken for a new session. Refresh
	// tokens rotate server-side and are single-use; concurrent calls
	// can invalidate each other, which is why callers go through the
	// resolver's single-flight instead of calling this directly.
	RefreshSession(ctx context.Context, refreshToken string) (*Session, error)

	// SignIn performs the password grant.
	SignIn(ctx context.Context, email, password string) (*Session, error)

	// SetSession hydrates the client with an externally recovered
	// session so its subsequent calls run authenticated.
	SetSession(ctx context.Context, s *Session) error

	// SignOut revokes the session and clears the primary slot.
	SignOut(ctx context.Context) error

	// Subscribe registers a listener for auth-state changes. The
	// returned function unsubscribes.
	Subscribe(fn func(Event, *Session)) func()
}
