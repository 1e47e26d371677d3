package session

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/abrefacil/checkout-server/internal/errclass"
)

// ResolverConfig bounds the resolver's waiting and retrying. Zero
// values take the defaults below.
type ResolverConfig struct {
	// HydrationTimeout caps how long EnsureUserID waits for the state
	// to initialize before proceeding with whatever is there.
	HydrationTimeout time.Duration

	// RetryDelays is the bounded backoff schedule for network-shaped
	// failures during refresh and direct client lookups.
	RetryDelays []time.Duration
}

var defaultRetryDelays = []time.Duration{
	0,
	100 * time.Millisecond,
	200 * time.Millisecond,
	400 * time.Millisecond,
	800 * time.Millisecond,
}

const defaultHydrationTimeout = 3 * time.Second

// Resolver establishes an authenticated user id through tiered
// fallbacks, each tier more expensive than the last: memory, primary
// storage slot, single-flighted refresh, backup slot, direct client
// lookup. Successful resolutions are adopted into State so later
// callers short-circuit on the in-memory tier.
type Resolver struct {
	state  *State
	reader *Reader
	backup *Backup
	client Client
	cfg    ResolverConfig

	group singleflight.Group
}

func NewResolver(state *State, reader *Reader, backup *Backup, client Client, cfg ResolverConfig) *Resolver {
	if cfg.HydrationTimeout <= 0 {
		cfg.HydrationTimeout = defaultHydrationTimeout
	}
	if len(cfg.RetryDelays) == 0 {
		cfg.RetryDelays = defaultRetryDelays
	}
	return &Resolver{state: state, reader: reader, backup: backup, client: client, cfg: cfg}
}

// EnsureUserID returns the authenticated user's id, or *AuthRequiredError
// when no usable identity can be established. Transient network errors
// are returned as-is instead of being converted to AuthRequiredError so
// callers can choose to fail open rather than force a logout over a
// flaky connection.
func (r *Resolver) EnsureUserID(ctx context.Context) (string, error) {
	// Tier 1: wait (bounded) for the initial hydration, then proceed
	// regardless.
	if r.state.Loading() {
		timer := time.NewTimer(r.cfg.HydrationTimeout)
		select {
		case <-r.state.Ready():
			timer.Stop()
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		}
	}

	// Tier 2: in-memory state.
	if id := r.state.UserID(); id != "" {
		return id, nil
	}

	// Tier 3: primary storage slot, no network.
	stored := r.reader.ReadStored()
	if stored.Valid() {
		r.hydrateClient(ctx, stored)
		r.state.Adopt(EventSignedIn, stored)
		return stored.UserID(), nil
	}

	var lastNetErr error

	// Tier 4: the stored session is expired or incomplete but carries a
	// refresh token; exchange it. This covers the access token expiring
	// while the user sat on a form step.
	if stored != nil && stored.RefreshToken != "" {
		refreshed, err := r.refreshWithRetry(ctx, stored.RefreshToken)
		if err != nil {
			if errclass.IsNetwork(err) {
				lastNetErr = err
			}
			log.Debug().Err(err).Msg("session: refresh from stored token failed")
		}
		if refreshed.UserID() != "" {
			return refreshed.UserID(), nil
		}
	}

	// Tier 5: the backup slot, for when the client wiped its own slot.
	if recovered := r.backup.Read(); recovered.Valid() {
		r.hydrateClient(ctx, recovered)
		r.state.Adopt(EventSignedIn, recovered)
		return recovered.UserID(), nil
	}

	// Tier 6: ask the client directly; it may refresh over the network
	// on its own. Retried over the same bounded schedule.
	for _, delay := range r.cfg.RetryDelays {
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		s, err := r.client.CurrentSession(ctx)
		if err != nil {
			if errclass.IsNetwork(err) {
				lastNetErr = err
			}
			continue
		}
		if s.UserID() != "" {
			r.state.Adopt(EventSignedIn, s)
			return s.UserID(), nil
		}
	}

	if lastNetErr != nil {
		return "", lastNetErr
	}
	return "", &AuthRequiredError{}
}

// ForceRefresh rotates the session using whichever refresh token is
// still reachable. Used after a write fails with a token-shaped error.
func (r *Resolver) ForceRefresh(ctx context.Context) (*Session, error) {
	token := ""
	if s := r.state.Session(); s != nil {
		token = s.RefreshToken
	}
	if token == "" {
		if stored := r.reader.ReadStored(); stored != nil {
			token = stored.RefreshToken
		}
	}
	if token == "" {
		if recovered := r.backup.Read(); recovered != nil {
			token = recovered.RefreshToken
		}
	}
	if token == "" {
		return nil, &AuthRequiredError{Reason: "no refresh token available"}
	}
	return r.refreshOnce(ctx, token)
}

// SignIn performs the password grant through the client. The resulting
// session reaches State through the client's notification stream.
func (r *Resolver) SignIn(ctx context.Context, email, password string) (*Session, error) {
	return r.client.SignIn(ctx, email, password)
}

// SignOut clears the backup first so the signed-out session cannot be
// resurrected by the recovery path, then revokes through the client.
func (r *Resolver) SignOut(ctx context.Context) error {
	if err := r.backup.Clear(); err != nil {
		log.Warn().Err(err).Msg("session: backup clear on sign-out failed")
	}
	return r.client.SignOut(ctx)
}

// refreshWithRetry runs the single-flighted refresh across the bounded
// delay schedule, retrying only network-shaped failures. A terminal
// rejection (revoked/rotated token) stops immediately.
func (r *Resolver) refreshWithRetry(ctx context.Context, refreshToken string) (*Session, error) {
	var lastErr error
	for _, delay := range r.cfg.RetryDelays {
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		s, err := r.refreshOnce(ctx, refreshToken)
		if err == nil {
			return s, nil
		}
		lastErr = err
		if !errclass.IsNetwork(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

// refreshOnce coalesces concurrent refresh calls into one network
// request. Refresh tokens rotate and are single-use; two racing
// refreshes would invalidate each other's result.
func (r *Resolver) refreshOnce(ctx context.Context, refreshToken string) (*Session, error) {
	v, err, _ := r.group.Do("refresh", func() (interface{}, error) {
		s, err := r.client.RefreshSession(ctx, refreshToken)
		if err != nil {
			return nil, err
		}
		if s != nil {
			r.state.Adopt(EventTokenRefreshed, s)
		}
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	s, _ := v.(*Session)
	return s, nil
}

func (r *Resolver) hydrateClient(ctx context.Context, s *Session) {
	if err := r.client.SetSession(ctx, s); err != nil {
		log.Warn().Err(err).Msg("session: client hydration failed")
	}
}

// Diagnostics is a point-in-time snapshot for the debug endpoint.
type Diagnostics struct {
	Loading    bool   `json:"loading"`
	UserID     string `json:"userId,omitempty"`
	Email      string `json:"email,omitempty"`
	ExpiresAt  int64  `json:"expiresAt,omitempty"`
	StorageKey string `json:"storageKey,omitempty"`
	HasStored  bool   `json:"hasStored"`
	HasBackup  bool   `json:"hasBackup"`
}

func (r *Resolver) Diagnostics() Diagnostics {
	d := Diagnostics{
		Loading:    r.state.Loading(),
		StorageKey: r.reader.ResolveKey(),
		HasStored:  r.reader.ReadStored() != nil,
		HasBackup:  r.backup.Read() != nil,
	}
	if s := r.state.Session(); s != nil {
		d.UserID = s.UserID()
		d.ExpiresAt = s.ExpiresAt
		if s.User != nil {
			d.Email = s.User.Email
		}
	}
	return d
}
