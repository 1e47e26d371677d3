package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// ProviderClient talks to the upstream auth provider over HTTP. Token
// grants go through golang.org/x/oauth2; the user profile and logout
// endpoints are plain REST calls.
//
// The client owns the primary storage slot: every session it obtains is
// persisted there, and a terminal refresh rejection clears it. That
// clearing behavior is exactly why the backup slot exists.
type ProviderClient struct {
	oauthCfg *oauth2.Config
	http     *resty.Client
	store    Store
	slotKey  string

	mu      sync.RWMutex
	current *Session
	subs    map[int]func(Event, *Session)
	nextID  int
}

// ProviderConfig configures a ProviderClient.
type ProviderConfig struct {
	// BaseURL is the provider's auth API root, e.g.
	// "https://xyzcompany.example.com/auth/v1".
	BaseURL string

	// ClientID is sent with token grants. Optional for providers that
	// key on the endpoint alone.
	ClientID string

	// SlotKey is the primary storage slot key the client persists its
	// session under.
	SlotKey string
}

func NewProviderClient(cfg ProviderConfig, store Store) *ProviderClient {
	return &ProviderClient{
		oauthCfg: &oauth2.Config{
			ClientID: cfg.ClientID,
			Endpoint: oauth2.Endpoint{
				TokenURL:  cfg.BaseURL + "/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		http:    resty.New().SetBaseURL(cfg.BaseURL),
		store:   store,
		slotKey: cfg.SlotKey,
		subs:    make(map[int]func(Event, *Session)),
	}
}

// CurrentSession returns the session held in memory, falling back to
// the primary slot. It does not refresh; expired sessions come back
// as-is so the caller can decide.
func (c *ProviderClient) CurrentSession(ctx context.Context) (*Session, error) {
	c.mu.RLock()
	current := c.current
	c.mu.RUnlock()
	if current != nil {
		return current, nil
	}

	raw, err := c.store.Get(c.slotKey)
	if errors.Is(err, ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading session slot: %w", err)
	}
	s := extractSession(raw)
	if s == nil {
		return nil, nil
	}
	c.mu.Lock()
	c.current = s
	c.mu.Unlock()
	return s, nil
}

// RefreshSession exchanges refreshToken for a rotated session. A
// terminal rejection from the token endpoint clears the primary slot;
// a network failure leaves it untouched.
func (c *ProviderClient) RefreshSession(ctx context.Context, refreshToken string) (*Session, error) {
	src := c.oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			// The provider rejected the token outright. Clear the slot
			// the way the upstream SDK does.
			c.clearSlot()
			return nil, fmt.Errorf("refresh rejected: %w", err)
		}
		return nil, fmt.Errorf("refresh request failed: %w", err)
	}

	s, err := sessionFromToken(tok)
	if err != nil {
		return nil, err
	}
	c.persist(s)
	c.notify(EventTokenRefreshed, s)
	return s, nil
}

// SignIn performs the resource-owner password grant.
func (c *ProviderClient) SignIn(ctx context.Context, email, password string) (*Session, error) {
	tok, err := c.oauthCfg.PasswordCredentialsToken(ctx, email, password)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return nil, fmt.Errorf("sign-in rejected: %w", err)
		}
		return nil, fmt.Errorf("sign-in request failed: %w", err)
	}

	s, err := sessionFromToken(tok)
	if err != nil {
		return nil, err
	}
	c.persist(s)
	c.notify(EventSignedIn, s)
	return s, nil
}

// SetSession hydrates the client with an externally recovered session.
func (c *ProviderClient) SetSession(ctx context.Context, s *Session) error {
	if s == nil {
		return errors.New("cannot set a nil session")
	}
	c.persist(s)
	return nil
}

// SignOut revokes the session upstream and clears the primary slot.
// The slot is cleared even when revocation fails; a dead upstream must
// not pin a local session forever.
func (c *ProviderClient) SignOut(ctx context.Context) error {
	c.mu.RLock()
	current := c.current
	c.mu.RUnlock()

	var revokeErr error
	if current != nil && current.AccessToken != "" {
		resp, err := c.http.R().
			SetContext(ctx).
			SetAuthToken(current.AccessToken).
			Post("/logout")
		if err != nil {
			revokeErr = fmt.Errorf("logout request failed: %w", err)
		} else if resp.IsError() {
			revokeErr = fmt.Errorf("logout returned %s", resp.Status())
		}
	}

	c.clearSlot()
	c.notify(EventSignedOut, nil)
	return revokeErr
}

// Subscribe registers an auth-state listener.
func (c *ProviderClient) Subscribe(fn func(Event, *Session)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

// FetchUser loads the profile for the bearer token from GET /user.
func (c *ProviderClient) FetchUser(ctx context.Context, accessToken string) (*User, error) {
	var user User
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetResult(&user).
		Get("/user")
	if err != nil {
		return nil, fmt.Errorf("user request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("user endpoint returned %s", resp.Status())
	}
	return &user, nil
}

func (c *ProviderClient) persist(s *Session) {
	c.mu.Lock()
	c.current = s
	c.mu.Unlock()

	raw, err := json.Marshal(s)
	if err != nil {
		log.Warn().Err(err).Msg("session: marshal for slot write failed")
		return
	}
	if err := c.store.Set(c.slotKey, raw); err != nil {
		log.Warn().Err(err).Msg("session: slot write failed")
	}
}

func (c *ProviderClient) clearSlot() {
	c.mu.Lock()
	c.current = nil
	c.mu.Unlock()

	if err := c.store.Delete(c.slotKey); err != nil && !errors.Is(err, ErrKeyNotFound) {
		log.Warn().Err(err).Msg("session: slot clear failed")
	}
}

func (c *ProviderClient) notify(event Event, s *Session) {
	c.mu.RLock()
	listeners := make([]func(Event, *Session), 0, len(c.subs))
	for _, fn := range c.subs {
		listeners = append(listeners, fn)
	}
	c.mu.RUnlock()

	for _, fn := range listeners {
		fn(event, s)
	}
}

// sessionFromToken builds a Session from an oauth2 token, deriving the
// user identity from the access token's claims. The token is parsed
// without verification; the provider signed it and this process never
// accepts it as inbound proof of anything.
func sessionFromToken(tok *oauth2.Token) (*Session, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tok.AccessToken, claims); err != nil {
		return nil, fmt.Errorf("parsing access token: %w", err)
	}

	s := &Session{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		User:         &User{},
	}
	if sub, err := claims.GetSubject(); err == nil {
		s.User.ID = sub
	}
	if email, ok := claims["email"].(string); ok {
		s.User.Email = email
	}
	if !tok.Expiry.IsZero() {
		s.ExpiresAt = tok.Expiry.Unix()
	} else if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		s.ExpiresAt = exp.Unix()
	}
	if s.User.ID == "" {
		return nil, errors.New("access token carries no subject")
	}
	return s, nil
}
