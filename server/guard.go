package server

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/abrefacil/checkout-server/checkout"
	"github.com/abrefacil/checkout-server/internal/errclass"
	"github.com/abrefacil/checkout-server/session"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeyUserID stores the authenticated user ID
	ContextKeyUserID ContextKey = "user_id"
	// ContextKeyUserEmail stores the authenticated user's email
	ContextKeyUserEmail ContextKey = "user_email"
)

// Guard protects checkout routes. It resolves identity through the
// session resolver and distinguishes "definitely signed out" from
// "cannot tell because the network is down": the latter lets the
// request through (when configured) rather than bouncing a paying user
// to the login page over a flaky connection.
type Guard struct {
	resolver *session.Resolver
	state    *session.State
	failOpen bool

	// redirected tracks whether an HTML request was already bounced to
	// the login page while resolution keeps failing. It breaks redirect
	// loops: the second consecutive failure lets the request through
	// instead of bouncing again. Reset whenever identity resolves.
	redirected atomic.Bool
}

func NewGuard(resolver *session.Resolver, state *session.State, failOpen bool) *Guard {
	return &Guard{resolver: resolver, state: state, failOpen: failOpen}
}

// Require is the guard middleware.
func (g *Guard) Require() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			userID, err := g.resolver.EnsureUserID(r.Context())
			if err == nil {
				g.redirected.Store(false)
				next(w, r.WithContext(g.identityContext(r.Context(), userID)))
				return
			}

			if errclass.IsNetwork(err) {
				if g.failOpen {
					log.Warn().Err(err).
						Str("path", r.URL.Path).
						Msg("guard: identity unresolved over network failure, allowing through")
					next(w, r)
					return
				}
				writeError(w, http.StatusServiceUnavailable, checkout.MsgNetwork)
				return
			}

			if wantsHTML(r) {
				if g.redirected.Swap(true) {
					// Already bounced once and resolution still fails;
					// a second redirect would loop.
					next(w, r)
					return
				}
				http.Redirect(w, r, "/login?from="+url.QueryEscape(r.URL.RequestURI()), http.StatusSeeOther)
				return
			}
			writeError(w, http.StatusUnauthorized, checkout.MsgSession)
		}
	}
}

func (g *Guard) identityContext(ctx context.Context, userID string) context.Context {
	ctx = context.WithValue(ctx, ContextKeyUserID, userID)
	if s := g.state.Session(); s != nil && s.User != nil {
		ctx = context.WithValue(ctx, ContextKeyUserEmail, s.User.Email)
	}
	return ctx
}

func wantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

// RequireAdmin allows only configured admin emails past. Chain after
// the guard so the identity context is populated.
func (s *Server) RequireAdmin() func(http.HandlerFunc) http.HandlerFunc {
	admins := make(map[string]struct{})
	for _, email := range s.config.GetAdminEmails() {
		admins[strings.ToLower(email)] = struct{}{}
	}

	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			email, _ := r.Context().Value(ContextKeyUserEmail).(string)
			if email == "" {
				writeError(w, http.StatusForbidden, "admin access required")
				return
			}
			if _, ok := admins[strings.ToLower(email)]; !ok {
				writeError(w, http.StatusForbidden, "admin access required")
				return
			}
			next(w, r)
		}
	}
}
