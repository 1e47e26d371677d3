package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/abrefacil/checkout-server/checkout"
	"github.com/abrefacil/checkout-server/internal/config"
	"github.com/abrefacil/checkout-server/session"
)

type Server struct {
	env    string
	mux    *http.ServeMux
	routes []string
	config config.Config

	checkout *checkout.Service
	resolver *session.Resolver
	state    *session.State

	// devAuth, when set, mounts the embedded auth provider under
	// /auth/v1 so the whole stack runs without external services.
	devAuth http.Handler

	guard *Guard
}

func New(cfg config.Config, checkoutSvc *checkout.Service, resolver *session.Resolver, state *session.State, devAuth http.Handler) *Server {
	s := &Server{
		env:      cfg.GetEnv(),
		mux:      http.NewServeMux(),
		config:   cfg,
		checkout: checkoutSvc,
		resolver: resolver,
		state:    state,
		devAuth:  devAuth,
	}
	s.guard = NewGuard(resolver, state, cfg.GetGuardFailOpen())

	s.initRoutes()
	s.logRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	log.Debug().Msg(fmt.Sprintf("[%-7s] %s", method, path))
}
