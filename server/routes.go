package server

import "net/http"

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())

	// Method-scoped patterns never match OPTIONS, so preflights get
	// their own catch-all that runs the CORS middleware.
	s.RegisterRouteHandler("OPTIONS /", ChainMiddleware(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}, s.CorsMiddleware))

	// Public funnel: these run before any account exists.
	s.RegisterRouteHandler("POST "+RouteAPILeads, ChainMiddleware(s.LeadCreateHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAPIQualification, ChainMiddleware(s.QualificationHandler(), s.APIMiddleware()...))

	// Session management.
	s.RegisterRouteHandler("POST "+RouteAPILogin, ChainMiddleware(s.LoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAPILogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAPISession, ChainMiddleware(s.SessionDiagnosticsHandler(), s.APIMiddleware()...))

	// Guarded checkout steps.
	s.RegisterRouteHandler("POST "+RouteAPISubscriptions, ChainMiddleware(s.SubscriptionHandler(), s.APIMiddleware(s.guard.Require())...))
	s.RegisterRouteHandler("POST "+RouteAPIFormations, ChainMiddleware(s.FormationHandler(), s.APIMiddleware(s.guard.Require())...))
	s.RegisterRouteHandler("POST "+RouteAPIDocuments, ChainMiddleware(s.DocumentUploadHandler(), s.APIMiddleware(s.guard.Require())...))

	// Admin listings.
	s.RegisterRouteHandler("GET "+RouteAdminLeads, ChainMiddleware(s.AdminLeadsHandler(), s.APIMiddleware(s.guard.Require(), s.RequireAdmin())...))
	s.RegisterRouteHandler("GET "+RouteAdminSubscriptions, ChainMiddleware(s.AdminSubscriptionsHandler(), s.APIMiddleware(s.guard.Require(), s.RequireAdmin())...))
	s.RegisterRouteHandler("GET "+RouteAdminFormations, ChainMiddleware(s.AdminFormationsHandler(), s.APIMiddleware(s.guard.Require(), s.RequireAdmin())...))

	if s.devAuth != nil {
		s.RegisterRouteHandler(RouteDevAuthPrefix, http.StripPrefix(RouteDevAuthPrefix[:len(RouteDevAuthPrefix)-1], s.devAuth))
	}
}
