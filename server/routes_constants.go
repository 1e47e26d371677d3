package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Public funnel routes
	RouteAPILeads         = "/api/leads"
	RouteAPIQualification = "/api/leads/{leadID}/qualification"

	// Session routes
	RouteAPILogin   = "/api/login"
	RouteAPILogout  = "/api/logout"
	RouteAPISession = "/api/session"

	// Guarded checkout routes
	RouteAPISubscriptions = "/api/subscriptions"
	RouteAPIFormations    = "/api/formations"
	RouteAPIDocuments     = "/api/documents"

	// Admin routes
	RouteAdminLeads         = "/api/admin/leads"
	RouteAdminSubscriptions = "/api/admin/subscriptions"
	RouteAdminFormations    = "/api/admin/formations"

	// Embedded dev auth provider mount point
	RouteDevAuthPrefix = "/auth/v1/"

	RouteHealth = "/healthz"
)
