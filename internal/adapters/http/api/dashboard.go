package api

import (
	"embed"
	"net/http"
)

//go:embed static/dashboard.html
var dashboardFS embed.FS

// dashboardHandler serves the embedded admin page.
type dashboardHandler struct{}

func newDashboardHandler() *dashboardHandler {
	return &dashboardHandler{}
}

// HandleDashboard handles GET /dashboard.
// The page signs in against /api/admin/auth/login and renders the counter,
// order stats, analytics and live visitors.
func (h *dashboardHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	http.ServeFileFS(w, r, dashboardFS, "static/dashboard.html")
}
