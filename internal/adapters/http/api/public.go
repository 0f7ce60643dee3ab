package api

import (
	"net/http"

	"github.com/okian/prebook/internal/adapters/geo"
	"github.com/okian/prebook/pkg/logger"
)

// PublicHandler serves the counter, geo gate and mock dashboard data.
type PublicHandler struct {
	deps DashboardService
	log  logger.Logger
}

// NewPublicHandler creates a new dashboard data handler.
func NewPublicHandler(deps DashboardService, log logger.Logger) *PublicHandler {
	return &PublicHandler{deps: deps, log: log}
}

// HandlePrebookings handles GET /api/prebookings.
func (h *PublicHandler) HandlePrebookings(w http.ResponseWriter, r *http.Request) {
	p, err := h.deps.Prebookings(r.Context())
	if err != nil {
		fail(w, r, h.log, "api.prebookings", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleCheckLocation handles GET /api/check-location.
func (h *PublicHandler) HandleCheckLocation(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.CheckLocation(r.Context(), geo.ClientIP(r)))
}

// HandleAnalytics handles GET /api/admin/analytics[?seed=n].
func (h *PublicHandler) HandleAnalytics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Analytics(r.URL.Query().Get("seed")))
}

// HandleLiveUsers handles GET /api/admin/live-users[?seed=n].
func (h *PublicHandler) HandleLiveUsers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.LiveUsers(r.URL.Query().Get("seed")))
}
