package api

import (
	"net/http"

	service "github.com/okian/prebook/internal/app"
	"github.com/okian/prebook/internal/domain/model"
	"github.com/okian/prebook/internal/domain/types"
	"github.com/okian/prebook/pkg/logger"
)

// PlansHandler serves the plan catalogue.
type PlansHandler struct {
	deps PlanService
	log  logger.Logger
}

// NewPlansHandler creates a new plans handler.
func NewPlansHandler(deps PlanService, log logger.Logger) *PlansHandler {
	return &PlansHandler{deps: deps, log: log}
}

type planPageResponse struct {
	Plans  []model.Plan `json:"plans"`
	Total  int          `json:"total"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
}

type planMessageResponse struct {
	Message string     `json:"message"`
	Plan    model.Plan `json:"plan"`
}

// HandlePublicList handles GET /api/plans.
func (h *PlansHandler) HandlePublicList(w http.ResponseWriter, r *http.Request) {
	plans, err := h.deps.ActivePlans(r.Context())
	if err != nil {
		fail(w, r, h.log, "api.public_plans", err)
		return
	}
	writeJSON(w, http.StatusOK, plans)
}

// HandleList handles GET /api/admin/plans.
func (h *PlansHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := types.PlanQuery{
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
		Limit:     queryInt(r, "limit"),
		Offset:    queryInt(r, "offset"),
	}
	if q.Has("isActive") {
		v := q.Get("isActive")
		active := v == "true" || v == "1"
		query.IsActive = &active
	}
	page, err := h.deps.ListPlans(r.Context(), query)
	if err != nil {
		fail(w, r, h.log, "api.list_plans", err)
		return
	}
	writeJSON(w, http.StatusOK, planPageResponse{Plans: page.Items, Total: page.Total, Limit: page.Limit, Offset: page.Offset})
}

// HandleCreate handles POST /api/admin/plans.
func (h *PlansHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_plan"
	var p service.PlanPatch
	if err := decodeJSON(w, r, op, &p); err != nil {
		badJSON(w)
		return
	}
	plan, err := h.deps.CreatePlan(r.Context(), p)
	if err != nil {
		fail(w, r, h.log, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, plan)
}

// HandleGet handles GET /api/admin/plans/{id}.
func (h *PlansHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		invalidID(w)
		return
	}
	plan, err := h.deps.GetPlan(r.Context(), id)
	if err != nil {
		fail(w, r, h.log, "api.get_plan", err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// HandleUpdate handles PUT /api/admin/plans/{id}.
func (h *PlansHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	const op = "api.update_plan"
	id, ok := pathID(r)
	if !ok {
		invalidID(w)
		return
	}
	var p service.PlanPatch
	if err := decodeJSON(w, r, op, &p); err != nil {
		badJSON(w)
		return
	}
	plan, err := h.deps.UpdatePlan(r.Context(), id, p)
	if err != nil {
		fail(w, r, h.log, op, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// HandleDelete handles DELETE /api/admin/plans/{id}[?hard=true].
func (h *PlansHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		invalidID(w)
		return
	}
	hard := r.URL.Query().Get("hard") == "true"
	plan, err := h.deps.DeletePlan(r.Context(), id, hard)
	if err != nil {
		fail(w, r, h.log, "api.delete_plan", err)
		return
	}
	msg := "Plan deactivated successfully"
	if hard {
		msg = "Plan deleted permanently"
	}
	writeJSON(w, http.StatusOK, planMessageResponse{Message: msg, Plan: plan})
}
