package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	service "github.com/okian/prebook/internal/app"
	"github.com/okian/prebook/internal/domain/model"
	"github.com/okian/prebook/internal/domain/types"
	"github.com/okian/prebook/pkg/logger"
)

// TemplatesHandler serves email template administration.
type TemplatesHandler struct {
	deps TemplateService
	log  logger.Logger
}

// NewTemplatesHandler creates a new templates handler.
func NewTemplatesHandler(deps TemplateService, log logger.Logger) *TemplatesHandler {
	return &TemplatesHandler{deps: deps, log: log}
}

type templatePageResponse struct {
	Templates []model.EmailTemplate `json:"templates"`
	Total     int                   `json:"total"`
	Limit     int                   `json:"limit"`
	Offset    int                   `json:"offset"`
}

type deletedTemplateResponse struct {
	Message         string              `json:"message"`
	DeletedTemplate model.EmailTemplate `json:"deletedTemplate"`
}

// templateRequest keeps variables raw so a non-array value can be reported
// with its own code.
type templateRequest struct {
	TemplateName    *string         `json:"templateName"`
	TemplateSubject *string         `json:"templateSubject"`
	TemplateBody    *string         `json:"templateBody"`
	Variables       json.RawMessage `json:"variables"`
	IsActive        *bool           `json:"isActive"`
}

func (t *templateRequest) patch() (service.TemplatePatch, bool) {
	p := service.TemplatePatch{
		TemplateName:    t.TemplateName,
		TemplateSubject: t.TemplateSubject,
		TemplateBody:    t.TemplateBody,
		IsActive:        t.IsActive,
	}
	if len(t.Variables) == 0 || string(t.Variables) == "null" {
		return p, true
	}
	var vars []string
	if err := json.Unmarshal(t.Variables, &vars); err != nil {
		return p, false
	}
	p.Variables = &vars
	return p, true
}

func (h *TemplatesHandler) decode(w http.ResponseWriter, r *http.Request, op string) (service.TemplatePatch, bool) {
	var req templateRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		badJSON(w)
		return service.TemplatePatch{}, false
	}
	p, ok := req.patch()
	if !ok {
		writeError(w, http.StatusBadRequest, CodeInvalidVariables, "Variables must be a valid JSON array")
		return p, false
	}
	return p, true
}

// HandleList handles GET /api/admin/email-templates.
func (h *TemplatesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	page, err := h.deps.ListTemplates(r.Context(), types.TemplateQuery{
		Search: r.URL.Query().Get("search"),
		Limit:  queryInt(r, "limit"),
		Offset: queryInt(r, "offset"),
	})
	if err != nil {
		fail(w, r, h.log, "api.list_templates", err)
		return
	}
	writeJSON(w, http.StatusOK, templatePageResponse{
		Templates: page.Items, Total: page.Total, Limit: page.Limit, Offset: page.Offset,
	})
}

// HandleCreate handles POST /api/admin/email-templates.
func (h *TemplatesHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_template"
	p, ok := h.decode(w, r, op)
	if !ok {
		return
	}
	t, err := h.deps.CreateTemplate(r.Context(), p)
	if err != nil {
		fail(w, r, h.log, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// HandleGet handles GET /api/admin/email-templates/{id}.
func (h *TemplatesHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		invalidID(w)
		return
	}
	t, err := h.deps.GetTemplate(r.Context(), id)
	if err != nil {
		fail(w, r, h.log, "api.get_template", err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// HandleUpdate handles PUT /api/admin/email-templates/{id}.
func (h *TemplatesHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	const op = "api.update_template"
	id, ok := pathID(r)
	if !ok {
		invalidID(w)
		return
	}
	p, ok := h.decode(w, r, op)
	if !ok {
		return
	}
	t, err := h.deps.UpdateTemplate(r.Context(), id, p)
	if err != nil {
		fail(w, r, h.log, op, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// HandleDelete handles DELETE /api/admin/email-templates/{id}.
func (h *TemplatesHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		invalidID(w)
		return
	}
	t, err := h.deps.DeleteTemplate(r.Context(), id)
	if err != nil {
		fail(w, r, h.log, "api.delete_template", err)
		return
	}
	writeJSON(w, http.StatusOK, deletedTemplateResponse{Message: "Template deleted successfully", DeletedTemplate: t})
}

// HandlePreview handles POST /api/admin/email-templates/{id}/preview.
func (h *TemplatesHandler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	const op = "api.preview_template"
	id, ok := pathID(r)
	if !ok {
		invalidID(w)
		return
	}
	var req struct {
		Variables map[string]any `json:"variables"`
	}
	if err := decodeJSON(w, r, op, &req); err != nil {
		badJSON(w)
		return
	}
	vars := make(map[string]string, len(req.Variables))
	for k, v := range req.Variables {
		vars[k] = fmt.Sprint(v)
	}
	out, err := h.deps.PreviewTemplate(r.Context(), id, vars)
	if err != nil {
		fail(w, r, h.log, op, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
