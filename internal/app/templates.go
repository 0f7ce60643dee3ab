package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/prebook/internal/adapters/repository"
	"github.com/okian/prebook/internal/domain/model"
	"github.com/okian/prebook/internal/domain/template"
	"github.com/okian/prebook/internal/domain/types"
	"github.com/okian/prebook/pkg/logger"
	"github.com/okian/prebook/pkg/metrics"
)

// TemplatePatch carries template fields for create and partial update.
type TemplatePatch struct {
	TemplateName    *string   `json:"templateName"`
	TemplateSubject *string   `json:"templateSubject"`
	TemplateBody    *string   `json:"templateBody"`
	Variables       *[]string `json:"variables"`
	IsActive        *bool     `json:"isActive"`
}

// Rendered is a template preview.
type Rendered struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`

	// Unresolved lists placeholders no variable was supplied for.
	Unresolved []string `json:"unresolved"`
}

func blank(s *string) bool { return s == nil || strings.TrimSpace(*s) == "" }

// ListTemplates searches and pages email templates.
func (s *Service) ListTemplates(ctx context.Context, q types.TemplateQuery) (types.Page[model.EmailTemplate], error) {
	all, err := s.templates.List(ctx, strings.TrimSpace(q.Search))
	if err != nil {
		return types.Page[model.EmailTemplate]{}, err
	}
	limit := types.NormalizeLimit(q.Limit, types.DefaultTemplateLimit, types.MaxPageLimit)
	offset := types.NormalizeOffset(q.Offset)
	return types.Page[model.EmailTemplate]{
		Items:  types.Paginate(all, offset, limit),
		Total:  len(all),
		Limit:  limit,
		Offset: offset,
	}, nil
}

// CreateTemplate stores a new active template. Variables are extracted from
// the subject and body when none are given.
func (s *Service) CreateTemplate(ctx context.Context, p TemplatePatch) (model.EmailTemplate, error) {
	switch {
	case blank(p.TemplateName):
		return model.EmailTemplate{}, invalid(CodeMissingTemplateName, "Template name is required")
	case blank(p.TemplateSubject):
		return model.EmailTemplate{}, invalid(CodeMissingTemplateSubject, "Template subject is required")
	case blank(p.TemplateBody):
		return model.EmailTemplate{}, invalid(CodeMissingTemplateContent, "Template content is required")
	}

	now := s.now().UTC().Truncate(time.Millisecond)
	t := model.EmailTemplate{
		TemplateName:    strings.TrimSpace(*p.TemplateName),
		TemplateSubject: strings.TrimSpace(*p.TemplateSubject),
		TemplateBody:    *p.TemplateBody,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if p.Variables != nil {
		t.Variables = append([]string{}, (*p.Variables)...)
	} else {
		t.Variables = template.Variables(t.TemplateSubject, t.TemplateBody)
	}

	if err := s.templates.Create(ctx, &t); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return t, invalid(CodeDuplicateTemplateName, "Template name already exists")
		}
		return t, err
	}
	s.logger.Info(ctx, "email template created", logger.String("template", t.TemplateName))
	return t, nil
}

// GetTemplate returns one template.
func (s *Service) GetTemplate(ctx context.Context, id int64) (model.EmailTemplate, error) {
	t, err := s.templates.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return t, notFound(CodeTemplateNotFound, "Template not found")
	}
	return t, err
}

// UpdateTemplate applies a partial update. Blank names, subjects or bodies are
// ignored.
func (s *Service) UpdateTemplate(ctx context.Context, id int64, p TemplatePatch) (model.EmailTemplate, error) {
	t, err := s.GetTemplate(ctx, id)
	if err != nil {
		return t, err
	}
	if !blank(p.TemplateName) {
		t.TemplateName = strings.TrimSpace(*p.TemplateName)
	}
	if !blank(p.TemplateSubject) {
		t.TemplateSubject = strings.TrimSpace(*p.TemplateSubject)
	}
	if !blank(p.TemplateBody) {
		t.TemplateBody = *p.TemplateBody
	}
	if p.Variables != nil {
		t.Variables = append([]string{}, (*p.Variables)...)
	}
	if p.IsActive != nil {
		t.IsActive = *p.IsActive
	}
	t.UpdatedAt = s.now().UTC().Truncate(time.Millisecond)

	if err := s.templates.Update(ctx, &t); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return t, invalid(CodeDuplicateTemplateName, "Template name already exists")
		case errors.Is(err, repository.ErrNotFound):
			return t, notFound(CodeTemplateNotFound, "Template not found")
		}
		return t, err
	}
	return t, nil
}

// DeleteTemplate removes a template and returns it.
func (s *Service) DeleteTemplate(ctx context.Context, id int64) (model.EmailTemplate, error) {
	t, err := s.GetTemplate(ctx, id)
	if err != nil {
		return t, err
	}
	if err := s.templates.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return t, notFound(CodeTemplateNotFound, "Template not found")
		}
		return t, err
	}
	return t, nil
}

// PreviewTemplate renders a stored template with vars.
func (s *Service) PreviewTemplate(ctx context.Context, id int64, vars map[string]string) (Rendered, error) {
	t, err := s.GetTemplate(ctx, id)
	if err != nil {
		return Rendered{}, err
	}
	unresolved := template.Missing(t.TemplateSubject+"\n"+t.TemplateBody, vars)
	if unresolved == nil {
		unresolved = []string{}
	}
	return Rendered{
		Subject:    template.Render(t.TemplateSubject, vars),
		Body:       template.Render(t.TemplateBody, vars),
		Unresolved: unresolved,
	}, nil
}

// EnsureDefaultTemplates creates the built-in templates that are missing.
func (s *Service) EnsureDefaultTemplates(ctx context.Context) error {
	n, err := repository.EnsureTemplates(ctx, s.templates)
	if err != nil {
		return err
	}
	if n > 0 {
		s.logger.Info(ctx, "default email templates created", logger.Int("count", n))
	}
	return nil
}

// SendEmail renders the named template and queues it for delivery. It
// reports whether the email was queued.
func (s *Service) SendEmail(ctx context.Context, to, templateName string, vars map[string]string) bool {
	t, err := s.templates.GetByName(ctx, templateName)
	if err != nil || !t.IsActive {
		metrics.RecordErrorByComponent("email", "template_unavailable")
		s.logger.Error(ctx, "email template not found or inactive",
			logger.String("template", templateName), logger.Error(err))
		return false
	}

	e := model.Email{
		ID:           uuid.NewString(),
		To:           to,
		From:         s.emailFrom,
		Subject:      template.Render(t.TemplateSubject, vars),
		Body:         template.Render(t.TemplateBody, vars),
		TemplateName: templateName,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.emailQueue.Enqueue(ctx, e); err != nil {
		s.logger.Error(ctx, "failed to queue email",
			logger.String("template", templateName), logger.String("to", to), logger.Error(err))
		return false
	}
	metrics.RecordEmailEnqueued()
	return true
}
