package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/okian/prebook/internal/domain/model"
)

const templateColumns = `id, template_name, template_subject, template_body, variables, is_active, created_at, updated_at`

type templateStore struct {
	db *DB
}

func scanTemplate(r rowScanner) (model.EmailTemplate, error) {
	var (
		t                      model.EmailTemplate
		vars, created, updated string
	)
	err := r.Scan(&t.ID, &t.TemplateName, &t.TemplateSubject, &t.TemplateBody, &vars, &t.IsActive, &created, &updated)
	if err != nil {
		return t, err
	}
	if t.Variables, err = decodeList(vars); err != nil {
		return t, fmt.Errorf("variables: %w", err)
	}
	if t.CreatedAt, err = parseTime(created); err != nil {
		return t, err
	}
	t.UpdatedAt, err = parseTime(updated)
	return t, err
}

func (s *templateStore) Create(ctx context.Context, t *model.EmailTemplate) error {
	defer observe("templates.create", time.Now())
	vars, err := encodeList(t.Variables)
	if err != nil {
		return fmt.Errorf("create template: %w", err)
	}
	now := s.db.now().UTC().Truncate(time.Millisecond)
	t.CreatedAt, t.UpdatedAt = now, now
	q := s.db.rebind(`INSERT INTO email_templates (template_name, template_subject, template_body, variables,
	is_active, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	err = s.db.sql.QueryRowContext(ctx, q, t.TemplateName, t.TemplateSubject, t.TemplateBody, vars,
		boolInt(t.IsActive), formatTime(now), formatTime(now)).Scan(&t.ID)
	return translate("create template", err)
}

func (s *templateStore) Get(ctx context.Context, id int64) (model.EmailTemplate, error) {
	defer observe("templates.get", time.Now())
	t, err := scanTemplate(s.db.sql.QueryRowContext(ctx,
		s.db.rebind("SELECT "+templateColumns+" FROM email_templates WHERE id = ?"), id))
	return t, translate("get template", err)
}

func (s *templateStore) GetByName(ctx context.Context, name string) (model.EmailTemplate, error) {
	defer observe("templates.get_by_name", time.Now())
	t, err := scanTemplate(s.db.sql.QueryRowContext(ctx,
		s.db.rebind("SELECT "+templateColumns+" FROM email_templates WHERE template_name = ?"), name))
	return t, translate("get template by name", err)
}

// likeEscaper makes a search term match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func (s *templateStore) List(ctx context.Context, search string) ([]model.EmailTemplate, error) {
	defer observe("templates.list", time.Now())
	q := "SELECT " + templateColumns + " FROM email_templates"
	var args []any
	if search = strings.TrimSpace(search); search != "" {
		q += ` WHERE LOWER(template_name) LIKE ? ESCAPE '\' OR LOWER(template_subject) LIKE ? ESCAPE '\'`
		pattern := "%" + likeEscaper.Replace(strings.ToLower(search)) + "%"
		args = append(args, pattern, pattern)
	}
	q += " ORDER BY created_at DESC, id DESC"
	rows, err := s.db.sql.QueryContext(ctx, s.db.rebind(q), args...)
	if err != nil {
		return nil, translate("list templates", err)
	}
	defer rows.Close()
	out := []model.EmailTemplate{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, translate("list templates", err)
		}
		out = append(out, t)
	}
	return out, translate("list templates", rows.Err())
}

func (s *templateStore) Update(ctx context.Context, t *model.EmailTemplate) error {
	defer observe("templates.update", time.Now())
	vars, err := encodeList(t.Variables)
	if err != nil {
		return fmt.Errorf("update template: %w", err)
	}
	t.UpdatedAt = s.db.now().UTC().Truncate(time.Millisecond)
	q := s.db.rebind(`UPDATE email_templates SET template_name = ?, template_subject = ?, template_body = ?,
	variables = ?, is_active = ?, updated_at = ? WHERE id = ?`)
	res, err := s.db.sql.ExecContext(ctx, q, t.TemplateName, t.TemplateSubject, t.TemplateBody, vars,
		boolInt(t.IsActive), formatTime(t.UpdatedAt), t.ID)
	if err != nil {
		return translate("update template", err)
	}
	return affected("update template", res)
}

func (s *templateStore) Delete(ctx context.Context, id int64) error {
	defer observe("templates.delete", time.Now())
	res, err := s.db.sql.ExecContext(ctx, s.db.rebind("DELETE FROM email_templates WHERE id = ?"), id)
	if err != nil {
		return translate("delete template", err)
	}
	return affected("delete template", res)
}
