// Package repository persists orders, plans, email templates and admin users
// in a relational database (sqlite or postgres).
package repository

import (
	"context"
	"time"

	"github.com/okian/prebook/internal/domain/model"
)

// OrderFilter narrows OrderStore.List. Empty fields match everything.
type OrderFilter struct {
	Email       string
	Status      string
	ServiceType string
}

// OrderStore provides CRUD over pre-booking orders.
type OrderStore interface {
	// Create inserts o and fills in its ID.
	Create(ctx context.Context, o *model.Order) error
	Get(ctx context.Context, id int64) (model.Order, error)
	GetByNumber(ctx context.Context, orderNumber string) (model.Order, error)
	ListByEmail(ctx context.Context, email string) ([]model.Order, error)
	List(ctx context.Context, f OrderFilter) ([]model.Order, error)
	Update(ctx context.Context, o *model.Order) error
	Delete(ctx context.Context, id int64) error
	// All returns orders created within [start, end]. A zero bound is open.
	All(ctx context.Context, start, end time.Time) ([]model.Order, error)
	Count(ctx context.Context) (int64, error)
}

// PlanStore provides CRUD over plans.
type PlanStore interface {
	Create(ctx context.Context, p *model.Plan) error
	Get(ctx context.Context, id int64) (model.Plan, error)
	GetByPlanID(ctx context.Context, planID string) (model.Plan, error)
	// List returns plans ordered by display order. A nil active matches all.
	List(ctx context.Context, active *bool) ([]model.Plan, error)
	Update(ctx context.Context, p *model.Plan) error
	Delete(ctx context.Context, id int64) error
}

// TemplateStore provides CRUD over email templates.
type TemplateStore interface {
	Create(ctx context.Context, t *model.EmailTemplate) error
	Get(ctx context.Context, id int64) (model.EmailTemplate, error)
	GetByName(ctx context.Context, name string) (model.EmailTemplate, error)
	// List returns templates whose name or subject contains search, case-insensitively.
	List(ctx context.Context, search string) ([]model.EmailTemplate, error)
	Update(ctx context.Context, t *model.EmailTemplate) error
	Delete(ctx context.Context, id int64) error
}

// AdminStore provides access to admin users.
type AdminStore interface {
	Create(ctx context.Context, a *model.AdminUser) error
	Get(ctx context.Context, id int64) (model.AdminUser, error)
	GetByUsername(ctx context.Context, username string) (model.AdminUser, error)
	UpdatePassword(ctx context.Context, id int64, hash string) error
	TouchLogin(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)
	List(ctx context.Context) ([]model.AdminUser, error)
}
