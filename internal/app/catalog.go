package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/okian/prebook/internal/adapters/repository"
	"github.com/okian/prebook/internal/domain/model"
	"github.com/okian/prebook/internal/domain/types"
	"github.com/okian/prebook/pkg/logger"
)

// PlanPatch carries plan fields for create and partial update. Nil fields
// keep their current (or default) value.
type PlanPatch struct {
	PlanID             *string   `json:"planId"`
	Name               *string   `json:"name"`
	Speed              *string   `json:"speed"`
	ServiceType        *string   `json:"serviceType"`
	Description        *string   `json:"description"`
	OriginalPrice      *int64    `json:"originalPrice"`
	DiscountedPrice    *int64    `json:"discountedPrice"`
	DiscountPercentage *int64    `json:"discountPercentage"`
	DeviceCost         *int64    `json:"deviceCost"`
	OriginalDeviceCost *int64    `json:"originalDeviceCost"`
	Features           *[]string `json:"features"`
	IsPopular          *bool     `json:"isPopular"`
	IsActive           *bool     `json:"isActive"`
	DisplayOrder       *int64    `json:"displayOrder"`
}

func (p *PlanPatch) apply(pl *model.Plan) {
	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	setInt := func(dst *int64, src *int64) {
		if src != nil {
			*dst = *src
		}
	}
	setString(&pl.PlanID, p.PlanID)
	setString(&pl.Name, p.Name)
	setString(&pl.Speed, p.Speed)
	setString(&pl.ServiceType, p.ServiceType)
	setString(&pl.Description, p.Description)
	setInt(&pl.OriginalPrice, p.OriginalPrice)
	setInt(&pl.DiscountedPrice, p.DiscountedPrice)
	setInt(&pl.DiscountPercentage, p.DiscountPercentage)
	setInt(&pl.DeviceCost, p.DeviceCost)
	setInt(&pl.OriginalDeviceCost, p.OriginalDeviceCost)
	setInt(&pl.DisplayOrder, p.DisplayOrder)
	if p.Features != nil {
		pl.Features = append([]string{}, (*p.Features)...)
	}
	if p.IsPopular != nil {
		pl.IsPopular = *p.IsPopular
	}
	if p.IsActive != nil {
		pl.IsActive = *p.IsActive
	}
}

// ActivePlans returns the plans shown on the public site.
func (s *Service) ActivePlans(ctx context.Context) ([]model.Plan, error) {
	active := true
	return s.plans.List(ctx, &active)
}

var planSorters = map[string]func(a, b *model.Plan) bool{
	"displayOrder":       func(a, b *model.Plan) bool { return a.DisplayOrder < b.DisplayOrder },
	"name":               func(a, b *model.Plan) bool { return a.Name < b.Name },
	"planId":             func(a, b *model.Plan) bool { return a.PlanID < b.PlanID },
	"originalPrice":      func(a, b *model.Plan) bool { return a.OriginalPrice < b.OriginalPrice },
	"discountedPrice":    func(a, b *model.Plan) bool { return a.DiscountedPrice < b.DiscountedPrice },
	"discountPercentage": func(a, b *model.Plan) bool { return a.DiscountPercentage < b.DiscountPercentage },
	"createdAt":          func(a, b *model.Plan) bool { return a.CreatedAt.Before(b.CreatedAt) },
	"updatedAt":          func(a, b *model.Plan) bool { return a.UpdatedAt.Before(b.UpdatedAt) },
}

// ListPlans filters, sorts and pages the admin plan list.
func (s *Service) ListPlans(ctx context.Context, q types.PlanQuery) (types.Page[model.Plan], error) {
	all, err := s.plans.List(ctx, q.IsActive)
	if err != nil {
		return types.Page[model.Plan]{}, err
	}
	less, ok := planSorters[q.SortBy]
	if !ok {
		less = planSorters["displayOrder"]
	}
	desc := types.NormalizeSortOrder(q.SortOrder, types.SortAsc) == types.SortDesc
	sort.SliceStable(all, func(i, j int) bool {
		if desc {
			return less(&all[j], &all[i])
		}
		return less(&all[i], &all[j])
	})

	limit := types.NormalizeLimit(q.Limit, types.DefaultPlanLimit, types.MaxPageLimit)
	offset := types.NormalizeOffset(q.Offset)
	return types.Page[model.Plan]{
		Items:  types.Paginate(all, offset, limit),
		Total:  len(all),
		Limit:  limit,
		Offset: offset,
	}, nil
}

// CreatePlan stores a new plan. planId, name and speed are required.
func (s *Service) CreatePlan(ctx context.Context, p PlanPatch) (model.Plan, error) { //nolint:gocritic // hugeParam
	for _, v := range []*string{p.PlanID, p.Name, p.Speed} {
		if v == nil || strings.TrimSpace(*v) == "" {
			return model.Plan{}, invalid(CodeMissingFields, "Missing required fields")
		}
	}
	now := s.now().UTC().Truncate(time.Millisecond)
	pl := model.Plan{
		Features:  []string{},
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	p.apply(&pl)

	if err := s.plans.Create(ctx, &pl); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return pl, invalid(CodeDuplicatePlanID, "Plan ID already exists")
		}
		return pl, err
	}
	s.logger.Info(ctx, "plan created", logger.String("planId", pl.PlanID))
	return pl, nil
}

// GetPlan returns one plan.
func (s *Service) GetPlan(ctx context.Context, id int64) (model.Plan, error) {
	pl, err := s.plans.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return pl, notFound(CodePlanNotFound, "Plan not found")
	}
	return pl, err
}

// UpdatePlan applies a partial update.
func (s *Service) UpdatePlan(ctx context.Context, id int64, p PlanPatch) (model.Plan, error) { //nolint:gocritic // hugeParam
	pl, err := s.GetPlan(ctx, id)
	if err != nil {
		return pl, err
	}
	p.apply(&pl)
	if pl.PlanID == "" || pl.Name == "" || pl.Speed == "" {
		return pl, invalid(CodeMissingFields, "Missing required fields")
	}
	pl.UpdatedAt = s.now().UTC().Truncate(time.Millisecond)

	if err := s.plans.Update(ctx, &pl); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return pl, invalid(CodeDuplicatePlanID, "Plan ID already exists")
		case errors.Is(err, repository.ErrNotFound):
			return pl, notFound(CodePlanNotFound, "Plan not found")
		}
		return pl, err
	}
	return pl, nil
}

// DeletePlan deactivates a plan, or removes it when hard is set. It returns
// the plan as it was before a hard delete, or after deactivation.
func (s *Service) DeletePlan(ctx context.Context, id int64, hard bool) (model.Plan, error) {
	pl, err := s.GetPlan(ctx, id)
	if err != nil {
		return pl, err
	}
	if hard {
		if err := s.plans.Delete(ctx, id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return pl, notFound(CodePlanNotFound, "Plan not found")
			}
			return pl, err
		}
		s.logger.Info(ctx, "plan deleted", logger.String("planId", pl.PlanID))
		return pl, nil
	}

	inactive := false
	return s.UpdatePlan(ctx, id, PlanPatch{IsActive: &inactive})
}
