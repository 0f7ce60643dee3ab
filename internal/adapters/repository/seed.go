package repository

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/okian/prebook/internal/domain/auth"
	"github.com/okian/prebook/internal/domain/model"
	"github.com/okian/prebook/internal/domain/template"
	"github.com/okian/prebook/pkg/logger"
)

//go:embed seeds.yaml
var seedsYAML []byte

type seedAdmin struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Email    string `yaml:"email"`
	FullName string `yaml:"full_name"`
	Role     string `yaml:"role"`
}

type seedPlan struct {
	PlanID             string   `yaml:"plan_id"`
	Name               string   `yaml:"name"`
	Speed              string   `yaml:"speed"`
	ServiceType        string   `yaml:"service_type"`
	Description        string   `yaml:"description"`
	OriginalPrice      int64    `yaml:"original_price"`
	DiscountedPrice    int64    `yaml:"discounted_price"`
	DiscountPercentage int64    `yaml:"discount_percentage"`
	DeviceCost         int64    `yaml:"device_cost"`
	OriginalDeviceCost int64    `yaml:"original_device_cost"`
	DisplayOrder       int64    `yaml:"display_order"`
	Popular            bool     `yaml:"popular"`
	Features           []string `yaml:"features"`
}

// SeedResult counts rows inserted by Seed.
type SeedResult struct {
	Admins    int
	Plans     int
	Templates int
}

// Seed inserts the default admin, plans and email templates. Rows whose
// username, plan id or template name already exist are left alone.
func (d *DB) Seed(ctx context.Context) (SeedResult, error) {
	var (
		res SeedResult
		doc struct {
			Admins []seedAdmin `yaml:"admins"`
			Plans  []seedPlan  `yaml:"plans"`
		}
	)
	if err := yaml.Unmarshal(seedsYAML, &doc); err != nil {
		return res, fmt.Errorf("parse seeds: %w", err)
	}
	log := logger.Get().Named("seed")

	admins := d.Admins()
	for _, s := range doc.Admins {
		if _, err := admins.GetByUsername(ctx, s.Username); err == nil {
			continue
		} else if !errors.Is(err, ErrNotFound) {
			return res, err
		}
		hash, err := auth.HashPassword(s.Password)
		if err != nil {
			return res, fmt.Errorf("seed admin %s: %w", s.Username, err)
		}
		a := model.AdminUser{
			Username:     s.Username,
			PasswordHash: hash,
			Email:        s.Email,
			FullName:     s.FullName,
			Role:         s.Role,
			IsActive:     true,
		}
		if err := admins.Create(ctx, &a); err != nil {
			return res, err
		}
		res.Admins++
	}

	plans := d.Plans()
	for _, s := range doc.Plans {
		if _, err := plans.GetByPlanID(ctx, s.PlanID); err == nil {
			continue
		} else if !errors.Is(err, ErrNotFound) {
			return res, err
		}
		p := model.Plan{
			PlanID:             s.PlanID,
			Name:               s.Name,
			Speed:              s.Speed,
			ServiceType:        s.ServiceType,
			Description:        s.Description,
			OriginalPrice:      s.OriginalPrice,
			DiscountedPrice:    s.DiscountedPrice,
			DiscountPercentage: s.DiscountPercentage,
			DeviceCost:         s.DeviceCost,
			OriginalDeviceCost: s.OriginalDeviceCost,
			Features:           s.Features,
			IsPopular:          s.Popular,
			IsActive:           true,
			DisplayOrder:       s.DisplayOrder,
		}
		if err := plans.Create(ctx, &p); err != nil {
			return res, err
		}
		res.Plans++
	}

	n, err := EnsureTemplates(ctx, d.Templates())
	if err != nil {
		return res, err
	}
	res.Templates = n

	log.Info(ctx, "seed complete",
		logger.Int("admins", res.Admins),
		logger.Int("plans", res.Plans),
		logger.Int("templates", res.Templates))
	return res, nil
}

// EnsureTemplates creates any built-in email template missing from store.
func EnsureTemplates(ctx context.Context, store TemplateStore) (int, error) {
	defs, err := template.Defaults()
	if err != nil {
		return 0, err
	}
	created := 0
	for _, def := range defs {
		if _, err := store.GetByName(ctx, def.Name); err == nil {
			continue
		} else if !errors.Is(err, ErrNotFound) {
			return created, err
		}
		t := model.EmailTemplate{
			TemplateName:    def.Name,
			TemplateSubject: def.Subject,
			TemplateBody:    def.Body,
			Variables:       def.Variables,
			IsActive:        true,
		}
		if err := store.Create(ctx, &t); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}
