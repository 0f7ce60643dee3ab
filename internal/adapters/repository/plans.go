package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/okian/prebook/internal/domain/model"
)

const planColumns = `id, plan_id, name, speed, service_type, description, original_price, discounted_price,
	discount_percentage, device_cost, original_device_cost, features, is_popular, is_active,
	display_order, created_at, updated_at`

type planStore struct {
	db *DB
}

func scanPlan(r rowScanner) (model.Plan, error) {
	var (
		p                          model.Plan
		features, created, updated string
	)
	err := r.Scan(&p.ID, &p.PlanID, &p.Name, &p.Speed, &p.ServiceType, &p.Description, &p.OriginalPrice,
		&p.DiscountedPrice, &p.DiscountPercentage, &p.DeviceCost, &p.OriginalDeviceCost, &features,
		&p.IsPopular, &p.IsActive, &p.DisplayOrder, &created, &updated)
	if err != nil {
		return p, err
	}
	if p.Features, err = decodeList(features); err != nil {
		return p, fmt.Errorf("features: %w", err)
	}
	if p.CreatedAt, err = parseTime(created); err != nil {
		return p, err
	}
	p.UpdatedAt, err = parseTime(updated)
	return p, err
}

func (s *planStore) Create(ctx context.Context, p *model.Plan) error {
	defer observe("plans.create", time.Now())
	features, err := encodeList(p.Features)
	if err != nil {
		return fmt.Errorf("create plan: %w", err)
	}
	now := s.db.now().UTC().Truncate(time.Millisecond)
	p.CreatedAt, p.UpdatedAt = now, now
	q := s.db.rebind(`INSERT INTO plans (plan_id, name, speed, service_type, description, original_price,
	discounted_price, discount_percentage, device_cost, original_device_cost, features, is_popular,
	is_active, display_order, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	err = s.db.sql.QueryRowContext(ctx, q, p.PlanID, p.Name, p.Speed, p.ServiceType, p.Description,
		p.OriginalPrice, p.DiscountedPrice, p.DiscountPercentage, p.DeviceCost, p.OriginalDeviceCost,
		features, boolInt(p.IsPopular), boolInt(p.IsActive), p.DisplayOrder,
		formatTime(now), formatTime(now)).Scan(&p.ID)
	return translate("create plan", err)
}

func (s *planStore) Get(ctx context.Context, id int64) (model.Plan, error) {
	defer observe("plans.get", time.Now())
	p, err := scanPlan(s.db.sql.QueryRowContext(ctx, s.db.rebind("SELECT "+planColumns+" FROM plans WHERE id = ?"), id))
	return p, translate("get plan", err)
}

func (s *planStore) GetByPlanID(ctx context.Context, planID string) (model.Plan, error) {
	defer observe("plans.get_by_plan_id", time.Now())
	p, err := scanPlan(s.db.sql.QueryRowContext(ctx, s.db.rebind("SELECT "+planColumns+" FROM plans WHERE plan_id = ?"), planID))
	return p, translate("get plan by plan id", err)
}

func (s *planStore) List(ctx context.Context, active *bool) ([]model.Plan, error) {
	defer observe("plans.list", time.Now())
	q := "SELECT " + planColumns + " FROM plans"
	var args []any
	if active != nil {
		q += " WHERE is_active = ?"
		args = append(args, boolInt(*active))
	}
	q += " ORDER BY display_order, id"
	rows, err := s.db.sql.QueryContext(ctx, s.db.rebind(q), args...)
	if err != nil {
		return nil, translate("list plans", err)
	}
	defer rows.Close()
	out := []model.Plan{}
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, translate("list plans", err)
		}
		out = append(out, p)
	}
	return out, translate("list plans", rows.Err())
}

func (s *planStore) Update(ctx context.Context, p *model.Plan) error {
	defer observe("plans.update", time.Now())
	features, err := encodeList(p.Features)
	if err != nil {
		return fmt.Errorf("update plan: %w", err)
	}
	p.UpdatedAt = s.db.now().UTC().Truncate(time.Millisecond)
	q := s.db.rebind(`UPDATE plans SET plan_id = ?, name = ?, speed = ?, service_type = ?, description = ?,
	original_price = ?, discounted_price = ?, discount_percentage = ?, device_cost = ?,
	original_device_cost = ?, features = ?, is_popular = ?, is_active = ?, display_order = ?, updated_at = ?
WHERE id = ?`)
	res, err := s.db.sql.ExecContext(ctx, q, p.PlanID, p.Name, p.Speed, p.ServiceType, p.Description,
		p.OriginalPrice, p.DiscountedPrice, p.DiscountPercentage, p.DeviceCost, p.OriginalDeviceCost,
		features, boolInt(p.IsPopular), boolInt(p.IsActive), p.DisplayOrder, formatTime(p.UpdatedAt), p.ID)
	if err != nil {
		return translate("update plan", err)
	}
	return affected("update plan", res)
}

func (s *planStore) Delete(ctx context.Context, id int64) error {
	defer observe("plans.delete", time.Now())
	res, err := s.db.sql.ExecContext(ctx, s.db.rebind("DELETE FROM plans WHERE id = ?"), id)
	if err != nil {
		return translate("delete plan", err)
	}
	return affected("delete plan", res)
}

func encodeList(list []string) (string, error) {
	if list == nil {
		list = []string{}
	}
	b, err := json.Marshal(list)
	return string(b), err
}

func decodeList(s string) ([]string, error) {
	out := []string{}
	if s == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, err
	}
	return out, nil
}

