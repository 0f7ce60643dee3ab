package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/okian/prebook/internal/domain/model"
)

const orderColumns = `id, order_number, customer_first_name, customer_last_name, customer_email,
	customer_phone, customer_address, customer_city, customer_state, customer_pincode,
	service_type, plan_id, plan_name, plan_speed, plan_price, device_price, total_paid,
	status, payment_status, tracking_number, notes, created_at, updated_at, shipped_at, delivered_at`

type orderStore struct {
	db *DB
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(r rowScanner) (model.Order, error) {
	var (
		o                  model.Order
		state, track, note sql.NullString
		created, updated   string
		shipped, delivered sql.NullString
	)
	err := r.Scan(&o.ID, &o.OrderNumber, &o.CustomerFirstName, &o.CustomerLastName, &o.CustomerEmail,
		&o.CustomerPhone, &o.CustomerAddress, &o.CustomerCity, &state, &o.CustomerPincode,
		&o.ServiceType, &o.PlanID, &o.PlanName, &o.PlanSpeed, &o.PlanPrice, &o.DevicePrice, &o.TotalPaid,
		&o.Status, &o.PaymentStatus, &track, &note, &created, &updated, &shipped, &delivered)
	if err != nil {
		return o, err
	}
	o.CustomerState = stringPtr(state)
	o.TrackingNumber = stringPtr(track)
	o.Notes = stringPtr(note)
	if o.CreatedAt, err = parseTime(created); err != nil {
		return o, fmt.Errorf("created_at: %w", err)
	}
	if o.UpdatedAt, err = parseTime(updated); err != nil {
		return o, fmt.Errorf("updated_at: %w", err)
	}
	if o.ShippedAt, err = parseNullTime(shipped); err != nil {
		return o, fmt.Errorf("shipped_at: %w", err)
	}
	if o.DeliveredAt, err = parseNullTime(delivered); err != nil {
		return o, fmt.Errorf("delivered_at: %w", err)
	}
	return o, nil
}

func (s *orderStore) Create(ctx context.Context, o *model.Order) error {
	defer observe("orders.create", time.Now())
	now := s.db.now().UTC().Truncate(time.Millisecond)
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	if o.UpdatedAt.IsZero() {
		o.UpdatedAt = o.CreatedAt
	}
	if o.Status == "" {
		o.Status = model.StatusPending
	}
	if o.PaymentStatus == "" {
		o.PaymentStatus = model.PaymentPending
	}
	q := s.db.rebind(`INSERT INTO orders (order_number, customer_first_name, customer_last_name, customer_email,
	customer_phone, customer_address, customer_city, customer_state, customer_pincode,
	service_type, plan_id, plan_name, plan_speed, plan_price, device_price, total_paid,
	status, payment_status, tracking_number, notes, created_at, updated_at, shipped_at, delivered_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	err := s.db.sql.QueryRowContext(ctx, q,
		o.OrderNumber, o.CustomerFirstName, o.CustomerLastName, o.CustomerEmail,
		o.CustomerPhone, o.CustomerAddress, o.CustomerCity, nullString(o.CustomerState), o.CustomerPincode,
		o.ServiceType, o.PlanID, o.PlanName, o.PlanSpeed, o.PlanPrice, o.DevicePrice, o.TotalPaid,
		o.Status, o.PaymentStatus, nullString(o.TrackingNumber), nullString(o.Notes),
		formatTime(o.CreatedAt), formatTime(o.UpdatedAt), nullTime(o.ShippedAt), nullTime(o.DeliveredAt),
	).Scan(&o.ID)
	return translate("create order", err)
}

func (s *orderStore) Get(ctx context.Context, id int64) (model.Order, error) {
	defer observe("orders.get", time.Now())
	row := s.db.sql.QueryRowContext(ctx, s.db.rebind("SELECT "+orderColumns+" FROM orders WHERE id = ?"), id)
	o, err := scanOrder(row)
	return o, translate("get order", err)
}

func (s *orderStore) GetByNumber(ctx context.Context, orderNumber string) (model.Order, error) {
	defer observe("orders.get_by_number", time.Now())
	row := s.db.sql.QueryRowContext(ctx, s.db.rebind("SELECT "+orderColumns+" FROM orders WHERE order_number = ?"), orderNumber)
	o, err := scanOrder(row)
	return o, translate("get order by number", err)
}

func (s *orderStore) ListByEmail(ctx context.Context, email string) ([]model.Order, error) {
	return s.List(ctx, OrderFilter{Email: email})
}

func (s *orderStore) List(ctx context.Context, f OrderFilter) ([]model.Order, error) {
	defer observe("orders.list", time.Now())
	var (
		where []string
		args  []any
	)
	if f.Email != "" {
		where = append(where, "customer_email = ?")
		args = append(args, strings.ToLower(f.Email))
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	if f.ServiceType != "" {
		where = append(where, "service_type = ?")
		args = append(args, f.ServiceType)
	}
	q := "SELECT " + orderColumns + " FROM orders"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at DESC, id DESC"
	return s.query(ctx, "list orders", s.db.rebind(q), args...)
}

func (s *orderStore) All(ctx context.Context, start, end time.Time) ([]model.Order, error) {
	defer observe("orders.all", time.Now())
	var (
		where []string
		args  []any
	)
	if !start.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, formatTime(start))
	}
	if !end.IsZero() {
		where = append(where, "created_at <= ?")
		args = append(args, formatTime(end))
	}
	q := "SELECT " + orderColumns + " FROM orders"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY id"
	return s.query(ctx, "all orders", s.db.rebind(q), args...)
}

func (s *orderStore) Count(ctx context.Context) (int64, error) {
	defer observe("orders.count", time.Now())
	var n int64
	err := s.db.sql.QueryRowContext(ctx, "SELECT COUNT(*) FROM orders").Scan(&n)
	return n, translate("count orders", err)
}

func (s *orderStore) query(ctx context.Context, op, q string, args ...any) ([]model.Order, error) {
	rows, err := s.db.sql.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, translate(op, err)
	}
	defer rows.Close()
	out := []model.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, translate(op, err)
		}
		out = append(out, o)
	}
	return out, translate(op, rows.Err())
}

func (s *orderStore) Update(ctx context.Context, o *model.Order) error {
	defer observe("orders.update", time.Now())
	o.UpdatedAt = s.db.now().UTC().Truncate(time.Millisecond)
	q := s.db.rebind(`UPDATE orders SET status = ?, payment_status = ?, tracking_number = ?, notes = ?,
	updated_at = ?, shipped_at = ?, delivered_at = ? WHERE id = ?`)
	res, err := s.db.sql.ExecContext(ctx, q, o.Status, o.PaymentStatus, nullString(o.TrackingNumber),
		nullString(o.Notes), formatTime(o.UpdatedAt), nullTime(o.ShippedAt), nullTime(o.DeliveredAt), o.ID)
	if err != nil {
		return translate("update order", err)
	}
	return affected("update order", res)
}

func (s *orderStore) Delete(ctx context.Context, id int64) error {
	defer observe("orders.delete", time.Now())
	res, err := s.db.sql.ExecContext(ctx, s.db.rebind("DELETE FROM orders WHERE id = ?"), id)
	if err != nil {
		return translate("delete order", err)
	}
	return affected("delete order", res)
}

func affected(op string, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return translate(op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}
