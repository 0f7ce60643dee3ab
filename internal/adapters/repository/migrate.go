package repository

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const idColumn = "{{id}}"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS orders (
	id {{id}},
	order_number TEXT NOT NULL UNIQUE,
	customer_first_name TEXT NOT NULL,
	customer_last_name TEXT NOT NULL,
	customer_email TEXT NOT NULL,
	customer_phone TEXT NOT NULL,
	customer_address TEXT NOT NULL,
	customer_city TEXT NOT NULL,
	customer_state TEXT,
	customer_pincode TEXT NOT NULL,
	service_type TEXT NOT NULL,
	plan_id TEXT NOT NULL,
	plan_name TEXT NOT NULL,
	plan_speed TEXT NOT NULL,
	plan_price BIGINT NOT NULL DEFAULT 0,
	device_price BIGINT NOT NULL DEFAULT 0,
	total_paid BIGINT NOT NULL DEFAULT 0,
	status TEXT NOT NULL DEFAULT 'pending',
	payment_status TEXT NOT NULL DEFAULT 'pending',
	tracking_number TEXT,
	notes TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	shipped_at TEXT,
	delivered_at TEXT
)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_email ON orders (customer_email)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders (created_at)`,
	`CREATE TABLE IF NOT EXISTS plans (
	id {{id}},
	plan_id TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	speed TEXT NOT NULL,
	service_type TEXT NOT NULL DEFAULT 'residential',
	description TEXT NOT NULL DEFAULT '',
	original_price BIGINT NOT NULL DEFAULT 0,
	discounted_price BIGINT NOT NULL DEFAULT 0,
	discount_percentage BIGINT NOT NULL DEFAULT 0,
	device_cost BIGINT NOT NULL DEFAULT 0,
	original_device_cost BIGINT NOT NULL DEFAULT 0,
	features TEXT NOT NULL DEFAULT '[]',
	is_popular INTEGER NOT NULL DEFAULT 0,
	is_active INTEGER NOT NULL DEFAULT 1,
	display_order BIGINT NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS email_templates (
	id {{id}},
	template_name TEXT NOT NULL UNIQUE,
	template_subject TEXT NOT NULL,
	template_body TEXT NOT NULL,
	variables TEXT NOT NULL DEFAULT '[]',
	is_active INTEGER NOT NULL DEFAULT 1,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS admin_users (
	id {{id}},
	username TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	email TEXT NOT NULL UNIQUE,
	full_name TEXT NOT NULL DEFAULT '',
	role TEXT NOT NULL DEFAULT 'admin',
	is_active INTEGER NOT NULL DEFAULT 1,
	last_login_at TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`,
}

// Migrate creates missing tables and indexes.
func (d *DB) Migrate(ctx context.Context) error {
	defer observe("migrate", time.Now())
	id := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if d.driver == DriverPostgres {
		id = "BIGSERIAL PRIMARY KEY"
	}
	for _, stmt := range schema {
		if _, err := d.sql.ExecContext(ctx, strings.ReplaceAll(stmt, idColumn, id)); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
