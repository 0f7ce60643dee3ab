package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/okian/prebook/internal/domain/model"
)

const adminColumns = `id, username, password_hash, email, full_name, role, is_active, last_login_at, created_at, updated_at`

type adminStore struct {
	db *DB
}

func scanAdmin(r rowScanner) (model.AdminUser, error) {
	var (
		a                model.AdminUser
		lastLogin        sql.NullString
		created, updated string
	)
	err := r.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.Email, &a.FullName, &a.Role, &a.IsActive,
		&lastLogin, &created, &updated)
	if err != nil {
		return a, err
	}
	if a.LastLoginAt, err = parseNullTime(lastLogin); err != nil {
		return a, err
	}
	if a.CreatedAt, err = parseTime(created); err != nil {
		return a, err
	}
	a.UpdatedAt, err = parseTime(updated)
	return a, err
}

func (s *adminStore) Create(ctx context.Context, a *model.AdminUser) error {
	defer observe("admins.create", time.Now())
	if a.Role == "" {
		a.Role = model.RoleAdmin
	}
	now := s.db.now().UTC().Truncate(time.Millisecond)
	a.CreatedAt, a.UpdatedAt = now, now
	q := s.db.rebind(`INSERT INTO admin_users (username, password_hash, email, full_name, role, is_active,
	last_login_at, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	err := s.db.sql.QueryRowContext(ctx, q, a.Username, a.PasswordHash, a.Email, a.FullName, a.Role,
		boolInt(a.IsActive), nullTime(a.LastLoginAt), formatTime(now), formatTime(now)).Scan(&a.ID)
	return translate("create admin", err)
}

func (s *adminStore) Get(ctx context.Context, id int64) (model.AdminUser, error) {
	defer observe("admins.get", time.Now())
	a, err := scanAdmin(s.db.sql.QueryRowContext(ctx, s.db.rebind("SELECT "+adminColumns+" FROM admin_users WHERE id = ?"), id))
	return a, translate("get admin", err)
}

func (s *adminStore) GetByUsername(ctx context.Context, username string) (model.AdminUser, error) {
	defer observe("admins.get_by_username", time.Now())
	a, err := scanAdmin(s.db.sql.QueryRowContext(ctx,
		s.db.rebind("SELECT "+adminColumns+" FROM admin_users WHERE username = ?"), username))
	return a, translate("get admin by username", err)
}

func (s *adminStore) UpdatePassword(ctx context.Context, id int64, hash string) error {
	defer observe("admins.update_password", time.Now())
	res, err := s.db.sql.ExecContext(ctx,
		s.db.rebind("UPDATE admin_users SET password_hash = ?, updated_at = ? WHERE id = ?"), hash, s.db.stamp(), id)
	if err != nil {
		return translate("update admin password", err)
	}
	return affected("update admin password", res)
}

func (s *adminStore) TouchLogin(ctx context.Context, id int64) error {
	defer observe("admins.touch_login", time.Now())
	now := s.db.stamp()
	res, err := s.db.sql.ExecContext(ctx,
		s.db.rebind("UPDATE admin_users SET last_login_at = ?, updated_at = ? WHERE id = ?"), now, now, id)
	if err != nil {
		return translate("touch admin login", err)
	}
	return affected("touch admin login", res)
}

func (s *adminStore) Count(ctx context.Context) (int, error) {
	defer observe("admins.count", time.Now())
	var n int
	err := s.db.sql.QueryRowContext(ctx, "SELECT COUNT(*) FROM admin_users").Scan(&n)
	return n, translate("count admins", err)
}

func (s *adminStore) List(ctx context.Context) ([]model.AdminUser, error) {
	defer observe("admins.list", time.Now())
	rows, err := s.db.sql.QueryContext(ctx, "SELECT "+adminColumns+" FROM admin_users ORDER BY id")
	if err != nil {
		return nil, translate("list admins", err)
	}
	defer rows.Close()
	out := []model.AdminUser{}
	for rows.Next() {
		a, err := scanAdmin(rows)
		if err != nil {
			return nil, translate("list admins", err)
		}
		out = append(out, a)
	}
	return out, translate("list admins", rows.Err())
}
