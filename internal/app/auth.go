package service

import (
	"context"
	"errors"
	"strings"

	"github.com/okian/prebook/internal/adapters/repository"
	"github.com/okian/prebook/internal/domain/auth"
	"github.com/okian/prebook/internal/domain/model"
	"github.com/okian/prebook/pkg/logger"
	"github.com/okian/prebook/pkg/metrics"
)

// AdminView is the public shape of an admin user.
type AdminView struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Role     string `json:"role"`
}

func viewOf(a *model.AdminUser) AdminView {
	return AdminView{ID: a.ID, Username: a.Username, Email: a.Email, FullName: a.FullName, Role: a.Role}
}

// Login checks credentials and issues a bearer token.
func (s *Service) Login(ctx context.Context, username, password string) (string, AdminView, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", AdminView{}, invalid(CodeMissingUsername, "Username is required")
	}
	if password == "" {
		return "", AdminView{}, invalid(CodeMissingPassword, "Password is required")
	}

	badCredentials := unauthorized(CodeInvalidCredentials, "Invalid credentials")
	a, err := s.admins.GetByUsername(ctx, username)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		metrics.RecordLoginAttempt("unknown_user")
		return "", AdminView{}, badCredentials
	case err != nil:
		return "", AdminView{}, err
	case !a.IsActive:
		metrics.RecordLoginAttempt("inactive")
		return "", AdminView{}, badCredentials
	}
	if err := auth.CheckPassword(a.PasswordHash, password); err != nil {
		metrics.RecordLoginAttempt("bad_password")
		s.logger.Warn(ctx, "admin login failed", logger.String("username", username))
		return "", AdminView{}, badCredentials
	}

	token, err := s.tokens.Issue(a.ID, a.Username, a.Role)
	if err != nil {
		return "", AdminView{}, err
	}
	if err := s.admins.TouchLogin(ctx, a.ID); err != nil {
		s.logger.Warn(ctx, "failed to record login time", logger.Int64("adminId", a.ID), logger.Error(err))
	}
	metrics.RecordLoginAttempt("success")
	s.logger.Info(ctx, "admin logged in", logger.String("username", a.Username))
	return token, viewOf(&a), nil
}

// Session resolves a bearer token to its admin.
func (s *Service) Session(ctx context.Context, token string) (AdminView, error) {
	if token == "" {
		return AdminView{}, unauthorized(CodeNoToken, "No token provided")
	}
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return AdminView{}, unauthorized(CodeInvalidToken, "Invalid or expired token")
	}
	a, err := s.admins.Get(ctx, claims.UserID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && !a.IsActive) {
		return AdminView{}, unauthorized(CodeUserNotFound, "User not found or inactive")
	}
	if err != nil {
		return AdminView{}, err
	}
	return viewOf(&a), nil
}

// VerifyToken checks the bearer token signature and expiry only. The admin it
// names may no longer exist.
func (s *Service) VerifyToken(_ context.Context, token string) (*auth.Claims, error) {
	deny := unauthorized(CodeUnauthorized, "Unauthorized")
	if token == "" {
		return nil, deny
	}
	claims, err := s.tokens.Verify(token)
	if err != nil || claims.UserID == 0 {
		return nil, deny
	}
	return claims, nil
}

// Authorize verifies a bearer token for an admin-only route.
func (s *Service) Authorize(ctx context.Context, token string) (*auth.Claims, error) {
	deny := unauthorized(CodeUnauthorized, "Unauthorized")
	claims, err := s.VerifyToken(ctx, token)
	if err != nil {
		return nil, err
	}
	a, err := s.admins.Get(ctx, claims.UserID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && !a.IsActive) {
		return nil, deny
	}
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// ChangePassword replaces the admin's password after checking the current one.
func (s *Service) ChangePassword(ctx context.Context, adminID int64, current, next string) error {
	if current == "" {
		return invalid(CodeMissingCurrentPassword, "Current password is required")
	}
	if next == "" {
		return invalid(CodeMissingNewPassword, "New password is required")
	}
	if err := auth.ValidateNewPassword(next); err != nil {
		return invalid(CodePasswordTooShort, "New password must be at least 6 characters long")
	}

	a, err := s.admins.Get(ctx, adminID)
	if errors.Is(err, repository.ErrNotFound) {
		return notFound(CodeUserNotFound, "User not found")
	}
	if err != nil {
		return err
	}
	if err := auth.CheckPassword(a.PasswordHash, current); err != nil {
		return unauthorized(CodeIncorrectPassword, "Current password is incorrect")
	}

	hash, err := auth.HashPassword(next)
	if err != nil {
		return err
	}
	if err := s.admins.UpdatePassword(ctx, a.ID, hash); err != nil {
		return err
	}
	s.logger.Info(ctx, "admin password changed", logger.String("username", a.Username))
	return nil
}
