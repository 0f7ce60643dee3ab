package api

import (
	"net/http"

	service "github.com/okian/prebook/internal/app"
	"github.com/okian/prebook/internal/domain/auth"
	"github.com/okian/prebook/pkg/logger"
)

// AuthHandler serves admin login, session and password routes.
type AuthHandler struct {
	deps AuthService
	log  logger.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(deps AuthService, log logger.Logger) *AuthHandler {
	return &AuthHandler{deps: deps, log: log}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Success bool              `json:"success"`
	Token   string            `json:"token"`
	Admin   service.AdminView `json:"admin"`
}

type sessionResponse struct {
	Admin service.AdminView `json:"admin"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type successResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// HandleLogin handles POST /api/admin/auth/login.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	const op = "api.login"
	var req loginRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		badJSON(w)
		return
	}
	token, admin, err := h.deps.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		fail(w, r, h.log, op, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Success: true, Token: token, Admin: admin})
}

// HandleSession handles GET /api/admin/auth/session.
func (h *AuthHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	token, _ := auth.BearerToken(r.Header.Get("Authorization"))
	admin, err := h.deps.Session(r.Context(), token)
	if err != nil {
		fail(w, r, h.log, "api.session", err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Admin: admin})
}

// HandleChangePassword handles POST /api/admin/auth/change-password. It runs
// behind RequireToken, so an unknown admin id reaches ChangePassword.
func (h *AuthHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	const op = "api.change_password"
	claims, ok := auth.ClaimsFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, service.CodeUnauthorized, "Unauthorized")
		return
	}
	var req changePasswordRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		badJSON(w)
		return
	}
	if err := h.deps.ChangePassword(r.Context(), claims.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		fail(w, r, h.log, op, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true, Message: "Password changed successfully"})
}
