// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/netip"
	"strconv"
	"time"

	service "github.com/okian/prebook/internal/app"
	"github.com/okian/prebook/internal/domain/analytics"
	"github.com/okian/prebook/internal/domain/auth"
	"github.com/okian/prebook/internal/domain/model"
	"github.com/okian/prebook/internal/domain/types"
	"github.com/okian/prebook/pkg/logger"
	"github.com/okian/prebook/pkg/metrics"
)

// Codes produced by the HTTP layer itself.
const (
	CodeInvalidJSON      = "INVALID_JSON"
	CodeInvalidID        = "INVALID_ID"
	CodeInvalidVariables = "INVALID_VARIABLES"
	CodeRateLimited      = "RATE_LIMITED"
	CodeInternal         = "INTERNAL_ERROR"
)

const maxBodyBytes = 1 << 20

// OrderService covers public and admin order operations.
type OrderService interface {
	CreateOrder(ctx context.Context, in service.OrderInput, idempotencyKey string) (model.Order, bool, error)
	LookupOrders(ctx context.Context, email, orderNumber string) ([]model.Order, error)
	ListOrders(ctx context.Context, q types.OrderQuery) (types.Page[model.Order], error)
	GetOrder(ctx context.Context, id int64) (model.Order, error)
	UpdateOrder(ctx context.Context, id int64, u service.OrderUpdate) (model.Order, error)
	DeleteOrder(ctx context.Context, id int64) (model.Order, error)
	OrderStats(ctx context.Context, start, end time.Time) (types.OrderStats, error)
}

// PlanService covers plan catalogue operations.
type PlanService interface {
	ActivePlans(ctx context.Context) ([]model.Plan, error)
	ListPlans(ctx context.Context, q types.PlanQuery) (types.Page[model.Plan], error)
	CreatePlan(ctx context.Context, p service.PlanPatch) (model.Plan, error)
	GetPlan(ctx context.Context, id int64) (model.Plan, error)
	UpdatePlan(ctx context.Context, id int64, p service.PlanPatch) (model.Plan, error)
	DeletePlan(ctx context.Context, id int64, hard bool) (model.Plan, error)
}

// TemplateService covers email template administration.
type TemplateService interface {
	ListTemplates(ctx context.Context, q types.TemplateQuery) (types.Page[model.EmailTemplate], error)
	CreateTemplate(ctx context.Context, p service.TemplatePatch) (model.EmailTemplate, error)
	GetTemplate(ctx context.Context, id int64) (model.EmailTemplate, error)
	UpdateTemplate(ctx context.Context, id int64, p service.TemplatePatch) (model.EmailTemplate, error)
	DeleteTemplate(ctx context.Context, id int64) (model.EmailTemplate, error)
	PreviewTemplate(ctx context.Context, id int64, vars map[string]string) (service.Rendered, error)
}

// AuthService covers admin sessions.
type AuthService interface {
	Authorizer
	TokenVerifier
	Login(ctx context.Context, username, password string) (string, service.AdminView, error)
	Session(ctx context.Context, token string) (service.AdminView, error)
	ChangePassword(ctx context.Context, adminID int64, current, next string) error
}

// Authorizer resolves a bearer token for admin-only routes.
type Authorizer interface {
	Authorize(ctx context.Context, token string) (*auth.Claims, error)
}

// TokenVerifier checks a bearer token without loading its admin.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*auth.Claims, error)
}

// DashboardService serves the counter, geo gate and mock dashboards.
type DashboardService interface {
	Prebookings(ctx context.Context) (types.Prebookings, error)
	CheckLocation(ctx context.Context, ip string) types.LocationCheck
	Analytics(seed string) analytics.Dashboard
	LiveUsers(seed string) analytics.LiveUsers
}

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	OrderService
	PlanService
	TemplateService
	AuthService
	DashboardService
	StatsProvider
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	dashboardHandler *dashboardHandler
	ordersHandler    *OrdersHandler
	plansHandler     *PlansHandler
	templatesHandler *TemplatesHandler
	authHandler      *AuthHandler
	publicHandler    *PublicHandler

	authz   Authorizer
	tokens  TokenVerifier
	limiter *RateLimiter
	trusted []netip.Prefix
	log     logger.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithRateLimit limits order submissions per client IP. rps <= 0 disables it.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) { s.limiter = NewRateLimiter(rps, burst) }
}

// WithTrustedProxies lists the peers whose X-Forwarded-For header is used to
// key the order rate limit.
func WithTrustedProxies(prefixes []netip.Prefix) Option {
	return func(s *Server) { s.trusted = prefixes }
}

// WithLogger sets the handler logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{authz: deps, tokens: deps}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Named("api")
	}
	if s.limiter == nil {
		s.limiter = NewRateLimiter(0, 0)
	}
	s.limiter.trusted = s.trusted
	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(deps)
	s.dashboardHandler = newDashboardHandler()
	s.ordersHandler = NewOrdersHandler(deps, s.log)
	s.plansHandler = NewPlansHandler(deps, s.log)
	s.templatesHandler = NewTemplatesHandler(deps, s.log)
	s.authHandler = NewAuthHandler(deps, s.log)
	s.publicHandler = NewPublicHandler(deps, s.log)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	handle := func(pattern, endpoint string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, MetricsMiddleware(h, endpoint))
	}
	admin := func(pattern, endpoint string, h http.HandlerFunc) {
		handle(pattern, endpoint, RequireAdmin(s.authz, s.log, h))
	}
	bearer := func(pattern, endpoint string, h http.HandlerFunc) {
		handle(pattern, endpoint, RequireToken(s.tokens, s.log, h))
	}

	handle("GET /healthz", "healthz", s.healthHandler.HandleHealth)
	handle("GET /stats", "stats", s.statsHandler.HandleStats)
	mux.HandleFunc("GET /dashboard", s.dashboardHandler.HandleDashboard)

	o, p, t, a, pub := s.ordersHandler, s.plansHandler, s.templatesHandler, s.authHandler, s.publicHandler

	handle("POST /api/orders", "orders_create", s.limiter.Middleware(o.HandleCreate))
	handle("GET /api/orders", "orders_lookup", o.HandleLookup)
	handle("GET /api/plans", "plans_public", p.HandlePublicList)
	handle("GET /api/prebookings", "prebookings", pub.HandlePrebookings)
	handle("GET /api/check-location", "check_location", pub.HandleCheckLocation)

	handle("POST /api/admin/auth/login", "admin_login", a.HandleLogin)
	handle("GET /api/admin/auth/session", "admin_session", a.HandleSession)
	bearer("POST /api/admin/auth/change-password", "admin_change_password", a.HandleChangePassword)

	admin("GET /api/admin/orders", "admin_orders", o.HandleList)
	admin("GET /api/admin/orders/stats", "admin_order_stats", o.HandleStats)
	admin("GET /api/admin/orders/{id}", "admin_order", o.HandleGet)
	admin("PUT /api/admin/orders/{id}", "admin_order", o.HandleUpdate)
	admin("DELETE /api/admin/orders/{id}", "admin_order", o.HandleDelete)

	admin("GET /api/admin/plans", "admin_plans", p.HandleList)
	admin("POST /api/admin/plans", "admin_plans", p.HandleCreate)
	admin("GET /api/admin/plans/{id}", "admin_plan", p.HandleGet)
	admin("PUT /api/admin/plans/{id}", "admin_plan", p.HandleUpdate)
	admin("DELETE /api/admin/plans/{id}", "admin_plan", p.HandleDelete)

	admin("GET /api/admin/email-templates", "admin_templates", t.HandleList)
	admin("POST /api/admin/email-templates", "admin_templates", t.HandleCreate)
	admin("GET /api/admin/email-templates/{id}", "admin_template", t.HandleGet)
	admin("PUT /api/admin/email-templates/{id}", "admin_template", t.HandleUpdate)
	admin("DELETE /api/admin/email-templates/{id}", "admin_template", t.HandleDelete)
	admin("POST /api/admin/email-templates/{id}/preview", "admin_template_preview", t.HandlePreview)

	admin("GET /api/admin/analytics", "admin_analytics", pub.HandleAnalytics)
	admin("GET /api/admin/live-users", "admin_live_users", pub.HandleLiveUsers)
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

// statusOf maps service error kinds to HTTP statuses.
func statusOf(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err. Business errors keep their code; anything else is a 500.
func fail(w http.ResponseWriter, r *http.Request, log logger.Logger, op string, err error) {
	var se *service.Error
	if errors.As(err, &se) {
		writeError(w, statusOf(se), se.Code, se.Message)
		return
	}
	metrics.RecordErrorByComponent("api", "internal")
	log.Error(r.Context(), "request failed", logger.String("op", op), logger.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternal, "Internal server error: "+err.Error())
}

// decodeJSON reads a size-limited JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, op string, v any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return WrapKind(op, ErrBadRequest, err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return WrapKind(op, ErrBadRequest, err)
	}
	return nil
}

func badJSON(w http.ResponseWriter) {
	writeError(w, http.StatusBadRequest, CodeInvalidJSON, "Invalid JSON body")
}

// pathID parses the {id} path segment as a positive integer.
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}

func invalidID(w http.ResponseWriter) {
	writeError(w, http.StatusBadRequest, CodeInvalidID, "Valid ID is required")
}

func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return n
}
