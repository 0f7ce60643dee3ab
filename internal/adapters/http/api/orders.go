package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	service "github.com/okian/prebook/internal/app"
	"github.com/okian/prebook/internal/domain/model"
	"github.com/okian/prebook/internal/domain/types"
	"github.com/okian/prebook/pkg/logger"
)

// OrdersHandler serves public submission and lookup plus admin order routes.
type OrdersHandler struct {
	deps OrderService
	log  logger.Logger
}

// NewOrdersHandler creates a new orders handler.
func NewOrdersHandler(deps OrderService, log logger.Logger) *OrdersHandler {
	return &OrdersHandler{deps: deps, log: log}
}

type createOrderResponse struct {
	Success   bool        `json:"success"`
	Order     model.Order `json:"order"`
	EmailSent bool        `json:"emailSent"`
	Message   string      `json:"message"`
}

type ordersResponse struct {
	Orders []model.Order `json:"orders"`
}

type orderPageResponse struct {
	Orders []model.Order `json:"orders"`
	Total  int           `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

type deletedOrderResponse struct {
	Message      string      `json:"message"`
	DeletedOrder model.Order `json:"deletedOrder"`
}

// HandleCreate handles POST /api/orders.
func (h *OrdersHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_order"
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		badJSON(w)
		return
	}
	if err := validatePayload(orderSchema, raw); err != nil {
		if errors.Is(err, ErrBadSchema) {
			writeError(w, http.StatusBadRequest, service.CodeMissingFields, "Missing required fields")
			return
		}
		badJSON(w)
		return
	}
	var in service.OrderInput
	if err := json.Unmarshal(raw, &in); err != nil {
		writeError(w, http.StatusBadRequest, service.CodeMissingFields, "Missing required fields")
		return
	}

	o, sent, err := h.deps.CreateOrder(r.Context(), in, r.Header.Get("Idempotency-Key"))
	if err != nil {
		fail(w, r, h.log, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, createOrderResponse{
		Success:   true,
		Order:     o,
		EmailSent: sent,
		Message:   "Order created successfully",
	})
}

// HandleLookup handles GET /api/orders?email=|orderNumber=.
func (h *OrdersHandler) HandleLookup(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	orders, err := h.deps.LookupOrders(r.Context(), q.Get("email"), q.Get("orderNumber"))
	if err != nil {
		fail(w, r, h.log, "api.lookup_orders", err)
		return
	}
	writeJSON(w, http.StatusOK, ordersResponse{Orders: orders})
}

// HandleList handles GET /api/admin/orders.
func (h *OrdersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.deps.ListOrders(r.Context(), types.OrderQuery{
		Search:      q.Get("search"),
		Status:      q.Get("status"),
		ServiceType: q.Get("serviceType"),
		SortBy:      q.Get("sortBy"),
		SortOrder:   q.Get("sortOrder"),
		Limit:       queryInt(r, "limit"),
		Offset:      queryInt(r, "offset"),
	})
	if err != nil {
		fail(w, r, h.log, "api.list_orders", err)
		return
	}
	writeJSON(w, http.StatusOK, orderPageResponse{Orders: page.Items, Total: page.Total, Limit: page.Limit, Offset: page.Offset})
}

// HandleGet handles GET /api/admin/orders/{id}.
func (h *OrdersHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		invalidID(w)
		return
	}
	o, err := h.deps.GetOrder(r.Context(), id)
	if err != nil {
		fail(w, r, h.log, "api.get_order", err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// HandleUpdate handles PUT /api/admin/orders/{id}.
func (h *OrdersHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	const op = "api.update_order"
	id, ok := pathID(r)
	if !ok {
		invalidID(w)
		return
	}
	var u service.OrderUpdate
	if err := decodeJSON(w, r, op, &u); err != nil {
		badJSON(w)
		return
	}
	o, err := h.deps.UpdateOrder(r.Context(), id, u)
	if err != nil {
		fail(w, r, h.log, op, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// HandleDelete handles DELETE /api/admin/orders/{id}.
func (h *OrdersHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		invalidID(w)
		return
	}
	o, err := h.deps.DeleteOrder(r.Context(), id)
	if err != nil {
		fail(w, r, h.log, "api.delete_order", err)
		return
	}
	writeJSON(w, http.StatusOK, deletedOrderResponse{Message: "Order deleted successfully", DeletedOrder: o})
}

// HandleStats handles GET /api/admin/orders/stats.
func (h *OrdersHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	const op = "api.order_stats"
	q := r.URL.Query()
	start, err := service.ParseDateBound(q.Get("startDate"), false)
	if err != nil {
		fail(w, r, h.log, op, err)
		return
	}
	end, err := service.ParseDateBound(q.Get("endDate"), true)
	if err != nil {
		fail(w, r, h.log, op, err)
		return
	}
	st, err := h.deps.OrderStats(r.Context(), start, end)
	if err != nil {
		fail(w, r, h.log, op, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
