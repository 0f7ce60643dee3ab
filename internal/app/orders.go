package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/prebook/internal/adapters/repository"
	"github.com/okian/prebook/internal/domain/model"
	"github.com/okian/prebook/internal/domain/money"
	"github.com/okian/prebook/internal/domain/template"
	"github.com/okian/prebook/internal/domain/types"
	"github.com/okian/prebook/pkg/logger"
	"github.com/okian/prebook/pkg/metrics"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^[0-9]{10}$`)
)

const orderNumberAttempts = 3

// OrderInput is a pre-booking submission.
type OrderInput struct {
	CustomerFirstName string `json:"customerFirstName"`
	CustomerLastName  string `json:"customerLastName"`
	CustomerEmail     string `json:"customerEmail"`
	CustomerPhone     string `json:"customerPhone"`
	CustomerAddress   string `json:"customerAddress"`
	CustomerCity      string `json:"customerCity"`
	CustomerState     string `json:"customerState"`
	CustomerPincode   string `json:"customerPincode"`
	ServiceType       string `json:"serviceType"`
	PlanID            string `json:"planId"`
	PlanName          string `json:"planName"`
	PlanSpeed         string `json:"planSpeed"`
	PlanPrice         int64  `json:"planPrice"`
	DevicePrice       int64  `json:"devicePrice"`
	TotalPaid         int64  `json:"totalPaid"`
	Notes             string `json:"notes"`
}

// OrderUpdate carries the admin-editable order fields. Nil fields are left alone.
type OrderUpdate struct {
	Status         *string `json:"status"`
	PaymentStatus  *string `json:"paymentStatus"`
	Notes          *string `json:"notes"`
	TrackingNumber *string `json:"trackingNumber"`
}

// Validate checks in against the submission rules.
func (in *OrderInput) Validate() error {
	required := []string{
		in.CustomerFirstName, in.CustomerLastName, in.CustomerEmail, in.CustomerPhone,
		in.CustomerAddress, in.CustomerCity, in.CustomerPincode, in.ServiceType,
		in.PlanID, in.PlanName, in.PlanSpeed,
	}
	for _, v := range required {
		if strings.TrimSpace(v) == "" {
			return invalid(CodeMissingFields, "Missing required fields")
		}
	}
	if !emailPattern.MatchString(in.CustomerEmail) {
		return invalid(CodeInvalidEmail, "Invalid email format")
	}
	if !phonePattern.MatchString(in.CustomerPhone) {
		return invalid(CodeInvalidPhone, "Phone number must be 10 digits")
	}
	if !model.IsValidServiceType(in.ServiceType) {
		return invalid(CodeInvalidServiceType, `Service type must be either "residential" or "roam"`)
	}
	if in.ServiceType == model.ServiceResidential && strings.TrimSpace(in.CustomerState) == "" {
		return invalid(CodeStateRequired, "State is required for residential service")
	}
	return nil
}

func (s *Service) newOrderNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:6]
	return "SL-IN-" + strconv.FormatInt(s.now().UnixMilli(), 10) + "-" + suffix
}

// CreateOrder validates and stores a pre-booking, then queues the confirmation
// email. A non-empty idempotencyKey that was already used fails with
// DUPLICATE_REQUEST. The returned bool reports whether the email was queued.
func (s *Service) CreateOrder(ctx context.Context, in OrderInput, idempotencyKey string) (model.Order, bool, error) { //nolint:gocritic // hugeParam
	if err := in.Validate(); err != nil {
		var e *Error
		if errors.As(err, &e) {
			metrics.RecordOrderRejected(strings.ToLower(e.Code))
		}
		return model.Order{}, false, err
	}

	if idempotencyKey != "" && s.deduper.SeenAndRecord(ctx, idempotencyKey) {
		metrics.RecordOrderDuplicate()
		return model.Order{}, false, &Error{Kind: ErrConflict, Code: CodeDuplicateRequest, Message: "Duplicate request"}
	}

	o := model.Order{
		CustomerFirstName: strings.TrimSpace(in.CustomerFirstName),
		CustomerLastName:  strings.TrimSpace(in.CustomerLastName),
		CustomerEmail:     strings.ToLower(strings.TrimSpace(in.CustomerEmail)),
		CustomerPhone:     strings.TrimSpace(in.CustomerPhone),
		CustomerAddress:   strings.TrimSpace(in.CustomerAddress),
		CustomerCity:      strings.TrimSpace(in.CustomerCity),
		CustomerState:     model.StringPtr(in.CustomerState),
		CustomerPincode:   strings.TrimSpace(in.CustomerPincode),
		ServiceType:       in.ServiceType,
		PlanID:            strings.TrimSpace(in.PlanID),
		PlanName:          strings.TrimSpace(in.PlanName),
		PlanSpeed:         strings.TrimSpace(in.PlanSpeed),
		PlanPrice:         in.PlanPrice,
		DevicePrice:       in.DevicePrice,
		TotalPaid:         in.TotalPaid,
		Status:            model.StatusPending,
		PaymentStatus:     model.PaymentPending,
		Notes:             model.StringPtr(in.Notes),
	}

	var err error
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		o.ID = 0
		o.OrderNumber = s.newOrderNumber()
		now := s.now().UTC().Truncate(time.Millisecond)
		o.CreatedAt, o.UpdatedAt = now, now
		if err = s.orders.Create(ctx, &o); !errors.Is(err, repository.ErrDuplicate) {
			break
		}
	}
	if err != nil {
		if idempotencyKey != "" {
			s.deduper.Unrecord(ctx, idempotencyKey)
		}
		return model.Order{}, false, fmt.Errorf("create order: %w", err)
	}
	metrics.RecordOrderCreated()

	sent := s.SendEmail(ctx, o.CustomerEmail, template.OrderConfirmation, ConfirmationVars(&o, s.now()))
	s.logger.Info(ctx, "order created",
		logger.String("orderNumber", o.OrderNumber),
		logger.Bool("emailSent", sent))
	return o, sent, nil
}

// ConfirmationVars builds the order_confirmation template variables.
func ConfirmationVars(o *model.Order, now time.Time) map[string]string {
	return map[string]string{
		"customerName":    o.FullName(),
		"firstName":       o.CustomerFirstName,
		"orderNumber":     o.OrderNumber,
		"planName":        o.PlanName,
		"planSpeed":       o.PlanSpeed,
		"devicePrice":     money.FormatINR(o.DevicePrice),
		"planPrice":       money.FormatINRMonthly(o.PlanPrice),
		"totalPaid":       money.FormatINR(o.TotalPaid),
		"serviceType":     o.ServiceType,
		"shippingAddress": o.ShippingAddress(),
		"year":            strconv.Itoa(now.Year()),
	}
}

// ShippingVars builds the shipping_notification template variables.
func ShippingVars(o *model.Order, now time.Time) map[string]string {
	tracking := model.Deref(o.TrackingNumber)
	if tracking == "" {
		tracking = template.DefaultTrackingNumber
	}
	return map[string]string{
		"firstName":      o.CustomerFirstName,
		"orderNumber":    o.OrderNumber,
		"trackingNumber": tracking,
		"year":           strconv.Itoa(now.Year()),
	}
}

// LookupOrders finds orders by number or, failing that, by email.
func (s *Service) LookupOrders(ctx context.Context, email, orderNumber string) ([]model.Order, error) {
	email, orderNumber = strings.TrimSpace(email), strings.TrimSpace(orderNumber)
	switch {
	case orderNumber != "":
		o, err := s.orders.GetByNumber(ctx, orderNumber)
		if errors.Is(err, repository.ErrNotFound) {
			return []model.Order{}, nil
		}
		if err != nil {
			return nil, err
		}
		return []model.Order{o}, nil
	case email != "":
		return s.orders.ListByEmail(ctx, strings.ToLower(email))
	default:
		return nil, invalid(CodeMissingParams, "Email or order number is required")
	}
}

// GetOrder returns one order.
func (s *Service) GetOrder(ctx context.Context, id int64) (model.Order, error) {
	o, err := s.orders.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return o, notFound(CodeOrderNotFound, "Order not found")
	}
	return o, err
}

// ListOrders filters, sorts and pages the admin order list.
func (s *Service) ListOrders(ctx context.Context, q types.OrderQuery) (types.Page[model.Order], error) {
	all, err := s.orders.List(ctx, repository.OrderFilter{Status: q.Status, ServiceType: q.ServiceType})
	if err != nil {
		return types.Page[model.Order]{}, err
	}

	if search := strings.ToLower(strings.TrimSpace(q.Search)); search != "" {
		filtered := all[:0]
		for _, o := range all {
			if strings.Contains(strings.ToLower(o.OrderNumber), search) ||
				strings.Contains(strings.ToLower(o.CustomerEmail), search) ||
				strings.Contains(strings.ToLower(o.CustomerFirstName), search) ||
				strings.Contains(strings.ToLower(o.CustomerLastName), search) {
				filtered = append(filtered, o)
			}
		}
		all = filtered
	}

	less, ok := orderSorters[q.SortBy]
	if !ok {
		less = orderSorters["createdAt"]
	}
	desc := types.NormalizeSortOrder(q.SortOrder, types.SortDesc) == types.SortDesc
	sort.SliceStable(all, func(i, j int) bool {
		if desc {
			return less(&all[j], &all[i])
		}
		return less(&all[i], &all[j])
	})

	limit := types.NormalizeLimit(q.Limit, types.DefaultOrderLimit, types.MaxPageLimit)
	offset := types.NormalizeOffset(q.Offset)
	return types.Page[model.Order]{
		Items:  types.Paginate(all, offset, limit),
		Total:  len(all),
		Limit:  limit,
		Offset: offset,
	}, nil
}

var orderSorters = map[string]func(a, b *model.Order) bool{
	"createdAt":         func(a, b *model.Order) bool { return a.CreatedAt.Before(b.CreatedAt) },
	"updatedAt":         func(a, b *model.Order) bool { return a.UpdatedAt.Before(b.UpdatedAt) },
	"totalPaid":         func(a, b *model.Order) bool { return a.TotalPaid < b.TotalPaid },
	"planPrice":         func(a, b *model.Order) bool { return a.PlanPrice < b.PlanPrice },
	"orderNumber":       func(a, b *model.Order) bool { return a.OrderNumber < b.OrderNumber },
	"status":            func(a, b *model.Order) bool { return a.Status < b.Status },
	"customerFirstName": func(a, b *model.Order) bool { return a.CustomerFirstName < b.CustomerFirstName },
	"customerLastName":  func(a, b *model.Order) bool { return a.CustomerLastName < b.CustomerLastName },
	"customerEmail":     func(a, b *model.Order) bool { return a.CustomerEmail < b.CustomerEmail },
	"serviceType":       func(a, b *model.Order) bool { return a.ServiceType < b.ServiceType },
}

// UpdateOrder applies an admin edit. Moving into shipped stamps shippedAt and
// queues the shipping notification; moving into delivered stamps deliveredAt.
func (s *Service) UpdateOrder(ctx context.Context, id int64, u OrderUpdate) (model.Order, error) {
	if u.Status != nil && !model.IsValidStatus(*u.Status) {
		return model.Order{}, invalid(CodeInvalidStatus,
			"Invalid status. Must be one of: "+strings.Join(model.OrderStatuses, ", "))
	}
	if u.PaymentStatus != nil && !model.IsValidPaymentStatus(*u.PaymentStatus) {
		return model.Order{}, invalid(CodeInvalidPaymentStatus,
			"Invalid payment status. Must be one of: "+strings.Join(model.PaymentStatuses, ", "))
	}

	o, err := s.GetOrder(ctx, id)
	if err != nil {
		return o, err
	}

	now := s.now().UTC().Truncate(time.Millisecond)
	shipped := false
	if u.Status != nil && *u.Status != o.Status {
		switch *u.Status {
		case model.StatusShipped:
			o.ShippedAt = &now
			shipped = true
		case model.StatusDelivered:
			o.DeliveredAt = &now
		}
		o.Status = *u.Status
	}
	if u.PaymentStatus != nil {
		o.PaymentStatus = *u.PaymentStatus
	}
	if u.Notes != nil {
		o.Notes = model.StringPtr(*u.Notes)
	}
	if u.TrackingNumber != nil {
		o.TrackingNumber = model.StringPtr(*u.TrackingNumber)
	}

	if err := s.orders.Update(ctx, &o); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return o, notFound(CodeOrderNotFound, "Order not found")
		}
		return o, err
	}

	if shipped {
		sent := s.SendEmail(ctx, o.CustomerEmail, template.ShippingNotification, ShippingVars(&o, now))
		s.logger.Info(ctx, "order shipped",
			logger.String("orderNumber", o.OrderNumber),
			logger.Bool("emailSent", sent))
	}
	return o, nil
}

// DeleteOrder removes an order and returns what was deleted.
func (s *Service) DeleteOrder(ctx context.Context, id int64) (model.Order, error) {
	o, err := s.GetOrder(ctx, id)
	if err != nil {
		return o, err
	}
	if err := s.orders.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return o, notFound(CodeOrderNotFound, "Order not found")
		}
		return o, err
	}
	return o, nil
}

// ParseDateBound parses a stats range bound. Dates without a time cover the
// whole day: the start bound begins at midnight and the end bound ends just
// before the next midnight. Blank input gives the zero time.
func ParseDateBound(raw string, end bool) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, invalid(CodeInvalidDate, "Invalid date: "+raw)
	}
	if end {
		t = t.Add(24*time.Hour - time.Millisecond)
	}
	return t, nil
}

// OrderStats summarises orders created within [start, end].
func (s *Service) OrderStats(ctx context.Context, start, end time.Time) (types.OrderStats, error) {
	all, err := s.orders.All(ctx, start, end)
	if err != nil {
		return types.OrderStats{}, err
	}

	now := s.now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	st := types.OrderStats{
		OrdersByStatus: make(map[string]int, len(model.OrderStatuses)),
		RevenueByPlan:  []types.PlanRevenue{},
	}
	for _, status := range model.OrderStatuses {
		st.OrdersByStatus[status] = 0
	}

	var total, monthly int64
	byPlan := map[string]*types.PlanRevenue{}
	for i := range all {
		o := &all[i]
		total += o.TotalPaid
		if !o.CreatedAt.Before(monthStart) {
			monthly += o.TotalPaid
		}
		if _, ok := st.OrdersByStatus[o.Status]; ok {
			st.OrdersByStatus[o.Status]++
		}
		pr, ok := byPlan[o.PlanID]
		if !ok {
			pr = &types.PlanRevenue{PlanID: o.PlanID, PlanName: o.PlanName}
			byPlan[o.PlanID] = pr
		}
		pr.OrderCount++
		pr.Revenue += float64(o.TotalPaid)
	}

	st.TotalOrders = len(all)
	st.TotalRevenue = money.Round2(float64(total))
	st.MonthlyRevenue = money.Round2(float64(monthly))
	if st.TotalOrders > 0 {
		st.AverageOrderValue = money.Round2(float64(total) / float64(st.TotalOrders))
	}
	st.OrdersByPaymentStatus = types.PaymentBreakdown{
		Pending:   st.OrdersByStatus[model.StatusPending],
		Completed: st.OrdersByStatus[model.StatusConfirmed] + st.OrdersByStatus[model.StatusShipped] + st.OrdersByStatus[model.StatusDelivered],
		Failed:    st.OrdersByStatus[model.StatusCancelled],
	}
	for _, pr := range byPlan {
		pr.Revenue = money.Round2(pr.Revenue)
		st.RevenueByPlan = append(st.RevenueByPlan, *pr)
	}
	sort.Slice(st.RevenueByPlan, func(i, j int) bool { return st.RevenueByPlan[i].PlanID < st.RevenueByPlan[j].PlanID })
	return st, nil
}
