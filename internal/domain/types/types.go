// Package types contains read shapes and list queries shared by the service and API layers.
package types

import "strings"

// Paging bounds for admin lists.
const (
	MaxPageLimit         = 100
	DefaultOrderLimit    = 20
	DefaultPlanLimit     = 10
	DefaultTemplateLimit = 10
)

// Sort directions.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// OrderQuery filters the admin order list.
type OrderQuery struct {
	Search      string
	Status      string
	ServiceType string
	SortBy      string
	SortOrder   string
	Limit       int
	Offset      int
}

// PlanQuery filters the admin plan list. A nil IsActive means all plans.
type PlanQuery struct {
	IsActive  *bool
	SortBy    string
	SortOrder string
	Limit     int
	Offset    int
}

// TemplateQuery filters the admin template list.
type TemplateQuery struct {
	Search string
	Limit  int
	Offset int
}

// Page is one window of a filtered list.
type Page[T any] struct {
	Items  []T
	Total  int
	Limit  int
	Offset int
}

// NormalizeLimit applies the default for non-positive values and caps at max.
func NormalizeLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

// NormalizeOffset clamps negative offsets to zero.
func NormalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

// NormalizeSortOrder returns asc or desc, falling back to def.
func NormalizeSortOrder(order, def string) string {
	switch strings.ToLower(strings.TrimSpace(order)) {
	case SortAsc:
		return SortAsc
	case SortDesc:
		return SortDesc
	default:
		return def
	}
}

// Paginate returns the window [offset, offset+limit) of items.
func Paginate[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

// OrderStats is the admin dashboard summary.
type OrderStats struct {
	TotalOrders           int              `json:"totalOrders"`
	TotalRevenue          float64          `json:"totalRevenue"`
	MonthlyRevenue        float64          `json:"monthlyRevenue"`
	AverageOrderValue     float64          `json:"averageOrderValue"`
	OrdersByStatus        map[string]int   `json:"ordersByStatus"`
	OrdersByPaymentStatus PaymentBreakdown `json:"ordersByPaymentStatus"`
	RevenueByPlan         []PlanRevenue    `json:"revenueByPlan"`
}

// PaymentBreakdown groups orders by the payment state implied by their status.
type PaymentBreakdown struct {
	Pending   int `json:"pending"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// PlanRevenue aggregates orders per plan.
type PlanRevenue struct {
	PlanID     string  `json:"planId"`
	PlanName   string  `json:"planName"`
	OrderCount int     `json:"orderCount"`
	Revenue    float64 `json:"revenue"`
}

// LocationCheck is the geo gate verdict for a client.
type LocationCheck struct {
	Allowed     bool   `json:"allowed"`
	Country     string `json:"country"`
	CountryName string `json:"countryName,omitempty"`
	Message     string `json:"message"`
	IP          string `json:"ip"`
	Error       string `json:"error,omitempty"`
}

// Prebookings is the public counter snapshot.
type Prebookings struct {
	Count     int64   `json:"count"`
	Formatted string  `json:"formatted"`
	Target    int64   `json:"target"`
	Progress  float64 `json:"progress"`
}
