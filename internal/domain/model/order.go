// Package model contains domain models passed between layers.
package model

import (
	"strings"
	"time"
)

// Order statuses.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusShipped   = "shipped"
	StatusDelivered = "delivered"
	StatusCancelled = "cancelled"
)

// Payment statuses.
const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
	PaymentRefunded  = "refunded"
)

// Service types.
const (
	ServiceResidential = "residential"
	ServiceRoam        = "roam"
)

// OrderStatuses lists valid order statuses in lifecycle order.
var OrderStatuses = []string{StatusPending, StatusConfirmed, StatusShipped, StatusDelivered, StatusCancelled}

// PaymentStatuses lists valid payment statuses.
var PaymentStatuses = []string{PaymentPending, PaymentCompleted, PaymentFailed, PaymentRefunded}

// ServiceTypes lists valid service types.
var ServiceTypes = []string{ServiceResidential, ServiceRoam}

// Order is a customer pre-booking. Money fields are whole rupees.
type Order struct {
	ID                int64      `json:"id"`
	OrderNumber       string     `json:"orderNumber"`
	CustomerFirstName string     `json:"customerFirstName"`
	CustomerLastName  string     `json:"customerLastName"`
	CustomerEmail     string     `json:"customerEmail"`
	CustomerPhone     string     `json:"customerPhone"`
	CustomerAddress   string     `json:"customerAddress"`
	CustomerCity      string     `json:"customerCity"`
	CustomerState     *string    `json:"customerState"`
	CustomerPincode   string     `json:"customerPincode"`
	ServiceType       string     `json:"serviceType"`
	PlanID            string     `json:"planId"`
	PlanName          string     `json:"planName"`
	PlanSpeed         string     `json:"planSpeed"`
	PlanPrice         int64      `json:"planPrice"`
	DevicePrice       int64      `json:"devicePrice"`
	TotalPaid         int64      `json:"totalPaid"`
	Status            string     `json:"status"`
	PaymentStatus     string     `json:"paymentStatus"`
	TrackingNumber    *string    `json:"trackingNumber"`
	Notes             *string    `json:"notes"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
	ShippedAt         *time.Time `json:"shippedAt"`
	DeliveredAt       *time.Time `json:"deliveredAt"`
}

// FullName joins first and last name.
func (o *Order) FullName() string {
	return strings.TrimSpace(o.CustomerFirstName + " " + o.CustomerLastName)
}

// ShippingAddress renders "address, city, state, pincode", skipping a missing state.
func (o *Order) ShippingAddress() string {
	parts := []string{o.CustomerAddress, o.CustomerCity}
	if o.CustomerState != nil && *o.CustomerState != "" {
		parts = append(parts, *o.CustomerState)
	}
	parts = append(parts, o.CustomerPincode)
	return strings.Join(parts, ", ")
}

// IsValidStatus reports whether s is a known order status.
func IsValidStatus(s string) bool { return contains(OrderStatuses, s) }

// IsValidPaymentStatus reports whether s is a known payment status.
func IsValidPaymentStatus(s string) bool { return contains(PaymentStatuses, s) }

// IsValidServiceType reports whether s is a known service type.
func IsValidServiceType(s string) bool { return contains(ServiceTypes, s) }

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// StringPtr returns nil for blank strings, a pointer to the trimmed value otherwise.
func StringPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
