package model

import "time"

// Plan is a sellable connectivity plan. Prices are whole rupees per month.
type Plan struct {
	ID                 int64     `json:"id"`
	PlanID             string    `json:"planId"`
	Name               string    `json:"name"`
	Speed              string    `json:"speed"`
	ServiceType        string    `json:"serviceType"`
	Description        string    `json:"description"`
	OriginalPrice      int64     `json:"originalPrice"`
	DiscountedPrice    int64     `json:"discountedPrice"`
	DiscountPercentage int64     `json:"discountPercentage"`
	DeviceCost         int64     `json:"deviceCost"`
	OriginalDeviceCost int64     `json:"originalDeviceCost"`
	Features           []string  `json:"features"`
	IsPopular          bool      `json:"isPopular"`
	IsActive           bool      `json:"isActive"`
	DisplayOrder       int64     `json:"displayOrder"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// EmailTemplate is a named subject/body pair with {{token}} placeholders.
type EmailTemplate struct {
	ID              int64     `json:"id"`
	TemplateName    string    `json:"templateName"`
	TemplateSubject string    `json:"templateSubject"`
	TemplateBody    string    `json:"templateBody"`
	Variables       []string  `json:"variables"`
	IsActive        bool      `json:"isActive"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Default admin roles.
const (
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

// AdminUser is a dashboard operator. PasswordHash never leaves the process.
type AdminUser struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	Email        string     `json:"email"`
	FullName     string     `json:"fullName"`
	Role         string     `json:"role"`
	IsActive     bool       `json:"isActive"`
	LastLoginAt  *time.Time `json:"lastLoginAt"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// Email is a rendered message waiting for delivery.
type Email struct {
	ID           string    `json:"id"`
	To           string    `json:"to"`
	From         string    `json:"from"`
	Subject      string    `json:"subject"`
	Body         string    `json:"body"`
	TemplateName string    `json:"templateName"`
	CreatedAt    time.Time `json:"createdAt"`
}
