package billing

import (
	"time"
)

// BillingError is a typed billing error with a stable code
type BillingError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e BillingError) Error() string {
	return e.Message
}

// ErrBillingRequired gates trade creation for unpaid users when billing is on
var ErrBillingRequired = BillingError{
	Code:    "BILLING_REQUIRED",
	Message: "an active subscription is required to record trades",
}

// ErrOrderNotFound is returned for unknown or non-pending orders
var ErrOrderNotFound = BillingError{Code: "ORDER_NOT_FOUND", Message: "payment order not found"}

// ErrUnknownPlan is returned for plan names outside the catalog
var ErrUnknownPlan = BillingError{Code: "UNKNOWN_PLAN", Message: "unknown subscription plan"}

// Plan describes one purchasable subscription tier
type Plan struct {
	Name     string        `json:"name"`
	Price    float64       `json:"price"`
	Duration time.Duration `json:"-"`
	Days     int           `json:"days"`
}

// DefaultPlans is the built-in catalog; prices can be overridden via the
// plan_prices admin setting.
func DefaultPlans() map[string]Plan {
	return map[string]Plan{
		"monthly": {Name: "monthly", Price: 9.90, Days: 30, Duration: 30 * 24 * time.Hour},
		"yearly":  {Name: "yearly", Price: 99.00, Days: 365, Duration: 365 * 24 * time.Hour},
	}
}

// Status is the billing view returned to the client
type Status struct {
	BillingEnabled bool       `json:"billing_enabled"`
	IsPaid         bool       `json:"is_paid"`
	PaidUntil      *time.Time `json:"paid_until,omitempty"`
	Plan           *string    `json:"plan,omitempty"`
}

// CreateOrderRequest opens a pending payment order
type CreateOrderRequest struct {
	Plan string `json:"plan" binding:"required"`
}
