// internal/models/payment.go
package models

import "time"

// PaymentStatus defines the possible statuses for a payment.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// Payment records one checkout attempt for a task. It is created as
// pending when the checkout session is created and moves exactly once to
// completed or failed, driven only by a verified provider webhook.
type Payment struct {
	ID                string        `json:"id"`
	UserID            int64         `json:"user_id"`
	TaskID            string        `json:"task_id"`
	Amount            int64         `json:"amount"` // minor currency units
	Status            PaymentStatus `json:"status"`
	ProviderSessionID *string       `json:"provider_session_id,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
}

// CheckoutResponse is returned by POST /payments/checkout.
type CheckoutResponse struct {
	SessionID   string `json:"session_id"`
	RedirectURL string `json:"redirect_url"`
}
