package models

import "time"

// PaymentStatus represents the lifecycle state of a payment reference in the
// ledger.
type PaymentStatus string

const (
	// PaymentStatusInFlight marks a reference that passed validation and is
	// reserved while the voucher is being provisioned.
	PaymentStatusInFlight PaymentStatus = "in_flight"
	// PaymentStatusProcessed marks a reference whose voucher was committed to
	// the router. A processed reference can never be redeemed again.
	PaymentStatusProcessed PaymentStatus = "processed"
)

// PaymentRecord is a row in the payments ledger, keyed by the gateway's
// transaction reference.
type PaymentRecord struct {
	Reference   string        `json:"reference"`
	Status      PaymentStatus `json:"status"`
	PlanID      string        `json:"plan_id"`
	Amount      int64         `json:"amount"`
	VoucherCode *string       `json:"voucher_code,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	ProcessedAt *time.Time    `json:"processed_at,omitempty"`
}

// VerificationResult is the gateway's authoritative answer for one
// transaction reference. It is transient and never persisted.
type VerificationResult struct {
	Succeeded       bool
	PaidAmount      int64
	PlanID          string
	CustomerContact string
}
