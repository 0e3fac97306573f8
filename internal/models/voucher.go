package models

import "time"

// Voucher is an issued hotspot credential. The code doubles as the login name
// and password on the router. Rows are immutable once written.
type Voucher struct {
	Code             string    `json:"code"`
	PlanID           string    `json:"plan_id"`
	PaymentReference string    `json:"payment_reference"`
	CreatedAt        time.Time `json:"created_at"`
}
