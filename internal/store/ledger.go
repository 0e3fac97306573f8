package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mikronet-dev/hotspot-backend/internal/models"
)

// ErrAlreadyProcessed is returned by Reserve when the reference is already in
// the ledger, whether processed or held in flight by another request.
var ErrAlreadyProcessed = errors.New("transaction reference already processed")

// ErrNotReserved is returned by Finalize when the reference has no in-flight
// reservation to promote.
var ErrNotReserved = errors.New("transaction reference not reserved")

// LedgerStore tracks which transaction references have been consumed. The
// reserve/finalize/release sequence is the replay guard: two concurrent
// requests with the same reference race on the primary key insert and exactly
// one wins.
type LedgerStore struct {
	db *sql.DB
}

// NewLedgerStore creates a LedgerStore using the provided sql.DB connection.
func NewLedgerStore(db *sql.DB) (*LedgerStore, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}
	return &LedgerStore{db: db}, nil
}

// Reserve atomically claims a reference before provisioning starts. Returns
// ErrAlreadyProcessed when any row for the reference already exists.
func (s *LedgerStore) Reserve(ctx context.Context, reference, planID string, amount int64) error {
	query := `
INSERT INTO payments (reference, status, plan_id, amount)
VALUES ($1, $2, $3, $4)
ON CONFLICT (reference) DO NOTHING
`

	result, err := s.db.ExecContext(ctx, query, reference, models.PaymentStatusInFlight, planID, amount)
	if err != nil {
		return fmt.Errorf("reserve payment %s: %w", reference, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reserve payment %s: rows affected: %w", reference, err)
	}
	if affected == 0 {
		return ErrAlreadyProcessed
	}

	return nil
}

// Finalize promotes an in-flight reservation to processed and records the
// issued voucher code. Called only after the router accepted the user.
func (s *LedgerStore) Finalize(ctx context.Context, reference, voucherCode string) error {
	query := `
UPDATE payments
SET status = $2,
    voucher_code = $3,
    processed_at = now()
WHERE reference = $1 AND status = $4
`

	result, err := s.db.ExecContext(ctx, query, reference, models.PaymentStatusProcessed, voucherCode, models.PaymentStatusInFlight)
	if err != nil {
		return fmt.Errorf("finalize payment %s: %w", reference, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("finalize payment %s: rows affected: %w", reference, err)
	}
	if affected == 0 {
		return ErrNotReserved
	}

	return nil
}

// Release drops an in-flight reservation so the reference can be redeemed
// again. Processed rows are never touched.
func (s *LedgerStore) Release(ctx context.Context, reference string) error {
	query := `DELETE FROM payments WHERE reference = $1 AND status = $2`

	if _, err := s.db.ExecContext(ctx, query, reference, models.PaymentStatusInFlight); err != nil {
		return fmt.Errorf("release payment %s: %w", reference, err)
	}

	return nil
}

// IsProcessed reports whether the reference already has any ledger entry,
// in flight or processed. Used as the cheap pre-check before the heavier
// validation steps; Reserve remains the authoritative gate.
func (s *LedgerStore) IsProcessed(ctx context.Context, reference string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM payments WHERE reference = $1)`

	var exists bool
	if err := s.db.QueryRowContext(ctx, query, reference).Scan(&exists); err != nil {
		return false, fmt.Errorf("check payment %s: %w", reference, err)
	}

	return exists, nil
}

// ListInFlight returns reservations that have not been finalized, oldest
// first. These are paid-but-unprovisioned payments awaiting retry or operator
// attention.
func (s *LedgerStore) ListInFlight(ctx context.Context, limit int) ([]models.PaymentRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
SELECT reference, status, plan_id, amount, voucher_code, created_at, processed_at
FROM payments
WHERE status = $1
ORDER BY created_at ASC
LIMIT $2
`

	rows, err := s.db.QueryContext(ctx, query, models.PaymentStatusInFlight, limit)
	if err != nil {
		return nil, fmt.Errorf("query in-flight payments: %w", err)
	}
	defer rows.Close()

	var records []models.PaymentRecord
	for rows.Next() {
		var rec models.PaymentRecord
		if err := rows.Scan(&rec.Reference, &rec.Status, &rec.PlanID, &rec.Amount, &rec.VoucherCode, &rec.CreatedAt, &rec.ProcessedAt); err != nil {
			return nil, fmt.Errorf("scan in-flight payment: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate in-flight payments: %w", err)
	}

	return records, nil
}
