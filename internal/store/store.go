package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mikronet-dev/hotspot-backend/internal/models"
)

// ErrUnknownPlan is returned when a plan id has no catalog entry.
var ErrUnknownPlan = errors.New("unknown plan")

// Store provides database-backed accessors for application data.
type Store struct {
	db *sql.DB
}

// New creates a Store using the provided sql.DB connection.
func New(db *sql.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}
	return &Store{db: db}, nil
}

// ListPlans returns the full plan catalog, cheapest first.
func (s *Store) ListPlans(ctx context.Context) ([]models.Plan, error) {
	query := `
SELECT id, name, description, icon, duration, price, profile_name, limit_uptime
FROM plans
ORDER BY price ASC
`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query plans: %w", err)
	}
	defer rows.Close()

	var plans []models.Plan
	for rows.Next() {
		var p models.Plan
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Icon, &p.Duration, &p.Price, &p.ProfileName, &p.LimitUptime); err != nil {
			return nil, fmt.Errorf("scan plans: %w", err)
		}
		plans = append(plans, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate plans: %w", err)
	}

	return plans, nil
}

// GetPlan returns the plan with the given id, or ErrUnknownPlan.
func (s *Store) GetPlan(ctx context.Context, id string) (*models.Plan, error) {
	query := `
SELECT id, name, description, icon, duration, price, profile_name, limit_uptime
FROM plans
WHERE id = $1
`

	var p models.Plan
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.Description, &p.Icon, &p.Duration, &p.Price, &p.ProfileName, &p.LimitUptime,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUnknownPlan
		}
		return nil, fmt.Errorf("query plan %s: %w", id, err)
	}

	return &p, nil
}

// UpsertPlan inserts or updates a catalog entry. Used by dbtool seeding only;
// the service itself never writes plans.
func (s *Store) UpsertPlan(ctx context.Context, p models.Plan) error {
	query := `
INSERT INTO plans (id, name, description, icon, duration, price, profile_name, limit_uptime)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO UPDATE
SET name = EXCLUDED.name,
    description = EXCLUDED.description,
    icon = EXCLUDED.icon,
    duration = EXCLUDED.duration,
    price = EXCLUDED.price,
    profile_name = EXCLUDED.profile_name,
    limit_uptime = EXCLUDED.limit_uptime,
    updated_at = now()
`

	if _, err := s.db.ExecContext(ctx, query,
		p.ID, p.Name, p.Description, p.Icon, p.Duration, p.Price, p.ProfileName, p.LimitUptime,
	); err != nil {
		return fmt.Errorf("upsert plan %s: %w", p.ID, err)
	}

	return nil
}

// CreateVoucher records an issued voucher. Called only after the router has
// accepted the hotspot user.
func (s *Store) CreateVoucher(ctx context.Context, v *models.Voucher) error {
	query := `
INSERT INTO vouchers (code, plan_id, payment_reference)
VALUES ($1, $2, $3)
RETURNING created_at
`

	if err := s.db.QueryRowContext(ctx, query, v.Code, v.PlanID, v.PaymentReference).Scan(&v.CreatedAt); err != nil {
		return fmt.Errorf("insert voucher: %w", err)
	}

	return nil
}

// CreateRequestLog records one HTTP request for the audit trail.
func (s *Store) CreateRequestLog(ctx context.Context, method, path string, statusCode int, responseTimeMs, requestBytes, responseBytes *int) error {
	query := `
INSERT INTO request_log (method, path, status_code, response_time_ms, request_bytes, response_bytes)
VALUES ($1, $2, $3, $4, $5, $6)
`

	if _, err := s.db.ExecContext(ctx, query, method, path, statusCode, responseTimeMs, requestBytes, responseBytes); err != nil {
		return fmt.Errorf("insert request log: %w", err)
	}

	return nil
}
