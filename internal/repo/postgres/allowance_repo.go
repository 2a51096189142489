package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Wewst/coffe-pass/internal/domain/model"
)

var (
	ErrAllowanceEmpty    = errors.New("allowance period is empty")
	ErrAllowanceOverCap  = errors.New("allowance credit exceeds cap")
	ErrAllowanceNotFound = errors.New("allowance period not found")
)

type AllowanceRepo struct {
	pool *pgxpool.Pool
}

func NewAllowanceRepo(pool *pgxpool.Pool) *AllowanceRepo {
	return &AllowanceRepo{pool: pool}
}

// GetOrCreatePeriod returns the (user, month) ledger row, creating it at
// remaining = 0 when absent. Creation does not grant cups.
func (r *AllowanceRepo) GetOrCreatePeriod(ctx context.Context, userID int64, monthKey string) (model.AllowancePeriod, error) {
	if r.pool == nil {
		return model.AllowancePeriod{}, fmt.Errorf("postgres pool is nil")
	}
	if userID <= 0 || strings.TrimSpace(monthKey) == "" {
		return model.AllowancePeriod{}, fmt.Errorf("invalid allowance period payload")
	}

	var period model.AllowancePeriod
	err := r.pool.QueryRow(ctx, `
INSERT INTO allowance_periods (user_id, month_key, remaining, created_at, updated_at)
VALUES ($1, $2, 0, NOW(), NOW())
ON CONFLICT (user_id, month_key) DO UPDATE SET
	updated_at = allowance_periods.updated_at
RETURNING user_id, month_key, remaining, created_at, updated_at
`, userID, monthKey).Scan(
		&period.UserID,
		&period.MonthKey,
		&period.Remaining,
		&period.CreatedAt,
		&period.UpdatedAt,
	)
	if err != nil {
		return model.AllowancePeriod{}, fmt.Errorf("get or create allowance period: %w", err)
	}

	return period, nil
}

// CreditTx adds cups to the month row inside the caller's transaction so the
// ledger change commits or rolls back together with its payment record. The
// cap guard lives in the statement itself: a credit that would push remaining
// above cap updates no rows.
func (r *AllowanceRepo) CreditTx(ctx context.Context, tx pgx.Tx, userID int64, monthKey string, cups, cap int) (int, error) {
	if tx == nil {
		return 0, fmt.Errorf("transaction is required")
	}
	if userID <= 0 || strings.TrimSpace(monthKey) == "" || cups <= 0 || cap <= 0 {
		return 0, fmt.Errorf("invalid allowance credit payload")
	}

	var remaining int
	err := tx.QueryRow(ctx, `
INSERT INTO allowance_periods (user_id, month_key, remaining, created_at, updated_at)
VALUES ($1, $2, $3, NOW(), NOW())
ON CONFLICT (user_id, month_key) DO UPDATE SET
	remaining = allowance_periods.remaining + EXCLUDED.remaining,
	updated_at = NOW()
WHERE allowance_periods.remaining + EXCLUDED.remaining <= $4
RETURNING remaining
`, userID, monthKey, cups, cap).Scan(&remaining)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrAllowanceOverCap
		}
		return 0, fmt.Errorf("credit allowance period: %w", err)
	}

	return remaining, nil
}

// DebitOneTx consumes exactly one cup with a conditional update. Zero rows
// affected means the period was already empty; the caller gets an explicit
// error, never a negative balance. Concurrent debits serialize on the row.
func (r *AllowanceRepo) DebitOneTx(ctx context.Context, tx pgx.Tx, userID int64, monthKey string) (int, error) {
	if tx == nil {
		return 0, fmt.Errorf("transaction is required")
	}
	if userID <= 0 || strings.TrimSpace(monthKey) == "" {
		return 0, fmt.Errorf("invalid allowance debit payload")
	}

	var remaining int
	err := tx.QueryRow(ctx, `
UPDATE allowance_periods
SET remaining = remaining - 1, updated_at = NOW()
WHERE user_id = $1 AND month_key = $2 AND remaining > 0
RETURNING remaining
`, userID, monthKey).Scan(&remaining)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrAllowanceEmpty
		}
		return 0, fmt.Errorf("debit allowance period: %w", err)
	}

	return remaining, nil
}
