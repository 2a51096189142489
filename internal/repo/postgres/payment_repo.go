package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Wewst/coffe-pass/internal/domain/enums"
	"github.com/Wewst/coffe-pass/internal/domain/model"
)

var (
	ErrPaymentNotFound     = errors.New("payment not found")
	ErrPaymentTerminal     = errors.New("payment already in terminal status")
	ErrExternalTxConflict  = errors.New("external txn already attached to another payment")
	uniqueViolationPGXCode = "23505"
)

type PaymentRepo struct {
	pool *pgxpool.Pool
}

func NewPaymentRepo(pool *pgxpool.Pool) *PaymentRepo {
	return &PaymentRepo{pool: pool}
}

const paymentColumns = `id, user_id, amount, cups, status, method, external_txn_id, created_at, updated_at`

// CreateCompletedTx appends an already-settled payment inside the caller's
// transaction. Used by the synchronous purchase flow where the ledger credit
// commits in the same transaction.
func (r *PaymentRepo) CreateCompletedTx(ctx context.Context, tx pgx.Tx, userID int64, amount, cups int, method enums.PaymentMethod, externalTxID string) (model.Payment, error) {
	if tx == nil {
		return model.Payment{}, fmt.Errorf("transaction is required")
	}
	if userID <= 0 || amount <= 0 || cups <= 0 {
		return model.Payment{}, fmt.Errorf("invalid payment create payload")
	}

	row := tx.QueryRow(ctx, `
INSERT INTO payments (user_id, amount, cups, status, method, external_txn_id, created_at, updated_at)
VALUES ($1, $2, $3, 'completed', $4, NULLIF($5, ''), NOW(), NOW())
RETURNING `+paymentColumns+`
`, userID, amount, cups, string(method), strings.TrimSpace(externalTxID))

	payment, err := scanPayment(row)
	if err != nil {
		if isUniqueViolation(err) {
			return model.Payment{}, ErrExternalTxConflict
		}
		return model.Payment{}, fmt.Errorf("create completed payment: %w", err)
	}

	return payment, nil
}

// CreatePending appends a pending payment for asynchronous providers. The
// ledger is credited later, on confirmation.
func (r *PaymentRepo) CreatePending(ctx context.Context, userID int64, amount, cups int, method enums.PaymentMethod) (model.Payment, error) {
	if r.pool == nil {
		return model.Payment{}, fmt.Errorf("postgres pool is nil")
	}
	if userID <= 0 || amount <= 0 || cups <= 0 {
		return model.Payment{}, fmt.Errorf("invalid payment create payload")
	}

	row := r.pool.QueryRow(ctx, `
INSERT INTO payments (user_id, amount, cups, status, method, created_at, updated_at)
VALUES ($1, $2, $3, 'pending', $4, NOW(), NOW())
RETURNING `+paymentColumns+`
`, userID, amount, cups, string(method))

	payment, err := scanPayment(row)
	if err != nil {
		return model.Payment{}, fmt.Errorf("create pending payment: %w", err)
	}

	return payment, nil
}

func (r *PaymentRepo) FindByID(ctx context.Context, paymentID int64) (model.Payment, error) {
	if r.pool == nil {
		return model.Payment{}, fmt.Errorf("postgres pool is nil")
	}
	if paymentID <= 0 {
		return model.Payment{}, fmt.Errorf("invalid payment id")
	}

	payment, err := scanPayment(r.pool.QueryRow(ctx, `
SELECT `+paymentColumns+`
FROM payments
WHERE id = $1
LIMIT 1
`, paymentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Payment{}, ErrPaymentNotFound
		}
		return model.Payment{}, fmt.Errorf("find payment by id: %w", err)
	}

	return payment, nil
}

func (r *PaymentRepo) FindByExternalTx(ctx context.Context, externalTxID string) (model.Payment, error) {
	if r.pool == nil {
		return model.Payment{}, fmt.Errorf("postgres pool is nil")
	}
	externalTxID = strings.TrimSpace(externalTxID)
	if externalTxID == "" {
		return model.Payment{}, fmt.Errorf("invalid external txn id")
	}

	payment, err := scanPayment(r.pool.QueryRow(ctx, `
SELECT `+paymentColumns+`
FROM payments
WHERE external_txn_id = $1
LIMIT 1
`, externalTxID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Payment{}, ErrPaymentNotFound
		}
		return model.Payment{}, fmt.Errorf("find payment by external txn: %w", err)
	}

	return payment, nil
}

// ConfirmTx flips pending -> completed inside the caller's transaction. The
// status guard in the WHERE clause makes redelivered webhooks a no-op: the
// second return value reports whether this call performed the transition.
func (r *PaymentRepo) ConfirmTx(ctx context.Context, tx pgx.Tx, paymentID int64, externalTxID string) (model.Payment, bool, error) {
	if tx == nil {
		return model.Payment{}, false, fmt.Errorf("transaction is required")
	}
	if paymentID <= 0 {
		return model.Payment{}, false, fmt.Errorf("invalid payment id")
	}
	externalTxID = strings.TrimSpace(externalTxID)
	if externalTxID == "" {
		return model.Payment{}, false, fmt.Errorf("invalid external txn id")
	}

	row := tx.QueryRow(ctx, `
UPDATE payments
SET status = 'completed', external_txn_id = $2, updated_at = NOW()
WHERE id = $1 AND status = 'pending'
RETURNING `+paymentColumns+`
`, paymentID, externalTxID)

	payment, err := scanPayment(row)
	if err == nil {
		return payment, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		if isUniqueViolation(err) {
			return model.Payment{}, false, ErrExternalTxConflict
		}
		return model.Payment{}, false, fmt.Errorf("confirm payment: %w", err)
	}

	existing, err := scanPayment(tx.QueryRow(ctx, `
SELECT `+paymentColumns+`
FROM payments
WHERE id = $1
LIMIT 1
`, paymentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Payment{}, false, ErrPaymentNotFound
		}
		return model.Payment{}, false, fmt.Errorf("load payment after confirm miss: %w", err)
	}

	return existing, false, nil
}

// MarkFailed flips pending -> failed. Completed payments stay completed.
func (r *PaymentRepo) MarkFailed(ctx context.Context, paymentID int64) (model.Payment, error) {
	if r.pool == nil {
		return model.Payment{}, fmt.Errorf("postgres pool is nil")
	}
	if paymentID <= 0 {
		return model.Payment{}, fmt.Errorf("invalid payment id")
	}

	row := r.pool.QueryRow(ctx, `
UPDATE payments
SET status = 'failed', updated_at = NOW()
WHERE id = $1 AND status = 'pending'
RETURNING `+paymentColumns+`
`, paymentID)

	payment, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Payment{}, ErrPaymentTerminal
		}
		return model.Payment{}, fmt.Errorf("mark payment failed: %w", err)
	}

	return payment, nil
}

func (r *PaymentRepo) ListByUser(ctx context.Context, userID int64, limit int) ([]model.Payment, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if userID <= 0 {
		return nil, fmt.Errorf("invalid user id")
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+paymentColumns+`
FROM payments
WHERE user_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2
`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list payments by user: %w", err)
	}
	defer rows.Close()

	var payments []model.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment row: %w", err)
		}
		payments = append(payments, payment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payment rows: %w", err)
	}

	return payments, nil
}

func (r *PaymentRepo) HasCompletedSince(ctx context.Context, userID int64, since time.Time) (bool, error) {
	if r.pool == nil {
		return false, fmt.Errorf("postgres pool is nil")
	}
	if userID <= 0 {
		return false, fmt.Errorf("invalid user id")
	}

	var exists bool
	err := r.pool.QueryRow(ctx, `
SELECT EXISTS (
	SELECT 1
	FROM payments
	WHERE user_id = $1 AND status = 'completed' AND created_at >= $2
)
`, userID, since.UTC()).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check completed payments: %w", err)
	}

	return exists, nil
}

// FailStalePending expires pending payments the provider never confirmed.
func (r *PaymentRepo) FailStalePending(ctx context.Context, cutoff time.Time) (int64, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE payments
SET status = 'failed', updated_at = NOW()
WHERE status = 'pending' AND created_at < $1
`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("fail stale pending payments: %w", err)
	}

	return tag.RowsAffected(), nil
}

func scanPayment(row pgx.Row) (model.Payment, error) {
	var payment model.Payment
	if err := row.Scan(
		&payment.ID,
		&payment.UserID,
		&payment.Amount,
		&payment.Cups,
		&payment.Status,
		&payment.Method,
		&payment.ExternalTxID,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	); err != nil {
		return model.Payment{}, err
	}
	return payment, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationPGXCode
}
