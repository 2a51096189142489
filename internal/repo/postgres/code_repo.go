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
	ErrCodeCollision = errors.New("redemption code already exists")
	ErrCodeNotFound  = errors.New("redemption code not found")
)

type CodeRepo struct {
	pool *pgxpool.Pool
}

func NewCodeRepo(pool *pgxpool.Pool) *CodeRepo {
	return &CodeRepo{pool: pool}
}

// InsertTx writes a fresh unused code inside the caller's transaction, which
// also carries the ledger debit. A hit on the global unique index surfaces as
// ErrCodeCollision so the issuer can retry with a new candidate.
func (r *CodeRepo) InsertTx(ctx context.Context, tx pgx.Tx, userID int64, code, partnerName string) (model.RedemptionCode, error) {
	if tx == nil {
		return model.RedemptionCode{}, fmt.Errorf("transaction is required")
	}
	code = strings.TrimSpace(code)
	partnerName = strings.TrimSpace(partnerName)
	if userID <= 0 || code == "" || partnerName == "" {
		return model.RedemptionCode{}, fmt.Errorf("invalid redemption code payload")
	}

	var rec model.RedemptionCode
	err := tx.QueryRow(ctx, `
INSERT INTO redemption_codes (user_id, code, partner_name, is_used, created_at)
VALUES ($1, $2, $3, FALSE, NOW())
RETURNING id, user_id, code, partner_name, is_used, used_at, created_at
`, userID, code, partnerName).Scan(
		&rec.ID,
		&rec.UserID,
		&rec.Code,
		&rec.PartnerName,
		&rec.IsUsed,
		&rec.UsedAt,
		&rec.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.RedemptionCode{}, ErrCodeCollision
		}
		return model.RedemptionCode{}, fmt.Errorf("insert redemption code: %w", err)
	}

	return rec, nil
}

// MarkUsed is terminal: a used code never becomes unused again.
func (r *CodeRepo) MarkUsed(ctx context.Context, code string) (model.RedemptionCode, error) {
	if r.pool == nil {
		return model.RedemptionCode{}, fmt.Errorf("postgres pool is nil")
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return model.RedemptionCode{}, fmt.Errorf("invalid redemption code")
	}

	var rec model.RedemptionCode
	err := r.pool.QueryRow(ctx, `
UPDATE redemption_codes
SET is_used = TRUE, used_at = COALESCE(used_at, NOW())
WHERE code = $1
RETURNING id, user_id, code, partner_name, is_used, used_at, created_at
`, code).Scan(
		&rec.ID,
		&rec.UserID,
		&rec.Code,
		&rec.PartnerName,
		&rec.IsUsed,
		&rec.UsedAt,
		&rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.RedemptionCode{}, ErrCodeNotFound
		}
		return model.RedemptionCode{}, fmt.Errorf("mark redemption code used: %w", err)
	}

	return rec, nil
}

func (r *CodeRepo) ListByUser(ctx context.Context, userID int64, limit int) ([]model.RedemptionCode, error) {
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
SELECT id, user_id, code, partner_name, is_used, used_at, created_at
FROM redemption_codes
WHERE user_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2
`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list redemption codes by user: %w", err)
	}
	defer rows.Close()

	var codes []model.RedemptionCode
	for rows.Next() {
		var rec model.RedemptionCode
		if err := rows.Scan(
			&rec.ID,
			&rec.UserID,
			&rec.Code,
			&rec.PartnerName,
			&rec.IsUsed,
			&rec.UsedAt,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan redemption code row: %w", err)
		}
		codes = append(codes, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate redemption code rows: %w", err)
	}

	return codes, nil
}
