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

var ErrPartnerNotFound = errors.New("partner not found")

type PartnerRepo struct {
	pool *pgxpool.Pool
}

func NewPartnerRepo(pool *pgxpool.Pool) *PartnerRepo {
	return &PartnerRepo{pool: pool}
}

func (r *PartnerRepo) ListActive(ctx context.Context) ([]model.Partner, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, name, description, address, active
FROM partners
WHERE active
ORDER BY name
`)
	if err != nil {
		return nil, fmt.Errorf("list active partners: %w", err)
	}
	defer rows.Close()

	var partners []model.Partner
	for rows.Next() {
		var p model.Partner
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Address, &p.Active); err != nil {
			return nil, fmt.Errorf("scan partner row: %w", err)
		}
		partners = append(partners, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate partner rows: %w", err)
	}

	return partners, nil
}

func (r *PartnerRepo) FindActiveByName(ctx context.Context, name string) (model.Partner, error) {
	if r.pool == nil {
		return model.Partner{}, fmt.Errorf("postgres pool is nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Partner{}, fmt.Errorf("partner name is required")
	}

	var p model.Partner
	err := r.pool.QueryRow(ctx, `
SELECT id, name, description, address, active
FROM partners
WHERE name = $1 AND active
LIMIT 1
`, name).Scan(&p.ID, &p.Name, &p.Description, &p.Address, &p.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Partner{}, ErrPartnerNotFound
		}
		return model.Partner{}, fmt.Errorf("find active partner by name: %w", err)
	}

	return p, nil
}
