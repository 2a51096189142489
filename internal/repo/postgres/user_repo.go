package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Wewst/coffe-pass/internal/domain/enums"
	"github.com/Wewst/coffe-pass/internal/domain/model"
)

var ErrUserNotFound = errors.New("user not found")

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) FindByID(ctx context.Context, userID int64) (model.User, error) {
	if r.pool == nil {
		return model.User{}, fmt.Errorf("postgres pool is nil")
	}
	if userID <= 0 {
		return model.User{}, fmt.Errorf("invalid user id")
	}

	var user model.User
	err := r.pool.QueryRow(ctx, `
SELECT id, telegram_id, first_name, username, language_code, role, created_at, updated_at
FROM users
WHERE id = $1
`, userID).Scan(
		&user.ID,
		&user.TelegramID,
		&user.FirstName,
		&user.Username,
		&user.LanguageCode,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, fmt.Errorf("find user by id: %w", err)
	}

	return user, nil
}

// UpsertByTelegramID finds or creates a user by telegram id. Display fields
// are merged: an empty incoming value never clobbers a stored one, since the
// Telegram payload may omit optional fields between logins. The second return
// value reports whether the row was created by this call.
func (r *UserRepo) UpsertByTelegramID(ctx context.Context, telegramID int64, firstName, username, languageCode string) (model.User, bool, error) {
	if r.pool == nil {
		return model.User{}, false, fmt.Errorf("postgres pool is nil")
	}
	if telegramID <= 0 {
		return model.User{}, false, fmt.Errorf("invalid telegram_id")
	}

	var (
		user    model.User
		created bool
	)
	err := r.pool.QueryRow(ctx, `
INSERT INTO users (telegram_id, first_name, username, language_code, role, created_at, updated_at)
VALUES ($1, $2, $3, $4, 'user', NOW(), NOW())
ON CONFLICT (telegram_id) DO UPDATE SET
	first_name = COALESCE(NULLIF(EXCLUDED.first_name, ''), users.first_name),
	username = COALESCE(NULLIF(EXCLUDED.username, ''), users.username),
	language_code = COALESCE(NULLIF(EXCLUDED.language_code, ''), users.language_code),
	updated_at = NOW()
RETURNING id, telegram_id, first_name, username, language_code, role, created_at, updated_at,
	(xmax = 0) AS inserted
`, telegramID, strings.TrimSpace(firstName), strings.TrimSpace(username), strings.TrimSpace(languageCode)).Scan(
		&user.ID,
		&user.TelegramID,
		&user.FirstName,
		&user.Username,
		&user.LanguageCode,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
		&created,
	)
	if err != nil {
		return model.User{}, false, fmt.Errorf("upsert user by telegram_id: %w", err)
	}
	if strings.TrimSpace(string(user.Role)) == "" {
		user.Role = enums.RoleUser
	}

	return user, created, nil
}
