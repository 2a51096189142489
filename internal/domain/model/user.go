package model

import (
	"time"

	"github.com/Wewst/coffe-pass/internal/domain/enums"
)

type User struct {
	ID           int64      `json:"id"`
	TelegramID   int64      `json:"telegram_id"`
	FirstName    string     `json:"first_name"`
	Username     string     `json:"username"`
	LanguageCode string     `json:"language_code"`
	Role         enums.Role `json:"role"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
