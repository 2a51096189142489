package auth

import (
	"errors"
	"time"

	"github.com/Wewst/coffe-pass/internal/domain/model"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrSessionNotFound = errors.New("session not found")
	ErrRefreshNotFound = errors.New("refresh token not found")
)

// TelegramUser is the identity payload embedded in WebApp initData.
type TelegramUser struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"first_name"`
	Username     string `json:"username"`
	LanguageCode string `json:"language_code"`
}

type SessionRecord struct {
	SID        string
	UserID     int64
	TelegramID int64
	Role       string
	ExpiresAt  time.Time
}

type AccessClaims struct {
	UserID     int64
	TelegramID int64
	SID        string
	Role       string
	ExpiresAt  time.Time
}

type AuthResult struct {
	AccessToken   string
	RefreshToken  string
	AccessExpires time.Time
	User          model.User
}
