package dto

// TelegramAuthRequest carries the raw initData string exactly as the WebApp
// hands it to the page.
type TelegramAuthRequest struct {
	InitData string `json:"initData"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type AuthUserResponse struct {
	ID         int64  `json:"id"`
	TelegramID int64  `json:"telegram_id"`
	FirstName  string `json:"first_name"`
	Username   string `json:"username,omitempty"`
}

type AuthResponse struct {
	Success      bool             `json:"success"`
	Token        string           `json:"token"`
	RefreshToken string           `json:"refresh_token"`
	ExpiresInSec int64            `json:"expires_in_sec"`
	User         AuthUserResponse `json:"user"`
}

type LogoutResponse struct {
	OK bool `json:"ok"`
}
