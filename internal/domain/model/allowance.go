package model

import "time"

// AllowancePeriod is the (user, calendar month) cup ledger row. Cups never
// carry over between months; each month gets its own row starting at zero.
type AllowancePeriod struct {
	UserID    int64     `json:"user_id"`
	MonthKey  string    `json:"month"`
	Remaining int       `json:"remaining"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
