package model

import "time"

type RedemptionCode struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"user_id"`
	Code        string     `json:"code"`
	PartnerName string     `json:"partner_name"`
	IsUsed      bool       `json:"is_used"`
	UsedAt      *time.Time `json:"used_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
