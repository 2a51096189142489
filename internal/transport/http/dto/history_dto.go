package dto

import "time"

type HistoryCodeItem struct {
	Code        string     `json:"code"`
	PartnerName string     `json:"partner_name"`
	IsUsed      bool       `json:"is_used"`
	UsedAt      *time.Time `json:"used_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type HistoryPaymentItem struct {
	Amount    int       `json:"amount"`
	CupsAdded int       `json:"cups_added"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type HistoryResponse struct {
	Codes    []HistoryCodeItem    `json:"codes"`
	Payments []HistoryPaymentItem `json:"payments"`
}
