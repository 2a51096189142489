package dto

import "time"

type GenerateCodeRequest struct {
	PartnerName string `json:"partner_name"`
}

type GenerateCodeResponse struct {
	Success     bool   `json:"success"`
	Code        string `json:"code"`
	PartnerName string `json:"partner_name"`
	Remaining   int    `json:"remaining"`
}

type RedeemCodeRequest struct {
	Code string `json:"code"`
}

type RedeemCodeResponse struct {
	Success     bool       `json:"success"`
	Code        string     `json:"code"`
	PartnerName string     `json:"partner_name"`
	IsUsed      bool       `json:"is_used"`
	UsedAt      *time.Time `json:"used_at,omitempty"`
}
