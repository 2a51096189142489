package dto

type PurchaseRequest struct {
	Cups int `json:"cups"`
}

type PurchaseResponse struct {
	Success      bool             `json:"success"`
	PaymentID    int64            `json:"payment_id"`
	Amount       int              `json:"amount"`
	CupsAdded    int              `json:"cups_added"`
	Remaining    int              `json:"remaining"`
	Month        string           `json:"month"`
	Subscription SubscriptionInfo `json:"subscription"`
}

type PurchaseWebhookRequest struct {
	PaymentID    int64  `json:"payment_id"`
	ExternalTxID string `json:"external_tx_id"`
	Status       string `json:"status,omitempty"`
}

type PurchaseWebhookResponse struct {
	OK         bool   `json:"ok"`
	PaymentID  int64  `json:"payment_id"`
	UserID     int64  `json:"user_id"`
	Status     string `json:"status"`
	Remaining  int    `json:"remaining"`
	Idempotent bool   `json:"idempotent"`
}
