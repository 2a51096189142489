package model

import (
	"time"

	"github.com/Wewst/coffe-pass/internal/domain/enums"
)

type Payment struct {
	ID           int64               `json:"id"`
	UserID       int64               `json:"user_id"`
	Amount       int                 `json:"amount"`
	Cups         int                 `json:"cups_added"`
	Status       enums.PaymentStatus `json:"status"`
	Method       enums.PaymentMethod `json:"method"`
	ExternalTxID *string             `json:"external_txn_id,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}
