package handlers

import (
	"net/http"

	authsvc "github.com/Wewst/coffe-pass/internal/services/auth"
	paymentsvc "github.com/Wewst/coffe-pass/internal/services/payments"
	redemptionsvc "github.com/Wewst/coffe-pass/internal/services/redemptions"
	"github.com/Wewst/coffe-pass/internal/transport/http/dto"
	httperrors "github.com/Wewst/coffe-pass/internal/transport/http/errors"
)

const historyLimit = 50

type HistoryHandler struct {
	payments    *paymentsvc.Service
	redemptions *redemptionsvc.Service
}

func NewHistoryHandler(payments *paymentsvc.Service, redemptions *redemptionsvc.Service) *HistoryHandler {
	return &HistoryHandler{
		payments:    payments,
		redemptions: redemptions,
	}
}

// History returns the user's codes and payments, newest first. Both lists are
// always present, possibly empty, so the client needs no nil checks.
func (h *HistoryHandler) History(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.payments == nil || h.redemptions == nil {
		writeInternal(w, "HISTORY_SERVICE_UNAVAILABLE", "history service is unavailable")
		return
	}

	codes, err := h.redemptions.History(r.Context(), identity.UserID, historyLimit)
	if err != nil {
		writeStoreError(w, err, "INTERNAL_ERROR", "failed to load code history")
		return
	}

	payments, err := h.payments.History(r.Context(), identity.UserID, historyLimit)
	if err != nil {
		writeStoreError(w, err, "INTERNAL_ERROR", "failed to load payment history")
		return
	}

	resp := dto.HistoryResponse{
		Codes:    make([]dto.HistoryCodeItem, 0, len(codes)),
		Payments: make([]dto.HistoryPaymentItem, 0, len(payments)),
	}
	for _, code := range codes {
		resp.Codes = append(resp.Codes, dto.HistoryCodeItem{
			Code:        code.Code,
			PartnerName: code.PartnerName,
			IsUsed:      code.IsUsed,
			UsedAt:      code.UsedAt,
			CreatedAt:   code.CreatedAt,
		})
	}
	for _, payment := range payments {
		resp.Payments = append(resp.Payments, dto.HistoryPaymentItem{
			Amount:    payment.Amount,
			CupsAdded: payment.Cups,
			Status:    string(payment.Status),
			CreatedAt: payment.CreatedAt,
		})
	}

	httperrors.Write(w, http.StatusOK, resp)
}
