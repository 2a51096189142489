package handlers

import (
	"errors"
	"net/http"

	"github.com/Wewst/coffe-pass/internal/domain/enums"
	"github.com/Wewst/coffe-pass/internal/pkg/validate"
	authsvc "github.com/Wewst/coffe-pass/internal/services/auth"
	paymentsvc "github.com/Wewst/coffe-pass/internal/services/payments"
	"github.com/Wewst/coffe-pass/internal/transport/http/dto"
	httperrors "github.com/Wewst/coffe-pass/internal/transport/http/errors"
)

type PurchaseHandler struct {
	payments  *paymentsvc.Service
	passPrice int
}

func NewPurchaseHandler(payments *paymentsvc.Service, passPrice int) *PurchaseHandler {
	return &PurchaseHandler{
		payments:  payments,
		passPrice: passPrice,
	}
}

func (h *PurchaseHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.payments == nil {
		writeInternal(w, "PAYMENTS_SERVICE_UNAVAILABLE", "payments service is unavailable")
		return
	}

	var req dto.PurchaseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}
	if !validate.PositiveInt(req.Cups) {
		writeBadRequest(w, "VALIDATION_ERROR", "cups must be a positive number")
		return
	}

	result, err := h.payments.Purchase(r.Context(), identity.UserID, req.Cups)
	if err != nil {
		switch {
		case errors.Is(err, paymentsvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "cups must be a positive number")
		case errors.Is(err, paymentsvc.ErrCapExceeded):
			writeBadRequest(w, "CAP_EXCEEDED", "purchase would exceed the monthly cup cap")
		default:
			writeStoreError(w, err, "INTERNAL_ERROR", "failed to process purchase")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.PurchaseResponse{
		Success:   true,
		PaymentID: result.PaymentID,
		Amount:    result.Amount,
		CupsAdded: result.Cups,
		Remaining: result.Remaining,
		Month:     result.MonthKey,
		Subscription: dto.SubscriptionInfo{
			Price:  h.passPrice,
			Active: true,
		},
	})
}

// Webhook is the payment provider callback. It is unauthenticated on purpose
// and answers redeliveries idempotently.
func (h *PurchaseHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	if h.payments == nil {
		writeInternal(w, "PAYMENTS_SERVICE_UNAVAILABLE", "payments service is unavailable")
		return
	}

	var req dto.PurchaseWebhookRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	// Providers only deliver settled outcomes; anything else is a bad payload.
	status := enums.PaymentStatus(req.Status)
	if req.Status != "" && !status.Terminal() {
		writeBadRequest(w, "VALIDATION_ERROR", "status must be completed or failed")
		return
	}

	if status == enums.PaymentStatusFailed {
		payment, err := h.payments.Fail(r.Context(), req.PaymentID)
		if err != nil {
			handlePaymentError(w, err)
			return
		}
		httperrors.Write(w, http.StatusOK, dto.PurchaseWebhookResponse{
			OK:        true,
			PaymentID: payment.ID,
			UserID:    payment.UserID,
			Status:    string(payment.Status),
		})
		return
	}

	result, err := h.payments.Confirm(r.Context(), req.PaymentID, req.ExternalTxID)
	if err != nil {
		handlePaymentError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.PurchaseWebhookResponse{
		OK:         true,
		PaymentID:  result.Payment.ID,
		UserID:     result.Payment.UserID,
		Status:     string(result.Payment.Status),
		Remaining:  result.Remaining,
		Idempotent: result.Idempotent,
	})
}

func handlePaymentError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, paymentsvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "invalid webhook payload")
	case errors.Is(err, paymentsvc.ErrPaymentNotFound):
		writeNotFound(w, "PAYMENT_NOT_FOUND", "payment not found")
	case errors.Is(err, paymentsvc.ErrPaymentTerminal):
		writeConflict(w, "CONFLICT", "payment is already settled")
	case errors.Is(err, paymentsvc.ErrCapExceeded):
		writeConflict(w, "CONFLICT", "credit would exceed the monthly cup cap")
	default:
		writeStoreError(w, err, "INTERNAL_ERROR", "failed to process webhook")
	}
}
