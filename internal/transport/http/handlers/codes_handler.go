package handlers

import (
	"errors"
	"net/http"

	"github.com/Wewst/coffe-pass/internal/pkg/validate"
	authsvc "github.com/Wewst/coffe-pass/internal/services/auth"
	ratesvc "github.com/Wewst/coffe-pass/internal/services/rate"
	redemptionsvc "github.com/Wewst/coffe-pass/internal/services/redemptions"
	"github.com/Wewst/coffe-pass/internal/transport/http/dto"
	httperrors "github.com/Wewst/coffe-pass/internal/transport/http/errors"
)

type CodesHandler struct {
	redemptions *redemptionsvc.Service
	limiter     *ratesvc.Limiter
}

func NewCodesHandler(redemptions *redemptionsvc.Service, limiter *ratesvc.Limiter) *CodesHandler {
	return &CodesHandler{
		redemptions: redemptions,
		limiter:     limiter,
	}
}

func (h *CodesHandler) Generate(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.redemptions == nil {
		writeInternal(w, "REDEMPTIONS_SERVICE_UNAVAILABLE", "redemptions service is unavailable")
		return
	}

	var req dto.GenerateCodeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}
	if !validate.Required(req.PartnerName) {
		writeBadRequest(w, "VALIDATION_ERROR", "partner_name is required")
		return
	}

	if h.limiter != nil {
		retryAfter, allowed, err := h.limiter.AllowIssue(r.Context(), identity.UserID)
		if err != nil {
			writeStoreError(w, err, "INTERNAL_ERROR", "failed to check rate limit")
			return
		}
		if !allowed {
			httperrors.Write(w, http.StatusTooManyRequests, httperrors.RateLimitError{
				Code:          "TOO_MANY_REQUESTS",
				Message:       "code issuance limit reached, slow down",
				RetryAfterSec: retryAfter,
			})
			return
		}
	}

	result, err := h.redemptions.Issue(r.Context(), identity.UserID, req.PartnerName)
	if err != nil {
		switch {
		case errors.Is(err, redemptionsvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "partner_name is required")
		case errors.Is(err, redemptionsvc.ErrPartnerNotFound):
			writeNotFound(w, "PARTNER_NOT_FOUND", "partner not found or inactive")
		case errors.Is(err, redemptionsvc.ErrInsufficientAllowance):
			writeBadRequest(w, "INSUFFICIENT_ALLOWANCE", "no cups remaining this month")
		case errors.Is(err, redemptionsvc.ErrCodeGenerationExhausted):
			writeConflict(w, "CODE_GENERATION_EXHAUSTED", "could not generate a unique code, try again")
		default:
			writeStoreError(w, err, "INTERNAL_ERROR", "failed to generate code")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.GenerateCodeResponse{
		Success:     true,
		Code:        result.Code.Code,
		PartnerName: result.Code.PartnerName,
		Remaining:   result.Remaining,
	})
}

// Redeem marks a code used at the counter. A second scan of the same code
// still answers 200 and reports it as used.
func (h *CodesHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	if _, ok := authsvc.IdentityFromContext(r.Context()); !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.redemptions == nil {
		writeInternal(w, "REDEMPTIONS_SERVICE_UNAVAILABLE", "redemptions service is unavailable")
		return
	}

	var req dto.RedeemCodeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}
	if !validate.Required(req.Code) {
		writeBadRequest(w, "VALIDATION_ERROR", "code is required")
		return
	}

	rec, err := h.redemptions.Redeem(r.Context(), req.Code)
	if err != nil {
		switch {
		case errors.Is(err, redemptionsvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "code is required")
		case errors.Is(err, redemptionsvc.ErrCodeNotFound):
			writeNotFound(w, "CODE_NOT_FOUND", "code not found")
		default:
			writeStoreError(w, err, "INTERNAL_ERROR", "failed to redeem code")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.RedeemCodeResponse{
		Success:     true,
		Code:        rec.Code,
		PartnerName: rec.PartnerName,
		IsUsed:      rec.IsUsed,
		UsedAt:      rec.UsedAt,
	})
}
