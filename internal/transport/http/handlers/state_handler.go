package handlers

import (
	"net/http"

	"github.com/Wewst/coffe-pass/internal/domain/model"
	allowancesvc "github.com/Wewst/coffe-pass/internal/services/allowance"
	authsvc "github.com/Wewst/coffe-pass/internal/services/auth"
	partnersvc "github.com/Wewst/coffe-pass/internal/services/partners"
	"github.com/Wewst/coffe-pass/internal/transport/http/dto"
	httperrors "github.com/Wewst/coffe-pass/internal/transport/http/errors"
)

type StateHandler struct {
	allowance *allowancesvc.Service
	partners  *partnersvc.Service
	passPrice int
}

func NewStateHandler(allowance *allowancesvc.Service, partners *partnersvc.Service, passPrice int) *StateHandler {
	return &StateHandler{
		allowance: allowance,
		partners:  partners,
		passPrice: passPrice,
	}
}

// State renders the single payload the mini-app bootstraps from.
func (h *StateHandler) State(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.allowance == nil {
		writeInternal(w, "ALLOWANCE_SERVICE_UNAVAILABLE", "allowance service is unavailable")
		return
	}

	snapshot, err := h.allowance.Current(r.Context(), identity.UserID)
	if err != nil {
		writeStoreError(w, err, "INTERNAL_ERROR", "failed to load user state")
		return
	}

	var partnerList []model.Partner
	if h.partners != nil {
		partnerList, err = h.partners.ListActive(r.Context())
		if err != nil {
			writeStoreError(w, err, "INTERNAL_ERROR", "failed to load partners")
			return
		}
	}

	httperrors.Write(w, http.StatusOK, dto.UserStateResponse{
		Purchased: snapshot.Purchased,
		Remaining: snapshot.Remaining,
		Month:     snapshot.MonthKey,
		Subscription: dto.SubscriptionInfo{
			Price:  h.passPrice,
			Active: snapshot.Purchased,
		},
		Partners: toPartnerResponses(partnerList),
	})
}

func toPartnerResponses(partners []model.Partner) []dto.PartnerResponse {
	out := make([]dto.PartnerResponse, 0, len(partners))
	for _, p := range partners {
		out = append(out, dto.PartnerResponse{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Address:     p.Address,
		})
	}
	return out
}
