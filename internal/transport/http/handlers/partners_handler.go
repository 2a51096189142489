package handlers

import (
	"net/http"

	partnersvc "github.com/Wewst/coffe-pass/internal/services/partners"
	httperrors "github.com/Wewst/coffe-pass/internal/transport/http/errors"
)

type PartnersHandler struct {
	service *partnersvc.Service
}

func NewPartnersHandler(service *partnersvc.Service) *PartnersHandler {
	return &PartnersHandler{service: service}
}

// List answers with a bare array, the shape the mini-app consumes directly.
func (h *PartnersHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "PARTNERS_SERVICE_UNAVAILABLE", "partners service is unavailable")
		return
	}

	partners, err := h.service.ListActive(r.Context())
	if err != nil {
		writeStoreError(w, err, "INTERNAL_ERROR", "failed to load partners")
		return
	}

	httperrors.Write(w, http.StatusOK, toPartnerResponses(partners))
}
