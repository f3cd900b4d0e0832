package fulfillment

import (
	"log/slog"
	"net/http"

	"github.com/joao-fontenele/storefront/internal/auth"
	"github.com/joao-fontenele/storefront/internal/domain"
	"github.com/joao-fontenele/storefront/internal/httpapi"
)

type Handler struct {
	orchestrator *Orchestrator
	logger       *slog.Logger
}

func NewHandler(orchestrator *Orchestrator, logger *slog.Logger) *Handler {
	return &Handler{
		orchestrator: orchestrator,
		logger:       logger,
	}
}

type shippedResponse struct {
	ShippingLabel  string `json:"shipping_label"`
	TrackingNumber string `json:"tracking_number"`
}

type pickupResponse struct {
	Message string `json:"message"`
}

func (h *Handler) HandleFulfill(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.UserFrom(r.Context())
	if !ok {
		httpapi.WriteError(w, h.logger, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := auth.RequireAdmin(actor); err != nil {
		httpapi.WriteDomainError(w, r, h.logger, err)
		return
	}

	id, err := httpapi.PathUUID(r, "id")
	if err != nil {
		httpapi.WriteDomainError(w, r, h.logger, err)
		return
	}

	var req *domain.ShippingLabelRequest
	if err := httpapi.DecodeJSON(r, &req, true); err != nil {
		httpapi.WriteDomainError(w, r, h.logger, err)
		return
	}

	result, err := h.orchestrator.Fulfill(r.Context(), id, req)
	if err != nil {
		httpapi.WriteDomainError(w, r, h.logger, err)
		return
	}

	if result.Label != nil {
		httpapi.WriteJSON(w, h.logger, http.StatusCreated, shippedResponse{
			ShippingLabel:  result.Label.LabelURL,
			TrackingNumber: result.Label.TrackingNumber,
		})
		return
	}
	httpapi.WriteJSON(w, h.logger, http.StatusCreated, pickupResponse{Message: result.Message})
}
