package orders

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/storefront/internal/auth"
	"github.com/joao-fontenele/storefront/internal/domain"
	"github.com/joao-fontenele/storefront/internal/httpapi"
)

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

type createOrderRequest struct {
	CustomerEmail    string                `json:"customer_email"`
	Items            []domain.LineItem     `json:"items"`
	ShippingMethod   domain.ShippingMethod `json:"shipping_method"`
	ShippingLocation string                `json:"shipping_location"`
	TotalPrice       decimal.Decimal       `json:"total_price"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req createOrderRequest
	if err := httpapi.DecodeJSON(r, &req, false); err != nil {
		httpapi.WriteDomainError(w, r, h.logger, err)
		return
	}

	order, err := h.service.Create(r.Context(), actor, CreateOrderInput{
		CustomerEmail:    req.CustomerEmail,
		Items:            req.Items,
		ShippingMethod:   req.ShippingMethod,
		ShippingLocation: req.ShippingLocation,
		TotalPrice:       req.TotalPrice,
	})
	if err != nil {
		httpapi.WriteDomainError(w, r, h.logger, err)
		return
	}

	httpapi.WriteJSON(w, h.logger, http.StatusCreated, order)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	id, err := httpapi.PathUUID(r, "id")
	if err != nil {
		httpapi.WriteDomainError(w, r, h.logger, err)
		return
	}

	order, err := h.service.Get(r.Context(), actor, id)
	if err != nil {
		httpapi.WriteDomainError(w, r, h.logger, err)
		return
	}

	h.logger.Info("order retrieved", "order_id", order.ID)
	httpapi.WriteJSON(w, h.logger, http.StatusOK, order)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	orders, err := h.service.List(r.Context(), actor)
	if err != nil {
		httpapi.WriteDomainError(w, r, h.logger, err)
		return
	}

	h.logger.Info("orders listed", "count", len(orders), "admin", actor.IsAdmin)
	httpapi.WriteJSON(w, h.logger, http.StatusOK, orders)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	id, err := httpapi.PathUUID(r, "id")
	if err != nil {
		httpapi.WriteDomainError(w, r, h.logger, err)
		return
	}

	if err := h.service.Delete(r.Context(), actor, id); err != nil {
		httpapi.WriteDomainError(w, r, h.logger, err)
		return
	}

	httpapi.WriteJSON(w, h.logger, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("order %s deleted", id),
	})
}

func (h *Handler) HandleCustomerEmails(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	emails, err := h.service.CustomerEmails(r.Context(), actor)
	if err != nil {
		httpapi.WriteDomainError(w, r, h.logger, err)
		return
	}

	httpapi.WriteJSON(w, h.logger, http.StatusOK, emails)
}

func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (domain.User, bool) {
	u, ok := auth.UserFrom(r.Context())
	if !ok {
		httpapi.WriteError(w, h.logger, http.StatusUnauthorized, "unauthorized")
	}
	return u, ok
}
