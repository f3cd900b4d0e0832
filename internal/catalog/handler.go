package catalog

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
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

type discountPriceRequest struct {
	CustomerEmail string    `json:"customer_email"`
	ProductID     uuid.UUID `json:"product_id"`
}

type discountPriceResponse struct {
	DiscountPrice decimal.Decimal `json:"discount_price"`
}

func (h *Handler) HandleDiscountPrice(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.UserFrom(r.Context())
	if !ok {
		httpapi.WriteError(w, h.logger, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req discountPriceRequest
	if err := httpapi.DecodeJSON(r, &req, false); err != nil {
		httpapi.WriteDomainError(w, r, h.logger, err)
		return
	}

	price, err := h.service.DiscountPrice(r.Context(), actor, req.CustomerEmail, req.ProductID)
	if err != nil {
		httpapi.WriteDomainError(w, r, h.logger, err)
		return
	}

	h.logger.Info("discount price quoted", "product_id", req.ProductID, "price", price.String())
	httpapi.WriteJSON(w, h.logger, http.StatusOK, discountPriceResponse{DiscountPrice: price})
}

type priceRequest struct {
	DiscountPrice decimal.Decimal `json:"discount_price"`
	Quantity      int             `json:"quantity"`
}

type priceResponse struct {
	Price decimal.Decimal `json:"price"`
}

func (h *Handler) HandlePrice(w http.ResponseWriter, r *http.Request) {
	var req priceRequest
	if err := httpapi.DecodeJSON(r, &req, false); err != nil {
		httpapi.WriteDomainError(w, r, h.logger, err)
		return
	}

	price, err := h.service.Price(req.DiscountPrice, req.Quantity)
	if err != nil {
		httpapi.WriteDomainError(w, r, h.logger, err)
		return
	}

	httpapi.WriteJSON(w, h.logger, http.StatusOK, priceResponse{Price: price})
}

type locationsRequest struct {
	ShippingMethod domain.ShippingMethod `json:"shipping_method"`
}

type locationsResponse struct {
	Locations []string `json:"locations"`
}

func (h *Handler) HandleLocations(w http.ResponseWriter, r *http.Request) {
	var req locationsRequest
	if err := httpapi.DecodeJSON(r, &req, false); err != nil {
		httpapi.WriteDomainError(w, r, h.logger, err)
		return
	}
	if req.ShippingMethod == "" {
		httpapi.WriteError(w, h.logger, http.StatusBadRequest, "shipping_method is required")
		return
	}

	stores, err := h.service.Locations(r.Context(), req.ShippingMethod)
	if err != nil {
		httpapi.WriteDomainError(w, r, h.logger, err)
		return
	}

	resp := locationsResponse{Locations: make([]string, 0, len(stores))}
	for _, s := range stores {
		resp.Locations = append(resp.Locations, s.Address)
	}

	h.logger.Info("locations listed", "shipping_method", req.ShippingMethod, "count", len(stores))
	httpapi.WriteJSON(w, h.logger, http.StatusOK, resp)
}
