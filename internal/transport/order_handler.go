package transport

import (
	"net/http"

	"stockboard/internal/middleware"
	"stockboard/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type DeliveryRequest struct {
	Delivered *bool `json:"delivered" validate:"required"`
}

type PaymentRequest struct {
	Paid *bool `json:"paid" validate:"required"`
}

// OrderHandler serves the order board.
type OrderHandler struct {
	orders service.OrderService
	logger *zap.Logger
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orders service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orders: orders,
		logger: logger,
	}
}

// RegisterRoutes mounts the order routes. Writes go through limit.
func (h *OrderHandler) RegisterRoutes(r chi.Router, limit func(http.Handler) http.Handler) {
	r.Route("/api/orders", func(r chi.Router) {
		r.Get("/", h.List)

		r.Group(func(r chi.Router) {
			r.Use(limit)
			r.Put("/{id}/delivery", h.SetDelivery)
			r.Put("/{id}/payment", h.SetPayment)
		})
	})
}

// List returns orders newest first, optionally narrowed by ?section=.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	section, err := service.ParseSection(r.URL.Query().Get("section"))
	if err != nil {
		respondWithServiceError(w, h.logger, "Invalid order section", err)
		return
	}

	orders, err := h.orders.List(r.Context(), section)
	if err != nil {
		respondWithServiceError(w, h.logger, "Failed to list orders", err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, newOrderResponses(orders))
}

func (h *OrderHandler) SetDelivery(w http.ResponseWriter, r *http.Request) {
	var req DeliveryRequest
	if err := middleware.DecodeAndValidate(w, r, &req); err != nil {
		respondWithDecodeError(w, h.logger, err)
		return
	}

	order, err := h.orders.SetDelivered(r.Context(), chi.URLParam(r, "id"), *req.Delivered)
	if err != nil {
		respondWithServiceError(w, h.logger, "Failed to update delivery status", err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, newOrderResponse(order))
}

func (h *OrderHandler) SetPayment(w http.ResponseWriter, r *http.Request) {
	var req PaymentRequest
	if err := middleware.DecodeAndValidate(w, r, &req); err != nil {
		respondWithDecodeError(w, h.logger, err)
		return
	}

	order, err := h.orders.SetPaid(r.Context(), chi.URLParam(r, "id"), *req.Paid)
	if err != nil {
		respondWithServiceError(w, h.logger, "Failed to update payment status", err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, newOrderResponse(order))
}
