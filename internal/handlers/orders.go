package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/models"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/services"
)

type orderResponse struct {
	Success bool          `json:"success"`
	Order   *models.Order `json:"order"`
}

type updateStatusRequest struct {
	Status         string `json:"status" validate:"required"`
	Carrier        string `json:"carrier" validate:"max=100"`
	TrackingNumber string `json:"tracking_number" validate:"max=100"`
	Notes          string `json:"notes" validate:"max=1000"`
}

func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.orderIDFromPath(w, r)
	if !ok {
		return
	}

	order, err := h.orders.GetOrder(r.Context(), currentUserID(r), orderID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, orderResponse{Success: true, Order: order})
}

func (h *Handlers) CancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.orderIDFromPath(w, r)
	if !ok {
		return
	}

	order, err := h.orders.CancelOrder(r.Context(), currentUserID(r), orderID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, orderResponse{Success: true, Order: order})
}

func (h *Handlers) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.orderIDFromPath(w, r)
	if !ok {
		return
	}

	result, err := h.payments.CreatePaymentIntent(r.Context(), currentUserID(r), orderID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, result)
}

// AdminUpdateOrderStatus moves an order along the fulfillment lifecycle.
func (h *Handlers) AdminUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.orderIDFromPath(w, r)
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	order, err := h.orders.UpdateOrderStatus(r.Context(), orderID, services.UpdateStatusInput{
		Status:         models.OrderStatus(req.Status),
		Carrier:        req.Carrier,
		TrackingNumber: req.TrackingNumber,
		Notes:          req.Notes,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, orderResponse{Success: true, Order: order})
}

func (h *Handlers) orderIDFromPath(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	orderID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, r, &services.CheckoutError{Code: services.CodeOrderNotFound, Message: "order not found"})
		return uuid.Nil, false
	}
	return orderID, true
}
