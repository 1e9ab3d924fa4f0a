package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/services"
)

type errorResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Product string `json:"product,omitempty"`
	Status  string `json:"status,omitempty"`
}

var errorStatus = map[services.ErrorCode]int{
	services.CodeEmptyCart:                http.StatusBadRequest,
	services.CodeAddressNotFound:          http.StatusBadRequest,
	services.CodeInsufficientStock:        http.StatusConflict,
	services.CodeProductUnavailable:       http.StatusConflict,
	services.CodeCouponLimitReached:       http.StatusConflict,
	services.CodeInvalidSignature:         http.StatusBadRequest,
	services.CodePaymentRecordMissing:     http.StatusNotFound,
	services.CodeAlreadyPaid:              http.StatusConflict,
	services.CodeUnsupportedPaymentMethod: http.StatusBadRequest,
	services.CodeOrderNotFound:            http.StatusNotFound,
	services.CodeNotCancellable:           http.StatusConflict,
	services.CodeInvalidRequest:           http.StatusBadRequest,
	services.CodeInvalidStatusTransition:  http.StatusConflict,
}

func writeJSON(w http.ResponseWriter, status int, body any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(body)
}

func (h *Handlers) respond(w http.ResponseWriter, r *http.Request, status int, body any) {
	if err := writeJSON(w, status, body); err != nil {
		h.loggerFromContext(r.Context()).Error("failed to encode response", "error", err)
	}
}

// respondError maps domain errors onto their HTTP status. Anything without a
// domain code is logged and hidden behind a generic 500.
func (h *Handlers) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var checkoutErr *services.CheckoutError
	if errors.As(err, &checkoutErr) {
		status, ok := errorStatus[checkoutErr.Code]
		if !ok {
			status = http.StatusBadRequest
		}
		h.respond(w, r, status, errorResponse{
			Code:    string(checkoutErr.Code),
			Message: checkoutErr.Message,
			Product: checkoutErr.Product,
			Status:  string(checkoutErr.Status),
		})
		return
	}

	h.loggerFromContext(r.Context()).Error("request failed", "error", err)
	h.respond(w, r, http.StatusInternalServerError, errorResponse{
		Code:    "INTERNAL_ERROR",
		Message: "something went wrong, please try again",
	})
}

func (h *Handlers) respondStatus(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	h.respond(w, r, status, errorResponse{Code: code, Message: message})
}

// decodeJSON reads a bounded JSON body into dst, rejecting unknown fields,
// and runs struct validation.
func (h *Handlers) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return invalidRequest(fmt.Sprintf("invalid request body: %v", err))
	}
	if decoder.More() {
		return invalidRequest("request body must contain a single JSON object")
	}

	if err := h.validate.Struct(dst); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
			first := validationErrs[0]
			return invalidRequest(fmt.Sprintf("%s failed %s validation", first.Field(), first.Tag()))
		}
		return invalidRequest(err.Error())
	}
	return nil
}

func invalidRequest(message string) *services.CheckoutError {
	return &services.CheckoutError{Code: services.CodeInvalidRequest, Message: message}
}
