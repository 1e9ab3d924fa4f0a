package services

import (
	"errors"
	"fmt"

	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/models"
)

type ErrorCode string

const (
	CodeEmptyCart                ErrorCode = "EMPTY_CART"
	CodeAddressNotFound          ErrorCode = "ADDRESS_NOT_FOUND"
	CodeInsufficientStock        ErrorCode = "INSUFFICIENT_STOCK"
	CodeProductUnavailable       ErrorCode = "PRODUCT_UNAVAILABLE"
	CodeCouponLimitReached       ErrorCode = "COUPON_LIMIT_REACHED"
	CodeInvalidSignature         ErrorCode = "INVALID_SIGNATURE"
	CodePaymentRecordMissing     ErrorCode = "PAYMENT_RECORD_MISSING"
	CodeAlreadyPaid              ErrorCode = "ALREADY_PAID"
	CodeUnsupportedPaymentMethod ErrorCode = "UNSUPPORTED_PAYMENT_METHOD"
	CodeOrderNotFound            ErrorCode = "ORDER_NOT_FOUND"
	CodeNotCancellable           ErrorCode = "NOT_CANCELLABLE"
	CodeInvalidRequest           ErrorCode = "INVALID_REQUEST"
	CodeInvalidStatusTransition  ErrorCode = "INVALID_STATUS_TRANSITION"
)

// CheckoutError is a caller-caused failure with a stable code. Anything else
// returned by the services is an internal error.
type CheckoutError struct {
	Code    ErrorCode
	Message string
	// Product names the offending line for INSUFFICIENT_STOCK and
	// PRODUCT_UNAVAILABLE.
	Product string
	// Status is the order status that blocked the action, when relevant.
	Status models.OrderStatus
	Err    error
}

func (e *CheckoutError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CheckoutError) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, message string) *CheckoutError {
	return &CheckoutError{Code: code, Message: message}
}

// ErrorCodeOf returns the code of a CheckoutError anywhere in err's chain.
func ErrorCodeOf(err error) (ErrorCode, bool) {
	var checkoutErr *CheckoutError
	if errors.As(err, &checkoutErr) {
		return checkoutErr.Code, true
	}
	return "", false
}

func errEmptyCart() *CheckoutError {
	return newError(CodeEmptyCart, "cart is empty")
}

func errAddressNotFound() *CheckoutError {
	return newError(CodeAddressNotFound, "shipping address not found")
}

func errInsufficientStock(product string) *CheckoutError {
	e := newError(CodeInsufficientStock, fmt.Sprintf("insufficient stock for %s", product))
	e.Product = product
	return e
}

func errProductUnavailable(product string) *CheckoutError {
	e := newError(CodeProductUnavailable, fmt.Sprintf("%s is no longer available", product))
	e.Product = product
	return e
}

func errGatewayUnavailable(method models.PaymentMethod) *CheckoutError {
	return newError(CodeUnsupportedPaymentMethod, fmt.Sprintf("%s payments are not available right now", method))
}

func errOrderNotFound() *CheckoutError {
	return newError(CodeOrderNotFound, "order not found")
}

func errNotCancellable(status models.OrderStatus) *CheckoutError {
	e := newError(CodeNotCancellable, fmt.Sprintf("order cannot be cancelled while %s", status))
	e.Status = status
	return e
}

func errInvalidTransition(from, to models.OrderStatus) *CheckoutError {
	e := newError(CodeInvalidStatusTransition, fmt.Sprintf("order cannot move from %s to %s", from, to))
	e.Status = from
	return e
}
