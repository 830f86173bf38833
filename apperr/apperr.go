package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrOutOfStock        = errors.New("out of stock")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrAlreadyCancelled  = errors.New("order already cancelled")
	ErrOrderNotFound     = errors.New("order not found")
	ErrCheckoutInFlight  = errors.New("checkout already in progress")
	ErrEmptySelection    = errors.New("no cart lines selected")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrPaymentFailed     = errors.New("payment failed")
)

// TransportError wraps a remote store failure so callers can distinguish it
// from validation failures, which are never retried.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func Transport(op string, err error) error {
	if err == nil {
		return nil
	}
	return &TransportError{Op: op, Err: err}
}

func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

func Kind(err error) string {
	switch {
	case err == nil:
		return ""

	case errors.Is(err, ErrProductNotFound):
		return "product_not_found"

	case errors.Is(err, ErrOutOfStock):
		return "out_of_stock"

	case errors.Is(err, ErrInsufficientStock):
		return "insufficient_stock"

	case errors.Is(err, ErrAlreadyCancelled):
		return "already_cancelled"

	case errors.Is(err, ErrOrderNotFound):
		return "order_not_found"

	case errors.Is(err, ErrCheckoutInFlight):
		return "checkout_in_flight"

	case errors.Is(err, ErrEmptySelection):
		return "empty_selection"

	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"

	case errors.Is(err, ErrPaymentFailed):
		return "payment_failed"

	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"

	case IsTransport(err):
		return "transport"

	default:
		return "internal"
	}
}

func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK

	case errors.Is(err, ErrProductNotFound),
		errors.Is(err, ErrOrderNotFound):
		return http.StatusNotFound

	case errors.Is(err, ErrOutOfStock),
		errors.Is(err, ErrInsufficientStock),
		errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrEmptySelection),
		errors.Is(err, ErrPaymentFailed):
		return http.StatusBadRequest

	case errors.Is(err, ErrCheckoutInFlight):
		return http.StatusConflict

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout

	case IsTransport(err):
		return http.StatusBadGateway

	default:
		return http.StatusInternalServerError
	}
}
