package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestTransportWrapping(t *testing.T) {
	cause := errors.New("connection reset")
	err := Transport("cart.sync", cause)

	if !IsTransport(err) {
		t.Fatal("Transport must yield a transport error")
	}
	if !errors.Is(err, cause) {
		t.Fatal("transport error must unwrap to its cause")
	}

	wrapped := fmt.Errorf("outer context: %w", err)
	if !IsTransport(wrapped) {
		t.Fatal("IsTransport must see through further wrapping")
	}
	if IsTransport(ErrOutOfStock) {
		t.Fatal("domain errors are not transport errors")
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{ErrProductNotFound, http.StatusNotFound},
		{ErrOrderNotFound, http.StatusNotFound},
		{ErrOutOfStock, http.StatusBadRequest},
		{ErrInsufficientStock, http.StatusBadRequest},
		{ErrEmptySelection, http.StatusBadRequest},
		{ErrInvalidTransition, http.StatusBadRequest},
		{ErrPaymentFailed, http.StatusBadRequest},
		{ErrCheckoutInFlight, http.StatusConflict},
		{Transport("x", errors.New("down")), http.StatusBadGateway},
		{fmt.Errorf("ctx: %w", ErrOutOfStock), http.StatusBadRequest},
		{errors.New("unclassified"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := HTTPStatus(tc.err); got != tc.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestKind(t *testing.T) {
	if Kind(ErrOutOfStock) == "" {
		t.Fatal("every classified error needs a kind")
	}
	if Kind(ErrOutOfStock) == Kind(ErrCheckoutInFlight) {
		t.Fatal("distinct failure classes must not share a kind")
	}
}
