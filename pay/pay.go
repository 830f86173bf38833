// Package pay is a stand-in for the payment gateway. It either succeeds or
// fails; nothing here talks to a real processor.
package pay

import (
	"fmt"
	"log"

	"pawmart/apperr"
)

const (
	MethodCOD   = "cod"
	MethodCard  = "card"
	MethodGCash = "gcash"
)

type Session struct {
	URL      string
	OrderRef string
	Method   string
	Amount   float64
}

func CreateSession(orderRef, method string, amount float64) (Session, error) {
	var s Session
	s.URL = "http://localhost:5173/thank-you/" + orderRef
	s.OrderRef = orderRef
	s.Method = method
	s.Amount = amount
	return s, nil
}

// Charge settles the amount against the selected method. GCash is listed in
// the storefront but not wired up, so it always declines.
func Charge(method string, amount float64) error {
	switch method {
	case "", MethodCOD, MethodCard:
		log.Printf("Processing payment of %.2f via %s", amount, methodOrDefault(method))
		return nil
	case MethodGCash:
		return fmt.Errorf("gcash payment is not available at the moment: %w", apperr.ErrPaymentFailed)
	default:
		return fmt.Errorf("unknown payment method %q: %w", method, apperr.ErrPaymentFailed)
	}
}

func methodOrDefault(method string) string {
	if method == "" {
		return MethodCOD
	}
	return method
}
