// Package orders manages an order's status after checkout has committed it.
// Status is the only field that ever changes on a placed order.
package orders

import (
	"context"
	"fmt"
	"log"
	"time"

	"pawmart/apperr"
	"pawmart/models"
	"pawmart/mq"
	"pawmart/remstore"
	"pawmart/stock"
)

// transitions holds the forward edges. Cancelled is reachable from every
// non-terminal state; Delivered and Cancelled are terminal.
var transitions = map[string][]string{
	models.StatusPending:    {models.StatusProcessing, models.StatusCancelled},
	models.StatusProcessing: {models.StatusOnDelivery, models.StatusCancelled},
	models.StatusOnDelivery: {models.StatusDelivered, models.StatusCancelled},
}

func canTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Notifier interface {
	Push(identity, level, message string)
}

type Manager struct {
	store    remstore.Store
	guard    *stock.Guard
	notifier Notifier
}

func NewManager(store remstore.Store, guard *stock.Guard, notifier Notifier) *Manager {
	return &Manager{store: store, guard: guard, notifier: notifier}
}

func (m *Manager) push(identity, level, message string) {
	if m.notifier != nil {
		m.notifier.Push(identity, level, message)
	}
}

func (m *Manager) Get(ctx context.Context, orderID string) (models.Order, error) {
	var order models.Order
	err := m.store.Get(ctx, remstore.Orders, orderID, &order)
	if err == remstore.ErrNotFound {
		return models.Order{}, apperr.ErrOrderNotFound
	}
	if err != nil {
		return models.Order{}, apperr.Transport("orders.get", err)
	}
	return order, nil
}

func (m *Manager) ListByUser(ctx context.Context, userID string) ([]models.Order, error) {
	var list []models.Order
	if err := m.store.QueryEqual(ctx, remstore.Orders, "userid", userID, &list); err != nil {
		return nil, apperr.Transport("orders.list", err)
	}
	if list == nil {
		list = []models.Order{}
	}
	return list, nil
}

// Cancel restores stock for every item snapshot and then flips the status.
// Restoration runs first so a crash between the two leaves stock correct even
// if the status write is retried. Cancelling a cancelled order is a no-op,
// never a double restore.
func (m *Manager) Cancel(ctx context.Context, orderID, reason string) (models.Order, error) {
	order, err := m.Get(ctx, orderID)
	if err != nil {
		return models.Order{}, err
	}

	if order.Status == models.StatusCancelled {
		return order, nil
	}
	if order.Status == models.StatusDelivered {
		return models.Order{}, fmt.Errorf("order %s is already delivered: %w", orderID, apperr.ErrInvalidTransition)
	}

	for _, item := range order.Items {
		if err := m.guard.Restore(ctx, item.ProductID, item.Quantity); err != nil {
			return models.Order{}, err
		}
	}

	fields := map[string]any{
		"status":    models.StatusCancelled,
		"updatedat": time.Now(),
	}
	if reason != "" {
		fields["cancelreason"] = reason
	}
	if err := m.store.UpdateFields(ctx, remstore.Orders, orderID, fields); err != nil {
		return models.Order{}, apperr.Transport("orders.cancel", err)
	}

	order.Status = models.StatusCancelled
	order.CancelReason = reason
	m.push(order.UserID, "info", "Order cancelled.")
	mq.Notify("order-cancelled", mq.Event{Type: "order-cancelled", UserID: order.UserID, OrderID: orderID})
	return order, nil
}

// Advance performs an administrative status transition. No side effects
// beyond the status write; stock is untouched. Cancellation must go through
// Cancel so stock restoration is never skipped.
func (m *Manager) Advance(ctx context.Context, orderID, nextStatus string) (models.Order, error) {
	if nextStatus == models.StatusCancelled {
		return m.Cancel(ctx, orderID, "")
	}

	order, err := m.Get(ctx, orderID)
	if err != nil {
		return models.Order{}, err
	}

	if !canTransition(order.Status, nextStatus) {
		return models.Order{}, fmt.Errorf("cannot move order %s from %s to %s: %w",
			orderID, order.Status, nextStatus, apperr.ErrInvalidTransition)
	}

	fields := map[string]any{
		"status":    nextStatus,
		"updatedat": time.Now(),
	}
	if err := m.store.UpdateFields(ctx, remstore.Orders, orderID, fields); err != nil {
		return models.Order{}, apperr.Transport("orders.advance", err)
	}

	log.Printf("order %s advanced %s -> %s", orderID, order.Status, nextStatus)
	order.Status = nextStatus
	return order, nil
}
