// Package checkout converts selected cart lines into a committed order. The
// steps are a named state machine rather than one opaque function, because
// order creation and stock decrement are not transactional with each other
// and partial-failure states must be observable.
package checkout

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"pawmart/apperr"
	"pawmart/cart"
	"pawmart/models"
	"pawmart/mq"
	"pawmart/pay"
	"pawmart/remstore"
	"pawmart/stock"
	"pawmart/utils"
)

type State string

const (
	StateValidating State = "Validating"
	StateReserving  State = "Reserving"
	StateRecording  State = "Recording"
	StatePruning    State = "Pruning"
	StateDone       State = "Done"
	StateFailed     State = "Failed"
)

type Notifier interface {
	Push(identity, level, message string)
}

type Orchestrator struct {
	store    remstore.Store
	guard    *stock.Guard
	carts    *cart.Store
	notifier Notifier

	mu       sync.Mutex
	inflight map[string]bool
}

func NewOrchestrator(store remstore.Store, guard *stock.Guard, carts *cart.Store, notifier Notifier) *Orchestrator {
	return &Orchestrator{
		store:    store,
		guard:    guard,
		carts:    carts,
		notifier: notifier,
		inflight: make(map[string]bool),
	}
}

func (o *Orchestrator) push(identity, level, message string) {
	if o.notifier != nil {
		o.notifier.Push(identity, level, message)
	}
}

// acquire serializes checkouts per session: a second invocation while one is
// outstanding is rejected immediately, never interleaved.
func (o *Orchestrator) acquire(deviceID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.inflight[deviceID] {
		return false
	}
	o.inflight[deviceID] = true
	return true
}

func (o *Orchestrator) release(deviceID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.inflight, deviceID)
}

// Checkout runs Validating -> Reserving -> Recording -> Pruning -> Done for
// the selected product ids, short-circuiting to Failed on any error.
func (o *Orchestrator) Checkout(ctx context.Context, deviceID, userID string, selectedIDs []string, method string) (models.Order, error) {
	if !o.acquire(deviceID) {
		return models.Order{}, apperr.ErrCheckoutInFlight
	}
	defer o.release(deviceID)

	state := StateValidating
	order, err := o.run(ctx, &state, deviceID, userID, selectedIDs, method)
	if err != nil {
		state = StateFailed
		o.push(deviceID, "error", err.Error())
		return models.Order{}, err
	}
	o.push(deviceID, "success", "Order submitted successfully.")
	mq.Notify("order-placed", mq.Event{Type: "order-placed", UserID: userID, OrderID: order.OrderID})
	return order, nil
}

func (o *Orchestrator) run(ctx context.Context, state *State, deviceID, userID string, selectedIDs []string, method string) (models.Order, error) {
	lines := o.carts.Lines(deviceID)
	selected := make([]models.CartLine, 0, len(selectedIDs))
	wanted := make(map[string]bool, len(selectedIDs))
	for _, id := range selectedIDs {
		wanted[id] = true
	}
	for _, line := range lines {
		if wanted[line.ProductID] {
			selected = append(selected, line)
		}
	}
	if len(selected) == 0 {
		return models.Order{}, apperr.ErrEmptySelection
	}

	// Validating: point-in-time stock checks. No writes have happened yet,
	// so any failure here aborts cleanly.
	for _, line := range selected {
		ok, available, err := o.guard.CheckAvailable(ctx, line.ProductID, line.Quantity)
		if err != nil {
			return models.Order{}, err
		}
		if !ok {
			return models.Order{}, fmt.Errorf("%s only has %d left: %w", line.Name, available, apperr.ErrInsufficientStock)
		}
	}

	// Reserving: freeze the item snapshot and the total.
	*state = StateReserving
	items := make([]models.OrderItem, 0, len(selected))
	var total float64
	for _, line := range selected {
		items = append(items, models.OrderItem{
			ProductID: line.ProductID,
			Name:      line.Name,
			Price:     line.Price,
			Quantity:  line.Quantity,
		})
		total += line.Price * float64(line.Quantity)
	}

	orderID := "ORD" + utils.GetUUID()
	session, err := pay.CreateSession(orderID, method, total)
	if err != nil {
		return models.Order{}, err
	}
	if err := pay.Charge(session.Method, session.Amount); err != nil {
		return models.Order{}, err
	}

	// Recording: the order insert is the first durable write.
	*state = StateRecording
	now := time.Now()
	order := models.Order{
		OrderID:       orderID,
		UserID:        userID,
		Items:         items,
		Total:         total,
		Status:        models.StatusPending,
		PaymentMethod: method,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := o.store.Set(ctx, remstore.Orders, orderID, order); err != nil {
		return models.Order{}, apperr.Transport("checkout.record", err)
	}

	// Decrement per line. Not transactional with the order insert: a failure
	// partway leaves a named, logged partial state for a reconciliation pass
	// to repair. No silent mid-loop retry, because a blind retry risks
	// double-decrementing.
	for i, item := range selected {
		if err := o.guard.Decrement(ctx, item.ProductID, item.Quantity); err != nil {
			log.Printf("checkout partial state: order %s recorded, %d/%d lines decremented, stuck on %s: %v",
				orderID, i, len(selected), item.ProductID, err)
			return models.Order{}, fmt.Errorf("order %s left partially decremented at %s: %w", orderID, item.ProductID, err)
		}
	}

	// Pruning: drop only the selected lines, local and remote.
	*state = StatePruning
	if err := o.carts.PruneSelected(ctx, deviceID, selectedIDs); err != nil {
		// The order and the decrements are committed; a stale cart document
		// reconciles on the next sync.
		log.Printf("checkout: pruning cart for %s after order %s failed: %v", deviceID, orderID, err)
	}

	*state = StateDone
	return order, nil
}
