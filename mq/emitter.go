package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"pawmart/rdx"
)

// Event represents a storefront event to be emitted.
type Event struct {
	Type      string `json:"type"`
	UserID    string `json:"user_id,omitempty"`
	OrderID   string `json:"order_id,omitempty"`
	ProductID string `json:"product_id,omitempty"`
	Quantity  int    `json:"quantity,omitempty"`
}

// Notify is a placeholder for broadcasting events without persistence.
func Notify(eventName string, content Event) error {
	fmt.Println(eventName, "Notified", content)
	return nil
}

// Emit publishes storefront events to Redis for downstream consumers.
func Emit(ctx context.Context, eventName string, content Event) {
	data, err := json.Marshal(content)
	if err != nil {
		log.Printf("[Emit] Failed to marshal event content: %v", err)
		return
	}

	if err := rdx.Conn.Publish(context.Background(), "store-events", data).Err(); err != nil {
		log.Printf("[Emit] Failed to publish %s event to Redis: %v", eventName, err)
		return
	}
}

// StartEventWorker logs storefront events as they arrive. Reconciliation of
// partial checkout state would hang off this subscription.
func StartEventWorker() {
	ctx := context.Background()
	sub := rdx.Conn.Subscribe(ctx, "store-events")
	ch := sub.Channel()

	log.Println("[EventWorker] Listening for store events...")

	for msg := range ch {
		var event Event
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			log.Printf("[EventWorker] Failed to parse event: %v", err)
			continue
		}
		log.Printf("[EventWorker] Processing event=%+v", event)
	}
}
