// Package notify delivers human-readable outcome messages for cart, checkout
// and order operations. Fire and forget: a slow or absent subscriber never
// blocks the operation that produced the message.
package notify

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"

	"pawmart/middleware"
	"pawmart/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Hub struct {
	mu       sync.RWMutex
	channels map[string]chan models.Notice
}

func NewHub() *Hub {
	return &Hub{channels: make(map[string]chan models.Notice)}
}

func (h *Hub) channel(identity string) chan models.Notice {
	h.mu.RLock()
	if ch, exists := h.channels[identity]; exists {
		h.mu.RUnlock()
		return ch
	}
	h.mu.RUnlock()

	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, exists := h.channels[identity]; exists {
		return ch
	}
	ch := make(chan models.Notice, 16)
	h.channels[identity] = ch
	return ch
}

// Push queues a notice for the identity, dropping it if the buffer is full.
func (h *Hub) Push(identity, level, message string) {
	notice := models.Notice{Level: level, Message: message, SentAt: time.Now()}
	select {
	case h.channel(identity) <- notice:
	default:
		log.Printf("Warning: notice channel for %s is full. Dropping notice.", identity)
	}
}

// GET /api/notifications/ws?device=...&token=Bearer+...
// Browsers cannot set headers on websocket requests, so a signed-in client
// passes its bearer token as a query parameter and gets its user channel;
// otherwise the device channel is used.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	identity := r.URL.Query().Get("device")
	if token := r.URL.Query().Get("token"); token != "" {
		claims, err := middleware.ValidateJWT(token)
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}
		identity = claims.UserID
	}
	if identity == "" {
		http.Error(w, "device is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("notify upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ch := h.channel(identity)
	for {
		select {
		case notice := <-ch:
			if err := conn.WriteJSON(notice); err != nil {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}
