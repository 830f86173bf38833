package cart

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"pawmart/apperr"
	"pawmart/utils"
)

// Handlers exposes the cart store over HTTP. The device identity comes from
// the X-Device-ID header; the user identity, when present, from the JWT.
type Handlers struct {
	store *Store
}

func NewHandlers(store *Store) *Handlers {
	return &Handlers{store: store}
}

func fail(w http.ResponseWriter, err error) {
	utils.RespondWithJSON(w, apperr.HTTPStatus(err), map[string]string{
		"error": err.Error(),
		"kind":  apperr.Kind(err),
	})
}

// POST /api/cart/init
// Called on session start and again on every sign-in or sign-out transition.
func (h *Handlers) Initialize(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	deviceID := utils.GetDeviceID(r)
	if deviceID == "" {
		http.Error(w, "Missing device identity", http.StatusBadRequest)
		return
	}

	lines, err := h.store.Initialize(ctx, deviceID, utils.GetUserIDFromRequest(r))
	if err != nil {
		log.Println("cart initialize error:", err)
		fail(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, lines)
}

// GET /api/cart
func (h *Handlers) Get(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	deviceID := utils.GetDeviceID(r)
	if deviceID == "" {
		http.Error(w, "Missing device identity", http.StatusBadRequest)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, h.store.Lines(deviceID))
}

// POST /api/cart/items
func (h *Handlers) AddItem(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var body struct {
		ProductID string `json:"productId"`
		Quantity  int    `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ProductID == "" {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}

	deviceID := utils.GetDeviceID(r)
	if deviceID == "" {
		http.Error(w, "Missing device identity", http.StatusBadRequest)
		return
	}

	if err := h.store.AddItem(ctx, deviceID, body.ProductID, body.Quantity); err != nil {
		log.Println("cart add error:", err)
		fail(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, h.store.Lines(deviceID))
}

// PUT /api/cart/items/:productid
func (h *Handlers) UpdateQuantity(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var body struct {
		Delta int `json:"delta"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Delta == 0 {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}

	deviceID := utils.GetDeviceID(r)
	if deviceID == "" {
		http.Error(w, "Missing device identity", http.StatusBadRequest)
		return
	}

	if err := h.store.UpdateQuantity(ctx, deviceID, ps.ByName("productid"), body.Delta); err != nil {
		log.Println("cart update error:", err)
		fail(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, h.store.Lines(deviceID))
}

// DELETE /api/cart/items/:productid
func (h *Handlers) RemoveItem(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	deviceID := utils.GetDeviceID(r)
	if deviceID == "" {
		http.Error(w, "Missing device identity", http.StatusBadRequest)
		return
	}
	h.store.RemoveItem(deviceID, ps.ByName("productid"))
	utils.RespondWithJSON(w, http.StatusOK, h.store.Lines(deviceID))
}

// DELETE /api/cart
func (h *Handlers) Clear(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	deviceID := utils.GetDeviceID(r)
	if deviceID == "" {
		http.Error(w, "Missing device identity", http.StatusBadRequest)
		return
	}
	h.store.Clear(deviceID)
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}
