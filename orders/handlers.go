package orders

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"

	"pawmart/apperr"
	"pawmart/db"
	"pawmart/models"
	"pawmart/utils"
)

type Handlers struct {
	manager *Manager
}

func NewHandlers(manager *Manager) *Handlers {
	return &Handlers{manager: manager}
}

func fail(w http.ResponseWriter, err error) {
	utils.RespondWithJSON(w, apperr.HTTPStatus(err), map[string]string{
		"error": err.Error(),
		"kind":  apperr.Kind(err),
	})
}

// GET /api/orders
func (h *Handlers) ListMine(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	list, err := h.manager.ListByUser(ctx, userID)
	if err != nil {
		log.Println("orders list error:", err)
		fail(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, list)
}

// GET /api/orders/:orderid
func (h *Handlers) Get(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	order, err := h.manager.Get(ctx, ps.ByName("orderid"))
	if err != nil {
		fail(w, err)
		return
	}
	if order.UserID != "" && order.UserID != utils.GetUserIDFromRequest(r) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, order)
}

// POST /api/orders/:orderid/cancel
func (h *Handlers) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var body struct {
		Reason string `json:"reason"`
	}
	// Body is optional; a bare cancel is fine.
	_ = json.NewDecoder(r.Body).Decode(&body)

	order, err := h.manager.Cancel(ctx, ps.ByName("orderid"), body.Reason)
	if err != nil {
		log.Println("order cancel error:", err)
		fail(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, order)
}

// PUT /api/admin/orders/:orderid/status
func (h *Handlers) Advance(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Status == "" {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}

	order, err := h.manager.Advance(ctx, ps.ByName("orderid"), body.Status)
	if err != nil {
		log.Println("order advance error:", err)
		fail(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, order)
}

// GET /api/admin/orders returns every order, newest first.
func (h *Handlers) ListAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	cursor, err := db.OrdersCollection.Find(ctx, bson.M{})
	if err != nil {
		log.Println("admin orders Find error:", err)
		http.Error(w, "Could not retrieve orders", http.StatusInternalServerError)
		return
	}
	defer cursor.Close(ctx)

	var list []models.Order
	if err := cursor.All(ctx, &list); err != nil {
		log.Println("admin orders cursor.All error:", err)
		http.Error(w, "Error reading order data", http.StatusInternalServerError)
		return
	}
	if len(list) == 0 {
		list = []models.Order{}
	}
	utils.RespondWithJSON(w, http.StatusOK, list)
}
