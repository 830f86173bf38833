package checkout

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

type Handlers struct {
	orchestrator *Orchestrator
}

func NewHandlers(orchestrator *Orchestrator) *Handlers {
	return &Handlers{orchestrator: orchestrator}
}

// POST /api/checkout
func (h *Handlers) Checkout(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	var body struct {
		Items         []string `json:"items"`
		PaymentMethod string   `json:"paymentMethod"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}

	deviceID := utils.GetDeviceID(r)
	userID := utils.GetUserIDFromRequest(r)
	if deviceID == "" || userID == "" {
		http.Error(w, "Sign in to check out", http.StatusUnauthorized)
		return
	}

	order, err := h.orchestrator.Checkout(ctx, deviceID, userID, body.Items, body.PaymentMethod)
	if err != nil {
		log.Println("checkout error:", err)
		utils.RespondWithJSON(w, apperr.HTTPStatus(err), map[string]string{
			"error": err.Error(),
			"kind":  apperr.Kind(err),
		})
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, order)
}
