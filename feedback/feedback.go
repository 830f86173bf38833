package feedback

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"

	"pawmart/db"
	"pawmart/models"
	"pawmart/utils"
)

// POST /api/feedback
func Submit(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var item models.Feedback
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	if item.Message == "" {
		http.Error(w, "Message is required", http.StatusBadRequest)
		return
	}

	item.FeedbackID = "f" + utils.GenerateID(12)
	item.UserID = utils.GetUserIDFromRequest(r)
	item.CreatedAt = time.Now()

	if _, err := db.FeedbackCollection.InsertOne(ctx, item); err != nil {
		log.Println("Submit feedback InsertOne error:", err)
		http.Error(w, "Failed to save feedback", http.StatusInternalServerError)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, map[string]string{"status": "received"})
}

// GET /api/admin/feedback
func List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	cursor, err := db.FeedbackCollection.Find(ctx, bson.M{})
	if err != nil {
		log.Println("List feedback Find error:", err)
		http.Error(w, "Could not retrieve feedback", http.StatusInternalServerError)
		return
	}
	defer cursor.Close(ctx)

	var list []models.Feedback
	if err := cursor.All(ctx, &list); err != nil {
		log.Println("List feedback cursor.All error:", err)
		http.Error(w, "Error reading feedback data", http.StatusInternalServerError)
		return
	}
	if len(list) == 0 {
		list = []models.Feedback{}
	}
	utils.RespondWithJSON(w, http.StatusOK, list)
}
