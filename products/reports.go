package products

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"

	"pawmart/db"
	"pawmart/models"
	"pawmart/utils"
)

const lowStockThreshold = 5

func respondList(w http.ResponseWriter, ctx context.Context, filter bson.M, label string) {
	cursor, err := db.ProductsCollection.Find(ctx, filter)
	if err != nil {
		log.Printf("%s Find error: %v", label, err)
		http.Error(w, "Could not retrieve products", http.StatusInternalServerError)
		return
	}
	defer cursor.Close(ctx)

	var list []models.Product
	if err := cursor.All(ctx, &list); err != nil {
		log.Printf("%s cursor.All error: %v", label, err)
		http.Error(w, "Error reading product data", http.StatusInternalServerError)
		return
	}
	if len(list) == 0 {
		list = []models.Product{}
	}
	utils.RespondWithJSON(w, http.StatusOK, list)
}

// GET /api/admin/products/out-of-stock
func (h *Handlers) OutOfStock(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	respondList(w, ctx, bson.M{"stock": 0}, "OutOfStock")
}

// GET /api/admin/products/low-stock
func (h *Handlers) LowStock(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	respondList(w, ctx, bson.M{"stock": bson.M{"$gt": 0, "$lte": lowStockThreshold}}, "LowStock")
}
