package products

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"pawmart/apperr"
	"pawmart/db"
	"pawmart/models"
	"pawmart/mq"
	"pawmart/stock"
	"pawmart/utils"
)

type Handlers struct {
	guard *stock.Guard
}

func NewHandlers(guard *stock.Guard) *Handlers {
	return &Handlers{guard: guard}
}

// GET /api/products returns the catalog, optional ?category= filter.
func (h *Handlers) GetProducts(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	filter := bson.M{}
	if cat := r.URL.Query().Get("category"); cat != "" {
		filter["category"] = cat
	}

	cursor, err := db.ProductsCollection.Find(ctx, filter)
	if err != nil {
		log.Println("GetProducts Find error:", err)
		http.Error(w, "Could not retrieve products", http.StatusInternalServerError)
		return
	}
	defer cursor.Close(ctx)

	var list []models.Product
	if err := cursor.All(ctx, &list); err != nil {
		log.Println("GetProducts cursor.All error:", err)
		http.Error(w, "Error reading product data", http.StatusInternalServerError)
		return
	}
	if len(list) == 0 {
		list = []models.Product{}
	}
	utils.RespondWithJSON(w, http.StatusOK, list)
}

// GET /api/products/:productid
func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var product models.Product
	err := db.ProductsCollection.FindOne(ctx, bson.M{"_id": ps.ByName("productid")}).Decode(&product)
	if err == mongo.ErrNoDocuments {
		http.Error(w, "Product not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Println("GetProduct FindOne error:", err)
		http.Error(w, "Could not retrieve product", http.StatusInternalServerError)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, product)
}

// POST /api/admin/products
func (h *Handlers) CreateProduct(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var product models.Product
	if err := json.NewDecoder(r.Body).Decode(&product); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	if product.Name == "" || product.Price < 0 || product.Stock < 0 {
		http.Error(w, "Missing or invalid fields", http.StatusBadRequest)
		return
	}

	product.ProductID = "p" + utils.GenerateID(12)
	product.CreatedAt = time.Now()
	product.UpdatedAt = product.CreatedAt

	doc := bson.M{
		"_id":         product.ProductID,
		"productid":   product.ProductID,
		"name":        product.Name,
		"description": product.Description,
		"category":    product.Category,
		"price":       product.Price,
		"stock":       product.Stock,
		"imagepath":   product.ImagePath,
		"createdat":   product.CreatedAt,
		"updatedat":   product.UpdatedAt,
	}
	if _, err := db.ProductsCollection.InsertOne(ctx, doc); err != nil {
		log.Println("CreateProduct InsertOne error:", err)
		http.Error(w, "Failed to create product", http.StatusInternalServerError)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, product)
}

// PUT /api/admin/products/:productid updates catalog fields. Stock is
// deliberately not writable here; quantity changes go through AdjustStock so
// every stock mutation passes the guard.
func (h *Handlers) EditProduct(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var body struct {
		Name        *string  `json:"name"`
		Description *string  `json:"description"`
		Category    *string  `json:"category"`
		Price       *float64 `json:"price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}

	set := bson.M{"updatedat": time.Now()}
	if body.Name != nil {
		set["name"] = *body.Name
	}
	if body.Description != nil {
		set["description"] = *body.Description
	}
	if body.Category != nil {
		set["category"] = *body.Category
	}
	if body.Price != nil {
		if *body.Price < 0 {
			http.Error(w, "Price must be non-negative", http.StatusBadRequest)
			return
		}
		set["price"] = *body.Price
	}

	res, err := db.ProductsCollection.UpdateOne(ctx, bson.M{"_id": ps.ByName("productid")}, bson.M{"$set": set})
	if err != nil {
		log.Println("EditProduct UpdateOne error:", err)
		http.Error(w, "Failed to update product", http.StatusInternalServerError)
		return
	}
	if res.MatchedCount == 0 {
		http.Error(w, "Product not found", http.StatusNotFound)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// DELETE /api/admin/products/:productid
func (h *Handlers) DeleteProduct(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if _, err := db.ProductsCollection.DeleteOne(ctx, bson.M{"_id": ps.ByName("productid")}); err != nil {
		log.Println("DeleteProduct error:", err)
		http.Error(w, "Failed to delete product", http.StatusInternalServerError)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// POST /api/admin/products/:productid/stock applies a signed stock delta
// through the stock guard.
func (h *Handlers) AdjustStock(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var body struct {
		Delta int `json:"delta"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Delta == 0 {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}

	productID := ps.ByName("productid")
	var err error
	if body.Delta > 0 {
		err = h.guard.Restore(ctx, productID, body.Delta)
	} else {
		err = h.guard.Decrement(ctx, productID, -body.Delta)
	}
	if err != nil {
		log.Println("AdjustStock error:", err)
		utils.RespondWithJSON(w, apperr.HTTPStatus(err), map[string]string{
			"error": err.Error(),
			"kind":  apperr.Kind(err),
		})
		return
	}

	product, err := h.guard.Product(ctx, productID)
	if err != nil {
		utils.RespondWithJSON(w, apperr.HTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	mq.Emit(ctx, "stock-adjusted", mq.Event{
		Type:      "stock-adjusted",
		ProductID: productID,
		Quantity:  body.Delta,
	})
	utils.RespondWithJSON(w, http.StatusOK, product)
}
