package products

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"

	"pawmart/db"
	"pawmart/utils"
)

const productImageDir = "./uploads/products"

func ensureDirExists(dir string) error {
	return os.MkdirAll(dir, 0o755)
}

// POST /api/admin/products/:productid/image accepts a multipart "image" file,
// stores the original plus a 300px thumbnail and records the path.
func (h *Handlers) UploadImage(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 20*time.Second)
	defer cancel()

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		http.Error(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		http.Error(w, "Missing image file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	img, err := imaging.Decode(file)
	if err != nil {
		http.Error(w, "Failed to decode image", http.StatusBadRequest)
		return
	}

	productID := ps.ByName("productid")
	uniqueID := utils.GenerateID(16)
	fileName := uniqueID + ".jpg"

	originalPath := filepath.Join(productImageDir, fileName)
	thumbDir := filepath.Join(productImageDir, "thumb")
	thumbnailPath := filepath.Join(thumbDir, fileName)

	if err := ensureDirExists(productImageDir); err != nil {
		http.Error(w, "Failed to create upload directory", http.StatusInternalServerError)
		return
	}
	if err := ensureDirExists(thumbDir); err != nil {
		http.Error(w, "Failed to create thumbnail directory", http.StatusInternalServerError)
		return
	}

	if err := imaging.Save(img, originalPath); err != nil {
		log.Println("UploadImage save error:", err)
		http.Error(w, "Failed to save image", http.StatusInternalServerError)
		return
	}

	thumbImg := imaging.Resize(img, 300, 0, imaging.Lanczos)
	if err := imaging.Save(thumbImg, thumbnailPath); err != nil {
		log.Println("UploadImage thumbnail error:", err)
		http.Error(w, "Failed to save thumbnail", http.StatusInternalServerError)
		return
	}

	imagePath := "/productpic/" + fileName
	res, err := db.ProductsCollection.UpdateOne(ctx,
		bson.M{"_id": productID},
		bson.M{"$set": bson.M{"imagepath": imagePath, "updatedat": time.Now()}},
	)
	if err != nil {
		log.Println("UploadImage UpdateOne error:", err)
		http.Error(w, "Failed to record image path", http.StatusInternalServerError)
		return
	}
	if res.MatchedCount == 0 {
		http.Error(w, "Product not found", http.StatusNotFound)
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, map[string]string{
		"imagePath": imagePath,
		"thumbnail": fmt.Sprintf("/productpic/thumb/%s", fileName),
	})
}
