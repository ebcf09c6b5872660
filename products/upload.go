package products

import (
	"net/http"
	"time"

	"crumble/db"
	"crumble/filemgr"
	"crumble/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
)

// UploadProductImage accepts a multipart photo for a cake and attaches the
// stored image and thumbnail paths to its catalog record. Owner only.
func UploadProductImage(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Missing image file")
		return
	}
	defer file.Close()

	imagePath, thumbPath, err := filemgr.SaveProductImage(file, header)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to save image")
		return
	}

	res, err := db.ProductCollection.UpdateOne(r.Context(),
		bson.M{"productid": ps.ByName("id")},
		bson.M{"$set": bson.M{"image": imagePath, "thumbnail": thumbPath, "updatedat": time.Now()}},
	)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update product")
		return
	}
	if res.MatchedCount == 0 {
		utils.RespondWithError(w, http.StatusNotFound, "Product not found")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"image": imagePath, "thumbnail": thumbPath})
}
