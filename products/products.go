package products

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"crumble/db"
	"crumble/globals"
	"crumble/models"
	"crumble/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GetProducts lists cakes with pagination and optional category/flavor filters.
func GetProducts(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	skip, limit := utils.ParsePagination(r, 20, 100)

	filter := bson.M{}
	if cat := r.URL.Query().Get("category"); cat != "" {
		filter["category"] = cat
	}
	if flavor := r.URL.Query().Get("flavor"); flavor != "" {
		filter["flavor"] = flavor
	}
	if r.URL.Query().Get("inStock") == "true" {
		filter["instock"] = true
	}

	sort := bson.D{{Key: "createdat", Value: -1}}
	if r.URL.Query().Get("sort") == "price" {
		sort = bson.D{{Key: "price", Value: 1}}
	}

	opts := options.Find().SetSkip(skip).SetLimit(limit).SetSort(sort)
	products, err := utils.FindAndDecode[models.Product](ctx, db.ProductCollection, filter, opts)
	if err != nil {
		log.Println("GetProducts find error:", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to retrieve products")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"products": products, "count": len(products)})
}

// GetProduct returns one cake by id.
func GetProduct(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var product models.Product
	err := db.ProductCollection.FindOne(r.Context(), bson.M{"productid": ps.ByName("id")}).Decode(&product)
	if err == mongo.ErrNoDocuments {
		utils.RespondWithError(w, http.StatusNotFound, "Product not found")
		return
	}
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to retrieve product")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, product)
}

// CreateProduct adds a cake to the catalog. Owner only.
func CreateProduct(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)

	var product models.Product
	if err := json.NewDecoder(r.Body).Decode(&product); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	if product.Name == "" || product.Price < 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "Missing or invalid fields")
		return
	}

	product.ProductID = utils.GetUUID()
	if product.ShopID == "" {
		product.ShopID = globals.DefaultShopID
	}
	product.CreatedBy = userID
	product.CreatedAt = time.Now()
	product.UpdatedAt = product.CreatedAt
	product.Rating = 0
	product.Reviews = 0

	if _, err := db.ProductCollection.InsertOne(r.Context(), product); err != nil {
		log.Println("CreateProduct insert error:", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to create product")
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, product)
}

// UpdateProduct edits catalog fields. Owner only.
func UpdateProduct(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var patch map[string]any
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	allowed := map[string]bool{
		"name": true, "description": true, "category": true, "flavor": true,
		"price": true, "image": true, "thumbnail": true, "instock": true,
		"servesupto": true,
	}
	update := bson.M{"updatedat": time.Now()}
	for k, v := range patch {
		if allowed[k] {
			update[k] = v
		}
	}

	res, err := db.ProductCollection.UpdateOne(r.Context(),
		bson.M{"productid": ps.ByName("id")},
		bson.M{"$set": update},
	)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update product")
		return
	}
	if res.MatchedCount == 0 {
		utils.RespondWithError(w, http.StatusNotFound, "Product not found")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// DeleteProduct removes a cake from the catalog. Owner only.
func DeleteProduct(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	res, err := db.ProductCollection.DeleteOne(r.Context(), bson.M{"productid": ps.ByName("id")})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to delete product")
		return
	}
	if res.DeletedCount == 0 {
		utils.RespondWithError(w, http.StatusNotFound, "Product not found")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
