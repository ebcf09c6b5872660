package reviews

import (
	"context"
	"encoding/json"
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

// GetReviews lists reviews for a product, newest first.
func GetReviews(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	skip, limit := utils.ParsePagination(r, 10, 100)
	filter := bson.M{"productid": ps.ByName("productId")}
	opts := options.Find().SetSkip(skip).SetLimit(limit).SetSort(bson.D{{Key: "createdat", Value: -1}})

	reviews, err := utils.FindAndDecode[models.Review](ctx, db.ReviewsCollection, filter, opts)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to retrieve reviews")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"reviews": reviews, "count": len(reviews)})
}

// AddReview creates one review per user per product and refreshes the
// product's aggregate rating.
func AddReview(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, ok := r.Context().Value(globals.UserIDKey).(string)
	if !ok || userID == "" {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	productID := ps.ByName("productId")

	count, err := db.ReviewsCollection.CountDocuments(r.Context(), bson.M{
		"userid":    userID,
		"productid": productID,
	})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if count > 0 {
		utils.RespondWithError(w, http.StatusConflict, "You have already reviewed this product")
		return
	}

	var input struct {
		Rating  int    `json:"rating"`
		Comment string `json:"comment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	if input.Rating < 1 || input.Rating > 5 {
		utils.RespondWithError(w, http.StatusBadRequest, "Rating must be between 1 and 5")
		return
	}

	review := models.Review{
		ReviewID:  utils.GetUUID(),
		ProductID: productID,
		UserID:    userID,
		Rating:    input.Rating,
		Comment:   input.Comment,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if _, err := db.ReviewsCollection.InsertOne(r.Context(), review); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to add review")
		return
	}

	refreshProductRating(r.Context(), productID)
	utils.RespondWithJSON(w, http.StatusCreated, review)
}

// EditReview updates the caller's own review.
func EditReview(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, _ := r.Context().Value(globals.UserIDKey).(string)

	var input struct {
		Rating  int    `json:"rating"`
		Comment string `json:"comment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	if input.Rating < 1 || input.Rating > 5 {
		utils.RespondWithError(w, http.StatusBadRequest, "Rating must be between 1 and 5")
		return
	}

	res, err := db.ReviewsCollection.UpdateOne(r.Context(),
		bson.M{"reviewid": ps.ByName("reviewId"), "userid": userID},
		bson.M{"$set": bson.M{"rating": input.Rating, "comment": input.Comment, "updatedat": time.Now()}},
	)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update review")
		return
	}
	if res.MatchedCount == 0 {
		utils.RespondWithError(w, http.StatusNotFound, "Review not found")
		return
	}

	refreshProductRating(r.Context(), ps.ByName("productId"))
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// DeleteReview removes the caller's own review.
func DeleteReview(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, _ := r.Context().Value(globals.UserIDKey).(string)

	res, err := db.ReviewsCollection.DeleteOne(r.Context(),
		bson.M{"reviewid": ps.ByName("reviewId"), "userid": userID})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to delete review")
		return
	}
	if res.DeletedCount == 0 {
		utils.RespondWithError(w, http.StatusNotFound, "Review not found")
		return
	}

	refreshProductRating(r.Context(), ps.ByName("productId"))
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// refreshProductRating recomputes the average rating and review count stored
// on the product record.
func refreshProductRating(ctx context.Context, productID string) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"productid": productID}}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"avg":   bson.M{"$avg": "$rating"},
			"count": bson.M{"$sum": 1},
		}}},
	}
	cur, err := db.ReviewsCollection.Aggregate(ctx, pipeline)
	if err != nil {
		return
	}
	defer cur.Close(ctx)

	var results []struct {
		Avg   float64 `bson:"avg"`
		Count int     `bson:"count"`
	}
	if err := cur.All(ctx, &results); err != nil {
		return
	}

	avg, count := 0.0, 0
	if len(results) > 0 {
		avg, count = results[0].Avg, results[0].Count
	}
	db.ProductCollection.UpdateOne(ctx,
		bson.M{"productid": productID},
		bson.M{"$set": bson.M{"rating": avg, "reviews": count}},
	)
}
