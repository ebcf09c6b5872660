package dashboard

import (
	"context"
	"net/http"
	"time"

	"crumble/db"
	"crumble/models"
	"crumble/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Overview aggregates the shop-owner dashboard numbers: revenue, order
// counts by status, and best-selling cakes over the last 30 days.
func Overview(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	since := time.Now().AddDate(0, 0, -30)

	byStatus, err := ordersByStatus(ctx)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to aggregate orders")
		return
	}

	revenue, orderCount, err := revenueSince(ctx, since)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to aggregate revenue")
		return
	}

	topCakes, err := topProducts(ctx, since, 5)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to aggregate products")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"ordersByStatus": byStatus,
		"revenue30d":     revenue,
		"orders30d":      orderCount,
		"topProducts":    topCakes,
	})
}

func ordersByStatus(ctx context.Context) (map[string]int, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$group", Value: bson.M{
			"_id":   "$status",
			"count": bson.M{"$sum": 1},
		}}},
	}
	cur, err := db.OrderCollection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var rows []struct {
		Status string `bson:"_id"`
		Count  int    `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}

	out := make(map[string]int, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}

func revenueSince(ctx context.Context, since time.Time) (float64, int, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{
			"createdat": bson.M{"$gte": since},
			"status":    bson.M{"$ne": models.OrderCancelled},
		}}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id":     nil,
			"revenue": bson.M{"$sum": "$total"},
			"count":   bson.M{"$sum": 1},
		}}},
	}
	cur, err := db.OrderCollection.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, 0, err
	}
	defer cur.Close(ctx)

	var rows []struct {
		Revenue float64 `bson:"revenue"`
		Count   int     `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return 0, 0, err
	}
	if len(rows) == 0 {
		return 0, 0, nil
	}
	return rows[0].Revenue, rows[0].Count, nil
}

func topProducts(ctx context.Context, since time.Time, limit int) ([]bson.M, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{
			"createdat": bson.M{"$gte": since},
			"status":    bson.M{"$ne": models.OrderCancelled},
		}}},
		bson.D{{Key: "$unwind", Value: "$items"}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id":     "$items.id",
			"name":    bson.M{"$first": "$items.name"},
			"sold":    bson.M{"$sum": "$items.quantity"},
			"revenue": bson.M{"$sum": bson.M{"$multiply": bson.A{"$items.price", "$items.quantity"}}},
		}}},
		bson.D{{Key: "$sort", Value: bson.M{"sold": -1}}},
		bson.D{{Key: "$limit", Value: limit}},
	}
	cur, err := db.OrderCollection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var rows []bson.M
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}
