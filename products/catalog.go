package products

import (
	"context"

	"crumble/db"
	"crumble/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoCatalog satisfies cart.Catalog: it resolves product ids so the engine
// can rehydrate compressed cart entries with display fields.
type MongoCatalog struct{}

func NewCatalog() *MongoCatalog {
	return &MongoCatalog{}
}

func (MongoCatalog) LookupByID(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	err := db.ProductCollection.FindOne(ctx, bson.M{"productid": id}).Decode(&product)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}
