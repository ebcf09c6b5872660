package cart

import (
	"context"
	"time"

	"crumble/db"
	"crumble/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// RemoteStore is the per-user durable cart tier, available only while
// authenticated.
type RemoteStore interface {
	ReadCart(ctx context.Context, userID string) ([]models.LineItem, error)
	WriteCart(ctx context.Context, userID string, items []models.LineItem) error
}

// LocalStore is the device-scoped tier: a staging area while anonymous and a
// fallback when the remote tier is down. Values are opaque strings (the
// engine stores JSON-encoded compressed items).
type LocalStore interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Available(ctx context.Context) bool
}

// Catalog resolves product ids to full records for decompression.
type Catalog interface {
	LookupByID(ctx context.Context, id string) (*models.Product, error)
}

// cartDoc is the remote tier's document shape, one per user.
type cartDoc struct {
	UserID    string            `bson:"userid"`
	Items     []models.LineItem `bson:"items"`
	UpdatedAt time.Time         `bson:"updatedat"`
}

// MongoStore implements RemoteStore over db.CartCollection.
type MongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore() *MongoStore {
	return &MongoStore{coll: db.CartCollection}
}

func (s *MongoStore) ReadCart(ctx context.Context, userID string) ([]models.LineItem, error) {
	var doc cartDoc
	err := s.coll.FindOne(ctx, bson.M{"userid": userID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc.Items, nil
}

func (s *MongoStore) WriteCart(ctx context.Context, userID string, items []models.LineItem) error {
	doc := cartDoc{UserID: userID, Items: items, UpdatedAt: time.Now()}
	opts := options.Replace().SetUpsert(true)
	_, err := s.coll.ReplaceOne(ctx, bson.M{"userid": userID}, doc, opts)
	return err
}
