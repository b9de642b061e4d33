package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"codstore.dev/storefront/pkg/models"
)

type InventoryLogRepository struct {
	collection *mongo.Collection
}

func NewInventoryLogRepository(db *mongo.Database) *InventoryLogRepository {
	return &InventoryLogRepository{collection: db.Collection(InventoryLogsCollection)}
}

func (r *InventoryLogRepository) Insert(ctx context.Context, entry *models.InventoryLog) error {
	if _, err := r.collection.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("insert inventory log for %s: %w", entry.ProductSlug, err)
	}
	return nil
}

// History returns the latest changes for a product, newest first.
func (r *InventoryLogRepository) History(ctx context.Context, slug string, limit int) ([]models.InventoryLog, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))
	logs, err := findAll[models.InventoryLog](ctx, r.collection, bson.M{"slug": slug}, opts)
	if err != nil {
		return nil, fmt.Errorf("inventory history for %s: %w", slug, err)
	}
	return logs, nil
}
