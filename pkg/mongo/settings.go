package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"codstore.dev/storefront/pkg/apperr"
	"codstore.dev/storefront/pkg/models"
)

type SettingsRepository struct {
	collection *mongo.Collection
}

func NewSettingsRepository(db *mongo.Database) *SettingsRepository {
	return &SettingsRepository{collection: db.Collection(SettingsCollection)}
}

func (r *SettingsRepository) List(ctx context.Context) ([]models.Setting, error) {
	opts := options.Find().SetSort(bson.D{{Key: "category", Value: 1}, {Key: "key", Value: 1}})
	settings, err := findAll[models.Setting](ctx, r.collection, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	return settings, nil
}

func (r *SettingsRepository) Get(ctx context.Context, key string) (*models.Setting, error) {
	setting, ok, err := findOne[models.Setting](ctx, r.collection, bson.M{"key": key})
	if err != nil {
		return nil, fmt.Errorf("find setting %s: %w", key, err)
	}
	if !ok {
		return nil, apperr.NotFound("setting", key)
	}
	return setting, nil
}

func (r *SettingsRepository) UpdateValue(ctx context.Context, key string, value interface{}, at time.Time) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"key": key},
		bson.M{"$set": bson.M{"value": value, "updated_at": at}},
	)
	if err != nil {
		return fmt.Errorf("update setting %s: %w", key, err)
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("setting", key)
	}
	return nil
}

// SeedDefaults inserts each setting that does not exist yet and leaves stored
// values untouched.
func (r *SettingsRepository) SeedDefaults(ctx context.Context, defaults []models.Setting) (int, error) {
	inserted := 0
	for _, s := range defaults {
		if s.UpdatedAt.IsZero() {
			s.UpdatedAt = time.Now()
		}
		res, err := r.collection.UpdateOne(ctx,
			bson.M{"key": s.Key},
			bson.M{"$setOnInsert": s},
			options.UpdateOne().SetUpsert(true),
		)
		if err != nil {
			return inserted, fmt.Errorf("seed setting %s: %w", s.Key, err)
		}
		if res.UpsertedCount > 0 {
			inserted++
		}
	}
	return inserted, nil
}
