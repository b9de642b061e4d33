package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// findAll decodes every document matching filter.
func findAll[T any](ctx context.Context, collection *mongo.Collection, filter interface{}, opts ...options.Lister[options.FindOptions]) ([]T, error) {
	cursor, err := collection.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	items := []T{}
	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}

	return items, nil
}

// findPage runs a counted, paginated find.
func findPage[T any](ctx context.Context, collection *mongo.Collection, filter bson.M, sort bson.D, page, limit int) ([]T, int64, error) {
	total, err := collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(sort).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	items, err := findAll[T](ctx, collection, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// findOne decodes a single document; ok is false when nothing matched.
func findOne[T any](ctx context.Context, collection *mongo.Collection, filter interface{}) (*T, bool, error) {
	var out T
	err := collection.FindOne(ctx, filter).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &out, true, nil
}
