package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"codstore.dev/storefront/pkg/apperr"
	"codstore.dev/storefront/pkg/models"
)

type CategoryRepository struct {
	collection *mongo.Collection
}

func NewCategoryRepository(db *mongo.Database) *CategoryRepository {
	return &CategoryRepository{collection: db.Collection(CategoriesCollection)}
}

func (r *CategoryRepository) Insert(ctx context.Context, category *models.Category) error {
	if _, err := r.collection.InsertOne(ctx, category); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperr.Conflict("category_exists", fmt.Sprintf("category %q already exists", category.Slug))
		}
		return fmt.Errorf("insert category %s: %w", category.Slug, err)
	}
	return nil
}

func (r *CategoryRepository) FindBySlug(ctx context.Context, slug string) (*models.Category, error) {
	category, ok, err := findOne[models.Category](ctx, r.collection, bson.M{"slug": slug})
	if err != nil {
		return nil, fmt.Errorf("find category %s: %w", slug, err)
	}
	if !ok {
		return nil, apperr.NotFound("category", slug)
	}
	return category, nil
}

func (r *CategoryRepository) List(ctx context.Context) ([]models.Category, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	categories, err := findAll[models.Category](ctx, r.collection, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

func (r *CategoryRepository) Delete(ctx context.Context, slug string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"slug": slug})
	if err != nil {
		return fmt.Errorf("delete category %s: %w", slug, err)
	}
	if res.DeletedCount == 0 {
		return apperr.NotFound("category", slug)
	}
	return nil
}
