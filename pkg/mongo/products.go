package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"codstore.dev/storefront/pkg/apperr"
	"codstore.dev/storefront/pkg/models"
)

type ProductRepository struct {
	collection *mongo.Collection
}

func NewProductRepository(db *mongo.Database) *ProductRepository {
	return &ProductRepository{collection: db.Collection(ProductsCollection)}
}

func (r *ProductRepository) Insert(ctx context.Context, product *models.Product) error {
	if _, err := r.collection.InsertOne(ctx, product); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperr.Conflict("slug_taken", fmt.Sprintf("a product with slug %q already exists", product.Slug))
		}
		return fmt.Errorf("insert product %s: %w", product.Slug, err)
	}
	return nil
}

func (r *ProductRepository) FindBySlug(ctx context.Context, slug string) (*models.Product, error) {
	product, ok, err := findOne[models.Product](ctx, r.collection, bson.M{"slug": slug})
	if err != nil {
		return nil, fmt.Errorf("find product %s: %w", slug, err)
	}
	if !ok {
		return nil, apperr.NotFound("product", slug)
	}
	return product, nil
}

// Update writes the mutable fields of product. Inventory is only written when
// expectedStock is set, and only while the stored stock still equals it, so a
// checkout landing between read and write is never overwritten.
func (r *ProductRepository) Update(ctx context.Context, product *models.Product, expectedStock *int) error {
	set := bson.M{
		"name":        product.Name,
		"description": product.Description,
		"price":       product.Price,
		"images":      product.Images,
		"published":   product.Published,
		"category":    product.Category,
		"updated_at":  product.UpdatedAt,
	}
	filter := bson.M{"slug": product.Slug}
	if expectedStock != nil {
		set["inventory"] = product.Inventory
		filter["inventory.stock"] = *expectedStock
	}
	update := bson.M{"$set": set}
	if product.Discount != nil {
		set["discount"] = product.Discount
	} else {
		update["$unset"] = bson.M{"discount": ""}
	}

	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("update product %s: %w", product.Slug, err)
	}
	if res.MatchedCount == 0 {
		if expectedStock == nil {
			return apperr.NotFound("product", product.Slug)
		}
		if _, err := r.FindBySlug(ctx, product.Slug); err != nil {
			return err
		}
		return apperr.StockChanged(product.Slug)
	}
	return nil
}

func (r *ProductRepository) Delete(ctx context.Context, slug string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"slug": slug})
	if err != nil {
		return fmt.Errorf("delete product %s: %w", slug, err)
	}
	if res.DeletedCount == 0 {
		return apperr.NotFound("product", slug)
	}
	return nil
}

func (r *ProductRepository) List(ctx context.Context, filter models.ProductFilter) ([]models.Product, int64, error) {
	query := bson.M{}
	if filter.Query != "" {
		query["name"] = bson.M{"$regex": regexp.QuoteMeta(filter.Query), "$options": "i"}
	}
	if filter.Category != "" {
		query["category"] = filter.Category
	}
	if filter.Published != nil {
		query["published"] = *filter.Published
	}

	sort := bson.D{{Key: "created_at", Value: -1}}
	switch filter.Sort {
	case models.SortPriceAsc:
		sort = bson.D{{Key: "price", Value: 1}, {Key: "created_at", Value: -1}}
	case models.SortPriceDesc:
		sort = bson.D{{Key: "price", Value: -1}, {Key: "created_at", Value: -1}}
	}

	items, total, err := findPage[models.Product](ctx, r.collection, query, sort, filter.Page, filter.Limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	return items, total, nil
}

func (r *ProductRepository) CountByCategory(ctx context.Context, category string) (int64, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{"category": category})
	if err != nil {
		return 0, fmt.Errorf("count products in %s: %w", category, err)
	}
	return n, nil
}

// DecrementStock removes qty units from a tracked product in one conditional
// update. Untracked products are left alone and report tracked=false.
func (r *ProductRepository) DecrementStock(ctx context.Context, slug string, qty int) (remaining int, tracked bool, err error) {
	filter := bson.M{
		"slug":            slug,
		"inventory.track": true,
		"inventory.stock": bson.M{"$gte": qty},
	}
	update := bson.M{
		"$inc": bson.M{"inventory.stock": -qty},
		"$set": bson.M{"updated_at": time.Now()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated models.Product
	err = r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if err == nil {
		return updated.Inventory.Stock, true, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return 0, false, fmt.Errorf("decrement stock %s: %w", slug, err)
	}

	// Nothing matched: find out whether the product is gone, untracked or short.
	current, err := r.FindBySlug(ctx, slug)
	if err != nil {
		return 0, false, err
	}
	if !current.Inventory.Track {
		return current.Inventory.Stock, false, nil
	}
	return 0, true, apperr.InsufficientStock(slug, current.Inventory.Stock)
}

// RestoreStock puts qty units back on a tracked product.
func (r *ProductRepository) RestoreStock(ctx context.Context, slug string, qty int) error {
	filter := bson.M{"slug": slug, "inventory.track": true}
	update := bson.M{
		"$inc": bson.M{"inventory.stock": qty},
		"$set": bson.M{"updated_at": time.Now()},
	}
	if _, err := r.collection.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("restore stock %s: %w", slug, err)
	}
	return nil
}
