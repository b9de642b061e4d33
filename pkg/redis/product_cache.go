package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"codstore.dev/storefront/pkg/models"
)

// ProductCache keeps product documents keyed by slug, plus a per-category
// slug list and a recent list that are trimmed on removal.
type ProductCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewProductCache(client *redis.Client, ttl time.Duration) *ProductCache {
	return &ProductCache{client: client, ttl: ttl}
}

func productKey(slug string) string {
	return fmt.Sprintf("product:%s", slug)
}

func (c *ProductCache) Get(ctx context.Context, slug string) (*models.Product, bool, error) {
	productJSON, err := c.client.Get(ctx, productKey(slug)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var product models.Product
	if err := json.Unmarshal(productJSON, &product); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal product: %w", err)
	}

	return &product, true, nil
}

// Set stores a single product using slug-based keys
func (c *ProductCache) Set(ctx context.Context, product *models.Product) error {
	// Serialize product to JSON
	productJSON, err := json.Marshal(product)
	if err != nil {
		return fmt.Errorf("failed to marshal product %s: %w", product.Slug, err)
	}

	// Use pipeline for atomic operations
	pipe := c.client.TxPipeline()

	pipe.Set(ctx, productKey(product.Slug), productJSON, c.ttl)

	// Add to category-based lists for filtering
	categoryKey := fmt.Sprintf("category:%s", product.Category)
	pipe.LRem(ctx, categoryKey, 0, product.Slug)
	pipe.LPush(ctx, categoryKey, product.Slug)
	pipe.Expire(ctx, categoryKey, c.ttl)

	// Add to recent products list
	pipe.LRem(ctx, "products:recent", 0, product.Slug)
	pipe.LPush(ctx, "products:recent", product.Slug)
	// Keep only the 100 most recent products
	pipe.LTrim(ctx, "products:recent", 0, 99)
	pipe.Expire(ctx, "products:recent", c.ttl)

	// Execute all operations atomically
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to execute Redis pipeline for product %s: %w", product.Slug, err)
	}

	return nil
}

// Remove drops products and their list entries by slug
func (c *ProductCache) Remove(ctx context.Context, products ...*models.Product) error {
	if len(products) == 0 {
		return nil
	}

	pipe := c.client.TxPipeline()
	for _, product := range products {
		pipe.Del(ctx, productKey(product.Slug))
		if product.Category != "" {
			pipe.LRem(ctx, fmt.Sprintf("category:%s", product.Category), 0, product.Slug)
		}
		pipe.LRem(ctx, "products:recent", 0, product.Slug)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to remove products from Redis cache: %w", err)
	}

	return nil
}

// RemoveSlugs drops cached product documents when only the slugs are known.
func (c *ProductCache) RemoveSlugs(ctx context.Context, slugs ...string) error {
	if len(slugs) == 0 {
		return nil
	}
	keys := make([]string, len(slugs))
	for i, slug := range slugs {
		keys[i] = productKey(slug)
	}
	return c.client.Del(ctx, keys...).Err()
}
