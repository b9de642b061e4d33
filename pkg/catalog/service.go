// Package catalog manages products and categories.
package catalog

import (
	"context"
	"fmt"
	"log"

	"codstore.dev/storefront/pkg/apperr"
	"codstore.dev/storefront/pkg/global"
	"codstore.dev/storefront/pkg/models"
)

const DefaultPageLimit = 12

type ProductStore interface {
	Insert(ctx context.Context, product *models.Product) error
	FindBySlug(ctx context.Context, slug string) (*models.Product, error)
	Update(ctx context.Context, product *models.Product, expectedStock *int) error
	Delete(ctx context.Context, slug string) error
	List(ctx context.Context, filter models.ProductFilter) ([]models.Product, int64, error)
	CountByCategory(ctx context.Context, category string) (int64, error)
}

type CategoryStore interface {
	Insert(ctx context.Context, category *models.Category) error
	FindBySlug(ctx context.Context, slug string) (*models.Category, error)
	List(ctx context.Context) ([]models.Category, error)
	Delete(ctx context.Context, slug string) error
}

type ProductCache interface {
	Get(ctx context.Context, slug string) (*models.Product, bool, error)
	Set(ctx context.Context, product *models.Product) error
	Remove(ctx context.Context, products ...*models.Product) error
}

type InventoryLogger interface {
	Insert(ctx context.Context, entry *models.InventoryLog) error
}

type Service struct {
	products   ProductStore
	categories CategoryStore
	cache      ProductCache
	inventory  InventoryLogger
}

func NewService(products ProductStore, categories CategoryStore, cache ProductCache, inventory InventoryLogger) *Service {
	return &Service{products: products, categories: categories, cache: cache, inventory: inventory}
}

func (s *Service) CreateProduct(ctx context.Context, req *models.CreateProductRequest, actor string) (*models.Product, error) {
	product := req.ToProduct()
	if err := product.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.categories.FindBySlug(ctx, product.Category); err != nil {
		return nil, err
	}
	if err := s.products.Insert(ctx, product); err != nil {
		return nil, err
	}

	if product.Inventory.Track && product.Inventory.Stock > 0 {
		s.logInventory(ctx, models.NewInventoryLog(product.Slug, models.ChangeAdjustment, product.Inventory.Stock, product.Inventory.Stock, actor))
	}
	log.Printf("[catalog] Created product %s", product.Slug)
	return product, nil
}

// UpdateProduct applies a partial update. The slug never changes and the new
// values only affect orders placed afterwards.
func (s *Service) UpdateProduct(ctx context.Context, slug string, req *models.UpdateProductRequest, actor string) (*models.Product, error) {
	if req.IsEmpty() {
		return nil, apperr.Validation("body", "no fields to update")
	}

	product, err := s.products.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	before := *product
	beforeStock := product.Inventory.Stock

	req.ApplyTo(product)
	if err := product.Validate(); err != nil {
		return nil, err
	}
	if product.Category != before.Category {
		if _, err := s.categories.FindBySlug(ctx, product.Category); err != nil {
			return nil, err
		}
	}

	var expectedStock *int
	if req.Inventory != nil {
		expectedStock = &beforeStock
	}
	if err := s.products.Update(ctx, product, expectedStock); err != nil {
		return nil, err
	}
	s.evict(ctx, &before, product)

	if req.Inventory != nil && product.Inventory.Stock != beforeStock {
		delta := product.Inventory.Stock - beforeStock
		s.logInventory(ctx, models.NewInventoryLog(slug, models.ChangeAdjustment, product.Inventory.Stock, delta, actor))
	}
	return product, nil
}

func (s *Service) DeleteProduct(ctx context.Context, slug string) error {
	product, err := s.products.FindBySlug(ctx, slug)
	if err != nil {
		return err
	}
	if err := s.products.Delete(ctx, slug); err != nil {
		return err
	}
	s.evict(ctx, product)
	log.Printf("[catalog] Deleted product %s", slug)
	return nil
}

// GetProduct reads through the cache. Unpublished products are only visible
// to admins.
func (s *Service) GetProduct(ctx context.Context, slug string, admin bool) (*models.Product, error) {
	product, found, err := s.cache.Get(ctx, slug)
	if err != nil {
		log.Printf("[catalog] Cache error for %s: %v", slug, err)
	}
	if !found {
		product, err = s.products.FindBySlug(ctx, slug)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(ctx, product); err != nil {
			log.Printf("[catalog] Warning: failed to cache product %s: %v", slug, err)
		}
	}

	if !product.Published && !admin {
		return nil, apperr.NotFound("product", slug)
	}
	return product, nil
}

// ListProducts pages through the catalog. Non-admin callers only ever see
// published products.
func (s *Service) ListProducts(ctx context.Context, filter models.ProductFilter, admin bool) (*global.Page[models.ProductView], error) {
	switch filter.Sort {
	case "":
		filter.Sort = models.SortNewest
	case models.SortNewest, models.SortPriceAsc, models.SortPriceDesc:
	default:
		return nil, apperr.Validation("sort", fmt.Sprintf("unknown sort %q", filter.Sort))
	}
	if !admin {
		published := true
		filter.Published = &published
	}
	filter.Page, filter.Limit = global.NormalizePage(filter.Page, filter.Limit, DefaultPageLimit)

	products, total, err := s.products.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	views := make([]models.ProductView, len(products))
	for i := range products {
		views[i] = products[i].View()
	}
	return &global.Page[models.ProductView]{Items: views, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

func (s *Service) CreateCategory(ctx context.Context, req *models.CreateCategoryRequest) (*models.Category, error) {
	category, err := req.ToCategory()
	if err != nil {
		return nil, err
	}
	if err := s.categories.Insert(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

func (s *Service) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.categories.List(ctx)
}

// DeleteCategory refuses while any product still references the category.
func (s *Service) DeleteCategory(ctx context.Context, slug string) error {
	if _, err := s.categories.FindBySlug(ctx, slug); err != nil {
		return err
	}
	n, err := s.products.CountByCategory(ctx, slug)
	if err != nil {
		return err
	}
	if n > 0 {
		e := apperr.Conflict("category_in_use", fmt.Sprintf("category %q is used by %d products", slug, n))
		e.Details = map[string]interface{}{"products": n}
		return e
	}
	return s.categories.Delete(ctx, slug)
}

// InvalidateProducts drops cached copies after stock changes elsewhere.
func (s *Service) InvalidateProducts(ctx context.Context, slugs ...string) {
	products := make([]*models.Product, len(slugs))
	for i, slug := range slugs {
		products[i] = &models.Product{Slug: slug}
	}
	s.evict(ctx, products...)
}

func (s *Service) evict(ctx context.Context, products ...*models.Product) {
	if err := s.cache.Remove(ctx, products...); err != nil {
		log.Printf("[catalog] Warning: failed to evict products from cache: %v", err)
	}
}

func (s *Service) logInventory(ctx context.Context, entry *models.InventoryLog) {
	if s.inventory == nil {
		return
	}
	if err := s.inventory.Insert(ctx, entry); err != nil {
		log.Printf("Warning: failed to record inventory change for %s: %v", entry.ProductSlug, err)
	}
}
