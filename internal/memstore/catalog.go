// Package memstore holds in-memory versions of the persistence layer used by
// the service and handler tests.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"codstore.dev/storefront/pkg/apperr"
	"codstore.dev/storefront/pkg/models"
)

// clone deep-copies v through BSON so callers never share memory with the store.
func clone[T any](v *T) *T {
	data, err := bson.Marshal(v)
	if err != nil {
		panic(err)
	}
	var out T
	if err := bson.Unmarshal(data, &out); err != nil {
		panic(err)
	}
	return &out
}

type Products struct {
	mu       sync.Mutex
	items    map[string]*models.Product
	FailNext error // returned once by the next DecrementStock
	FailSlug string // when set, FailNext waits for a DecrementStock of this slug
	Restores int    // RestoreStock calls
}

func NewProducts() *Products {
	return &Products{items: map[string]*models.Product{}}
}

func (s *Products) Insert(ctx context.Context, product *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[product.Slug]; ok {
		return apperr.Conflict("slug_taken", "a product with this slug already exists")
	}
	if product.ID.IsZero() {
		product.ID = bson.NewObjectID()
	}
	s.items[product.Slug] = clone(product)
	return nil
}

func (s *Products) FindBySlug(ctx context.Context, slug string) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.items[slug]
	if !ok {
		return nil, apperr.NotFound("product", slug)
	}
	return clone(p), nil
}

func (s *Products) Update(ctx context.Context, product *models.Product, expectedStock *int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.items[product.Slug]
	if !ok {
		return apperr.NotFound("product", product.Slug)
	}
	next := clone(product)
	if expectedStock == nil {
		next.Inventory = current.Inventory
	} else if current.Inventory.Stock != *expectedStock {
		return apperr.StockChanged(product.Slug)
	}
	s.items[product.Slug] = next
	return nil
}

func (s *Products) Delete(ctx context.Context, slug string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[slug]; !ok {
		return apperr.NotFound("product", slug)
	}
	delete(s.items, slug)
	return nil
}

func (s *Products) List(ctx context.Context, filter models.ProductFilter) ([]models.Product, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []models.Product
	for _, p := range s.items {
		if filter.Query != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(filter.Query)) {
			continue
		}
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		if filter.Published != nil && p.Published != *filter.Published {
			continue
		}
		matched = append(matched, *clone(p))
	}

	sort.SliceStable(matched, func(i, j int) bool {
		switch filter.Sort {
		case models.SortPriceAsc:
			return matched[i].Price < matched[j].Price
		case models.SortPriceDesc:
			return matched[i].Price > matched[j].Price
		default:
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
	})

	total := int64(len(matched))
	start := (filter.Page - 1) * filter.Limit
	if start > len(matched) {
		start = len(matched)
	}
	end := start + filter.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (s *Products) CountByCategory(ctx context.Context, category string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, p := range s.items {
		if p.Category == category {
			n++
		}
	}
	return n, nil
}

func (s *Products) DecrementStock(ctx context.Context, slug string, qty int) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.FailNext; err != nil && (s.FailSlug == "" || s.FailSlug == slug) {
		s.FailNext, s.FailSlug = nil, ""
		return 0, false, err
	}
	p, ok := s.items[slug]
	if !ok {
		return 0, false, apperr.NotFound("product", slug)
	}
	if !p.Inventory.Track {
		return p.Inventory.Stock, false, nil
	}
	if p.Inventory.Stock < qty {
		return 0, true, apperr.InsufficientStock(slug, p.Inventory.Stock)
	}
	p.Inventory.Stock -= qty
	p.UpdatedAt = time.Now()
	return p.Inventory.Stock, true, nil
}

func (s *Products) RestoreStock(ctx context.Context, slug string, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Restores++
	if p, ok := s.items[slug]; ok && p.Inventory.Track {
		p.Inventory.Stock += qty
	}
	return nil
}

// Stock returns the stored stock of slug, or -1 when it does not exist.
func (s *Products) Stock(slug string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.items[slug]; ok {
		return p.Inventory.Stock
	}
	return -1
}

type Categories struct {
	mu    sync.Mutex
	items map[string]models.Category
}

func NewCategories() *Categories {
	return &Categories{items: map[string]models.Category{}}
}

func (s *Categories) Insert(ctx context.Context, category *models.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[category.Slug]; ok {
		return apperr.Conflict("category_exists", "category already exists")
	}
	s.items[category.Slug] = *category
	return nil
}

func (s *Categories) FindBySlug(ctx context.Context, slug string) (*models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.items[slug]
	if !ok {
		return nil, apperr.NotFound("category", slug)
	}
	return &c, nil
}

func (s *Categories) List(ctx context.Context) ([]models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Category{}
	for _, c := range s.items {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Categories) Delete(ctx context.Context, slug string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[slug]; !ok {
		return apperr.NotFound("category", slug)
	}
	delete(s.items, slug)
	return nil
}

// ProductCache is a map-backed product cache that counts evictions.
type ProductCache struct {
	mu      sync.Mutex
	items   map[string]*models.Product
	Evicted []string
}

func NewProductCache() *ProductCache {
	return &ProductCache{items: map[string]*models.Product{}}
}

func (c *ProductCache) Get(ctx context.Context, slug string) (*models.Product, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.items[slug]
	if !ok {
		return nil, false, nil
	}
	return clone(p), true, nil
}

func (c *ProductCache) Set(ctx context.Context, product *models.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[product.Slug] = clone(product)
	return nil
}

func (c *ProductCache) Remove(ctx context.Context, products ...*models.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range products {
		delete(c.items, p.Slug)
		c.Evicted = append(c.Evicted, p.Slug)
	}
	return nil
}

type InventoryLogs struct {
	mu      sync.Mutex
	Entries []models.InventoryLog
}

func (l *InventoryLogs) Insert(ctx context.Context, entry *models.InventoryLog) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Entries = append(l.Entries, *entry)
	return nil
}
