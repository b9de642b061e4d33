package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codstore.dev/storefront/internal/memstore"
	"codstore.dev/storefront/pkg/apperr"
	"codstore.dev/storefront/pkg/models"
	"codstore.dev/storefront/pkg/pricing"
)

type fixture struct {
	svc        *Service
	products   *memstore.Products
	categories *memstore.Categories
	cache      *memstore.ProductCache
	logs       *memstore.InventoryLogs
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		products:   memstore.NewProducts(),
		categories: memstore.NewCategories(),
		cache:      memstore.NewProductCache(),
		logs:       &memstore.InventoryLogs{},
	}
	f.svc = NewService(f.products, f.categories, f.cache, f.logs)
	_, err := f.svc.CreateCategory(context.Background(), &models.CreateCategoryRequest{Name: "Stationery"})
	require.NoError(t, err)
	return f
}

func ptr[T any](v T) *T { return &v }

func TestCreateProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.svc.CreateProduct(ctx, &models.CreateProductRequest{
		Name:      "Blue Pen",
		Price:     10,
		Published: true,
		Category:  "stationery",
		Inventory: models.Inventory{Track: true, Stock: 5},
		Discount:  &pricing.Discount{Type: pricing.Percentage, Value: 20, Active: true},
	}, "admin")
	require.NoError(t, err)
	assert.Equal(t, "blue-pen", p.Slug)
	assert.Equal(t, 8.0, p.EffectivePrice())
	require.Len(t, f.logs.Entries, 1)
	assert.Equal(t, 5, f.logs.Entries[0].QuantityChanged)

	_, err = f.svc.CreateProduct(ctx, &models.CreateProductRequest{Name: "Blue Pen", Category: "stationery"}, "admin")
	assert.True(t, apperr.IsKind(err, apperr.KindConflict), "duplicate slug")

	_, err = f.svc.CreateProduct(ctx, &models.CreateProductRequest{Name: "Mug", Category: "kitchen"}, "admin")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound), "unknown category")

	_, err = f.svc.CreateProduct(ctx, &models.CreateProductRequest{
		Name: "Eraser", Category: "stationery",
		Discount: &pricing.Discount{Type: pricing.Percentage, Value: 120, Active: true},
	}, "admin")
	assert.True(t, apperr.IsKind(err, apperr.KindValidation), "discount above 100 percent")

	_, err = f.svc.CreateProduct(ctx, &models.CreateProductRequest{
		Name: "Sharpener", Category: "stationery",
		Images: []models.Image{{Hash: "sha256:a", Primary: true}, {Hash: "sha256:b", Primary: true}},
	}, "admin")
	assert.True(t, apperr.IsKind(err, apperr.KindValidation), "two primary images")
}

func TestUpdateProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.CreateProduct(ctx, &models.CreateProductRequest{
		Name: "Blue Pen", Price: 10, Published: true, Category: "stationery",
		Inventory: models.Inventory{Track: true, Stock: 5},
	}, "admin")
	require.NoError(t, err)

	// warm cache
	_, err = f.svc.GetProduct(ctx, "blue-pen", false)
	require.NoError(t, err)

	updated, err := f.svc.UpdateProduct(ctx, "blue-pen", &models.UpdateProductRequest{Price: ptr(12.5)}, "admin")
	require.NoError(t, err)
	assert.Equal(t, 12.5, updated.Price)
	assert.Equal(t, "blue-pen", updated.Slug)
	assert.Contains(t, f.cache.Evicted, "blue-pen")

	got, err := f.svc.GetProduct(ctx, "blue-pen", false)
	require.NoError(t, err)
	assert.Equal(t, 12.5, got.Price, "no stale cache after update")

	_, err = f.svc.UpdateProduct(ctx, "blue-pen", &models.UpdateProductRequest{Inventory: &models.Inventory{Track: true, Stock: 2}}, "admin")
	require.NoError(t, err)
	assert.Equal(t, 2, f.products.Stock("blue-pen"))
	last := f.logs.Entries[len(f.logs.Entries)-1]
	assert.Equal(t, -3, last.QuantityChanged)

	_, err = f.svc.UpdateProduct(ctx, "blue-pen", &models.UpdateProductRequest{}, "admin")
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, err = f.svc.UpdateProduct(ctx, "blue-pen", &models.UpdateProductRequest{Price: ptr(-1.0)}, "admin")
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, err = f.svc.UpdateProduct(ctx, "missing", &models.UpdateProductRequest{Price: ptr(1.0)}, "admin")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

// sellingProducts sells one unit right after the first read, as a checkout
// would between an admin loading a product and saving it.
type sellingProducts struct {
	*memstore.Products
	sold bool
}

func (s *sellingProducts) FindBySlug(ctx context.Context, slug string) (*models.Product, error) {
	p, err := s.Products.FindBySlug(ctx, slug)
	if err == nil && !s.sold {
		s.sold = true
		if _, _, err := s.Products.DecrementStock(ctx, slug, 1); err != nil {
			return nil, err
		}
	}
	return p, err
}

func TestUpdateProduct_InventoryEditRacingSale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.CreateProduct(ctx, &models.CreateProductRequest{
		Name: "Blue Pen", Price: 10, Published: true, Category: "stationery",
		Inventory: models.Inventory{Track: true, Stock: 5},
	}, "admin")
	require.NoError(t, err)

	store := &sellingProducts{Products: f.products}
	svc := NewService(store, f.categories, f.cache, f.logs)
	logged := len(f.logs.Entries)

	_, err = svc.UpdateProduct(ctx, "blue-pen", &models.UpdateProductRequest{Inventory: &models.Inventory{Track: true, Stock: 8}}, "admin")
	assert.ErrorIs(t, err, &apperr.Error{Kind: apperr.KindConflict, Code: "stock_changed"})
	assert.Equal(t, 4, f.products.Stock("blue-pen"), "sale is kept")
	assert.Len(t, f.logs.Entries, logged)

	// a retry reads the new stock and goes through
	_, err = svc.UpdateProduct(ctx, "blue-pen", &models.UpdateProductRequest{Inventory: &models.Inventory{Track: true, Stock: 8}}, "admin")
	require.NoError(t, err)
	assert.Equal(t, 8, f.products.Stock("blue-pen"))

	// edits that leave inventory alone never conflict
	store.sold = false
	_, err = svc.UpdateProduct(ctx, "blue-pen", &models.UpdateProductRequest{Price: ptr(11.0)}, "admin")
	require.NoError(t, err)
	assert.Equal(t, 7, f.products.Stock("blue-pen"))
}

func TestUpdateProduct_ClearDiscount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.CreateProduct(ctx, &models.CreateProductRequest{
		Name: "Blue Pen", Price: 10, Category: "stationery",
		Discount: &pricing.Discount{Type: pricing.Fixed, Value: 2, Active: true},
	}, "admin")
	require.NoError(t, err)

	updated, err := f.svc.UpdateProduct(ctx, "blue-pen", &models.UpdateProductRequest{ClearDiscount: true}, "admin")
	require.NoError(t, err)
	assert.Nil(t, updated.Discount)
	assert.Equal(t, 10.0, updated.EffectivePrice())
}

func TestGetProduct_HidesUnpublished(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.CreateProduct(ctx, &models.CreateProductRequest{Name: "Draft", Category: "stationery"}, "admin")
	require.NoError(t, err)

	_, err = f.svc.GetProduct(ctx, "draft", false)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	p, err := f.svc.GetProduct(ctx, "draft", true)
	require.NoError(t, err)
	assert.False(t, p.Published)

	// served from cache the second time, still hidden
	_, err = f.svc.GetProduct(ctx, "draft", false)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestListProducts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, tc := range []struct {
		name      string
		price     float64
		published bool
	}{
		{"Blue Pen", 10, true},
		{"Red Pen", 5, true},
		{"Notebook", 40, true},
		{"Secret Pen", 1, false},
	} {
		p := (&models.CreateProductRequest{Name: tc.name, Price: tc.price, Published: tc.published, Category: "stationery"}).ToProduct()
		p.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, f.products.Insert(ctx, p))
	}

	page, err := f.svc.ListProducts(ctx, models.ProductFilter{Query: "pen", Sort: models.SortPriceAsc}, false)
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	assert.Equal(t, "red-pen", page.Items[0].Slug)
	assert.Equal(t, DefaultPageLimit, page.Limit)
	assert.Equal(t, "5.00", page.Items[0].DisplayPrice)

	page, err = f.svc.ListProducts(ctx, models.ProductFilter{}, true)
	require.NoError(t, err)
	assert.Equal(t, int64(4), page.Total, "admins see drafts")
	assert.Equal(t, "secret-pen", page.Items[0].Slug, "newest first")

	page, err = f.svc.ListProducts(ctx, models.ProductFilter{Page: 2, Limit: 2}, false)
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, "blue-pen", page.Items[0].Slug)

	page, err = f.svc.ListProducts(ctx, models.ProductFilter{Limit: 500}, false)
	require.NoError(t, err)
	assert.Equal(t, 100, page.Limit)

	_, err = f.svc.ListProducts(ctx, models.ProductFilter{Sort: "popular"}, false)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestDeleteCategory_BlockedWhileReferenced(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.CreateProduct(ctx, &models.CreateProductRequest{Name: "Blue Pen", Category: "stationery"}, "admin")
	require.NoError(t, err)

	err = f.svc.DeleteCategory(ctx, "stationery")
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))

	require.NoError(t, f.svc.DeleteProduct(ctx, "blue-pen"))
	require.NoError(t, f.svc.DeleteCategory(ctx, "stationery"))

	err = f.svc.DeleteCategory(ctx, "stationery")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestCreateCategory_Duplicate(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateCategory(context.Background(), &models.CreateCategoryRequest{Name: "Stationery"})
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))

	list, err := f.svc.ListCategories(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
