package mongo

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"codstore.dev/storefront/pkg/apperr"
	"codstore.dev/storefront/pkg/models"
)

// requires MongoDB running on localhost:27017
const testMongoURI = "mongodb://localhost:27017"

func setupTestDB(t *testing.T) *mongo.Database {
	t.Helper()

	client, err := mongo.Connect(options.Client().ApplyURI(testMongoURI).SetServerSelectionTimeout(2 * time.Second))
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		t.Skipf("MongoDB not available at %s: %v", testMongoURI, err)
	}

	db := client.Database("storefront_test_" + bson.NewObjectID().Hex())
	require.NoError(t, EnsureIndexes(ctx, db))

	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})
	return db
}

func insertProduct(t *testing.T, repo *ProductRepository, name string, inv models.Inventory) *models.Product {
	t.Helper()
	p := (&models.CreateProductRequest{Name: name, Price: 10, Category: "stationery", Inventory: inv}).ToProduct()
	require.NoError(t, repo.Insert(context.Background(), p))
	return p
}

func stockOf(t *testing.T, repo *ProductRepository, slug string) int {
	t.Helper()
	p, err := repo.FindBySlug(context.Background(), slug)
	require.NoError(t, err)
	return p.Inventory.Stock
}

func TestDecrementStock_LastUnitSoldOnce(t *testing.T) {
	repo := NewProductRepository(setupTestDB(t))
	p := insertProduct(t, repo, "Blue Pen", models.Inventory{Track: true, Stock: 1})

	const buyers = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		sold     int
		rejected int
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := repo.DecrementStock(context.Background(), p.Slug, 1)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				sold++
			case apperr.IsKind(err, apperr.KindInsufficientStock):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, sold)
	assert.Equal(t, buyers-1, rejected)
	assert.Equal(t, 0, stockOf(t, repo, p.Slug))
}

func TestDecrementStock_Outcomes(t *testing.T) {
	repo := NewProductRepository(setupTestDB(t))
	ctx := context.Background()
	tracked := insertProduct(t, repo, "Blue Pen", models.Inventory{Track: true, Stock: 3})
	untracked := insertProduct(t, repo, "Gift Wrap", models.Inventory{Track: false, Stock: 0})

	remaining, isTracked, err := repo.DecrementStock(ctx, tracked.Slug, 2)
	require.NoError(t, err)
	assert.True(t, isTracked)
	assert.Equal(t, 1, remaining)

	_, isTracked, err = repo.DecrementStock(ctx, tracked.Slug, 2)
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.KindInsufficientStock, appErr.Kind)
	assert.Equal(t, 1, appErr.Details["available"])
	assert.True(t, isTracked)
	assert.Equal(t, 1, stockOf(t, repo, tracked.Slug), "short request leaves stock alone")

	_, isTracked, err = repo.DecrementStock(ctx, untracked.Slug, 50)
	require.NoError(t, err)
	assert.False(t, isTracked)
	assert.Equal(t, 0, stockOf(t, repo, untracked.Slug))

	_, _, err = repo.DecrementStock(ctx, "no-such-product", 1)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	require.NoError(t, repo.RestoreStock(ctx, tracked.Slug, 2))
	assert.Equal(t, 3, stockOf(t, repo, tracked.Slug))
	require.NoError(t, repo.RestoreStock(ctx, untracked.Slug, 2))
	assert.Equal(t, 0, stockOf(t, repo, untracked.Slug), "untracked stock is not restored")
}

func TestUpdate_InventoryGuardedByReadStock(t *testing.T) {
	repo := NewProductRepository(setupTestDB(t))
	ctx := context.Background()
	p := insertProduct(t, repo, "Blue Pen", models.Inventory{Track: true, Stock: 5})

	edited, err := repo.FindBySlug(ctx, p.Slug)
	require.NoError(t, err)
	read := edited.Inventory.Stock

	_, _, err = repo.DecrementStock(ctx, p.Slug, 1)
	require.NoError(t, err)

	edited.Inventory.Stock = 20
	err = repo.Update(ctx, edited, &read)
	assert.ErrorIs(t, err, &apperr.Error{Kind: apperr.KindConflict, Code: "stock_changed"})
	assert.Equal(t, 4, stockOf(t, repo, p.Slug))

	read = 4
	require.NoError(t, repo.Update(ctx, edited, &read))
	assert.Equal(t, 20, stockOf(t, repo, p.Slug))

	edited.Name = "Blue Pen XL"
	edited.Inventory.Stock = 0
	require.NoError(t, repo.Update(ctx, edited, nil))
	got, err := repo.FindBySlug(ctx, p.Slug)
	require.NoError(t, err)
	assert.Equal(t, "Blue Pen XL", got.Name)
	assert.Equal(t, 20, got.Inventory.Stock, "inventory untouched without expected stock")

	edited.Slug = "gone"
	read = 20
	err = repo.Update(ctx, edited, &read)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}
