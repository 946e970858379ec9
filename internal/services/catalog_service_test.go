package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// newTestCatalog seeds three products through the reconciler so the read path
// is tested against real sync output.
func newTestCatalog(t *testing.T) (*CatalogService, *gorm.DB) {
	t.Helper()
	r, db := newTestReconciler(t)

	cheap := testSnapshot("B000000001", t1)
	cheap.Title = "Budget Earbuds"
	cheap.Price = f64(9.99)
	cheap.Rating = f64(3.80)
	rank1 := 900
	cheap.SalesRank = &rank1

	mid := testSnapshot("B000000002", t1)
	mid.Title = "Wireless Earbuds"

	pricey := testSnapshot("B000000003", t1)
	pricey.Title = "Studio Headphones"
	pricey.Category = "Audio"
	pricey.RankCategory = "Audio"
	pricey.Price = f64(199.00)
	pricey.Rating = f64(4.90)
	rank3 := 12
	pricey.SalesRank = &rank3

	_, err := r.Reconcile(context.Background(), cheap)
	require.NoError(t, err)
	_, err = r.Reconcile(context.Background(), mid)
	require.NoError(t, err)
	_, err = r.Reconcile(context.Background(), pricey)
	require.NoError(t, err)

	return NewCatalogService(db, nil, "amazon_us"), db
}

func TestListProductsAll(t *testing.T) {
	svc, _ := newTestCatalog(t)

	page, err := svc.ListProducts(context.Background(), ListProductsParams{})
	require.NoError(t, err)

	assert.EqualValues(t, 3, page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, defaultPageSize, page.PageSize)
	require.Len(t, page.Items, 3)

	first := page.Items[0]
	assert.Equal(t, "B000000001", first.ASIN)
	assert.Equal(t, "Budget Earbuds", first.Title)
	assert.Equal(t, "amazon_us", first.Platform)
	require.NotNil(t, first.Price)
	assert.Equal(t, 9.99, *first.Price)
	require.NotNil(t, first.SalesRank)
	assert.Equal(t, 900, *first.SalesRank)
	require.NotNil(t, first.UpdatedAt)
}

func TestListProductsFilters(t *testing.T) {
	svc, _ := newTestCatalog(t)
	ctx := context.Background()

	page, err := svc.ListProducts(ctx, ListProductsParams{MinRating: 4.5})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "B000000003", page.Items[0].ASIN)

	page, err = svc.ListProducts(ctx, ListProductsParams{MaxPrice: 20})
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Total)

	page, err = svc.ListProducts(ctx, ListProductsParams{Category: "Audio"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Studio Headphones", page.Items[0].Title)

	page, err = svc.ListProducts(ctx, ListProductsParams{MinRating: 4.99})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Zero(t, page.Total)
}

func TestListProductsSort(t *testing.T) {
	svc, _ := newTestCatalog(t)
	ctx := context.Background()

	page, err := svc.ListProducts(ctx, ListProductsParams{Sort: "price", Order: "asc"})
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	assert.Equal(t, "B000000001", page.Items[0].ASIN)
	assert.Equal(t, "B000000003", page.Items[2].ASIN)

	page, err = svc.ListProducts(ctx, ListProductsParams{Sort: "price", Order: "desc"})
	require.NoError(t, err)
	assert.Equal(t, "B000000003", page.Items[0].ASIN)

	page, err = svc.ListProducts(ctx, ListProductsParams{Sort: "rank", Order: "asc"})
	require.NoError(t, err)
	assert.Equal(t, "B000000003", page.Items[0].ASIN, "best seller rank first")
}

func TestListProductsSortPushesMissingValuesLast(t *testing.T) {
	svc, db := newTestCatalog(t)

	// Strip one product of any price signal, current and historical.
	require.NoError(t, db.Exec("UPDATE products SET price = NULL WHERE asin = ?", "B000000002").Error)
	require.NoError(t, db.Exec("UPDATE prices SET price = NULL WHERE product_id = (SELECT id FROM products WHERE asin = ?)", "B000000002").Error)

	page, err := svc.ListProducts(context.Background(), ListProductsParams{Sort: "price", Order: "asc"})
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	assert.Equal(t, "B000000002", page.Items[2].ASIN, "rows without a value sort last regardless of direction")
	assert.Nil(t, page.Items[2].Price)
}

func TestListProductsFallsBackToHistory(t *testing.T) {
	svc, db := newTestCatalog(t)

	// Simulate a latest record whose columns were blanked while history
	// still holds observations.
	require.NoError(t, db.Exec("UPDATE products SET price = NULL, review_rating = NULL, review_count = NULL WHERE asin = ?", "B000000001").Error)

	item, err := svc.GetProduct(context.Background(), "B000000001")
	require.NoError(t, err)
	require.NotNil(t, item)
	require.NotNil(t, item.Price, "price backfilled from newest history row")
	assert.Equal(t, 9.99, *item.Price)
	require.NotNil(t, item.Rating)
	assert.Equal(t, 3.80, *item.Rating)
	require.NotNil(t, item.ReviewCount)
	assert.Equal(t, 1200, *item.ReviewCount)
}

func TestListProductsPagination(t *testing.T) {
	svc, _ := newTestCatalog(t)
	ctx := context.Background()

	page, err := svc.ListProducts(ctx, ListProductsParams{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.Total)
	assert.Len(t, page.Items, 2)

	page, err = svc.ListProducts(ctx, ListProductsParams{Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "B000000003", page.Items[0].ASIN)

	page, err = svc.ListProducts(ctx, ListProductsParams{Page: 3, PageSize: 2})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

func TestListProductsOtherPlatformInvisible(t *testing.T) {
	svc, db := newTestCatalog(t)

	otherID, err := EnsurePlatform(db, "amazon_de")
	require.NoError(t, err)
	other := NewReconciler(db, otherID)
	foreign := testSnapshot("B00000DE01", t1)
	_, err = other.Reconcile(context.Background(), foreign)
	require.NoError(t, err)

	page, err := svc.ListProducts(context.Background(), ListProductsParams{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.Total, "rows from other platforms are filtered out")
}

func TestGetProductAbsent(t *testing.T) {
	svc, _ := newTestCatalog(t)

	item, err := svc.GetProduct(context.Background(), "B00000NONE")
	require.NoError(t, err)
	assert.Nil(t, item)
}

func TestGetProductHistory(t *testing.T) {
	svc, db := newTestCatalog(t)

	// A second, later observation for the same item.
	r := NewReconciler(db, mustPlatformID(t, db, "amazon_us"))
	later := testSnapshot("B000000001", t1.Add(time.Hour))
	later.Price = f64(8.49)
	_, err := r.Reconcile(context.Background(), later)
	require.NoError(t, err)

	history, err := svc.GetProductHistory(context.Background(), "B000000001")
	require.NoError(t, err)
	require.NotNil(t, history)

	assert.Equal(t, "B000000001", history.ASIN)
	require.Len(t, history.Prices, 2)
	assert.True(t, history.Prices[0].Timestamp.Before(history.Prices[1].Timestamp), "series ordered oldest first")
	assert.Equal(t, 8.49, *history.Prices[1].Price)
	assert.Equal(t, "USD", history.Prices[0].Currency)
	require.Len(t, history.Ratings, 2)
	require.Len(t, history.Ranks, 2)
}

func TestGetProductHistoryAbsent(t *testing.T) {
	svc, _ := newTestCatalog(t)

	history, err := svc.GetProductHistory(context.Background(), "B00000NONE")
	require.NoError(t, err)
	assert.Nil(t, history)
}

func TestListProductsCached(t *testing.T) {
	svc, db := newTestCatalog(t)

	mr := miniredis.RunT(t)
	svc.Redis = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	ctx := context.Background()

	first, err := svc.ListProductsCached(ctx, ListProductsParams{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, first.Total)
	assert.True(t, mr.Exists(CacheKeyDefaultProductList), "default listing is written through to the cache")

	// A DB mutation is invisible until the cache entry goes away.
	require.NoError(t, db.Exec("UPDATE products SET title = ? WHERE asin = ?", "Renamed", "B000000001").Error)

	cached, err := svc.ListProductsCached(ctx, ListProductsParams{})
	require.NoError(t, err)
	assert.Equal(t, "Budget Earbuds", cached.Items[0].Title)

	mr.Del(CacheKeyDefaultProductList)
	fresh, err := svc.ListProductsCached(ctx, ListProductsParams{})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", fresh.Items[0].Title)
}

func TestListProductsCachedBypassesNonDefaultQueries(t *testing.T) {
	svc, _ := newTestCatalog(t)

	mr := miniredis.RunT(t)
	svc.Redis = redis.NewClient(&redis.Options{Addr: mr.Addr()})

	_, err := svc.ListProductsCached(context.Background(), ListProductsParams{Category: "Audio"})
	require.NoError(t, err)
	assert.False(t, mr.Exists(CacheKeyDefaultProductList), "filtered queries never touch the cache")
}

func mustPlatformID(t *testing.T, db *gorm.DB, name string) uint {
	t.Helper()
	id, err := EnsurePlatform(db, name)
	require.NoError(t, err)
	return id
}
