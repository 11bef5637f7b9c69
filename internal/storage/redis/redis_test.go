package redis

import (
	"context"
	"testing"
	"time"

	"price_monitor/internal/models"
	"price_monitor/internal/storage"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepo(t *testing.T) (*miniredis.Miniredis, *RedisRepo) {
	t.Helper()

	mr := miniredis.RunT(t)

	repo, err := New(context.Background(), mr.Addr(), 0, time.Minute)
	require.NoError(t, err)
	t.Cleanup(repo.Close)

	return mr, repo
}

func TestProducts_RoundTrip(t *testing.T) {
	mr, repo := newRepo(t)
	ctx := context.Background()

	_, version, err := repo.Products(ctx)
	require.ErrorIs(t, err, storage.ErrCacheMiss)
	assert.Zero(t, version)

	rating := 4.6
	products := []models.ProductView{{ID: 1, Name: "Phone X", Rating: &rating}}

	require.NoError(t, repo.SaveProducts(ctx, version, products))
	assert.Equal(t, time.Minute, mr.TTL("products:list:v0"))

	got, _, err := repo.Products(ctx)
	require.NoError(t, err)
	assert.Equal(t, products, got)

	require.NoError(t, repo.InvalidateProducts(ctx))
	_, version, err = repo.Products(ctx)
	require.ErrorIs(t, err, storage.ErrCacheMiss)
	assert.Equal(t, int64(1), version)
	assert.Equal(t, minVersionTTL, mr.TTL(productsVersionKey))
}

func TestProducts_StaleWriteAfterInvalidate(t *testing.T) {
	_, repo := newRepo(t)
	ctx := context.Background()

	// чтение началось до добавления товара
	_, version, err := repo.Products(ctx)
	require.ErrorIs(t, err, storage.ErrCacheMiss)

	require.NoError(t, repo.InvalidateProducts(ctx))

	stale := []models.ProductView{{ID: 1, Name: "old"}}
	require.NoError(t, repo.SaveProducts(ctx, version, stale))

	_, _, err = repo.Products(ctx)
	require.ErrorIs(t, err, storage.ErrCacheMiss)
}

func TestPriceHistory_PerProduct(t *testing.T) {
	mr, repo := newRepo(t)
	ctx := context.Background()

	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	history := []models.PriceHistory{{ProductID: 3, Price: 1999, Timestamp: ts}}

	_, version, err := repo.PriceHistory(ctx, 3)
	require.ErrorIs(t, err, storage.ErrCacheMiss)

	require.NoError(t, repo.SavePriceHistory(ctx, 3, version, history))
	assert.True(t, mr.Exists("price_history:3:v0"))

	got, _, err := repo.PriceHistory(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, history, got)

	_, _, err = repo.PriceHistory(ctx, 4)
	require.ErrorIs(t, err, storage.ErrCacheMiss)

	require.NoError(t, repo.InvalidatePriceHistory(ctx, 3))
	_, _, err = repo.PriceHistory(ctx, 3)
	require.ErrorIs(t, err, storage.ErrCacheMiss)

	// сброс одного товара не трогает другой
	require.NoError(t, repo.SavePriceHistory(ctx, 4, 0, history))
	require.NoError(t, repo.InvalidatePriceHistory(ctx, 3))
	_, _, err = repo.PriceHistory(ctx, 4)
	require.NoError(t, err)
}

func TestPriceHistory_StaleWriteAfterInvalidate(t *testing.T) {
	_, repo := newRepo(t)
	ctx := context.Background()

	_, version, err := repo.PriceHistory(ctx, 7)
	require.ErrorIs(t, err, storage.ErrCacheMiss)

	require.NoError(t, repo.InvalidatePriceHistory(ctx, 7))
	require.NoError(t, repo.SavePriceHistory(ctx, 7, version, []models.PriceHistory{{ProductID: 7, Price: 1}}))

	_, _, err = repo.PriceHistory(ctx, 7)
	require.ErrorIs(t, err, storage.ErrCacheMiss)
}

func TestExpiry(t *testing.T) {
	mr, repo := newRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveProducts(ctx, 0, []models.ProductView{{ID: 1, Name: "n"}}))

	mr.FastForward(2 * time.Minute)

	_, _, err := repo.Products(ctx)
	require.ErrorIs(t, err, storage.ErrCacheMiss)
}

func TestNew_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := New(context.Background(), addr, 0, time.Minute)
	require.Error(t, err)
}
