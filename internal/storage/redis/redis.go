package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"price_monitor/internal/models"
	"price_monitor/internal/storage"

	"github.com/redis/go-redis/v9"
)

const (
	productsKey        = "products:list"
	productsVersionKey = "products:version"

	// счётчик поколения должен жить заметно дольше данных под ним
	minVersionTTL = 24 * time.Hour
)

type RedisRepo struct {
	client     *redis.Client
	DefaultTTL time.Duration
}

func New(ctx context.Context, address string, db int, defaultTTL time.Duration) (*RedisRepo, error) {
	const op = "storage.redis.New"

	rdb := redis.NewClient(&redis.Options{
		Addr: address,
		DB:   db,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &RedisRepo{
		client:     rdb,
		DefaultTTL: defaultTTL,
	}, nil
}

// * SaveProducts кладёт список под поколение version, полученное при чтении.
// * Если список успели сбросить, запись уйдёт под старый ключ и читаться не будет.
func (r *RedisRepo) SaveProducts(ctx context.Context, version int64, products []models.ProductView) error {
	const op = "storage.redis.SaveProducts"

	if err := r.set(ctx, versioned(productsKey, version), products); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Products возвращает закэшированный список и текущее поколение ключа.
// При промахе поколение тоже возвращается, вместе с storage.ErrCacheMiss.
func (r *RedisRepo) Products(ctx context.Context) ([]models.ProductView, int64, error) {
	const op = "storage.redis.Products"

	version, err := r.version(ctx, productsVersionKey)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	var products []models.ProductView

	if err := r.get(ctx, versioned(productsKey, version), &products); err != nil {
		if errors.Is(err, storage.ErrCacheMiss) {
			return nil, version, err
		}
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	return products, version, nil
}

func (r *RedisRepo) SavePriceHistory(ctx context.Context, productID, version int64, history []models.PriceHistory) error {
	const op = "storage.redis.SavePriceHistory"

	if err := r.set(ctx, versioned(historyKey(productID), version), history); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *RedisRepo) PriceHistory(ctx context.Context, productID int64) ([]models.PriceHistory, int64, error) {
	const op = "storage.redis.PriceHistory"

	version, err := r.version(ctx, historyVersionKey(productID))
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	var history []models.PriceHistory

	if err := r.get(ctx, versioned(historyKey(productID), version), &history); err != nil {
		if errors.Is(err, storage.ErrCacheMiss) {
			return nil, version, err
		}
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	return history, version, nil
}

// * InvalidateProducts сбрасывает закэшированный список товаров
func (r *RedisRepo) InvalidateProducts(ctx context.Context) error {
	if err := r.bump(ctx, productsVersionKey); err != nil {
		return fmt.Errorf("storage.redis.InvalidateProducts: %w", err)
	}

	return nil
}

// * InvalidatePriceHistory сбрасывает закэшированную историю цен товара
func (r *RedisRepo) InvalidatePriceHistory(ctx context.Context, productID int64) error {
	if err := r.bump(ctx, historyVersionKey(productID)); err != nil {
		return fmt.Errorf("storage.redis.InvalidatePriceHistory: %w", err)
	}

	return nil
}

// Close закрывает соединение с Redis.
func (r *RedisRepo) Close() {
	r.client.Close()
}

func (r *RedisRepo) set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return r.client.Set(ctx, key, data, r.DefaultTTL).Err()
}

func (r *RedisRepo) get(ctx context.Context, key string, dest any) error {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return storage.ErrCacheMiss
		}
		return err
	}

	return json.Unmarshal(data, dest)
}

// version текущее поколение ключа, 0 если счётчика ещё нет.
func (r *RedisRepo) version(ctx context.Context, key string) (int64, error) {
	v, err := r.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}

	return v, err
}

func (r *RedisRepo) bump(ctx context.Context, key string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, max(minVersionTTL, 2*r.DefaultTTL))
		return nil
	})

	return err
}

func versioned(key string, version int64) string {
	return fmt.Sprintf("%s:v%d", key, version)
}

func historyKey(productID int64) string {
	return fmt.Sprintf("price_history:%d", productID)
}

func historyVersionKey(productID int64) string {
	return fmt.Sprintf("price_history:%d:version", productID)
}
