package products

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"price_monitor/internal/lib/extractor"
	sl "price_monitor/internal/lib/logger"
	"price_monitor/internal/models"
	"price_monitor/internal/storage"
)

type Fetcher interface {
	Fetch(ctx context.Context, url string) (map[string]any, error)
}

type PostgresStorage interface {
	SaveProduct(ctx context.Context, product models.Product) (int64, error)
	SavePrice(ctx context.Context, productID int64, price float64) error
	DeleteProduct(ctx context.Context, productID int64) error
	ProductExists(ctx context.Context, productID int64) (bool, error)
	PriceHistory(ctx context.Context, productID int64) ([]models.PriceHistory, error)
	Products(ctx context.Context) ([]models.ProductView, error)
}

type RedisStorage interface {
	SaveProducts(ctx context.Context, version int64, products []models.ProductView) error
	Products(ctx context.Context) ([]models.ProductView, int64, error)
	SavePriceHistory(ctx context.Context, productID, version int64, history []models.PriceHistory) error
	PriceHistory(ctx context.Context, productID int64) ([]models.PriceHistory, int64, error)
	InvalidateProducts(ctx context.Context) error
	InvalidatePriceHistory(ctx context.Context, productID int64) error
}

type RabbitMQ interface {
	PublishJSON(ctx context.Context, msg any) error
}

type ProductOperator struct {
	log      *slog.Logger
	Fetcher  Fetcher
	Postgres PostgresStorage
	Redis    RedisStorage
	Rabbitmq RabbitMQ
}

func New(log *slog.Logger, f Fetcher, p PostgresStorage, r RedisStorage, rabbit RabbitMQ) *ProductOperator {
	return &ProductOperator{
		log:      log,
		Fetcher:  f,
		Postgres: p,
		Redis:    r,
		Rabbitmq: rabbit,
	}
}

// * AddProduct получает данные о товаре по urlInfo и сохраняет его.
// * Цена запрашивается отдельно через очередь по urlPrice.
func (p *ProductOperator) AddProduct(ctx context.Context, urlInfo, urlPrice string) (int64, error) {
	const op = "middleware.products.AddProduct"

	payload, err := p.Fetcher.Fetch(ctx, urlInfo)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	info, err := extractor.ExtractInfo(payload)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	productID, err := p.Postgres.SaveProduct(ctx, models.Product{
		Name:        info.Name,
		Description: info.Description,
		Rating:      info.Rating,
		URLInfo:     urlInfo,
		URLPrice:    urlPrice,
	})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	p.dropCache(op, p.Redis.InvalidateProducts(ctx))

	// Товар уже сохранён: без цены он всё равно доступен, её можно добавить через add_price.
	if err := p.Rabbitmq.PublishJSON(ctx, models.PriceRequest{
		ID:       productID,
		URLPrice: urlPrice,
	}); err != nil {
		p.log.Warn("failed to request price",
			slog.String("op", op),
			slog.Int64("product_id", productID),
			sl.Err(err),
		)
	}

	return productID, nil
}

func (p *ProductOperator) AddPrice(ctx context.Context, productID int64, price float64) error {
	const op = "middleware.products.AddPrice"

	if err := p.mustExist(ctx, productID); err != nil {
		return err
	}

	if err := p.Postgres.SavePrice(ctx, productID, price); err != nil {
		if errors.Is(err, storage.ErrProductNotFound) {
			return err
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	p.dropCache(op, p.Redis.InvalidatePriceHistory(ctx, productID))

	return nil
}

func (p *ProductOperator) DeleteProduct(ctx context.Context, productID int64) error {
	const op = "middleware.products.DeleteProduct"

	if err := p.mustExist(ctx, productID); err != nil {
		return err
	}

	if err := p.Postgres.DeleteProduct(ctx, productID); err != nil {
		if errors.Is(err, storage.ErrProductNotFound) {
			return err
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	p.dropCache(op, p.Redis.InvalidateProducts(ctx))
	p.dropCache(op, p.Redis.InvalidatePriceHistory(ctx, productID))

	return nil
}

func (p *ProductOperator) ProductExists(ctx context.Context, productID int64) (bool, error) {
	return p.Postgres.ProductExists(ctx, productID)
}

func (p *ProductOperator) PriceHistory(ctx context.Context, productID int64) ([]models.PriceHistory, error) {
	const op = "middleware.products.PriceHistory"

	if err := p.mustExist(ctx, productID); err != nil {
		return nil, err
	}

	history, version, err := p.Redis.PriceHistory(ctx, productID)
	switch {
	case err == nil:
		return history, nil

	case !errors.Is(err, storage.ErrCacheMiss):
		p.log.Warn("cache read failed", slog.String("op", op), sl.Err(err))
	}

	cacheMiss := errors.Is(err, storage.ErrCacheMiss)

	history, err = p.Postgres.PriceHistory(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// * пишем под поколением, прочитанным до запроса в базу: сброс между ними делает запись невидимой
	if cacheMiss {
		_ = p.Redis.SavePriceHistory(ctx, productID, version, history)
	}

	return history, nil
}

func (p *ProductOperator) Products(ctx context.Context) ([]models.ProductView, error) {
	const op = "middleware.products.Products"

	products, version, err := p.Redis.Products(ctx)
	switch {
	case err == nil:
		return products, nil

	case !errors.Is(err, storage.ErrCacheMiss):
		p.log.Warn("cache read failed", slog.String("op", op), sl.Err(err))
	}

	cacheMiss := errors.Is(err, storage.ErrCacheMiss)

	products, err = p.Postgres.Products(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if cacheMiss {
		_ = p.Redis.SaveProducts(ctx, version, products)
	}

	return products, nil
}

func (p *ProductOperator) mustExist(ctx context.Context, productID int64) error {
	exists, err := p.Postgres.ProductExists(ctx, productID)
	if err != nil {
		return err
	}

	if !exists {
		return storage.ErrProductNotFound
	}

	return nil
}

func (p *ProductOperator) dropCache(op string, err error) {
	if err != nil {
		p.log.Warn("cache invalidation failed", slog.String("op", op), sl.Err(err))
	}
}
