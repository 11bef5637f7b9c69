package parser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"price_monitor/internal/lib/extractor"
	"price_monitor/internal/models"
)

var ErrInvalidMessage = errors.New("invalid message")

type Fetcher interface {
	Fetch(ctx context.Context, url string) (map[string]any, error)
}

type PriceSaver interface {
	AddPrice(ctx context.Context, productID int64, price float64) error
}

type Consumer interface {
	Consume(ctx context.Context, handler func(ctx context.Context, body []byte) error) error
}

// Parser обрабатывает запросы на получение цены товара из очереди.
type Parser struct {
	log     *slog.Logger
	fetcher Fetcher
	saver   PriceSaver
}

func New(log *slog.Logger, f Fetcher, s PriceSaver) *Parser {
	return &Parser{
		log:     log,
		fetcher: f,
		saver:   s,
	}
}

func (p *Parser) Run(ctx context.Context, consumer Consumer) error {
	return consumer.Consume(ctx, p.handleMessage)
}

func (p *Parser) handleMessage(ctx context.Context, body []byte) error {
	const op = "lib.parser.handleMessage"

	var msg models.PriceRequest

	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrInvalidMessage, err)
	}

	if msg.ID <= 0 || msg.URLPrice == "" {
		return fmt.Errorf("%s: %w: id=%d url_price=%q", op, ErrInvalidMessage, msg.ID, msg.URLPrice)
	}

	payload, err := p.fetcher.Fetch(ctx, msg.URLPrice)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	price, err := extractor.ExtractPrice(payload)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := p.saver.AddPrice(ctx, msg.ID, price.Price); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	p.log.Info("price recorded",
		slog.String("op", op),
		slog.Int64("product_id", msg.ID),
		slog.Float64("price", price.Price),
	)

	return nil
}
