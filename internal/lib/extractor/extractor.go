// Package extractor достаёт нужные поля из JSON ответов API магазина.
package extractor

import (
	"fmt"
	"strings"

	"price_monitor/internal/models"
)

// ExtractError ключ отсутствует или имеет неожиданный тип.
type ExtractError struct {
	Field  string
	Reason string
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("extract %s: %s", e.Field, e.Reason)
}

// ExtractInfo читает body.name, body.description и body.rating.star.
// description и rating.star могут быть null, но ключи должны присутствовать.
func ExtractInfo(payload map[string]any) (models.ProductInfo, error) {
	body, err := object(payload, "body")
	if err != nil {
		return models.ProductInfo{}, err
	}

	name, err := str(body, "body", "name")
	if err != nil {
		return models.ProductInfo{}, err
	}
	if name == nil || strings.TrimSpace(*name) == "" {
		return models.ProductInfo{}, &ExtractError{Field: "body.name", Reason: "empty value"}
	}

	description, err := str(body, "body", "description")
	if err != nil {
		return models.ProductInfo{}, err
	}

	rating, err := object(body, "rating", "body")
	if err != nil {
		return models.ProductInfo{}, err
	}

	star, err := number(rating, "body.rating", "star")
	if err != nil {
		return models.ProductInfo{}, err
	}

	return models.ProductInfo{
		Name:        *name,
		Description: description,
		Rating:      star,
	}, nil
}

// ExtractPrice читает body.materialPrices[0].price.salePrice.
func ExtractPrice(payload map[string]any) (models.PriceInfo, error) {
	body, err := object(payload, "body")
	if err != nil {
		return models.PriceInfo{}, err
	}

	raw, ok := body["materialPrices"]
	if !ok {
		return models.PriceInfo{}, missing("body.materialPrices")
	}

	list, ok := raw.([]any)
	if !ok {
		return models.PriceInfo{}, &ExtractError{Field: "body.materialPrices", Reason: "not a list"}
	}
	if len(list) == 0 {
		return models.PriceInfo{}, &ExtractError{Field: "body.materialPrices", Reason: "empty list"}
	}

	first, ok := list[0].(map[string]any)
	if !ok {
		return models.PriceInfo{}, &ExtractError{Field: "body.materialPrices[0]", Reason: "not an object"}
	}

	price, err := object(first, "price", "body.materialPrices[0]")
	if err != nil {
		return models.PriceInfo{}, err
	}

	sale, err := number(price, "body.materialPrices[0].price", "salePrice")
	if err != nil {
		return models.PriceInfo{}, err
	}
	if sale == nil {
		return models.PriceInfo{}, &ExtractError{Field: "body.materialPrices[0].price.salePrice", Reason: "null value"}
	}

	return models.PriceInfo{Price: *sale}, nil
}

func object(m map[string]any, key string, parent ...string) (map[string]any, error) {
	field := path(key, parent...)

	raw, ok := m[key]
	if !ok {
		return nil, missing(field)
	}

	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, &ExtractError{Field: field, Reason: "not an object"}
	}

	return obj, nil
}

func str(m map[string]any, parent, key string) (*string, error) {
	field := path(key, parent)

	raw, ok := m[key]
	if !ok {
		return nil, missing(field)
	}
	if raw == nil {
		return nil, nil
	}

	s, ok := raw.(string)
	if !ok {
		return nil, &ExtractError{Field: field, Reason: "not a string"}
	}

	return &s, nil
}

func number(m map[string]any, parent, key string) (*float64, error) {
	field := path(key, parent)

	raw, ok := m[key]
	if !ok {
		return nil, missing(field)
	}
	if raw == nil {
		return nil, nil
	}

	f, ok := raw.(float64)
	if !ok {
		return nil, &ExtractError{Field: field, Reason: "not a number"}
	}

	return &f, nil
}

func missing(field string) error {
	return &ExtractError{Field: field, Reason: "missing key"}
}

func path(key string, parent ...string) string {
	if len(parent) == 0 || parent[0] == "" {
		return key
	}

	return parent[0] + "." + key
}
