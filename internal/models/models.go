package models

import "time"

// Product строка таблицы products.
type Product struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Description *string  `json:"description"`
	Rating      *float64 `json:"rating"`
	URLInfo     string   `json:"url_info"`
	URLPrice    string   `json:"url_price"`
}

// ProductView товар в списке мониторинга, рейтинг округлён до одного знака.
type ProductView struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Description *string  `json:"description"`
	Rating      *float64 `json:"rating"`
}

type PriceHistory struct {
	ID        int64     `json:"-"`
	ProductID int64     `json:"product_id"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"date"`
}

// ProductInfo поля, извлечённые из ответа API с информацией о товаре.
type ProductInfo struct {
	Name        string
	Description *string
	Rating      *float64
}

type PriceInfo struct {
	Price float64
}

// PriceRequest сообщение в очередь на получение цены товара.
type PriceRequest struct {
	ID       int64  `json:"id"`
	URLPrice string `json:"url_price"`
}
