package storage

import "errors"

const (
	ForeignKeyViolation = "23503"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrCacheMiss       = errors.New("cache miss")
)
