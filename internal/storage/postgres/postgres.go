package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"price_monitor/internal/config"
	"price_monitor/internal/models"
	"price_monitor/internal/storage"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// DB подмножество методов *pgxpool.Pool, которое использует репозиторий.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

type PostgresRepo struct {
	pool DB
}

func New(ctx context.Context, cfg *config.Config) (*PostgresRepo, error) {
	const op = "storage.postgres.New"

	poolConfig, err := pgxpool.ParseConfig(dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse config: %w", op, err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = time.Minute * 30

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create pool: %w", op, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: ping failed: %w", op, err)
	}

	return &PostgresRepo{pool: pool}, nil
}

func NewFromPool(pool DB) *PostgresRepo {
	return &PostgresRepo{pool: pool}
}

// * Migrate создаёт таблицы, если их ещё нет
func (r *PostgresRepo) Migrate(ctx context.Context) error {
	const op = "storage.postgres.Migrate"

	const schema = `
		CREATE TABLE IF NOT EXISTS products (
			id          BIGSERIAL PRIMARY KEY,
			name        TEXT NOT NULL CHECK (name <> ''),
			description TEXT,
			rating      DOUBLE PRECISION,
			url_info    TEXT NOT NULL,
			url_price   TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS price_history (
			id         BIGSERIAL PRIMARY KEY,
			product_id BIGINT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
			price      DOUBLE PRECISION NOT NULL,
			timestamp  TIMESTAMPTZ NOT NULL DEFAULT now()
		);

		CREATE INDEX IF NOT EXISTS price_history_product_id_idx
			ON price_history (product_id, timestamp);
	`

	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// * SaveProduct добавляет товар и возвращает его id
func (r *PostgresRepo) SaveProduct(ctx context.Context, product models.Product) (int64, error) {
	const op = "storage.postgres.SaveProduct"

	const query = `
		INSERT INTO products (name, description, rating, url_info, url_price)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	var id int64

	err := r.pool.QueryRow(ctx, query,
		product.Name,
		product.Description,
		product.Rating,
		product.URLInfo,
		product.URLPrice,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%s: failed to save product: %w", op, err)
	}

	return id, nil
}

// * SavePrice добавляет запись в историю цен товара
func (r *PostgresRepo) SavePrice(ctx context.Context, productID int64, price float64) error {
	const op = "storage.postgres.SavePrice"

	const query = `
		INSERT INTO price_history (product_id, price)
		VALUES ($1, $2)
	`

	if _, err := r.pool.Exec(ctx, query, productID, price); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == storage.ForeignKeyViolation {
			return storage.ErrProductNotFound
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// * DeleteProduct удаляет товар вместе с историей цен
func (r *PostgresRepo) DeleteProduct(ctx context.Context, productID int64) error {
	const op = "storage.postgres.DeleteProduct"

	err := r.inTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM price_history WHERE product_id = $1`, productID); err != nil {
			return fmt.Errorf("delete history: %w", err)
		}

		cmd, err := tx.Exec(ctx, `DELETE FROM products WHERE id = $1`, productID)
		if err != nil {
			return fmt.Errorf("delete product: %w", err)
		}

		if cmd.RowsAffected() == 0 {
			return storage.ErrProductNotFound
		}

		return nil
	})
	if err != nil {
		if errors.Is(err, storage.ErrProductNotFound) {
			return err
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *PostgresRepo) ProductExists(ctx context.Context, productID int64) (bool, error) {
	const op = "storage.postgres.ProductExists"

	var exists bool

	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, productID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return exists, nil
}

// * PriceHistory возвращает историю цен товара от старых записей к новым
func (r *PostgresRepo) PriceHistory(ctx context.Context, productID int64) ([]models.PriceHistory, error) {
	const op = "storage.postgres.PriceHistory"

	const query = `
		SELECT id, product_id, price, timestamp
		FROM price_history
		WHERE product_id = $1
		ORDER BY timestamp ASC, id ASC
	`

	rows, err := r.pool.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("%s: query: %w", op, err)
	}
	defer rows.Close()

	history := []models.PriceHistory{}

	for rows.Next() {
		var ph models.PriceHistory
		if err := rows.Scan(&ph.ID, &ph.ProductID, &ph.Price, &ph.Timestamp); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		history = append(history, ph)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}

	return history, nil
}

// * Products возвращает все товары на мониторинге
func (r *PostgresRepo) Products(ctx context.Context) ([]models.ProductView, error) {
	const op = "storage.postgres.Products"

	products := []models.ProductView{}

	err := r.inTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadOnly,
	}, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `SELECT id, name, description, rating FROM products ORDER BY id`)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var p models.ProductView
			if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Rating); err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			p.Rating = roundRating(p.Rating)
			products = append(products, p)
		}

		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return products, nil
}

// * Close закрывает пул соединений
func (r *PostgresRepo) Close() {
	r.pool.Close()
}

// inTx коммитит транзакцию, если fn отработала без ошибки, иначе откатывает.
func (r *PostgresRepo) inTx(ctx context.Context, opts pgx.TxOptions, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}

func roundRating(rating *float64) *float64 {
	if rating == nil {
		return nil
	}

	rounded := decimal.NewFromFloat(*rating).Round(1).InexactFloat64()

	return &rounded
}

// * dsn формирует строку подключения к базе данных
func dsn(cfg *config.Config) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s database=%s sslmode=%s",
		cfg.Postgres.Host,
		cfg.Postgres.Port,
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.DBName,
		cfg.Postgres.SSLMode,
	)
}
