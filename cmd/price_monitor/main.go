package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"reflect"
	"strings"
	"syscall"
	"time"

	"price_monitor/internal/config"
	addProduct "price_monitor/internal/http-server/handlers/products/add"
	addPrice "price_monitor/internal/http-server/handlers/products/add_price"
	deleteProduct "price_monitor/internal/http-server/handlers/products/delete"
	getHistory "price_monitor/internal/http-server/handlers/products/history"
	listMonitoring "price_monitor/internal/http-server/handlers/products/list"
	"price_monitor/internal/lib/fetcher"
	sl "price_monitor/internal/lib/logger"
	"price_monitor/internal/lib/parser"
	"price_monitor/internal/middleware/products"
	"price_monitor/internal/rabbitmq"
	"price_monitor/internal/storage/postgres"
	"price_monitor/internal/storage/redis"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator/v10"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	cfg := config.MustLoad()

	log := setupLogger(cfg.Env)

	log.Info("starting price monitor", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// * Инициализация Redis
	redisClient, err := redis.New(ctx, cfg.Redis.Addr, cfg.Redis.Db, cfg.Redis.DefaultTTL)
	if err != nil {
		log.Error("failed to connect redis", sl.Err(err))
		os.Exit(1)
	}
	defer redisClient.Close()

	// * Инициализация PostgreSQL
	postgresClient, err := postgres.New(ctx, cfg)
	if err != nil {
		log.Error("failed to connect postgreSQL", sl.Err(err))
		os.Exit(1)
	}
	defer postgresClient.Close()

	if err := postgresClient.Migrate(ctx); err != nil {
		log.Error("failed to migrate postgreSQL", sl.Err(err))
		os.Exit(1)
	}

	// * Инициализация RabbitMQ
	rabbitMQClient, err := rabbitmq.New(cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName)
	if err != nil {
		log.Error("failed to connect rabbitMQ", sl.Err(err))
		os.Exit(1)
	}
	defer rabbitMQClient.Close()

	rabbitMQProducer := rabbitmq.NewProducer(
		rabbitMQClient.Channel,
		cfg.RabbitMQ.QueueName,
	)
	rabbitMQConsumer := rabbitmq.NewConsumer(
		rabbitMQClient.Channel,
		log,
		cfg.RabbitMQ.QueueName,
		cfg.RabbitMQ.WorkerPoolSize,
	)

	shopFetcher := fetcher.New(&http.Client{Timeout: 10 * time.Second})

	// * Инициализация Products Middleware
	prodOP := products.New(
		log,
		shopFetcher,
		postgresClient,
		redisClient,
		rabbitMQProducer,
	)

	// * Инициализация parser'а
	priceParser := parser.New(log, shopFetcher, prodOP)
	if err := priceParser.Run(ctx, rabbitMQConsumer); err != nil {
		log.Error("failed to start price parser", sl.Err(err))
		os.Exit(1)
	}

	router := setupRouter(log, newValidator(), prodOP)

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("starting http server", slog.String("address", cfg.HTTPServer.Address))

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", sl.Err(err))
			stop()
		}
	}()

	<-ctx.Done()

	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop http server", sl.Err(err))
	}

	rabbitMQConsumer.Wait()

	log.Info("price monitor stopped")
}

func setupRouter(
	log *slog.Logger,
	validate *validator.Validate,
	prodOP *products.ProductOperator,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/parsing", func(r chi.Router) {
		r.Post("/add_product", addProduct.New(log, prodOP, validate))
		r.Delete("/delete_product/{item_id}", deleteProduct.New(log, prodOP))
		r.Get("/get_history_price_item{item_id}", getHistory.New(log, prodOP))
		r.Get("/add_price", addPrice.New(log, prodOP, validate))
		r.Get("/get_list_monitoring", listMonitoring.New(log, prodOP))
		r.Get("/get_list_monitoring/{item_id}", listMonitoring.New(log, prodOP))
	})

	return r
}

// newValidator подставляет json имена полей в сообщения об ошибках.
func newValidator() *validator.Validate {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return v
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}
