package listMonitoring

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	resp "price_monitor/internal/lib/api/response"
	sl "price_monitor/internal/lib/logger"
	"price_monitor/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type ProductsGetter interface {
	Products(ctx context.Context) ([]models.ProductView, error)
}

// New отдаёт все товары на мониторинге. item_id в пути не используется.
func New(
	log *slog.Logger,
	getter ProductsGetter,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.products.list.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		products, err := getter.Products(ctx)
		if err != nil {
			log.Error("Failed to get products", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error", http.StatusInternalServerError))

			return
		}

		if products == nil {
			products = []models.ProductView{}
		}

		log.Info("Products got successfully", slog.Int("count", len(products)))

		render.JSON(w, r, resp.OK(products))
	}
}
