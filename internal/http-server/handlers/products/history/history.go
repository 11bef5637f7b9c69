package getHistory

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	resp "price_monitor/internal/lib/api/response"
	sl "price_monitor/internal/lib/logger"
	"price_monitor/internal/models"
	"price_monitor/internal/storage"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type HistoryGetter interface {
	PriceHistory(ctx context.Context, productID int64) ([]models.PriceHistory, error)
}

func New(
	log *slog.Logger,
	getter HistoryGetter,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.products.history.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		productID := parseProductID(r)
		if productID == -1 {
			log.Error("Invalid id")

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Invalid id", http.StatusBadRequest))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		history, err := getter.PriceHistory(ctx, productID)
		if errors.Is(err, storage.ErrProductNotFound) {
			log.Info("Product not found", slog.Int64("product_id", productID))

			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, resp.Error("Product not found", http.StatusNotFound))

			return
		}
		if err != nil {
			log.Error("Failed to get price history",
				sl.Err(err),
				slog.Int64("product_id", productID),
			)

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error", http.StatusInternalServerError))

			return
		}

		if history == nil {
			history = []models.PriceHistory{}
		}

		log.Info("Price history got successfully",
			slog.Int64("product_id", productID),
			slog.Int("count", len(history)),
		)

		render.JSON(w, r, resp.OK(history))
	}
}

func parseProductID(r *http.Request) int64 {
	productID, err := strconv.ParseInt(chi.URLParam(r, "item_id"), 10, 64)
	if err != nil || productID <= 0 {
		return -1
	}

	return productID
}
