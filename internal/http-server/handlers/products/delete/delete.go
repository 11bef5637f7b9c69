package deleteProduct

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	resp "price_monitor/internal/lib/api/response"
	sl "price_monitor/internal/lib/logger"
	"price_monitor/internal/storage"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type ProductsRemover interface {
	DeleteProduct(ctx context.Context, productID int64) error
}

func New(
	log *slog.Logger,
	remover ProductsRemover,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.products.delete.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		productID := parseProductID(r)
		if productID == -1 {
			log.Error("Invalid id", slog.String("item_id", chi.URLParam(r, "item_id")))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Invalid id", http.StatusBadRequest))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		err := remover.DeleteProduct(ctx, productID)
		if errors.Is(err, storage.ErrProductNotFound) {
			log.Info("Product not found", slog.Int64("product_id", productID))

			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, resp.Error("Product not found", http.StatusNotFound))

			return
		}
		if err != nil {
			log.Error("Failed to delete product",
				sl.Err(err),
				slog.Int64("product_id", productID),
			)

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error", http.StatusInternalServerError))

			return
		}

		log.Info("Product deleted successfully", slog.Int64("product_id", productID))

		render.JSON(w, r, resp.OK("product deleted"))
	}
}

func parseProductID(r *http.Request) int64 {
	productIDStr := chi.URLParam(r, "item_id")
	if productIDStr == "" {
		return -1
	}

	productID, err := strconv.ParseInt(productIDStr, 10, 64)
	if err != nil || productID <= 0 {
		return -1
	}

	return productID
}
