package addPrice

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	resp "price_monitor/internal/lib/api/response"
	sl "price_monitor/internal/lib/logger"
	"price_monitor/internal/storage"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	validator "github.com/go-playground/validator/v10"
)

var errNotFinite = errors.New("price is not a finite number")

type Request struct {
	ItemID int64   `json:"item_id" validate:"required,gt=0"`
	Price  float64 `json:"price" validate:"required,gt=0"`
}

type PriceAdder interface {
	AddPrice(ctx context.Context, productID int64, price float64) error
}

func New(
	log *slog.Logger,
	adder PriceAdder,
	validate *validator.Validate,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.products.add_price.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		req, err := parseRequest(r)
		if err != nil {
			log.Error("Failed to parse query", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("item_id and price must be numbers", http.StatusBadRequest))

			return
		}

		if err := validate.Struct(req); err != nil {
			var validateErr validator.ValidationErrors
			if errors.As(err, &validateErr) {
				log.Error("Invalid request", sl.Err(err))

				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.ValidationError(validateErr))

				return
			}

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Invalid request", http.StatusBadRequest))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		err = adder.AddPrice(ctx, req.ItemID, req.Price)
		if errors.Is(err, storage.ErrProductNotFound) {
			log.Info("Product not found", slog.Int64("product_id", req.ItemID))

			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, resp.Error("Product not found", http.StatusNotFound))

			return
		}
		if err != nil {
			log.Error("Failed to add price",
				sl.Err(err),
				slog.Int64("product_id", req.ItemID),
			)

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error", http.StatusInternalServerError))

			return
		}

		log.Info("Price added successfully",
			slog.Int64("product_id", req.ItemID),
			slog.Float64("price", req.Price),
		)

		render.JSON(w, r, resp.OK("price added"))
	}
}

func parseRequest(r *http.Request) (Request, error) {
	q := r.URL.Query()

	itemID, err := strconv.ParseInt(q.Get("item_id"), 10, 64)
	if err != nil {
		return Request{}, err
	}

	price, err := strconv.ParseFloat(q.Get("price"), 64)
	if err != nil {
		return Request{}, err
	}
	// * ParseFloat понимает Inf и NaN, в JSON их не отдать
	if math.IsInf(price, 0) || math.IsNaN(price) {
		return Request{}, errNotFinite
	}

	return Request{ItemID: itemID, Price: price}, nil
}
