package addProduct

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	resp "price_monitor/internal/lib/api/response"
	"price_monitor/internal/lib/extractor"
	"price_monitor/internal/lib/fetcher"
	sl "price_monitor/internal/lib/logger"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	validator "github.com/go-playground/validator/v10"
)

// запрос к API магазина может идти дольше обычных операций с базой
const requestTimeout = 15 * time.Second

type Request struct {
	URLInfo  string `json:"url_info" validate:"required,url"`
	URLPrice string `json:"url_price" validate:"required,url"`
}

type Response struct {
	resp.Response
	ProductID int64 `json:"product_id,omitempty"`
}

type ProductAdder interface {
	AddProduct(ctx context.Context, urlInfo, urlPrice string) (int64, error)
}

func New(
	log *slog.Logger,
	adder ProductAdder,
	validate *validator.Validate,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.products.add.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req Request

		r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // * 1 МБ лимит запроса
		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			log.Error("Failed to decode request body", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Failed to decode request", http.StatusBadRequest))

			return
		}

		log.Info("Request body decoded")

		if err := validate.Struct(req); err != nil {
			var validateErr validator.ValidationErrors
			if !errors.As(err, &validateErr) {
				log.Error("Failed to validate request", sl.Err(err))

				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error("Invalid request", http.StatusBadRequest))

				return
			}

			log.Error("Invalid request", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.ValidationError(validateErr))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		productID, err := adder.AddProduct(ctx, req.URLInfo, req.URLPrice)
		if err != nil {
			var (
				fetchErr   *fetcher.FetchError
				extractErr *extractor.ExtractError
			)

			switch {
			case errors.As(err, &fetchErr):
				log.Error("Failed to fetch product info", sl.Err(err))
				responseError(w, r, "Failed to fetch product info: "+fetchErr.Err.Error(), http.StatusBadGateway)

			case errors.As(err, &extractErr):
				log.Error("Failed to extract product info", sl.Err(err))
				responseError(w, r, "Failed to extract product info: "+extractErr.Error(), http.StatusUnprocessableEntity)

			default:
				log.Error("Failed to save product", sl.Err(err))
				responseError(w, r, "Internal error", http.StatusInternalServerError)
			}

			return
		}

		log.Info("Product saved successfully", slog.Int64("product_id", productID))

		ResponseOK(w, r, productID)
	}
}

func ResponseOK(w http.ResponseWriter, r *http.Request, id int64) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, Response{
		Response:  resp.OK("product added"),
		ProductID: id,
	})
}

func responseError(w http.ResponseWriter, r *http.Request, msg string, code int) {
	render.Status(r, code)
	render.JSON(w, r, Response{Response: resp.Error(msg, code)})
}
