package addPrice

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	resp "price_monitor/internal/lib/api/response"
	"price_monitor/internal/storage"

	validator "github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	id    int64
	price float64
}

type stubAdder struct {
	err   error
	calls []call
}

func (s *stubAdder) AddPrice(_ context.Context, productID int64, price float64) error {
	s.calls = append(s.calls, call{productID, price})
	return s.err
}

func TestAddPriceHandler(t *testing.T) {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	})

	cases := []struct {
		name      string
		query     string
		err       error
		wantCode  int
		wantCalls []call
		wantError string
	}{
		{name: "Success", query: "item_id=1&price=199.9", wantCode: http.StatusOK, wantCalls: []call{{1, 199.9}}},
		{name: "Unknown product", query: "item_id=2&price=10", err: storage.ErrProductNotFound, wantCode: http.StatusNotFound, wantCalls: []call{{2, 10}}},
		{name: "Store error", query: "item_id=2&price=10", err: errors.New("boom"), wantCode: http.StatusInternalServerError, wantCalls: []call{{2, 10}}},
		{name: "Missing price", query: "item_id=1", wantCode: http.StatusBadRequest, wantError: "must be numbers"},
		{name: "Price not a number", query: "item_id=1&price=cheap", wantCode: http.StatusBadRequest, wantError: "must be numbers"},
		{name: "Inf price", query: "item_id=1&price=Inf", wantCode: http.StatusBadRequest, wantError: "must be numbers"},
		{name: "Negative Inf price", query: "item_id=1&price=-Inf", wantCode: http.StatusBadRequest, wantError: "must be numbers"},
		{name: "NaN price", query: "item_id=1&price=NaN", wantCode: http.StatusBadRequest, wantError: "must be numbers"},
		{name: "Zero price", query: "item_id=1&price=0", wantCode: http.StatusBadRequest, wantError: "field price"},
		{name: "Negative id", query: "item_id=-3&price=5", wantCode: http.StatusBadRequest, wantError: "field item_id must be greater than 0"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			adder := &stubAdder{err: tc.err}
			h := New(slog.New(slog.NewTextHandler(io.Discard, nil)), adder, v)

			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/add_price?"+tc.query, nil))

			var out resp.Response
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))

			assert.Equal(t, tc.wantCode, rr.Code)
			assert.Equal(t, tc.wantCode, out.StatusCode)
			assert.Equal(t, tc.wantCalls, adder.calls)

			if tc.wantError != "" {
				assert.Contains(t, out.Error, tc.wantError)
			}
		})
	}
}
