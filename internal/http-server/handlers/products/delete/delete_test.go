package deleteProduct

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	resp "price_monitor/internal/lib/api/response"
	"price_monitor/internal/storage"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRemover struct {
	err     error
	removed []int64
}

func (s *stubRemover) DeleteProduct(_ context.Context, productID int64) error {
	s.removed = append(s.removed, productID)
	return s.err
}

func TestDeleteHandler(t *testing.T) {
	cases := []struct {
		name        string
		path        string
		err         error
		wantCode    int
		wantRemoved []int64
	}{
		{name: "Success", path: "/delete_product/3", wantCode: http.StatusOK, wantRemoved: []int64{3}},
		{name: "Not found", path: "/delete_product/4", err: storage.ErrProductNotFound, wantCode: http.StatusNotFound, wantRemoved: []int64{4}},
		{name: "Store error", path: "/delete_product/5", err: errors.New("boom"), wantCode: http.StatusInternalServerError, wantRemoved: []int64{5}},
		{name: "Not a number", path: "/delete_product/abc", wantCode: http.StatusBadRequest},
		{name: "Negative id", path: "/delete_product/-1", wantCode: http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			remover := &stubRemover{err: tc.err}

			r := chi.NewRouter()
			r.Delete("/delete_product/{item_id}", New(slog.New(slog.NewTextHandler(io.Discard, nil)), remover))

			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, tc.path, nil))

			var out resp.Response
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))

			assert.Equal(t, tc.wantCode, rr.Code)
			assert.Equal(t, tc.wantCode, out.StatusCode)
			assert.Equal(t, tc.wantRemoved, remover.removed)

			if tc.wantCode == http.StatusOK {
				assert.Equal(t, resp.StatusOK, out.Status)
				assert.Equal(t, "product deleted", out.Message)
			} else {
				assert.Equal(t, resp.StatusError, out.Status)
				assert.NotEmpty(t, out.Error)
			}
		})
	}
}
