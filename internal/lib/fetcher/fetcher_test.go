package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetch_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, UserAgent, r.Header.Get("User-Agent"))
		assert.Equal(t, Cookie, r.Header.Get("Cookie"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"body":{"name":"Phone","description":"desc","rating":{"star":4.5}}}`))
	}))
	defer srv.Close()

	payload, err := New(srv.Client()).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	body, ok := payload["body"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Phone", body["name"])
	assert.Equal(t, 4.5, body["rating"].(map[string]any)["star"])
}

func TestFetch_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "not json", status: http.StatusOK, body: "<html>blocked</html>"},
		{name: "empty body", status: http.StatusOK, body: ""},
		{name: "json array", status: http.StatusOK, body: `[1,2,3]`, wantErr: ErrNotObject},
		{name: "server error", status: http.StatusInternalServerError, body: `{}`, wantErr: ErrBadStatus},
		{name: "forbidden", status: http.StatusForbidden, body: `{"body":{}}`, wantErr: ErrBadStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			payload, err := New(srv.Client()).Fetch(context.Background(), srv.URL)
			require.Error(t, err)
			assert.Nil(t, payload)

			var fetchErr *FetchError
			require.True(t, errors.As(err, &fetchErr))
			assert.Equal(t, srv.URL, fetchErr.URL)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestFetch_BodySizeLimit(t *testing.T) {
	tests := []struct {
		name    string
		pad     int
		wantErr error
	}{
		{name: "at limit", pad: maxBodySize},
		{name: "over limit", pad: maxBodySize + 1, wantErr: ErrTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			const prefix, suffix = `{"body":"`, `"}`
			body := prefix + strings.Repeat("x", tt.pad-len(prefix)-len(suffix)) + suffix

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()

			payload, err := New(srv.Client()).Fetch(context.Background(), srv.URL)
			if tt.wantErr == nil {
				require.NoError(t, err)
				assert.Len(t, payload["body"], tt.pad-len(prefix)-len(suffix))
				return
			}

			require.ErrorIs(t, err, tt.wantErr)

			var fetchErr *FetchError
			require.True(t, errors.As(err, &fetchErr))
		})
	}
}

func TestFetch_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(nil).Fetch(context.Background(), url)

	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
}

func TestFetch_BadURL(t *testing.T) {
	_, err := New(nil).Fetch(context.Background(), "://broken")

	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
}
