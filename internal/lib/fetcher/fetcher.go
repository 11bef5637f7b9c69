package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

const (
	UserAgent = "Mozilla/5.0 (Linux; Android 6.0; Nexus 5 Build/MRA58N) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/128.0.0.0 Mobile Safari/537.36"
	// Cookie фиксирует город и магазин витрины, от них зависят цены в ответе.
	Cookie = "MVID_CITY_ID=CityCZ_975; MVID_REGION_ID=1; MVID_REGION_SHOP=S002; MVID_TIMEZONE_OFFSET=3;"

	maxBodySize = 4 << 20 // * 4 МБ
)

var (
	ErrBadStatus = errors.New("unexpected response status")
	ErrNotObject = errors.New("response is not a JSON object")
	ErrTooLarge  = errors.New("response body too large")
)

// FetchError ошибка получения данных с API магазина.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

type Fetcher struct {
	client *http.Client
}

// New создаёт Fetcher. Если client == nil, используется http.DefaultClient.
func New(client *http.Client) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}

	return &Fetcher{client: client}
}

// * Fetch делает один GET запрос и возвращает тело ответа как JSON объект
func (f *Fetcher) Fetch(ctx context.Context, url string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}

	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Cookie", Cookie)
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("%w: %d", ErrBadStatus, resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("read body: %w", err)}
	}
	if len(body) > maxBodySize {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("%w: over %d bytes", ErrTooLarge, maxBodySize)}
	}

	var payload any

	if err := json.Unmarshal(bytes.TrimSpace(body), &payload); err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("decode body: %w", err)}
	}

	obj, ok := payload.(map[string]any)
	if !ok {
		return nil, &FetchError{URL: url, Err: ErrNotObject}
	}

	return obj, nil
}
