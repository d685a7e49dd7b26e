// Package datasource fetches historical price series from market-data providers.
// It defines a PriceSource interface and a Yahoo Finance implementation.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/seenimoa/stockqa/pkg/models"
)

// PriceSource is a market-data provider that can return daily history.
type PriceSource interface {
	// Name returns the human-readable name of this data source.
	Name() string

	// History returns daily bars for a fully-qualified symbol (e.g. "RELIANCE.NS")
	// between start (inclusive) and end (exclusive). A provider answer with
	// no rows is reported as ErrNoData.
	History(ctx context.Context, symbol string, start, end time.Time) (*models.PriceSeries, error)
}

// --- Sentinel errors ---

// ErrNoData is returned when the provider answers but has no rows for the
// symbol and range, including symbols it does not recognise.
var ErrNoData = errors.New("no data found")

// IsNoData reports whether err means the provider had no rows.
func IsNoData(err error) bool {
	return errors.Is(err, ErrNoData)
}

// ErrHTTP wraps an HTTP error with status code.
type ErrHTTP struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *ErrHTTP) Error() string {
	return fmt.Sprintf("HTTP %d %s: %s", e.StatusCode, e.Status, e.Body)
}

// --- Shared HTTP client helpers ---

// DefaultUserAgent is the user agent string used for HTTP requests.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// maxBodySize caps how much of a provider response is read.
const maxBodySize = 16 << 20

// doGet performs a GET request and returns the response body. For status
// codes >= 400 the body is still returned alongside an *ErrHTTP so callers
// can inspect provider error payloads.
func doGet(ctx context.Context, client *http.Client, url string, headers map[string]string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}

	// Set default headers.
	req.Header.Set("User-Agent", DefaultUserAgent)
	req.Header.Set("Accept", "application/json, text/html, */*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	// Override/add custom headers.
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("HTTP GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		excerpt := body
		if len(excerpt) > 1024 {
			excerpt = excerpt[:1024]
		}
		return body, resp.StatusCode, &ErrHTTP{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(excerpt),
		}
	}

	return body, resp.StatusCode, nil
}
