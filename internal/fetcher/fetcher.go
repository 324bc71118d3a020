package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"
)

// ErrFetchFailed indicates the page could not be retrieved at the transport
// level. It is fatal for the watch being checked but never for the sweep.
var ErrFetchFailed = errors.New("fetch failed")

// DefaultMaxBodySize caps response bodies at 10MB.
const DefaultMaxBodySize = 10 * 1024 * 1024

// PageFetcher retrieves raw page content over HTTP.
type PageFetcher struct {
	httpClient  *http.Client
	logger      zerolog.Logger
	maxBodySize int64
}

// NewPageFetcher creates a PageFetcher. The caller supplies the http.Client
// so the fetch timeout is configured in one place; a timeout surfaces as
// ErrFetchFailed like any other transport error.
func NewPageFetcher(client *http.Client, logger zerolog.Logger, maxBodySize int64) *PageFetcher {
	if maxBodySize <= 0 {
		maxBodySize = DefaultMaxBodySize
	}
	return &PageFetcher{
		httpClient:  client,
		logger:      logger.With().Str("component", "PageFetcher").Logger(),
		maxBodySize: maxBodySize,
	}
}

// Fetch returns the response body as text. A non-success HTTP status is not
// an error: the body is returned as-is and selection decides what to make of
// it. Only transport failures (connect, timeout, TLS) are errors.
func (f *PageFetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: creating request for %s: %v", ErrFetchFailed, url, err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		f.logger.Error().Err(err).Str("url", url).Msg("HTTP request failed")
		return "", fmt.Errorf("%w: %s: %v", ErrFetchFailed, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		f.logger.Warn().Str("url", url).Int("status_code", resp.StatusCode).Msg("Received non-success HTTP status")
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		f.logger.Error().Err(err).Str("url", url).Msg("Failed to read response body")
		return "", fmt.Errorf("%w: reading body of %s: %v", ErrFetchFailed, url, err)
	}

	f.logger.Debug().Str("url", url).Int("size", len(body)).Msg("Page fetched")
	return string(body), nil
}
