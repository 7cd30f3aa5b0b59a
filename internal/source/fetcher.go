// Package source loads the make-ready workbook: it fetches the raw bytes
// (over HTTP or from disk), caches them for a bounded time and parses the
// Unit and Task sheets into models.
package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
)

// ErrSourceUnavailable wraps every failure to obtain the workbook bytes.
var ErrSourceUnavailable = errors.New("data source unavailable")

// Fetcher retrieves the raw workbook bytes.
type Fetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
	// Describe names the source for logs and snapshots.
	Describe() string
}

// HTTPFetcher downloads the workbook from an export URL.
type HTTPFetcher struct {
	client *resty.Client
	url    string
}

// HTTPFetcherConfig configures an HTTPFetcher.
type HTTPFetcherConfig struct {
	URL     string
	Timeout time.Duration
	Retries int
}

// NewHTTPFetcher creates a retrying HTTP fetcher.
func NewHTTPFetcher(cfg HTTPFetcherConfig) *HTTPFetcher {
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(5*time.Second).
		SetHeader("Accept", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet, application/octet-stream").
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500 || r.StatusCode() == 429
		})

	return &HTTPFetcher{client: client, url: cfg.URL}
}

// Fetch downloads the workbook. Non-2xx responses are errors.
func (f *HTTPFetcher) Fetch(ctx context.Context) ([]byte, error) {
	resp, err := f.client.R().SetContext(ctx).Get(f.url)
	if err != nil {
		return nil, fmt.Errorf("%w: download %s: %v", ErrSourceUnavailable, f.url, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: download %s: status %d", ErrSourceUnavailable, f.url, resp.StatusCode())
	}
	body := resp.Body()
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: download %s: empty body", ErrSourceUnavailable, f.url)
	}
	return body, nil
}

// Describe returns the export URL.
func (f *HTTPFetcher) Describe() string {
	return f.url
}

// FileFetcher reads the workbook from a local path.
type FileFetcher struct {
	path string
}

// NewFileFetcher creates a fetcher for path.
func NewFileFetcher(path string) *FileFetcher {
	return &FileFetcher{path: path}
}

// Fetch reads the whole file.
func (f *FileFetcher) Fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrSourceUnavailable, f.path, err)
	}
	return data, nil
}

// Describe returns the file path.
func (f *FileFetcher) Describe() string {
	return f.path
}
