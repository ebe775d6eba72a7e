package marketdata

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"backtest-lab/internal/domain"
)

// Default HTTP fetcher settings.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
)

// TickerPlaceholder is replaced by the escaped ticker in URL templates.
const TickerPlaceholder = "{ticker}"

// HTTPFetcher downloads a daily CSV per ticker from a URL template such as
// https://stooq.com/q/d/l/?s={ticker}&i=d and parses it like CSVFetcher.
type HTTPFetcher struct {
	template    string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
}

// HTTPOption configures HTTPFetcher.
type HTTPOption func(*HTTPFetcher)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) HTTPOption {
	return func(f *HTTPFetcher) {
		f.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) HTTPOption {
	return func(f *HTTPFetcher) {
		f.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) HTTPOption {
	return func(f *HTTPFetcher) {
		f.retryDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(f *HTTPFetcher) {
		f.client = client
	}
}

// NewHTTPFetcher creates a fetcher for template, which must contain {ticker}.
func NewHTTPFetcher(template string, opts ...HTTPOption) (*HTTPFetcher, error) {
	if !strings.Contains(template, TickerPlaceholder) {
		return nil, fmt.Errorf("url template %q has no %s placeholder", template, TickerPlaceholder)
	}
	f := &HTTPFetcher{
		template:    template,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Fetch downloads the ticker's CSV and returns the bars within [start, end].
func (f *HTTPFetcher) Fetch(ctx context.Context, ticker string, start, end time.Time) (domain.PriceSeries, error) {
	endpoint := strings.ReplaceAll(f.template, TickerPlaceholder, url.QueryEscape(strings.ToLower(ticker)))

	body, err := f.get(ctx, endpoint)
	if err != nil {
		return domain.PriceSeries{}, fmt.Errorf("fetch %s: %w", ticker, err)
	}

	bars, err := ParseCSV(bytes.NewReader(body), ticker)
	if err != nil {
		return domain.PriceSeries{}, fmt.Errorf("parse %s: %w", ticker, err)
	}
	return seriesInRange(ticker, bars, start, end)
}

// get performs a GET with retries and exponential backoff.
// 4xx responses other than 429 are not retried.
func (f *HTTPFetcher) get(ctx context.Context, endpoint string) ([]byte, error) {
	delay := f.retryDelay
	var lastErr error

	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * f.backoffMult)
			if delay > f.maxDelay {
				delay = f.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "text/csv")

		resp, err := f.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			return body, nil
		case resp.StatusCode == http.StatusNotFound:
			return nil, ErrNoData
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			lastErr = fmt.Errorf("unexpected status %d", resp.StatusCode)
		default:
			return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(body, 200))
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
