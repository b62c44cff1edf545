package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
)

const (
	// DefaultMaxRetries is the total number of fetch attempts.
	DefaultMaxRetries = 3
	// DefaultRetryDelay is the fixed sleep between attempts.
	DefaultRetryDelay = time.Second
	// DefaultTimeout is the per-request HTTP timeout.
	DefaultTimeout = 30 * time.Second
	// DefaultRateLimit is the outbound request budget (requests per second).
	DefaultRateLimit = 5

	userAgent = "contexo/1.0 (+https://github.com/tobybranson/contexo)"
)

// Fetcher retrieves remote page content with bounded retry. Transport errors
// and error statuses are retried up to MaxRetries total attempts with a fixed
// delay between them; the final failure wraps the last underlying error with
// the attempt count and URL.
type Fetcher struct {
	client     *http.Client
	limiter    *rate.Limiter
	maxRetries int
	retryDelay time.Duration
	logger     arbor.ILogger
}

// Option configures the Fetcher.
type Option func(*Fetcher)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		f.client = client
	}
}

// WithRetries sets the total attempt count and the fixed delay between attempts.
func WithRetries(maxRetries int, delay time.Duration) Option {
	return func(f *Fetcher) {
		if maxRetries > 0 {
			f.maxRetries = maxRetries
		}
		if delay >= 0 {
			f.retryDelay = delay
		}
	}
}

// WithRateLimit sets the outbound requests-per-second budget.
func WithRateLimit(requestsPerSecond float64) Option {
	return func(f *Fetcher) {
		if requestsPerSecond > 0 {
			f.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
		}
	}
}

// New creates a Fetcher.
func New(logger arbor.ILogger, opts ...Option) *Fetcher {
	f := &Fetcher{
		client: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), 1),
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
		logger:     logger,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Fetch retrieves the raw body of a page.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= f.maxRetries; attempt++ {
		if err := f.limiter.Wait(ctx); err != nil {
			return "", err
		}

		body, err := f.do(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err

		f.logger.Warn().
			Err(err).
			Str("url", url).
			Int("attempt", attempt).
			Int("max_attempts", f.maxRetries).
			Msg("Fetch attempt failed")

		if attempt < f.maxRetries {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(f.retryDelay):
			}
		}
	}

	return "", fmt.Errorf("fetch %s failed after %d attempts: %w", url, f.maxRetries, lastErr)
}

func (f *Fetcher) do(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	return string(body), nil
}
