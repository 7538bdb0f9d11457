// Package source fetches the raw catalog datasets over HTTP or from local files
package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/unicatalog/backend/internal/domain"
	"github.com/unicatalog/backend/internal/metrics"
)

const maxAttempts = 3

// Config holds the dataset locations and transport settings. A location is
// an http(s) URL, a file:// URL or a plain file path.
type Config struct {
	Main     string
	Extended string
	Timeout  time.Duration
	// RatePerSecond limits outgoing requests; zero means unlimited
	RatePerSecond float64
	Burst         int
}

// Client loads the main and extended datasets
type Client struct {
	httpClient  *http.Client
	main        string
	extended    string
	rateLimiter *rate.Limiter
	backoff     func(attempt int) time.Duration
}

// NewClient creates a source client
func NewClient(config Config) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	limit := rate.Inf
	if config.RatePerSecond > 0 {
		limit = rate.Limit(config.RatePerSecond)
	}
	burst := config.Burst
	if burst <= 0 {
		burst = 2
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		main:        strings.TrimSpace(config.Main),
		extended:    strings.TrimSpace(config.Extended),
		rateLimiter: rate.NewLimiter(limit, burst),
		backoff:     exponentialBackoff,
	}
}

// exponentialBackoff returns 500ms, 1s, 2s for attempts 1, 2, 3
func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(500*(1<<(attempt-1))) * time.Millisecond
}

// FetchMain loads the detail-rich dataset. An unconfigured location yields no records.
func (c *Client) FetchMain(ctx context.Context) ([]domain.RawMainRecord, error) {
	if c.main == "" {
		return nil, nil
	}
	body, err := c.load(ctx, c.main)
	if err != nil {
		return nil, err
	}
	records, skipped, err := decodeRecords[domain.RawMainRecord](body)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", domain.ErrSourceUnavailable, c.main, err)
	}
	c.reportSkipped("main", skipped)
	return records, nil
}

// FetchExtended loads the complete roster dataset
func (c *Client) FetchExtended(ctx context.Context) ([]domain.RawExtendedRecord, error) {
	if c.extended == "" {
		return nil, fmt.Errorf("%w: extended source not configured", domain.ErrSourceUnavailable)
	}
	body, err := c.load(ctx, c.extended)
	if err != nil {
		return nil, err
	}
	records, skipped, err := decodeRecords[domain.RawExtendedRecord](body)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", domain.ErrSourceUnavailable, c.extended, err)
	}
	c.reportSkipped("extended", skipped)
	return records, nil
}

// reportSkipped records elements dropped while decoding a payload
func (c *Client) reportSkipped(source string, skipped int) {
	if skipped == 0 {
		return
	}
	metrics.SkippedRecords.Add(float64(skipped))
	slog.Warn("Source payload had undecodable records", "source", source, "skipped", skipped)
}

func (c *Client) load(ctx context.Context, location string) ([]byte, error) {
	if !isHTTP(location) {
		return readFile(location)
	}
	return c.get(ctx, location)
}

func isHTTP(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

func readFile(location string) ([]byte, error) {
	path := strings.TrimPrefix(location, "file://")
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
	}
	return body, nil
}

// get fetches a URL, retrying transient failures with exponential backoff
func (c *Client) get(ctx context.Context, reqURL string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}

		body, retry, err := c.doRequest(ctx, reqURL)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retry || attempt == maxAttempts {
			break
		}

		slog.Warn("Source request failed, retrying", "url", reqURL, "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.backoff(attempt)):
		}
	}
	return nil, lastErr
}

// doRequest executes one GET and reports whether a failure is worth retrying
func (c *Client) doRequest(ctx context.Context, reqURL string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "UniCatalog/1.0")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("%w: read body: %v", domain.ErrSourceUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		retry := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return nil, retry, fmt.Errorf("%w: status %d", domain.ErrSourceUnavailable, resp.StatusCode)
	}
	return body, false, nil
}
