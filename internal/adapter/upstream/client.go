// Package upstream holds the HTTP plumbing shared by the agency adapters:
// per-request timeout, bounded retry with backoff, metrics, and status
// handling.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/groundwater-etl/internal/observability"
	"github.com/couchcryptid/storm-data-shared/retry"
)

// ErrUpstream marks a failed fetch from an agency service.
var ErrUpstream = errors.New("upstream fetch failed")

const (
	defaultAttempts   = 1
	defaultBackoff    = 2 * time.Second
	defaultMaxBackoff = 30 * time.Second
	maxErrorBody      = 512
)

// StatusError is returned for a non-200 response.
type StatusError struct {
	Agency string
	Feed   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Agency, e.Feed, e.Code, e.Body)
}

func (e *StatusError) Unwrap() error { return ErrUpstream }

// IsNotFound reports whether err is a 404 from the agency.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

// Client performs GET requests against one agency's services.
type Client struct {
	agency     string
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger

	attempts   int
	backoff    time.Duration
	maxBackoff time.Duration
}

// NewClient creates a client for agency with a fixed per-request timeout.
func NewClient(agency string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		agency:     agency,
		httpClient: &http.Client{Timeout: timeout},
		metrics:    metrics,
		logger:     logger,
		attempts:   defaultAttempts,
		backoff:    defaultBackoff,
		maxBackoff: defaultMaxBackoff,
	}
}

// WithBackoff overrides the retry schedule. By default a request is tried
// once. attempts below 1 mean one try.
func (c *Client) WithBackoff(attempts int, initial, maxBackoff time.Duration) *Client {
	c.attempts = max(attempts, 1)
	c.backoff = initial
	c.maxBackoff = maxBackoff
	return c
}

// WithRetries enables n extra attempts on the default backoff schedule.
func (c *Client) WithRetries(n int) *Client {
	c.attempts = max(n, 0) + 1
	return c
}

// Agency returns the canonical agency this client talks to.
func (c *Client) Agency() string { return c.agency }

// Get fetches fullURL and returns the response body. When retries are
// enabled, transport errors and 5xx or 429 responses are retried; any other
// non-200 status fails at once.
func (c *Client) Get(ctx context.Context, feed, fullURL string) ([]byte, error) {
	wait := c.backoff
	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		body, retryable, err := c.get(ctx, feed, fullURL)
		if err == nil {
			c.observe(feed, "success")
			return body, nil
		}
		lastErr = err
		if !retryable || attempt == c.attempts {
			break
		}
		c.logger.Warn("retrying upstream request",
			"agency", c.agency,
			"feed", feed,
			"attempt", attempt,
			"backoff", wait,
			"error", err,
		)
		if !retry.SleepWithContext(ctx, wait) {
			lastErr = ctx.Err()
			break
		}
		wait = retry.NextBackoff(wait, c.maxBackoff)
	}

	if IsNotFound(lastErr) {
		c.observe(feed, "not_found")
	} else {
		c.observe(feed, "error")
	}
	if errors.Is(lastErr, ErrUpstream) {
		return nil, lastErr
	}
	return nil, fmt.Errorf("%w: %s %s: %w", ErrUpstream, c.agency, feed, lastErr)
}

func (c *Client) get(ctx context.Context, feed, fullURL string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if c.metrics != nil {
		c.metrics.UpstreamDuration.WithLabelValues(c.agency, feed).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		return nil, ctx.Err() == nil, fmt.Errorf("%s request: %w", feed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		retryable := resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests
		return nil, retryable, &StatusError{Agency: c.agency, Feed: feed, Code: resp.StatusCode, Body: string(body)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("read %s response: %w", feed, err)
	}
	c.logger.Debug("upstream response",
		"agency", c.agency,
		"feed", feed,
		"bytes", len(body),
		"elapsed", time.Since(start),
	)
	return body, false, nil
}

func (c *Client) observe(feed, outcome string) {
	if c.metrics == nil {
		return
	}
	c.metrics.UpstreamRequests.WithLabelValues(c.agency, feed, outcome).Inc()
}
