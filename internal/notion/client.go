package notion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dgallion1/ronten/internal/metrics"
	"github.com/sethvargo/go-retry"
	"github.com/sony/gobreaker/v2"
)

// DefaultBaseURL is the public API endpoint.
const DefaultBaseURL = "https://api.notion.com"

// ClientConfig configures the HTTP client for the block API.
type ClientConfig struct {
	BaseURL       string
	Token         string
	Version       string
	Timeout       time.Duration
	Retries       int
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
}

// APIError is a non-2xx response from the block API.
type APIError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("notion api: status %d: %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("notion api: status %d: %s", e.Status, e.Message)
}

// IsRetryable determines if a failed call should be tried again.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusTooManyRequests || apiErr.Status >= 500
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// shouldTrip reports failures that count against the circuit breaker.
// Client errors say nothing about the health of the service.
func shouldTrip(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusTooManyRequests || apiErr.Status >= 500
	}
	return !errors.Is(err, context.Canceled)
}

// Client lists block children with retries behind a circuit breaker.
type Client struct {
	cfg        ClientConfig
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker[*ChildrenPage]
	stats      *RequestStats
	metrics    *metrics.Recorder
	logger     *slog.Logger
}

func NewClient(cfg ClientConfig, logger *slog.Logger, rec *metrics.Recorder) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Version == "" {
		cfg.Version = "2022-06-28"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}
	if cfg.MaxRetryDelay <= 0 {
		cfg.MaxRetryDelay = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		stats:      NewRequestStats(time.Hour),
		metrics:    rec,
		logger:     logger,
	}
	c.cb = gobreaker.NewCircuitBreaker[*ChildrenPage](gobreaker.Settings{
		Name:        "notion-api",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String())
			rec.RecordCircuitBreakerState(name, int(to))
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !shouldTrip(err)
		},
	})
	return c
}

// Stats returns the rolling latency window of remote calls.
func (c *Client) Stats() *RequestStats {
	return c.stats
}

// BreakerState returns the current circuit breaker state name.
func (c *Client) BreakerState() string {
	return c.cb.State().String()
}

// ListChildren fetches one page of a block's children.
func (c *Client) ListChildren(ctx context.Context, blockID, cursor string) (*ChildrenPage, error) {
	var page *ChildrenPage
	attempts := 0
	var lastErr error
	err := retry.Do(ctx, c.backoff(), func(ctx context.Context) error {
		attempts++
		if attempts > 1 && !retryAllowed(ctx) {
			return fmt.Errorf("%w after %d attempts: %v", ErrRequestCeiling, attempts-1, lastErr)
		}
		p, err := c.cb.Execute(func() (*ChildrenPage, error) {
			return c.fetchChildren(ctx, blockID, cursor)
		})
		if err != nil {
			if IsRetryable(err) {
				c.logger.Debug("retrying block children",
					"block_id", blockID,
					"attempt", attempts,
					"error", err)
				c.metrics.RecordRetry(retryReason(err))
				lastErr = err
				return retry.RetryableError(err)
			}
			return err
		}
		page = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list children %s: %w", blockID, err)
	}
	return page, nil
}

func (c *Client) backoff() retry.Backoff {
	return retry.WithMaxRetries(
		uint64(max(c.cfg.Retries, 0)),
		retry.WithCappedDuration(
			c.cfg.MaxRetryDelay,
			retry.WithJitter(
				c.cfg.RetryDelay/10,
				retry.NewExponential(c.cfg.RetryDelay),
			),
		),
	)
}

func (c *Client) fetchChildren(ctx context.Context, blockID, cursor string) (*ChildrenPage, error) {
	q := url.Values{}
	q.Set("page_size", "100")
	if cursor != "" {
		q.Set("start_cursor", cursor)
	}
	u := c.cfg.BaseURL + "/v1/blocks/" + url.PathEscape(blockID) + "/children?" + q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	httpReq.Header.Set("Notion-Version", c.cfg.Version)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	elapsed := time.Since(start)
	if err != nil {
		c.stats.Record(elapsed.Milliseconds(), true)
		c.metrics.RecordRemoteCall("error", elapsed.Seconds())
		return nil, fmt.Errorf("get children: %w", err)
	}
	defer resp.Body.Close()
	c.stats.Record(elapsed.Milliseconds(), resp.StatusCode != http.StatusOK)
	c.metrics.RecordRemoteCall(strconv.Itoa(resp.StatusCode), elapsed.Seconds())

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		apiErr := &APIError{Status: resp.StatusCode}
		if json.Unmarshal(respBody, apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = string(respBody)
		}
		apiErr.Status = resp.StatusCode
		return nil, apiErr
	}

	var page ChildrenPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode children: %w", err)
	}
	return &page, nil
}

func retryReason(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Status == http.StatusTooManyRequests {
			return "rate_limit"
		}
		return "server_error"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return "network"
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
