package estimator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/pricelens/backend/internal/domain"
)

const maxAttempts = 3

// Config holds the estimator client settings
type Config struct {
	BaseURL           string
	APIKey            string
	RequestsPerSecond float64
	Burst             int
	Timeout           time.Duration
}

// Client talks to the external AI price estimation service
type Client struct {
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	rateLimiter *rate.Limiter
	backoff     func(attempt int) time.Duration
	logger      zerolog.Logger
}

// NewClient creates a new estimator client
func NewClient(cfg Config, logger zerolog.Logger) *Client {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 5
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		apiKey:      cfg.APIKey,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		rateLimiter: rate.NewLimiter(rate.Limit(rps), burst),
		backoff:     exponentialBackoff,
		logger:      logger.With().Str("component", "estimator_client").Logger(),
	}
}

// exponentialBackoff returns 500ms, 1s, 2s, ... for attempts 1, 2, 3, ...
func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(500*(1<<(attempt-1))) * time.Millisecond
}

// doRequest executes an HTTP GET request with proper headers and error handling
func (c *Client) doRequest(ctx context.Context, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "PriceLens/1.0")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEstimatorFailure, err)
	}
	return resp, nil
}

// wait sleeps for d or until ctx is done
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Estimate asks the service for the typical price of an item at a store.
// Transient failures are retried up to three times; 404 means the service
// has no estimate.
func (c *Client) Estimate(ctx context.Context, itemName, storeID string) (*domain.PriceEstimate, error) {
	if strings.TrimSpace(itemName) == "" {
		return nil, domain.ErrInvalidRequest
	}

	params := url.Values{}
	params.Add("item", itemName)
	if storeID != "" {
		params.Add("store", storeID)
	}
	reqURL := fmt.Sprintf("%s/v1/estimates?%s", c.baseURL, params.Encode())

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w: %v", domain.ErrRateLimited, err)
		}

		resp, err := c.doRequest(ctx, reqURL)
		if err != nil {
			c.logger.Warn().Err(err).Int("attempt", attempt).Str("item", itemName).Msg("estimate request failed")
			lastErr = err
			if err := wait(ctx, c.backoff(attempt)); err != nil {
				return nil, err
			}
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("%w: reading body: %v", domain.ErrEstimatorFailure, readErr)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return nil, domain.ErrNotFound
		case resp.StatusCode == http.StatusBadRequest:
			return nil, fmt.Errorf("%w: estimator rejected %q", domain.ErrInvalidRequest, itemName)
		case resp.StatusCode != http.StatusOK:
			c.logger.Warn().
				Int("attempt", attempt).
				Int("status", resp.StatusCode).
				Str("body", string(body)).
				Msg("estimator returned error status")
			lastErr = fmt.Errorf("%w: status %d", domain.ErrEstimatorFailure, resp.StatusCode)
			if err := wait(ctx, c.backoff(attempt)); err != nil {
				return nil, err
			}
			continue
		}

		var payload estimateResponse
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, fmt.Errorf("%w: failed to decode response: %v", domain.ErrEstimatorFailure, err)
		}

		estimate, err := mapToEstimate(payload)
		if err != nil {
			return nil, err
		}
		c.logger.Debug().Str("item", itemName).Str("store", storeID).Float64("price", estimate.Price).Msg("estimate received")
		return estimate, nil
	}

	return nil, lastErr
}
