package checks

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"
)

// HTTPChecker probes a URL. A response with a 2xx or 3xx status is healthy.
type HTTPChecker struct {
	client *http.Client
}

func NewHTTPChecker(timeout time.Duration) *HTTPChecker {
	return &HTTPChecker{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: timeout,
				}).DialContext,
				DisableKeepAlives:     true,
				TLSHandshakeTimeout:   timeout,
				ResponseHeaderTimeout: timeout,
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// A redirect already proves the endpoint is up.
				return http.ErrUseLastResponse
			},
		},
	}
}

// Check performs a single GET against url.
func (c *HTTPChecker) Check(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return fmt.Errorf("unhealthy status code: %d", resp.StatusCode)
	}
	return nil
}

type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     0,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     8 * time.Second,
	}
}

// CheckWithRetry retries Check with exponential backoff until it passes, the retries are
// used up or ctx is done. onRetry is called before each retry and may be nil.
func (c *HTTPChecker) CheckWithRetry(ctx context.Context, url string, config RetryConfig, onRetry func(attempt int, backoff time.Duration)) error {
	var lastErr error
	backoff := config.InitialBackoff

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		if attempt > 0 {
			if onRetry != nil {
				onRetry(attempt, backoff)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, config.MaxBackoff)
		}

		if lastErr = c.Check(ctx, url); lastErr == nil {
			return nil
		}
	}

	if config.MaxRetries == 0 {
		return lastErr
	}
	return fmt.Errorf("http check failed after %d attempts: %w", config.MaxRetries+1, lastErr)
}

// HTTPStep is the "http" step kind.
type HTTPStep struct {
	URL     string
	Checker *HTTPChecker
	Retry   RetryConfig
	OnRetry func(attempt int, backoff time.Duration)
}

func (s *HTTPStep) Run(ctx context.Context, _ Target) error {
	return s.Checker.CheckWithRetry(ctx, s.URL, s.Retry, s.OnRetry)
}
