// Package github collects repository signals from the GitHub REST API.
package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

const apiBaseURL = "https://api.github.com"

// ErrRateLimited marks a call that exhausted its retries against the
// GitHub rate limit. Callers distinguish it with errors.Is.
var ErrRateLimited = errors.New("github rate limit exceeded")

// backoffDelays are the waits between the three attempts of one call.
var backoffDelays = []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}

// Client is a thin GitHub REST client with per-call retry. A 403 response
// is treated as a rate-limit signal: logged with the remaining-quota and
// reset-time headers, then retried with backoff like a transient failure.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	backoff    []time.Duration
}

// NewClient creates a client. token may be empty (60 req/h anonymous quota).
func NewClient(httpClient *http.Client, token string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    apiBaseURL,
		token:      token,
		backoff:    backoffDelays,
	}
}

// get issues a GET with retry and returns the response. The caller owns
// the body. Non-403 HTTP error statuses are returned as a response, not an
// error, so each collector field can degrade on its own terms.
func (c *Client) get(ctx context.Context, path string, params url.Values) (*http.Response, error) {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var lastErr error
	attempts := len(c.backoff)
	for attempt := 0; attempt < attempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/vnd.github.v3+json")
		if c.token != "" {
			req.Header.Set("Authorization", "token "+c.token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			// Connection resets and timeouts retry; context cancellation
			// does not.
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			if attempt < attempts-1 {
				slog.Warn("github request failed, retrying",
					"path", path, "attempt", attempt+1, "wait", c.backoff[attempt], "error", err)
				if err := sleep(ctx, c.backoff[attempt]); err != nil {
					return nil, err
				}
			}
			continue
		}

		if resp.StatusCode == http.StatusForbidden {
			remaining := resp.Header.Get("X-RateLimit-Remaining")
			resetAt := resp.Header.Get("X-RateLimit-Reset")
			resp.Body.Close()
			slog.Warn("github 403 rate limit",
				"path", path, "remaining", remaining, "reset", resetAt)
			lastErr = fmt.Errorf("%w (remaining=%s, reset=%s)", ErrRateLimited, remaining, resetAt)
			if attempt < attempts-1 {
				if err := sleep(ctx, c.backoff[attempt]); err != nil {
					return nil, err
				}
			}
			continue
		}

		return resp, nil
	}

	return nil, fmt.Errorf("github GET %s failed after %d attempts: %w", path, attempts, lastErr)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
