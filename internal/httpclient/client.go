package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/cesargomez89/downtil/internal/constants"
)

// MaxBodySize caps proxied thumbnails, covers and subtitle tracks.
const MaxBodySize = 32 << 20

// Client wraps an http.Client to provide rate limiting and automatic retries.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
}

// NewClient creates a new rate-limited, retrying HTTP client.
func NewClient(httpClient *http.Client, requestsPerSec float64, userAgent string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: constants.DefaultHTTPTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     30 * time.Second,
				TLSHandshakeTimeout: 5 * time.Second,
			},
		}
	}
	limit := rate.Inf
	if requestsPerSec > 0 {
		limit = rate.Limit(requestsPerSec)
	}
	if userAgent == "" {
		userAgent = constants.DefaultUserAgent
	}
	return &Client{
		httpClient: httpClient,
		limiter:    rate.NewLimiter(limit, 1),
		userAgent:  userAgent,
	}
}

// Do executes an HTTP request with rate-limiting and retries.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	var lastErr error
	for attempt := 0; attempt < constants.DefaultRetryCount; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		resp, err := c.httpClient.Do(req.WithContext(ctx))
		backoffWait := time.Duration(attempt+1) * constants.DefaultRetryBase
		if err != nil {
			lastErr = err
		} else if resp.StatusCode == http.StatusServiceUnavailable || resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := parseRetryAfter(resp)
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("rate limited (status %d)", resp.StatusCode)
			if retryAfter > backoffWait {
				backoffWait = retryAfter
			}
		} else {
			return resp, nil
		}

		if attempt == constants.DefaultRetryCount-1 {
			break
		}
		backoffTimer := time.NewTimer(backoffWait)
		select {
		case <-ctx.Done():
			backoffTimer.Stop()
			return nil, ctx.Err()
		case <-backoffTimer.C:
		}
	}
	return nil, lastErr
}

// Asset is a fetched remote resource.
type Asset struct {
	ContentType string
	Data        []byte
}

// Get downloads url and returns its body. Non-2xx responses are errors.
func (c *Client) Get(ctx context.Context, url string) (*Asset, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "*/*")

	resp, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, req.URL.Host)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return &Asset{ContentType: resp.Header.Get("Content-Type"), Data: data}, nil
}

// parseRetryAfter reads a Retry-After header and returns the duration to wait.
func parseRetryAfter(resp *http.Response) time.Duration {
	ra := resp.Header.Get("Retry-After")
	if ra == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(ra); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(ra); err == nil {
		return time.Until(t)
	}
	return 0
}
