package ebay

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/commtamo10-tech/skatebaypublisher/internal/infra"
)

const (
	defaultMaxRetries = 3
	defaultBaseDelay  = 2 * time.Second
)

// TokenSource supplies a valid OAuth access token for outbound calls. Token
// acquisition and refresh live outside this module.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource returning a fixed token.
type StaticToken string

func (t StaticToken) AccessToken(ctx context.Context) (string, error) {
	if t == "" {
		return "", errors.New("ebay: access token not configured")
	}
	return string(t), nil
}

// APIError reports a non-2xx marketplace response.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ebay: status %d: %s", e.Status, strings.TrimSpace(e.Body))
}

// Transient reports whether the error is eligible for retry.
func (e *APIError) Transient() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// Options configures the marketplace client.
type Options struct {
	BaseURL    string
	Token      TokenSource
	HTTPClient *http.Client
	Logger     *infra.Logger
	MaxRetries int
	BaseDelay  time.Duration
	// Sleep and Jitter are injectable for tests.
	Sleep  func(ctx context.Context, d time.Duration) error
	Jitter func(d time.Duration) time.Duration
}

// Client issues authenticated HTTP calls to the eBay Sell API with bounded
// retries for transient failures. It holds no persisted state.
type Client struct {
	baseURL    string
	token      TokenSource
	httpClient *http.Client
	logger     *infra.Logger
	maxRetries int
	baseDelay  time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
	jitter     func(d time.Duration) time.Duration
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	if opts.Token == nil {
		return nil, errors.New("ebay: token source is required")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.sandbox.ebay.com"
	}
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	baseDelay := opts.BaseDelay
	if baseDelay <= 0 {
		baseDelay = defaultBaseDelay
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	jitter := opts.Jitter
	if jitter == nil {
		jitter = uniformJitter
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{
		baseURL:    baseURL,
		token:      opts.Token,
		httpClient: httpClient,
		logger:     logger,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		sleep:      sleep,
		jitter:     jitter,
	}, nil
}

// Response is the terminal outcome of a request sequence.
type Response struct {
	Status int
	Body   []byte

	// retryAfter carries the server-requested delay from a 429 response.
	retryAfter time.Duration
}

// RequestWithRetry performs the HTTP call, retrying on 429/5xx responses and
// request timeouts with exponential backoff. A 429 honors the Retry-After
// header; other delays are baseDelay×2^(attempt-1) with ±25% jitter. Any other
// status terminates immediately. The returned retry count is attempts-1.
func (c *Client) RequestWithRetry(ctx context.Context, method, path string, headers http.Header, body []byte) (*Response, int, error) {
	url := c.baseURL + path
	for attempt := 1; ; attempt++ {
		resp, err := c.do(ctx, method, url, headers, body)
		if err != nil {
			if attempt >= c.maxRetries || !retryableTransport(err) {
				return nil, attempt - 1, fmt.Errorf("ebay: %s %s: %w", method, path, err)
			}
			c.logger.Warn().Err(err).Int("attempt", attempt).Str("path", path).Msg("ebay: transport failure, retrying")
			if sleepErr := c.backoff(ctx, attempt, nil); sleepErr != nil {
				return nil, attempt - 1, sleepErr
			}
			continue
		}

		if resp.Status != http.StatusTooManyRequests && resp.Status < 500 {
			return resp, attempt - 1, nil
		}
		if attempt >= c.maxRetries {
			return resp, attempt - 1, &APIError{Status: resp.Status, Body: string(resp.Body)}
		}
		c.logger.Warn().Int("status", resp.Status).Int("attempt", attempt).Str("path", path).Msg("ebay: transient failure, retrying")
		if sleepErr := c.backoff(ctx, attempt, resp); sleepErr != nil {
			return resp, attempt - 1, sleepErr
		}
	}
}

func (c *Client) do(ctx context.Context, method, url string, headers http.Header, body []byte) (*Response, error) {
	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	for key, values := range headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	token, err := c.token.AccessToken(ctx)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	out := &Response{Status: resp.StatusCode, Body: raw}
	if resp.StatusCode == http.StatusTooManyRequests {
		out.retryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
	}
	return out, nil
}

func (c *Client) backoff(ctx context.Context, attempt int, resp *Response) error {
	delay := c.baseDelay << (attempt - 1)
	if resp != nil && resp.retryAfter > 0 {
		delay = resp.retryAfter
	} else {
		delay = c.jitter(delay)
	}
	return c.sleep(ctx, delay)
}

func retryableTransport(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func parseRetryAfter(header string) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(header); err == nil {
		if until := time.Until(at); until > 0 {
			return until
		}
	}
	return 0
}

// uniformJitter spreads a delay by ±25% to avoid synchronized retries.
func uniformJitter(d time.Duration) time.Duration {
	factor := 0.75 + rand.Float64()*0.5
	return time.Duration(float64(d) * factor)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
