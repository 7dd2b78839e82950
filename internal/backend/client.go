// Package backend is the HTTP client for the recommendation service.
//
// The service exposes three endpoints: GET /books (the catalog as a JSON
// array of titles), GET /recommend/{title} and GET /health. Every call is
// rate limited, guarded by a circuit breaker and bounded by a per-request
// timeout. Non-2xx answers surface as *APIError.
package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/im-vishesh15th/bookmind/internal/logging"
	"github.com/im-vishesh15th/bookmind/internal/metrics"
	"github.com/im-vishesh15th/bookmind/internal/otel"
)

const (
	// DefaultTimeout bounds a single backend request.
	DefaultTimeout = 10 * time.Second

	// MaxRecommendations is the largest num_recommendations the backend accepts.
	MaxRecommendations = 20

	maxBodyBytes = 32 << 20
)

// Endpoint labels used for metrics.
const (
	EndpointBooks     = "books"
	EndpointRecommend = "recommend"
	EndpointHealth    = "health"
)

// UserAgent is sent with every request unless overridden.
var UserAgent = "bookmind/" + logging.Version

// Client talks to the recommendation backend. Safe for concurrent use.
type Client struct {
	baseURL   string
	http      *http.Client
	timeout   time.Duration
	limiter   *rate.Limiter
	breaker   *gobreaker.CircuitBreaker[[]byte]
	userAgent string
	numRecs   int
	events    *otel.Logger

	breakerSettings BreakerSettings
	noBreaker       bool

	// lastFailure is the most recent 5xx answer, attached to breaker
	// rejections so the backend's own explanation stays visible.
	mu          sync.Mutex
	lastFailure *APIError
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTimeout sets the per-request timeout. Zero or negative disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithRateLimit sets the client-side request rate. rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithBreaker overrides the circuit breaker settings.
func WithBreaker(s BreakerSettings) Option {
	return func(c *Client) {
		c.breakerSettings = s
		c.noBreaker = false
	}
}

// WithoutBreaker disables the circuit breaker.
func WithoutBreaker() Option {
	return func(c *Client) { c.noBreaker = true }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithRecommendationCount sets num_recommendations. Zero leaves it to the
// backend; values are clamped to 1..MaxRecommendations.
func WithRecommendationCount(n int) Option {
	return func(c *Client) {
		switch {
		case n <= 0:
			c.numRecs = 0
		case n > MaxRecommendations:
			c.numRecs = MaxRecommendations
		default:
			c.numRecs = n
		}
	}
}

// WithEvents routes breaker transitions to the event log.
func WithEvents(l *otel.Logger) Option {
	return func(c *Client) { c.events = l }
}

// New creates a Client for baseURL. A URL without a scheme gets "http://".
func New(baseURL string, opts ...Option) (*Client, error) {
	normalized, err := NormalizeBaseURL(baseURL)
	if err != nil {
		return nil, err
	}

	c := &Client{
		baseURL:         normalized,
		http:            &http.Client{},
		timeout:         DefaultTimeout,
		limiter:         rate.NewLimiter(rate.Limit(5), 5),
		userAgent:       UserAgent,
		breakerSettings: DefaultBreakerSettings(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if !c.noBreaker {
		c.breaker = newBreaker(c.breakerSettings, c.events)
	}
	return c, nil
}

// NormalizeBaseURL validates raw and strips trailing slashes. Bare hosts
// such as "localhost:8000" are accepted and get an http scheme.
func NormalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("backend: empty base URL")
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("backend: invalid base URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("backend: unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("backend: base URL %q has no host", raw)
	}
	return strings.TrimRight(u.String(), "/"), nil
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Books fetches the full catalog of titles.
func (c *Client) Books(ctx context.Context) ([]string, error) {
	body, err := c.get(ctx, EndpointBooks, "/books")
	if err != nil {
		return nil, err
	}
	var titles []string
	if err := json.Unmarshal(body, &titles); err != nil {
		metrics.BackendRequests.WithLabelValues(EndpointBooks, metrics.OutcomeDecodeError).Inc()
		return nil, fmt.Errorf("backend: decode books: %w", err)
	}
	if titles == nil {
		titles = []string{}
	}
	metrics.BackendRequests.WithLabelValues(EndpointBooks, metrics.OutcomeOK).Inc()
	return titles, nil
}

// Recommend fetches recommendations for title. The title is path-escaped
// as a single segment.
func (c *Client) Recommend(ctx context.Context, title string) (*Recommendation, error) {
	path := "/recommend/" + url.PathEscape(title)
	if c.numRecs > 0 {
		path += "?num_recommendations=" + strconv.Itoa(c.numRecs)
	}

	body, err := c.get(ctx, EndpointRecommend, path)
	if err != nil {
		return nil, err
	}
	var rec Recommendation
	if err := json.Unmarshal(body, &rec); err != nil {
		metrics.BackendRequests.WithLabelValues(EndpointRecommend, metrics.OutcomeDecodeError).Inc()
		return nil, fmt.Errorf("backend: decode recommendations: %w", err)
	}
	if rec.Recommendations == nil {
		rec.Recommendations = []BookInfo{}
	}
	metrics.BackendRequests.WithLabelValues(EndpointRecommend, metrics.OutcomeOK).Inc()
	return &rec, nil
}

// Health fetches the backend health report.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	body, err := c.get(ctx, EndpointHealth, "/health")
	if err != nil {
		return nil, err
	}
	var h Health
	if err := json.Unmarshal(body, &h); err != nil {
		metrics.BackendRequests.WithLabelValues(EndpointHealth, metrics.OutcomeDecodeError).Inc()
		return nil, fmt.Errorf("backend: decode health: %w", err)
	}
	metrics.BackendRequests.WithLabelValues(EndpointHealth, metrics.OutcomeOK).Inc()
	return &h, nil
}

// get runs one GET through the breaker and returns the 2xx body. Success
// metrics are recorded by the caller after decoding.
func (c *Client) get(ctx context.Context, endpoint, path string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			metrics.BackendRequests.WithLabelValues(endpoint, metrics.OutcomeTransportError).Inc()
			return nil, fmt.Errorf("backend: rate limit: %w", err)
		}
	}

	if c.breaker == nil {
		return c.do(ctx, endpoint, path)
	}
	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.do(ctx, endpoint, path)
	})
	if IsBreakerOpen(err) {
		metrics.BackendRequests.WithLabelValues(endpoint, metrics.OutcomeRejected).Inc()
		logging.Warn("backend request rejected", "endpoint", endpoint, "err", err)
		if last := c.recordFailure(nil, false); last != nil {
			return nil, fmt.Errorf("backend: %s unavailable: %w (last error: %w)", endpoint, err, last)
		}
		return nil, fmt.Errorf("backend: %s unavailable: %w", endpoint, err)
	}

	var apiErr *APIError
	switch {
	case err == nil:
		c.recordFailure(nil, true)
	case errors.As(err, &apiErr) && apiErr.Status >= 500:
		c.recordFailure(apiErr, true)
	}
	return body, err
}

// recordFailure returns the remembered 5xx error, replacing it first when
// update is set.
func (c *Client) recordFailure(apiErr *APIError, update bool) *APIError {
	c.mu.Lock()
	defer c.mu.Unlock()
	if update {
		c.lastFailure = apiErr
	}
	return c.lastFailure
}

func (c *Client) do(ctx context.Context, endpoint, path string) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("backend: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.BackendRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.BackendRequests.WithLabelValues(endpoint, metrics.OutcomeTransportError).Inc()
		return nil, fmt.Errorf("backend: %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		metrics.BackendRequests.WithLabelValues(endpoint, metrics.OutcomeTransportError).Inc()
		return nil, fmt.Errorf("backend: read %s response: %w", endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.BackendRequests.WithLabelValues(endpoint, metrics.OutcomeAPIError).Inc()
		apiErr := parseAPIError(resp.StatusCode, body)
		logging.Debug("backend non-2xx", "endpoint", endpoint, "status", resp.StatusCode, "detail", apiErr.Detail)
		return nil, apiErr
	}
	return body, nil
}
