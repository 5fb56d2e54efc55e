// Package pricing queries the market board API for current listings.
package pricing

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
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	"pricenotifier/internal/metrics"
	"pricenotifier/internal/model"
)

const (
	// DefaultEndpoint is the public Universalis v2 API.
	DefaultEndpoint = "https://universalis.app/api/v2"
	// DefaultTimeout is the fixed budget for one request.
	DefaultTimeout = 15 * time.Second

	singleFields = "listings.pricePerUnit,listings.hq,listings.retainerName"
	multiFields  = "items.listings.pricePerUnit,items.listings.hq,items.listings.retainerName"
)

// Query describes one batch request.
type Query struct {
	ItemIDs         []uint32
	Region          string
	IgnoreTax       bool
	SameQualityOnly bool
}

// Listings maps item IDs to their listings in upstream order.
type Listings map[uint32][]model.RawListing

// Fetcher returns the current listings for a batch of items.
// Implementations must be safe for concurrent use and idempotent.
type Fetcher interface {
	Fetch(ctx context.Context, q Query) (Listings, error)
}

// BreakerConfig configures the circuit breaker around the price API.
type BreakerConfig struct {
	Enabled      bool
	MaxRequests  uint32
	Interval     time.Duration
	Timeout      time.Duration
	FailureRatio float64
	MinRequests  uint32
}

// Config holds price API client settings.
type Config struct {
	Endpoint        string
	Timeout         time.Duration
	MaxConnsPerHost int
	Breaker         BreakerConfig
}

// DefaultConfig returns the settings used against the public API.
func DefaultConfig() Config {
	return Config{
		Endpoint:        DefaultEndpoint,
		Timeout:         DefaultTimeout,
		MaxConnsPerHost: 8,
		Breaker: BreakerConfig{
			Enabled:      true,
			MaxRequests:  1,
			Interval:     5 * time.Minute,
			Timeout:      time.Minute,
			FailureRatio: 0.6,
			MinRequests:  5,
		},
	}
}

// Client is a stateless price API client. It never retries.
type Client struct {
	httpClient *http.Client
	endpoint   string
	timeout    time.Duration
	breaker    *gobreaker.CircuitBreaker[Listings]
	logger     *slog.Logger
}

// NewClient creates a price API client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxConnsPerHost <= 0 {
		cfg.MaxConnsPerHost = 8
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          32,
		MaxIdleConnsPerHost:   cfg.MaxConnsPerHost,
		MaxConnsPerHost:       cfg.MaxConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}

	c := &Client{
		httpClient: &http.Client{Transport: transport, Timeout: cfg.Timeout},
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		timeout:    cfg.Timeout,
		logger:     logger.With(slog.String("component", "pricing")),
	}
	if cfg.Breaker.Enabled {
		c.breaker = newBreaker("price-api", cfg.Breaker, c.logger)
	}
	return c
}

func newBreaker(name string, cfg BreakerConfig, logger *slog.Logger) *gobreaker.CircuitBreaker[Listings] {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	}
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)
	return gobreaker.NewCircuitBreaker[Listings](settings)
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// Fetch returns the listings for every item in q. Items the upstream does
// not know are absent from the result.
func (c *Client) Fetch(ctx context.Context, q Query) (Listings, error) {
	ids := dedupe(q.ItemIDs)
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no items", ErrInvalidQuery)
	}
	if q.Region == "" {
		return nil, fmt.Errorf("%w: no region", ErrInvalidQuery)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if c.breaker == nil {
		return c.do(ctx, ids, q)
	}

	result, err := c.breaker.Execute(func() (Listings, error) {
		return c.do(ctx, ids, q)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	return result, err
}

func (c *Client) do(ctx context.Context, ids []uint32, q Query) (Listings, error) {
	reqURL := c.buildURL(ids, q)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrUpstreamUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
		return nil, fmt.Errorf("%w: status %d", ErrUpstreamUnavailable, resp.StatusCode)
	}

	c.logger.DebugContext(ctx, "price api response",
		slog.String("region", q.Region),
		slog.Int("items", len(ids)),
	)

	if len(ids) == 1 {
		return decodeSingle(resp.Body, ids[0])
	}
	return decodeMulti(resp.Body)
}

func (c *Client) buildURL(ids []uint32, q Query) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatUint(uint64(id), 10)
	}

	fields := singleFields
	if len(ids) > 1 {
		fields = multiFields
	}

	values := url.Values{}
	values.Set("noGst", strconv.FormatBool(q.IgnoreTax))
	values.Set("fields", fields)

	return fmt.Sprintf("%s/%s/%s?%s", c.endpoint, url.PathEscape(q.Region), strings.Join(parts, ","), values.Encode())
}

type singleResponse struct {
	Listings []model.RawListing `json:"listings"`
}

type multiResponse struct {
	Items map[string]singleResponse `json:"items"`
}

func decodeSingle(body io.Reader, id uint32) (Listings, error) {
	var r singleResponse
	if err := json.NewDecoder(body).Decode(&r); err != nil {
		return nil, decodeError(err)
	}
	return Listings{id: r.Listings}, nil
}

func decodeMulti(body io.Reader) (Listings, error) {
	var r multiResponse
	if err := json.NewDecoder(body).Decode(&r); err != nil {
		return nil, decodeError(err)
	}

	out := make(Listings, len(r.Items))
	for key, item := range r.Items {
		id, err := strconv.ParseUint(key, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: item key %q", ErrMalformedResponse, key)
		}
		out[uint32(id)] = item.Listings
	}
	return out, nil
}

func decodeError(err error) error {
	if isTimeout(err) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
}

func dedupe(ids []uint32) []uint32 {
	seen := make(map[uint32]struct{}, len(ids))
	out := make([]uint32, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
