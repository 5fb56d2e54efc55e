package pricing

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricenotifier/internal/model"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(url string) *Client {
	cfg := DefaultConfig()
	cfg.Endpoint = url
	cfg.Timeout = 2 * time.Second
	cfg.Breaker.Enabled = false
	return NewClient(cfg, newTestLogger())
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, DefaultEndpoint, cfg.Endpoint)
	assert.Equal(t, 15*time.Second, cfg.Timeout)
	assert.True(t, cfg.Breaker.Enabled)
}

func TestFetch_SingleItem(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Phoenix/5057", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("noGst"))
		assert.Equal(t, singleFields, r.URL.Query().Get("fields"))
		_, _ = w.Write([]byte(`{"listings":[{"pricePerUnit":120,"hq":true,"retainerName":"Bob"},{"pricePerUnit":150,"hq":false,"retainerName":"Ann"}]}`))
	}))
	defer server.Close()

	got, err := newTestClient(server.URL).Fetch(context.Background(), Query{
		ItemIDs:   []uint32{5057},
		Region:    "Phoenix",
		IgnoreTax: true,
	})
	require.NoError(t, err)
	require.Len(t, got[5057], 2)
	assert.Equal(t, model.RawListing{PricePerUnit: 120, HighQuality: true, SellerName: "Bob"}, got[5057][0])
}

func TestFetch_MultiItem(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Phoenix/1,2,3", r.URL.Path)
		assert.Equal(t, "false", r.URL.Query().Get("noGst"))
		assert.Equal(t, multiFields, r.URL.Query().Get("fields"))
		_, _ = w.Write([]byte(`{"items":{"1":{"listings":[{"pricePerUnit":10,"hq":false,"retainerName":"A"}]},"2":{"listings":[]}}}`))
	}))
	defer server.Close()

	got, err := newTestClient(server.URL).Fetch(context.Background(), Query{
		ItemIDs: []uint32{1, 2, 3, 2},
		Region:  "Phoenix",
	})
	require.NoError(t, err)
	assert.Len(t, got[1], 1)
	assert.Empty(t, got[2])
	_, ok := got[3]
	assert.False(t, ok)
}

func TestFetch_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Fetch(context.Background(), Query{ItemIDs: []uint32{1}, Region: "r"})
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.Equal(t, "upstream_unavailable", Reason(err))
}

func TestFetch_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"listings": [oops`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Fetch(context.Background(), Query{ItemIDs: []uint32{1}, Region: "r"})
	assert.ErrorIs(t, err, ErrMalformedResponse)

	_, err = client.Fetch(context.Background(), Query{ItemIDs: []uint32{1, 2}, Region: "r"})
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestFetch_MalformedItemKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"items":{"abc":{"listings":[]}}}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Fetch(context.Background(), Query{ItemIDs: []uint32{1, 2}, Region: "r"})
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestFetch_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.Endpoint = server.URL
	cfg.Timeout = 50 * time.Millisecond
	cfg.Breaker.Enabled = false
	client := NewClient(cfg, newTestLogger())

	start := time.Now()
	_, err := client.Fetch(context.Background(), Query{ItemIDs: []uint32{1}, Region: "r"})
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), time.Second)
}

func TestFetch_InvalidQuery(t *testing.T) {
	client := newTestClient("http://127.0.0.1:1")

	_, err := client.Fetch(context.Background(), Query{Region: "r"})
	assert.ErrorIs(t, err, ErrInvalidQuery)

	_, err = client.Fetch(context.Background(), Query{ItemIDs: []uint32{1}})
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestFetch_IsRepeatable(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{"listings":[{"pricePerUnit":7,"hq":false,"retainerName":"X"}]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	q := Query{ItemIDs: []uint32{9}, Region: "r"}

	first, err := client.Fetch(context.Background(), q)
	require.NoError(t, err)
	second, err := client.Fetch(context.Background(), q)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestFetch_BreakerOpensAfterFailures(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.Endpoint = server.URL
	cfg.Breaker = BreakerConfig{
		Enabled:      true,
		MaxRequests:  1,
		Timeout:      time.Minute,
		FailureRatio: 0.5,
		MinRequests:  2,
	}
	client := NewClient(cfg, newTestLogger())
	q := Query{ItemIDs: []uint32{1}, Region: "r"}

	for i := 0; i < 2; i++ {
		_, err := client.Fetch(context.Background(), q)
		require.ErrorIs(t, err, ErrUpstreamUnavailable)
	}

	_, err := client.Fetch(context.Background(), q)
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls), "open breaker must short-circuit")
}

func TestReason(t *testing.T) {
	assert.Equal(t, "ok", Reason(nil))
	assert.Equal(t, "timeout", Reason(ErrTimeout))
	assert.Equal(t, "malformed_response", Reason(ErrMalformedResponse))
	assert.Equal(t, "error", Reason(ErrInvalidQuery))
}
