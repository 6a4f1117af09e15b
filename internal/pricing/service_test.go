package pricing

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func newTestService(baseURL string) *AlphaVantageService {
	svc := NewAlphaVantageService("test-key", time.Minute, time.Second)
	svc.baseURL = baseURL
	svc.limiter = rate.NewLimiter(rate.Inf, 1)
	return svc
}

func TestGetQuote(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "GLOBAL_QUOTE", r.URL.Query().Get("function"))
		assert.Equal(t, "AAPL", r.URL.Query().Get("symbol"))
		fmt.Fprint(w, `{"Global Quote": {"01. symbol": "AAPL", "05. price": "178.7200"}}`)
	}))
	defer srv.Close()

	svc := newTestService(srv.URL)
	quote, err := svc.GetQuote(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", quote.Symbol)
	assert.True(t, quote.Price.Equal(decimal.RequireFromString("178.72")))

	// Second lookup inside the TTL is served from cache.
	_, err = svc.GetQuote(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestGetQuote_CacheExpiry(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprint(w, `{"Global Quote": {"05. price": "100.00"}}`)
	}))
	defer srv.Close()

	svc := newTestService(srv.URL)
	now := time.Now()
	svc.nowFunc = func() time.Time { return now }

	_, err := svc.GetQuote(context.Background(), "MSFT")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = svc.GetQuote(context.Background(), "MSFT")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestGetQuote_UnknownSymbol(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	svc := newTestService(srv.URL)
	_, err := svc.GetQuote(context.Background(), "NOPE")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestGetQuote_MalformedPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"Global Quote": {"05. price": "not-a-price"}}`)
	}))
	defer srv.Close()

	svc := newTestService(srv.URL)
	_, err := svc.GetQuote(context.Background(), "AAPL")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestGetQuote_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	svc := newTestService(srv.URL)
	_, err := svc.GetQuote(context.Background(), "AAPL")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestFallbackPrice(t *testing.T) {
	assert.True(t, FallbackPrice("AAPL").Equal(decimal.RequireFromString("175.50")))
	assert.True(t, FallbackPrice("ZZZZ").Equal(decimal.NewFromInt(100)))
	// Deterministic: two calls agree.
	assert.True(t, FallbackPrice("TSLA").Equal(FallbackPrice("TSLA")))
}
