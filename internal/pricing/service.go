package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/GooferByte/Backend_022Portfolio/internal/models"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

// ErrUnavailable signals that no live quote could be obtained for a symbol.
// Callers are expected to substitute a fallback price, not fail.
var ErrUnavailable = errors.New("price_unavailable")

// Service exposes price lookup behaviour.
type Service interface {
	GetQuote(ctx context.Context, symbol string) (models.PriceQuote, error)
}

const defaultBaseURL = "https://www.alphavantage.co/query"

// AlphaVantageService fetches GLOBAL_QUOTE prices with a TTL cache in front.
// Outbound calls are paced through a rate limiter so a valuation pass over
// many symbols does not hammer the provider.
type AlphaVantageService struct {
	mu      sync.Mutex
	cache   map[string]models.PriceQuote
	ttl     time.Duration
	apiKey  string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	nowFunc func() time.Time
}

func NewAlphaVantageService(apiKey string, ttl, timeout time.Duration) *AlphaVantageService {
	return &AlphaVantageService{
		cache:   make(map[string]models.PriceQuote),
		ttl:     ttl,
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: timeout},
		// Alpha Vantage free tier allows 5 requests per minute.
		limiter: rate.NewLimiter(rate.Every(12*time.Second), 1),
		nowFunc: time.Now,
	}
}

func (s *AlphaVantageService) GetQuote(ctx context.Context, symbol string) (models.PriceQuote, error) {
	s.mu.Lock()
	now := s.nowFunc()
	if quote, ok := s.cache[symbol]; ok && now.Sub(quote.Timestamp) < s.ttl {
		s.mu.Unlock()
		return quote, nil
	}
	s.mu.Unlock()

	if err := s.limiter.Wait(ctx); err != nil {
		return models.PriceQuote{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	price, err := s.fetch(ctx, symbol)
	if err != nil {
		return models.PriceQuote{}, err
	}

	quote := models.PriceQuote{Symbol: symbol, Price: price, Timestamp: s.nowFunc()}
	s.mu.Lock()
	s.cache[symbol] = quote
	s.mu.Unlock()
	return quote, nil
}

// globalQuoteResponse mirrors the provider's GLOBAL_QUOTE payload. Only the
// price field is read; the provider keys fields with numbered prefixes.
type globalQuoteResponse struct {
	GlobalQuote struct {
		Price string `json:"05. price"`
	} `json:"Global Quote"`
}

func (s *AlphaVantageService) fetch(ctx context.Context, symbol string) (decimal.Decimal, error) {
	params := url.Values{}
	params.Set("function", "GLOBAL_QUOTE")
	params.Set("symbol", symbol)
	params.Set("apikey", s.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("%w: quote endpoint returned %d", ErrUnavailable, resp.StatusCode)
	}

	var payload globalQuoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if payload.GlobalQuote.Price == "" {
		// Unknown symbols and rate-limit notices come back as 200s with no
		// quote block.
		return decimal.Zero, fmt.Errorf("%w: no quote for %s", ErrUnavailable, symbol)
	}
	price, err := decimal.NewFromString(payload.GlobalQuote.Price)
	if err != nil || price.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("%w: malformed price %q for %s", ErrUnavailable, payload.GlobalQuote.Price, symbol)
	}
	return price, nil
}

// demoPrices anchor fallback valuation for well-known symbols when the quote
// source is unavailable.
var demoPrices = map[string]string{
	"AAPL":  "175.50",
	"GOOGL": "2850.00",
	"MSFT":  "350.25",
	"TSLA":  "225.80",
	"AMZN":  "145.30",
	"NVDA":  "875.40",
	"META":  "485.60",
	"NFLX":  "425.90",
}

// FallbackPrice returns the deterministic stand-in price for a symbol. It is
// an approximation and callers must surface it as such.
func FallbackPrice(symbol string) decimal.Decimal {
	if p, ok := demoPrices[symbol]; ok {
		return decimal.RequireFromString(p)
	}
	return decimal.NewFromInt(100)
}
