package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/GooferByte/Backend_022Portfolio/internal/models"
	"github.com/GooferByte/Backend_022Portfolio/internal/pricing"
	"github.com/GooferByte/Backend_022Portfolio/internal/repository/memory"
	"github.com/GooferByte/Backend_022Portfolio/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedPriceService struct {
	prices map[string]string
}

func (f *fixedPriceService) GetQuote(ctx context.Context, symbol string) (models.PriceQuote, error) {
	if p, ok := f.prices[symbol]; ok {
		return models.PriceQuote{Symbol: symbol, Price: decimal.RequireFromString(p), Timestamp: time.Now()}, nil
	}
	return models.PriceQuote{}, pricing.ErrUnavailable
}

func newTestRouter(prices map[string]string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	quiet := logrus.New()
	quiet.SetLevel(logrus.PanicLevel)
	svc := service.NewPortfolioService(memory.New(), &fixedPriceService{prices: prices}, quiet)
	return Router(svc, quiet)
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestAddStockEndpoint(t *testing.T) {
	router := newTestRouter(map[string]string{"AAPL": "150"})

	rec := doJSON(t, router, http.MethodPost, "/stocks", gin.H{
		"symbol": "aapl", "shares": "10", "price": "100", "date": "2024-01-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := decode(t, rec)
	assert.Equal(t, "AAPL", resp["symbol"])
	assert.Equal(t, "BUY", resp["type"])
	assert.Equal(t, "10", resp["shares"])
	assert.NotEmpty(t, resp["transactionId"])
}

func TestAddStockEndpoint_BadInput(t *testing.T) {
	router := newTestRouter(nil)

	rec := doJSON(t, router, http.MethodPost, "/stocks", gin.H{"symbol": "AAPL", "shares": "ten", "price": "100"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/stocks", gin.H{"symbol": "AAPL", "shares": "-1", "price": "100"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/stocks", gin.H{"symbol": "AAPL", "shares": "1", "price": "0"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSellStockEndpoint(t *testing.T) {
	router := newTestRouter(map[string]string{"AAPL": "150"})

	rec := doJSON(t, router, http.MethodPost, "/stocks", gin.H{
		"symbol": "AAPL", "shares": "10", "price": "100", "date": "2024-01-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/stocks/sell", gin.H{
		"symbol": "AAPL", "shares": "4", "price": "150", "date": "2024-02-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decode(t, rec)
	assert.Equal(t, "SELL", resp["type"])
}

func TestSellStockEndpoint_Oversell(t *testing.T) {
	router := newTestRouter(map[string]string{"AAPL": "150"})

	rec := doJSON(t, router, http.MethodPost, "/stocks", gin.H{
		"symbol": "AAPL", "shares": "10", "price": "100", "date": "2024-01-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/stocks/sell", gin.H{
		"symbol": "AAPL", "shares": "20", "price": "150",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	resp := decode(t, rec)
	assert.Contains(t, resp["error"], "insufficient_shares")
}

func TestPositionsEndpoint(t *testing.T) {
	router := newTestRouter(map[string]string{"AAPL": "150"})

	rec := doJSON(t, router, http.MethodPost, "/stocks", gin.H{
		"symbol": "AAPL", "shares": "10", "price": "100", "date": "2024-01-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/positions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode(t, rec)
	positions := resp["positions"].([]interface{})
	require.Len(t, positions, 1)

	pos := positions[0].(map[string]interface{})
	assert.Equal(t, "AAPL", pos["symbol"])
	assert.Equal(t, "150.00", pos["currentPrice"])
	assert.Equal(t, "500.00", pos["gainLoss"])
	assert.Equal(t, "50.00", pos["gainLossPct"])
	assert.Equal(t, false, pos["estimated"])
}

func TestTransactionsEndpoint_SymbolFilter(t *testing.T) {
	router := newTestRouter(map[string]string{"AAPL": "150", "TSLA": "300"})

	for _, body := range []gin.H{
		{"symbol": "AAPL", "shares": "10", "price": "100", "date": "2024-01-01"},
		{"symbol": "TSLA", "shares": "2", "price": "250", "date": "2024-02-01"},
	} {
		rec := doJSON(t, router, http.MethodPost, "/stocks", body)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := doJSON(t, router, http.MethodGet, "/transactions?symbol=aapl", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode(t, rec)
	txs := resp["transactions"].([]interface{})
	require.Len(t, txs, 1)
	assert.Equal(t, "AAPL", txs[0].(map[string]interface{})["symbol"])
}

func TestSummaryEndpoint(t *testing.T) {
	router := newTestRouter(map[string]string{"AAPL": "150"})

	rec := doJSON(t, router, http.MethodPost, "/stocks", gin.H{
		"symbol": "AAPL", "shares": "10", "price": "100", "date": "2024-01-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode(t, rec)
	assert.Equal(t, "1000.00", resp["totalCost"])
	assert.Equal(t, "1500.00", resp["totalValue"])
	assert.Equal(t, "500.00", resp["totalGainLoss"])
	assert.Equal(t, "50.00", resp["totalGainLossPct"])
	assert.Equal(t, float64(1), resp["holdings"])
}

func TestAuditEndpoint(t *testing.T) {
	router := newTestRouter(map[string]string{"AAPL": "150"})

	rec := doJSON(t, router, http.MethodPost, "/stocks", gin.H{
		"symbol": "AAPL", "shares": "10", "price": "100", "date": "2024-01-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = doJSON(t, router, http.MethodPost, "/stocks/sell", gin.H{
		"symbol": "AAPL", "shares": "4", "price": "150", "date": "2024-02-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/audit", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode(t, rec)
	assert.Equal(t, true, resp["consistent"])
}
