package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/GooferByte/Backend_022Portfolio/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Router wires all handlers.
func Router(portfolioSvc *service.PortfolioService, logger *logrus.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logMiddleware(logger))

	r.POST("/stocks", func(c *gin.Context) {
		handleAddStock(c, portfolioSvc)
	})
	r.POST("/stocks/sell", func(c *gin.Context) {
		handleSellStock(c, portfolioSvc)
	})
	r.GET("/positions", func(c *gin.Context) {
		handlePositions(c, portfolioSvc)
	})
	r.GET("/transactions", func(c *gin.Context) {
		handleTransactions(c, portfolioSvc)
	})
	r.GET("/summary", func(c *gin.Context) {
		handleSummary(c, portfolioSvc)
	})
	r.GET("/audit", func(c *gin.Context) {
		handleAudit(c, portfolioSvc)
	})
	return r
}

type addStockRequest struct {
	Symbol string `json:"symbol" binding:"required"`
	Shares string `json:"shares" binding:"required"`
	Price  string `json:"price" binding:"required"`
	Date   string `json:"date"`
}

type sellStockRequest struct {
	Symbol string `json:"symbol" binding:"required"`
	Shares string `json:"shares" binding:"required"`
	Price  string `json:"price"`
	Date   string `json:"date"`
}

func handleAddStock(c *gin.Context, svc *service.PortfolioService) {
	var req addStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	shares, err := decimal.NewFromString(req.Shares)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "shares must be a decimal string"})
		return
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "price must be a decimal string"})
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return
	}

	tx, err := svc.AddStock(c.Request.Context(), service.AddStockInput{
		Symbol: req.Symbol,
		Shares: shares,
		Price:  price,
		Date:   date,
	})
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"transactionId": tx.ID,
		"symbol":        tx.Symbol,
		"type":          tx.Type,
		"shares":        tx.Shares.String(),
		"price":         tx.Price.StringFixed(2),
		"date":          tx.Date.Format("2006-01-02"),
	})
}

func handleSellStock(c *gin.Context, svc *service.PortfolioService) {
	var req sellStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	shares, err := decimal.NewFromString(req.Shares)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "shares must be a decimal string"})
		return
	}
	var price *decimal.Decimal
	if req.Price != "" {
		p, err := decimal.NewFromString(req.Price)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "price must be a decimal string"})
			return
		}
		price = &p
	}
	date, err := parseDate(req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return
	}

	tx, err := svc.SellStock(c.Request.Context(), service.SellStockInput{
		Symbol: req.Symbol,
		Shares: shares,
		Price:  price,
		Date:   date,
	})
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"transactionId": tx.ID,
		"symbol":        tx.Symbol,
		"type":          tx.Type,
		"shares":        tx.Shares.String(),
		"price":         tx.Price.StringFixed(2),
		"date":          tx.Date.Format("2006-01-02"),
	})
}

func handlePositions(c *gin.Context, svc *service.PortfolioService) {
	snapshots, err := svc.ListPositions(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	resp := []gin.H{}
	for _, s := range snapshots {
		resp = append(resp, gin.H{
			"symbol":       s.Symbol,
			"shares":       s.Shares.String(),
			"avgPrice":     s.AvgPrice.StringFixed(2),
			"currentPrice": s.CurrentPrice.StringFixed(2),
			"totalCost":    s.TotalCost.StringFixed(2),
			"totalValue":   s.TotalValue.StringFixed(2),
			"gainLoss":     s.GainLoss.StringFixed(2),
			"gainLossPct":  s.GainLossPct.StringFixed(2),
			"estimated":    s.Estimated,
		})
	}
	c.JSON(http.StatusOK, gin.H{"positions": resp})
}

func handleTransactions(c *gin.Context, svc *service.PortfolioService) {
	symbol := c.Query("symbol")
	txs, err := svc.ListTransactions(c.Request.Context(), symbol)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	resp := []gin.H{}
	for _, tx := range txs {
		resp = append(resp, gin.H{
			"id":     tx.ID,
			"symbol": tx.Symbol,
			"type":   tx.Type,
			"shares": tx.Shares.String(),
			"price":  tx.Price.StringFixed(2),
			"date":   tx.Date.Format("2006-01-02"),
		})
	}
	c.JSON(http.StatusOK, gin.H{"transactions": resp})
}

func handleSummary(c *gin.Context, svc *service.PortfolioService) {
	summary, err := svc.GetSummary(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	positions := []gin.H{}
	for _, s := range summary.Positions {
		positions = append(positions, gin.H{
			"symbol":      s.Symbol,
			"shares":      s.Shares.String(),
			"totalValue":  s.TotalValue.StringFixed(2),
			"gainLoss":    s.GainLoss.StringFixed(2),
			"gainLossPct": s.GainLossPct.StringFixed(2),
			"estimated":   s.Estimated,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"totalCost":        summary.TotalCost.StringFixed(2),
		"totalValue":       summary.TotalValue.StringFixed(2),
		"totalGainLoss":    summary.TotalGainLoss.StringFixed(2),
		"totalGainLossPct": summary.TotalGainLossPct.StringFixed(2),
		"holdings":         summary.Holdings,
		"positions":        positions,
	})
}

func handleAudit(c *gin.Context, svc *service.PortfolioService) {
	consistent, err := svc.VerifyLedger(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"consistent": consistent})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrInvalidPrice):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInsufficientShares):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", s)
}

func logMiddleware(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.WithFields(logrus.Fields{
			"status":   c.Writer.Status(),
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"latency":  time.Since(start).String(),
			"clientIP": c.ClientIP(),
		}).Info("request completed")
	}
}
