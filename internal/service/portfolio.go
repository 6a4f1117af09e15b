package service

import (
	"context"
	"time"

	"github.com/GooferByte/Backend_022Portfolio/internal/ledger"
	"github.com/GooferByte/Backend_022Portfolio/internal/models"
	"github.com/GooferByte/Backend_022Portfolio/internal/pricing"
	"github.com/GooferByte/Backend_022Portfolio/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Validation errors surface straight from the ledger package; handlers map
// them with errors.Is.
var (
	ErrInvalidQuantity    = ledger.ErrInvalidQuantity
	ErrInvalidPrice       = ledger.ErrInvalidPrice
	ErrInsufficientShares = ledger.ErrInsufficientShares
)

// PortfolioService coordinates the lot ledger, the price source and the
// store. All mutation goes through here, one command at a time.
type PortfolioService struct {
	repo     repository.PortfolioRepository
	priceSvc pricing.Service
	now      func() time.Time
	logger   *logrus.Entry
}

func NewPortfolioService(repo repository.PortfolioRepository, priceSvc pricing.Service, logger *logrus.Logger) *PortfolioService {
	return &PortfolioService{
		repo:     repo,
		priceSvc: priceSvc,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger.WithField("component", "portfolio-service"),
	}
}

// AddStockInput is the DTO for a buy.
type AddStockInput struct {
	Symbol string
	Shares decimal.Decimal
	Price  decimal.Decimal
	Date   time.Time
}

// SellStockInput is the DTO for a sell. A nil Price means "sell at the
// current quote", matching the interactive tracker behaviour.
type SellStockInput struct {
	Symbol string
	Shares decimal.Decimal
	Price  *decimal.Decimal
	Date   time.Time
}

// Summary collates portfolio-wide totals. Percentages are derived from the
// summed cost and value, never added across symbols.
type Summary struct {
	TotalCost        decimal.Decimal   `json:"totalCost"`
	TotalValue       decimal.Decimal   `json:"totalValue"`
	TotalGainLoss    decimal.Decimal   `json:"totalGainLoss"`
	TotalGainLossPct decimal.Decimal   `json:"totalGainLossPct"`
	Holdings         int               `json:"holdings"`
	Positions        []models.Snapshot `json:"positions"`
}

// AddStock records a buy: one new open lot plus its BUY transaction.
func (s *PortfolioService) AddStock(ctx context.Context, input AddStockInput) (*models.Transaction, error) {
	symbol := ledger.NormalizeSymbol(input.Symbol)
	if err := ledger.ValidateBuy(input.Shares, input.Price); err != nil {
		return nil, err
	}
	date := input.Date
	if date.IsZero() {
		date = s.now()
	}

	now := s.now()
	lot := models.Lot{
		Symbol:       symbol,
		Shares:       input.Shares,
		Remaining:    input.Shares,
		Price:        input.Price,
		PurchaseDate: date,
		CreatedAt:    now,
	}
	tx := models.Transaction{
		ID:        uuid.NewString(),
		Symbol:    symbol,
		Type:      models.TransactionBuy,
		Shares:    input.Shares,
		Price:     input.Price,
		Date:      date,
		CreatedAt: now,
	}
	if _, err := s.repo.ApplyBuy(ctx, lot, tx); err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{"symbol": symbol, "shares": input.Shares}).Debug("buy recorded")
	return &tx, nil
}

// SellStock consumes open lots FIFO. The pre-check and the consumption scan
// work off one read of the open lots, and the repository applies the plan
// plus the SELL transaction as a single atomic write.
func (s *PortfolioService) SellStock(ctx context.Context, input SellStockInput) (*models.Transaction, error) {
	symbol := ledger.NormalizeSymbol(input.Symbol)

	price, estimated, err := s.resolveSellPrice(ctx, symbol, input.Price)
	if err != nil {
		return nil, err
	}
	if estimated {
		s.logger.WithFields(logrus.Fields{"symbol": symbol, "price": price}).Warn("quote unavailable, selling at fallback price")
	}

	lots, err := s.repo.ListOpenLots(ctx, symbol)
	if err != nil {
		return nil, err
	}
	plan, err := ledger.PlanSell(lots, input.Shares)
	if err != nil {
		return nil, err
	}

	date := input.Date
	if date.IsZero() {
		date = s.now()
	}
	tx := models.Transaction{
		ID:        uuid.NewString(),
		Symbol:    symbol,
		Type:      models.TransactionSell,
		Shares:    input.Shares,
		Price:     price,
		Date:      date,
		CreatedAt: s.now(),
	}
	if err := s.repo.ApplySell(ctx, tx, plan); err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{"symbol": symbol, "shares": input.Shares, "lots": len(plan)}).Debug("sell recorded")
	return &tx, nil
}

func (s *PortfolioService) resolveSellPrice(ctx context.Context, symbol string, price *decimal.Decimal) (decimal.Decimal, bool, error) {
	if price != nil {
		if price.Sign() < 0 {
			return decimal.Zero, false, ErrInvalidPrice
		}
		return *price, false, nil
	}
	quote, err := s.priceSvc.GetQuote(ctx, symbol)
	if err != nil {
		return pricing.FallbackPrice(symbol), true, nil
	}
	return quote.Price, false, nil
}

// ListPositions returns one valued snapshot per symbol with open lots.
// Quote failures degrade to the fallback price and mark the snapshot as
// estimated; they never fail the listing.
func (s *PortfolioService) ListPositions(ctx context.Context) ([]models.Snapshot, error) {
	lots, err := s.repo.ListAllOpenLots(ctx)
	if err != nil {
		return nil, err
	}
	positions := ledger.Aggregate(lots)

	snapshots := make([]models.Snapshot, 0, len(positions))
	for _, pos := range positions {
		price, estimated := s.currentPrice(ctx, pos.Symbol)
		snap := ledger.Valuate(pos, price)
		snap.Estimated = estimated
		snapshots = append(snapshots, snap)
	}
	return snapshots, nil
}

// ListTransactions returns the audit trail newest-first, optionally filtered
// by symbol.
func (s *PortfolioService) ListTransactions(ctx context.Context, symbol string) ([]models.Transaction, error) {
	if symbol != "" {
		symbol = ledger.NormalizeSymbol(symbol)
	}
	return s.repo.ListTransactions(ctx, symbol)
}

// GetSummary valuates every position and folds the results into portfolio
// totals.
func (s *PortfolioService) GetSummary(ctx context.Context) (*Summary, error) {
	snapshots, err := s.ListPositions(ctx)
	if err != nil {
		return nil, err
	}

	totalCost := decimal.Zero
	totalValue := decimal.Zero
	for _, snap := range snapshots {
		totalCost = totalCost.Add(snap.TotalCost)
		totalValue = totalValue.Add(snap.TotalValue)
	}
	gainLoss := totalValue.Sub(totalCost)
	gainLossPct := decimal.Zero
	if totalCost.Sign() > 0 {
		gainLossPct = gainLoss.DivRound(totalCost, 4).Mul(decimal.NewFromInt(100))
	}
	return &Summary{
		TotalCost:        totalCost,
		TotalValue:       totalValue,
		TotalGainLoss:    gainLoss,
		TotalGainLossPct: gainLossPct,
		Holdings:         len(snapshots),
		Positions:        snapshots,
	}, nil
}

// VerifyLedger replays the transaction log from empty state and checks the
// result against the live open lots. A mismatch means derived state has
// drifted from the audit trail.
func (s *PortfolioService) VerifyLedger(ctx context.Context) (bool, error) {
	txs, err := s.repo.ListTransactions(ctx, "")
	if err != nil {
		return false, err
	}
	replayed, err := ledger.Replay(txs)
	if err != nil {
		return false, err
	}
	live, err := s.repo.ListAllOpenLots(ctx)
	if err != nil {
		return false, err
	}

	type key struct {
		symbol    string
		remaining string
		price     string
		date      string
	}
	count := func(lots []models.Lot) map[key]int {
		m := map[key]int{}
		for _, lot := range lots {
			m[key{lot.Symbol, lot.Remaining.String(), lot.Price.String(), lot.PurchaseDate.Format("2006-01-02")}]++
		}
		return m
	}
	want := count(replayed)
	got := count(live)
	if len(want) != len(got) {
		return false, nil
	}
	for k, n := range want {
		if got[k] != n {
			return false, nil
		}
	}
	return true, nil
}

func (s *PortfolioService) currentPrice(ctx context.Context, symbol string) (decimal.Decimal, bool) {
	quote, err := s.priceSvc.GetQuote(ctx, symbol)
	if err != nil {
		price := pricing.FallbackPrice(symbol)
		s.logger.WithError(err).WithFields(logrus.Fields{"symbol": symbol, "fallback": price}).Warn("quote unavailable, using fallback price")
		return price, true
	}
	return quote.Price, false
}
