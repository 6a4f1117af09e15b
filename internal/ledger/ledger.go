// Package ledger implements the lot-accounting engine: FIFO consumption of
// open lots on sells, symbol-level position aggregation and valuation math.
// Everything here is pure; persistence and price lookup live elsewhere.
package ledger

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/GooferByte/Backend_022Portfolio/internal/models"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidQuantity    = errors.New("invalid_quantity")
	ErrInvalidPrice       = errors.New("invalid_price")
	ErrInsufficientShares = errors.New("insufficient_shares")
)

// avgPrecision is the decimal precision for weighted-average prices.
const avgPrecision = 4

// NormalizeSymbol upper-cases and trims a ticker symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// ValidateBuy rejects non-positive share or price input before any mutation.
func ValidateBuy(shares, price decimal.Decimal) error {
	if shares.Sign() <= 0 {
		return fmt.Errorf("%w: shares must be positive, got %s", ErrInvalidQuantity, shares)
	}
	if price.Sign() <= 0 {
		return fmt.Errorf("%w: price must be positive, got %s", ErrInvalidPrice, price)
	}
	return nil
}

// Consumption records how many shares a sell takes from one lot.
type Consumption struct {
	LotID  int64
	Shares decimal.Decimal
}

// PlanSell computes the FIFO consumption plan for selling shares out of the
// given lots. Lots are walked in ascending purchase-date order, ties broken
// by lot id (insertion order). If the open lots cannot cover the requested
// quantity the plan fails with ErrInsufficientShares and nothing may be
// applied: the plan is all-or-nothing.
func PlanSell(lots []models.Lot, shares decimal.Decimal) ([]Consumption, error) {
	if shares.Sign() <= 0 {
		return nil, fmt.Errorf("%w: shares must be positive, got %s", ErrInvalidQuantity, shares)
	}

	open := make([]models.Lot, 0, len(lots))
	available := decimal.Zero
	for _, lot := range lots {
		if lot.Open() {
			open = append(open, lot)
			available = available.Add(lot.Remaining)
		}
	}
	if shares.GreaterThan(available) {
		return nil, fmt.Errorf("%w: cannot sell %s shares, only %s available", ErrInsufficientShares, shares, available)
	}

	sort.SliceStable(open, func(i, j int) bool {
		if !open[i].PurchaseDate.Equal(open[j].PurchaseDate) {
			return open[i].PurchaseDate.Before(open[j].PurchaseDate)
		}
		return open[i].ID < open[j].ID
	})

	plan := []Consumption{}
	left := shares
	for _, lot := range open {
		if left.Sign() <= 0 {
			break
		}
		take := decimal.Min(lot.Remaining, left)
		plan = append(plan, Consumption{LotID: lot.ID, Shares: take})
		left = left.Sub(take)
	}
	return plan, nil
}

// Aggregate folds open lots into one position per symbol: total remaining
// shares and the cost-weighted average purchase price. Symbols without open
// lots are omitted. Results are sorted by symbol for stable output.
func Aggregate(lots []models.Lot) []models.Position {
	shares := map[string]decimal.Decimal{}
	cost := map[string]decimal.Decimal{}
	for _, lot := range lots {
		if !lot.Open() {
			continue
		}
		shares[lot.Symbol] = shares[lot.Symbol].Add(lot.Remaining)
		cost[lot.Symbol] = cost[lot.Symbol].Add(lot.Remaining.Mul(lot.Price))
	}

	positions := make([]models.Position, 0, len(shares))
	for symbol, qty := range shares {
		avg := decimal.Zero
		// qty is always positive here, but a zero divisor must never panic.
		if qty.Sign() > 0 {
			avg = cost[symbol].DivRound(qty, avgPrecision)
		}
		positions = append(positions, models.Position{Symbol: symbol, Shares: qty, AvgPrice: avg})
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i].Symbol < positions[j].Symbol })
	return positions
}

// Valuate prices a position against a current quote. Gain/loss percentage is
// zero when total cost is zero, never a division fault.
func Valuate(pos models.Position, currentPrice decimal.Decimal) models.Snapshot {
	totalCost := pos.Shares.Mul(pos.AvgPrice)
	totalValue := pos.Shares.Mul(currentPrice)
	gainLoss := totalValue.Sub(totalCost)
	gainLossPct := decimal.Zero
	if totalCost.Sign() > 0 {
		gainLossPct = gainLoss.DivRound(totalCost, avgPrecision).Mul(decimal.NewFromInt(100))
	}
	return models.Snapshot{
		Symbol:       pos.Symbol,
		Shares:       pos.Shares,
		AvgPrice:     pos.AvgPrice,
		CurrentPrice: currentPrice,
		TotalCost:    totalCost,
		TotalValue:   totalValue,
		GainLoss:     gainLoss,
		GainLossPct:  gainLossPct,
	}
}

// Replay rebuilds the open-lot set from an empty state by applying the
// transaction log in order (date ascending, ties by creation time). The
// result must match the live lot table exactly; a mismatch means the audit
// trail and the derived state have diverged.
func Replay(transactions []models.Transaction) ([]models.Lot, error) {
	ordered := append([]models.Transaction(nil), transactions...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].Date.Equal(ordered[j].Date) {
			return ordered[i].Date.Before(ordered[j].Date)
		}
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	lots := []models.Lot{}
	var nextID int64 = 1
	for _, tx := range ordered {
		switch tx.Type {
		case models.TransactionBuy:
			lots = append(lots, models.Lot{
				ID:           nextID,
				Symbol:       tx.Symbol,
				Shares:       tx.Shares,
				Remaining:    tx.Shares,
				Price:        tx.Price,
				PurchaseDate: tx.Date,
				CreatedAt:    tx.CreatedAt,
			})
			nextID++
		case models.TransactionSell:
			symbolLots := []models.Lot{}
			for _, lot := range lots {
				if lot.Symbol == tx.Symbol {
					symbolLots = append(symbolLots, lot)
				}
			}
			plan, err := PlanSell(symbolLots, tx.Shares)
			if err != nil {
				return nil, fmt.Errorf("replay %s sell of %s: %w", tx.Symbol, tx.Shares, err)
			}
			for _, c := range plan {
				for i := range lots {
					if lots[i].ID == c.LotID {
						lots[i].Remaining = lots[i].Remaining.Sub(c.Shares)
					}
				}
			}
		default:
			return nil, fmt.Errorf("replay: unknown transaction type %q", tx.Type)
		}
	}

	open := []models.Lot{}
	for _, lot := range lots {
		if lot.Open() {
			open = append(open, lot)
		}
	}
	return open, nil
}
