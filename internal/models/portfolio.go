package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType distinguishes the two kinds of ledger events.
type TransactionType string

const (
	TransactionBuy  TransactionType = "BUY"
	TransactionSell TransactionType = "SELL"
)

// Lot is a discrete batch of shares acquired in one buy. Remaining shrinks
// as sells consume it; everything else is fixed at purchase time. A lot with
// Remaining zero is closed and excluded from position aggregation.
type Lot struct {
	ID           int64           `json:"id"`
	Symbol       string          `json:"symbol"`
	Shares       decimal.Decimal `json:"shares"`
	Remaining    decimal.Decimal `json:"remaining"`
	Price        decimal.Decimal `json:"price"`
	PurchaseDate time.Time       `json:"purchaseDate"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// Open reports whether the lot still holds shares.
func (l Lot) Open() bool {
	return l.Remaining.Sign() > 0
}

// Transaction is an immutable audit-trail event. Transactions are only ever
// appended; lots are derived state reconstructible from them.
type Transaction struct {
	ID        string          `json:"id"`
	Symbol    string          `json:"symbol"`
	Type      TransactionType `json:"type"`
	Shares    decimal.Decimal `json:"shares"`
	Price     decimal.Decimal `json:"price"`
	Date      time.Time       `json:"date"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Position is the symbol-level aggregate of all open lots. Derived on
// demand, never stored.
type Position struct {
	Symbol   string          `json:"symbol"`
	Shares   decimal.Decimal `json:"shares"`
	AvgPrice decimal.Decimal `json:"avgPrice"`
}

// Snapshot is a position valued against a fetched price. Estimated marks
// quotes substituted from the fallback table rather than the live source.
type Snapshot struct {
	Symbol       string          `json:"symbol"`
	Shares       decimal.Decimal `json:"shares"`
	AvgPrice     decimal.Decimal `json:"avgPrice"`
	CurrentPrice decimal.Decimal `json:"currentPrice"`
	TotalCost    decimal.Decimal `json:"totalCost"`
	TotalValue   decimal.Decimal `json:"totalValue"`
	GainLoss     decimal.Decimal `json:"gainLoss"`
	GainLossPct  decimal.Decimal `json:"gainLossPct"`
	Estimated    bool            `json:"estimated"`
}

// PriceQuote models the latest fetched price for a symbol.
type PriceQuote struct {
	Symbol    string
	Price     decimal.Decimal
	Timestamp time.Time
}
