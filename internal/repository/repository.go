package repository

import (
	"context"

	"github.com/GooferByte/Backend_022Portfolio/internal/ledger"
	"github.com/GooferByte/Backend_022Portfolio/internal/models"
)

// PortfolioRepository abstracts persistence for lots and the transaction log.
//
// Buys and sells each write the lot change and the transaction row as one
// atomic unit: a sell that cannot apply its full consumption plan commits
// nothing, and a transaction row is never recorded without its lot effects.
type PortfolioRepository interface {
	// ApplyBuy stores a new lot together with its BUY transaction and
	// returns the lot with its assigned id.
	ApplyBuy(ctx context.Context, lot models.Lot, tx models.Transaction) (models.Lot, error)
	// ApplySell reduces lot remainders per the consumption plan and records
	// the SELL transaction, atomically.
	ApplySell(ctx context.Context, tx models.Transaction, plan []ledger.Consumption) error
	// ListOpenLots returns the open lots for one symbol in FIFO order
	// (purchase date ascending, ties by id).
	ListOpenLots(ctx context.Context, symbol string) ([]models.Lot, error)
	// ListAllOpenLots returns every open lot across symbols in FIFO order.
	ListAllOpenLots(ctx context.Context) ([]models.Lot, error)
	// ListTransactions returns the audit trail newest-first, optionally
	// filtered by symbol (empty string means all).
	ListTransactions(ctx context.Context, symbol string) ([]models.Transaction, error)
}
