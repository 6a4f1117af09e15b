package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/GooferByte/Backend_022Portfolio/internal/ledger"
	"github.com/GooferByte/Backend_022Portfolio/internal/models"
)

// InMemoryRepo keeps lots in an id-keyed table with a monotonic counter, so
// insertion order survives as the FIFO tiebreak the same way a serial column
// does in postgres. Data resets on restart.
type InMemoryRepo struct {
	mu           sync.RWMutex
	lots         map[int64]models.Lot
	nextLotID    int64
	transactions []models.Transaction
}

func New() *InMemoryRepo {
	return &InMemoryRepo{
		lots:      make(map[int64]models.Lot),
		nextLotID: 1,
	}
}

func (r *InMemoryRepo) ApplyBuy(ctx context.Context, lot models.Lot, tx models.Transaction) (models.Lot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	lot.ID = r.nextLotID
	r.nextLotID++
	r.lots[lot.ID] = lot
	r.transactions = append(r.transactions, tx)
	return lot, nil
}

func (r *InMemoryRepo) ApplySell(ctx context.Context, tx models.Transaction, plan []ledger.Consumption) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Validate the whole plan before touching anything so a bad plan leaves
	// the store untouched.
	for _, c := range plan {
		lot, ok := r.lots[c.LotID]
		if !ok {
			return fmt.Errorf("sell plan references unknown lot %d", c.LotID)
		}
		if lot.Remaining.LessThan(c.Shares) {
			return fmt.Errorf("sell plan consumes %s from lot %d with only %s remaining", c.Shares, c.LotID, lot.Remaining)
		}
	}

	for _, c := range plan {
		lot := r.lots[c.LotID]
		lot.Remaining = lot.Remaining.Sub(c.Shares)
		r.lots[c.LotID] = lot
	}
	r.transactions = append(r.transactions, tx)
	return nil
}

func (r *InMemoryRepo) ListOpenLots(ctx context.Context, symbol string) ([]models.Lot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lots := []models.Lot{}
	for _, lot := range r.lots {
		if lot.Symbol == symbol && lot.Open() {
			lots = append(lots, lot)
		}
	}
	sortFIFO(lots)
	return lots, nil
}

func (r *InMemoryRepo) ListAllOpenLots(ctx context.Context) ([]models.Lot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lots := []models.Lot{}
	for _, lot := range r.lots {
		if lot.Open() {
			lots = append(lots, lot)
		}
	}
	sortFIFO(lots)
	return lots, nil
}

func (r *InMemoryRepo) ListTransactions(ctx context.Context, symbol string) ([]models.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	txs := []models.Transaction{}
	for _, tx := range r.transactions {
		if symbol == "" || tx.Symbol == symbol {
			txs = append(txs, tx)
		}
	}
	slices.SortStableFunc(txs, func(a, b models.Transaction) int {
		if a.Date.After(b.Date) {
			return -1
		}
		if a.Date.Before(b.Date) {
			return 1
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		if a.CreatedAt.Before(b.CreatedAt) {
			return 1
		}
		return 0
	})
	return txs, nil
}

func sortFIFO(lots []models.Lot) {
	slices.SortFunc(lots, func(a, b models.Lot) int {
		if a.PurchaseDate.Before(b.PurchaseDate) {
			return -1
		}
		if a.PurchaseDate.After(b.PurchaseDate) {
			return 1
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
}
