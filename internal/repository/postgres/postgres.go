package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/GooferByte/Backend_022Portfolio/internal/ledger"
	"github.com/GooferByte/Backend_022Portfolio/internal/models"

	_ "github.com/lib/pq"
)

// Repository implements PortfolioRepository backed by PostgreSQL. The
// holdings table keeps closed lots (remaining_shares = 0) so the lot table
// stays reconstructible from the transaction log.
type Repository struct {
	db *sql.DB
}

func New(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// EnsureSchema creates the holdings and transactions tables if missing.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS holdings (
			id BIGSERIAL PRIMARY KEY,
			symbol TEXT NOT NULL,
			shares NUMERIC NOT NULL,
			remaining_shares NUMERIC NOT NULL,
			purchase_price NUMERIC NOT NULL,
			purchase_date DATE NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY,
			symbol TEXT NOT NULL,
			transaction_type TEXT NOT NULL,
			shares NUMERIC NOT NULL,
			price NUMERIC NOT NULL,
			transaction_date DATE NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS holdings_symbol_open_idx
			ON holdings (symbol, purchase_date, id) WHERE remaining_shares > 0;
	`
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

func (r *Repository) ApplyBuy(ctx context.Context, lot models.Lot, tx models.Transaction) (models.Lot, error) {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Lot{}, err
	}
	defer func() { _ = dbTx.Rollback() }()

	const insertLot = `
		INSERT INTO holdings (symbol, shares, remaining_shares, purchase_price, purchase_date, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id
	`
	if err := dbTx.QueryRowContext(ctx, insertLot,
		lot.Symbol, lot.Shares, lot.Remaining, lot.Price, lot.PurchaseDate, lot.CreatedAt).Scan(&lot.ID); err != nil {
		return models.Lot{}, err
	}
	if err := insertTransaction(ctx, dbTx, tx); err != nil {
		return models.Lot{}, err
	}
	if err := dbTx.Commit(); err != nil {
		return models.Lot{}, err
	}
	return lot, nil
}

func (r *Repository) ApplySell(ctx context.Context, tx models.Transaction, plan []ledger.Consumption) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = dbTx.Rollback() }()

	const consume = `
		UPDATE holdings
		SET remaining_shares = remaining_shares - $1
		WHERE id = $2 AND remaining_shares >= $1
	`
	for _, c := range plan {
		res, err := dbTx.ExecContext(ctx, consume, c.Shares, c.LotID)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected != 1 {
			// The lot changed between plan and apply; abort the whole sell.
			return fmt.Errorf("lot %d no longer covers %s shares", c.LotID, c.Shares)
		}
	}
	if err := insertTransaction(ctx, dbTx, tx); err != nil {
		return err
	}
	return dbTx.Commit()
}

func (r *Repository) ListOpenLots(ctx context.Context, symbol string) ([]models.Lot, error) {
	const query = `
		SELECT id, symbol, shares, remaining_shares, purchase_price, purchase_date, created_at
		FROM holdings
		WHERE symbol = $1 AND remaining_shares > 0
		ORDER BY purchase_date ASC, id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, symbol)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLots(rows)
}

func (r *Repository) ListAllOpenLots(ctx context.Context) ([]models.Lot, error) {
	const query = `
		SELECT id, symbol, shares, remaining_shares, purchase_price, purchase_date, created_at
		FROM holdings
		WHERE remaining_shares > 0
		ORDER BY purchase_date ASC, id ASC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLots(rows)
}

func (r *Repository) ListTransactions(ctx context.Context, symbol string) ([]models.Transaction, error) {
	query := `
		SELECT id, symbol, transaction_type, shares, price, transaction_date, created_at
		FROM transactions
	`
	args := []interface{}{}
	if symbol != "" {
		query += " WHERE symbol = $1"
		args = append(args, symbol)
	}
	query += " ORDER BY transaction_date DESC, created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Transaction{}
	for rows.Next() {
		var tx models.Transaction
		if err := rows.Scan(&tx.ID, &tx.Symbol, &tx.Type, &tx.Shares, &tx.Price, &tx.Date, &tx.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func insertTransaction(ctx context.Context, dbTx *sql.Tx, tx models.Transaction) error {
	const query = `
		INSERT INTO transactions (id, symbol, transaction_type, shares, price, transaction_date, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`
	_, err := dbTx.ExecContext(ctx, query, tx.ID, tx.Symbol, string(tx.Type), tx.Shares, tx.Price, tx.Date, tx.CreatedAt)
	return err
}

func scanLots(rows *sql.Rows) ([]models.Lot, error) {
	out := []models.Lot{}
	for rows.Next() {
		var lot models.Lot
		if err := rows.Scan(&lot.ID, &lot.Symbol, &lot.Shares, &lot.Remaining, &lot.Price, &lot.PurchaseDate, &lot.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, lot)
	}
	return out, rows.Err()
}
