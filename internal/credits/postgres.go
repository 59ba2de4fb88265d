package credits

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type db interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresLedger persists balances in client_credits and the orders that
// produced them in credited_orders.
type PostgresLedger struct {
	db db
}

// NewPostgresLedger wires the ledger to a pgx pool.
func NewPostgresLedger(pool *pgxpool.Pool) *PostgresLedger {
	if pool == nil {
		panic("credits: pgx pool required")
	}
	return &PostgresLedger{db: pool}
}

func newPostgresLedgerWithDB(conn db) *PostgresLedger {
	if conn == nil {
		panic("credits: db required")
	}
	return &PostgresLedger{db: conn}
}

func (l *PostgresLedger) Balance(ctx context.Context, phone string) (int, error) {
	phone = NormalizePhone(phone)
	if phone == "" {
		return 0, ErrMissingPhone
	}
	balance, err := queryBalance(ctx, l.db, phone)
	if err != nil {
		return 0, fmt.Errorf("credits: get balance: %w", err)
	}
	return balance, nil
}

func (l *PostgresLedger) Set(ctx context.Context, phone string, balance int) error {
	phone = NormalizePhone(phone)
	if phone == "" {
		return ErrMissingPhone
	}
	if balance < 0 {
		return ErrNegativeBalance
	}
	query := `
		INSERT INTO client_credits (phone, balance, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (phone) DO UPDATE SET balance = EXCLUDED.balance, updated_at = NOW()
	`
	if _, err := l.db.Exec(ctx, query, phone, balance); err != nil {
		return fmt.Errorf("credits: set balance: %w", err)
	}
	return nil
}

// Credit records the order and increments the balance in one transaction.
func (l *PostgresLedger) Credit(ctx context.Context, phone, orderID string, sessions int) (bool, int, error) {
	phone = NormalizePhone(phone)
	if err := validateCredit(phone, orderID, sessions); err != nil {
		return false, 0, err
	}

	tx, err := l.db.Begin(ctx)
	if err != nil {
		return false, 0, fmt.Errorf("credits: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	ct, err := tx.Exec(ctx, `
		INSERT INTO credited_orders (order_id, phone, sessions)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING
	`, orderID, phone, sessions)
	if err != nil {
		return false, 0, fmt.Errorf("credits: record order: %w", err)
	}

	if ct.RowsAffected() == 0 {
		balance, err := queryBalance(ctx, tx, phone)
		if err != nil {
			return false, 0, fmt.Errorf("credits: get balance: %w", err)
		}
		if err := tx.Commit(ctx); err != nil {
			return false, 0, fmt.Errorf("credits: commit: %w", err)
		}
		return false, balance, nil
	}

	var balance int
	err = tx.QueryRow(ctx, `
		INSERT INTO client_credits (phone, balance, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (phone) DO UPDATE SET balance = client_credits.balance + EXCLUDED.balance, updated_at = NOW()
		RETURNING balance
	`, phone, sessions).Scan(&balance)
	if err != nil {
		return false, 0, fmt.Errorf("credits: increment balance: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return false, 0, fmt.Errorf("credits: commit: %w", err)
	}
	return true, balance, nil
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func queryBalance(ctx context.Context, q rowQuerier, phone string) (int, error) {
	var balance int
	err := q.QueryRow(ctx, `SELECT balance FROM client_credits WHERE phone = $1`, phone).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return balance, nil
}
