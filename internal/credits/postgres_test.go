package credits

import (
	"context"
	"errors"
	"testing"

	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
)

func TestPostgresLedgerCreditNewOrder(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	ledger := newPostgresLedgerWithDB(mock)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO credited_orders").WithArgs("BY-1", "13800000000", 20).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery("INSERT INTO client_credits").WithArgs("13800000000", 20).WillReturnRows(pgxmock.NewRows([]string{"balance"}).AddRow(25))
	mock.ExpectCommit()

	applied, balance, err := ledger.Credit(context.Background(), "13800000000", "BY-1", 20)
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if !applied || balance != 25 {
		t.Fatalf("expected applied credit with balance 25, got applied=%v balance=%d", applied, balance)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresLedgerCreditDuplicateOrder(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	ledger := newPostgresLedgerWithDB(mock)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO credited_orders").WithArgs("BY-1", "13800000000", 20).WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectQuery("SELECT balance FROM client_credits").WithArgs("13800000000").WillReturnRows(pgxmock.NewRows([]string{"balance"}).AddRow(20))
	mock.ExpectCommit()

	applied, balance, err := ledger.Credit(context.Background(), "13800000000", "BY-1", 20)
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if applied || balance != 20 {
		t.Fatalf("expected duplicate to be ignored, got applied=%v balance=%d", applied, balance)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresLedgerCreditFailureRollsBack(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	ledger := newPostgresLedgerWithDB(mock)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO credited_orders").WithArgs("BY-2", "p", 5).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	if _, _, err := ledger.Credit(context.Background(), "p", "BY-2", 5); err == nil {
		t.Fatalf("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresLedgerBalance(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	ledger := newPostgresLedgerWithDB(mock)

	mock.ExpectQuery("SELECT balance FROM client_credits").WithArgs("p").WillReturnRows(pgxmock.NewRows([]string{"balance"}).AddRow(3))
	balance, err := ledger.Balance(context.Background(), "p")
	if err != nil || balance != 3 {
		t.Fatalf("expected balance 3, got %d err=%v", balance, err)
	}

	mock.ExpectQuery("SELECT balance FROM client_credits").WithArgs("missing").WillReturnError(pgx.ErrNoRows)
	balance, err = ledger.Balance(context.Background(), "missing")
	if err != nil || balance != 0 {
		t.Fatalf("expected zero balance for unknown client, got %d err=%v", balance, err)
	}

	mock.ExpectExec("INSERT INTO client_credits").WithArgs("p", 9).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	if err := ledger.Set(context.Background(), "p", 9); err != nil {
		t.Fatalf("set: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
