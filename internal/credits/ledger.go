package credits

import (
	"context"
	"errors"
	"strings"
	"sync"
)

var (
	// ErrMissingPhone is returned when a ledger call has no client contact.
	ErrMissingPhone = errors.New("credits: client phone is required")
	// ErrMissingOrderID is returned when a credit has no order id to key it.
	ErrMissingOrderID = errors.New("credits: order id is required")
	// ErrNegativeBalance is returned when a balance or credit would go below zero.
	ErrNegativeBalance = errors.New("credits: balance must not be negative")
)

// Ledger stores the number of prepaid counseling sessions per client.
type Ledger interface {
	Balance(ctx context.Context, phone string) (int, error)
	Set(ctx context.Context, phone string, balance int) error
	// Credit adds sessions for an order. A repeated order id is a no-op and
	// reports applied=false with the current balance.
	Credit(ctx context.Context, phone, orderID string, sessions int) (applied bool, balance int, err error)
}

// NormalizePhone trims the contact used as ledger key.
func NormalizePhone(phone string) string {
	return strings.TrimSpace(phone)
}

func validateCredit(phone, orderID string, sessions int) error {
	if phone == "" {
		return ErrMissingPhone
	}
	if orderID == "" {
		return ErrMissingOrderID
	}
	if sessions < 0 {
		return ErrNegativeBalance
	}
	return nil
}

// MemoryLedger keeps balances in process. Used in development and tests.
type MemoryLedger struct {
	mu       sync.Mutex
	balances map[string]int
	orders   map[string]struct{}
}

// NewMemoryLedger returns an empty ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		balances: make(map[string]int),
		orders:   make(map[string]struct{}),
	}
}

func (l *MemoryLedger) Balance(ctx context.Context, phone string) (int, error) {
	phone = NormalizePhone(phone)
	if phone == "" {
		return 0, ErrMissingPhone
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[phone], nil
}

func (l *MemoryLedger) Set(ctx context.Context, phone string, balance int) error {
	phone = NormalizePhone(phone)
	if phone == "" {
		return ErrMissingPhone
	}
	if balance < 0 {
		return ErrNegativeBalance
	}
	l.mu.Lock()
	l.balances[phone] = balance
	l.mu.Unlock()
	return nil
}

func (l *MemoryLedger) Credit(ctx context.Context, phone, orderID string, sessions int) (bool, int, error) {
	phone = NormalizePhone(phone)
	if err := validateCredit(phone, orderID, sessions); err != nil {
		return false, 0, err
	}
	if err := ctx.Err(); err != nil {
		return false, 0, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, seen := l.orders[orderID]; seen {
		return false, l.balances[phone], nil
	}
	l.orders[orderID] = struct{}{}
	l.balances[phone] += sessions
	return true, l.balances[phone], nil
}
