// README: Courier earnings ledger; credits are keyed by order id for idempotency.
package payout

import (
	"context"
	"errors"
	"sync"

	"fleet/internal/types"
)

var (
	// ErrDoubleCredit means the same order was credited twice. This is an
	// internal invariant violation, not a caller-visible error path.
	ErrDoubleCredit = errors.New("order already credited")
)

type Balance struct {
	// Total is the withdrawal-eligible balance.
	Total types.Money
	// Lifetime is the gross sum of all credits ever applied.
	Lifetime types.Money
}

type Ledger interface {
	// Credit applies a courier payout for a delivered order. A second credit
	// for the same order id returns ErrDoubleCredit and applies nothing.
	Credit(ctx context.Context, courierID, orderID types.ID, amount types.Money) error
	Balance(ctx context.Context, courierID types.ID) (Balance, error)
}

type MemoryLedger struct {
	mu       sync.Mutex
	credited map[types.ID]struct{}
	balances map[types.ID]Balance
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		credited: make(map[types.ID]struct{}),
		balances: make(map[types.ID]Balance),
	}
}

func (l *MemoryLedger) Credit(_ context.Context, courierID, orderID types.ID, amount types.Money) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.credited[orderID]; ok {
		return ErrDoubleCredit
	}
	l.credited[orderID] = struct{}{}
	b := l.balances[courierID]
	b.Total.Amount += amount.Amount
	b.Total.Currency = amount.Currency
	b.Lifetime.Amount += amount.Amount
	b.Lifetime.Currency = amount.Currency
	l.balances[courierID] = b
	return nil
}

func (l *MemoryLedger) Balance(_ context.Context, courierID types.ID) (Balance, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[courierID], nil
}
