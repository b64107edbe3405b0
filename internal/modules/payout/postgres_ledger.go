// README: Ledger backed by PostgreSQL; the unique key on order_id enforces idempotency.
package payout

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"fleet/internal/types"
)

type PostgresLedger struct {
	db *pgxpool.Pool
}

func NewPostgresLedger(db *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{db: db}
}

func (l *PostgresLedger) Credit(ctx context.Context, courierID, orderID types.ID, amount types.Money) error {
	tag, err := l.db.Exec(ctx, `
        INSERT INTO ledger_credits (order_id, courier_id, amount, currency, credited_at)
        VALUES ($1, $2, $3, $4, NOW())
        ON CONFLICT (order_id) DO NOTHING`,
		string(orderID),
		string(courierID),
		amount.Amount,
		amount.Currency,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDoubleCredit
	}
	return nil
}

func (l *PostgresLedger) Balance(ctx context.Context, courierID types.ID) (Balance, error) {
	row := l.db.QueryRow(ctx, `
        SELECT COALESCE(SUM(amount), 0), COALESCE(MAX(currency), '')
        FROM ledger_credits
        WHERE courier_id = $1`, string(courierID),
	)
	var b Balance
	if err := row.Scan(&b.Lifetime.Amount, &b.Lifetime.Currency); err != nil {
		return Balance{}, err
	}
	// Withdrawals are settled outside the engine; until one lands the whole
	// lifetime sum is withdrawal-eligible.
	b.Total = b.Lifetime
	return b, nil
}
