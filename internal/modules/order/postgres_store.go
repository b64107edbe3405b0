// README: Order store backed by PostgreSQL; CAS updates guarded by status and version.
package order

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"fleet/internal/types"
)

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, o *Order) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
        INSERT INTO orders (
            id, business_id, customer_id, courier_id, status, status_version,
            total_amount, currency, commission_amount,
            pickup_lat, pickup_lng, pickup_address,
            delivery_lat, delivery_lng, delivery_address,
            created_at
        ) VALUES (
            $1, $2, $3, $4, $5, $6,
            $7, $8, $9,
            $10, $11, $12,
            $13, $14, $15,
            $16
        )`,
		string(o.ID),
		string(o.BusinessID),
		string(o.CustomerID),
		idPtr(o.CourierID),
		string(o.Status),
		o.StatusVersion,
		o.TotalAmount.Amount,
		o.TotalAmount.Currency,
		moneyPtr(o.CommissionAmount),
		o.Pickup.Lat, o.Pickup.Lng, o.Pickup.Address,
		o.Delivery.Lat, o.Delivery.Lng, o.Delivery.Address,
		o.CreatedAt,
	)
	if err != nil {
		return err
	}

	for _, it := range o.Items {
		_, err = tx.Exec(ctx, `
            INSERT INTO order_items (order_id, product_id, quantity, unit_price, subtotal)
            VALUES ($1, $2, $3, $4, $5)`,
			string(o.ID),
			string(it.ProductID),
			it.Quantity,
			it.UnitPrice.Amount,
			it.Subtotal.Amount,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) Get(ctx context.Context, id types.ID) (*Order, error) {
	row := s.db.QueryRow(ctx, `
        SELECT id, business_id, customer_id, courier_id, status, status_version,
               total_amount, currency, commission_amount,
               pickup_lat, pickup_lng, pickup_address,
               delivery_lat, delivery_lng, delivery_address,
               created_at
        FROM orders
        WHERE id = $1`, string(id),
	)
	o, err := scanOrder(row)
	if err != nil {
		return nil, err
	}
	if o.Items, err = s.loadItems(ctx, id, o.TotalAmount.Currency); err != nil {
		return nil, err
	}
	if o.History, err = s.loadHistory(ctx, id); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int, courierID *types.ID, commission *types.Money) (bool, error) {
	tag, err := s.db.Exec(ctx, `
        UPDATE orders
        SET status = $1,
            status_version = status_version + 1,
            courier_id = COALESCE($2, courier_id),
            commission_amount = COALESCE($3, commission_amount)
        WHERE id = $4 AND status = $5 AND status_version = $6
          AND ($2::text IS NULL OR courier_id IS NULL)`,
		string(to),
		idPtr(courierID),
		moneyPtr(commission),
		string(id),
		string(from),
		version,
	)
	if err != nil {
		// The unique index on active courier assignments turns a second
		// concurrent accept by the same courier into a lost CAS.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return false, nil
		}
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) AppendChange(ctx context.Context, id types.ID, change StatusChange) error {
	_, err := s.db.Exec(ctx, `
        INSERT INTO order_status_events (order_id, from_status, to_status, actor_type, actor_id, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`,
		string(id),
		string(change.From),
		string(change.To),
		change.ActorType,
		idPtr(change.ActorID),
		change.At,
	)
	return err
}

func (s *PostgresStore) ListOpen(ctx context.Context) ([]*Order, error) {
	rows, err := s.db.Query(ctx, `
        SELECT id, business_id, customer_id, courier_id, status, status_version,
               total_amount, currency, commission_amount,
               pickup_lat, pickup_lng, pickup_address,
               delivery_lat, delivery_lng, delivery_address,
               created_at
        FROM orders
        WHERE status IN ('created', 'confirmed') AND courier_id IS NULL
        ORDER BY created_at`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *PostgresStore) HasActiveByCourier(ctx context.Context, courierID types.ID) (bool, error) {
	row := s.db.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM orders
            WHERE courier_id = $1
              AND status IN ('assigned', 'picked_up')
        )`, string(courierID),
	)
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (s *PostgresStore) loadItems(ctx context.Context, id types.ID, currency string) ([]LineItem, error) {
	rows, err := s.db.Query(ctx, `
        SELECT product_id, quantity, unit_price, subtotal
        FROM order_items
        WHERE order_id = $1
        ORDER BY id`, string(id),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []LineItem
	for rows.Next() {
		var it LineItem
		if err := rows.Scan(&it.ProductID, &it.Quantity, &it.UnitPrice.Amount, &it.Subtotal.Amount); err != nil {
			return nil, err
		}
		it.UnitPrice.Currency = currency
		it.Subtotal.Currency = currency
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *PostgresStore) loadHistory(ctx context.Context, id types.ID) ([]StatusChange, error) {
	rows, err := s.db.Query(ctx, `
        SELECT from_status, to_status, actor_type, actor_id, created_at
        FROM order_status_events
        WHERE order_id = $1
        ORDER BY id`, string(id),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []StatusChange
	for rows.Next() {
		var c StatusChange
		var actorID sql.NullString
		if err := rows.Scan(&c.From, &c.To, &c.ActorType, &actorID, &c.At); err != nil {
			return nil, err
		}
		if actorID.Valid {
			a := types.ID(actorID.String)
			c.ActorID = &a
		}
		history = append(history, c)
	}
	return history, rows.Err()
}

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	var courierID sql.NullString
	var commission sql.NullInt64

	err := row.Scan(
		&o.ID, &o.BusinessID, &o.CustomerID, &courierID, &o.Status, &o.StatusVersion,
		&o.TotalAmount.Amount, &o.TotalAmount.Currency, &commission,
		&o.Pickup.Lat, &o.Pickup.Lng, &o.Pickup.Address,
		&o.Delivery.Lat, &o.Delivery.Lng, &o.Delivery.Address,
		&o.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if courierID.Valid {
		c := types.ID(courierID.String)
		o.CourierID = &c
	}
	if commission.Valid {
		o.CommissionAmount = &types.Money{Amount: commission.Int64, Currency: o.TotalAmount.Currency}
	}
	return &o, nil
}

func idPtr(v *types.ID) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}

func moneyPtr(v *types.Money) *int64 {
	if v == nil {
		return nil
	}
	n := v.Amount
	return &n
}
