// README: Postgres store tests; skipped unless FLEET_TEST_DSN points at a migrated database.
package order

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"fleet/internal/types"
)

func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("FLEET_TEST_DSN")
	if dsn == "" {
		t.Skip("FLEET_TEST_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

func seedOrder(t *testing.T, s *PostgresStore) *Order {
	t.Helper()
	o := &Order{
		ID:         types.ID(uuid.NewString()),
		BusinessID: "biz-it",
		CustomerID: "cust-it",
		Items: []LineItem{{
			ProductID: "prod-it",
			Quantity:  2,
			UnitPrice: types.Money{Amount: 1500, Currency: "USD"},
			Subtotal:  types.Money{Amount: 3000, Currency: "USD"},
		}},
		TotalAmount: types.Money{Amount: 3000, Currency: "USD"},
		Pickup:      types.Location{Point: types.Point{Lat: 41.0082, Lng: 28.9784}, Address: "Pickup"},
		Delivery:    types.Location{Point: types.Point{Lat: 41.02, Lng: 28.99}, Address: "Delivery"},
		Status:      StatusCreated,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.Create(context.Background(), o); err != nil {
		t.Fatalf("create: %v", err)
	}
	return o
}

func TestPostgresStoreRoundTrip(t *testing.T) {
	s := NewPostgresStore(testPool(t))
	ctx := context.Background()
	o := seedOrder(t, s)

	got, err := s.Get(ctx, o.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusCreated || got.TotalAmount.Amount != 3000 {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if len(got.Items) != 1 || got.Items[0].Subtotal.Amount != 3000 {
		t.Errorf("items mismatch: %+v", got.Items)
	}
	if got.CourierID != nil || got.CommissionAmount != nil {
		t.Errorf("new order must have nil courier and commission")
	}
}

func TestPostgresStoreCAS(t *testing.T) {
	s := NewPostgresStore(testPool(t))
	ctx := context.Background()
	o := seedOrder(t, s)
	courierID := types.ID(uuid.NewString())

	ok, err := s.UpdateStatus(ctx, o.ID, StatusCreated, StatusAssigned, 0, &courierID, nil)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !ok {
		t.Fatal("first CAS must win")
	}

	// Stale version loses.
	ok, err = s.UpdateStatus(ctx, o.ID, StatusCreated, StatusAssigned, 0, &courierID, nil)
	if err != nil {
		t.Fatalf("stale update: %v", err)
	}
	if ok {
		t.Fatal("stale CAS must lose")
	}

	// courier_id is write-once even with matching status and version.
	other := types.ID(uuid.NewString())
	ok, err = s.UpdateStatus(ctx, o.ID, StatusAssigned, StatusPickedUp, 1, &other, nil)
	if err != nil {
		t.Fatalf("overwrite attempt: %v", err)
	}
	if ok {
		t.Fatal("CAS with a second courier must lose")
	}

	got, err := s.Get(ctx, o.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusAssigned || got.StatusVersion != 1 {
		t.Errorf("state = %s v%d", got.Status, got.StatusVersion)
	}
	if got.CourierID == nil || *got.CourierID != courierID {
		t.Errorf("courier = %v, want %s", got.CourierID, courierID)
	}
}

func TestPostgresStoreOneActiveOrderPerCourier(t *testing.T) {
	s := NewPostgresStore(testPool(t))
	ctx := context.Background()
	first := seedOrder(t, s)
	second := seedOrder(t, s)
	courierID := types.ID(uuid.NewString())

	ok, err := s.UpdateStatus(ctx, first.ID, StatusCreated, StatusAssigned, 0, &courierID, nil)
	if err != nil || !ok {
		t.Fatalf("first assign: ok=%v err=%v", ok, err)
	}
	// The unique active-assignment index rejects a second order for the same
	// courier; the store reports it as a lost CAS, not an error.
	ok, err = s.UpdateStatus(ctx, second.ID, StatusCreated, StatusAssigned, 0, &courierID, nil)
	if err != nil {
		t.Fatalf("second assign: %v", err)
	}
	if ok {
		t.Fatal("courier assigned to two active orders")
	}

	got, err := s.Get(ctx, second.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusCreated || got.CourierID != nil {
		t.Errorf("second order mutated: %s %v", got.Status, got.CourierID)
	}
}

func TestPostgresStoreHistoryAndLookups(t *testing.T) {
	s := NewPostgresStore(testPool(t))
	ctx := context.Background()
	o := seedOrder(t, s)
	courierID := types.ID(uuid.NewString())

	if err := s.AppendChange(ctx, o.ID, StatusChange{
		From: StatusNone, To: StatusCreated, ActorType: "business", At: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.AppendChange(ctx, o.ID, StatusChange{
		From: StatusCreated, To: StatusAssigned, ActorType: "courier", ActorID: &courierID, At: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, err := s.Get(ctx, o.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.History) != 2 || got.History[1].ActorID == nil || *got.History[1].ActorID != courierID {
		t.Fatalf("history = %+v", got.History)
	}

	open, err := s.ListOpen(ctx)
	if err != nil {
		t.Fatalf("list open: %v", err)
	}
	found := false
	for _, candidate := range open {
		if candidate.ID == o.ID {
			found = true
		}
	}
	if !found {
		t.Error("created order missing from open list")
	}

	if ok, err := s.UpdateStatus(ctx, o.ID, StatusCreated, StatusAssigned, 0, &courierID, nil); err != nil || !ok {
		t.Fatalf("assign: ok=%v err=%v", ok, err)
	}
	busy, err := s.HasActiveByCourier(ctx, courierID)
	if err != nil {
		t.Fatalf("active lookup: %v", err)
	}
	if !busy {
		t.Error("assigned courier must count as busy")
	}
}
