// README: Concurrency tests for the accept race (run with -race).
package order

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"fleet/internal/types"
)

func TestConcurrentAcceptSameOrder(t *testing.T) {
	f := newFixture(t, 0.05)
	ctx := context.Background()
	orderID := f.createOrder(t, 5000)

	const attempts = 8
	couriers := make([]types.ID, attempts)
	for i := range couriers {
		couriers[i] = f.approvedCourier(t)
	}

	errs := make(chan error, attempts)
	start := make(chan struct{})
	var wg sync.WaitGroup

	for _, id := range couriers {
		wg.Add(1)
		go func(cid types.ID) {
			defer wg.Done()
			<-start
			_, err := f.svc.Accept(ctx, AcceptCommand{OrderID: orderID, CourierID: cid})
			errs <- err
		}(id)
	}

	close(start)
	wg.Wait()
	close(errs)

	success := 0
	for err := range errs {
		if err == nil {
			success++
			continue
		}
		if err != ErrAlreadyAssigned && err != ErrNotEligible {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if success != 1 {
		t.Fatalf("expected exactly 1 winner, got %d", success)
	}

	o, err := f.svc.Get(ctx, orderID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if o.Status != StatusAssigned {
		t.Fatalf("unexpected final status: %s", o.Status)
	}
	if o.CourierID == nil || *o.CourierID == "" {
		t.Fatalf("expected courier_id to be set")
	}
}

func TestCourierIDImmutableAfterAssignment(t *testing.T) {
	f := newFixture(t, 0.05)
	ctx := context.Background()
	orderID := f.createOrder(t, 5000)

	winner := f.approvedCourier(t)
	if _, err := f.svc.Accept(ctx, AcceptCommand{OrderID: orderID, CourierID: winner}); err != nil {
		t.Fatalf("accept: %v", err)
	}

	for i := 0; i < 3; i++ {
		challenger := f.approvedCourier(t)
		if _, err := f.svc.Accept(ctx, AcceptCommand{OrderID: orderID, CourierID: challenger}); err != ErrAlreadyAssigned {
			t.Fatalf("attempt %d: expected ErrAlreadyAssigned, got %v", i, err)
		}
	}

	o, err := f.svc.Get(ctx, orderID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if o.CourierID == nil || *o.CourierID != winner {
		t.Fatalf("courier_id changed after assignment: %v", o.CourierID)
	}
}

func TestConcurrentAcceptVsCancel(t *testing.T) {
	f := newFixture(t, 0.05)
	ctx := context.Background()
	orderID := f.createOrder(t, 5000)
	courierID := f.approvedCourier(t)

	var wg sync.WaitGroup
	errs := make(chan error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := f.svc.Accept(ctx, AcceptCommand{OrderID: orderID, CourierID: courierID})
		errs <- err
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := f.svc.Cancel(ctx, CancelCommand{OrderID: orderID, ActorType: "business", ActorID: "biz1", Reason: "changed mind"})
		errs <- err
	}()

	wg.Wait()
	close(errs)

	for err := range errs {
		if err == nil {
			continue
		}
		if err != ErrAlreadyAssigned && err != ErrInvalidTransition && err != ErrConflict {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	o, err := f.svc.Get(ctx, orderID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	// Either the accept won (assigned, possibly later cancelled) or the
	// cancel won (cancelled, accept rejected). Never both half-applied.
	if o.Status != StatusAssigned && o.Status != StatusCancelled {
		t.Fatalf("unexpected final status: %s", o.Status)
	}
	if o.Status == StatusCancelled && o.CourierID != nil {
		// Cancel won the race outright; no assignment may have leaked in.
		if len(o.History) > 0 {
			for _, h := range o.History {
				if h.To == StatusAssigned {
					return // accept won first, then business cancelled: legal
				}
			}
		}
		t.Fatalf("cancelled order has courier without an assignment record")
	}
}

func TestConcurrentAcceptDistinctOrders(t *testing.T) {
	f := newFixture(t, 0.05)
	ctx := context.Background()

	const n = 6
	orders := make([]types.ID, n)
	couriers := make([]types.ID, n)
	for i := 0; i < n; i++ {
		orders[i] = f.createOrder(t, int64(1000*(i+1)))
		couriers[i] = f.approvedCourier(t)
	}

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(oid, cid types.ID) {
			defer wg.Done()
			_, err := f.svc.Accept(ctx, AcceptCommand{OrderID: oid, CourierID: cid})
			errs <- err
		}(orders[i], couriers[i])
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("accept on distinct orders should not contend: %v", err)
		}
	}
	for i, oid := range orders {
		o, err := f.svc.Get(ctx, oid)
		if err != nil {
			t.Fatalf("get %d: %v", i, err)
		}
		if o.Status != StatusAssigned {
			t.Fatalf("order %d status = %s", i, o.Status)
		}
	}
}

func TestConcurrentAcceptDifferentOrdersSameCourier(t *testing.T) {
	f := newFixture(t, 0.05)
	ctx := context.Background()
	courierID := f.approvedCourier(t)

	const n = 6
	orders := make([]types.ID, n)
	for i := range orders {
		orders[i] = f.createOrder(t, int64(1000*(i+1)))
	}

	errs := make(chan error, n)
	start := make(chan struct{})
	var wg sync.WaitGroup

	for _, id := range orders {
		wg.Add(1)
		go func(oid types.ID) {
			defer wg.Done()
			<-start
			_, err := f.svc.Accept(ctx, AcceptCommand{OrderID: oid, CourierID: courierID})
			errs <- err
		}(id)
	}

	close(start)
	wg.Wait()
	close(errs)

	success := 0
	for err := range errs {
		if err == nil {
			success++
			continue
		}
		if err != ErrNotEligible && err != ErrAlreadyAssigned {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if success != 1 {
		t.Fatalf("one courier won %d orders, want exactly 1", success)
	}

	assigned := 0
	for _, oid := range orders {
		o, err := f.svc.Get(ctx, oid)
		if err != nil {
			t.Fatalf("get %s: %v", oid, err)
		}
		if o.CourierID != nil {
			if *o.CourierID != courierID {
				t.Fatalf("order %s assigned to unknown courier", oid)
			}
			assigned++
		}
	}
	if assigned != 1 {
		t.Fatalf("%d orders carry the courier, want exactly 1", assigned)
	}
}

func BenchmarkAcceptUncontended(b *testing.B) {
	f := newFixture(b, 0.05)
	ctx := context.Background()
	courierID := f.approvedCourier(b)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		o, err := f.svc.Create(ctx, CreateCommand{
			BusinessID: "biz1",
			CustomerID: "cust1",
			Items:      []ItemInput{{ProductID: types.ID(fmt.Sprintf("p%d", i)), Quantity: 1, UnitPrice: types.Money{Amount: 1000, Currency: "USD"}}},
		})
		if err != nil {
			b.Fatal(err)
		}
		if _, err := f.svc.Accept(ctx, AcceptCommand{OrderID: o.ID, CourierID: courierID}); err != nil {
			b.Fatal(err)
		}
		if _, err := f.svc.Cancel(ctx, CancelCommand{OrderID: o.ID, ActorType: "admin", ActorID: "adm"}); err != nil {
			b.Fatal(err)
		}
	}
}
