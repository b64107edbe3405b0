// README: In-memory order store; mutex-guarded map keyed by id, single mutation path.
package order

import (
	"context"
	"sort"
	"sync"

	"fleet/internal/types"
)

// MemoryStore keeps every order in one map behind one mutex, so the
// compare-and-set in UpdateStatus is trivially atomic. Used by unit and race
// tests, and by local runs without Postgres.
type MemoryStore struct {
	mu     sync.Mutex
	orders map[types.ID]*Order
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{orders: make(map[types.ID]*Order)}
}

func (s *MemoryStore) Create(_ context.Context, o *Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = cloneOrder(o)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id types.ID) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneOrder(o), nil
}

func (s *MemoryStore) UpdateStatus(_ context.Context, id types.ID, from, to Status, version int, courierID *types.ID, commission *types.Money) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return false, ErrNotFound
	}
	if o.Status != from || o.StatusVersion != version {
		return false, nil
	}
	if courierID != nil {
		if o.CourierID != nil {
			// courier_id is write-once; losing racers fail here.
			return false, nil
		}
		// One active order per courier, checked under the same lock as the
		// assignment so concurrent accepts of different orders cannot both win.
		for _, other := range s.orders {
			if other.CourierID != nil && *other.CourierID == *courierID && IsActive(other.Status) {
				return false, nil
			}
		}
	}
	o.Status = to
	o.StatusVersion++
	if courierID != nil {
		c := *courierID
		o.CourierID = &c
	}
	if commission != nil && o.CommissionAmount == nil {
		m := *commission
		o.CommissionAmount = &m
	}
	return true, nil
}

func (s *MemoryStore) AppendChange(_ context.Context, id types.ID, change StatusChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return ErrNotFound
	}
	o.History = append(o.History, change)
	return nil
}

func (s *MemoryStore) ListOpen(_ context.Context) ([]*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Order
	for _, o := range s.orders {
		if IsOpen(o.Status) && o.CourierID == nil {
			out = append(out, cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) HasActiveByCourier(_ context.Context, courierID types.ID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.CourierID != nil && *o.CourierID == courierID && IsActive(o.Status) {
			return true, nil
		}
	}
	return false, nil
}

func cloneOrder(o *Order) *Order {
	cp := *o
	if o.CourierID != nil {
		c := *o.CourierID
		cp.CourierID = &c
	}
	if o.CommissionAmount != nil {
		m := *o.CommissionAmount
		cp.CommissionAmount = &m
	}
	cp.Items = append([]LineItem(nil), o.Items...)
	cp.History = append([]StatusChange(nil), o.History...)
	return &cp
}
