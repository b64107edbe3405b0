// README: Courier store contract plus in-memory implementation.
package courier

import (
	"context"
	"errors"
	"sync"
	"time"

	"fleet/internal/types"
)

var ErrNotFound = errors.New("courier not found")

type Store interface {
	Create(ctx context.Context, c *Courier) error
	Get(ctx context.Context, id types.ID) (*Courier, error)
	SetOnline(ctx context.Context, id types.ID, online bool) error
	SetKYC(ctx context.Context, id types.ID, status KYCStatus) error
	SetLocation(ctx context.Context, id types.ID, p types.Point) error
}

type MemoryStore struct {
	mu       sync.RWMutex
	couriers map[types.ID]*Courier
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{couriers: make(map[types.ID]*Courier)}
}

func (s *MemoryStore) Create(_ context.Context, c *Courier) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.couriers[c.ID] = &cp
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id types.ID) (*Courier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.couriers[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	if c.Location != nil {
		p := *c.Location
		cp.Location = &p
	}
	return &cp, nil
}

func (s *MemoryStore) SetOnline(_ context.Context, id types.ID, online bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.couriers[id]
	if !ok {
		return ErrNotFound
	}
	c.Online = online
	c.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) SetKYC(_ context.Context, id types.ID, status KYCStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.couriers[id]
	if !ok {
		return ErrNotFound
	}
	c.KYC = status
	c.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) SetLocation(_ context.Context, id types.ID, p types.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.couriers[id]
	if !ok {
		return ErrNotFound
	}
	c.Location = &p
	c.UpdatedAt = time.Now().UTC()
	return nil
}
