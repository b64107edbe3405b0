// README: Emitter contract plus in-memory implementation for tests and broker-less runs.
package notify

import (
	"context"
	"sync"
)

// Emitter fans lifecycle events out to interested parties. Emit never
// returns an error: a failed notification must not block or roll back the
// transition that produced it.
type Emitter interface {
	Emit(ctx context.Context, e Event)
}

// MemoryEmitter records events in order of emission. Used by tests and as
// the fallback when no Kafka brokers are configured.
type MemoryEmitter struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryEmitter() *MemoryEmitter {
	return &MemoryEmitter{}
}

func (m *MemoryEmitter) Emit(_ context.Context, e Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
}

func (m *MemoryEmitter) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}
