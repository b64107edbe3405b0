// README: Event envelope and in-memory emitter tests.
package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestNewEvent(t *testing.T) {
	before := time.Now().UTC()
	e := NewEvent(EventOrderCreated)
	after := time.Now().UTC()

	if e.EventID == "" {
		t.Error("expected generated event id")
	}
	if e.Type != EventOrderCreated {
		t.Errorf("type = %s", e.Type)
	}
	if e.OccurredAt.Before(before) || e.OccurredAt.After(after) {
		t.Errorf("occurred_at %v outside [%v, %v]", e.OccurredAt, before, after)
	}
	if NewEvent(EventOrderCreated).EventID == e.EventID {
		t.Error("event ids must be unique")
	}
}

func TestEventJSONOmitsEmptyAudiences(t *testing.T) {
	e := NewEvent(EventOrderAssigned)
	e.OrderID = "o1"
	e.CourierID = "c1"

	raw, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m["event_type"] != "order_assigned" || m["order_id"] != "o1" || m["courier_id"] != "c1" {
		t.Errorf("unexpected payload: %s", raw)
	}
	for _, absent := range []string{"business_id", "customer_id", "detail"} {
		if _, ok := m[absent]; ok {
			t.Errorf("empty field %s should be omitted", absent)
		}
	}
}

func TestMemoryEmitterPreservesOrder(t *testing.T) {
	m := NewMemoryEmitter()
	ctx := context.Background()

	kinds := []EventType{EventOrderCreated, EventOrderAssigned, EventOrderPickedUp, EventOrderDelivered}
	for _, tt := range kinds {
		m.Emit(ctx, NewEvent(tt))
	}

	got := m.Events()
	if len(got) != len(kinds) {
		t.Fatalf("got %d events, want %d", len(got), len(kinds))
	}
	for i, tt := range kinds {
		if got[i].Type != tt {
			t.Errorf("position %d: got %s, want %s", i, got[i].Type, tt)
		}
	}

	// Events returns a snapshot, not the live slice.
	got[0].Type = EventOrderCancelled
	if m.Events()[0].Type != EventOrderCreated {
		t.Error("Events must return a copy")
	}
}
