// README: Lifecycle event envelope published to business/customer/courier/admin channels.
package notify

import (
	"time"

	"github.com/google/uuid"

	"fleet/internal/types"
)

type EventType string

const (
	EventOrderCreated   EventType = "order_created"
	EventOrderConfirmed EventType = "order_confirmed"
	EventOrderAssigned  EventType = "order_assigned"
	EventOrderPickedUp  EventType = "order_picked_up"
	EventOrderDelivered EventType = "order_delivered"
	EventOrderCancelled EventType = "order_cancelled"
	EventOrderExpired   EventType = "order_expired"
	EventOrderNearby    EventType = "order_nearby"
	EventKYCDecision    EventType = "kyc_decision"
)

// Event is the wire envelope. Notification is a side effect of a state
// transition, never part of it; consumers must tolerate loss and duplication.
type Event struct {
	EventID    string    `json:"event_id"`
	Type       EventType `json:"event_type"`
	OccurredAt time.Time `json:"occurred_at"`
	OrderID    types.ID  `json:"order_id,omitempty"`
	CourierID  types.ID  `json:"courier_id,omitempty"`
	BusinessID types.ID  `json:"business_id,omitempty"`
	CustomerID types.ID  `json:"customer_id,omitempty"`
	Detail     string    `json:"detail,omitempty"`
}

func NewEvent(t EventType) Event {
	return Event{
		EventID:    uuid.NewString(),
		Type:       t,
		OccurredAt: time.Now().UTC(),
	}
}
