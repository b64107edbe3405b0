// README: Order aggregate, line items, and the status transition table.
package order

import (
	"time"

	"fleet/internal/types"
)

type Status string

const (
	StatusNone      Status = "none"
	StatusCreated   Status = "created"
	StatusConfirmed Status = "confirmed"
	StatusAssigned  Status = "assigned"
	StatusPickedUp  Status = "picked_up"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

type LineItem struct {
	ProductID types.ID
	Quantity  int
	UnitPrice types.Money
	Subtotal  types.Money
}

// StatusChange is one entry in the append-only audit trail. History is never
// edited after the fact; it backs dispute resolution and commission audits.
type StatusChange struct {
	From      Status
	To        Status
	ActorType string
	ActorID   *types.ID
	At        time.Time
}

type Order struct {
	ID         types.ID
	BusinessID types.ID
	CustomerID types.ID
	// CourierID stays nil until the accept race is won, then never changes.
	CourierID     *types.ID
	Items         []LineItem
	TotalAmount   types.Money
	Pickup        types.Location
	Delivery      types.Location
	Status        Status
	StatusVersion int
	// CommissionAmount is set exactly once, at the transition into delivered.
	CommissionAmount *types.Money
	CreatedAt        time.Time
	History          []StatusChange
}

// AllowedTransitions represents the order state flow as code. confirmed is
// an optional business acknowledgment; couriers accept from either created
// or confirmed. cancelled is reachable from every non-terminal state.
var AllowedTransitions = map[Status][]Status{
	StatusCreated:   {StatusConfirmed, StatusAssigned, StatusCancelled},
	StatusConfirmed: {StatusAssigned, StatusCancelled},
	StatusAssigned:  {StatusPickedUp, StatusCancelled},
	StatusPickedUp:  {StatusDelivered, StatusCancelled},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

func IsTerminal(s Status) bool {
	return s == StatusDelivered || s == StatusCancelled
}

// IsActive reports whether an order occupies its courier: a courier holds at
// most one order in an active status at a time.
func IsActive(s Status) bool {
	return s == StatusAssigned || s == StatusPickedUp
}

// IsOpen reports whether an order is still waiting for a courier.
func IsOpen(s Status) bool {
	return s == StatusCreated || s == StatusConfirmed
}
