// README: Order store contract; the order record is the engine's single contended resource.
package order

import (
	"context"
	"errors"

	"fleet/internal/types"
)

var ErrNotFound = errors.New("order not found")

type Store interface {
	Create(ctx context.Context, o *Order) error
	// Get returns the order with items and full status history.
	Get(ctx context.Context, id types.ID) (*Order, error)
	// UpdateStatus performs the atomic compare-and-set every transition goes
	// through: the row is updated only if status and status_version still
	// match the observed values. When courierID is non-nil the update
	// additionally requires the stored courier_id to be null, which is the
	// accept-race guard: exactly one concurrent caller can flip nil to a
	// courier. Returns false when the guard fails and nothing was changed.
	UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int, courierID *types.ID, commission *types.Money) (bool, error)
	// AppendChange adds an audit entry. Entries are append-only.
	AppendChange(ctx context.Context, id types.ID, change StatusChange) error
	// ListOpen returns unassigned orders (created or confirmed), oldest first.
	ListOpen(ctx context.Context) ([]*Order, error)
	// HasActiveByCourier reports whether the courier currently holds an
	// order in assigned or picked_up.
	HasActiveByCourier(ctx context.Context, courierID types.ID) (bool, error)
}
