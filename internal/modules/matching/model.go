// README: Transient candidate matches surfaced to polling couriers.
package matching

import (
	"time"

	"fleet/internal/types"
)

// CandidateMatch is never persisted; it exists only in a poll response and
// goes stale the instant the order is assigned.
type CandidateMatch struct {
	OrderID          types.ID
	CourierID        types.ID
	DistanceKm       float64
	EstimatedMinutes int
	CreatedAt        time.Time
}
