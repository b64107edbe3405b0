// README: Matching service; ranks open orders for eligible couriers and fans out nearby alerts.
package matching

import (
	"context"
	"errors"
	"log/slog"

	"fleet/internal/config"
	"fleet/internal/modules/courier"
	"fleet/internal/modules/notify"
	"fleet/internal/modules/order"
	"fleet/internal/types"
)

// OrderSource is the slice of the order store matching reads from.
type OrderSource interface {
	ListOpen(ctx context.Context) ([]*order.Order, error)
	HasActiveByCourier(ctx context.Context, courierID types.ID) (bool, error)
}

type Service struct {
	orders   OrderSource
	registry *courier.Registry
	presence *courier.Presence
	emitter  notify.Emitter
	cfg      config.DispatchConfig
	log      *slog.Logger
}

func NewService(orders OrderSource, registry *courier.Registry, presence *courier.Presence, emitter notify.Emitter, cfg config.DispatchConfig, log *slog.Logger) *Service {
	return &Service{orders: orders, registry: registry, presence: presence, emitter: emitter, cfg: cfg, log: log}
}

// ListNearby returns the ranked candidate list for a polling courier.
// Ineligible couriers (offline, unapproved, already busy) and couriers
// without a known location get an empty list, not an error: visibility is a
// gate, not a failure.
func (s *Service) ListNearby(ctx context.Context, courierID types.ID) ([]CandidateMatch, error) {
	c, err := s.registry.Eligible(ctx, courierID)
	if err != nil {
		if errors.Is(err, courier.ErrNotEligible) {
			return nil, nil
		}
		return nil, err
	}
	if c.Location == nil {
		// No location ping yet; never guess a default coordinate.
		return nil, nil
	}
	busy, err := s.orders.HasActiveByCourier(ctx, courierID)
	if err != nil {
		return nil, err
	}
	if busy {
		return nil, nil
	}

	open, err := s.orders.ListOpen(ctx)
	if err != nil {
		return nil, err
	}
	matches := make([]CandidateMatch, 0, len(open))
	for _, o := range open {
		dist := haversineKm(*c.Location, o.Pickup.Point)
		if s.cfg.RadiusKm > 0 && dist > s.cfg.RadiusKm {
			continue
		}
		matches = append(matches, CandidateMatch{
			OrderID:          o.ID,
			CourierID:        courierID,
			DistanceKm:       dist,
			EstimatedMinutes: estimateMinutes(dist),
			CreatedAt:        o.CreatedAt,
		})
	}
	sortCandidates(matches)
	return matches, nil
}

// Announce tells online couriers near the pickup that new work appeared.
// Best-effort on top of polling: couriers still discover the order on their
// next poll if this never reaches them.
func (s *Service) Announce(ctx context.Context, o *order.Order) {
	if s.presence == nil || s.emitter == nil {
		return
	}
	ids, err := s.presence.Nearby(ctx, o.Pickup.Point, s.cfg.RadiusKm)
	if err != nil {
		s.log.Warn("nearby lookup failed", "order_id", o.ID, "err", err)
		return
	}
	for _, id := range ids {
		e := notify.NewEvent(notify.EventOrderNearby)
		e.OrderID = o.ID
		e.CourierID = id
		e.BusinessID = o.BusinessID
		s.emitter.Emit(ctx, e)
	}
}
