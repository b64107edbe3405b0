// README: Dispatch state machine; owns transitions, the accept race, and the delivery settlement.
package order

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"fleet/internal/modules/courier"
	"fleet/internal/modules/notify"
	"fleet/internal/modules/payout"
	"fleet/internal/types"
)

var (
	ErrBadRequest = errors.New("bad request")
	// ErrNotEligible covers couriers that are offline, unapproved, or
	// already holding an active order. Recoverable: go online, wait for
	// approval, or finish the current order.
	ErrNotEligible = errors.New("courier not eligible")
	// ErrAlreadyAssigned is what every loser of the accept race sees.
	// Recoverable: re-poll for other open orders.
	ErrAlreadyAssigned = errors.New("order already assigned")
	// ErrInvalidTransition marks a transition outside the table. Client
	// error; state is left untouched.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrNotAssignedActor means someone other than the assigned courier
	// tried to advance the order.
	ErrNotAssignedActor = errors.New("actor is not the assigned courier")
	// ErrActorNotAllowed means the actor's role cannot perform the call.
	ErrActorNotAllowed = errors.New("actor not allowed")
	// ErrConflict is a lost optimistic-concurrency update outside the
	// accept path.
	ErrConflict = errors.New("order state conflict")
)

// Availability is what the state machine needs from the courier registry.
type Availability interface {
	Eligible(ctx context.Context, courierID types.ID) (*courier.Courier, error)
}

type Service struct {
	store   Store
	avail   Availability
	ledger  payout.Ledger
	emitter notify.Emitter
	// rate is the platform commission rate for orders delivered under this
	// deployment. Changing it never recomputes already-settled orders.
	rate float64
	log  *slog.Logger
}

func NewService(store Store, avail Availability, ledger payout.Ledger, emitter notify.Emitter, rate float64, log *slog.Logger) *Service {
	return &Service{store: store, avail: avail, ledger: ledger, emitter: emitter, rate: rate, log: log}
}

type ItemInput struct {
	ProductID types.ID
	Quantity  int
	UnitPrice types.Money
}

type CreateCommand struct {
	BusinessID types.ID
	CustomerID types.ID
	Items      []ItemInput
	Pickup     types.Location
	Delivery   types.Location
}

type AcceptCommand struct {
	OrderID   types.ID
	CourierID types.ID
}

type AdvanceCommand struct {
	OrderID types.ID
	ActorID types.ID
	Target  Status
}

type CancelCommand struct {
	OrderID   types.ID
	ActorType string
	ActorID   types.ID
	Reason    string
}

// Create persists a new order in created state. total_amount is derived
// from the line items, never accepted from the caller.
func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Order, error) {
	if cmd.BusinessID == "" || cmd.CustomerID == "" || len(cmd.Items) == 0 {
		return nil, ErrBadRequest
	}
	var total types.Money
	items := make([]LineItem, 0, len(cmd.Items))
	for _, in := range cmd.Items {
		if in.ProductID == "" || in.Quantity <= 0 || in.UnitPrice.Amount < 0 {
			return nil, ErrBadRequest
		}
		if total.Currency == "" {
			total.Currency = in.UnitPrice.Currency
		} else if in.UnitPrice.Currency != total.Currency {
			return nil, ErrBadRequest
		}
		sub := types.Money{Amount: in.UnitPrice.Amount * int64(in.Quantity), Currency: in.UnitPrice.Currency}
		total.Amount += sub.Amount
		items = append(items, LineItem{
			ProductID: in.ProductID,
			Quantity:  in.Quantity,
			UnitPrice: in.UnitPrice,
			Subtotal:  sub,
		})
	}

	now := time.Now().UTC()
	o := &Order{
		ID:          types.ID(uuid.NewString()),
		BusinessID:  cmd.BusinessID,
		CustomerID:  cmd.CustomerID,
		Items:       items,
		TotalAmount: total,
		Pickup:      cmd.Pickup,
		Delivery:    cmd.Delivery,
		Status:      StatusCreated,
		CreatedAt:   now,
	}
	if err := s.store.Create(ctx, o); err != nil {
		return nil, err
	}
	s.appendChange(ctx, o.ID, StatusChange{
		From: StatusNone, To: StatusCreated,
		ActorType: "business", ActorID: &cmd.BusinessID, At: now,
	})
	s.emit(ctx, notify.EventOrderCreated, o, "")
	return s.store.Get(ctx, o.ID)
}

// Confirm records the optional business acknowledgment.
func (s *Service) Confirm(ctx context.Context, orderID, businessID types.ID) (*Order, error) {
	o, err := s.store.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.BusinessID != businessID {
		return nil, ErrActorNotAllowed
	}
	if !CanTransition(o.Status, StatusConfirmed) {
		return nil, ErrInvalidTransition
	}
	ok, err := s.store.UpdateStatus(ctx, o.ID, o.Status, StatusConfirmed, o.StatusVersion, nil, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}
	s.appendChange(ctx, o.ID, StatusChange{
		From: o.Status, To: StatusConfirmed,
		ActorType: "business", ActorID: &businessID, At: time.Now().UTC(),
	})
	s.emit(ctx, notify.EventOrderConfirmed, o, "")
	return s.store.Get(ctx, o.ID)
}

// Accept resolves the dispatch race. Eligibility is checked first, then the
// assignment is a single compare-and-set of courier_id nil → courier guarded
// by the observed status and version. Exactly one concurrent caller wins;
// the rest get ErrAlreadyAssigned and should re-poll for other work.
func (s *Service) Accept(ctx context.Context, cmd AcceptCommand) (*Order, error) {
	if _, err := s.avail.Eligible(ctx, cmd.CourierID); err != nil {
		if errors.Is(err, courier.ErrNotFound) {
			return nil, err
		}
		return nil, ErrNotEligible
	}
	busy, err := s.store.HasActiveByCourier(ctx, cmd.CourierID)
	if err != nil {
		return nil, err
	}
	if busy {
		// One active order per courier; finish or get cancelled first.
		return nil, ErrNotEligible
	}

	o, err := s.store.Get(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	if o.CourierID != nil {
		return nil, ErrAlreadyAssigned
	}
	if !CanTransition(o.Status, StatusAssigned) {
		return nil, ErrInvalidTransition
	}
	ok, err := s.store.UpdateStatus(ctx, o.ID, o.Status, StatusAssigned, o.StatusVersion, &cmd.CourierID, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost the race. Distinguish the three causes so in-flight accepts
		// never look successful: cancelled under us, taken by someone else,
		// or this courier won another order in the meantime.
		cur, gerr := s.store.Get(ctx, o.ID)
		if gerr == nil {
			if cur.Status == StatusCancelled {
				return nil, ErrInvalidTransition
			}
			if cur.CourierID == nil {
				return nil, ErrNotEligible
			}
		}
		return nil, ErrAlreadyAssigned
	}
	s.appendChange(ctx, o.ID, StatusChange{
		From: o.Status, To: StatusAssigned,
		ActorType: "courier", ActorID: &cmd.CourierID, At: time.Now().UTC(),
	})
	updated, err := s.store.Get(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, notify.EventOrderAssigned, updated, "")
	return updated, nil
}

// Advance moves an assigned order forward. Only the assigned courier may
// advance, only along the transition table, and the delivered transition
// settles commission and credits the courier before it is reported complete.
func (s *Service) Advance(ctx context.Context, cmd AdvanceCommand) (*Order, error) {
	if cmd.Target != StatusPickedUp && cmd.Target != StatusDelivered {
		return nil, ErrInvalidTransition
	}
	o, err := s.store.Get(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	if o.CourierID == nil || *o.CourierID != cmd.ActorID {
		return nil, ErrNotAssignedActor
	}
	if !CanTransition(o.Status, cmd.Target) {
		return nil, ErrInvalidTransition
	}

	var commission *types.Money
	var courierPayout types.Money
	if cmd.Target == StatusDelivered {
		c, p := payout.Split(o.TotalAmount, s.rate)
		commission = &c
		courierPayout = p
	}

	ok, err := s.store.UpdateStatus(ctx, o.ID, o.Status, cmd.Target, o.StatusVersion, nil, commission)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}
	s.appendChange(ctx, o.ID, StatusChange{
		From: o.Status, To: cmd.Target,
		ActorType: "courier", ActorID: &cmd.ActorID, At: time.Now().UTC(),
	})

	if cmd.Target == StatusDelivered {
		s.credit(ctx, o, cmd.ActorID, courierPayout)
		s.emit(ctx, notify.EventOrderDelivered, o, "")
	} else {
		s.emit(ctx, notify.EventOrderPickedUp, o, "")
	}
	return s.store.Get(ctx, o.ID)
}

// Cancel terminates a non-terminal order. Business (own orders) and admin
// only. The courier id is retained for audit, but the courier stops counting
// as busy the moment the status flips.
func (s *Service) Cancel(ctx context.Context, cmd CancelCommand) (*Order, error) {
	switch cmd.ActorType {
	case "admin", "system":
	case "business":
	default:
		return nil, ErrActorNotAllowed
	}
	o, err := s.store.Get(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	if cmd.ActorType == "business" && o.BusinessID != cmd.ActorID {
		return nil, ErrActorNotAllowed
	}
	if !CanTransition(o.Status, StatusCancelled) {
		return nil, ErrInvalidTransition
	}
	ok, err := s.store.UpdateStatus(ctx, o.ID, o.Status, StatusCancelled, o.StatusVersion, nil, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}
	actorID := cmd.ActorID
	change := StatusChange{
		From: o.Status, To: StatusCancelled,
		ActorType: cmd.ActorType, At: time.Now().UTC(),
	}
	if actorID != "" {
		change.ActorID = &actorID
	}
	s.appendChange(ctx, o.ID, change)
	s.emit(ctx, notify.EventOrderCancelled, o, cmd.Reason)
	return s.store.Get(ctx, o.ID)
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Order, error) {
	return s.store.Get(ctx, id)
}

// ExpireStale cancels created orders that no courier picked up within ttl,
// so they stop lingering in candidate lists. Returns how many were expired.
func (s *Service) ExpireStale(ctx context.Context, ttl time.Duration) (int, error) {
	open, err := s.store.ListOpen(ctx)
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().UTC().Add(-ttl)
	expired := 0
	for _, o := range open {
		if !o.CreatedAt.Before(cutoff) {
			continue
		}
		if _, err := s.Cancel(ctx, CancelCommand{
			OrderID:   o.ID,
			ActorType: "system",
			Reason:    "expired",
		}); err != nil {
			// Raced with an accept or another cancel; fine either way.
			if errors.Is(err, ErrConflict) || errors.Is(err, ErrInvalidTransition) {
				continue
			}
			return expired, err
		}
		expired++
	}
	return expired, nil
}

// RunExpiryMonitor runs ExpireStale on a ticker until ctx is done.
func (s *Service) RunExpiryMonitor(ctx context.Context, tick, ttl time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.ExpireStale(ctx, ttl)
			if err != nil {
				s.log.Warn("expiry sweep failed", "err", err)
			} else if n > 0 {
				s.log.Info("expired stale orders", "count", n)
			}
		}
	}
}

// credit applies the courier payout once. The CAS on the delivered
// transition means a retried delivery can never reach this twice for the
// same order, so a double credit here is an internal invariant violation:
// it is logged loudly and never surfaced to the caller.
func (s *Service) credit(ctx context.Context, o *Order, courierID types.ID, amount types.Money) {
	err := s.ledger.Credit(ctx, courierID, o.ID, amount)
	if err == nil {
		return
	}
	if errors.Is(err, payout.ErrDoubleCredit) {
		s.log.Error("ledger double credit blocked; investigate", "order_id", o.ID, "courier_id", courierID)
		return
	}
	s.log.Error("ledger credit failed", "order_id", o.ID, "courier_id", courierID, "err", err)
}

func (s *Service) appendChange(ctx context.Context, id types.ID, change StatusChange) {
	if err := s.store.AppendChange(ctx, id, change); err != nil {
		s.log.Error("append status change failed", "order_id", id, "err", err)
	}
}

func (s *Service) emit(ctx context.Context, t notify.EventType, o *Order, detail string) {
	if s.emitter == nil {
		return
	}
	e := notify.NewEvent(t)
	e.OrderID = o.ID
	e.BusinessID = o.BusinessID
	e.CustomerID = o.CustomerID
	if o.CourierID != nil {
		e.CourierID = *o.CourierID
	}
	e.Detail = detail
	s.emitter.Emit(ctx, e)
}
