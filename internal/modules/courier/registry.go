// README: Availability registry; gates online state and order visibility on KYC approval.
package courier

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"fleet/internal/types"
)

var (
	// ErrKYCNotApproved means the courier tried to go online before passing KYC.
	ErrKYCNotApproved = errors.New("courier KYC not approved")
	// ErrNotEligible means the courier is offline, unapproved, or already busy.
	ErrNotEligible = errors.New("courier not eligible for orders")
	// ErrBadKYCDecision means the decision was neither approved nor rejected.
	ErrBadKYCDecision = errors.New("kyc decision must be approved or rejected")
)

type Registry struct {
	store    Store
	presence *Presence
	log      *slog.Logger
}

// NewRegistry wires the registry. presence may be nil when Redis is not
// configured; presence updates are then skipped.
func NewRegistry(store Store, presence *Presence, log *slog.Logger) *Registry {
	return &Registry{store: store, presence: presence, log: log}
}

type RegisterCommand struct {
	VehicleType string
}

// Register creates a courier in KYC-pending state. A pending courier exists
// but cannot go online until an admin approves.
func (r *Registry) Register(ctx context.Context, cmd RegisterCommand) (*Courier, error) {
	now := time.Now().UTC()
	c := &Courier{
		ID:          types.ID(uuid.NewString()),
		VehicleType: cmd.VehicleType,
		KYC:         KYCPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := r.store.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// SetOnline flips the courier's availability. Going online requires approved
// KYC; pending or rejected couriers get a descriptive error, not a no-op.
// Going offline never touches an in-progress order, it only stops future
// matching.
func (r *Registry) SetOnline(ctx context.Context, id types.ID, online bool) (*Courier, error) {
	c, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if online && c.KYC != KYCApproved {
		return nil, ErrKYCNotApproved
	}
	if err := r.store.SetOnline(ctx, id, online); err != nil {
		return nil, err
	}
	c.Online = online
	r.syncPresence(ctx, c)
	return c, nil
}

// DecideKYC records an admin approval or rejection. Rejection while online
// also forces the courier offline.
func (r *Registry) DecideKYC(ctx context.Context, id types.ID, status KYCStatus) (*Courier, error) {
	if status != KYCApproved && status != KYCRejected {
		return nil, ErrBadKYCDecision
	}
	c, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.store.SetKYC(ctx, id, status); err != nil {
		return nil, err
	}
	c.KYC = status
	if status == KYCRejected && c.Online {
		if err := r.store.SetOnline(ctx, id, false); err != nil {
			return nil, err
		}
		c.Online = false
		r.syncPresence(ctx, c)
	}
	return c, nil
}

// UpdateLocation records a location ping and refreshes presence for online
// couriers.
func (r *Registry) UpdateLocation(ctx context.Context, id types.ID, pos types.Point) error {
	c, err := r.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := r.store.SetLocation(ctx, id, pos); err != nil {
		return err
	}
	c.Location = &pos
	r.syncPresence(ctx, c)
	return nil
}

func (r *Registry) Get(ctx context.Context, id types.ID) (*Courier, error) {
	return r.store.Get(ctx, id)
}

// Eligible reports whether the courier may see and accept open orders:
// online and KYC-approved. The single-active-order check belongs to the
// order module, which owns that state.
func (r *Registry) Eligible(ctx context.Context, id types.ID) (*Courier, error) {
	c, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.Online || c.KYC != KYCApproved {
		return nil, ErrNotEligible
	}
	return c, nil
}

func (r *Registry) syncPresence(ctx context.Context, c *Courier) {
	if r.presence == nil {
		return
	}
	var err error
	if c.Online && c.Location != nil {
		err = r.presence.Track(ctx, c.ID, *c.Location)
	} else {
		err = r.presence.Drop(ctx, c.ID)
	}
	if err != nil {
		// Presence is a cache; matching falls back to store locations.
		r.log.Warn("presence sync failed", "courier_id", c.ID, "err", err)
	}
}
