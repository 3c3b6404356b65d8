// Package kitchen holds the staff-facing view of the order collection: every
// order not yet COMPLETED, across all customer sessions, plus the only write
// path for status transitions.
package kitchen

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/cafe-order-service/internal/notify"
	"github.com/vasiliy-maslov/cafe-order-service/internal/order"
)

var (
	// ErrUpdateInFlight means a status update for the same order is still
	// waiting on the store. Updates for different orders do not block each
	// other; re-issuing one for the same order is refused.
	ErrUpdateInFlight = errors.New("status update already in flight for this order")

	ErrRejectNotConfirmed = errors.New("reject requires explicit confirmation")
)

// View is the kitchen view controller. It keeps an in-memory snapshot of all
// active orders, refreshed on every change notification, and mediates status
// changes through the transition validator.
type View struct {
	repo order.Repository
	bus  *notify.Bus

	mu       sync.Mutex
	orders   []order.Order
	inflight map[uuid.UUID]bool
}

func NewView(repo order.Repository, bus *notify.Bus) *View {
	return &View{
		repo:     repo,
		bus:      bus,
		inflight: make(map[uuid.UUID]bool),
	}
}

// Refresh re-fetches all active orders and replaces the snapshot. On error
// the previous snapshot is kept (last good state) and the caller decides
// whether to retry; there is no automatic backoff.
func (v *View) Refresh(ctx context.Context) error {
	orders, err := v.repo.ActiveOrders(ctx)
	if err != nil {
		log.Error().Err(err).Msg("kitchen: failed to refresh active orders")
		return fmt.Errorf("kitchen: failed to refresh active orders: %w", err)
	}

	v.mu.Lock()
	v.orders = orders
	v.mu.Unlock()

	return nil
}

// Orders returns a copy of the current snapshot, newest first.
func (v *View) Orders() []order.Order {
	v.mu.Lock()
	defer v.mu.Unlock()

	out := make([]order.Order, len(v.orders))
	copy(out, v.orders)
	return out
}

// Run subscribes to the unfiltered change feed and re-fetches on every
// event until ctx is cancelled. Fetches are idempotent reads, so redundant
// triggers from bursts of writes are harmless.
func (v *View) Run(ctx context.Context) {
	events, cancel := v.bus.Subscribe(notify.AllOrders())
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := v.Refresh(ctx); err != nil {
				// Keep the last good snapshot; the next event retriggers.
				log.Warn().Err(err).Str("order_id", ev.OrderID).Msg("kitchen: refresh after change event failed")
			}
		}
	}
}

// UpdateStatus moves one order to the proposed status. The transition is
// validated against the snapshot before any store call; a confirmed write
// is applied to the snapshot immediately rather than waiting for the next
// notification round-trip.
func (v *View) UpdateStatus(ctx context.Context, orderID uuid.UUID, proposed order.Status) (*order.Order, error) {
	v.mu.Lock()
	current, found := v.lookupLocked(orderID)
	if !found {
		v.mu.Unlock()
		return nil, order.ErrOrderNotFound
	}
	if v.inflight[orderID] {
		v.mu.Unlock()
		return nil, ErrUpdateInFlight
	}
	if err := order.ValidateTransition(current.Status, proposed); err != nil {
		v.mu.Unlock()
		log.Warn().
			Stringer("order_id", orderID).
			Str("current_status", string(current.Status)).
			Str("new_status", string(proposed)).
			Msg("kitchen: rejected status transition")
		return nil, err
	}
	v.inflight[orderID] = true
	v.mu.Unlock()

	return v.write(ctx, orderID, proposed)
}

// Reject is the administrative override: it forces the order straight to
// COMPLETED, bypassing step validation. confirmed must come from an
// explicit operator confirmation.
func (v *View) Reject(ctx context.Context, orderID uuid.UUID, confirmed bool) (*order.Order, error) {
	if !confirmed {
		return nil, ErrRejectNotConfirmed
	}

	v.mu.Lock()
	current, found := v.lookupLocked(orderID)
	if !found {
		v.mu.Unlock()
		return nil, order.ErrOrderNotFound
	}
	if v.inflight[orderID] {
		v.mu.Unlock()
		return nil, ErrUpdateInFlight
	}
	currentStatus := current.Status
	v.inflight[orderID] = true
	v.mu.Unlock()

	log.Info().
		Stringer("order_id", orderID).
		Str("current_status", string(currentStatus)).
		Msg("kitchen: rejecting order")

	return v.write(ctx, orderID, order.StatusCompleted)
}

func (v *View) write(ctx context.Context, orderID uuid.UUID, newStatus order.Status) (*order.Order, error) {
	updated, err := v.repo.UpdateStatus(ctx, orderID, newStatus)

	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.inflight, orderID)

	if err != nil {
		// No partial state: the snapshot only changes on confirmed success.
		if errors.Is(err, order.ErrWriteDropped) {
			log.Warn().Stringer("order_id", orderID).Str("new_status", string(newStatus)).Msg("kitchen: status write silently dropped by store")
			return nil, err
		}
		log.Error().Err(err).Stringer("order_id", orderID).Str("new_status", string(newStatus)).Msg("kitchen: failed to update order status")
		return nil, err
	}

	v.applyLocked(updated)

	log.Info().
		Stringer("order_id", orderID).
		Str("new_status", string(updated.Status)).
		Msg("kitchen: order status updated")

	return updated, nil
}

func (v *View) lookupLocked(orderID uuid.UUID) (*order.Order, bool) {
	for i := range v.orders {
		if v.orders[i].ID == orderID {
			return &v.orders[i], true
		}
	}
	return nil, false
}

// applyLocked performs the optimistic local update: a COMPLETED order leaves
// the kitchen snapshot, anything else replaces its entry in place.
func (v *View) applyLocked(updated *order.Order) {
	for i := range v.orders {
		if v.orders[i].ID != updated.ID {
			continue
		}
		if updated.Status == order.StatusCompleted {
			v.orders = append(v.orders[:i], v.orders[i+1:]...)
		} else {
			v.orders[i] = *updated
		}
		return
	}
}
