// Package customer holds the session-scoped, read-only view of the order
// collection: a customer sees their own orders and nothing else. The session
// filter is a visibility scope, not a security boundary.
package customer

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
	ErrInvalidRating       = errors.New("rating must be between 1 and 5")
	ErrFeedbackNotEligible = errors.New("feedback can only be left for a completed order of your own")
)

// View is the customer view controller for one session. It exposes no
// status mutation entry point; feedback submission is a plain insert that
// sits outside the status state machine.
type View struct {
	repo      order.Repository
	bus       *notify.Bus
	sessionID string

	mu     sync.Mutex
	orders []order.Order
}

func NewView(repo order.Repository, bus *notify.Bus, sessionID string) *View {
	return &View{
		repo:      repo,
		bus:       bus,
		sessionID: sessionID,
	}
}

func (v *View) SessionID() string {
	return v.sessionID
}

// Refresh re-fetches the session's orders and replaces the snapshot. On
// error the previous snapshot is kept.
func (v *View) Refresh(ctx context.Context) error {
	orders, err := v.repo.OrdersBySession(ctx, v.sessionID)
	if err != nil {
		log.Error().Err(err).Str("session_id", v.sessionID).Msg("customer: failed to refresh orders")
		return fmt.Errorf("customer: failed to refresh orders: %w", err)
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

// Run subscribes to the session-scoped change feed and silently re-fetches
// on every event until ctx is cancelled. Silent means no intermediate
// cleared state: the snapshot flips straight from old to new.
func (v *View) Run(ctx context.Context) {
	events, cancel := v.bus.Subscribe(notify.SessionScope(v.sessionID))
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-events:
			if !ok {
				return
			}
			if err := v.Refresh(ctx); err != nil {
				log.Warn().Err(err).Str("session_id", v.sessionID).Msg("customer: refresh after change event failed")
			}
		}
	}
}

// SubmitFeedback records a rating and comment for one of the session's own
// completed orders.
func (v *View) SubmitFeedback(ctx context.Context, orderID uuid.UUID, rating int, comment string) (*order.Feedback, error) {
	if rating < 1 || rating > 5 {
		return nil, ErrInvalidRating
	}

	o, err := v.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			return nil, order.ErrOrderNotFound
		}
		return nil, fmt.Errorf("customer: failed to load order for feedback: %w", err)
	}

	if o.SessionID != v.sessionID || o.Status != order.StatusCompleted {
		return nil, ErrFeedbackNotEligible
	}

	fb := &order.Feedback{
		OrderID:   orderID,
		SessionID: v.sessionID,
		Rating:    rating,
		Comment:   comment,
	}
	if err := v.repo.InsertFeedback(ctx, fb); err != nil {
		log.Error().Err(err).Stringer("order_id", orderID).Msg("customer: failed to insert feedback")
		return nil, fmt.Errorf("customer: failed to insert feedback: %w", err)
	}

	log.Info().Stringer("order_id", orderID).Int("rating", rating).Msg("customer: feedback submitted")

	return fb, nil
}
