package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

var ErrNoItems = errors.New("order must contain at least one item")

// Service creates orders. Status changes after creation go through the
// kitchen view, never through here.
type Service interface {
	Checkout(ctx context.Context, sessionID string, items []Item) (*Order, error)
}

type service struct {
	orderRepo Repository
}

func NewService(orderRepo Repository) Service {
	return &service{
		orderRepo: orderRepo,
	}
}

// Checkout creates the order row and its line-item snapshots atomically.
// The total is computed here, once, and never recomputed afterwards.
func (s *service) Checkout(ctx context.Context, sessionID string, items []Item) (*Order, error) {
	if sessionID == "" {
		return nil, errors.New("service: session id is required")
	}

	if len(items) == 0 {
		log.Warn().Str("session_id", sessionID).Msg("service: attempt to create order with no items")
		return nil, ErrNoItems
	}

	var totalCents int64
	for i := range items {
		item := &items[i]

		if item.Name == "" {
			return nil, errors.New("service: order item name is required")
		}
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("service: order item quantity for %q must be greater than zero", item.Name)
		}
		if item.PriceCents < 0 {
			return nil, fmt.Errorf("service: order item price for %q cannot be negative", item.Name)
		}

		totalCents += int64(item.Quantity) * item.PriceCents
	}

	newOrder := &Order{
		SessionID:  sessionID,
		Status:     StatusPlaced,
		Items:      items,
		TotalCents: totalCents,
	}

	_, err := s.orderRepo.CreateOrder(ctx, newOrder)
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("service: failed to create order in repository")
		return nil, fmt.Errorf("service: failed to create order: %w", err)
	}

	log.Info().
		Stringer("order_id", newOrder.ID).
		Int64("display_number", newOrder.DisplayNumber).
		Str("session_id", sessionID).
		Int64("total_cents", totalCents).
		Msg("service: order created")

	return newOrder, nil
}
