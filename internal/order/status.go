package order

import (
	"errors"
	"fmt"
)

// nextStatus encodes the single-step forward chain
// PLACED -> ACCEPTED -> PREPARING -> READY -> COMPLETED.
var nextStatus = map[Status]Status{
	StatusPlaced:    StatusAccepted,
	StatusAccepted:  StatusPreparing,
	StatusPreparing: StatusReady,
	StatusReady:     StatusCompleted,
}

var (
	ErrStatusAlreadySet = errors.New("order already has the requested status")
	ErrStatusTerminal   = errors.New("order is in terminal state COMPLETED")
)

// InvalidTransitionError reports a rejected status transition with both the
// current and the proposed value, so the operator can self-diagnose.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %s to %s", e.From, e.To)
}

// Next returns the immediate successor of s in the status chain.
// ok is false for COMPLETED and for unknown values.
func (s Status) Next() (Status, bool) {
	next, ok := nextStatus[s]
	return next, ok
}

// ValidateTransition decides whether an order may move from current to
// proposed. It is pure: no store access, no side effects.
func ValidateTransition(current, proposed Status) error {
	if !current.Valid() || !proposed.Valid() {
		return &InvalidTransitionError{From: current, To: proposed}
	}
	if current == proposed {
		return ErrStatusAlreadySet
	}
	if current == StatusCompleted {
		return ErrStatusTerminal
	}
	if next, ok := current.Next(); !ok || proposed != next {
		return &InvalidTransitionError{From: current, To: proposed}
	}
	return nil
}
