package orders

import (
	"fmt"

	"fareast/internal/models"
)

// StatusPolicy decides whether an order may move from one status to another
type StatusPolicy interface {
	Allow(from, to models.OrderStatus) error
}

// Permissive lets operators set any known status from any status
type Permissive struct{}

func (Permissive) Allow(from, to models.OrderStatus) error {
	if !to.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, to)
	}
	return nil
}

// forward chain; cancelled is handled separately
var statusRank = map[models.OrderStatus]int{
	models.OrderStatusPending:   0,
	models.OrderStatusConfirmed: 1,
	models.OrderStatusPreparing: 2,
	models.OrderStatusReady:     3,
	models.OrderStatusCompleted: 4,
}

// Strict only allows moving forward along
// pending → confirmed → preparing → ready → completed, skipping steps if
// needed, and cancelling any order that has not finished. Setting the
// current status again is a no-op and allowed.
type Strict struct{}

func (Strict) Allow(from, to models.OrderStatus) error {
	if !to.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, to)
	}
	if from == to {
		return nil
	}
	if from.Terminal() {
		return fmt.Errorf("%w: order is already %s", ErrTransitionNotAllowed, from)
	}
	if to == models.OrderStatusCancelled {
		return nil
	}
	if statusRank[to] <= statusRank[from] {
		return fmt.Errorf("%w: %s to %s", ErrTransitionNotAllowed, from, to)
	}
	return nil
}

// PolicyFor returns Strict when strict is set and Permissive otherwise
func PolicyFor(strict bool) StatusPolicy {
	if strict {
		return Strict{}
	}
	return Permissive{}
}
