package orders

import (
	"testing"

	"fareast/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestPermissiveAllowsAnyKnownStatus(t *testing.T) {
	p := Permissive{}
	assert.NoError(t, p.Allow(models.OrderStatusCompleted, models.OrderStatusPending))
	assert.NoError(t, p.Allow(models.OrderStatusCancelled, models.OrderStatusReady))
	assert.ErrorIs(t, p.Allow(models.OrderStatusPending, "lost"), ErrInvalidStatus)
}

func TestStrictTransitions(t *testing.T) {
	tests := []struct {
		from, to models.OrderStatus
		allowed  bool
	}{
		{models.OrderStatusPending, models.OrderStatusConfirmed, true},
		{models.OrderStatusPending, models.OrderStatusReady, true},
		{models.OrderStatusPreparing, models.OrderStatusCompleted, true},
		{models.OrderStatusReady, models.OrderStatusPreparing, false},
		{models.OrderStatusConfirmed, models.OrderStatusCancelled, true},
		{models.OrderStatusReady, models.OrderStatusReady, true},
		{models.OrderStatusCompleted, models.OrderStatusCancelled, false},
		{models.OrderStatusCancelled, models.OrderStatusPending, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			err := Strict{}.Allow(tt.from, tt.to)
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrTransitionNotAllowed)
			}
		})
	}
}

func TestPolicyFor(t *testing.T) {
	assert.IsType(t, Strict{}, PolicyFor(true))
	assert.IsType(t, Permissive{}, PolicyFor(false))
}
