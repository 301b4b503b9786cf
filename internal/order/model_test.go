package order_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vasiliy-maslov/telegram-storefront/internal/order"
)

func TestStatus_Valid(t *testing.T) {
	valid := []order.Status{
		order.StatusPending, order.StatusPaid, order.StatusProcessing,
		order.StatusShipped, order.StatusPickupReady, order.StatusCompleted,
		order.StatusCancelled, order.StatusRefunded, order.StatusFailed,
	}
	for _, s := range valid {
		assert.True(t, s.Valid(), s)
		assert.NotEmpty(t, s.MessageKey(), s)
	}

	assert.False(t, order.Status("DELIVERED").Valid())
	assert.False(t, order.Status("").Valid())
}

func TestGuidedNext(t *testing.T) {
	tests := []struct {
		from     order.Status
		wantNext order.Status
		wantOK   bool
	}{
		{order.StatusPending, order.StatusProcessing, true},
		{order.StatusProcessing, order.StatusShipped, true},
		{order.StatusShipped, order.StatusCompleted, true},
		{order.StatusCompleted, "", false},
		{order.StatusCancelled, "", false},
		{order.StatusPaid, "", false},
		{order.StatusPickupReady, "", false},
	}

	for _, tt := range tests {
		next, ok := order.GuidedNext(tt.from)
		assert.Equal(t, tt.wantOK, ok, tt.from)
		if tt.wantOK {
			assert.Equal(t, tt.wantNext, next, tt.from)
		}
	}
}

func TestPlacementError_Messages(t *testing.T) {
	notFound := &order.PlacementError{Reason: order.ReasonProductNotFound, ProductID: 7}
	assert.Contains(t, notFound.Error(), "product 7 not found")
	assert.False(t, notFound.Retryable())

	shortfall := &order.PlacementError{
		Reason:    order.ReasonInsufficientStock,
		ProductID: 7,
		Requested: 3,
		Available: 2,
	}
	assert.Contains(t, shortfall.Error(), "has 2 in stock, 3 requested")
	assert.False(t, shortfall.Retryable())

	contention := &order.PlacementError{Reason: order.ReasonLockContention}
	assert.True(t, contention.Retryable())
}
