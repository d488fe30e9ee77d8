package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name string
		from OrderStatus
		to   OrderStatus
		want bool
	}{
		{"pending to awaiting_payment", OrderStatusPending, OrderStatusAwaitingPayment, true},
		{"pending to cancelled", OrderStatusPending, OrderStatusCancelled, true},
		{"pending to completed", OrderStatusPending, OrderStatusCompleted, false},
		{"awaiting_payment to processing", OrderStatusAwaitingPayment, OrderStatusProcessing, true},
		{"awaiting_payment to failed", OrderStatusAwaitingPayment, OrderStatusFailed, true},
		{"processing to completed", OrderStatusProcessing, OrderStatusCompleted, true},
		{"processing to awaiting_payment", OrderStatusProcessing, OrderStatusAwaitingPayment, false},
		{"completed is terminal", OrderStatusCompleted, OrderStatusCancelled, false},
		{"cancelled is terminal", OrderStatusCancelled, OrderStatusPending, false},
		{"failed is terminal", OrderStatusFailed, OrderStatusAwaitingPayment, false},
		{"same status is a no-op", OrderStatusProcessing, OrderStatusProcessing, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestOrder_TransitionTo_IllegalKeepsState(t *testing.T) {
	order := Order{Status: OrderStatusCompleted, PaymentStatus: PaymentStatusPaid}

	err := order.TransitionTo(OrderStatusCancelled)

	var illegal *IllegalTransitionError
	require.ErrorAs(t, err, &illegal)
	assert.Equal(t, "order", illegal.Entity)
	// статус не изменился
	assert.Equal(t, OrderStatusCompleted, order.Status)
}

func TestOrder_TransitionPaymentTo(t *testing.T) {
	t.Run("failed to paid is allowed for retries", func(t *testing.T) {
		order := Order{PaymentStatus: PaymentStatusFailed}
		require.NoError(t, order.TransitionPaymentTo(PaymentStatusPaid))
		assert.Equal(t, PaymentStatusPaid, order.PaymentStatus)
	})

	t.Run("paid to partially refunded to refunded", func(t *testing.T) {
		order := Order{PaymentStatus: PaymentStatusPaid}
		require.NoError(t, order.TransitionPaymentTo(PaymentStatusPartiallyRefunded))
		require.NoError(t, order.TransitionPaymentTo(PaymentStatusRefunded))
	})

	t.Run("refunded is terminal", func(t *testing.T) {
		order := Order{PaymentStatus: PaymentStatusRefunded}
		err := order.TransitionPaymentTo(PaymentStatusPaid)

		var illegal *IllegalTransitionError
		require.ErrorAs(t, err, &illegal)
		assert.Equal(t, PaymentStatusRefunded, order.PaymentStatus)
	})

	t.Run("pending to refunded is not allowed", func(t *testing.T) {
		order := Order{PaymentStatus: PaymentStatusPending}
		err := order.TransitionPaymentTo(PaymentStatusRefunded)
		require.Error(t, err)
	})
}

func TestOrderStatus_Terminal(t *testing.T) {
	assert.True(t, OrderStatusCompleted.Terminal())
	assert.True(t, OrderStatusCancelled.Terminal())
	assert.True(t, OrderStatusFailed.Terminal())
	assert.False(t, OrderStatusPending.Terminal())
	assert.False(t, OrderStatusAwaitingPayment.Terminal())
	assert.False(t, OrderStatusProcessing.Terminal())
}

func TestOrder_ValidateTotals(t *testing.T) {
	order := Order{Subtotal: 10000, Tax: 2000, ShippingCost: 500, Discount: 1000, Total: 11500}
	require.NoError(t, order.ValidateTotals())

	order.Total = 11000
	require.ErrorIs(t, order.ValidateTotals(), ErrTotalsMismatch)

	// отрицательный итог недопустим даже при сходящейся арифметике
	order = Order{Subtotal: 100, Discount: 200, Total: -100}
	require.ErrorIs(t, order.ValidateTotals(), ErrTotalsMismatch)
}
