package cod

import (
	"testing"

	"github.com/fsdevblog/groph-pay/internal/domain"
	"github.com/fsdevblog/groph-pay/internal/gateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessPayment_Immediate(t *testing.T) {
	g := New()
	order := domain.Order{Number: "ord-1", Total: 2000, Currency: "USD"}

	instruction, err := g.ProcessPayment(t.Context(), &order, nil)
	require.NoError(t, err)

	assert.Empty(t, instruction.RedirectURL)
	assert.Equal(t, "cod-ord-1", instruction.GatewayTransactionID)

	require.NotNil(t, instruction.Immediate)
	assert.Equal(t, order.Number, instruction.Immediate.OrderNumber)
	assert.Equal(t, GatewayCode, instruction.Immediate.GatewayCode)
	assert.Equal(t, domain.TransactionStatusCompleted, instruction.Immediate.Status)
	assert.Equal(t, order.Total, instruction.Immediate.Amount)
}

func TestVerifyPayment_AlwaysPaid(t *testing.T) {
	g := New()
	result, err := g.VerifyPayment(t.Context(), &domain.Order{Number: "ord-1", Total: 2000}, "cod-ord-1")
	require.NoError(t, err)

	assert.True(t, result.Paid)
	assert.Equal(t, "cod-ord-1", result.GatewayTransactionID)
}

func TestUnsupportedOperations(t *testing.T) {
	g := New()

	_, refundErr := g.Refund(t.Context(), &domain.Order{}, "cod-ord-1", 100, "")
	require.ErrorIs(t, refundErr, domain.ErrUnsupportedOperation)

	_, callbackErr := g.HandleCallback(&gateway.CallbackRequest{})
	require.ErrorIs(t, callbackErr, domain.ErrUnsupportedOperation)
}

func TestConfigured(t *testing.T) {
	assert.True(t, New().Configured())
	assert.True(t, New().Supports(GatewayCode))
	assert.False(t, New().Supports("stripe"))
}
