// Package cod реализует шлюз наложенного платежа: внешнего провайдера нет,
// платеж фиксируется сразу при инициации.
package cod

import (
	"context"

	"github.com/fsdevblog/groph-pay/internal/domain"
	"github.com/fsdevblog/groph-pay/internal/gateway"
	"github.com/pkg/errors"
)

const GatewayCode = "cod"

type Gateway struct{}

func New() *Gateway { return &Gateway{} }

func (g *Gateway) Code() string { return GatewayCode }

func (g *Gateway) Supports(methodCode string) bool { return methodCode == GatewayCode }

func (g *Gateway) Configured() bool { return true }

// ProcessPayment не ходит наружу: заказ считается оплаченным немедленно,
// идентификатор транзакции синтетический.
func (g *Gateway) ProcessPayment(
	_ context.Context,
	order *domain.Order,
	_ map[string]string,
) (*gateway.PaymentInstruction, error) {
	txID := "cod-" + order.Number
	return &gateway.PaymentInstruction{
		GatewayTransactionID: txID,
		Immediate: &gateway.CallbackResult{
			OrderNumber:          order.Number,
			GatewayCode:          GatewayCode,
			GatewayTransactionID: txID,
			Type:                 domain.TransactionTypePayment,
			Status:               domain.TransactionStatusCompleted,
			Amount:               order.Total,
			Currency:             order.Currency,
			Message:              "cash on delivery",
		},
	}, nil
}

// VerifyPayment всегда подтверждает оплату: опрашивать некого.
func (g *Gateway) VerifyPayment(
	_ context.Context,
	order *domain.Order,
	gatewayTxID string,
) (*gateway.VerifyResult, error) {
	return &gateway.VerifyResult{
		Paid:                 true,
		GatewayTransactionID: gatewayTxID,
		Amount:               order.Total,
	}, nil
}

func (g *Gateway) Refund(
	_ context.Context,
	_ *domain.Order,
	_ string,
	_ int64,
	_ string,
) (*gateway.RefundResult, error) {
	return nil, errors.Wrap(domain.ErrUnsupportedOperation, "cod: refund")
}

func (g *Gateway) HandleCallback(_ *gateway.CallbackRequest) (*gateway.CallbackResult, error) {
	return nil, errors.Wrap(domain.ErrUnsupportedOperation, "cod: callback")
}
