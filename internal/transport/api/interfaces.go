package api

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"github.com/fsdevblog/groph-pay/internal/domain"
	"github.com/fsdevblog/groph-pay/internal/gateway"
	"github.com/fsdevblog/groph-pay/internal/service"
)

type OrderServicer interface {
	Create(ctx context.Context, args service.CreateOrderArgs) (*domain.Order, error)
	GetByNumber(ctx context.Context, number string) (*domain.Order, error)
	GetLedger(ctx context.Context, number string) (*domain.Order, []domain.Transaction, error)
	List(ctx context.Context, limit, offset uint) ([]domain.Order, error)
	Cancel(ctx context.Context, number string) (*domain.Order, error)
	SoftDelete(ctx context.Context, number string) error
}

type PaymentServicer interface {
	Initiate(ctx context.Context, number string, extra map[string]string) (*service.InitiateResult, error)
	VerifyPending(ctx context.Context, order *domain.Order) (bool, error)
	Refund(ctx context.Context, number string, amount *int64, reason string) (*domain.Transaction, error)
}

type CallbackServicer interface {
	HandleCallback(
		ctx context.Context,
		gatewayCode string,
		req *gateway.CallbackRequest,
	) (*service.ReconcileOutcome, error)
}
