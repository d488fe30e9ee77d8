package service

import (
	"context"
	"time"

	"github.com/fsdevblog/groph-pay/internal/domain"
	"github.com/fsdevblog/groph-pay/internal/gateway"
	"github.com/fsdevblog/groph-pay/internal/repository/repoargs"
)

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

type OrderRepository interface {
	Create(ctx context.Context, args repoargs.CreateOrder) (*domain.Order, error)
	FindByNumber(ctx context.Context, number string) (*domain.Order, error)
	FindByNumberForUpdate(ctx context.Context, number string) (*domain.Order, error)
	UpdateStatus(ctx context.Context, args repoargs.UpdateOrderStatus) (*domain.Order, error)
	GetAwaitingVerification(ctx context.Context, cutoff time.Time, limit uint) ([]domain.Order, error)
	IncrementVerifyAttempts(ctx context.Context, orderIDs []int64) error
	SoftDelete(ctx context.Context, id int64) error
	List(ctx context.Context, args repoargs.ListOrders) ([]domain.Order, error)
}

type TransactionRepository interface {
	Create(ctx context.Context, args repoargs.CreateTransaction) (*domain.Transaction, error)
	FindByGatewayTxID(ctx context.Context, gatewayCode, gatewayTxID string) (*domain.Transaction, error)
	Finalize(ctx context.Context, id int64, args repoargs.FinalizeTransaction) (*domain.Transaction, error)
	SumCompletedByType(ctx context.Context, orderID int64) (*repoargs.TransactionSums, error)
	GetByOrderID(ctx context.Context, orderID int64) ([]domain.Transaction, error)
	FindLatestByType(
		ctx context.Context,
		orderID int64,
		transType domain.TransactionType,
		status domain.TransactionStatus,
	) (*domain.Transaction, error)
}

type PaymentMethodRepository interface {
	GetActive(ctx context.Context) ([]domain.PaymentMethod, error)
	FindByCode(ctx context.Context, code string) (*domain.PaymentMethod, error)
}

// GatewayResolver подбирает адаптер шлюза по коду способа оплаты.
type GatewayResolver interface {
	Resolve(methodCode string) (gateway.Adapter, error)
	Codes() []string
}
