package verify

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"github.com/fsdevblog/groph-pay/internal/domain"
)

type Servicer interface {
	OrdersForVerification(ctx context.Context, cutoff time.Time, limit uint) ([]domain.Order, error)
	VerifyPending(ctx context.Context, order *domain.Order) (bool, error)
	MarkPaymentFailed(ctx context.Context, number string) error
	IncrementVerifyAttempts(ctx context.Context, orderIDs []int64) error
}
