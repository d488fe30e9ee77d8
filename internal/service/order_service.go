package service

import (
	"context"
	"fmt"

	"github.com/fsdevblog/groph-pay/internal/domain"
	"github.com/fsdevblog/groph-pay/internal/pricing"
	"github.com/fsdevblog/groph-pay/internal/repository/repoargs"
	"github.com/fsdevblog/groph-pay/pkg/uow"
	"github.com/google/uuid"
)

type OrderService struct {
	uow       uow.UOW
	orderRepo OrderRepository
	transRepo TransactionRepository
	pricing   *pricing.Chain
}

func NewOrderService(u uow.UOW, chain *pricing.Chain) (*OrderService, error) {
	orderRepo, orderRepoErr := uow.GetRepositoryAs[OrderRepository](u, uow.RepositoryName(repoargs.OrderRepoName))
	if orderRepoErr != nil {
		return nil, orderRepoErr //nolint:wrapcheck
	}
	transRepo, transRepoErr :=
		uow.GetRepositoryAs[TransactionRepository](u, uow.RepositoryName(repoargs.TransactionRepoName))
	if transRepoErr != nil {
		return nil, transRepoErr //nolint:wrapcheck
	}
	return &OrderService{
		uow:       u,
		orderRepo: orderRepo,
		transRepo: transRepo,
		pricing:   chain,
	}, nil
}

type CreateOrderArgs struct {
	CustomerID        *int64
	Subtotal          int64
	Discount          int64
	Currency          string
	PaymentMethodCode string
	ShippingMethod    string
}

// Create создает заказ. Итоговая сумма считается ценовой цепочкой на сервере;
// клиентские суммы в расчет не принимаются. Номер заказа генерируется здесь же.
func (o *OrderService) Create(ctx context.Context, args CreateOrderArgs) (*domain.Order, error) {
	order := domain.Order{
		Number:   uuid.NewString(),
		Subtotal: args.Subtotal,
		Discount: args.Discount,
	}
	total, steps := o.pricing.ApplyDetailed(&order, args.Subtotal)
	for _, step := range steps {
		switch step.Name {
		case "tax":
			order.Tax = step.Delta
		case "shipping":
			order.ShippingCost = step.Delta
		case "discount":
			order.Discount = -step.Delta
		}
	}
	order.Total = total

	if validateErr := order.ValidateTotals(); validateErr != nil {
		return nil, fmt.Errorf("creating order: %w", validateErr)
	}

	created, createErr := o.orderRepo.Create(ctx, repoargs.CreateOrder{
		Number:            order.Number,
		CustomerID:        args.CustomerID,
		Subtotal:          order.Subtotal,
		Tax:               order.Tax,
		ShippingCost:      order.ShippingCost,
		Discount:          order.Discount,
		Total:             order.Total,
		Currency:          args.Currency,
		PaymentMethodCode: args.PaymentMethodCode,
		ShippingMethod:    args.ShippingMethod,
	})
	if createErr != nil {
		return nil, fmt.Errorf("creating order: %w", createErr)
	}
	return created, nil
}

func (o *OrderService) GetByNumber(ctx context.Context, number string) (*domain.Order, error) {
	order, err := o.orderRepo.FindByNumber(ctx, number)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return order, nil
}

// GetLedger возвращает журнал транзакций заказа в хронологическом порядке.
func (o *OrderService) GetLedger(ctx context.Context, number string) (*domain.Order, []domain.Transaction, error) {
	order, orderErr := o.orderRepo.FindByNumber(ctx, number)
	if orderErr != nil {
		return nil, nil, orderErr //nolint:wrapcheck
	}
	transactions, transErr := o.transRepo.GetByOrderID(ctx, order.ID)
	if transErr != nil {
		return nil, nil, transErr //nolint:wrapcheck
	}
	return order, transactions, nil
}

func (o *OrderService) List(ctx context.Context, limit, offset uint) ([]domain.Order, error) {
	orders, err := o.orderRepo.List(ctx, repoargs.ListOrders{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return orders, nil
}

// Cancel отменяет заказ. Заказ с завершенным платежом отменить нельзя -
// вернется domain.ErrCancelCompletedPayment, деньги возвращаются через Refund.
func (o *OrderService) Cancel(ctx context.Context, number string) (*domain.Order, error) {
	var cancelled *domain.Order
	txErr := o.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		orderRepo, repoErr := uow.GetAs[OrderRepository](tx, uow.RepositoryName(repoargs.OrderRepoName))
		if repoErr != nil {
			return repoErr //nolint:wrapcheck
		}
		order, findErr := orderRepo.FindByNumberForUpdate(c, number)
		if findErr != nil {
			return findErr //nolint:wrapcheck
		}

		if order.PaymentStatus == domain.PaymentStatusPaid ||
			order.PaymentStatus == domain.PaymentStatusPartiallyRefunded {
			return domain.ErrCancelCompletedPayment
		}
		if transitionErr := order.TransitionTo(domain.OrderStatusCancelled); transitionErr != nil {
			return transitionErr //nolint:wrapcheck
		}

		updated, updateErr := orderRepo.UpdateStatus(c, repoargs.UpdateOrderStatus{
			ID:            order.ID,
			Status:        order.Status,
			PaymentStatus: order.PaymentStatus,
		})
		if updateErr != nil {
			return updateErr //nolint:wrapcheck
		}
		cancelled = updated
		return nil
	})
	if txErr != nil {
		return nil, fmt.Errorf("cancelling order `%s`: %w", number, txErr)
	}
	return cancelled, nil
}

// SoftDelete скрывает заказ из выборок. Заказы с зафиксированными платежами
// удалять нельзя (domain.ErrOrderAuditLocked): журнал - финансовый аудит.
func (o *OrderService) SoftDelete(ctx context.Context, number string) error {
	txErr := o.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		orderRepo, orderRepoErr := uow.GetAs[OrderRepository](tx, uow.RepositoryName(repoargs.OrderRepoName))
		if orderRepoErr != nil {
			return orderRepoErr //nolint:wrapcheck
		}
		transRepo, transRepoErr :=
			uow.GetAs[TransactionRepository](tx, uow.RepositoryName(repoargs.TransactionRepoName))
		if transRepoErr != nil {
			return transRepoErr //nolint:wrapcheck
		}

		order, findErr := orderRepo.FindByNumberForUpdate(c, number)
		if findErr != nil {
			return findErr //nolint:wrapcheck
		}
		sums, sumsErr := transRepo.SumCompletedByType(c, order.ID)
		if sumsErr != nil {
			return sumsErr //nolint:wrapcheck
		}
		if sums.PaidAmount > 0 {
			return domain.ErrOrderAuditLocked
		}
		return orderRepo.SoftDelete(c, order.ID) //nolint:wrapcheck
	})
	if txErr != nil {
		return fmt.Errorf("deleting order `%s`: %w", number, txErr)
	}
	return nil
}
