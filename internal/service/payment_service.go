package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fsdevblog/groph-pay/internal/domain"
	"github.com/fsdevblog/groph-pay/internal/gateway"
	"github.com/fsdevblog/groph-pay/internal/metrics"
	"github.com/fsdevblog/groph-pay/internal/repository/repoargs"
	"github.com/fsdevblog/groph-pay/pkg/uow"
)

// PaymentService инициирует платежи и возвраты через адаптеры шлюзов.
// Все обращения к провайдерам выполняются вне транзакций БД и под таймаутом.
type PaymentService struct {
	uow            uow.UOW
	orderRepo      OrderRepository
	transRepo      TransactionRepository
	gateways       GatewayResolver
	reconciler     *Reconciler
	gatewayTimeout time.Duration
}

func NewPaymentService(
	u uow.UOW,
	gateways GatewayResolver,
	reconciler *Reconciler,
	gatewayTimeout time.Duration,
) (*PaymentService, error) {
	orderRepo, orderRepoErr := uow.GetRepositoryAs[OrderRepository](u, uow.RepositoryName(repoargs.OrderRepoName))
	if orderRepoErr != nil {
		return nil, orderRepoErr //nolint:wrapcheck
	}
	transRepo, transRepoErr :=
		uow.GetRepositoryAs[TransactionRepository](u, uow.RepositoryName(repoargs.TransactionRepoName))
	if transRepoErr != nil {
		return nil, transRepoErr //nolint:wrapcheck
	}
	return &PaymentService{
		uow:            u,
		orderRepo:      orderRepo,
		transRepo:      transRepo,
		gateways:       gateways,
		reconciler:     reconciler,
		gatewayTimeout: gatewayTimeout,
	}, nil
}

// InitiateResult - итог инициации платежа. Либо RedirectURL для перенаправления
// покупателя к провайдеру, либо Order уже в оплаченном состоянии (мгновенные шлюзы).
type InitiateResult struct {
	RedirectURL string
	Order       *domain.Order
}

// Initiate начинает оплату заказа. Заказ переводится в awaiting_payment, в журнале
// появляется pending-запись с идентификатором, выданным провайдером.
//
// Повторная инициация после отклоненного платежа разрешена: покупатель может
// попробовать другой способ оплаты, пока заказ не ушел из awaiting_payment.
func (p *PaymentService) Initiate(
	ctx context.Context,
	number string,
	extra map[string]string,
) (*InitiateResult, error) {
	order, orderErr := p.orderRepo.FindByNumber(ctx, number)
	if orderErr != nil {
		return nil, orderErr //nolint:wrapcheck
	}
	if !order.Status.CanTransitionTo(domain.OrderStatusAwaitingPayment) {
		return nil, &domain.IllegalTransitionError{
			Entity: "order",
			From:   string(order.Status),
			To:     string(domain.OrderStatusAwaitingPayment),
		}
	}

	adapter, resolveErr := p.gateways.Resolve(order.PaymentMethodCode)
	if resolveErr != nil {
		return nil, resolveErr //nolint:wrapcheck
	}

	gwCtx, cancel := context.WithTimeout(ctx, p.gatewayTimeout)
	defer cancel()
	instruction, processErr := adapter.ProcessPayment(gwCtx, order, extra)
	if processErr != nil {
		return nil, fmt.Errorf("initiating payment for order `%s`: %w", number, processErr)
	}

	// мгновенные шлюзы (наложенный платеж) отдают готовый результат: применяем его
	// тем же путем, что и колбек, и заказ сразу становится оплаченным.
	if instruction.Immediate != nil {
		outcome, applyErr := p.reconciler.Apply(ctx, instruction.Immediate)
		if applyErr != nil {
			return nil, applyErr
		}
		return &InitiateResult{Order: outcome.Order}, nil
	}

	txErr := p.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		return p.beginAwaitingPayment(c, tx, number, adapter.Code(), instruction)
	})
	if txErr != nil {
		return nil, fmt.Errorf("initiating payment for order `%s`: %w", number, txErr)
	}
	return &InitiateResult{RedirectURL: instruction.RedirectURL}, nil
}

func (p *PaymentService) beginAwaitingPayment(
	ctx context.Context,
	tx uow.TX,
	number string,
	gatewayCode string,
	instruction *gateway.PaymentInstruction,
) error {
	orderRepo, orderRepoErr := uow.GetAs[OrderRepository](tx, uow.RepositoryName(repoargs.OrderRepoName))
	if orderRepoErr != nil {
		return orderRepoErr //nolint:wrapcheck
	}
	transRepo, transRepoErr := uow.GetAs[TransactionRepository](tx, uow.RepositoryName(repoargs.TransactionRepoName))
	if transRepoErr != nil {
		return transRepoErr //nolint:wrapcheck
	}

	order, findErr := orderRepo.FindByNumberForUpdate(ctx, number)
	if findErr != nil {
		return findErr //nolint:wrapcheck
	}
	if transitionErr := order.TransitionTo(domain.OrderStatusAwaitingPayment); transitionErr != nil {
		return transitionErr //nolint:wrapcheck
	}

	if _, createErr := transRepo.Create(ctx, repoargs.CreateTransaction{
		OrderID:              order.ID,
		Type:                 domain.TransactionTypePayment,
		GatewayCode:          gatewayCode,
		GatewayTransactionID: instruction.GatewayTransactionID,
		Amount:               order.Total,
		Status:               domain.TransactionStatusPending,
	}); createErr != nil {
		return createErr //nolint:wrapcheck
	}
	metrics.TransactionsTotal.
		WithLabelValues(gatewayCode, string(domain.TransactionTypePayment), string(domain.TransactionStatusPending)).
		Inc()

	if _, updateErr := orderRepo.UpdateStatus(ctx, repoargs.UpdateOrderStatus{
		ID:            order.ID,
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
	}); updateErr != nil {
		return updateErr //nolint:wrapcheck
	}
	return nil
}

// VerifyPending синхронно сверяет незавершенный платеж заказа с провайдером.
// Подтвержденная оплата применяется тем же идемпотентным путем, что и колбек.
// Возвращает true, если заказ оказался оплачен.
func (p *PaymentService) VerifyPending(ctx context.Context, order *domain.Order) (bool, error) {
	pending, pendingErr := p.transRepo.FindLatestByType(
		ctx, order.ID, domain.TransactionTypePayment, domain.TransactionStatusPending)
	if pendingErr != nil {
		return false, pendingErr //nolint:wrapcheck
	}

	adapter, resolveErr := p.gateways.Resolve(order.PaymentMethodCode)
	if resolveErr != nil {
		return false, resolveErr //nolint:wrapcheck
	}

	gwCtx, cancel := context.WithTimeout(ctx, p.gatewayTimeout)
	defer cancel()
	result, verifyErr := adapter.VerifyPayment(gwCtx, order, pending.GatewayTransactionID)
	if verifyErr != nil {
		metrics.VerifyAttemptsTotal.WithLabelValues(adapter.Code(), "error").Inc()
		return false, fmt.Errorf("verifying payment for order `%s`: %w", order.Number, verifyErr)
	}
	if !result.Paid {
		metrics.VerifyAttemptsTotal.WithLabelValues(adapter.Code(), "pending").Inc()
		return false, nil
	}
	metrics.VerifyAttemptsTotal.WithLabelValues(adapter.Code(), "paid").Inc()

	amount := result.Amount
	if amount == 0 {
		amount = order.Total
	}
	txID := result.GatewayTransactionID
	if txID == "" {
		txID = pending.GatewayTransactionID
	}
	if _, applyErr := p.reconciler.Apply(ctx, &gateway.CallbackResult{
		OrderNumber:          order.Number,
		GatewayCode:          adapter.Code(),
		GatewayTransactionID: txID,
		GatewayPaymentID:     result.GatewayPaymentID,
		Type:                 domain.TransactionTypePayment,
		Status:               domain.TransactionStatusCompleted,
		Amount:               amount,
		Currency:             order.Currency,
		Raw:                  result.Raw,
	}); applyErr != nil {
		return false, applyErr
	}
	return true, nil
}

// MarkPaymentFailed закрывает окно оплаты: pending-записи журнала финализируются
// как failed, заказ уходит в терминальный failed.
func (p *PaymentService) MarkPaymentFailed(ctx context.Context, number string) error {
	txErr := p.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
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

		pending, pendingErr := transRepo.FindLatestByType(
			c, order.ID, domain.TransactionTypePayment, domain.TransactionStatusPending)
		switch {
		case pendingErr == nil:
			if _, finalizeErr := transRepo.Finalize(c, pending.ID, repoargs.FinalizeTransaction{
				Status:      domain.TransactionStatusFailed,
				ProcessedAt: time.Now(),
			}); finalizeErr != nil {
				return finalizeErr //nolint:wrapcheck
			}
		case !errors.Is(pendingErr, domain.ErrRecordNotFound):
			return pendingErr //nolint:wrapcheck
		}

		if transitionErr := order.TransitionTo(domain.OrderStatusFailed); transitionErr != nil {
			return transitionErr //nolint:wrapcheck
		}
		if order.PaymentStatus == domain.PaymentStatusPending {
			if transitionErr := order.TransitionPaymentTo(domain.PaymentStatusFailed); transitionErr != nil {
				return transitionErr //nolint:wrapcheck
			}
		}

		_, updateErr := orderRepo.UpdateStatus(c, repoargs.UpdateOrderStatus{
			ID:            order.ID,
			Status:        order.Status,
			PaymentStatus: order.PaymentStatus,
		})
		return updateErr //nolint:wrapcheck
	})
	if txErr != nil {
		return fmt.Errorf("marking payment failed for order `%s`: %w", number, txErr)
	}
	return nil
}

// Refund проводит возврат. amount == nil означает возврат всего невозвращенного остатка.
// Сумма сверх остатка отклоняется (*domain.RefundExceedsPaidError) до обращения к провайдеру.
func (p *PaymentService) Refund(
	ctx context.Context,
	number string,
	amount *int64,
	reason string,
) (*domain.Transaction, error) {
	order, orderErr := p.orderRepo.FindByNumber(ctx, number)
	if orderErr != nil {
		return nil, orderErr //nolint:wrapcheck
	}

	payment, paymentErr := p.transRepo.FindLatestByType(
		ctx, order.ID, domain.TransactionTypePayment, domain.TransactionStatusCompleted)
	if paymentErr != nil {
		if errors.Is(paymentErr, domain.ErrRecordNotFound) {
			return nil, fmt.Errorf("order `%s` has no completed payment: %w", number, paymentErr)
		}
		return nil, paymentErr //nolint:wrapcheck
	}

	sums, sumsErr := p.transRepo.SumCompletedByType(ctx, order.ID)
	if sumsErr != nil {
		return nil, sumsErr //nolint:wrapcheck
	}
	refundable := sums.PaidAmount - sums.RefundedAmount
	requested := refundable
	if amount != nil {
		requested = *amount
	}
	if requested <= 0 || requested > refundable {
		return nil, &domain.RefundExceedsPaidError{
			Paid:      sums.PaidAmount,
			Refunded:  sums.RefundedAmount,
			Requested: requested,
		}
	}

	adapter, resolveErr := p.gateways.Resolve(order.PaymentMethodCode)
	if resolveErr != nil {
		return nil, resolveErr //nolint:wrapcheck
	}

	// возврат идет по платежной сущности провайдера; для старых записей без нее
	// остается идентификатор из журнала.
	refundKey := payment.GatewayPaymentID
	if refundKey == "" {
		refundKey = payment.GatewayTransactionID
	}

	gwCtx, cancel := context.WithTimeout(ctx, p.gatewayTimeout)
	defer cancel()
	result, refundErr := adapter.Refund(gwCtx, order, refundKey, requested, reason)
	if refundErr != nil {
		return nil, fmt.Errorf("refunding order `%s`: %w", number, refundErr)
	}

	outcome, applyErr := p.reconciler.Apply(ctx, &gateway.CallbackResult{
		OrderNumber:          order.Number,
		GatewayCode:          adapter.Code(),
		GatewayTransactionID: result.GatewayTransactionID,
		Type:                 domain.TransactionTypeRefund,
		Status:               domain.TransactionStatusCompleted,
		Amount:               requested,
		Currency:             order.Currency,
		Message:              result.Message,
		Raw:                  result.Raw,
	})
	if applyErr != nil {
		return nil, applyErr
	}
	metrics.RefundsTotal.WithLabelValues(adapter.Code()).Inc()
	return outcome.Transaction, nil
}

// OrdersForVerification возвращает заказы в awaiting_payment, не обновлявшиеся
// дольше окна ожидания. По ним фоновый обработчик опрашивает шлюзы.
func (p *PaymentService) OrdersForVerification(
	ctx context.Context,
	cutoff time.Time,
	limit uint,
) ([]domain.Order, error) {
	orders, err := p.orderRepo.GetAwaitingVerification(ctx, cutoff, limit)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return orders, nil
}

func (p *PaymentService) IncrementVerifyAttempts(ctx context.Context, orderIDs []int64) error {
	return p.orderRepo.IncrementVerifyAttempts(ctx, orderIDs) //nolint:wrapcheck
}
