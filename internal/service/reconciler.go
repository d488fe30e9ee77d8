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
	"github.com/sirupsen/logrus"
)

// ReconcileOutcome - итог применения колбека к заказу.
type ReconcileOutcome struct {
	// Applied - событие применено: появилась или финализировалась запись журнала.
	Applied bool
	// Duplicate - событие уже было применено раньше; повторная доставка, no-op.
	Duplicate bool
	// Ignored - подлинное, но неинтересное событие; провайдеру отвечаем успехом.
	Ignored bool
	// StateConflict - запись журнала зафиксирована, но статус заказа менять уже
	// нельзя (событие пришло после терминального перехода).
	StateConflict bool

	Order       *domain.Order
	Transaction *domain.Transaction
}

// Reconciler применяет асинхронные уведомления шлюзов к заказам. Единственная точка,
// где колбеки превращаются в записи журнала и переходы статусов.
//
// Гарантия однократности держится на двух механизмах: блокировка строки заказа
// сериализует конкурентные колбеки по одному заказу, а уникальный индекс по
// (gateway_code, gateway_transaction_id) отсекает повторные доставки одного события.
type Reconciler struct {
	uow       uow.UOW
	gateways  GatewayResolver
	transRepo TransactionRepository
	log       *logrus.Entry
}

func NewReconciler(u uow.UOW, gateways GatewayResolver, log *logrus.Entry) (*Reconciler, error) {
	transRepo, transRepoErr :=
		uow.GetRepositoryAs[TransactionRepository](u, uow.RepositoryName(repoargs.TransactionRepoName))
	if transRepoErr != nil {
		return nil, transRepoErr //nolint:wrapcheck
	}
	return &Reconciler{
		uow:       u,
		gateways:  gateways,
		transRepo: transRepo,
		log:       log,
	}, nil
}

// HandleCallback разбирает сырой колбек через адаптер шлюза и применяет результат.
// Ошибка подписи возвращается как есть: веб-слой должен ответить 400 без каких-либо
// изменений состояния.
func (r *Reconciler) HandleCallback(
	ctx context.Context,
	gatewayCode string,
	req *gateway.CallbackRequest,
) (*ReconcileOutcome, error) {
	adapter, resolveErr := r.gateways.Resolve(gatewayCode)
	if resolveErr != nil {
		metrics.CallbacksTotal.WithLabelValues(gatewayCode, "error").Inc()
		return nil, resolveErr //nolint:wrapcheck
	}

	result, callbackErr := adapter.HandleCallback(req)
	if callbackErr != nil {
		switch {
		case errors.Is(callbackErr, gateway.ErrEventIgnored):
			metrics.CallbacksTotal.WithLabelValues(gatewayCode, "ignored").Inc()
			return &ReconcileOutcome{Ignored: true}, nil
		case errors.Is(callbackErr, domain.ErrInvalidSignature):
			metrics.CallbacksTotal.WithLabelValues(gatewayCode, "invalid_signature").Inc()
			r.log.WithField("gateway", gatewayCode).Warn("callback signature verification failed")
		default:
			metrics.CallbacksTotal.WithLabelValues(gatewayCode, "error").Inc()
		}
		return nil, callbackErr //nolint:wrapcheck
	}
	if result.GatewayCode == "" {
		result.GatewayCode = adapter.Code()
	}

	outcome, applyErr := r.Apply(ctx, result)
	if applyErr != nil {
		metrics.CallbacksTotal.WithLabelValues(gatewayCode, "error").Inc()
		return nil, applyErr
	}
	switch {
	case outcome.Duplicate:
		metrics.CallbacksTotal.WithLabelValues(gatewayCode, "duplicate").Inc()
	default:
		metrics.CallbacksTotal.WithLabelValues(gatewayCode, "applied").Inc()
	}
	return outcome, nil
}

// Apply применяет нормализованное событие. Идемпотентен: повторный вызов с тем же
// (gateway_code, gateway_transaction_id) вернет Duplicate и ничего не изменит.
func (r *Reconciler) Apply(ctx context.Context, res *gateway.CallbackResult) (*ReconcileOutcome, error) {
	// быстрый путь вне транзакции: повторные доставки не трогают блокировку заказа.
	if existing, findErr := r.transRepo.FindByGatewayTxID(ctx, res.GatewayCode, res.GatewayTransactionID); findErr == nil {
		if existing.Status.Terminal() {
			return &ReconcileOutcome{Duplicate: true, Transaction: existing}, nil
		}
	} else if !errors.Is(findErr, domain.ErrRecordNotFound) {
		return nil, findErr //nolint:wrapcheck
	}

	var outcome ReconcileOutcome
	txErr := r.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		return r.applyTx(c, tx, res, &outcome)
	})
	if txErr != nil {
		// конкурентная доставка того же события успела вставить запись первой.
		if errors.Is(txErr, domain.ErrDuplicateKey) {
			return &ReconcileOutcome{Duplicate: true}, nil
		}
		return nil, fmt.Errorf("applying callback `%s/%s`: %w", res.GatewayCode, res.GatewayTransactionID, txErr)
	}
	return &outcome, nil
}

func (r *Reconciler) applyTx(
	ctx context.Context,
	tx uow.TX,
	res *gateway.CallbackResult,
	outcome *ReconcileOutcome,
) error {
	orderRepo, orderRepoErr := uow.GetAs[OrderRepository](tx, uow.RepositoryName(repoargs.OrderRepoName))
	if orderRepoErr != nil {
		return orderRepoErr //nolint:wrapcheck
	}
	transRepo, transRepoErr := uow.GetAs[TransactionRepository](tx, uow.RepositoryName(repoargs.TransactionRepoName))
	if transRepoErr != nil {
		return transRepoErr //nolint:wrapcheck
	}

	order, orderErr := orderRepo.FindByNumberForUpdate(ctx, res.OrderNumber)
	if orderErr != nil {
		return orderErr //nolint:wrapcheck
	}

	trans, recordErr := r.recordTransaction(ctx, transRepo, order, res, outcome)
	if recordErr != nil || outcome.Duplicate {
		return recordErr
	}
	outcome.Transaction = trans
	outcome.Applied = true
	metrics.TransactionsTotal.WithLabelValues(res.GatewayCode, string(res.Type), string(res.Status)).Inc()

	if statusErr := r.advanceOrder(ctx, tx, order, res, outcome); statusErr != nil {
		return statusErr
	}

	updated, updateErr := orderRepo.UpdateStatus(ctx, repoargs.UpdateOrderStatus{
		ID:            order.ID,
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
	})
	if updateErr != nil {
		return updateErr //nolint:wrapcheck
	}
	outcome.Order = updated
	return nil
}

// recordTransaction фиксирует событие в журнале: финализирует pending-запись с тем же
// идентификатором шлюза, либо вставляет новую уже в конечном статусе.
func (r *Reconciler) recordTransaction(
	ctx context.Context,
	transRepo TransactionRepository,
	order *domain.Order,
	res *gateway.CallbackResult,
	outcome *ReconcileOutcome,
) (*domain.Transaction, error) {
	now := time.Now()

	existing, findErr := transRepo.FindByGatewayTxID(ctx, res.GatewayCode, res.GatewayTransactionID)
	switch {
	case findErr == nil && existing.Status.Terminal():
		outcome.Duplicate = true
		outcome.Transaction = existing
		return existing, nil
	case findErr == nil:
		finalized, finalizeErr := transRepo.Finalize(ctx, existing.ID, repoargs.FinalizeTransaction{
			Status:           res.Status,
			ProcessedAt:      now,
			GatewayPaymentID: res.GatewayPaymentID,
		})
		if finalizeErr != nil {
			// запись финализировал конкурентный колбек между чтением и UPDATE.
			if errors.Is(finalizeErr, domain.ErrRecordNotFound) {
				outcome.Duplicate = true
				return existing, nil
			}
			return nil, finalizeErr //nolint:wrapcheck
		}
		return finalized, nil
	case errors.Is(findErr, domain.ErrRecordNotFound):
		created, createErr := transRepo.Create(ctx, repoargs.CreateTransaction{
			OrderID:              order.ID,
			Type:                 res.Type,
			GatewayCode:          res.GatewayCode,
			GatewayTransactionID: res.GatewayTransactionID,
			GatewayPaymentID:     res.GatewayPaymentID,
			Amount:               res.Amount,
			Status:               res.Status,
			RawResponse:          res.Raw,
			ProcessedAt:          &now,
		})
		if createErr != nil {
			return nil, createErr //nolint:wrapcheck
		}
		return created, nil
	default:
		return nil, findErr //nolint:wrapcheck
	}
}

// advanceOrder двигает конечный автомат заказа по применённому событию. Недопустимый
// переход не откатывает запись журнала: факт платежа важнее согласованности статуса,
// расхождение остается в логах для ручного разбора.
func (r *Reconciler) advanceOrder(
	ctx context.Context,
	tx uow.TX,
	order *domain.Order,
	res *gateway.CallbackResult,
	outcome *ReconcileOutcome,
) error {
	switch {
	case res.Type == domain.TransactionTypePayment && res.Status == domain.TransactionStatusCompleted:
		if res.Amount != 0 && res.Amount != order.Total {
			r.log.WithFields(logrus.Fields{
				"order":    order.Number,
				"expected": order.Total,
				"got":      res.Amount,
			}).Warn("callback amount differs from order total")
		}
		if err := order.TransitionPaymentTo(domain.PaymentStatusPaid); err != nil {
			return r.conflict(order, res, err, outcome)
		}
		// мгновенные шлюзы приносят завершенный платеж, пока заказ еще в pending:
		// проводим его через awaiting_payment, чтобы не ломать автомат статусов.
		if order.Status == domain.OrderStatusPending {
			if err := order.TransitionTo(domain.OrderStatusAwaitingPayment); err != nil {
				return r.conflict(order, res, err, outcome)
			}
		}
		if err := order.TransitionTo(domain.OrderStatusProcessing); err != nil {
			return r.conflict(order, res, err, outcome)
		}
	case res.Type == domain.TransactionTypePayment && res.Status == domain.TransactionStatusFailed:
		// заказ остается в awaiting_payment: покупатель может оплатить повторно,
		// окно оплаты закрывает фоновый обработчик.
		if err := order.TransitionPaymentTo(domain.PaymentStatusFailed); err != nil {
			return r.conflict(order, res, err, outcome)
		}
	case res.Type == domain.TransactionTypeRefund && res.Status == domain.TransactionStatusCompleted:
		transRepo, repoErr := uow.GetAs[TransactionRepository](tx, uow.RepositoryName(repoargs.TransactionRepoName))
		if repoErr != nil {
			return repoErr //nolint:wrapcheck
		}
		sums, sumsErr := transRepo.SumCompletedByType(ctx, order.ID)
		if sumsErr != nil {
			return sumsErr //nolint:wrapcheck
		}
		target := domain.PaymentStatusPartiallyRefunded
		if sums.RefundedAmount >= sums.PaidAmount {
			target = domain.PaymentStatusRefunded
		}
		if err := order.TransitionPaymentTo(target); err != nil {
			return r.conflict(order, res, err, outcome)
		}
	}
	return nil
}

func (r *Reconciler) conflict(
	order *domain.Order,
	res *gateway.CallbackResult,
	err error,
	outcome *ReconcileOutcome,
) error {
	var illegal *domain.IllegalTransitionError
	if !errors.As(err, &illegal) {
		return err
	}
	outcome.StateConflict = true
	r.log.WithFields(logrus.Fields{
		"order":   order.Number,
		"gateway": res.GatewayCode,
		"event":   string(res.Type) + "/" + string(res.Status),
	}).Warnf("ledger entry recorded but order state left unchanged: %s", illegal.Error())
	return nil
}
