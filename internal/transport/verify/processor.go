// Package verify содержит фоновую сверку незавершенных платежей с провайдерами.
// Это страховка на случай потерянного колбека: заказы, зависшие в awaiting_payment,
// периодически опрашиваются через шлюзы, а просрочившие окно оплаты закрываются.
package verify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fsdevblog/groph-pay/internal/domain"
	"github.com/sirupsen/logrus"
)

const (
	defaultServiceTimeout         = 3 * time.Second
	defaultLimitPerIteration uint = 100
	defaultWorkers           uint = 10
	defaultPollInterval           = 15 * time.Second
	defaultVerifyDelay            = 30 * time.Second
)

// Processor опрашивает шлюзы по заказам, ожидающим подтверждения оплаты.
type Processor struct {
	svs               Servicer
	l                 *logrus.Entry
	limitPerIteration uint
	workers           uint
	pollInterval      time.Duration
	// verifyDelay - минимальный возраст последнего обновления заказа перед опросом,
	// чтобы не дергать провайдера раньше, чем успеет прийти обычный колбек.
	verifyDelay time.Duration
	// paymentWindow - срок, в течение которого заказ может оставаться неоплаченным.
	paymentWindow time.Duration
}

func New(svs Servicer, paymentWindow time.Duration, l *logrus.Logger) *Processor {
	loggerEntry := l.WithFields(logrus.Fields{
		"component": "verify",
		"module":    "processor",
	})

	return &Processor{
		svs:               svs,
		l:                 loggerEntry,
		limitPerIteration: defaultLimitPerIteration,
		workers:           defaultWorkers,
		pollInterval:      defaultPollInterval,
		verifyDelay:       defaultVerifyDelay,
		paymentWindow:     paymentWindow,
	}
}

// SetLimitPerIteration устанавливает кол-во заказов, обрабатываемых в одной итерации.
func (p *Processor) SetLimitPerIteration(limit uint) *Processor {
	p.limitPerIteration = limit
	return p
}

// SetWorkers устанавливает кол-во воркеров, опрашивающих шлюзы.
func (p *Processor) SetWorkers(workers uint) *Processor {
	p.workers = workers
	return p
}

// SetPollInterval устанавливает паузу между итерациями.
func (p *Processor) SetPollInterval(interval time.Duration) *Processor {
	p.pollInterval = interval
	return p
}

// Run запускает сверку в бесконечном цикле до отмены контекста.
func (p *Processor) Run(ctx context.Context) {
	p.l.WithFields(logrus.Fields{
		"limitPerIteration": p.limitPerIteration,
		"workers":           p.workers,
		"paymentWindow":     p.paymentWindow.String(),
	}).Info("Starting")

	for {
		if err := p.process(ctx); err != nil && !errors.Is(err, ErrNoOrders) {
			p.l.WithError(err).Error("process error")
		}

		select {
		case <-ctx.Done():
			p.l.Info("Got stop signal, exiting...")
			return
		case <-time.After(p.pollInterval):
		}
	}
}

// process выполняет одну итерацию: выборка заказов, опрос шлюзов воркерами,
// закрытие просроченных заказов и учет попыток.
func (p *Processor) process(ctx context.Context) error {
	orders, ordersErr := p.produce(ctx)
	if ordersErr != nil {
		return fmt.Errorf("process: %w", ordersErr)
	}

	results := p.runWorkers(ctx, orders)

	var retryIDs []int64
	for _, result := range results {
		if result.Paid {
			continue
		}
		if time.Since(result.Order.CreatedAt) > p.paymentWindow {
			if failErr := p.markFailed(ctx, result.Order.Number); failErr != nil {
				p.l.WithError(failErr).WithField("order", result.Order.Number).
					Error("closing expired payment window")
			}
			continue
		}
		retryIDs = append(retryIDs, result.Order.ID)
	}

	if len(retryIDs) > 0 {
		reqCtx, cancel := context.WithTimeout(ctx, defaultServiceTimeout)
		defer cancel()
		if incErr := p.svs.IncrementVerifyAttempts(reqCtx, retryIDs); incErr != nil {
			return fmt.Errorf("process: %s", incErr.Error())
		}
	}
	return nil
}

type workerResult struct {
	WorkerID uint
	Order    *domain.Order
	Paid     bool
	Error    error
}

// runWorkers запускает параллельных воркеров по паттерну fan-out/fan-in
// и собирает результаты опроса.
func (p *Processor) runWorkers(ctx context.Context, orders []domain.Order) []workerResult {
	var taskCh = make(chan *domain.Order, len(orders))

	for i := range orders {
		taskCh <- &orders[i]
	}
	close(taskCh)

	wg := new(sync.WaitGroup)
	wg.Add(int(p.workers)) // nolint:gosec

	var resultCh = make(chan *workerResult, len(orders))

	for i := range p.workers {
		go p.worker(ctx, wg, i+1, taskCh, resultCh)
	}
	wg.Wait()

	close(resultCh)

	var results = make([]workerResult, 0, len(orders))
	for result := range resultCh {
		l := p.l.WithFields(logrus.Fields{
			"worker":  result.WorkerID,
			"order":   result.Order.Number,
			"attempt": result.Order.VerifyAttempts + 1,
		})
		if result.Error != nil {
			l.WithError(result.Error).Error("verify payment for order")
			results = append(results, workerResult{Order: result.Order, Error: result.Error})
			continue
		}
		if result.Paid {
			l.Info("payment confirmed by gateway")
		}
		results = append(results, *result)
	}
	return results
}

func (p *Processor) worker(
	ctx context.Context,
	wg *sync.WaitGroup,
	workerID uint,
	taskCh <-chan *domain.Order,
	resultCh chan<- *workerResult,
) {
	defer wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case task, ok := <-taskCh:
			if !ok {
				return
			}
			paid, err := p.svs.VerifyPending(ctx, task)
			resultCh <- &workerResult{
				WorkerID: workerID,
				Order:    task,
				Paid:     paid,
				Error:    err,
			}
		}
	}
}

func (p *Processor) markFailed(ctx context.Context, number string) error {
	reqCtx, cancel := context.WithTimeout(ctx, defaultServiceTimeout)
	defer cancel()
	return p.svs.MarkPaymentFailed(reqCtx, number) //nolint:wrapcheck
}

// produce возвращает заказы для сверки. ErrNoOrders, если опрашивать нечего.
func (p *Processor) produce(ctx context.Context) ([]domain.Order, error) {
	produceCtx, cancel := context.WithTimeout(ctx, defaultServiceTimeout)
	defer cancel()

	cutoff := time.Now().Add(-p.verifyDelay)
	orders, ordersErr := p.svs.OrdersForVerification(produceCtx, cutoff, p.limitPerIteration)
	if ordersErr != nil {
		return nil, fmt.Errorf("produce: %w", ordersErr)
	}

	if len(orders) == 0 {
		return nil, ErrNoOrders
	}
	return orders, nil
}
