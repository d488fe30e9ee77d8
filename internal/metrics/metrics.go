// Package metrics объявляет счетчики Prometheus платежного контура.
// Регистрация через promauto в дефолтном реестре; отдаются на /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CallbacksTotal - входящие колбеки по шлюзам. result: applied, duplicate,
	// ignored, invalid_signature, error.
	CallbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_callbacks_total",
		Help: "Incoming gateway callbacks by processing result.",
	}, []string{"gateway", "result"})

	// TransactionsTotal - записи журнала транзакций по типу и статусу.
	TransactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_transactions_total",
		Help: "Ledger transactions recorded, by type and status.",
	}, []string{"gateway", "type", "status"})

	// RefundsTotal - успешно проведенные возвраты.
	RefundsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_refunds_total",
		Help: "Refunds executed against gateways.",
	}, []string{"gateway"})

	// VerifyAttemptsTotal - фоновые сверки с провайдером. result: paid, pending, error.
	VerifyAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_verify_attempts_total",
		Help: "Background payment verification polls by outcome.",
	}, []string{"gateway", "result"})
)
