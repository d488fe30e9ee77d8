// Package gateway определяет контракт адаптера платежного шлюза и реестр адаптеров.
// Каждый провайдер (stripe, paypal, razorpay, cod) - вариант за интерфейсом Adapter;
// вызывающий код никогда не ветвится по конкретному типу провайдера.
package gateway

//go:generate mockgen -source=gateway.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"errors"
	"net/http"

	"github.com/fsdevblog/groph-pay/internal/domain"
)

// ErrEventIgnored - колбек подлинный, но тип события адаптеру не интересен.
// Провайдеру отвечаем успехом, чтобы он прекратил ретраи.
var ErrEventIgnored = errors.New("callback event ignored")

// CallbackRequest - сырой входящий колбек: тело и заголовки, как их отдал веб-слой.
type CallbackRequest struct {
	Body   []byte
	Header http.Header
}

// CallbackResult - нормализованный результат разбора колбека. Адаптер только парсит и
// проверяет подлинность; применение побочных эффектов - исключительно дело реконсилятора.
type CallbackResult struct {
	OrderNumber          string
	GatewayCode          string
	GatewayTransactionID string
	// GatewayPaymentID - идентификатор платежной сущности провайдера (payment intent,
	// payment). Для stripe и razorpay возвраты принимаются только по нему.
	GatewayPaymentID string
	Type             domain.TransactionType
	Status           domain.TransactionStatus
	Amount           int64
	Currency         string
	Message          string
	Raw              []byte
}

// PaymentInstruction - результат инициации платежа: либо редирект на hosted checkout,
// либо немедленный результат (например, наложенный платеж).
type PaymentInstruction struct {
	RedirectURL string
	// GatewayTransactionID - идентификатор, присвоенный провайдером при инициации
	// (сессия/интент). Сохраняется на pending-записи журнала.
	GatewayTransactionID string
	Immediate            *CallbackResult
}

// VerifyResult - результат синхронного опроса провайдера о состоянии платежа.
type VerifyResult struct {
	Paid                 bool
	GatewayTransactionID string
	GatewayPaymentID     string
	Amount               int64
	Raw                  []byte
}

// RefundResult - подтвержденный провайдером возврат.
type RefundResult struct {
	GatewayTransactionID string
	Message              string
	Raw                  []byte
}

// Adapter - контракт платежного шлюза.
//
// Семантика ошибок: отклоненный платеж - не ошибка, а нормальный результат
// (CallbackResult со статусом failed). Ошибками сигнализируются только проблемы
// конфигурации, транспорта (domain.ErrGatewayUnavailable) и некорректные ответы
// провайдера. Адаптер никогда не изменяет состояние заказа.
type Adapter interface {
	// Code - стабильный уникальный идентификатор шлюза.
	Code() string
	// Supports сообщает, обслуживает ли адаптер данный код способа оплаты.
	Supports(methodCode string) bool
	// Configured - true, только если все обязательные реквизиты заданы.
	// Несконфигурированные шлюзы скрываются из чекаута.
	Configured() bool
	// ProcessPayment инициирует платеж у провайдера.
	ProcessPayment(ctx context.Context, order *domain.Order, extra map[string]string) (*PaymentInstruction, error)
	// VerifyPayment синхронно опрашивает провайдера; fallback на случай потерянного колбека.
	// gatewayTxID - идентификатор, выданный провайдером при инициации.
	VerifyPayment(ctx context.Context, order *domain.Order, gatewayTxID string) (*VerifyResult, error)
	// Refund выполняет возврат по завершенному платежу paymentTxID. Провайдеры без
	// поддержки возвратов отвечают domain.ErrUnsupportedOperation.
	Refund(ctx context.Context, order *domain.Order, paymentTxID string, amount int64, reason string) (*RefundResult, error)
	// HandleCallback проверяет подлинность и нормализует асинхронное уведомление.
	// Неподлинный payload - domain.ErrInvalidSignature, неинтересное событие - ErrEventIgnored.
	HandleCallback(req *CallbackRequest) (*CallbackResult, error)
}
