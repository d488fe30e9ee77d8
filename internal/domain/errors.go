package domain

import (
	"errors"
	"fmt"
)

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrDuplicateKey   = errors.New("duplicate key")
	ErrUnknown        = errors.New("unknown error")

	// ErrTotalsMismatch - нарушен инвариант total == subtotal + tax + shipping_cost - discount.
	ErrTotalsMismatch = errors.New("order totals mismatch")

	// ErrNoGatewayConfigured - ни один зарегистрированный шлюз не обслуживает код способа оплаты,
	// либо подходящий шлюз не сконфигурирован.
	ErrNoGatewayConfigured = errors.New("no gateway configured")

	// ErrGatewayUnavailable - сетевая ошибка или таймаут при обращении к провайдеру.
	// Ретраи - ответственность вызывающей стороны; в журнал такая попытка не пишется.
	ErrGatewayUnavailable = errors.New("gateway unavailable")

	// ErrInvalidSignature - колбек не прошел проверку подлинности. Отклоняется без каких-либо
	// изменений состояния; логируется как событие безопасности.
	ErrInvalidSignature = errors.New("invalid callback signature")

	// ErrPaymentDeclined - провайдер отклонил платеж. Это нормальный бизнес-результат,
	// а не сбой: фиксируется failed-записью в журнале.
	ErrPaymentDeclined = errors.New("payment declined")

	// ErrUnsupportedOperation - провайдер или аккаунт не поддерживает операцию (например, возврат).
	ErrUnsupportedOperation = errors.New("operation is not supported by gateway")

	// ErrCancelCompletedPayment - отмена запрещена: по заказу есть завершенный платеж,
	// нужно оформлять возврат.
	ErrCancelCompletedPayment = errors.New("order has a completed payment, refund instead of cancel")

	// ErrOrderAuditLocked - заказ с завершенным платежом нельзя удалять, он часть финансового аудита.
	ErrOrderAuditLocked = errors.New("order is audit locked")
)

// IllegalTransitionError - попытка недопустимого перехода конечного автомата.
// Программная ошибка либо гонка; всегда логируется и никогда не глотается молча.
type IllegalTransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal %s state transition %s -> %s", e.Entity, e.From, e.To)
}

// DuplicateGatewayCodeError - повторная регистрация адаптера с тем же кодом.
type DuplicateGatewayCodeError struct {
	Code string
}

func (e *DuplicateGatewayCodeError) Error() string {
	return fmt.Sprintf("gateway with code %q is already registered", e.Code)
}

// RefundExceedsPaidError - запрошенный возврат превышает оплаченный остаток.
// Состояние заказа и журнала при этом не меняется.
type RefundExceedsPaidError struct {
	Paid      int64
	Refunded  int64
	Requested int64
}

func (e *RefundExceedsPaidError) Error() string {
	return fmt.Sprintf(
		"refund of %d exceeds refundable amount: paid %d, already refunded %d",
		e.Requested, e.Paid, e.Refunded,
	)
}
