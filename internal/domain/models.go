package domain

import (
	"encoding/json"
	"time"
)

// Order - заказ. Все денежные поля хранятся в минорных единицах валюты (копейки, центы),
// чтобы вся арифметика была целочисленной.
type Order struct {
	ID                int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
	DeletedAt         *time.Time
	Number            string
	CustomerID        *int64
	Status            OrderStatus
	PaymentStatus     PaymentStatus
	Subtotal          int64
	Tax               int64
	ShippingCost      int64
	Discount          int64
	Total             int64
	Currency          string
	PaymentMethodCode string
	ShippingMethod    string
	TrackingNumber    string
	VerifyAttempts    int32
}

// ComputeTotal пересчитывает итоговую сумму заказа. Клиентскому значению total не доверяем никогда.
func (o *Order) ComputeTotal() int64 {
	return o.Subtotal + o.Tax + o.ShippingCost - o.Discount
}

// ValidateTotals проверяет инвариант total == subtotal + tax + shipping_cost - discount.
// Возвращает ErrTotalsMismatch при расхождении.
func (o *Order) ValidateTotals() error {
	if o.Total != o.ComputeTotal() || o.Total < 0 {
		return ErrTotalsMismatch
	}
	return nil
}

// Transaction - запись журнала платежных операций. Журнал append-only: существующие записи
// не изменяются, за исключением однократного проставления status + processed_at
// при финализации pending-записи.
type Transaction struct {
	ID                   int64
	CreatedAt            time.Time
	UpdatedAt            time.Time
	OrderID              int64
	Type                 TransactionType
	GatewayCode          string
	GatewayTransactionID string
	// GatewayPaymentID - идентификатор платежной сущности провайдера (payment intent,
	// payment). У stripe и razorpay он отличается от идентификатора checkout-сессии,
	// а возвраты провайдер принимает только по нему.
	GatewayPaymentID string
	Amount           int64
	Status           TransactionStatus
	RawResponse      []byte
	ProcessedAt      *time.Time
}

// PaymentMethod - конфигурация способа оплаты. Ведется админкой, реестр шлюзов читает её
// при старте процесса.
type PaymentMethod struct {
	ID        int64
	CreatedAt time.Time
	UpdatedAt time.Time
	Code      string
	Name      string
	Active    bool
	IsDefault bool
	Config    json.RawMessage
	SortOrder int32
}
