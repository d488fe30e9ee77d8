package repoargs

import (
	"time"

	"github.com/fsdevblog/groph-pay/internal/domain"
)

type CreateTransaction struct {
	OrderID              int64
	Type                 domain.TransactionType
	GatewayCode          string
	GatewayTransactionID string
	GatewayPaymentID     string
	Amount               int64
	Status               domain.TransactionStatus
	RawResponse          []byte
	ProcessedAt          *time.Time
}

// FinalizeTransaction - параметры финализации pending-записи журнала.
// GatewayPaymentID заполняется, если провайдер сообщил идентификатор платежной
// сущности только в колбеке; пустое значение оставляет колонку как есть.
type FinalizeTransaction struct {
	Status           domain.TransactionStatus
	ProcessedAt      time.Time
	GatewayPaymentID string
}

// TransactionSums - агрегаты по завершенным транзакциям заказа в минорных единицах.
type TransactionSums struct {
	PaidAmount     int64
	RefundedAmount int64
}
