package repoargs

import "github.com/fsdevblog/groph-pay/internal/domain"

type CreateOrder struct {
	Number            string
	CustomerID        *int64
	Subtotal          int64
	Tax               int64
	ShippingCost      int64
	Discount          int64
	Total             int64
	Currency          string
	PaymentMethodCode string
	ShippingMethod    string
}

type UpdateOrderStatus struct {
	ID            int64
	Status        domain.OrderStatus
	PaymentStatus domain.PaymentStatus
}

type ListOrders struct {
	Limit  uint
	Offset uint
}
