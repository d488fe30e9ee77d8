package pricing

import "github.com/fsdevblog/groph-pay/internal/domain"

// TaxFilter добавляет налог в базисных пунктах от текущей суммы.
type TaxFilter struct {
	RateBasisPoints int64
}

func (f TaxFilter) Name() string { return "tax" }

func (f TaxFilter) Apply(_ *domain.Order, amount int64) int64 {
	return amount + amount*f.RateBasisPoints/10000
}

// ShippingFilter добавляет фиксированную стоимость доставки.
// Заказы от FreeThreshold и выше доставляются бесплатно.
type ShippingFilter struct {
	Cost          int64
	FreeThreshold int64
}

func (f ShippingFilter) Name() string { return "shipping" }

func (f ShippingFilter) Apply(_ *domain.Order, amount int64) int64 {
	if f.FreeThreshold > 0 && amount >= f.FreeThreshold {
		return amount
	}
	return amount + f.Cost
}

// DiscountFilter вычитает скидку заказа.
type DiscountFilter struct{}

func (f DiscountFilter) Name() string { return "discount" }

func (f DiscountFilter) Apply(order *domain.Order, amount int64) int64 {
	return amount - order.Discount
}
