// Package pricing содержит цепочку модификаторов суммы заказа.
// Фильтры применяются в порядке добавления, каждый получает результат предыдущего.
package pricing

import "github.com/fsdevblog/groph-pay/internal/domain"

// Filter - один шаг ценовой цепочки. Amount на входе и выходе в минорных единицах.
type Filter interface {
	Name() string
	Apply(order *domain.Order, amount int64) int64
}

// Chain применяет фильтры последовательно. Итог никогда не уходит ниже нуля.
type Chain struct {
	filters []Filter
}

func NewChain(filters ...Filter) *Chain {
	return &Chain{filters: filters}
}

func (c *Chain) Append(f Filter) {
	c.filters = append(c.filters, f)
}

func (c *Chain) Apply(order *domain.Order, amount int64) int64 {
	total, _ := c.ApplyDetailed(order, amount)
	return total
}

// Step - вклад одного фильтра в итоговую сумму.
type Step struct {
	Name  string
	Delta int64
}

// ApplyDetailed возвращает итог и вклад каждого фильтра. По имени шага вызывающая
// сторона раскладывает дельты по полям заказа (tax, shipping, discount).
func (c *Chain) ApplyDetailed(order *domain.Order, amount int64) (int64, []Step) {
	steps := make([]Step, 0, len(c.filters))
	for _, f := range c.filters {
		next := f.Apply(order, amount)
		steps = append(steps, Step{Name: f.Name(), Delta: next - amount})
		amount = next
	}
	if amount < 0 {
		amount = 0
	}
	return amount, steps
}
