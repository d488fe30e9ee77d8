package gateway

import (
	"fmt"

	"github.com/fsdevblog/groph-pay/internal/domain"
)

// Registry хранит зарегистрированные адаптеры. Наполняется один раз при старте процесса,
// после старта только читается - блокировки не нужны.
type Registry struct {
	adapters map[string]Adapter
	order    []string
}

func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[string]Adapter),
	}
}

// Register добавляет адаптер. Повторная регистрация кода -
// ошибка *domain.DuplicateGatewayCodeError.
func (r *Registry) Register(a Adapter) error {
	if _, ok := r.adapters[a.Code()]; ok {
		return &domain.DuplicateGatewayCodeError{Code: a.Code()}
	}
	r.adapters[a.Code()] = a
	r.order = append(r.order, a.Code())
	return nil
}

// Resolve подбирает адаптер для кода способа оплаты в порядке регистрации.
// Если подходящего нет или он не сконфигурирован - domain.ErrNoGatewayConfigured.
func (r *Registry) Resolve(methodCode string) (Adapter, error) {
	for _, code := range r.order {
		a := r.adapters[code]
		if !a.Supports(methodCode) {
			continue
		}
		if !a.Configured() {
			return nil, fmt.Errorf("gateway %q matches method %q but is not configured: %w",
				a.Code(), methodCode, domain.ErrNoGatewayConfigured)
		}
		return a, nil
	}
	return nil, fmt.Errorf("no gateway for method %q: %w", methodCode, domain.ErrNoGatewayConfigured)
}

// Codes возвращает коды зарегистрированных адаптеров в порядке регистрации.
func (r *Registry) Codes() []string {
	codes := make([]string, len(r.order))
	copy(codes, r.order)
	return codes
}
