package pgrepo

import (
	"context"

	"github.com/fsdevblog/groph-pay/internal/domain"
	"github.com/fsdevblog/groph-pay/pkg/uow"
)

const paymentMethodColumns = `id, created_at, updated_at, code, name, active, is_default, config, sort_order`

type PaymentMethodRepository struct {
	db uow.DBTX
}

func NewPaymentMethodRepository(db uow.DBTX) *PaymentMethodRepository {
	return &PaymentMethodRepository{db: db}
}

// GetActive возвращает активные способы оплаты в порядке sort_order.
// Читается один раз при старте для наполнения реестра шлюзов.
func (p *PaymentMethodRepository) GetActive(ctx context.Context) ([]domain.PaymentMethod, error) {
	rows, err := p.db.Query(ctx, `
		SELECT `+paymentMethodColumns+` FROM payment_methods
		WHERE active = TRUE
		ORDER BY sort_order ASC, id ASC`)
	if err != nil {
		return nil, convertErr(err, "getting active payment methods")
	}
	defer rows.Close()

	var methods []domain.PaymentMethod
	for rows.Next() {
		method, scanErr := scanPaymentMethod(rows)
		if scanErr != nil {
			return nil, convertErr(scanErr, "scanning payment method")
		}
		methods = append(methods, *method)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, convertErr(rowsErr, "getting active payment methods")
	}
	return methods, nil
}

func (p *PaymentMethodRepository) FindByCode(ctx context.Context, code string) (*domain.PaymentMethod, error) {
	row := p.db.QueryRow(ctx, `
		SELECT `+paymentMethodColumns+` FROM payment_methods WHERE code = $1`, code)
	method, err := scanPaymentMethod(row)
	if err != nil {
		return nil, convertErr(err, "finding payment method by code `%s`", code)
	}
	return method, nil
}

func scanPaymentMethod(row rowScanner) (*domain.PaymentMethod, error) {
	var method domain.PaymentMethod
	err := row.Scan(
		&method.ID, &method.CreatedAt, &method.UpdatedAt, &method.Code, &method.Name,
		&method.Active, &method.IsDefault, &method.Config, &method.SortOrder,
	)
	if err != nil {
		return nil, err
	}
	return &method, nil
}
