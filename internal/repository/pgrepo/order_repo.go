package pgrepo

import (
	"context"
	"time"

	"github.com/fsdevblog/groph-pay/internal/domain"
	"github.com/fsdevblog/groph-pay/internal/repository/repoargs"
	"github.com/fsdevblog/groph-pay/pkg/uow"
)

const orderColumns = `id, created_at, updated_at, deleted_at, number, customer_id, status, payment_status,
subtotal, tax, shipping_cost, discount, total, currency, payment_method_code, shipping_method,
tracking_number, verify_attempts`

type OrderRepository struct {
	db uow.DBTX
}

func NewOrderRepository(db uow.DBTX) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create вставляет новый заказ. При конфликте номера возвращает domain.ErrDuplicateKey.
func (o *OrderRepository) Create(ctx context.Context, args repoargs.CreateOrder) (*domain.Order, error) {
	row := o.db.QueryRow(ctx, `
		INSERT INTO orders (number, customer_id, subtotal, tax, shipping_cost, discount, total,
			currency, payment_method_code, shipping_method)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+orderColumns,
		args.Number, args.CustomerID, args.Subtotal, args.Tax, args.ShippingCost, args.Discount,
		args.Total, args.Currency, args.PaymentMethodCode, args.ShippingMethod,
	)
	order, err := scanOrder(row)
	if err != nil {
		return nil, convertErr(err, "creating order with number `%s`", args.Number)
	}
	return order, nil
}

func (o *OrderRepository) FindByNumber(ctx context.Context, number string) (*domain.Order, error) {
	row := o.db.QueryRow(ctx, `
		SELECT `+orderColumns+` FROM orders WHERE number = $1 AND deleted_at IS NULL`, number)
	order, err := scanOrder(row)
	if err != nil {
		return nil, convertErr(err, "finding order by number `%s`", number)
	}
	return order, nil
}

// FindByNumberForUpdate читает заказ под блокировкой строки. Используется внутри uow-транзакций
// как точка взаимного исключения для переходов конечного автомата по одному заказу.
func (o *OrderRepository) FindByNumberForUpdate(ctx context.Context, number string) (*domain.Order, error) {
	row := o.db.QueryRow(ctx, `
		SELECT `+orderColumns+` FROM orders WHERE number = $1 AND deleted_at IS NULL FOR UPDATE`, number)
	order, err := scanOrder(row)
	if err != nil {
		return nil, convertErr(err, "locking order by number `%s`", number)
	}
	return order, nil
}

func (o *OrderRepository) UpdateStatus(ctx context.Context, args repoargs.UpdateOrderStatus) (*domain.Order, error) {
	row := o.db.QueryRow(ctx, `
		UPDATE orders SET status = $2, payment_status = $3, updated_at = now()
		WHERE id = $1
		RETURNING `+orderColumns,
		args.ID, args.Status, args.PaymentStatus,
	)
	order, err := scanOrder(row)
	if err != nil {
		return nil, convertErr(err, "updating status of order with id %d", args.ID)
	}
	return order, nil
}

// GetAwaitingVerification возвращает заказы в awaiting_payment, не обновлявшиеся с cutoff.
// По ним фоновый обработчик опрашивает шлюзы (verify-fallback на случай потерянных колбеков).
func (o *OrderRepository) GetAwaitingVerification(
	ctx context.Context,
	cutoff time.Time,
	limit uint,
) ([]domain.Order, error) {
	rows, err := o.db.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE status = 'awaiting_payment' AND deleted_at IS NULL AND updated_at < $1
		ORDER BY updated_at ASC
		LIMIT $2`, cutoff, int64(limit))
	if err != nil {
		return nil, convertErr(err, "getting orders awaiting verification")
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		order, scanErr := scanOrder(rows)
		if scanErr != nil {
			return nil, convertErr(scanErr, "scanning order awaiting verification")
		}
		orders = append(orders, *order)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, convertErr(rowsErr, "getting orders awaiting verification")
	}
	return orders, nil
}

func (o *OrderRepository) IncrementVerifyAttempts(ctx context.Context, orderIDs []int64) error {
	if len(orderIDs) == 0 {
		return nil
	}
	_, err := o.db.Exec(ctx, `
		UPDATE orders SET verify_attempts = verify_attempts + 1, updated_at = now()
		WHERE id = ANY($1)`, orderIDs)
	if err != nil {
		return convertErr(err, "incrementing verify attempts for orders with ids `%v`", orderIDs)
	}
	return nil
}

// SoftDelete помечает заказ удаленным. Физическое удаление заказов не предусмотрено:
// журнал платежей - финансовый аудит.
func (o *OrderRepository) SoftDelete(ctx context.Context, id int64) error {
	tag, err := o.db.Exec(ctx, `
		UPDATE orders SET deleted_at = now(), updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return convertErr(err, "soft deleting order with id %d", id)
	}
	if tag.RowsAffected() == 0 {
		return convertErr(errNoRowsAffected, "soft deleting order with id %d", id)
	}
	return nil
}

// List возвращает заказы, отсортированные по дате создания по убыванию.
func (o *OrderRepository) List(ctx context.Context, args repoargs.ListOrders) ([]domain.Order, error) {
	rows, err := o.db.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, int64(args.Limit), int64(args.Offset))
	if err != nil {
		return nil, convertErr(err, "listing orders")
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		order, scanErr := scanOrder(rows)
		if scanErr != nil {
			return nil, convertErr(scanErr, "scanning order")
		}
		orders = append(orders, *order)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, convertErr(rowsErr, "listing orders")
	}
	return orders, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var order domain.Order
	err := row.Scan(
		&order.ID, &order.CreatedAt, &order.UpdatedAt, &order.DeletedAt, &order.Number,
		&order.CustomerID, &order.Status, &order.PaymentStatus, &order.Subtotal, &order.Tax,
		&order.ShippingCost, &order.Discount, &order.Total, &order.Currency,
		&order.PaymentMethodCode, &order.ShippingMethod, &order.TrackingNumber,
		&order.VerifyAttempts,
	)
	if err != nil {
		return nil, err
	}
	return &order, nil
}
