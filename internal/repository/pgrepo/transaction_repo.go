package pgrepo

import (
	"context"

	"github.com/fsdevblog/groph-pay/internal/domain"
	"github.com/fsdevblog/groph-pay/internal/repository/repoargs"
	"github.com/fsdevblog/groph-pay/pkg/uow"
)

const transactionColumns = `id, created_at, updated_at, order_id, type, gateway_code,
gateway_transaction_id, gateway_payment_id, amount, status, raw_response, processed_at`

// TransactionRepository - журнал платежных операций. Только вставки; единственный
// разрешенный UPDATE - однократная финализация pending-записи.
type TransactionRepository struct {
	db uow.DBTX
}

func NewTransactionRepository(db uow.DBTX) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Create добавляет запись в журнал. Дубликат пары (gateway_code, gateway_transaction_id)
// возвращает domain.ErrDuplicateKey - уникальный индекс БД служит точкой сериализации
// конкурентных колбеков.
func (t *TransactionRepository) Create(
	ctx context.Context,
	args repoargs.CreateTransaction,
) (*domain.Transaction, error) {
	row := t.db.QueryRow(ctx, `
		INSERT INTO transactions (order_id, type, gateway_code, gateway_transaction_id,
			gateway_payment_id, amount, status, raw_response, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+transactionColumns,
		args.OrderID, args.Type, args.GatewayCode, args.GatewayTransactionID,
		args.GatewayPaymentID, args.Amount, args.Status, args.RawResponse, args.ProcessedAt,
	)
	trans, err := scanTransaction(row)
	if err != nil {
		return nil, convertErr(err, "creating %s transaction for order %d", args.Type, args.OrderID)
	}
	return trans, nil
}

func (t *TransactionRepository) FindByGatewayTxID(
	ctx context.Context,
	gatewayCode string,
	gatewayTxID string,
) (*domain.Transaction, error) {
	row := t.db.QueryRow(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE gateway_code = $1 AND gateway_transaction_id = $2`, gatewayCode, gatewayTxID)
	trans, err := scanTransaction(row)
	if err != nil {
		return nil, convertErr(err, "finding transaction by gateway tx id `%s/%s`", gatewayCode, gatewayTxID)
	}
	return trans, nil
}

// Finalize проставляет конечный статус и processed_at у pending-записи. Условие status = 'pending'
// гарантирует однократность: повторная финализация вернет domain.ErrRecordNotFound.
func (t *TransactionRepository) Finalize(
	ctx context.Context,
	id int64,
	args repoargs.FinalizeTransaction,
) (*domain.Transaction, error) {
	row := t.db.QueryRow(ctx, `
		UPDATE transactions SET status = $2, processed_at = $3, updated_at = now(),
			gateway_payment_id = COALESCE(NULLIF($4, ''), gateway_payment_id)
		WHERE id = $1 AND status = 'pending'
		RETURNING `+transactionColumns,
		id, args.Status, args.ProcessedAt, args.GatewayPaymentID,
	)
	trans, err := scanTransaction(row)
	if err != nil {
		return nil, convertErr(err, "finalizing transaction with id %d", id)
	}
	return trans, nil
}

// SumCompletedByType возвращает суммы завершенных платежей и возвратов по заказу.
func (t *TransactionRepository) SumCompletedByType(
	ctx context.Context,
	orderID int64,
) (*repoargs.TransactionSums, error) {
	rows, err := t.db.Query(ctx, `
		SELECT type, COALESCE(SUM(amount), 0) FROM transactions
		WHERE order_id = $1 AND status = 'completed' AND type IN ('payment', 'capture', 'refund')
		GROUP BY type`, orderID)
	if err != nil {
		return nil, convertErr(err, "summing transactions for order %d", orderID)
	}
	defer rows.Close()

	var sums repoargs.TransactionSums
	for rows.Next() {
		var transType domain.TransactionType
		var sum int64
		if scanErr := rows.Scan(&transType, &sum); scanErr != nil {
			return nil, convertErr(scanErr, "scanning transaction sums for order %d", orderID)
		}
		switch transType {
		case domain.TransactionTypePayment, domain.TransactionTypeCapture:
			sums.PaidAmount += sum
		case domain.TransactionTypeRefund:
			sums.RefundedAmount += sum
		case domain.TransactionTypeAuthorization:
		}
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, convertErr(rowsErr, "summing transactions for order %d", orderID)
	}
	return &sums, nil
}

// GetByOrderID возвращает журнал заказа в хронологическом порядке.
func (t *TransactionRepository) GetByOrderID(ctx context.Context, orderID int64) ([]domain.Transaction, error) {
	rows, err := t.db.Query(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE order_id = $1
		ORDER BY created_at ASC, id ASC`, orderID)
	if err != nil {
		return nil, convertErr(err, "getting transactions for order %d", orderID)
	}
	defer rows.Close()

	var transactions []domain.Transaction
	for rows.Next() {
		trans, scanErr := scanTransaction(rows)
		if scanErr != nil {
			return nil, convertErr(scanErr, "scanning transaction for order %d", orderID)
		}
		transactions = append(transactions, *trans)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, convertErr(rowsErr, "getting transactions for order %d", orderID)
	}
	return transactions, nil
}

// FindLatestByType возвращает последнюю запись заданного типа и статуса по заказу.
// Используется, например, чтобы найти завершенный платеж для возврата.
func (t *TransactionRepository) FindLatestByType(
	ctx context.Context,
	orderID int64,
	transType domain.TransactionType,
	status domain.TransactionStatus,
) (*domain.Transaction, error) {
	row := t.db.QueryRow(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE order_id = $1 AND type = $2 AND status = $3
		ORDER BY created_at DESC, id DESC
		LIMIT 1`, orderID, transType, status)
	trans, err := scanTransaction(row)
	if err != nil {
		return nil, convertErr(err, "finding latest %s transaction for order %d", transType, orderID)
	}
	return trans, nil
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var trans domain.Transaction
	err := row.Scan(
		&trans.ID, &trans.CreatedAt, &trans.UpdatedAt, &trans.OrderID, &trans.Type,
		&trans.GatewayCode, &trans.GatewayTransactionID, &trans.GatewayPaymentID,
		&trans.Amount, &trans.Status, &trans.RawResponse, &trans.ProcessedAt,
	)
	if err != nil {
		return nil, err
	}
	return &trans, nil
}
