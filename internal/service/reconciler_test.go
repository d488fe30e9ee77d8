package service

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/fsdevblog/groph-pay/internal/domain"
	"github.com/fsdevblog/groph-pay/internal/gateway"
	gwmocks "github.com/fsdevblog/groph-pay/internal/gateway/mocks"
	"github.com/fsdevblog/groph-pay/internal/repository/repoargs"
	"github.com/fsdevblog/groph-pay/internal/service/mocks"
	"github.com/fsdevblog/groph-pay/pkg/uow"
	uowmocks "github.com/fsdevblog/groph-pay/pkg/uow/mocks"
	"github.com/golang/mock/gomock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"
)

type ReconcilerTestSuite struct {
	suite.Suite
	mockCtrl      *gomock.Controller
	mockUOW       *uowmocks.MockUOW
	mockTX        *uowmocks.MockTX
	mockOrderRepo *mocks.MockOrderRepository
	mockTransRepo *mocks.MockTransactionRepository
	mockGateways  *mocks.MockGatewayResolver
	reconciler    *Reconciler
}

func TestReconcilerSuite(t *testing.T) {
	suite.Run(t, new(ReconcilerTestSuite))
}

func (s *ReconcilerTestSuite) SetupTest() {
	s.mockCtrl = gomock.NewController(s.T())
	s.mockUOW = uowmocks.NewMockUOW(s.mockCtrl)
	s.mockTX = uowmocks.NewMockTX(s.mockCtrl)
	s.mockOrderRepo = mocks.NewMockOrderRepository(s.mockCtrl)
	s.mockTransRepo = mocks.NewMockTransactionRepository(s.mockCtrl)
	s.mockGateways = mocks.NewMockGatewayResolver(s.mockCtrl)

	s.mockUOW.EXPECT().
		GetRepository(uow.RepositoryName(repoargs.TransactionRepoName)).
		Return(s.mockTransRepo, nil).AnyTimes()

	log := logrus.New()
	log.SetOutput(io.Discard)

	var err error
	s.reconciler, err = NewReconciler(s.mockUOW, s.mockGateways, logrus.NewEntry(log))
	s.Require().NoError(err)
}

func (s *ReconcilerTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

// expectDo прогоняет замыкание uow.Do через mockTX, как это делает реальная транзакция.
func (s *ReconcilerTestSuite) expectDo() {
	s.mockUOW.EXPECT().Do(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, fn func(context.Context, uow.TX) error) error {
			return fn(ctx, s.mockTX)
		})
}

func (s *ReconcilerTestSuite) expectTxRepos() {
	s.mockTX.EXPECT().
		Get(uow.RepositoryName(repoargs.OrderRepoName)).
		Return(s.mockOrderRepo, nil).AnyTimes()
	s.mockTX.EXPECT().
		Get(uow.RepositoryName(repoargs.TransactionRepoName)).
		Return(s.mockTransRepo, nil).AnyTimes()
}

func (s *ReconcilerTestSuite) TestApply_PaymentCompleted() {
	order := domain.Order{
		ID:            1,
		Number:        "ord-1",
		Status:        domain.OrderStatusAwaitingPayment,
		PaymentStatus: domain.PaymentStatusPending,
		Total:         11500,
	}
	res := &gateway.CallbackResult{
		OrderNumber:          order.Number,
		GatewayCode:          "stripe",
		GatewayTransactionID: "cs_123",
		Type:                 domain.TransactionTypePayment,
		Status:               domain.TransactionStatusCompleted,
		Amount:               order.Total,
	}

	// события с таким идентификатором еще не было: ни на быстром пути, ни в транзакции.
	s.mockTransRepo.EXPECT().
		FindByGatewayTxID(gomock.Any(), res.GatewayCode, res.GatewayTransactionID).
		Return(nil, domain.ErrRecordNotFound).Times(2)

	s.expectDo()
	s.expectTxRepos()

	s.mockOrderRepo.EXPECT().
		FindByNumberForUpdate(gomock.Any(), order.Number).
		Return(&order, nil)

	created := domain.Transaction{ID: 7, OrderID: order.ID, Status: domain.TransactionStatusCompleted}
	s.mockTransRepo.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, args repoargs.CreateTransaction) (*domain.Transaction, error) {
			s.Equal(order.ID, args.OrderID)
			s.Equal(domain.TransactionTypePayment, args.Type)
			s.Equal(domain.TransactionStatusCompleted, args.Status)
			s.Equal(res.Amount, args.Amount)
			s.NotNil(args.ProcessedAt)
			return &created, nil
		})

	s.mockOrderRepo.EXPECT().
		UpdateStatus(gomock.Any(), repoargs.UpdateOrderStatus{
			ID:            order.ID,
			Status:        domain.OrderStatusProcessing,
			PaymentStatus: domain.PaymentStatusPaid,
		}).
		DoAndReturn(func(_ context.Context, args repoargs.UpdateOrderStatus) (*domain.Order, error) {
			updated := order
			updated.Status = args.Status
			updated.PaymentStatus = args.PaymentStatus
			return &updated, nil
		})

	outcome, err := s.reconciler.Apply(s.T().Context(), res)
	s.Require().NoError(err)

	s.True(outcome.Applied)
	s.False(outcome.Duplicate)
	s.False(outcome.StateConflict)
	s.Equal(domain.OrderStatusProcessing, outcome.Order.Status)
	s.Equal(domain.PaymentStatusPaid, outcome.Order.PaymentStatus)
}

func (s *ReconcilerTestSuite) TestApply_PaymentCompletedOnPendingOrder() {
	// мгновенные шлюзы приносят завершенный платеж до перевода заказа в
	// awaiting_payment: заказ должен дойти до processing/paid без конфликта.
	order := domain.Order{
		ID:            1,
		Number:        "ord-1",
		Status:        domain.OrderStatusPending,
		PaymentStatus: domain.PaymentStatusPending,
		Total:         2000,
	}
	res := &gateway.CallbackResult{
		OrderNumber:          order.Number,
		GatewayCode:          "cod",
		GatewayTransactionID: "cod-ord-1",
		Type:                 domain.TransactionTypePayment,
		Status:               domain.TransactionStatusCompleted,
		Amount:               order.Total,
	}

	s.mockTransRepo.EXPECT().
		FindByGatewayTxID(gomock.Any(), res.GatewayCode, res.GatewayTransactionID).
		Return(nil, domain.ErrRecordNotFound).Times(2)

	s.expectDo()
	s.expectTxRepos()

	s.mockOrderRepo.EXPECT().
		FindByNumberForUpdate(gomock.Any(), order.Number).
		Return(&order, nil)
	s.mockTransRepo.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		Return(&domain.Transaction{ID: 8, Status: domain.TransactionStatusCompleted}, nil)

	s.mockOrderRepo.EXPECT().
		UpdateStatus(gomock.Any(), repoargs.UpdateOrderStatus{
			ID:            order.ID,
			Status:        domain.OrderStatusProcessing,
			PaymentStatus: domain.PaymentStatusPaid,
		}).
		Return(&domain.Order{
			ID:            order.ID,
			Status:        domain.OrderStatusProcessing,
			PaymentStatus: domain.PaymentStatusPaid,
		}, nil)

	outcome, err := s.reconciler.Apply(s.T().Context(), res)
	s.Require().NoError(err)

	s.True(outcome.Applied)
	s.False(outcome.StateConflict)
	s.Equal(domain.OrderStatusProcessing, outcome.Order.Status)
	s.Equal(domain.PaymentStatusPaid, outcome.Order.PaymentStatus)
}

func (s *ReconcilerTestSuite) TestApply_DuplicateDelivery() {
	existing := domain.Transaction{ID: 7, Status: domain.TransactionStatusCompleted}

	// терминальная запись уже есть: повторная доставка не открывает транзакцию вовсе.
	s.mockTransRepo.EXPECT().
		FindByGatewayTxID(gomock.Any(), "stripe", "cs_123").
		Return(&existing, nil)

	outcome, err := s.reconciler.Apply(s.T().Context(), &gateway.CallbackResult{
		OrderNumber:          "ord-1",
		GatewayCode:          "stripe",
		GatewayTransactionID: "cs_123",
		Type:                 domain.TransactionTypePayment,
		Status:               domain.TransactionStatusCompleted,
	})
	s.Require().NoError(err)

	s.True(outcome.Duplicate)
	s.False(outcome.Applied)
	s.Equal(&existing, outcome.Transaction)
}

func (s *ReconcilerTestSuite) TestApply_FinalizesPending() {
	order := domain.Order{
		ID:            1,
		Number:        "ord-1",
		Status:        domain.OrderStatusAwaitingPayment,
		PaymentStatus: domain.PaymentStatusPending,
		Total:         5000,
	}
	pending := domain.Transaction{
		ID:                   3,
		OrderID:              order.ID,
		GatewayCode:          "stripe",
		GatewayTransactionID: "cs_123",
		Status:               domain.TransactionStatusPending,
	}
	res := &gateway.CallbackResult{
		OrderNumber:          order.Number,
		GatewayCode:          "stripe",
		GatewayTransactionID: "cs_123",
		GatewayPaymentID:     "pi_123",
		Type:                 domain.TransactionTypePayment,
		Status:               domain.TransactionStatusCompleted,
		Amount:               order.Total,
	}

	s.mockTransRepo.EXPECT().
		FindByGatewayTxID(gomock.Any(), res.GatewayCode, res.GatewayTransactionID).
		Return(&pending, nil).Times(2)

	s.expectDo()
	s.expectTxRepos()

	s.mockOrderRepo.EXPECT().
		FindByNumberForUpdate(gomock.Any(), order.Number).
		Return(&order, nil)

	// колбек доносит идентификатор платежной сущности, он дописывается в журнал.
	finalized := pending
	finalized.Status = domain.TransactionStatusCompleted
	finalized.GatewayPaymentID = res.GatewayPaymentID
	s.mockTransRepo.EXPECT().
		Finalize(gomock.Any(), pending.ID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ int64, args repoargs.FinalizeTransaction) (*domain.Transaction, error) {
			s.Equal(domain.TransactionStatusCompleted, args.Status)
			s.Equal("pi_123", args.GatewayPaymentID)
			s.False(args.ProcessedAt.IsZero())
			return &finalized, nil
		})

	s.mockOrderRepo.EXPECT().
		UpdateStatus(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, args repoargs.UpdateOrderStatus) (*domain.Order, error) {
			updated := order
			updated.Status = args.Status
			updated.PaymentStatus = args.PaymentStatus
			return &updated, nil
		})

	outcome, err := s.reconciler.Apply(s.T().Context(), res)
	s.Require().NoError(err)

	s.True(outcome.Applied)
	s.Equal(domain.TransactionStatusCompleted, outcome.Transaction.Status)
	s.Equal(domain.OrderStatusProcessing, outcome.Order.Status)
}

func (s *ReconcilerTestSuite) TestApply_PaymentFailedKeepsOrderAwaiting() {
	order := domain.Order{
		ID:            1,
		Number:        "ord-1",
		Status:        domain.OrderStatusAwaitingPayment,
		PaymentStatus: domain.PaymentStatusPending,
	}
	res := &gateway.CallbackResult{
		OrderNumber:          order.Number,
		GatewayCode:          "razorpay",
		GatewayTransactionID: "pay_1",
		Type:                 domain.TransactionTypePayment,
		Status:               domain.TransactionStatusFailed,
	}

	s.mockTransRepo.EXPECT().
		FindByGatewayTxID(gomock.Any(), res.GatewayCode, res.GatewayTransactionID).
		Return(nil, domain.ErrRecordNotFound).Times(2)

	s.expectDo()
	s.expectTxRepos()

	s.mockOrderRepo.EXPECT().
		FindByNumberForUpdate(gomock.Any(), order.Number).
		Return(&order, nil)
	s.mockTransRepo.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		Return(&domain.Transaction{ID: 9, Status: domain.TransactionStatusFailed}, nil)

	// заказ остается в awaiting_payment, проваливается только платежный статус.
	s.mockOrderRepo.EXPECT().
		UpdateStatus(gomock.Any(), repoargs.UpdateOrderStatus{
			ID:            order.ID,
			Status:        domain.OrderStatusAwaitingPayment,
			PaymentStatus: domain.PaymentStatusFailed,
		}).
		Return(&domain.Order{
			ID:            order.ID,
			Status:        domain.OrderStatusAwaitingPayment,
			PaymentStatus: domain.PaymentStatusFailed,
		}, nil)

	outcome, err := s.reconciler.Apply(s.T().Context(), res)
	s.Require().NoError(err)

	s.True(outcome.Applied)
	s.Equal(domain.OrderStatusAwaitingPayment, outcome.Order.Status)
	s.Equal(domain.PaymentStatusFailed, outcome.Order.PaymentStatus)
}

func (s *ReconcilerTestSuite) TestApply_RefundPartial() {
	s.testRefund(&repoargs.TransactionSums{PaidAmount: 10000, RefundedAmount: 3000},
		domain.PaymentStatusPartiallyRefunded)
}

func (s *ReconcilerTestSuite) TestApply_RefundFull() {
	s.testRefund(&repoargs.TransactionSums{PaidAmount: 10000, RefundedAmount: 10000},
		domain.PaymentStatusRefunded)
}

func (s *ReconcilerTestSuite) testRefund(sums *repoargs.TransactionSums, want domain.PaymentStatus) {
	order := domain.Order{
		ID:            1,
		Number:        "ord-1",
		Status:        domain.OrderStatusProcessing,
		PaymentStatus: domain.PaymentStatusPaid,
		Total:         10000,
	}
	res := &gateway.CallbackResult{
		OrderNumber:          order.Number,
		GatewayCode:          "stripe",
		GatewayTransactionID: "re_1",
		Type:                 domain.TransactionTypeRefund,
		Status:               domain.TransactionStatusCompleted,
		Amount:               sums.RefundedAmount,
	}

	s.mockTransRepo.EXPECT().
		FindByGatewayTxID(gomock.Any(), res.GatewayCode, res.GatewayTransactionID).
		Return(nil, domain.ErrRecordNotFound).Times(2)

	s.expectDo()
	s.expectTxRepos()

	s.mockOrderRepo.EXPECT().
		FindByNumberForUpdate(gomock.Any(), order.Number).
		Return(&order, nil)
	s.mockTransRepo.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		Return(&domain.Transaction{ID: 11, Type: domain.TransactionTypeRefund}, nil)
	s.mockTransRepo.EXPECT().
		SumCompletedByType(gomock.Any(), order.ID).
		Return(sums, nil)

	s.mockOrderRepo.EXPECT().
		UpdateStatus(gomock.Any(), repoargs.UpdateOrderStatus{
			ID:            order.ID,
			Status:        domain.OrderStatusProcessing,
			PaymentStatus: want,
		}).
		Return(&domain.Order{ID: order.ID, Status: order.Status, PaymentStatus: want}, nil)

	outcome, err := s.reconciler.Apply(s.T().Context(), res)
	s.Require().NoError(err)

	s.True(outcome.Applied)
	s.Equal(want, outcome.Order.PaymentStatus)
}

func (s *ReconcilerTestSuite) TestApply_ConcurrentInsertIsDuplicate() {
	s.mockTransRepo.EXPECT().
		FindByGatewayTxID(gomock.Any(), "stripe", "cs_123").
		Return(nil, domain.ErrRecordNotFound)

	// конкурентная доставка успела вставить запись первой: транзакция падает
	// на уникальном индексе.
	s.mockUOW.EXPECT().Do(gomock.Any(), gomock.Any()).Return(domain.ErrDuplicateKey)

	outcome, err := s.reconciler.Apply(s.T().Context(), &gateway.CallbackResult{
		OrderNumber:          "ord-1",
		GatewayCode:          "stripe",
		GatewayTransactionID: "cs_123",
		Type:                 domain.TransactionTypePayment,
		Status:               domain.TransactionStatusCompleted,
	})
	s.Require().NoError(err)

	s.True(outcome.Duplicate)
	s.False(outcome.Applied)
}

func (s *ReconcilerTestSuite) TestApply_LateEventKeepsLedgerEntry() {
	// событие оплаты пришло по уже отмененному заказу: запись журнала фиксируется,
	// статус заказа не трогается.
	order := domain.Order{
		ID:            1,
		Number:        "ord-1",
		Status:        domain.OrderStatusCancelled,
		PaymentStatus: domain.PaymentStatusPending,
		Total:         5000,
	}
	res := &gateway.CallbackResult{
		OrderNumber:          order.Number,
		GatewayCode:          "stripe",
		GatewayTransactionID: "cs_late",
		Type:                 domain.TransactionTypePayment,
		Status:               domain.TransactionStatusCompleted,
		Amount:               order.Total,
	}

	s.mockTransRepo.EXPECT().
		FindByGatewayTxID(gomock.Any(), res.GatewayCode, res.GatewayTransactionID).
		Return(nil, domain.ErrRecordNotFound).Times(2)

	s.expectDo()
	s.expectTxRepos()

	s.mockOrderRepo.EXPECT().
		FindByNumberForUpdate(gomock.Any(), order.Number).
		Return(&order, nil)
	s.mockTransRepo.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		Return(&domain.Transaction{ID: 13}, nil)

	s.mockOrderRepo.EXPECT().
		UpdateStatus(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, args repoargs.UpdateOrderStatus) (*domain.Order, error) {
			s.Equal(domain.OrderStatusCancelled, args.Status)
			return &domain.Order{ID: order.ID, Status: args.Status, PaymentStatus: args.PaymentStatus}, nil
		})

	outcome, err := s.reconciler.Apply(s.T().Context(), res)
	s.Require().NoError(err)

	s.True(outcome.Applied)
	s.True(outcome.StateConflict)
	s.Equal(domain.OrderStatusCancelled, outcome.Order.Status)
}

func (s *ReconcilerTestSuite) TestHandleCallback_InvalidSignature() {
	adapter := gwmocks.NewMockAdapter(s.mockCtrl)
	s.mockGateways.EXPECT().Resolve("stripe").Return(adapter, nil)
	adapter.EXPECT().
		HandleCallback(gomock.Any()).
		Return(nil, domain.ErrInvalidSignature)

	outcome, err := s.reconciler.HandleCallback(s.T().Context(), "stripe", &gateway.CallbackRequest{
		Body: []byte(`{}`),
	})
	s.Require().ErrorIs(err, domain.ErrInvalidSignature)
	s.Nil(outcome)
}

func (s *ReconcilerTestSuite) TestHandleCallback_IgnoredEvent() {
	adapter := gwmocks.NewMockAdapter(s.mockCtrl)
	s.mockGateways.EXPECT().Resolve("stripe").Return(adapter, nil)
	adapter.EXPECT().
		HandleCallback(gomock.Any()).
		Return(nil, gateway.ErrEventIgnored)

	outcome, err := s.reconciler.HandleCallback(s.T().Context(), "stripe", &gateway.CallbackRequest{
		Body: []byte(`{}`),
	})
	s.Require().NoError(err)

	s.True(outcome.Ignored)
	s.False(outcome.Applied)
}

func (s *ReconcilerTestSuite) TestHandleCallback_UnknownGateway() {
	s.mockGateways.EXPECT().Resolve("unknown").Return(nil, domain.ErrNoGatewayConfigured)

	_, err := s.reconciler.HandleCallback(s.T().Context(), "unknown", &gateway.CallbackRequest{})
	s.Require().ErrorIs(err, domain.ErrNoGatewayConfigured)
}

func (s *ReconcilerTestSuite) TestHandleCallback_AppliesResult() {
	adapter := gwmocks.NewMockAdapter(s.mockCtrl)
	s.mockGateways.EXPECT().Resolve("cod").Return(adapter, nil)

	order := domain.Order{
		ID:            1,
		Number:        "ord-1",
		Status:        domain.OrderStatusAwaitingPayment,
		PaymentStatus: domain.PaymentStatusPending,
		Total:         2000,
	}
	res := gateway.CallbackResult{
		OrderNumber:          order.Number,
		GatewayCode:          "cod",
		GatewayTransactionID: "cod-ord-1",
		Type:                 domain.TransactionTypePayment,
		Status:               domain.TransactionStatusCompleted,
		Amount:               order.Total,
	}
	adapter.EXPECT().HandleCallback(gomock.Any()).Return(&res, nil)

	s.mockTransRepo.EXPECT().
		FindByGatewayTxID(gomock.Any(), res.GatewayCode, res.GatewayTransactionID).
		Return(nil, domain.ErrRecordNotFound).Times(2)

	s.expectDo()
	s.expectTxRepos()

	s.mockOrderRepo.EXPECT().
		FindByNumberForUpdate(gomock.Any(), order.Number).
		Return(&order, nil)
	now := time.Now()
	s.mockTransRepo.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		Return(&domain.Transaction{ID: 5, ProcessedAt: &now}, nil)
	s.mockOrderRepo.EXPECT().
		UpdateStatus(gomock.Any(), gomock.Any()).
		Return(&domain.Order{
			ID:            order.ID,
			Status:        domain.OrderStatusProcessing,
			PaymentStatus: domain.PaymentStatusPaid,
		}, nil)

	outcome, err := s.reconciler.HandleCallback(s.T().Context(), "cod", &gateway.CallbackRequest{
		Body: []byte(`{}`),
	})
	s.Require().NoError(err)

	s.True(outcome.Applied)
	s.Equal(domain.PaymentStatusPaid, outcome.Order.PaymentStatus)
}
