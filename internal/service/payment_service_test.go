package service

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
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

type PaymentServiceTestSuite struct {
	suite.Suite
	mockCtrl      *gomock.Controller
	mockUOW       *uowmocks.MockUOW
	mockTX        *uowmocks.MockTX
	mockOrderRepo *mocks.MockOrderRepository
	mockTransRepo *mocks.MockTransactionRepository
	mockGateways  *mocks.MockGatewayResolver
	mockAdapter   *gwmocks.MockAdapter
	service       *PaymentService
}

func TestPaymentServiceSuite(t *testing.T) {
	suite.Run(t, new(PaymentServiceTestSuite))
}

func (s *PaymentServiceTestSuite) SetupTest() {
	s.mockCtrl = gomock.NewController(s.T())
	s.mockUOW = uowmocks.NewMockUOW(s.mockCtrl)
	s.mockTX = uowmocks.NewMockTX(s.mockCtrl)
	s.mockOrderRepo = mocks.NewMockOrderRepository(s.mockCtrl)
	s.mockTransRepo = mocks.NewMockTransactionRepository(s.mockCtrl)
	s.mockGateways = mocks.NewMockGatewayResolver(s.mockCtrl)
	s.mockAdapter = gwmocks.NewMockAdapter(s.mockCtrl)

	s.mockUOW.EXPECT().
		GetRepository(uow.RepositoryName(repoargs.OrderRepoName)).
		Return(s.mockOrderRepo, nil).AnyTimes()
	s.mockUOW.EXPECT().
		GetRepository(uow.RepositoryName(repoargs.TransactionRepoName)).
		Return(s.mockTransRepo, nil).AnyTimes()

	log := logrus.New()
	log.SetOutput(io.Discard)
	reconciler, reconcilerErr := NewReconciler(s.mockUOW, s.mockGateways, logrus.NewEntry(log))
	s.Require().NoError(reconcilerErr)

	var err error
	s.service, err = NewPaymentService(s.mockUOW, s.mockGateways, reconciler, time.Second)
	s.Require().NoError(err)
}

func (s *PaymentServiceTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

func (s *PaymentServiceTestSuite) expectDo() {
	s.mockUOW.EXPECT().Do(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, fn func(context.Context, uow.TX) error) error {
			return fn(ctx, s.mockTX)
		})
}

func (s *PaymentServiceTestSuite) expectTxRepos() {
	s.mockTX.EXPECT().
		Get(uow.RepositoryName(repoargs.OrderRepoName)).
		Return(s.mockOrderRepo, nil).AnyTimes()
	s.mockTX.EXPECT().
		Get(uow.RepositoryName(repoargs.TransactionRepoName)).
		Return(s.mockTransRepo, nil).AnyTimes()
}

func pendingOrder() domain.Order {
	return domain.Order{
		ID:                1,
		Number:            gofakeit.UUID(),
		Status:            domain.OrderStatusPending,
		PaymentStatus:     domain.PaymentStatusPending,
		Total:             11500,
		Currency:          "USD",
		PaymentMethodCode: "stripe",
	}
}

func (s *PaymentServiceTestSuite) TestInitiate_Redirect() {
	order := pendingOrder()

	s.mockOrderRepo.EXPECT().FindByNumber(gomock.Any(), order.Number).Return(&order, nil)
	s.mockGateways.EXPECT().Resolve(order.PaymentMethodCode).Return(s.mockAdapter, nil)
	s.mockAdapter.EXPECT().Code().Return("stripe").AnyTimes()
	s.mockAdapter.EXPECT().
		ProcessPayment(gomock.Any(), &order, gomock.Any()).
		Return(&gateway.PaymentInstruction{
			RedirectURL:          "https://checkout.example/cs_123",
			GatewayTransactionID: "cs_123",
		}, nil)

	s.expectDo()
	s.expectTxRepos()

	locked := order
	s.mockOrderRepo.EXPECT().
		FindByNumberForUpdate(gomock.Any(), order.Number).
		Return(&locked, nil)

	// pending-запись журнала получает идентификатор сессии провайдера и сумму заказа.
	s.mockTransRepo.EXPECT().
		Create(gomock.Any(), repoargs.CreateTransaction{
			OrderID:              order.ID,
			Type:                 domain.TransactionTypePayment,
			GatewayCode:          "stripe",
			GatewayTransactionID: "cs_123",
			Amount:               order.Total,
			Status:               domain.TransactionStatusPending,
		}).
		Return(&domain.Transaction{ID: 1}, nil)

	s.mockOrderRepo.EXPECT().
		UpdateStatus(gomock.Any(), repoargs.UpdateOrderStatus{
			ID:            order.ID,
			Status:        domain.OrderStatusAwaitingPayment,
			PaymentStatus: domain.PaymentStatusPending,
		}).
		Return(&domain.Order{ID: order.ID, Status: domain.OrderStatusAwaitingPayment}, nil)

	result, err := s.service.Initiate(s.T().Context(), order.Number, map[string]string{})
	s.Require().NoError(err)

	s.Equal("https://checkout.example/cs_123", result.RedirectURL)
	s.Nil(result.Order)
}

func (s *PaymentServiceTestSuite) TestInitiate_ImmediateGateway() {
	order := pendingOrder()
	order.PaymentMethodCode = "cod"
	immediate := gateway.CallbackResult{
		OrderNumber:          order.Number,
		GatewayCode:          "cod",
		GatewayTransactionID: "cod-ord-1",
		Type:                 domain.TransactionTypePayment,
		Status:               domain.TransactionStatusCompleted,
		Amount:               order.Total,
	}

	s.mockOrderRepo.EXPECT().FindByNumber(gomock.Any(), order.Number).Return(&order, nil)
	s.mockGateways.EXPECT().Resolve("cod").Return(s.mockAdapter, nil)
	s.mockAdapter.EXPECT().
		ProcessPayment(gomock.Any(), &order, gomock.Any()).
		Return(&gateway.PaymentInstruction{
			GatewayTransactionID: immediate.GatewayTransactionID,
			Immediate:            &immediate,
		}, nil)

	// мгновенный результат применяется реконсилятором тем же путем, что и колбек.
	s.mockTransRepo.EXPECT().
		FindByGatewayTxID(gomock.Any(), "cod", immediate.GatewayTransactionID).
		Return(nil, domain.ErrRecordNotFound).Times(2)

	s.expectDo()
	s.expectTxRepos()

	locked := order
	s.mockOrderRepo.EXPECT().
		FindByNumberForUpdate(gomock.Any(), order.Number).
		Return(&locked, nil)
	s.mockTransRepo.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		Return(&domain.Transaction{ID: 2, Status: domain.TransactionStatusCompleted}, nil)

	// заказ из pending доходит именно до processing/paid, а не застревает в pending.
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

	result, err := s.service.Initiate(s.T().Context(), order.Number, nil)
	s.Require().NoError(err)

	s.Empty(result.RedirectURL)
	s.Require().NotNil(result.Order)
	s.Equal(domain.PaymentStatusPaid, result.Order.PaymentStatus)
}

func (s *PaymentServiceTestSuite) TestInitiate_TerminalOrderRefused() {
	order := pendingOrder()
	order.Status = domain.OrderStatusCompleted

	s.mockOrderRepo.EXPECT().FindByNumber(gomock.Any(), order.Number).Return(&order, nil)

	_, err := s.service.Initiate(s.T().Context(), order.Number, nil)

	var illegal *domain.IllegalTransitionError
	s.Require().ErrorAs(err, &illegal)
}

func (s *PaymentServiceTestSuite) TestVerifyPending_Paid() {
	order := pendingOrder()
	order.Status = domain.OrderStatusAwaitingPayment
	pending := domain.Transaction{
		ID:                   3,
		OrderID:              order.ID,
		GatewayCode:          "stripe",
		GatewayTransactionID: "cs_123",
		Status:               domain.TransactionStatusPending,
	}

	s.mockTransRepo.EXPECT().
		FindLatestByType(gomock.Any(), order.ID, domain.TransactionTypePayment, domain.TransactionStatusPending).
		Return(&pending, nil)
	s.mockGateways.EXPECT().Resolve(order.PaymentMethodCode).Return(s.mockAdapter, nil)
	s.mockAdapter.EXPECT().Code().Return("stripe").AnyTimes()
	s.mockAdapter.EXPECT().
		VerifyPayment(gomock.Any(), &order, pending.GatewayTransactionID).
		Return(&gateway.VerifyResult{
			Paid:                 true,
			GatewayTransactionID: "cs_123",
			GatewayPaymentID:     "pi_123",
			Amount:               order.Total,
		}, nil)

	s.mockTransRepo.EXPECT().
		FindByGatewayTxID(gomock.Any(), "stripe", "cs_123").
		Return(&pending, nil).Times(2)

	s.mockUOW.EXPECT().Do(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, fn func(context.Context, uow.TX) error) error {
			return fn(ctx, s.mockTX)
		})
	s.expectTxRepos()

	s.mockOrderRepo.EXPECT().
		FindByNumberForUpdate(gomock.Any(), order.Number).
		Return(&order, nil)
	finalized := pending
	finalized.Status = domain.TransactionStatusCompleted
	finalized.GatewayPaymentID = "pi_123"
	s.mockTransRepo.EXPECT().
		Finalize(gomock.Any(), pending.ID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ int64, args repoargs.FinalizeTransaction) (*domain.Transaction, error) {
			s.Equal(domain.TransactionStatusCompleted, args.Status)
			s.Equal("pi_123", args.GatewayPaymentID)
			return &finalized, nil
		})
	s.mockOrderRepo.EXPECT().
		UpdateStatus(gomock.Any(), gomock.Any()).
		Return(&domain.Order{
			ID:            order.ID,
			Status:        domain.OrderStatusProcessing,
			PaymentStatus: domain.PaymentStatusPaid,
		}, nil)

	paid, err := s.service.VerifyPending(s.T().Context(), &order)
	s.Require().NoError(err)
	s.True(paid)
}

func (s *PaymentServiceTestSuite) TestVerifyPending_StillPending() {
	order := pendingOrder()
	order.Status = domain.OrderStatusAwaitingPayment
	pending := domain.Transaction{ID: 3, GatewayTransactionID: "cs_123"}

	s.mockTransRepo.EXPECT().
		FindLatestByType(gomock.Any(), order.ID, domain.TransactionTypePayment, domain.TransactionStatusPending).
		Return(&pending, nil)
	s.mockGateways.EXPECT().Resolve(order.PaymentMethodCode).Return(s.mockAdapter, nil)
	s.mockAdapter.EXPECT().Code().Return("stripe").AnyTimes()
	s.mockAdapter.EXPECT().
		VerifyPayment(gomock.Any(), &order, pending.GatewayTransactionID).
		Return(&gateway.VerifyResult{Paid: false}, nil)

	paid, err := s.service.VerifyPending(s.T().Context(), &order)
	s.Require().NoError(err)
	s.False(paid)
}

func (s *PaymentServiceTestSuite) TestMarkPaymentFailed() {
	order := pendingOrder()
	order.Status = domain.OrderStatusAwaitingPayment
	pending := domain.Transaction{ID: 3, OrderID: order.ID, Status: domain.TransactionStatusPending}

	s.expectDo()
	s.expectTxRepos()

	s.mockOrderRepo.EXPECT().
		FindByNumberForUpdate(gomock.Any(), order.Number).
		Return(&order, nil)
	s.mockTransRepo.EXPECT().
		FindLatestByType(gomock.Any(), order.ID, domain.TransactionTypePayment, domain.TransactionStatusPending).
		Return(&pending, nil)
	failed := pending
	failed.Status = domain.TransactionStatusFailed
	s.mockTransRepo.EXPECT().
		Finalize(gomock.Any(), pending.ID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ int64, args repoargs.FinalizeTransaction) (*domain.Transaction, error) {
			s.Equal(domain.TransactionStatusFailed, args.Status)
			return &failed, nil
		})

	s.mockOrderRepo.EXPECT().
		UpdateStatus(gomock.Any(), repoargs.UpdateOrderStatus{
			ID:            order.ID,
			Status:        domain.OrderStatusFailed,
			PaymentStatus: domain.PaymentStatusFailed,
		}).
		Return(&domain.Order{ID: order.ID, Status: domain.OrderStatusFailed}, nil)

	err := s.service.MarkPaymentFailed(s.T().Context(), order.Number)
	s.Require().NoError(err)
}

func (s *PaymentServiceTestSuite) TestRefund_ExceedsRefundable() {
	order := pendingOrder()
	order.Status = domain.OrderStatusProcessing
	order.PaymentStatus = domain.PaymentStatusPaid
	payment := domain.Transaction{ID: 5, GatewayTransactionID: "pi_1"}

	s.mockOrderRepo.EXPECT().FindByNumber(gomock.Any(), order.Number).Return(&order, nil)
	s.mockTransRepo.EXPECT().
		FindLatestByType(gomock.Any(), order.ID, domain.TransactionTypePayment, domain.TransactionStatusCompleted).
		Return(&payment, nil)
	s.mockTransRepo.EXPECT().
		SumCompletedByType(gomock.Any(), order.ID).
		Return(&repoargs.TransactionSums{PaidAmount: 10000, RefundedAmount: 8000}, nil)

	requested := int64(5000)
	_, err := s.service.Refund(s.T().Context(), order.Number, &requested, "damaged goods")

	var exceeds *domain.RefundExceedsPaidError
	s.Require().ErrorAs(err, &exceeds)
	s.Equal(int64(10000), exceeds.Paid)
	s.Equal(int64(8000), exceeds.Refunded)
	s.Equal(requested, exceeds.Requested)
}

func (s *PaymentServiceTestSuite) TestRefund_FullRemainder() {
	order := pendingOrder()
	order.Status = domain.OrderStatusProcessing
	order.PaymentStatus = domain.PaymentStatusPaid
	payment := domain.Transaction{ID: 5, GatewayTransactionID: "cs_1", GatewayPaymentID: "pi_1"}

	s.mockOrderRepo.EXPECT().FindByNumber(gomock.Any(), order.Number).Return(&order, nil)
	s.mockTransRepo.EXPECT().
		FindLatestByType(gomock.Any(), order.ID, domain.TransactionTypePayment, domain.TransactionStatusCompleted).
		Return(&payment, nil)
	s.mockTransRepo.EXPECT().
		SumCompletedByType(gomock.Any(), order.ID).
		Return(&repoargs.TransactionSums{PaidAmount: 11500, RefundedAmount: 0}, nil)

	s.mockGateways.EXPECT().Resolve(order.PaymentMethodCode).Return(s.mockAdapter, nil)
	s.mockAdapter.EXPECT().Code().Return("stripe").AnyTimes()
	// amount == nil означает возврат всего невозвращенного остатка; шлюзу уходит
	// идентификатор платежной сущности, а не checkout-сессии.
	s.mockAdapter.EXPECT().
		Refund(gomock.Any(), &order, "pi_1", int64(11500), "customer request").
		Return(&gateway.RefundResult{GatewayTransactionID: "re_1"}, nil)

	s.mockTransRepo.EXPECT().
		FindByGatewayTxID(gomock.Any(), "stripe", "re_1").
		Return(nil, domain.ErrRecordNotFound).Times(2)

	s.expectDo()
	s.expectTxRepos()

	s.mockOrderRepo.EXPECT().
		FindByNumberForUpdate(gomock.Any(), order.Number).
		Return(&order, nil)
	refundTx := domain.Transaction{ID: 6, Type: domain.TransactionTypeRefund, Amount: 11500}
	s.mockTransRepo.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		Return(&refundTx, nil)
	s.mockTransRepo.EXPECT().
		SumCompletedByType(gomock.Any(), order.ID).
		Return(&repoargs.TransactionSums{PaidAmount: 11500, RefundedAmount: 11500}, nil)
	s.mockOrderRepo.EXPECT().
		UpdateStatus(gomock.Any(), repoargs.UpdateOrderStatus{
			ID:            order.ID,
			Status:        domain.OrderStatusProcessing,
			PaymentStatus: domain.PaymentStatusRefunded,
		}).
		Return(&domain.Order{ID: order.ID, PaymentStatus: domain.PaymentStatusRefunded}, nil)

	trans, err := s.service.Refund(s.T().Context(), order.Number, nil, "customer request")
	s.Require().NoError(err)
	s.Equal(&refundTx, trans)
}

func (s *PaymentServiceTestSuite) TestRefund_FallsBackToLedgerTransactionID() {
	// старые записи журнала без идентификатора платежной сущности возвращаются
	// по идентификатору из журнала.
	order := pendingOrder()
	order.Status = domain.OrderStatusProcessing
	order.PaymentStatus = domain.PaymentStatusPaid
	order.PaymentMethodCode = "paypal"
	payment := domain.Transaction{ID: 5, GatewayTransactionID: "CAPTURE-1"}

	s.mockOrderRepo.EXPECT().FindByNumber(gomock.Any(), order.Number).Return(&order, nil)
	s.mockTransRepo.EXPECT().
		FindLatestByType(gomock.Any(), order.ID, domain.TransactionTypePayment, domain.TransactionStatusCompleted).
		Return(&payment, nil)
	s.mockTransRepo.EXPECT().
		SumCompletedByType(gomock.Any(), order.ID).
		Return(&repoargs.TransactionSums{PaidAmount: 11500, RefundedAmount: 0}, nil)

	s.mockGateways.EXPECT().Resolve("paypal").Return(s.mockAdapter, nil)
	s.mockAdapter.EXPECT().Code().Return("paypal").AnyTimes()
	s.mockAdapter.EXPECT().
		Refund(gomock.Any(), &order, "CAPTURE-1", int64(3000), "partial").
		Return(&gateway.RefundResult{GatewayTransactionID: "REFUND-1"}, nil)

	s.mockTransRepo.EXPECT().
		FindByGatewayTxID(gomock.Any(), "paypal", "REFUND-1").
		Return(nil, domain.ErrRecordNotFound).Times(2)

	s.expectDo()
	s.expectTxRepos()

	s.mockOrderRepo.EXPECT().
		FindByNumberForUpdate(gomock.Any(), order.Number).
		Return(&order, nil)
	refundTx := domain.Transaction{ID: 7, Type: domain.TransactionTypeRefund, Amount: 3000}
	s.mockTransRepo.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		Return(&refundTx, nil)
	s.mockTransRepo.EXPECT().
		SumCompletedByType(gomock.Any(), order.ID).
		Return(&repoargs.TransactionSums{PaidAmount: 11500, RefundedAmount: 3000}, nil)
	s.mockOrderRepo.EXPECT().
		UpdateStatus(gomock.Any(), repoargs.UpdateOrderStatus{
			ID:            order.ID,
			Status:        domain.OrderStatusProcessing,
			PaymentStatus: domain.PaymentStatusPartiallyRefunded,
		}).
		Return(&domain.Order{ID: order.ID, PaymentStatus: domain.PaymentStatusPartiallyRefunded}, nil)

	requested := int64(3000)
	trans, err := s.service.Refund(s.T().Context(), order.Number, &requested, "partial")
	s.Require().NoError(err)
	s.Equal(&refundTx, trans)
}

func (s *PaymentServiceTestSuite) TestRefund_NoCompletedPayment() {
	order := pendingOrder()

	s.mockOrderRepo.EXPECT().FindByNumber(gomock.Any(), order.Number).Return(&order, nil)
	s.mockTransRepo.EXPECT().
		FindLatestByType(gomock.Any(), order.ID, domain.TransactionTypePayment, domain.TransactionStatusCompleted).
		Return(nil, domain.ErrRecordNotFound)

	_, err := s.service.Refund(s.T().Context(), order.Number, nil, "")
	s.Require().ErrorIs(err, domain.ErrRecordNotFound)
}
