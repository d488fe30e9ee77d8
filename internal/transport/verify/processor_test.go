package verify

import (
	"context"
	"testing"
	"time"

	"github.com/fsdevblog/groph-pay/internal/domain"
	"github.com/fsdevblog/groph-pay/internal/transport/verify/mocks"
	"github.com/golang/mock/gomock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"
)

type ProcessorTestSuite struct {
	suite.Suite
	ctrl        *gomock.Controller
	mockService *mocks.MockServicer
	processor   *Processor
}

func TestProcessorSuite(t *testing.T) {
	suite.Run(t, new(ProcessorTestSuite))
}

func (s *ProcessorTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockService = mocks.NewMockServicer(s.ctrl)

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	s.processor = New(s.mockService, 30*time.Minute, logger).SetWorkers(2)
}

func (s *ProcessorTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *ProcessorTestSuite) TestProcess_NoOrders() {
	s.mockService.EXPECT().
		OrdersForVerification(gomock.Any(), gomock.Any(), s.processor.limitPerIteration).
		Return([]domain.Order{}, nil)

	err := s.processor.process(s.T().Context())
	s.ErrorIs(err, ErrNoOrders)
}

func (s *ProcessorTestSuite) TestProcess_PaidOrdersNeedNoRetry() {
	orders := []domain.Order{
		{ID: 1, Number: "ord-1", CreatedAt: time.Now(), Status: domain.OrderStatusAwaitingPayment},
		{ID: 2, Number: "ord-2", CreatedAt: time.Now(), Status: domain.OrderStatusAwaitingPayment},
	}

	s.mockService.EXPECT().
		OrdersForVerification(gomock.Any(), gomock.Any(), s.processor.limitPerIteration).
		Return(orders, nil)

	// первый заказ подтвержден шлюзом, второй все еще не оплачен.
	s.mockService.EXPECT().
		VerifyPending(gomock.Any(), gomock.AssignableToTypeOf(&domain.Order{})).
		DoAndReturn(func(_ context.Context, order *domain.Order) (bool, error) {
			return order.ID == 1, nil
		}).Times(2)

	// счетчик попыток растет только у неоплаченного.
	s.mockService.EXPECT().
		IncrementVerifyAttempts(gomock.Any(), []int64{2}).
		Return(nil)

	err := s.processor.process(s.T().Context())
	s.Require().NoError(err)
}

func (s *ProcessorTestSuite) TestProcess_ExpiredWindowClosed() {
	expired := domain.Order{
		ID:        1,
		Number:    "ord-expired",
		CreatedAt: time.Now().Add(-2 * time.Hour),
		Status:    domain.OrderStatusAwaitingPayment,
	}

	s.mockService.EXPECT().
		OrdersForVerification(gomock.Any(), gomock.Any(), s.processor.limitPerIteration).
		Return([]domain.Order{expired}, nil)
	s.mockService.EXPECT().
		VerifyPending(gomock.Any(), gomock.Any()).
		Return(false, nil)

	// просроченное окно оплаты закрывается терминально, без учета попыток.
	s.mockService.EXPECT().
		MarkPaymentFailed(gomock.Any(), expired.Number).
		Return(nil)

	err := s.processor.process(s.T().Context())
	s.Require().NoError(err)
}

func (s *ProcessorTestSuite) TestProcess_VerifyErrorStillRetries() {
	order := domain.Order{
		ID:        1,
		Number:    "ord-1",
		CreatedAt: time.Now(),
		Status:    domain.OrderStatusAwaitingPayment,
	}

	s.mockService.EXPECT().
		OrdersForVerification(gomock.Any(), gomock.Any(), s.processor.limitPerIteration).
		Return([]domain.Order{order}, nil)
	s.mockService.EXPECT().
		VerifyPending(gomock.Any(), gomock.Any()).
		Return(false, domain.ErrGatewayUnavailable)

	// ошибка опроса не закрывает заказ: попытка учитывается, сверка повторится.
	s.mockService.EXPECT().
		IncrementVerifyAttempts(gomock.Any(), []int64{order.ID}).
		Return(nil)

	err := s.processor.process(s.T().Context())
	s.Require().NoError(err)
}
