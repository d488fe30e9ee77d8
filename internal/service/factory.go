package service

import (
	"fmt"
	"time"

	"github.com/fsdevblog/groph-pay/internal/pricing"
	"github.com/fsdevblog/groph-pay/pkg/uow"
	"github.com/sirupsen/logrus"
)

type AppServices struct {
	OrderService   *OrderService
	PaymentService *PaymentService
	Reconciler     *Reconciler
}

func Factory(
	unitOfWork uow.UOW,
	gateways GatewayResolver,
	chain *pricing.Chain,
	gatewayTimeout time.Duration,
	log *logrus.Entry,
) (*AppServices, error) {
	orderService, orderServiceErr := NewOrderService(unitOfWork, chain)
	if orderServiceErr != nil {
		return nil, fmt.Errorf("service factory: %s", orderServiceErr.Error())
	}

	reconciler, reconcilerErr := NewReconciler(unitOfWork, gateways, log)
	if reconcilerErr != nil {
		return nil, fmt.Errorf("service factory: %s", reconcilerErr.Error())
	}

	paymentService, paymentServiceErr := NewPaymentService(unitOfWork, gateways, reconciler, gatewayTimeout)
	if paymentServiceErr != nil {
		return nil, fmt.Errorf("service factory: %s", paymentServiceErr.Error())
	}

	return &AppServices{
		OrderService:   orderService,
		PaymentService: paymentService,
		Reconciler:     reconciler,
	}, nil
}
