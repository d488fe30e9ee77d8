package app

import (
	"context"
	"fmt"

	"github.com/fsdevblog/groph-pay/internal/repository/repoargs"

	"github.com/fsdevblog/groph-pay/internal/gateway"
	"github.com/fsdevblog/groph-pay/internal/gateway/cod"
	"github.com/fsdevblog/groph-pay/internal/gateway/paypal"
	"github.com/fsdevblog/groph-pay/internal/gateway/razorpay"
	"github.com/fsdevblog/groph-pay/internal/gateway/stripe"
	"github.com/fsdevblog/groph-pay/internal/pricing"
	"github.com/fsdevblog/groph-pay/internal/transport/verify"

	"github.com/fsdevblog/groph-pay/pkg/uow"

	"github.com/fsdevblog/groph-pay/internal/config"
	"github.com/fsdevblog/groph-pay/internal/repository/pgrepo"
	"github.com/fsdevblog/groph-pay/internal/service"
	"github.com/fsdevblog/groph-pay/internal/transport/api"
	"github.com/sirupsen/logrus"

	// driver for migration applying postgres.
	_ "github.com/golang-migrate/migrate/v4/database/postgres" //nolint:revive
	// driver to get migrations from files (*.sql in our case).
	"os/signal"
	"syscall"

	_ "github.com/golang-migrate/migrate/v4/source/file" //nolint:revive
	"github.com/jackc/pgx/v5/pgxpool"
)

type App struct {
	Config *config.Config
	Logger *logrus.Logger
}

func New(conf *config.Config, l *logrus.Logger) *App {
	return &App{
		Config: conf,
		Logger: l,
	}
}

func (a *App) Run() error {
	notifyCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.Logger.Infof("Starting app on %s", a.Config.RunAddress)
	conn, connErr := pgrepo.Connect(notifyCtx, a.Config.MigrationsDir, a.Config.DatabaseDSN, a.Logger)
	if connErr != nil {
		return fmt.Errorf("app run: %s", connErr.Error())
	}
	defer conn.Close()

	unitOfWork, uowErr := initUOW(conn)
	if uowErr != nil {
		return fmt.Errorf("app run: %s", uowErr.Error())
	}

	registry, registryErr := a.initGateways(notifyCtx, unitOfWork)
	if registryErr != nil {
		return fmt.Errorf("app run: %s", registryErr.Error())
	}

	chain := pricing.NewChain(
		pricing.TaxFilter{RateBasisPoints: a.Config.TaxRateBasisPoints},
		pricing.ShippingFilter{Cost: a.Config.ShippingCost, FreeThreshold: a.Config.FreeShippingThreshold},
		pricing.DiscountFilter{},
	)

	services, sErr := service.Factory(
		unitOfWork,
		registry,
		chain,
		a.Config.GatewayTimeout,
		a.Logger.WithField("component", "service"),
	)
	if sErr != nil {
		return fmt.Errorf("app run: %s", sErr.Error())
	}

	router := api.New(api.RouterArgs{
		Logger:         a.Logger,
		OrderService:   services.OrderService,
		PaymentService: services.PaymentService,
		Callbacks:      services.Reconciler,
		JWTSecretKey:   []byte(a.Config.JWTAdminSecret),
		PublicURL:      a.Config.PublicURL,
	})

	errChan := make(chan error, 1)

	go func() {
		if runErr := router.Run(a.Config.RunAddress); runErr != nil {
			errChan <- runErr
		}
	}()

	processor := verify.New(services.PaymentService, a.Config.PaymentWindow, a.Logger).
		SetWorkers(5).           //nolint:mnd
		SetLimitPerIteration(50) //nolint:mnd

	go processor.Run(notifyCtx)

	select {
	case <-notifyCtx.Done():
		return notifyCtx.Err() //nolint:wrapcheck
	case err := <-errChan:
		return err
	}
}

// initGateways читает активные способы оплаты из БД и собирает реестр адаптеров.
// Способ с неизвестным кодом пропускается с предупреждением: админка может завести
// метод раньше, чем появится его адаптер.
func (a *App) initGateways(ctx context.Context, unitOfWork uow.UOW) (*gateway.Registry, error) {
	methodRepo, repoErr := uow.GetRepositoryAs[service.PaymentMethodRepository](
		unitOfWork, uow.RepositoryName(repoargs.PaymentMethodRepoName))
	if repoErr != nil {
		return nil, repoErr //nolint:wrapcheck
	}

	methods, methodsErr := methodRepo.GetActive(ctx)
	if methodsErr != nil {
		return nil, methodsErr //nolint:wrapcheck
	}

	registry := gateway.NewRegistry()
	for _, method := range methods {
		var adapter gateway.Adapter
		var buildErr error

		switch method.Code {
		case stripe.GatewayCode:
			adapter, buildErr = stripe.New(method.Config, nil)
		case razorpay.GatewayCode:
			adapter, buildErr = razorpay.New(method.Config, nil)
		case paypal.GatewayCode:
			adapter, buildErr = paypal.New(method.Config, nil)
		case cod.GatewayCode:
			adapter = cod.New()
		default:
			a.Logger.WithField("code", method.Code).Warn("payment method has no gateway adapter, skipping")
			continue
		}
		if buildErr != nil {
			return nil, buildErr
		}

		if regErr := registry.Register(adapter); regErr != nil {
			return nil, regErr //nolint:wrapcheck
		}
		a.Logger.WithFields(logrus.Fields{
			"code":       adapter.Code(),
			"configured": adapter.Configured(),
		}).Info("gateway registered")
	}
	return registry, nil
}

func initUOW(conn *pgxpool.Pool) (*uow.UnitOfWork, error) {
	unitOfWork := uow.NewUnitOfWork(conn)

	// order repo
	orderRepoFactoryFn := func(dbtx uow.DBTX) uow.Repository {
		return pgrepo.NewOrderRepository(dbtx)
	}
	if regErr := unitOfWork.Register(uow.RepositoryName(repoargs.OrderRepoName), orderRepoFactoryFn); regErr != nil {
		return nil, fmt.Errorf("init UOW: %s", regErr.Error())
	}

	// transaction repo
	transactionRepoFactoryFn := func(dbtx uow.DBTX) uow.Repository {
		return pgrepo.NewTransactionRepository(dbtx)
	}
	if regErr := unitOfWork.Register(
		uow.RepositoryName(repoargs.TransactionRepoName),
		transactionRepoFactoryFn,
	); regErr != nil {
		return nil, fmt.Errorf("init UOW: %s", regErr.Error())
	}

	// payment method repo
	paymentMethodRepoFactoryFn := func(dbtx uow.DBTX) uow.Repository {
		return pgrepo.NewPaymentMethodRepository(dbtx)
	}
	if regErr := unitOfWork.Register(
		uow.RepositoryName(repoargs.PaymentMethodRepoName),
		paymentMethodRepoFactoryFn,
	); regErr != nil {
		return nil, fmt.Errorf("init UOW: %s", regErr.Error())
	}

	return unitOfWork, nil
}
