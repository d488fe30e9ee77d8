package api

import (
	"time"

	"github.com/fsdevblog/groph-pay/internal/transport/api/middlewares"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const (
	DefaultServiceTimeout = 3 * time.Second
)

const (
	RouteGroup             = "/api"
	OrdersRoute            = "/orders"
	OrderRoute             = "/orders/:number"
	OrderTransactionsRoute = "/orders/:number/transactions"
	OrderPayRoute          = "/orders/:number/pay"
	OrderReturnRoute       = "/orders/:number/return"
	WebhookRoute           = "/webhooks/:gateway"
	AdminRouteGroup        = "/admin"
	MetricsRoute           = "/metrics"
)

type RouterArgs struct {
	Logger         *logrus.Logger
	OrderService   OrderServicer
	PaymentService PaymentServicer
	Callbacks      CallbackServicer
	JWTSecretKey   []byte
	// PublicURL - внешний адрес сервиса; из него собираются return-адреса
	// для редиректов провайдеров.
	PublicURL string
}

func New(args RouterArgs) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if args.Logger != nil {
		r.Use(middlewares.Logger(args.Logger))
	}
	r.Use(middlewares.Errors())

	ordersHandler := NewOrdersHandler(args.OrderService)
	paymentsHandler := NewPaymentsHandler(args.PaymentService, args.OrderService, args.PublicURL)
	webhooksHandler := NewWebhooksHandler(args.Callbacks)
	adminHandler := NewAdminHandler(args.OrderService, args.PaymentService)

	api := r.Group(RouteGroup)

	api.POST(OrdersRoute, ordersHandler.Create)
	api.GET(OrderRoute, ordersHandler.Show)
	api.GET(OrderTransactionsRoute, ordersHandler.Transactions)
	api.POST(OrderPayRoute, paymentsHandler.Pay)
	api.GET(OrderReturnRoute, paymentsHandler.Return)

	api.POST(WebhookRoute, webhooksHandler.Handle)

	admin := api.Group(AdminRouteGroup, middlewares.AdminRequired(args.JWTSecretKey))
	admin.GET(OrdersRoute, adminHandler.Index)
	admin.POST("/orders/:number/cancel", adminHandler.Cancel)
	admin.POST("/orders/:number/refund", adminHandler.Refund)
	admin.DELETE(OrderRoute, adminHandler.Delete)

	r.GET(MetricsRoute, gin.WrapH(promhttp.Handler()))
	return r
}
