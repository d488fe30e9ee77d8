package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/fsdevblog/groph-pay/internal/domain"
	"github.com/fsdevblog/groph-pay/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

type OrdersHandler struct {
	orderSvs OrderServicer
}

func NewOrdersHandler(orderSvs OrderServicer) *OrdersHandler {
	return &OrdersHandler{
		orderSvs: orderSvs,
	}
}

// OrderResponse отдает суммы десятичными строками, симметрично тому, как они
// принимаются на входе.
type OrderResponse struct {
	Number         string               `json:"number"`
	Status         domain.OrderStatus   `json:"status"`
	PaymentStatus  domain.PaymentStatus `json:"payment_status"`
	Subtotal       string               `json:"subtotal"`
	Tax            string               `json:"tax"`
	ShippingCost   string               `json:"shipping_cost"`
	Discount       string               `json:"discount"`
	Total          string               `json:"total"`
	Currency       string               `json:"currency"`
	PaymentMethod  string               `json:"payment_method"`
	ShippingMethod string               `json:"shipping_method,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
}

func newOrderResponse(order *domain.Order) OrderResponse {
	return OrderResponse{
		Number:         order.Number,
		Status:         order.Status,
		PaymentStatus:  order.PaymentStatus,
		Subtotal:       moneyString(order.Subtotal),
		Tax:            moneyString(order.Tax),
		ShippingCost:   moneyString(order.ShippingCost),
		Discount:       moneyString(order.Discount),
		Total:          moneyString(order.Total),
		Currency:       order.Currency,
		PaymentMethod:  order.PaymentMethodCode,
		ShippingMethod: order.ShippingMethod,
		CreatedAt:      order.CreatedAt,
	}
}

type CreateOrderParams struct {
	CustomerID        *int64 `json:"customer_id"`
	Subtotal          string `binding:"required"             json:"subtotal"`
	Discount          string `json:"discount"`
	Currency          string `binding:"required,len=3"       json:"currency"`
	PaymentMethodCode string `binding:"required,min=2,max=32" json:"payment_method"`
	ShippingMethod    string `binding:"max=64"               json:"shipping_method"`
}

// Create POST /api/orders. Суммы принимаются десятичными строками и сразу
// переводятся в минорные единицы; дальше вся арифметика целочисленная.
func (o *OrdersHandler) Create(c *gin.Context) {
	var params CreateOrderParams
	if bindErr := c.ShouldBindJSON(&params); bindErr != nil {
		var valErrs validator.ValidationErrors
		if errors.As(bindErr, &valErrs) {
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": valErrs.Error()})
			return
		}
		_ = c.AbortWithError(http.StatusBadRequest, bindErr).SetType(gin.ErrorTypeBind)
		return
	}

	subtotal, subtotalErr := parseMoney(params.Subtotal)
	if subtotalErr != nil {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid subtotal"})
		return
	}
	var discount int64
	if params.Discount != "" {
		var discountErr error
		discount, discountErr = parseMoney(params.Discount)
		if discountErr != nil {
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid discount"})
			return
		}
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	order, createErr := o.orderSvs.Create(reqCtx, service.CreateOrderArgs{
		CustomerID:        params.CustomerID,
		Subtotal:          subtotal,
		Discount:          discount,
		Currency:          params.Currency,
		PaymentMethodCode: params.PaymentMethodCode,
		ShippingMethod:    params.ShippingMethod,
	})
	if createErr != nil {
		abortWithServiceError(c, createErr)
		return
	}
	c.JSON(http.StatusCreated, newOrderResponse(order))
}

// Show GET /api/orders/:number.
func (o *OrdersHandler) Show(c *gin.Context) {
	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	order, err := o.orderSvs.GetByNumber(reqCtx, c.Param("number"))
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, newOrderResponse(order))
}

type TransactionResponse struct {
	Type                 domain.TransactionType   `json:"type"`
	GatewayCode          string                   `json:"gateway"`
	GatewayTransactionID string                   `json:"gateway_transaction_id"`
	Amount               string                   `json:"amount"`
	Status               domain.TransactionStatus `json:"status"`
	CreatedAt            time.Time                `json:"created_at"`
	ProcessedAt          *time.Time               `json:"processed_at,omitempty"`
}

// Transactions GET /api/orders/:number/transactions. Журнал заказа в хронологическом порядке.
func (o *OrdersHandler) Transactions(c *gin.Context) {
	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	_, transactions, err := o.orderSvs.GetLedger(reqCtx, c.Param("number"))
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	response := make([]TransactionResponse, len(transactions))
	for i, trans := range transactions {
		response[i] = TransactionResponse{
			Type:                 trans.Type,
			GatewayCode:          trans.GatewayCode,
			GatewayTransactionID: trans.GatewayTransactionID,
			Amount:               moneyString(trans.Amount),
			Status:               trans.Status,
			CreatedAt:            trans.CreatedAt,
			ProcessedAt:          trans.ProcessedAt,
		}
	}
	c.JSON(http.StatusOK, response)
}

func parseMoney(value string) (int64, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return 0, err //nolint:wrapcheck
	}
	return domain.MinorUnits(d) //nolint:wrapcheck
}
