package api

import (
	"context"
	"net/http"

	"github.com/fsdevblog/groph-pay/internal/domain"
	"github.com/gin-gonic/gin"
)

type PaymentsHandler struct {
	paymentSvs PaymentServicer
	orderSvs   OrderServicer
	publicURL  string
}

func NewPaymentsHandler(paymentSvs PaymentServicer, orderSvs OrderServicer, publicURL string) *PaymentsHandler {
	return &PaymentsHandler{
		paymentSvs: paymentSvs,
		orderSvs:   orderSvs,
		publicURL:  publicURL,
	}
}

type PayResponse struct {
	RedirectURL string         `json:"redirect_url,omitempty"`
	Order       *OrderResponse `json:"order,omitempty"`
}

// Pay POST /api/orders/:number/pay. Инициирует оплату: в ответе либо redirect_url
// на страницу провайдера, либо сразу оплаченный заказ (мгновенные шлюзы).
func (h *PaymentsHandler) Pay(c *gin.Context) {
	number := c.Param("number")

	// провайдеры возвращают покупателя на эти адреса после оплаты.
	returnBase := h.publicURL + RouteGroup + "/orders/" + number + "/return"
	extra := map[string]string{
		"success_url": returnBase + "?result=success",
		"cancel_url":  returnBase + "?result=cancel",
		"return_url":  returnBase,
	}

	// таймаут не ставим: инициация ходит к провайдеру, лимит задает сам сервис.
	result, err := h.paymentSvs.Initiate(c, number, extra)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	response := PayResponse{RedirectURL: result.RedirectURL}
	if result.Order != nil {
		orderResponse := newOrderResponse(result.Order)
		response.Order = &orderResponse
	}
	c.JSON(http.StatusOK, response)
}

// Return GET /api/orders/:number/return. Сюда провайдер возвращает покупателя после
// оплаты. Если колбек еще не дошел, заказ сверяется с провайдером синхронно;
// ошибка сверки не мешает показать текущее состояние - фоновый обработчик повторит.
func (h *PaymentsHandler) Return(c *gin.Context) {
	number := c.Param("number")

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	order, err := h.orderSvs.GetByNumber(reqCtx, number)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	if c.Query("result") == "success" && order.Status == domain.OrderStatusAwaitingPayment {
		// без локального таймаута: сверка ходит к провайдеру под лимитом сервиса.
		if paid, verifyErr := h.paymentSvs.VerifyPending(c, order); verifyErr == nil && paid {
			if refreshed, refreshErr := h.orderSvs.GetByNumber(reqCtx, number); refreshErr == nil {
				order = refreshed
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"result": c.Query("result"),
		"order":  newOrderResponse(order),
	})
}
