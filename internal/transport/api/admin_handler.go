package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type AdminHandler struct {
	orderSvs   OrderServicer
	paymentSvs PaymentServicer
}

func NewAdminHandler(orderSvs OrderServicer, paymentSvs PaymentServicer) *AdminHandler {
	return &AdminHandler{
		orderSvs:   orderSvs,
		paymentSvs: paymentSvs,
	}
}

// Index GET /api/admin/orders.
func (h *AdminHandler) Index(c *gin.Context) {
	limit := queryUint(c, "limit", defaultListLimit)
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := queryUint(c, "offset", 0)

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	orders, err := h.orderSvs.List(reqCtx, limit, offset)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	response := make([]OrderResponse, len(orders))
	for i := range orders {
		response[i] = newOrderResponse(&orders[i])
	}
	c.JSON(http.StatusOK, response)
}

// Cancel POST /api/admin/orders/:number/cancel.
func (h *AdminHandler) Cancel(c *gin.Context) {
	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	order, err := h.orderSvs.Cancel(reqCtx, c.Param("number"))
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, newOrderResponse(order))
}

type RefundParams struct {
	// Amount - десятичная строка. Пустое значение означает возврат всего остатка.
	Amount string `json:"amount"`
	Reason string `binding:"max=255" json:"reason"`
}

// Refund POST /api/admin/orders/:number/refund.
func (h *AdminHandler) Refund(c *gin.Context) {
	var params RefundParams
	if bindErr := c.ShouldBindJSON(&params); bindErr != nil {
		var valErrs validator.ValidationErrors
		if errors.As(bindErr, &valErrs) {
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": valErrs.Error()})
			return
		}
		_ = c.AbortWithError(http.StatusBadRequest, bindErr).SetType(gin.ErrorTypeBind)
		return
	}

	var amount *int64
	if params.Amount != "" {
		minor, moneyErr := parseMoney(params.Amount)
		if moneyErr != nil {
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid amount"})
			return
		}
		amount = &minor
	}

	// без локального таймаута: возврат ходит к провайдеру под лимитом сервиса.
	trans, err := h.paymentSvs.Refund(c, c.Param("number"), amount, params.Reason)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, TransactionResponse{
		Type:                 trans.Type,
		GatewayCode:          trans.GatewayCode,
		GatewayTransactionID: trans.GatewayTransactionID,
		Amount:               moneyString(trans.Amount),
		Status:               trans.Status,
		CreatedAt:            trans.CreatedAt,
		ProcessedAt:          trans.ProcessedAt,
	})
}

// Delete DELETE /api/admin/orders/:number. Мягкое удаление; заказы с платежами защищены.
func (h *AdminHandler) Delete(c *gin.Context) {
	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	if err := h.orderSvs.SoftDelete(reqCtx, c.Param("number")); err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.AbortWithStatus(http.StatusNoContent)
}

func queryUint(c *gin.Context, name string, fallback uint) uint {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return fallback
	}
	return uint(value)
}
