package api

import (
	"errors"
	"net/http"

	"github.com/fsdevblog/groph-pay/internal/domain"
	"github.com/fsdevblog/groph-pay/internal/gateway"
	"github.com/gin-gonic/gin"
)

type WebhooksHandler struct {
	callbacks CallbackServicer
}

func NewWebhooksHandler(callbacks CallbackServicer) *WebhooksHandler {
	return &WebhooksHandler{
		callbacks: callbacks,
	}
}

// Handle POST /api/webhooks/:gateway. Принимает асинхронные уведомления провайдеров.
//
// Повторная доставка одного события - успех (200), провайдер должен прекратить ретраи.
// Неподлинная подпись - 400 без каких-либо изменений состояния. 5xx возвращается
// только на внутренних сбоях, чтобы провайдер доставил событие повторно.
func (h *WebhooksHandler) Handle(c *gin.Context) {
	body, bodyErr := c.GetRawData()
	if bodyErr != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, bodyErr).SetType(gin.ErrorTypePrivate)
		return
	}

	outcome, err := h.callbacks.HandleCallback(c, c.Param("gateway"), &gateway.CallbackRequest{
		Body:   body,
		Header: c.Request.Header,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidSignature), errors.Is(err, domain.ErrUnsupportedOperation):
			_ = c.AbortWithError(http.StatusBadRequest, err).SetType(gin.ErrorTypePublic)
		case errors.Is(err, domain.ErrNoGatewayConfigured):
			c.AbortWithStatus(http.StatusNotFound)
		case errors.Is(err, domain.ErrRecordNotFound):
			// заказ неизвестен; 404 оставляет провайдеру шанс доставить событие позже.
			c.AbortWithStatus(http.StatusNotFound)
		default:
			_ = c.AbortWithError(http.StatusInternalServerError, err).SetType(gin.ErrorTypePrivate)
		}
		return
	}

	status := "applied"
	switch {
	case outcome.Duplicate:
		status = "duplicate"
	case outcome.Ignored:
		status = "ignored"
	}
	c.JSON(http.StatusOK, gin.H{"status": status})
}
