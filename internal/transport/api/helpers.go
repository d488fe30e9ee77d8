package api

import (
	"errors"
	"net/http"

	"github.com/fsdevblog/groph-pay/internal/domain"
	"github.com/gin-gonic/gin"
)

// moneyString отдает сумму десятичной строкой с двумя знаками: суммы в JSON
// никогда не сериализуются числами с плавающей точкой.
func moneyString(v int64) string {
	return domain.DecimalFromMinor(v).StringFixed(2)
}

// abortWithServiceError переводит ошибки сервисного слоя в HTTP статусы.
func abortWithServiceError(c *gin.Context, err error) {
	var illegalTransition *domain.IllegalTransitionError
	var refundExceeds *domain.RefundExceedsPaidError

	switch {
	case errors.Is(err, domain.ErrRecordNotFound):
		c.AbortWithStatus(http.StatusNotFound)
	case errors.As(err, &illegalTransition),
		errors.Is(err, domain.ErrCancelCompletedPayment),
		errors.Is(err, domain.ErrOrderAuditLocked):
		_ = c.AbortWithError(http.StatusConflict, err).SetType(gin.ErrorTypePublic)
	case errors.As(err, &refundExceeds),
		errors.Is(err, domain.ErrNoGatewayConfigured),
		errors.Is(err, domain.ErrUnsupportedOperation),
		errors.Is(err, domain.ErrTotalsMismatch):
		_ = c.AbortWithError(http.StatusUnprocessableEntity, err).SetType(gin.ErrorTypePublic)
	case errors.Is(err, domain.ErrGatewayUnavailable):
		_ = c.AbortWithError(http.StatusBadGateway, err).SetType(gin.ErrorTypePrivate)
	default:
		_ = c.AbortWithError(http.StatusInternalServerError, err).SetType(gin.ErrorTypePrivate)
	}
}
