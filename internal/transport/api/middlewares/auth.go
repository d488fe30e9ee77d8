package middlewares

import (
	"errors"
	"net/http"

	"github.com/fsdevblog/groph-pay/internal/transport/api/tokens"
	"github.com/gin-gonic/gin"
)

var ErrTokenNotExist = errors.New("token not exist")

const bearerPrefix = "Bearer "

// AdminRequired пропускает только запросы с действительным административным JWT
// в заголовке Authorization.
func AdminRequired(jwtSecret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenHeader := c.GetHeader("Authorization")
		if len(tokenHeader) < len(bearerPrefix) || tokenHeader[:len(bearerPrefix)] != bearerPrefix {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		if _, err := tokens.ValidateAdminJWT(tokenHeader[len(bearerPrefix):], jwtSecret); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			if !errors.Is(err, tokens.ErrTokenExpired) {
				_ = c.Error(err).SetType(gin.ErrorTypePrivate)
			}
			return
		}
		c.Next()
	}
}
