package utils

import (
	"net/http"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RecoveryWithZap turns panics into 500 {"msg":"Server Error"} and logs them
// through gin-contrib/zap. Credentials are removed from the request before the
// recovery handler dumps it into the log.
func RecoveryWithZap(logger *zap.Logger, stack bool) gin.HandlersChain {
	return gin.HandlersChain{
		ginzap.CustomRecoveryWithZap(logger, stack, func(c *gin.Context, _ any) {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"msg": "Server Error"})
		}),
		redactOnPanic,
	}
}

func redactOnPanic(c *gin.Context) {
	defer func() {
		if err := recover(); err != nil {
			c.Request.Header.Del("Authorization")
			c.Request.Header.Del("X-Auth-Token")
			panic(err)
		}
	}()
	c.Next()
}
