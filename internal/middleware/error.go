package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"stroke_rehab_backend/internal/common"
)

// ErrorHandler converts errors attached to the gin context into the
// standard error response if no handler has written one already.
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		if _, ok := common.IsAPIError(err); !ok {
			logger.Error("Unhandled error reached error middleware", zap.Error(err))
		}
		common.RespondWithError(c, err)
	}
}
