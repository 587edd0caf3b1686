package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"blocklotto/internal/shared/logger"
	"blocklotto/internal/shared/utils"
)

// Recovery converts panics into a 500 response instead of killing the
// connection.
func Recovery(log logger.Interface) gin.HandlerFunc {
	log = log.Named("recovery")
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Errorw("panic recovered",
					"panic", r,
					"path", c.Request.URL.Path,
				)
				utils.ErrorResponse(c, http.StatusInternalServerError, "internal server error")
				c.Abort()
			}
		}()
		c.Next()
	}
}
