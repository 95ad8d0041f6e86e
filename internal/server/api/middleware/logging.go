package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bhandras/stepwise/pkg/logger"
)

// LoggingMiddleware logs HTTP requests. Query strings are left out: step
// requests carry the learner's code.
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		logger.Infof("[%s] %s - %d (%v)", c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
