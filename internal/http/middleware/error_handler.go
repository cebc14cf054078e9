package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/freelance-contracts/internal/interface/http/response"
	"github.com/ignatzorin/freelance-contracts/internal/pkg/apperror"
)

// ErrorHandler отвечает за ошибки, переданные через c.Error и не отданные клиенту.
// Внутренние ошибки маскируются в response.Error.
func ErrorHandler(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		entry := log.WithFields(logrus.Fields{
			"error":  err.Error(),
			"code":   apperror.CodeOf(err),
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
		if apperror.CodeOf(err) == "" || apperror.HasCode(err, apperror.ErrCodeInternal) || apperror.HasCode(err, apperror.ErrCodeDatabaseError) {
			entry.Error("Request error")
		} else {
			entry.Debug("Request error")
		}

		if c.Writer.Written() {
			return
		}
		response.Error(c, err)
	}
}

// RequestLogger пишет по строке на запрос вместо стандартного логгера gin.
func RequestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := logrus.Fields{
			"status":   c.Writer.Status(),
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"latency":  time.Since(start).String(),
			"clientIP": c.ClientIP(),
		}
		if userID, ok := c.Get(ContextUserIDKey); ok {
			fields["user_id"] = userID
		}
		entry := log.WithFields(fields)
		switch {
		case c.Writer.Status() >= 500:
			entry.Error("http request")
		case c.Writer.Status() >= 400:
			entry.Warn("http request")
		default:
			entry.Info("http request")
		}
	}
}
