package middleware

import (
	"time"

	"github.com/fairwaylink/event-booking/internal/logging"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// RequestLogger stores a request-scoped logrus entry in the context and logs
// one line per request. It must run after CorrelationID.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			start := time.Now()

			entry := logrus.WithFields(logrus.Fields{
				"correlation_id": logging.CorrelationIDFromContext(req.Context()),
				"method":         req.Method,
				"path":           c.Path(),
			})
			c.SetRequest(req.WithContext(logging.ToContext(req.Context(), entry)))

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			entry.WithFields(logrus.Fields{
				"status":   c.Response().Status,
				"duration": time.Since(start).String(),
				"remote":   c.RealIP(),
			}).Info("Handled request")
			return nil
		}
	}
}
