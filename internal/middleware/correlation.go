package middleware

import (
	"github.com/fairwaylink/event-booking/internal/logging"
	"github.com/labstack/echo/v4"
)

// CorrelationID propagates the caller's Correlation-ID header, generating one
// when absent, and echoes it on the response.
func CorrelationID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			id := req.Header.Get(logging.HeaderCorrelationID)
			if id == "" {
				id = logging.NewCorrelationID()
			}
			c.Response().Header().Set(logging.HeaderCorrelationID, id)

			ctx := logging.ContextWithCorrelationID(req.Context(), id)
			c.SetRequest(req.WithContext(ctx))
			return next(c)
		}
	}
}
