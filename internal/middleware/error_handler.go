package middleware

import (
	"errors"
	"net/http"

	"github.com/fairwaylink/event-booking/internal/dto"
	"github.com/fairwaylink/event-booking/internal/logging"
	"github.com/labstack/echo/v4"
)

// ErrorHandler renders every unhandled error as an ErrorResponse. Internal causes
// are logged, never returned to the client.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := http.StatusText(code)

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(code)
		}
		if he.Internal != nil {
			err = he.Internal
		}
	}

	log := logging.FromContext(c.Request().Context()).WithError(err).WithField("status", code)
	if code >= http.StatusInternalServerError {
		log.Error("Request failed")
	} else {
		log.Debug("Request rejected")
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, dto.ErrorResponse{Message: msg})
	}
	if err != nil {
		logging.FromContext(c.Request().Context()).WithError(err).Warn("Failed to write error response")
	}
}
