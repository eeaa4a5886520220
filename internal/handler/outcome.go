package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/fairwaylink/event-booking/internal/dto"
	"github.com/fairwaylink/event-booking/internal/models"
	"github.com/fairwaylink/event-booking/internal/service"
	"github.com/labstack/echo/v4"
)

var rejectionStatus = map[string]int{
	dto.ErrorSoldOut:           http.StatusConflict,
	dto.ErrorInvalidAccessCode: http.StatusUnprocessableEntity,
	"already_waitlisted":       http.StatusConflict,
	"request_in_progress":      http.StatusConflict,
	"booking_not_active":       http.StatusConflict,
	"payment_failed":           http.StatusBadGateway,
}

// rejection writes a structured outcome for submission rejections. Anything
// else goes to the error handler.
func rejection(c echo.Context, err error) error {
	if errors.Is(err, service.ErrEventNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "event not found")
	}

	code := service.RejectionCode(err)
	if code == "" {
		return err
	}
	status, ok := rejectionStatus[code]
	if !ok {
		status = http.StatusBadRequest
	}
	return c.JSON(status, dto.BookingOutcome{Error: code, Detail: err.Error()})
}

func eventByID(c echo.Context, events service.EventService) (*models.Event, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid event id")
	}
	event, err := events.GetEvent(c.Request().Context(), uint(id))
	if err != nil {
		if errors.Is(err, service.ErrEventNotFound) {
			return nil, echo.NewHTTPError(http.StatusNotFound, "event not found")
		}
		return nil, err
	}
	return event, nil
}
