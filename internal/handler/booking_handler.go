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

const HeaderIdempotencyKey = "Idempotency-Key"

type BookingHandler struct {
	svc    service.BookingService
	events service.EventService
}

func NewBookingHandler(svc service.BookingService, events service.EventService) *BookingHandler {
	return &BookingHandler{svc: svc, events: events}
}

// RegisterRoutes mounts the public submission endpoint on public and the
// organizer endpoints on admin.
func (h *BookingHandler) RegisterRoutes(public, admin *echo.Group) {
	public.POST("/events/:slug/bookings", h.CreateBooking)

	admin.GET("/events/:id/bookings", h.ListBookings)
	admin.GET("/bookings/:id", h.GetBooking)
	admin.DELETE("/bookings/:id", h.CancelBooking)
}

// CreateBooking always answers with a BookingOutcome so the booking page can
// tell a rejection from a transport failure.
func (h *BookingHandler) CreateBooking(c echo.Context) error {
	var req dto.CreateBookingRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.BookingOutcome{Error: "invalid_request", Detail: "invalid request body"})
	}

	res, err := h.svc.CreateBooking(c.Request().Context(), c.Param("slug"), c.Request().Header.Get(HeaderIdempotencyKey), req)
	if err != nil {
		return rejection(c, err)
	}

	booking := dto.ToBookingResponse(res.Booking)
	if res.CheckoutURL != "" {
		return c.JSON(http.StatusOK, dto.BookingOutcome{CheckoutURL: res.CheckoutURL, Booking: &booking})
	}
	code := http.StatusCreated
	if res.Replayed {
		code = http.StatusOK
	}
	return c.JSON(code, dto.BookingOutcome{Status: dto.OutcomeConfirmed, Booking: &booking})
}

func (h *BookingHandler) CancelBooking(c echo.Context) error {
	bookingID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid booking id")
	}

	booking, err := h.svc.CancelBooking(c.Request().Context(), uint(bookingID))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBookingNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrBookingNotActive):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		default:
			return echo.NewHTTPError(http.StatusBadGateway, "cancellation failed").SetInternal(err)
		}
	}

	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking))
}

func (h *BookingHandler) GetBooking(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid booking id")
	}

	booking, err := h.svc.GetBooking(c.Request().Context(), uint(id))
	if err != nil {
		if errors.Is(err, service.ErrBookingNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "booking not found")
		}
		return err
	}

	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking))
}

func (h *BookingHandler) ListBookings(c echo.Context) error {
	event, err := eventByID(c, h.events)
	if err != nil {
		return err
	}

	var status *models.BookingStatus
	if s := c.QueryParam("status"); s != "" {
		bs := models.BookingStatus(s)
		status = &bs
	}

	bookings, err := h.svc.ListBookings(c.Request().Context(), event.Slug, status)
	if err != nil {
		return err
	}

	resp := make([]dto.BookingResponse, len(bookings))
	for i := range bookings {
		resp[i] = dto.ToBookingResponse(&bookings[i])
	}

	return c.JSON(http.StatusOK, resp)
}
