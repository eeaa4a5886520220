package handler

import (
	"errors"
	"net/http"

	"github.com/fairwaylink/event-booking/internal/dto"
	"github.com/fairwaylink/event-booking/internal/models"
	"github.com/fairwaylink/event-booking/internal/service"
	"github.com/labstack/echo/v4"
)

type EventHandler struct {
	svc service.EventService
}

func NewEventHandler(svc service.EventService) *EventHandler {
	return &EventHandler{svc: svc}
}

func (h *EventHandler) RegisterRoutes(public, admin *echo.Group) {
	public.GET("/events/:slug", h.GetCatalog)

	admin.POST("/events", h.CreateEvent)
	admin.GET("/events", h.ListEvents)
	admin.GET("/events/:id", h.GetEvent)
	admin.PATCH("/events/:id/status", h.UpdateStatus)
	admin.GET("/events/:id/capacity", h.GetCapacity)
}

// GetCatalog is the booking page's read model.
func (h *EventHandler) GetCatalog(c echo.Context) error {
	catalog, err := h.svc.Catalog(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return eventError(err)
	}
	return c.JSON(http.StatusOK, catalog)
}

func (h *EventHandler) CreateEvent(c echo.Context) error {
	var req dto.CreateEventRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	event, err := h.svc.CreateEvent(c.Request().Context(), req)
	if err != nil {
		return eventError(err)
	}

	return c.JSON(http.StatusCreated, dto.ToEventResponse(event))
}

func (h *EventHandler) GetEvent(c echo.Context) error {
	event, err := eventByID(c, h.svc)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dto.ToEventResponse(event))
}

func (h *EventHandler) ListEvents(c echo.Context) error {
	events, err := h.svc.ListEvents(c.Request().Context())
	if err != nil {
		return err
	}

	resp := make([]dto.EventResponse, len(events))
	for i := range events {
		resp[i] = dto.ToEventResponse(&events[i])
	}

	return c.JSON(http.StatusOK, resp)
}

func (h *EventHandler) UpdateStatus(c echo.Context) error {
	event, err := eventByID(c, h.svc)
	if err != nil {
		return err
	}

	var req dto.UpdateEventStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	updated, err := h.svc.UpdateStatus(c.Request().Context(), event.ID, models.EventStatus(req.Status))
	if err != nil {
		return eventError(err)
	}
	return c.JSON(http.StatusOK, dto.ToEventResponse(updated))
}

func (h *EventHandler) GetCapacity(c echo.Context) error {
	event, err := eventByID(c, h.svc)
	if err != nil {
		return err
	}

	resp, err := h.svc.Capacity(c.Request().Context(), event.Slug)
	if err != nil {
		return eventError(err)
	}
	return c.JSON(http.StatusOK, resp)
}

func eventError(err error) error {
	switch {
	case errors.Is(err, service.ErrEventNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidEvent):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return err
	}
}
