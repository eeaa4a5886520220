package handler

import (
	"net/http"

	"github.com/fairwaylink/event-booking/internal/dto"
	"github.com/fairwaylink/event-booking/internal/service"
	"github.com/labstack/echo/v4"
)

type WaitlistHandler struct {
	svc    service.WaitlistService
	events service.EventService
}

func NewWaitlistHandler(svc service.WaitlistService, events service.EventService) *WaitlistHandler {
	return &WaitlistHandler{svc: svc, events: events}
}

func (h *WaitlistHandler) RegisterRoutes(public, admin *echo.Group) {
	public.POST("/events/:slug/waitlist", h.Join)
	admin.GET("/events/:id/waitlist", h.List)
}

func (h *WaitlistHandler) Join(c echo.Context) error {
	var req dto.JoinWaitlistRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.BookingOutcome{Error: "invalid_request", Detail: "invalid request body"})
	}

	entry, err := h.svc.Join(c.Request().Context(), c.Param("slug"), req)
	if err != nil {
		return rejection(c, err)
	}

	resp := dto.ToWaitlistEntryResponse(entry)
	return c.JSON(http.StatusCreated, dto.BookingOutcome{Status: dto.OutcomeWaitlisted, WaitlistEntry: &resp})
}

func (h *WaitlistHandler) List(c echo.Context) error {
	event, err := eventByID(c, h.events)
	if err != nil {
		return err
	}

	entries, err := h.svc.List(c.Request().Context(), event.Slug)
	if err != nil {
		return err
	}

	resp := make([]dto.WaitlistEntryResponse, len(entries))
	for i := range entries {
		resp[i] = dto.ToWaitlistEntryResponse(&entries[i])
	}
	return c.JSON(http.StatusOK, resp)
}
