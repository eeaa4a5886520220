package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/fairwaylink/event-booking/internal/logging"
	"github.com/fairwaylink/event-booking/internal/payment"
	"github.com/fairwaylink/event-booking/internal/service"
	"github.com/labstack/echo/v4"
)

const maxWebhookBody = 64 << 10

type PaymentHandler struct {
	bookings      service.BookingService
	webhookSecret string
}

func NewPaymentHandler(bookings service.BookingService, webhookSecret string) *PaymentHandler {
	return &PaymentHandler{bookings: bookings, webhookSecret: webhookSecret}
}

func (h *PaymentHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/payments/stripe/webhook", h.StripeWebhook)
}

// StripeWebhook verifies the signature before anything else. Events that do
// not settle a checkout are acknowledged and dropped.
func (h *PaymentHandler) StripeWebhook(c echo.Context) error {
	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable body")
	}

	n, err := payment.ParseStripeWebhook(payload, c.Request().Header.Get("Stripe-Signature"), h.webhookSecret)
	if errors.Is(err, payment.ErrIgnoredEvent) {
		return c.NoContent(http.StatusOK)
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid webhook").SetInternal(err)
	}

	ctx := c.Request().Context()
	if err := service.ApplyNotification(ctx, h.bookings, n); err != nil {
		if errors.Is(err, payment.ErrIgnoredEvent) {
			return c.NoContent(http.StatusOK)
		}
		logging.FromContext(ctx).WithError(err).WithField("session_id", n.SessionID).Error("Failed to apply payment notification")
		return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
	}
	return c.NoContent(http.StatusOK)
}
