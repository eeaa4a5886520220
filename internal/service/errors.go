package service

import (
	"errors"

	"github.com/fairwaylink/event-booking/internal/dto"
)

var (
	ErrEventNotFound   = errors.New("event not found")
	ErrBookingNotFound = errors.New("booking not found")
	ErrInvalidEvent    = errors.New("invalid event")

	ErrIdempotencyKeyRequired = errors.New("Idempotency-Key header is required")
	ErrRequestInProgress      = errors.New("a request with this idempotency key is in progress")

	ErrRegistrationClosed  = errors.New("registration is not open")
	ErrSoldOut             = errors.New("sold out")
	ErrInvalidAccessCode   = errors.New("invalid access code")
	ErrTicketUnavailable   = errors.New("ticket type is not available")
	ErrInvalidQuantity     = errors.New("invalid quantity")
	ErrAddOnUnavailable    = errors.New("add-on is not available")
	ErrAddOnSoldOut        = errors.New("add-on is sold out")
	ErrInvalidSelection    = errors.New("invalid add-on selection")
	ErrMissingField        = errors.New("required field is missing")
	ErrInvalidResponse     = errors.New("invalid form response")
	ErrPaymentFailed       = errors.New("payment checkout could not be started")
	ErrBookingNotActive    = errors.New("booking is not active")
	ErrWaitlistUnavailable = errors.New("waitlist is not available")
	ErrAlreadyWaitlisted   = errors.New("already on the waitlist")
)

var rejections = []struct {
	err  error
	code string
}{
	{ErrSoldOut, dto.ErrorSoldOut},
	{ErrInvalidAccessCode, dto.ErrorInvalidAccessCode},
	{ErrRegistrationClosed, "registration_closed"},
	{ErrTicketUnavailable, "ticket_unavailable"},
	{ErrInvalidQuantity, "invalid_quantity"},
	{ErrAddOnUnavailable, "addon_unavailable"},
	{ErrAddOnSoldOut, "addon_sold_out"},
	{ErrInvalidSelection, "invalid_selection"},
	{ErrMissingField, "missing_field"},
	{ErrInvalidResponse, "invalid_response"},
	{ErrPaymentFailed, "payment_failed"},
	{ErrBookingNotActive, "booking_not_active"},
	{ErrWaitlistUnavailable, "waitlist_unavailable"},
	{ErrAlreadyWaitlisted, "already_waitlisted"},
	{ErrRequestInProgress, "request_in_progress"},
	{ErrIdempotencyKeyRequired, "idempotency_key_required"},
}

// RejectionCode returns the wire code for a submission rejection, or "" when err
// is not one.
func RejectionCode(err error) string {
	for _, r := range rejections {
		if errors.Is(err, r.err) {
			return r.code
		}
	}
	return ""
}
