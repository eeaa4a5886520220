package service

import (
	"crypto/subtle"
	"fmt"
	"net/mail"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/fairwaylink/event-booking/internal/dto"
	"github.com/fairwaylink/event-booking/internal/eligibility"
	"github.com/fairwaylink/event-booking/internal/ledger"
	"github.com/fairwaylink/event-booking/internal/models"
	"github.com/fairwaylink/event-booking/internal/pricing"
)

// buildBooking checks a submission against the locked event and a snapshot taken
// under that lock, and prices it from the current catalog. The returned booking
// has no status, key or expiry yet.
func buildBooking(e *models.Event, snap ledger.Snapshot, req dto.CreateBookingRequest, now time.Time) (*models.Booking, error) {
	switch gate := eligibility.Event(*e, snap, now); gate {
	case eligibility.GateOpen:
	case eligibility.GateSoldOut, eligibility.GateWaitlist:
		return nil, ErrSoldOut
	default:
		return nil, fmt.Errorf("%w: %s", ErrRegistrationClosed, gate)
	}

	t, ok := e.TicketType(req.TicketTypeID)
	if !ok || !eligibility.TicketListed(*t) {
		return nil, fmt.Errorf("%w: %d", ErrTicketUnavailable, req.TicketTypeID)
	}
	if sale := eligibility.SaleWindow(t.SaleStartsAt, t.SaleEndsAt, now); sale != eligibility.SaleOpen {
		return nil, fmt.Errorf("%w: %s sale %s", ErrTicketUnavailable, t.Name, sale)
	}
	if t.RequiresCode() && !codeMatches(*t.AccessCode, req.AccessCode) {
		return nil, ErrInvalidAccessCode
	}

	lo := max(t.MinPerOrder, 1)
	if req.Quantity < lo || (t.MaxPerOrder > 0 && req.Quantity > t.MaxPerOrder) {
		return nil, fmt.Errorf("%w: %d %s tickets", ErrInvalidQuantity, req.Quantity, t.Name)
	}
	if err := snap.CheckTicket(t.ID, req.Quantity); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSoldOut, err)
	}

	addOns, err := addOnLines(e, snap, req.AddOns, now)
	if err != nil {
		return nil, err
	}

	b := &models.Booking{
		EventID:               e.ID,
		TicketTypeID:          t.ID,
		FirstName:             strings.TrimSpace(req.FirstName),
		LastName:              strings.TrimSpace(req.LastName),
		Email:                 strings.TrimSpace(req.Email),
		Phone:                 strings.TrimSpace(req.Phone),
		Notes:                 strings.TrimSpace(req.Notes),
		Quantity:              req.Quantity,
		TicketPriceAtPurchase: t.Price,
		AddOns:                addOns,
	}
	if err := checkIdentity(b.FirstName, b.LastName, b.Email); err != nil {
		return nil, err
	}

	b.Responses, err = formResponses(e, req.Responses)
	if err != nil {
		return nil, err
	}

	lines := []pricing.Line{{UnitPrice: t.Price, Quantity: req.Quantity}}
	for _, a := range addOns {
		lines = append(lines, pricing.Line{UnitPrice: a.PriceAtPurchase, Quantity: a.Quantity})
	}
	b.TotalAmount = pricing.Total(lines...)

	if b.TotalAmount > 0 {
		if !absoluteURL(req.SuccessURL) || !absoluteURL(req.CancelURL) {
			return nil, fmt.Errorf("%w: success_url and cancel_url", ErrMissingField)
		}
	}
	return b, nil
}

// codeMatches compares access codes exactly, ignoring surrounding space.
func codeMatches(want, got string) bool {
	got = strings.TrimSpace(got)
	if got == "" {
		return false
	}
	want = strings.TrimSpace(want)
	return subtle.ConstantTimeCompare([]byte(want), []byte(got)) == 1
}

func addOnLines(e *models.Event, snap ledger.Snapshot, selections []dto.AddOnSelection, now time.Time) ([]models.BookingAddOn, error) {
	var lines []models.BookingAddOn
	seen := make(map[uint]bool, len(selections))
	perGroup := make(map[uint]int)

	for _, sel := range selections {
		if seen[sel.AddOnID] {
			return nil, fmt.Errorf("%w: add-on %d selected twice", ErrInvalidSelection, sel.AddOnID)
		}
		seen[sel.AddOnID] = true

		a, ok := e.AddOn(sel.AddOnID)
		if !ok || !eligibility.AddOnListed(*a) {
			return nil, fmt.Errorf("%w: %d", ErrAddOnUnavailable, sel.AddOnID)
		}
		if sale := eligibility.SaleWindow(a.SaleStartsAt, a.SaleEndsAt, now); sale != eligibility.SaleOpen {
			return nil, fmt.Errorf("%w: %s sale %s", ErrAddOnUnavailable, a.Name, sale)
		}
		if sel.Quantity < 1 || (a.MaxPerOrder > 0 && sel.Quantity > a.MaxPerOrder) {
			return nil, fmt.Errorf("%w: %d x %s", ErrInvalidQuantity, sel.Quantity, a.Name)
		}
		if err := snap.CheckAddOn(a.ID, sel.Quantity); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrAddOnSoldOut, err)
		}
		if a.GroupID != nil {
			if g, ok := e.AddOnGroup(*a.GroupID); ok && g.SelectionType == models.SelectOneOnly {
				perGroup[g.ID]++
				if perGroup[g.ID] > 1 {
					return nil, fmt.Errorf("%w: only one of %s", ErrInvalidSelection, g.Name)
				}
			}
		}

		lines = append(lines, models.BookingAddOn{
			AddOnID:         a.ID,
			Quantity:        sel.Quantity,
			PriceAtPurchase: a.Price,
		})
	}

	// A required add-on that cannot be bought right now does not block the order.
	for _, a := range e.AddOns {
		if !a.Required || seen[a.ID] || !eligibility.AddOnListed(a) {
			continue
		}
		if eligibility.AddOn(a, snap, now) == eligibility.Selectable {
			return nil, fmt.Errorf("%w: %s is required", ErrInvalidSelection, a.Name)
		}
	}

	return lines, nil
}

func checkIdentity(first, last, email string) error {
	switch {
	case first == "":
		return fmt.Errorf("%w: first_name", ErrMissingField)
	case last == "":
		return fmt.Errorf("%w: last_name", ErrMissingField)
	case email == "":
		return fmt.Errorf("%w: email", ErrMissingField)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("%w: email %q", ErrInvalidResponse, email)
	}
	return nil
}

func formResponses(e *models.Event, answers []dto.FormAnswer) ([]models.FormResponse, error) {
	byField := make(map[uint]*string, len(answers))
	for _, a := range answers {
		if _, ok := e.FormField(a.FieldID); !ok {
			return nil, fmt.Errorf("%w: unknown field %d", ErrInvalidResponse, a.FieldID)
		}
		if _, dup := byField[a.FieldID]; dup {
			return nil, fmt.Errorf("%w: field %d answered twice", ErrInvalidResponse, a.FieldID)
		}
		byField[a.FieldID] = a.Value
	}

	var out []models.FormResponse
	for _, f := range e.FormFields {
		raw, answered := byField[f.ID]
		var value string
		if raw != nil {
			value = strings.TrimSpace(*raw)
		}
		if value == "" {
			if f.Required {
				return nil, fmt.Errorf("%w: %s", ErrMissingField, f.Label)
			}
			if !answered {
				continue
			}
			out = append(out, models.FormResponse{FormFieldID: f.ID})
			continue
		}
		if err := checkAnswer(f, value); err != nil {
			return nil, err
		}
		out = append(out, models.FormResponse{FormFieldID: f.ID, Value: &value})
	}
	return out, nil
}

func checkAnswer(f models.FormField, value string) error {
	switch f.FieldType {
	case models.FieldSelect, models.FieldRadio:
		if !slices.Contains(f.Options, value) {
			return fmt.Errorf("%w: %q is not an option for %s", ErrInvalidResponse, value, f.Label)
		}
	case models.FieldNumber:
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return fmt.Errorf("%w: %s must be a number", ErrInvalidResponse, f.Label)
		}
	case models.FieldCheckbox:
		if _, err := strconv.ParseBool(value); err != nil {
			return fmt.Errorf("%w: %s must be true or false", ErrInvalidResponse, f.Label)
		}
	}
	return nil
}

func absoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.IsAbs() && u.Host != ""
}

// fits reports whether a booking's quantities still fit in snap.
func fits(snap ledger.Snapshot, b *models.Booking) bool {
	if snap.CheckTicket(b.TicketTypeID, b.Quantity) != nil {
		return false
	}
	for _, line := range b.AddOns {
		if snap.CheckAddOn(line.AddOnID, line.Quantity) != nil {
			return false
		}
	}
	return true
}
