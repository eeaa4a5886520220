// Package eligibility classifies events, ticket types and add-ons as selectable or
// not at a given instant.
package eligibility

import (
	"time"

	"github.com/fairwaylink/event-booking/internal/ledger"
	"github.com/fairwaylink/event-booking/internal/models"
)

type Status string

const (
	Selectable   Status = "selectable"
	SoldOut      Status = "sold_out"
	NotOnSaleYet Status = "not_on_sale_yet"
	SaleEnded    Status = "sale_ended"
	Locked       Status = "locked"
)

type SaleStatus string

const (
	SaleOpen       SaleStatus = "open"
	SaleNotStarted SaleStatus = "not_started"
	SaleEndedState SaleStatus = "ended"
)

// Gate is the event-wide classification. Everything except GateOpen and
// GateWaitlist is terminal for a browsing session.
type Gate string

const (
	GateOpen      Gate = "open"
	GateWaitlist  Gate = "waitlist"
	GateCancelled Gate = "cancelled"
	GateClosed    Gate = "closed"
	GateNotOpen   Gate = "not_open"
	GateSoldOut   Gate = "sold_out"
)

func (g Gate) Terminal() bool {
	return g != GateOpen && g != GateWaitlist
}

func SaleWindow(start, end *time.Time, now time.Time) SaleStatus {
	if start != nil && now.Before(*start) {
		return SaleNotStarted
	}
	if end != nil && now.After(*end) {
		return SaleEndedState
	}
	return SaleOpen
}

// TicketListed reports whether a ticket type appears on the public page. Hidden
// ticket types never do; invite-only ones appear only behind their access code.
func TicketListed(t models.TicketType) bool {
	switch t.Visibility {
	case models.VisibilityHidden:
		return false
	case models.VisibilityInviteOnly:
		return t.RequiresCode()
	}
	return true
}

func AddOnListed(a models.AddOn) bool {
	return a.Visibility == "" || a.Visibility == models.VisibilityPublic
}

// Classify applies the item priority: sale window, then capacity, then the code gate.
func Classify(sale SaleStatus, soldOut, locked bool) Status {
	switch sale {
	case SaleNotStarted:
		return NotOnSaleYet
	case SaleEndedState:
		return SaleEnded
	}
	if soldOut {
		return SoldOut
	}
	if locked {
		return Locked
	}
	return Selectable
}

// Ticket classifies a ticket type. unlocked is the browsing session's provisional
// unlock and is never verified here.
func Ticket(t models.TicketType, snap ledger.Snapshot, now time.Time, unlocked bool) Status {
	sale := SaleWindow(t.SaleStartsAt, t.SaleEndsAt, now)
	return Classify(sale, snap.TicketSoldOut(t.ID), t.RequiresCode() && !unlocked)
}

func AddOn(a models.AddOn, snap ledger.Snapshot, now time.Time) Status {
	return Classify(SaleWindow(a.SaleStartsAt, a.SaleEndsAt, now), snap.AddOnSoldOut(a.ID), false)
}

// Event evaluates the registration gate once for the whole event. Status alone is
// not trusted: the registration window, remaining spots and the presence of a
// ticket type that is or will be on sale are all checked.
func Event(e models.Event, snap ledger.Snapshot, now time.Time) Gate {
	switch e.Status {
	case models.EventCancelled:
		return GateCancelled
	case models.EventClosed:
		return GateClosed
	case models.EventDraft, "":
		return GateNotOpen
	}

	if e.RegistrationOpensAt != nil && now.Before(*e.RegistrationOpensAt) {
		return GateNotOpen
	}
	if e.RegistrationClosesAt != nil && now.After(*e.RegistrationClosesAt) {
		return GateClosed
	}

	var bookable, upcoming, onSale int
	for _, t := range e.TicketTypes {
		if !TicketListed(t) {
			continue
		}
		bookable++
		switch SaleWindow(t.SaleStartsAt, t.SaleEndsAt, now) {
		case SaleOpen:
			onSale++
		case SaleNotStarted:
			upcoming++
		}
	}
	switch {
	case bookable == 0:
		return GateNotOpen
	case onSale == 0 && upcoming == 0:
		return GateClosed
	case onSale == 0:
		return GateNotOpen
	}

	if snap.SpotsRemaining <= 0 || e.Status == models.EventSoldOut {
		if e.WaitlistEnabled {
			return GateWaitlist
		}
		return GateSoldOut
	}

	return GateOpen
}
