// Package ledger derives remaining capacity for an event from its static capacity
// configuration and the quantities held by active bookings.
//
// Nothing here is stored: every snapshot is recomputed from booking rows, so the
// only way to consume capacity is to insert a booking.
package ledger

import (
	"errors"
	"fmt"

	"github.com/fairwaylink/event-booking/internal/models"
)

var (
	ErrEventFull      = errors.New("event has no spots remaining")
	ErrTicketSoldOut  = errors.New("ticket type is sold out")
	ErrAddOnSoldOut   = errors.New("add-on is sold out")
	ErrUnknownTicket  = errors.New("unknown ticket type")
	ErrUnknownAddOn   = errors.New("unknown add-on")
	ErrInvalidRequest = errors.New("quantity must be positive")
)

// SoldCounts holds active quantities. Event is the sum over all ticket types.
type SoldCounts struct {
	Event   int
	Tickets map[uint]int
	AddOns  map[uint]int
}

func NewSoldCounts() SoldCounts {
	return SoldCounts{
		Tickets: make(map[uint]int),
		AddOns:  make(map[uint]int),
	}
}

// Tally derives sold counts from booking rows. Bookings that are not pending or
// confirmed are ignored.
func Tally(bookings []models.Booking) SoldCounts {
	sold := NewSoldCounts()
	for _, b := range bookings {
		if !b.Status.Active() {
			continue
		}
		sold.Event += b.Quantity
		sold.Tickets[b.TicketTypeID] += b.Quantity
		for _, line := range b.AddOns {
			sold.AddOns[line.AddOnID] += line.Quantity
		}
	}
	return sold
}

// Snapshot is the remaining capacity of one event. Raw values may be negative when
// an event was overbooked; use the accessor methods for display values.
type Snapshot struct {
	SpotsRemaining int
	tickets        map[uint]*int
	addOns         map[uint]*int
}

// Compute builds a snapshot. A nil entry means the item has no independent cap.
func Compute(event models.Event, ticketTypes []models.TicketType, addOns []models.AddOn, sold SoldCounts) Snapshot {
	snap := Snapshot{
		SpotsRemaining: event.TotalCapacity - sold.Event,
		tickets:        make(map[uint]*int, len(ticketTypes)),
		addOns:         make(map[uint]*int, len(addOns)),
	}

	for _, t := range ticketTypes {
		if t.Capacity == nil {
			snap.tickets[t.ID] = nil
			continue
		}
		available := *t.Capacity - sold.Tickets[t.ID]
		snap.tickets[t.ID] = &available
	}

	for _, a := range addOns {
		if a.Capacity == nil {
			snap.addOns[a.ID] = nil
			continue
		}
		available := *a.Capacity - sold.AddOns[a.ID]
		snap.addOns[a.ID] = &available
	}

	return snap
}

// Spots is the event-level remaining capacity floored at zero.
func (s Snapshot) Spots() int {
	return floor(s.SpotsRemaining)
}

// TicketCapacity returns the ticket type's own remaining capacity, floored, and
// false when the ticket type has no independent cap.
func (s Snapshot) TicketCapacity(id uint) (int, bool) {
	available, ok := s.tickets[id]
	if !ok || available == nil {
		return 0, false
	}
	return floor(*available), true
}

// TicketAvailable is the effective purchasable quantity for a ticket type: its own
// remaining capacity bounded by the event's remaining spots.
func (s Snapshot) TicketAvailable(id uint) int {
	limit := s.SpotsRemaining
	if available, ok := s.tickets[id]; ok && available != nil && *available < limit {
		limit = *available
	}
	return floor(limit)
}

// AddOnAvailable returns the add-on's remaining capacity, floored, and false when
// the add-on is unbounded. Add-ons never draw from event capacity.
func (s Snapshot) AddOnAvailable(id uint) (int, bool) {
	available, ok := s.addOns[id]
	if !ok || available == nil {
		return 0, false
	}
	return floor(*available), true
}

func (s Snapshot) TicketSoldOut(id uint) bool {
	return s.TicketAvailable(id) <= 0
}

func (s Snapshot) AddOnSoldOut(id uint) bool {
	available, bounded := s.AddOnAvailable(id)
	return bounded && available <= 0
}

// CheckTicket fails if either the event-level or the ticket-level capacity cannot
// cover qty.
func (s Snapshot) CheckTicket(id uint, qty int) error {
	if qty <= 0 {
		return ErrInvalidRequest
	}
	available, ok := s.tickets[id]
	if !ok {
		return fmt.Errorf("ticket type %d: %w", id, ErrUnknownTicket)
	}
	if qty > s.SpotsRemaining {
		return fmt.Errorf("requested %d, %d spots remaining: %w", qty, s.Spots(), ErrEventFull)
	}
	if available != nil && qty > *available {
		return fmt.Errorf("ticket type %d: requested %d, %d remaining: %w", id, qty, floor(*available), ErrTicketSoldOut)
	}
	return nil
}

func (s Snapshot) CheckAddOn(id uint, qty int) error {
	if qty <= 0 {
		return ErrInvalidRequest
	}
	available, ok := s.addOns[id]
	if !ok {
		return fmt.Errorf("add-on %d: %w", id, ErrUnknownAddOn)
	}
	if available != nil && qty > *available {
		return fmt.Errorf("add-on %d: requested %d, %d remaining: %w", id, qty, floor(*available), ErrAddOnSoldOut)
	}
	return nil
}

func floor(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
