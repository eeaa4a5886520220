package dto

import (
	"cmp"
	"slices"
	"time"

	"github.com/fairwaylink/event-booking/internal/eligibility"
	"github.com/fairwaylink/event-booking/internal/ledger"
	"github.com/fairwaylink/event-booking/internal/models"
	"github.com/fairwaylink/event-booking/internal/pricing"
)

// Submission outcome codes.
const (
	OutcomeConfirmed  = "confirmed"
	OutcomeWaitlisted = "waitlisted"

	ErrorSoldOut           = "sold_out"
	ErrorInvalidAccessCode = "invalid_access_code"
)

type EventView struct {
	ID                   uint               `json:"id"`
	Name                 string             `json:"name"`
	Slug                 string             `json:"slug"`
	StartsAt             time.Time          `json:"starts_at"`
	Location             string             `json:"location"`
	Currency             string             `json:"currency"`
	Status               models.EventStatus `json:"status"`
	RegistrationOpensAt  *time.Time         `json:"registration_opens_at,omitempty"`
	RegistrationClosesAt *time.Time         `json:"registration_closes_at,omitempty"`
	WaitlistEnabled      bool               `json:"waitlist_enabled"`
}

type TicketTypeView struct {
	ID              uint                   `json:"id"`
	Name            string                 `json:"name"`
	Description     string                 `json:"description,omitempty"`
	Price           int64                  `json:"price"`
	PriceDisplay    string                 `json:"price_display"`
	Available       int                    `json:"available"`
	SaleStatus      eligibility.SaleStatus `json:"sale_status"`
	Status          eligibility.Status     `json:"status"`
	RequiresCode    bool                   `json:"requires_code"`
	MinPerOrder     int                    `json:"min_per_order"`
	MaxPerOrder     int                    `json:"max_per_order"`
	WaitlistEnabled bool                   `json:"waitlist_enabled"`
	SaleStartsAt    *time.Time             `json:"sale_starts_at,omitempty"`
	SaleEndsAt      *time.Time             `json:"sale_ends_at,omitempty"`
}

type AddOnGroupView struct {
	ID            uint                 `json:"id"`
	Name          string               `json:"name"`
	SelectionType models.SelectionType `json:"selection_type"`
}

// AddOnView.Available is nil when the add-on has no cap.
type AddOnView struct {
	ID           uint                   `json:"id"`
	GroupID      *uint                  `json:"group_id,omitempty"`
	Name         string                 `json:"name"`
	Description  string                 `json:"description,omitempty"`
	Price        int64                  `json:"price"`
	PriceDisplay string                 `json:"price_display"`
	Available    *int                   `json:"available"`
	MaxPerOrder  int                    `json:"max_per_order"`
	Required     bool                   `json:"required"`
	SaleStatus   eligibility.SaleStatus `json:"sale_status"`
	Status       eligibility.Status     `json:"status"`
}

type FormFieldView struct {
	ID        uint             `json:"id"`
	Label     string           `json:"label"`
	FieldType models.FieldType `json:"field_type"`
	Options   []string         `json:"options,omitempty"`
	Required  bool             `json:"required"`
}

// EventCatalog is everything a booking page needs to render, with capacity and
// eligibility already resolved.
type EventCatalog struct {
	Event          EventView        `json:"event"`
	Gate           eligibility.Gate `json:"gate"`
	SpotsRemaining int              `json:"spots_remaining"`
	TicketTypes    []TicketTypeView `json:"ticket_types"`
	AddOnGroups    []AddOnGroupView `json:"add_on_groups"`
	AddOns         []AddOnView      `json:"add_ons"`
	FormFields     []FormFieldView  `json:"form_fields"`
}

func (c *EventCatalog) TicketType(id uint) (TicketTypeView, bool) {
	for _, t := range c.TicketTypes {
		if t.ID == id {
			return t, true
		}
	}
	return TicketTypeView{}, false
}

func (c *EventCatalog) AddOn(id uint) (AddOnView, bool) {
	for _, a := range c.AddOns {
		if a.ID == id {
			return a, true
		}
	}
	return AddOnView{}, false
}

func (c *EventCatalog) AddOnGroup(id uint) (AddOnGroupView, bool) {
	for _, g := range c.AddOnGroups {
		if g.ID == id {
			return g, true
		}
	}
	return AddOnGroupView{}, false
}

func ToEventCatalog(e *models.Event, snap ledger.Snapshot, gate eligibility.Gate, now time.Time) EventCatalog {
	catalog := EventCatalog{
		Event: EventView{
			ID:                   e.ID,
			Name:                 e.Name,
			Slug:                 e.Slug,
			StartsAt:             e.StartsAt,
			Location:             e.Location,
			Currency:             e.Currency,
			Status:               e.Status,
			RegistrationOpensAt:  e.RegistrationOpensAt,
			RegistrationClosesAt: e.RegistrationClosesAt,
			WaitlistEnabled:      e.WaitlistEnabled,
		},
		Gate:           gate,
		SpotsRemaining: snap.Spots(),
		TicketTypes:    []TicketTypeView{},
		AddOnGroups:    []AddOnGroupView{},
		AddOns:         []AddOnView{},
		FormFields:     []FormFieldView{},
	}

	tickets := slices.Clone(e.TicketTypes)
	slices.SortStableFunc(tickets, func(a, b models.TicketType) int {
		return cmp.Or(cmp.Compare(a.SortOrder, b.SortOrder), cmp.Compare(a.ID, b.ID))
	})
	for _, t := range tickets {
		if !eligibility.TicketListed(t) {
			continue
		}
		catalog.TicketTypes = append(catalog.TicketTypes, TicketTypeView{
			ID:              t.ID,
			Name:            t.Name,
			Description:     t.Description,
			Price:           t.Price,
			PriceDisplay:    pricing.Format(t.Price, e.Currency),
			Available:       snap.TicketAvailable(t.ID),
			SaleStatus:      eligibility.SaleWindow(t.SaleStartsAt, t.SaleEndsAt, now),
			Status:          eligibility.Ticket(t, snap, now, false),
			RequiresCode:    t.RequiresCode(),
			MinPerOrder:     t.MinPerOrder,
			MaxPerOrder:     t.MaxPerOrder,
			WaitlistEnabled: t.WaitlistEnabled,
			SaleStartsAt:    t.SaleStartsAt,
			SaleEndsAt:      t.SaleEndsAt,
		})
	}

	groups := slices.Clone(e.AddOnGroups)
	slices.SortStableFunc(groups, func(a, b models.AddOnGroup) int {
		return cmp.Or(cmp.Compare(a.SortOrder, b.SortOrder), cmp.Compare(a.ID, b.ID))
	})
	for _, g := range groups {
		catalog.AddOnGroups = append(catalog.AddOnGroups, AddOnGroupView{
			ID:            g.ID,
			Name:          g.Name,
			SelectionType: g.SelectionType,
		})
	}

	addOns := slices.Clone(e.AddOns)
	slices.SortStableFunc(addOns, func(a, b models.AddOn) int {
		return cmp.Or(cmp.Compare(a.SortOrder, b.SortOrder), cmp.Compare(a.ID, b.ID))
	})
	for _, a := range addOns {
		if !eligibility.AddOnListed(a) {
			continue
		}
		view := AddOnView{
			ID:           a.ID,
			GroupID:      a.GroupID,
			Name:         a.Name,
			Description:  a.Description,
			Price:        a.Price,
			PriceDisplay: pricing.Format(a.Price, e.Currency),
			MaxPerOrder:  a.MaxPerOrder,
			Required:     a.Required,
			SaleStatus:   eligibility.SaleWindow(a.SaleStartsAt, a.SaleEndsAt, now),
			Status:       eligibility.AddOn(a, snap, now),
		}
		if available, bounded := snap.AddOnAvailable(a.ID); bounded {
			view.Available = &available
		}
		catalog.AddOns = append(catalog.AddOns, view)
	}

	fields := slices.Clone(e.FormFields)
	slices.SortStableFunc(fields, func(a, b models.FormField) int {
		return cmp.Or(cmp.Compare(a.SortOrder, b.SortOrder), cmp.Compare(a.ID, b.ID))
	})
	for _, f := range fields {
		catalog.FormFields = append(catalog.FormFields, FormFieldView{
			ID:        f.ID,
			Label:     f.Label,
			FieldType: f.FieldType,
			Options:   f.Options,
			Required:  f.Required,
		})
	}

	return catalog
}

type BookingAddOnResponse struct {
	AddOnID         uint  `json:"add_on_id"`
	Quantity        int   `json:"quantity"`
	PriceAtPurchase int64 `json:"price_at_purchase"`
}

type FormResponseView struct {
	FieldID uint    `json:"field_id"`
	Value   *string `json:"value"`
}

type BookingResponse struct {
	ID                    uint                   `json:"id"`
	EventID               uint                   `json:"event_id"`
	TicketTypeID          uint                   `json:"ticket_type_id"`
	FirstName             string                 `json:"first_name"`
	LastName              string                 `json:"last_name"`
	Email                 string                 `json:"email"`
	Phone                 string                 `json:"phone,omitempty"`
	Notes                 string                 `json:"notes,omitempty"`
	Status                models.BookingStatus   `json:"status"`
	Quantity              int                    `json:"quantity"`
	TicketPriceAtPurchase int64                  `json:"ticket_price_at_purchase"`
	TotalAmount           int64                  `json:"total_amount"`
	AddOns                []BookingAddOnResponse `json:"add_ons,omitempty"`
	Responses             []FormResponseView     `json:"responses,omitempty"`
	ExpiresAt             *time.Time             `json:"expires_at,omitempty"`
	CreatedAt             time.Time              `json:"created_at"`
}

func ToBookingResponse(b *models.Booking) BookingResponse {
	resp := BookingResponse{
		ID:                    b.ID,
		EventID:               b.EventID,
		TicketTypeID:          b.TicketTypeID,
		FirstName:             b.FirstName,
		LastName:              b.LastName,
		Email:                 b.Email,
		Phone:                 b.Phone,
		Notes:                 b.Notes,
		Status:                b.Status,
		Quantity:              b.Quantity,
		TicketPriceAtPurchase: b.TicketPriceAtPurchase,
		TotalAmount:           b.TotalAmount,
		ExpiresAt:             b.ExpiresAt,
		CreatedAt:             b.CreatedAt,
	}
	for _, line := range b.AddOns {
		resp.AddOns = append(resp.AddOns, BookingAddOnResponse{
			AddOnID:         line.AddOnID,
			Quantity:        line.Quantity,
			PriceAtPurchase: line.PriceAtPurchase,
		})
	}
	for _, r := range b.Responses {
		resp.Responses = append(resp.Responses, FormResponseView{FieldID: r.FormFieldID, Value: r.Value})
	}
	return resp
}

type WaitlistEntryResponse struct {
	ID             uint                  `json:"id"`
	EventID        uint                  `json:"event_id"`
	TicketTypeID   *uint                 `json:"ticket_type_id,omitempty"`
	AddOnID        *uint                 `json:"add_on_id,omitempty"`
	FirstName      string                `json:"first_name"`
	LastName       string                `json:"last_name"`
	Email          string                `json:"email"`
	Position       int                   `json:"position"`
	Status         models.WaitlistStatus `json:"status"`
	OfferExpiresAt *time.Time            `json:"offer_expires_at,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
}

func ToWaitlistEntryResponse(w *models.WaitlistEntry) WaitlistEntryResponse {
	return WaitlistEntryResponse{
		ID:             w.ID,
		EventID:        w.EventID,
		TicketTypeID:   w.TicketTypeID,
		AddOnID:        w.AddOnID,
		FirstName:      w.FirstName,
		LastName:       w.LastName,
		Email:          w.Email,
		Position:       w.Position,
		Status:         w.Status,
		OfferExpiresAt: w.OfferExpiresAt,
		CreatedAt:      w.CreatedAt,
	}
}

// BookingOutcome is the submission endpoint's reply: exactly one of a confirmed
// status, a checkout URL, a waitlisted status or an error code is meaningful.
type BookingOutcome struct {
	Status        string                 `json:"status,omitempty"`
	CheckoutURL   string                 `json:"checkout_url,omitempty"`
	Error         string                 `json:"error,omitempty"`
	Detail        string                 `json:"detail,omitempty"`
	Booking       *BookingResponse       `json:"booking,omitempty"`
	WaitlistEntry *WaitlistEntryResponse `json:"waitlist_entry,omitempty"`
}

type ItemCapacity struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Capacity  *int   `json:"capacity"`
	Sold      int    `json:"sold"`
	Available *int   `json:"available"`
}

type CapacityResponse struct {
	EventID        uint           `json:"event_id"`
	TotalCapacity  int            `json:"total_capacity"`
	Sold           int            `json:"sold"`
	SpotsRemaining int            `json:"spots_remaining"`
	Gate           string         `json:"gate"`
	TicketTypes    []ItemCapacity `json:"ticket_types"`
	AddOns         []ItemCapacity `json:"add_ons"`
}

// ToCapacityResponse reports every item including hidden ones. Ticket availability
// is the effective limit; add-on availability is nil when uncapped.
func ToCapacityResponse(e *models.Event, sold ledger.SoldCounts, snap ledger.Snapshot, gate eligibility.Gate) CapacityResponse {
	resp := CapacityResponse{
		EventID:        e.ID,
		TotalCapacity:  e.TotalCapacity,
		Sold:           sold.Event,
		SpotsRemaining: snap.Spots(),
		Gate:           string(gate),
		TicketTypes:    []ItemCapacity{},
		AddOns:         []ItemCapacity{},
	}
	for _, t := range e.TicketTypes {
		available := snap.TicketAvailable(t.ID)
		resp.TicketTypes = append(resp.TicketTypes, ItemCapacity{
			ID:        t.ID,
			Name:      t.Name,
			Capacity:  t.Capacity,
			Sold:      sold.Tickets[t.ID],
			Available: &available,
		})
	}
	for _, a := range e.AddOns {
		item := ItemCapacity{ID: a.ID, Name: a.Name, Capacity: a.Capacity, Sold: sold.AddOns[a.ID]}
		if available, bounded := snap.AddOnAvailable(a.ID); bounded {
			item.Available = &available
		}
		resp.AddOns = append(resp.AddOns, item)
	}
	return resp
}

type EventResponse struct {
	ID            uint               `json:"id"`
	Name          string             `json:"name"`
	Slug          string             `json:"slug"`
	StartsAt      time.Time          `json:"starts_at"`
	Currency      string             `json:"currency"`
	TotalCapacity int                `json:"total_capacity"`
	Status        models.EventStatus `json:"status"`
	TicketTypes   int                `json:"ticket_types"`
	AddOns        int                `json:"add_ons"`
	CreatedAt     time.Time          `json:"created_at"`
}

func ToEventResponse(e *models.Event) EventResponse {
	return EventResponse{
		ID:            e.ID,
		Name:          e.Name,
		Slug:          e.Slug,
		StartsAt:      e.StartsAt,
		Currency:      e.Currency,
		TotalCapacity: e.TotalCapacity,
		Status:        e.Status,
		TicketTypes:   len(e.TicketTypes),
		AddOns:        len(e.AddOns),
		CreatedAt:     e.CreatedAt,
	}
}

type ErrorResponse struct {
	Message string `json:"message"`
}
