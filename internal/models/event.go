package models

import "time"

type EventStatus string

const (
	EventDraft     EventStatus = "draft"
	EventPublished EventStatus = "published"
	EventSoldOut   EventStatus = "sold_out"
	EventClosed    EventStatus = "closed"
	EventCancelled EventStatus = "cancelled"
)

type Visibility string

const (
	VisibilityPublic     Visibility = "public"
	VisibilityHidden     Visibility = "hidden"
	VisibilityInviteOnly Visibility = "invite_only"
)

type Event struct {
	ID                   uint        `gorm:"primaryKey" json:"id"`
	Name                 string      `gorm:"not null" json:"name"`
	Slug                 string      `gorm:"not null;uniqueIndex" json:"slug"`
	StartsAt             time.Time   `gorm:"not null" json:"starts_at"`
	Location             string      `json:"location"`
	Currency             string      `gorm:"type:varchar(3);not null;default:'usd'" json:"currency"`
	TotalCapacity        int         `gorm:"not null" json:"total_capacity"`
	Status               EventStatus `gorm:"type:varchar(20);not null;default:'draft'" json:"status"`
	RegistrationOpensAt  *time.Time  `json:"registration_opens_at,omitempty"`
	RegistrationClosesAt *time.Time  `json:"registration_closes_at,omitempty"`
	WaitlistEnabled      bool        `gorm:"not null;default:false" json:"waitlist_enabled"`
	CreatedAt            time.Time   `json:"created_at"`
	UpdatedAt            time.Time   `json:"updated_at"`

	TicketTypes []TicketType `gorm:"constraint:OnDelete:CASCADE" json:"ticket_types,omitempty"`
	AddOnGroups []AddOnGroup `gorm:"constraint:OnDelete:CASCADE" json:"add_on_groups,omitempty"`
	AddOns      []AddOn      `gorm:"constraint:OnDelete:CASCADE" json:"add_ons,omitempty"`
	FormFields  []FormField  `gorm:"constraint:OnDelete:CASCADE" json:"form_fields,omitempty"`
}

// TicketType returns the event's ticket type with the given id.
func (e *Event) TicketType(id uint) (*TicketType, bool) {
	for i := range e.TicketTypes {
		if e.TicketTypes[i].ID == id {
			return &e.TicketTypes[i], true
		}
	}
	return nil, false
}

func (e *Event) AddOn(id uint) (*AddOn, bool) {
	for i := range e.AddOns {
		if e.AddOns[i].ID == id {
			return &e.AddOns[i], true
		}
	}
	return nil, false
}

func (e *Event) AddOnGroup(id uint) (*AddOnGroup, bool) {
	for i := range e.AddOnGroups {
		if e.AddOnGroups[i].ID == id {
			return &e.AddOnGroups[i], true
		}
	}
	return nil, false
}

func (e *Event) FormField(id uint) (*FormField, bool) {
	for i := range e.FormFields {
		if e.FormFields[i].ID == id {
			return &e.FormFields[i], true
		}
	}
	return nil, false
}
