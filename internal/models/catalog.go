package models

import (
	"time"

	"gorm.io/datatypes"
)

type TicketType struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	EventID         uint       `gorm:"not null;index" json:"event_id"`
	Name            string     `gorm:"not null" json:"name"`
	Description     string     `json:"description"`
	Price           int64      `gorm:"not null;default:0" json:"price"`
	Capacity        *int       `json:"capacity"`
	Visibility      Visibility `gorm:"type:varchar(20);not null;default:'public'" json:"visibility"`
	SaleStartsAt    *time.Time `json:"sale_starts_at,omitempty"`
	SaleEndsAt      *time.Time `json:"sale_ends_at,omitempty"`
	MinPerOrder     int        `gorm:"not null;default:1" json:"min_per_order"`
	MaxPerOrder     int        `gorm:"not null;default:10" json:"max_per_order"`
	AccessCode      *string    `json:"-"`
	WaitlistEnabled bool       `gorm:"not null;default:false" json:"waitlist_enabled"`
	SortOrder       int        `gorm:"not null;default:0" json:"sort_order"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// RequiresCode reports whether the ticket type is gated by an access code.
func (t TicketType) RequiresCode() bool {
	return t.AccessCode != nil && *t.AccessCode != ""
}

type SelectionType string

const (
	SelectAny     SelectionType = "any"
	SelectOneOnly SelectionType = "one_only"
)

type AddOnGroup struct {
	ID            uint          `gorm:"primaryKey" json:"id"`
	EventID       uint          `gorm:"not null;index" json:"event_id"`
	Name          string        `gorm:"not null" json:"name"`
	SelectionType SelectionType `gorm:"type:varchar(20);not null;default:'any'" json:"selection_type"`
	SortOrder     int           `gorm:"not null;default:0" json:"sort_order"`
}

type AddOn struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	EventID      uint       `gorm:"not null;index" json:"event_id"`
	GroupID      *uint      `gorm:"index" json:"group_id"`
	Name         string     `gorm:"not null" json:"name"`
	Description  string     `json:"description"`
	Price        int64      `gorm:"not null;default:0" json:"price"`
	Capacity     *int       `json:"capacity"`
	MaxPerOrder  int        `gorm:"not null;default:1" json:"max_per_order"`
	Required     bool       `gorm:"not null;default:false" json:"required"`
	Visibility   Visibility `gorm:"type:varchar(20);not null;default:'public'" json:"visibility"`
	SaleStartsAt *time.Time `json:"sale_starts_at,omitempty"`
	SaleEndsAt   *time.Time `json:"sale_ends_at,omitempty"`
	SortOrder    int        `gorm:"not null;default:0" json:"sort_order"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type FieldType string

const (
	FieldText     FieldType = "text"
	FieldTextarea FieldType = "textarea"
	FieldSelect   FieldType = "select"
	FieldCheckbox FieldType = "checkbox"
	FieldRadio    FieldType = "radio"
	FieldNumber   FieldType = "number"
)

// FormField is one custom question asked during checkout.
type FormField struct {
	ID        uint                        `gorm:"primaryKey" json:"id"`
	EventID   uint                        `gorm:"not null;index" json:"event_id"`
	Label     string                      `gorm:"not null" json:"label"`
	FieldType FieldType                   `gorm:"type:varchar(20);not null;default:'text'" json:"field_type"`
	Options   datatypes.JSONSlice[string] `json:"options,omitempty"`
	Required  bool                        `gorm:"not null;default:false" json:"required"`
	SortOrder int                         `gorm:"not null;default:0" json:"sort_order"`
}

func (FormField) TableName() string {
	return "event_form_fields"
}
