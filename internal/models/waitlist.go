package models

import (
	"time"

	"gorm.io/datatypes"
)

type WaitlistStatus string

const (
	WaitlistWaiting   WaitlistStatus = "waiting"
	WaitlistNotified  WaitlistStatus = "notified"
	WaitlistConverted WaitlistStatus = "converted"
	WaitlistExpired   WaitlistStatus = "expired"
	WaitlistCancelled WaitlistStatus = "cancelled"
)

type WaitlistEntry struct {
	ID               uint                      `gorm:"primaryKey" json:"id"`
	EventID          uint                      `gorm:"not null;index" json:"event_id"`
	TicketTypeID     *uint                     `json:"ticket_type_id"`
	AddOnID          *uint                     `json:"add_on_id"`
	FirstName        string                    `gorm:"not null" json:"first_name"`
	LastName         string                    `gorm:"not null" json:"last_name"`
	Email            string                    `gorm:"not null" json:"email"`
	Phone            string                    `json:"phone,omitempty"`
	Position         int                       `gorm:"not null" json:"position"`
	Status           WaitlistStatus            `gorm:"type:varchar(20);not null;default:'waiting'" json:"status"`
	PaymentMethodRef *string                   `json:"-"`
	DesiredAddOnIDs  datatypes.JSONSlice[uint] `json:"desired_add_on_ids,omitempty"`
	OfferExpiresAt   *time.Time                `json:"offer_expires_at,omitempty"`
	CreatedAt        time.Time                 `json:"created_at"`
	UpdatedAt        time.Time                 `json:"updated_at"`
}

func (WaitlistEntry) TableName() string {
	return "event_waitlist_entries"
}
