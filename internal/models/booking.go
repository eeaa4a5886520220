package models

import "time"

type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusCancelled BookingStatus = "cancelled"
	StatusRefunded  BookingStatus = "refunded"
)

// ActiveStatuses are the booking statuses that hold capacity.
var ActiveStatuses = []BookingStatus{StatusPending, StatusConfirmed}

func (s BookingStatus) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

type Booking struct {
	ID                      uint          `gorm:"primaryKey" json:"id"`
	EventID                 uint          `gorm:"not null;index" json:"event_id"`
	TicketTypeID            uint          `gorm:"not null;index" json:"ticket_type_id"`
	FirstName               string        `gorm:"not null" json:"first_name"`
	LastName                string        `gorm:"not null" json:"last_name"`
	Email                   string        `gorm:"not null;index" json:"email"`
	Phone                   string        `json:"phone,omitempty"`
	Notes                   string        `json:"notes,omitempty"`
	Status                  BookingStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	Quantity                int           `gorm:"not null" json:"quantity"`
	TicketPriceAtPurchase   int64         `gorm:"not null" json:"ticket_price_at_purchase"`
	TotalAmount             int64         `gorm:"not null" json:"total_amount"`
	StripeCheckoutSessionID *string       `gorm:"uniqueIndex" json:"stripe_checkout_session_id,omitempty"`
	StripePaymentIntentID   *string       `json:"stripe_payment_intent_id,omitempty"`
	CheckoutURL             *string       `json:"-"`
	IdempotencyKey          string        `gorm:"not null;uniqueIndex" json:"-"`
	ExpiresAt               *time.Time    `json:"expires_at,omitempty"`
	CreatedAt               time.Time     `json:"created_at"`
	UpdatedAt               time.Time     `json:"updated_at"`

	AddOns    []BookingAddOn `gorm:"foreignKey:BookingID;constraint:OnDelete:CASCADE" json:"add_ons,omitempty"`
	Responses []FormResponse `gorm:"foreignKey:BookingID;constraint:OnDelete:CASCADE" json:"responses,omitempty"`
}

func (Booking) TableName() string {
	return "event_bookings"
}

type BookingAddOn struct {
	ID              uint  `gorm:"primaryKey" json:"id"`
	BookingID       uint  `gorm:"not null;index" json:"booking_id"`
	AddOnID         uint  `gorm:"not null;index" json:"add_on_id"`
	Quantity        int   `gorm:"not null" json:"quantity"`
	PriceAtPurchase int64 `gorm:"not null" json:"price_at_purchase"`
}

func (BookingAddOn) TableName() string {
	return "event_booking_add_ons"
}

type FormResponse struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	BookingID   uint    `gorm:"not null;index" json:"booking_id"`
	FormFieldID uint    `gorm:"not null" json:"form_field_id"`
	Value       *string `json:"value"`
}

func (FormResponse) TableName() string {
	return "event_form_responses"
}
