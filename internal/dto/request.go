package dto

import "time"

type AddOnSelection struct {
	AddOnID  uint `json:"add_on_id"`
	Quantity int  `json:"quantity"`
}

type FormAnswer struct {
	FieldID uint    `json:"field_id"`
	Value   *string `json:"value"`
}

// CreateBookingRequest is the submission payload. SuccessURL and CancelURL are the
// page URL plus the payment return parameter.
type CreateBookingRequest struct {
	TicketTypeID uint             `json:"ticket_type_id"`
	Quantity     int              `json:"quantity"`
	AccessCode   string           `json:"access_code,omitempty"`
	AddOns       []AddOnSelection `json:"add_ons,omitempty"`
	FirstName    string           `json:"first_name"`
	LastName     string           `json:"last_name"`
	Email        string           `json:"email"`
	Phone        string           `json:"phone,omitempty"`
	Notes        string           `json:"notes,omitempty"`
	Responses    []FormAnswer     `json:"responses,omitempty"`
	SuccessURL   string           `json:"success_url,omitempty"`
	CancelURL    string           `json:"cancel_url,omitempty"`
}

type JoinWaitlistRequest struct {
	TicketTypeID     *uint   `json:"ticket_type_id,omitempty"`
	AddOnID          *uint   `json:"add_on_id,omitempty"`
	FirstName        string  `json:"first_name"`
	LastName         string  `json:"last_name"`
	Email            string  `json:"email"`
	Phone            string  `json:"phone,omitempty"`
	DesiredAddOnIDs  []uint  `json:"desired_add_on_ids,omitempty"`
	PaymentMethodRef *string `json:"payment_method_ref,omitempty"`
}

type TicketTypeRequest struct {
	Name            string     `json:"name"`
	Description     string     `json:"description"`
	Price           int64      `json:"price"`
	Capacity        *int       `json:"capacity"`
	Visibility      string     `json:"visibility"`
	SaleStartsAt    *time.Time `json:"sale_starts_at"`
	SaleEndsAt      *time.Time `json:"sale_ends_at"`
	MinPerOrder     int        `json:"min_per_order"`
	MaxPerOrder     int        `json:"max_per_order"`
	AccessCode      *string    `json:"access_code"`
	WaitlistEnabled bool       `json:"waitlist_enabled"`
	SortOrder       int        `json:"sort_order"`
}

// AddOnGroupRequest is referenced from add-ons by Key.
type AddOnGroupRequest struct {
	Key           string `json:"key"`
	Name          string `json:"name"`
	SelectionType string `json:"selection_type"`
	SortOrder     int    `json:"sort_order"`
}

type AddOnRequest struct {
	GroupKey     string     `json:"group_key"`
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	Price        int64      `json:"price"`
	Capacity     *int       `json:"capacity"`
	MaxPerOrder  int        `json:"max_per_order"`
	Required     bool       `json:"required"`
	Visibility   string     `json:"visibility"`
	SaleStartsAt *time.Time `json:"sale_starts_at"`
	SaleEndsAt   *time.Time `json:"sale_ends_at"`
	SortOrder    int        `json:"sort_order"`
}

type FormFieldRequest struct {
	Label     string   `json:"label"`
	FieldType string   `json:"field_type"`
	Options   []string `json:"options"`
	Required  bool     `json:"required"`
	SortOrder int      `json:"sort_order"`
}

type CreateEventRequest struct {
	Name                 string              `json:"name"`
	Slug                 string              `json:"slug"`
	StartsAt             time.Time           `json:"starts_at"`
	Location             string              `json:"location"`
	Currency             string              `json:"currency"`
	TotalCapacity        int                 `json:"total_capacity"`
	Status               string              `json:"status"`
	RegistrationOpensAt  *time.Time          `json:"registration_opens_at"`
	RegistrationClosesAt *time.Time          `json:"registration_closes_at"`
	WaitlistEnabled      bool                `json:"waitlist_enabled"`
	TicketTypes          []TicketTypeRequest `json:"ticket_types"`
	AddOnGroups          []AddOnGroupRequest `json:"add_on_groups"`
	AddOns               []AddOnRequest      `json:"add_ons"`
	FormFields           []FormFieldRequest  `json:"form_fields"`
}

type UpdateEventStatusRequest struct {
	Status string `json:"status"`
}
