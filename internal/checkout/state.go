// Package checkout is the booking page's selection state machine. Reduce is a pure
// transition function over State; Session runs the effects (loading, submission,
// payment redirects) around it.
package checkout

import (
	"github.com/fairwaylink/event-booking/internal/dto"
	"github.com/fairwaylink/event-booking/internal/eligibility"
)

type Step string

const (
	StepLoading    Step = "loading"
	StepTickets    Step = "tickets"
	StepCancelled  Step = "cancelled"
	StepClosed     Step = "closed"
	StepNotOpen    Step = "not_open"
	StepSoldOut    Step = "sold_out"
	StepDetails    Step = "details"
	StepSubmitting Step = "submitting"
	StepSuccess    Step = "success"
	StepRedirect   Step = "redirect"
	StepError      Step = "error"
	StepWaitlisted Step = "waitlisted"
)

// Terminal reports whether the session has ended. Only a page reload leaves a
// terminal step.
func (s Step) Terminal() bool {
	switch s {
	case StepCancelled, StepClosed, StepNotOpen, StepSoldOut, StepSuccess, StepRedirect, StepError, StepWaitlisted:
		return true
	}
	return false
}

type Identity struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

type IdentityField string

const (
	FieldFirstName IdentityField = "first_name"
	FieldLastName  IdentityField = "last_name"
	FieldEmail     IdentityField = "email"
	FieldPhone     IdentityField = "phone"
)

const (
	msgRequired      = "This field is required"
	msgEnterCode     = "Enter an access code"
	msgInvalidCode   = "Invalid access code"
	msgGenericFailed = "Something went wrong. Please reload the page and try again."
)

// State is the whole browsing session. Map fields are never shared between
// states returned by Reduce.
type State struct {
	Step    Step
	Catalog dto.EventCatalog

	SelectedTicketID uint
	Quantity         int
	// Blocked is the status that stopped the last ticket selection attempt.
	Blocked eligibility.Status
	// WaitlistMode routes submission to waitlist registration.
	WaitlistMode bool

	Codes      map[uint]string
	Unlocked   map[uint]bool
	CodeErrors map[uint]string

	AddOns map[uint]int

	Identity     Identity
	Answers      map[uint]string
	Notes        string
	FieldErrors  map[IdentityField]string
	AnswerErrors map[uint]string

	Message       string
	RedirectURL   string
	Booking       *dto.BookingResponse
	WaitlistEntry *dto.WaitlistEntryResponse
}

// New returns the initial loading state.
func New() State {
	return State{
		Step:         StepLoading,
		Codes:        map[uint]string{},
		Unlocked:     map[uint]bool{},
		CodeErrors:   map[uint]string{},
		AddOns:       map[uint]int{},
		Answers:      map[uint]string{},
		FieldErrors:  map[IdentityField]string{},
		AnswerErrors: map[uint]string{},
	}
}

// ReturnKind is the outcome carried back from the payment page.
type ReturnKind int

const (
	ReturnNone ReturnKind = iota
	ReturnSuccess
	ReturnCancel
)

// Action is one input to Reduce.
type Action interface {
	isAction()
}

type (
	Loaded struct {
		Catalog dto.EventCatalog
		Return  ReturnKind
	}
	LoadFailed struct {
		Message string
	}
	SelectTicket struct {
		TicketID uint
	}
	IncrementQuantity struct{}
	DecrementQuantity struct{}
	EnterCode         struct {
		TicketID uint
		Code     string
	}
	UnlockTicket struct {
		TicketID uint
	}
	ToggleAddOn struct {
		AddOnID uint
	}
	IncrementAddOn struct {
		AddOnID uint
	}
	DecrementAddOn struct {
		AddOnID uint
	}
	Continue    struct{}
	Back        struct{}
	SetIdentity struct {
		Field IdentityField
		Value string
	}
	SetAnswer struct {
		FieldID uint
		Value   string
	}
	SetNotes struct {
		Notes string
	}
	Submit    struct{}
	Submitted struct {
		Outcome dto.BookingOutcome
	}
	SubmitFailed struct {
		Message string
	}
)

func (Loaded) isAction()            {}
func (LoadFailed) isAction()        {}
func (SelectTicket) isAction()      {}
func (IncrementQuantity) isAction() {}
func (DecrementQuantity) isAction() {}
func (EnterCode) isAction()         {}
func (UnlockTicket) isAction()      {}
func (ToggleAddOn) isAction()       {}
func (IncrementAddOn) isAction()    {}
func (DecrementAddOn) isAction()    {}
func (Continue) isAction()          {}
func (Back) isAction()              {}
func (SetIdentity) isAction()       {}
func (SetAnswer) isAction()         {}
func (SetNotes) isAction()          {}
func (Submit) isAction()            {}
func (Submitted) isAction()         {}
func (SubmitFailed) isAction()      {}
