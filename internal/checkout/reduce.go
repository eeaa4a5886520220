package checkout

import (
	"cmp"
	"maps"
	"math"
	"slices"
	"strings"

	"github.com/fairwaylink/event-booking/internal/dto"
	"github.com/fairwaylink/event-booking/internal/eligibility"
	"github.com/fairwaylink/event-booking/internal/models"
	"github.com/fairwaylink/event-booking/internal/pricing"
)

// Reduce returns the state that follows s after a. s is not modified. Actions that
// are not valid for the current step, or that would leave a bound, return an
// equal state.
func Reduce(s State, a Action) State {
	next := s.clone()

	switch a := a.(type) {
	case Loaded:
		next.loaded(a)
	case LoadFailed:
		if next.Step == StepLoading {
			next.fail(a.Message)
		}
	case SelectTicket:
		next.selectTicket(a.TicketID)
	case IncrementQuantity:
		next.stepQuantity(1)
	case DecrementQuantity:
		next.stepQuantity(-1)
	case EnterCode:
		next.enterCode(a.TicketID, a.Code)
	case UnlockTicket:
		next.unlock(a.TicketID)
	case ToggleAddOn:
		next.toggleAddOn(a.AddOnID)
	case IncrementAddOn:
		next.stepAddOn(a.AddOnID, 1)
	case DecrementAddOn:
		next.stepAddOn(a.AddOnID, -1)
	case Continue:
		if next.CanContinue() {
			next.Step = StepDetails
		}
	case Back:
		if next.Step == StepDetails {
			next.Step = StepTickets
		}
	case SetIdentity:
		next.setIdentity(a.Field, a.Value)
	case SetAnswer:
		if next.Step == StepDetails {
			next.Answers[a.FieldID] = a.Value
			delete(next.AnswerErrors, a.FieldID)
		}
	case SetNotes:
		if next.Step == StepDetails {
			next.Notes = a.Notes
		}
	case Submit:
		next.submit()
	case Submitted:
		if next.Step == StepSubmitting {
			next.settle(a.Outcome)
		}
	case SubmitFailed:
		if next.Step == StepSubmitting {
			next.fail(a.Message)
		}
	}

	return next
}

func (s State) clone() State {
	s.Codes = cloneMap(s.Codes)
	s.Unlocked = cloneMap(s.Unlocked)
	s.CodeErrors = cloneMap(s.CodeErrors)
	s.AddOns = cloneMap(s.AddOns)
	s.Answers = cloneMap(s.Answers)
	s.FieldErrors = cloneMap(s.FieldErrors)
	s.AnswerErrors = cloneMap(s.AnswerErrors)
	return s
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	if m == nil {
		return map[K]V{}
	}
	return maps.Clone(m)
}

func (s *State) loaded(a Loaded) {
	if s.Step != StepLoading {
		return
	}
	s.Catalog = a.Catalog

	if a.Return == ReturnSuccess {
		s.Step = StepSuccess
		return
	}

	switch a.Catalog.Gate {
	case eligibility.GateOpen, eligibility.GateWaitlist:
		s.Step = StepTickets
	case eligibility.GateCancelled:
		s.Step = StepCancelled
		return
	case eligibility.GateClosed:
		s.Step = StepClosed
		return
	case eligibility.GateSoldOut:
		s.Step = StepSoldOut
		return
	default:
		s.Step = StepNotOpen
		return
	}

	s.WaitlistMode = a.Catalog.Gate == eligibility.GateWaitlist
	for _, addOn := range a.Catalog.AddOns {
		if addOn.Required && addOn.Status == eligibility.Selectable && addOnMax(addOn) >= 1 {
			s.AddOns[addOn.ID] = 1
		}
	}
}

func (s *State) fail(message string) {
	s.Step = StepError
	s.Message = message
	if s.Message == "" {
		s.Message = msgGenericFailed
	}
}

// TicketStatus classifies a listed ticket type for this session, taking the
// provisional code unlock into account.
func (s State) TicketStatus(id uint) eligibility.Status {
	t, ok := s.Catalog.TicketType(id)
	if !ok {
		return eligibility.SoldOut
	}
	return s.ticketStatus(t)
}

func (s State) ticketStatus(t dto.TicketTypeView) eligibility.Status {
	return eligibility.Classify(t.SaleStatus, t.Available <= 0, t.RequiresCode && !s.Unlocked[t.ID])
}

func (s State) waitlistFor(t dto.TicketTypeView, status eligibility.Status) bool {
	if s.Catalog.Gate == eligibility.GateWaitlist {
		return true
	}
	return status == eligibility.SoldOut && t.WaitlistEnabled
}

// QuantityBounds returns the inclusive stepper range for a ticket type. hi < lo
// means the ticket cannot be ordered at all.
func (s State) QuantityBounds(id uint) (lo, hi int) {
	t, ok := s.Catalog.TicketType(id)
	if !ok {
		return 1, 0
	}
	return quantityBounds(t, s.WaitlistMode && s.SelectedTicketID == id)
}

func quantityBounds(t dto.TicketTypeView, waitlist bool) (lo, hi int) {
	lo = max(t.MinPerOrder, 1)
	if waitlist {
		return lo, lo
	}
	hi = t.Available
	if t.MaxPerOrder > 0 && t.MaxPerOrder < hi {
		hi = t.MaxPerOrder
	}
	return lo, hi
}

func (s *State) selectTicket(id uint) {
	if s.Step != StepTickets {
		return
	}
	t, ok := s.Catalog.TicketType(id)
	if !ok {
		return
	}

	status := s.ticketStatus(t)
	waitlist := s.waitlistFor(t, status)
	if status != eligibility.Selectable && !(waitlist && status == eligibility.SoldOut) {
		s.Blocked = status
		return
	}

	lo, hi := quantityBounds(t, waitlist)
	if hi < lo {
		s.Blocked = eligibility.SoldOut
		return
	}

	s.SelectedTicketID = id
	s.Quantity = lo
	s.WaitlistMode = waitlist
	s.Blocked = ""
}

func (s *State) stepQuantity(delta int) {
	if s.Step != StepTickets || s.SelectedTicketID == 0 {
		return
	}
	lo, hi := s.QuantityBounds(s.SelectedTicketID)
	q := s.Quantity + delta
	if q < lo || q > hi {
		return
	}
	s.Quantity = q
}

func (s *State) enterCode(id uint, code string) {
	if s.Step != StepTickets {
		return
	}
	if s.Codes[id] == code {
		return
	}
	s.Codes[id] = code
	delete(s.CodeErrors, id)
	// The unlock only ever vouches for the code that was entered at the time.
	delete(s.Unlocked, id)
	if s.SelectedTicketID == id {
		s.deselect()
	}
}

// unlock accepts any non-blank code. The code is checked by the server on submit.
func (s *State) unlock(id uint) {
	if s.Step != StepTickets {
		return
	}
	t, ok := s.Catalog.TicketType(id)
	if !ok || !t.RequiresCode {
		return
	}
	if strings.TrimSpace(s.Codes[id]) == "" {
		s.CodeErrors[id] = msgEnterCode
		return
	}
	s.Unlocked[id] = true
	delete(s.CodeErrors, id)
}

func (s *State) deselect() {
	s.SelectedTicketID = 0
	s.Quantity = 0
	s.WaitlistMode = s.Catalog.Gate == eligibility.GateWaitlist
}

// AddOnBounds returns the inclusive quantity range for a selected add-on.
func (s State) AddOnBounds(id uint) (lo, hi int) {
	a, ok := s.Catalog.AddOn(id)
	if !ok {
		return 1, 0
	}
	return 1, addOnMax(a)
}

func addOnMax(a dto.AddOnView) int {
	hi := math.MaxInt
	if a.Available != nil {
		hi = *a.Available
	}
	if a.MaxPerOrder > 0 && a.MaxPerOrder < hi {
		hi = a.MaxPerOrder
	}
	return hi
}

func (s *State) toggleAddOn(id uint) {
	if s.Step != StepTickets {
		return
	}
	a, ok := s.Catalog.AddOn(id)
	if !ok {
		return
	}

	if _, selected := s.AddOns[id]; selected {
		if !a.Required {
			delete(s.AddOns, id)
		}
		return
	}

	if a.Status != eligibility.Selectable || addOnMax(a) < 1 {
		return
	}
	if a.GroupID != nil {
		if g, ok := s.Catalog.AddOnGroup(*a.GroupID); ok && g.SelectionType == models.SelectOneOnly {
			var siblings []uint
			for other := range s.AddOns {
				if o, ok := s.Catalog.AddOn(other); ok && o.GroupID != nil && *o.GroupID == g.ID {
					// A required member pins the group.
					if o.Required {
						return
					}
					siblings = append(siblings, other)
				}
			}
			for _, other := range siblings {
				delete(s.AddOns, other)
			}
		}
	}
	s.AddOns[id] = 1
}

func (s *State) stepAddOn(id uint, delta int) {
	if s.Step != StepTickets {
		return
	}
	current, selected := s.AddOns[id]
	if !selected {
		return
	}
	lo, hi := s.AddOnBounds(id)
	q := current + delta
	if q < lo || q > hi {
		return
	}
	s.AddOns[id] = q
}

// CanContinue reports whether the tickets step may advance. Without a selected
// ticket the transition is disabled rather than rejected later.
func (s State) CanContinue() bool {
	return s.Step == StepTickets && s.SelectedTicketID != 0
}

func (s *State) setIdentity(field IdentityField, value string) {
	if s.Step != StepDetails {
		return
	}
	switch field {
	case FieldFirstName:
		s.Identity.FirstName = value
	case FieldLastName:
		s.Identity.LastName = value
	case FieldEmail:
		s.Identity.Email = value
	case FieldPhone:
		s.Identity.Phone = value
	default:
		return
	}
	delete(s.FieldErrors, field)
}

func (s *State) submit() {
	if s.Step != StepDetails {
		return
	}

	fieldErrors := map[IdentityField]string{}
	for field, value := range map[IdentityField]string{
		FieldFirstName: s.Identity.FirstName,
		FieldLastName:  s.Identity.LastName,
		FieldEmail:     s.Identity.Email,
	} {
		if strings.TrimSpace(value) == "" {
			fieldErrors[field] = msgRequired
		}
	}

	answerErrors := map[uint]string{}
	if !s.WaitlistMode {
		for _, f := range s.Catalog.FormFields {
			if f.Required && strings.TrimSpace(s.Answers[f.ID]) == "" {
				answerErrors[f.ID] = msgRequired
			}
		}
	}

	s.FieldErrors = fieldErrors
	s.AnswerErrors = answerErrors
	if len(fieldErrors) > 0 || len(answerErrors) > 0 {
		return
	}

	s.Step = StepSubmitting
	s.Message = ""
}

func (s *State) settle(o dto.BookingOutcome) {
	switch {
	case o.Error == dto.ErrorSoldOut:
		s.Step = StepSoldOut
		s.Message = o.Detail
	case o.Error == dto.ErrorInvalidAccessCode:
		id := s.SelectedTicketID
		delete(s.Unlocked, id)
		delete(s.Codes, id)
		s.CodeErrors[id] = msgInvalidCode
		s.deselect()
		s.Step = StepTickets
	case o.Error != "":
		s.fail(cmp.Or(o.Detail, o.Error))
	case o.CheckoutURL != "":
		s.Step = StepRedirect
		s.RedirectURL = o.CheckoutURL
		s.Booking = o.Booking
	case o.Status == dto.OutcomeConfirmed:
		s.Step = StepSuccess
		s.Booking = o.Booking
	case o.Status == dto.OutcomeWaitlisted:
		s.Step = StepWaitlisted
		s.WaitlistEntry = o.WaitlistEntry
	default:
		s.fail("")
	}
}

// Total is the order total in minor units.
func (s State) Total() int64 {
	var lines []pricing.Line
	if t, ok := s.Catalog.TicketType(s.SelectedTicketID); ok {
		lines = append(lines, pricing.Line{UnitPrice: t.Price, Quantity: s.Quantity})
	}
	for id, qty := range s.AddOns {
		if a, ok := s.Catalog.AddOn(id); ok {
			lines = append(lines, pricing.Line{UnitPrice: a.Price, Quantity: qty})
		}
	}
	return pricing.Total(lines...)
}

// Request builds the booking submission payload from the current selection.
func (s State) Request() dto.CreateBookingRequest {
	req := dto.CreateBookingRequest{
		TicketTypeID: s.SelectedTicketID,
		Quantity:     s.Quantity,
		FirstName:    strings.TrimSpace(s.Identity.FirstName),
		LastName:     strings.TrimSpace(s.Identity.LastName),
		Email:        strings.TrimSpace(s.Identity.Email),
		Phone:        strings.TrimSpace(s.Identity.Phone),
		Notes:        strings.TrimSpace(s.Notes),
	}
	if t, ok := s.Catalog.TicketType(s.SelectedTicketID); ok && t.RequiresCode {
		req.AccessCode = strings.TrimSpace(s.Codes[t.ID])
	}
	for _, id := range slices.Sorted(maps.Keys(s.AddOns)) {
		req.AddOns = append(req.AddOns, dto.AddOnSelection{AddOnID: id, Quantity: s.AddOns[id]})
	}
	for _, f := range s.Catalog.FormFields {
		if v, ok := s.Answers[f.ID]; ok {
			req.Responses = append(req.Responses, dto.FormAnswer{FieldID: f.ID, Value: &v})
		}
	}
	return req
}

func (s State) WaitlistRequest() dto.JoinWaitlistRequest {
	req := dto.JoinWaitlistRequest{
		FirstName:       strings.TrimSpace(s.Identity.FirstName),
		LastName:        strings.TrimSpace(s.Identity.LastName),
		Email:           strings.TrimSpace(s.Identity.Email),
		Phone:           strings.TrimSpace(s.Identity.Phone),
		DesiredAddOnIDs: slices.Sorted(maps.Keys(s.AddOns)),
	}
	if s.SelectedTicketID != 0 {
		id := s.SelectedTicketID
		req.TicketTypeID = &id
	}
	return req
}
