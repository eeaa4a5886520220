package checkout

import (
	"context"
	"errors"
	"testing"

	"github.com/fairwaylink/event-booking/internal/dto"
	"github.com/fairwaylink/event-booking/internal/eligibility"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pageURL = "https://book.example.com/e/spring-scramble"

type mockBackend struct {
	loadFn     func(ctx context.Context, slug string) (dto.EventCatalog, error)
	submitFn   func(ctx context.Context, slug, key string, req dto.CreateBookingRequest) (dto.BookingOutcome, error)
	waitlistFn func(ctx context.Context, slug string, req dto.JoinWaitlistRequest) (dto.BookingOutcome, error)

	submitCalls   int
	waitlistCalls int
}

func (m *mockBackend) LoadEvent(ctx context.Context, slug string) (dto.EventCatalog, error) {
	return m.loadFn(ctx, slug)
}

func (m *mockBackend) SubmitBooking(ctx context.Context, slug, key string, req dto.CreateBookingRequest) (dto.BookingOutcome, error) {
	m.submitCalls++
	return m.submitFn(ctx, slug, key, req)
}

func (m *mockBackend) JoinWaitlist(ctx context.Context, slug string, req dto.JoinWaitlistRequest) (dto.BookingOutcome, error) {
	m.waitlistCalls++
	return m.waitlistFn(ctx, slug, req)
}

type mockNavigator struct {
	redirects []string
	replaces  []string
}

func (m *mockNavigator) Redirect(url string) { m.redirects = append(m.redirects, url) }
func (m *mockNavigator) Replace(url string)  { m.replaces = append(m.replaces, url) }

func loadsCatalog(catalog dto.EventCatalog) func(context.Context, string) (dto.EventCatalog, error) {
	return func(context.Context, string) (dto.EventCatalog, error) { return catalog, nil }
}

func fillDetails(s *Session) {
	s.Dispatch(Continue{})
	s.Dispatch(SetIdentity{Field: FieldFirstName, Value: "Ada"})
	s.Dispatch(SetIdentity{Field: FieldLastName, Value: "Lovelace"})
	s.Dispatch(SetIdentity{Field: FieldEmail, Value: "ada@example.com"})
	s.Dispatch(SetAnswer{FieldID: 100, Value: "12"})
}

func TestSession_StartLoadsCatalog(t *testing.T) {
	backend := &mockBackend{loadFn: func(_ context.Context, slug string) (dto.EventCatalog, error) {
		assert.Equal(t, "spring-scramble", slug)
		return sampleCatalog(), nil
	}}
	nav := &mockNavigator{}

	var rendered []Step
	s := NewSession(backend, nav, nil, "spring-scramble", pageURL)
	s.Subscribe(func(st State) { rendered = append(rendered, st.Step) })

	st := s.Start(context.Background())

	assert.Equal(t, StepTickets, st.Step)
	assert.Equal(t, []Step{StepTickets}, rendered)
	assert.Empty(t, nav.replaces)
}

func TestSession_StartLoadFailure(t *testing.T) {
	backend := &mockBackend{loadFn: func(context.Context, string) (dto.EventCatalog, error) {
		return dto.EventCatalog{}, errors.New("connection refused")
	}}

	st := NewSession(backend, &mockNavigator{}, nil, "spring-scramble", pageURL).Start(context.Background())

	assert.Equal(t, StepError, st.Step)
	assert.Equal(t, msgGenericFailed, st.Message)
}

func TestSession_SuccessReturnSkipsSubmission(t *testing.T) {
	backend := &mockBackend{loadFn: loadsCatalog(sampleCatalog())}
	nav := &mockNavigator{}

	s := NewSession(backend, nav, nil, "spring-scramble", pageURL+"?checkout=success")
	st := s.Start(context.Background())

	assert.Equal(t, StepSuccess, st.Step)
	assert.Equal(t, []string{pageURL}, nav.replaces)
	assert.Zero(t, backend.submitCalls)

	// Submission is unreachable from a terminal step.
	st = s.Submit(context.Background())
	assert.Equal(t, StepSuccess, st.Step)
	assert.Zero(t, backend.submitCalls)
}

func TestSession_CancelReturnShowsTickets(t *testing.T) {
	backend := &mockBackend{loadFn: loadsCatalog(sampleCatalog())}
	nav := &mockNavigator{}

	st := NewSession(backend, nav, nil, "spring-scramble", pageURL+"?checkout=cancel").Start(context.Background())

	assert.Equal(t, StepTickets, st.Step)
	assert.Equal(t, []string{pageURL}, nav.replaces)
}

func TestSession_FreeOrderConfirms(t *testing.T) {
	var got dto.CreateBookingRequest
	backend := &mockBackend{
		loadFn: loadsCatalog(sampleCatalog()),
		submitFn: func(_ context.Context, _, key string, req dto.CreateBookingRequest) (dto.BookingOutcome, error) {
			assert.NotEmpty(t, key)
			got = req
			return dto.BookingOutcome{Status: dto.OutcomeConfirmed, Booking: &dto.BookingResponse{ID: 42}}, nil
		},
	}
	nav := &mockNavigator{}

	s := NewSession(backend, nav, nil, "spring-scramble", pageURL)
	s.Start(context.Background())
	s.Dispatch(SelectTicket{TicketID: 2})
	fillDetails(s)

	st := s.Submit(context.Background())

	assert.Equal(t, StepSuccess, st.Step)
	assert.Equal(t, uint(42), st.Booking.ID)
	assert.Empty(t, nav.redirects)
	assert.Equal(t, 1, backend.submitCalls)
	assert.Equal(t, uint(2), got.TicketTypeID)
	assert.Equal(t, 2, got.Quantity)
	assert.Equal(t, "Ada", got.FirstName)
	assert.Equal(t, pageURL+"?checkout=success", got.SuccessURL)
	assert.Equal(t, pageURL+"?checkout=cancel", got.CancelURL)
	require.Len(t, got.Responses, 1)
	assert.Equal(t, "12", *got.Responses[0].Value)
}

func TestSession_PaidOrderRedirectsVerbatim(t *testing.T) {
	const checkoutURL = "https://checkout.stripe.com/c/pay/cs_test_a1B2#fidkdWxOYHwnPyd1blpxYHZxWjA0"
	backend := &mockBackend{
		loadFn: loadsCatalog(sampleCatalog()),
		submitFn: func(context.Context, string, string, dto.CreateBookingRequest) (dto.BookingOutcome, error) {
			return dto.BookingOutcome{CheckoutURL: checkoutURL}, nil
		},
	}
	nav := &mockNavigator{}

	s := NewSession(backend, nav, nil, "spring-scramble", pageURL)
	s.Start(context.Background())
	s.Dispatch(SelectTicket{TicketID: 1})
	s.Dispatch(IncrementQuantity{})
	s.Dispatch(ToggleAddOn{AddOnID: 10})
	assert.Equal(t, int64(6000), s.State().Total())
	fillDetails(s)

	st := s.Submit(context.Background())

	assert.Equal(t, StepRedirect, st.Step)
	assert.Equal(t, []string{checkoutURL}, nav.redirects)
}

func TestSession_ValidationErrorMakesNoCall(t *testing.T) {
	backend := &mockBackend{loadFn: loadsCatalog(sampleCatalog())}

	s := NewSession(backend, &mockNavigator{}, nil, "spring-scramble", pageURL)
	s.Start(context.Background())
	s.Dispatch(SelectTicket{TicketID: 1})
	s.Dispatch(Continue{})
	s.Dispatch(SetIdentity{Field: FieldFirstName, Value: " "})

	st := s.Submit(context.Background())

	assert.Equal(t, StepDetails, st.Step)
	assert.NotEmpty(t, st.FieldErrors)
	assert.Zero(t, backend.submitCalls)
}

func TestSession_SubmitWhileInFlightIsIgnored(t *testing.T) {
	var s *Session
	var nested State
	backend := &mockBackend{
		loadFn: loadsCatalog(sampleCatalog()),
		submitFn: func(ctx context.Context, _, _ string, _ dto.CreateBookingRequest) (dto.BookingOutcome, error) {
			nested = s.Submit(ctx)
			return dto.BookingOutcome{Status: dto.OutcomeConfirmed}, nil
		},
	}

	s = NewSession(backend, &mockNavigator{}, nil, "spring-scramble", pageURL)
	s.Start(context.Background())
	s.Dispatch(SelectTicket{TicketID: 1})
	fillDetails(s)

	st := s.Submit(context.Background())

	assert.Equal(t, StepSubmitting, nested.Step)
	assert.Equal(t, StepSuccess, st.Step)
	assert.Equal(t, 1, backend.submitCalls)
}

func TestSession_IdempotencyKeySurvivesTransportFailure(t *testing.T) {
	var keys []string
	fail := true
	backend := &mockBackend{
		loadFn: loadsCatalog(sampleCatalog()),
		submitFn: func(_ context.Context, _, key string, _ dto.CreateBookingRequest) (dto.BookingOutcome, error) {
			keys = append(keys, key)
			if fail {
				return dto.BookingOutcome{}, errors.New("timeout")
			}
			return dto.BookingOutcome{Status: dto.OutcomeConfirmed}, nil
		},
	}
	store := memoryStorage{}

	first := NewSession(backend, &mockNavigator{}, store, "spring-scramble", pageURL)
	first.Start(context.Background())
	first.Dispatch(SelectTicket{TicketID: 1})
	fillDetails(first)
	st := first.Submit(context.Background())
	require.Equal(t, StepError, st.Step)
	assert.Equal(t, msgGenericFailed, st.Message)

	// A reload starts a new session over the same page storage.
	fail = false
	second := NewSession(backend, &mockNavigator{}, store, "spring-scramble", pageURL)
	second.Start(context.Background())
	second.Dispatch(SelectTicket{TicketID: 1})
	fillDetails(second)
	st = second.Submit(context.Background())
	require.Equal(t, StepSuccess, st.Step)

	require.Len(t, keys, 2)
	assert.Equal(t, keys[0], keys[1])
	assert.Empty(t, store, "a settled submission releases its key")
}

func TestSession_WaitlistSubmission(t *testing.T) {
	catalog := sampleCatalog()
	catalog.Gate = eligibility.GateWaitlist
	backend := &mockBackend{
		loadFn: loadsCatalog(catalog),
		waitlistFn: func(_ context.Context, _ string, req dto.JoinWaitlistRequest) (dto.BookingOutcome, error) {
			assert.Equal(t, "ada@example.com", req.Email)
			return dto.BookingOutcome{Status: dto.OutcomeWaitlisted, WaitlistEntry: &dto.WaitlistEntryResponse{Position: 1}}, nil
		},
	}

	s := NewSession(backend, &mockNavigator{}, nil, "spring-scramble", pageURL)
	s.Start(context.Background())
	s.Dispatch(SelectTicket{TicketID: 1})
	fillDetails(s)

	st := s.Submit(context.Background())

	assert.Equal(t, StepWaitlisted, st.Step)
	assert.Equal(t, 1, backend.waitlistCalls)
	assert.Zero(t, backend.submitCalls)
}
