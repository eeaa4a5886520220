package checkout

import (
	"context"

	"github.com/fairwaylink/event-booking/internal/dto"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Backend is the booking service as seen from the page.
type Backend interface {
	LoadEvent(ctx context.Context, slug string) (dto.EventCatalog, error)
	SubmitBooking(ctx context.Context, slug, idempotencyKey string, req dto.CreateBookingRequest) (dto.BookingOutcome, error)
	JoinWaitlist(ctx context.Context, slug string, req dto.JoinWaitlistRequest) (dto.BookingOutcome, error)
}

// Navigator performs browser navigation.
type Navigator interface {
	// Redirect leaves the page for url.
	Redirect(url string)
	// Replace rewrites the current URL without reloading.
	Replace(url string)
}

// Storage is page-scoped storage that survives a reload, such as the browser's
// session storage.
type Storage interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Delete(key string)
}

type memoryStorage map[string]string

func (m memoryStorage) Get(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

func (m memoryStorage) Set(key, value string) { m[key] = value }

func (m memoryStorage) Delete(key string) { delete(m, key) }

// Session runs one page view. It is not safe for concurrent use: transitions are
// strictly sequential and a submission blocks further input until it returns.
type Session struct {
	backend Backend
	nav     Navigator
	slug    string
	pageURL string

	store     Storage
	state     State
	listeners []func(State)
}

// NewSession prepares a page view. store may be nil, in which case an in-flight
// idempotency key does not survive a reload.
func NewSession(backend Backend, nav Navigator, store Storage, slug, pageURL string) *Session {
	if store == nil {
		store = memoryStorage{}
	}
	return &Session{
		backend: backend,
		nav:     nav,
		store:   store,
		slug:    slug,
		pageURL: pageURL,
		state:   New(),
	}
}

func (s *Session) State() State {
	return s.state
}

// Subscribe registers a render callback invoked after every transition.
func (s *Session) Subscribe(fn func(State)) {
	s.listeners = append(s.listeners, fn)
}

func (s *Session) Dispatch(a Action) State {
	s.state = Reduce(s.state, a)
	for _, fn := range s.listeners {
		fn(s.state)
	}
	return s.state
}

// Start loads the event. A payment return parameter on the page URL is consumed
// and stripped first so a reload cannot replay it.
func (s *Session) Start(ctx context.Context) State {
	ret, clean := ParseReturn(s.pageURL)
	if clean != s.pageURL {
		s.pageURL = clean
		s.nav.Replace(clean)
	}

	catalog, err := s.backend.LoadEvent(ctx, s.slug)
	if err != nil {
		logrus.WithError(err).WithField("slug", s.slug).Warn("Failed to load event")
		return s.Dispatch(LoadFailed{})
	}
	return s.Dispatch(Loaded{Catalog: catalog, Return: ret})
}

// Submit validates and sends the order exactly once. It returns without a network
// call when the details step has validation errors or a submission is already in
// flight.
func (s *Session) Submit(ctx context.Context) State {
	if s.state.Step != StepDetails {
		return s.state
	}
	if s.Dispatch(Submit{}).Step != StepSubmitting {
		return s.state
	}

	var (
		outcome dto.BookingOutcome
		err     error
	)
	if s.state.WaitlistMode {
		outcome, err = s.backend.JoinWaitlist(ctx, s.slug, s.state.WaitlistRequest())
	} else {
		outcome, err = s.submitBooking(ctx)
	}
	if err != nil {
		logrus.WithError(err).WithField("slug", s.slug).Warn("Booking submission failed")
		return s.Dispatch(SubmitFailed{})
	}

	next := s.Dispatch(Submitted{Outcome: outcome})
	if next.Step == StepRedirect {
		s.nav.Redirect(next.RedirectURL)
	}
	return next
}

func (s *Session) submitBooking(ctx context.Context) (dto.BookingOutcome, error) {
	req := s.state.Request()
	success, cancel, err := CallbackURLs(s.pageURL)
	if err != nil {
		return dto.BookingOutcome{}, err
	}
	req.SuccessURL, req.CancelURL = success, cancel

	// The key outlives the page while a request is in flight, so a reload that
	// resubmits gets the original booking back instead of a second one.
	name := "booking:" + s.slug + ":idempotency_key"
	key, ok := s.store.Get(name)
	if !ok {
		key = uuid.NewString()
		s.store.Set(name, key)
	}

	outcome, err := s.backend.SubmitBooking(ctx, s.slug, key, req)
	if err != nil {
		return outcome, err
	}
	s.store.Delete(name)
	return outcome, nil
}
