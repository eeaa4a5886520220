package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fairwaylink/event-booking/internal/ledger"
	"github.com/fairwaylink/event-booking/internal/models"
	"github.com/fairwaylink/event-booking/internal/payment"
	"gorm.io/gorm"
)

// --- Mock EventRepository ---

// mockEventRepo serves a fixed set of events. Func fields override the default
// lookups.
type mockEventRepo struct {
	events []*models.Event
	locks  int

	createFn       func(ctx context.Context, event *models.Event, addOnGroups []int) error
	findAllFn      func(ctx context.Context) ([]models.Event, error)
	updateStatusFn func(ctx context.Context, id uint, status models.EventStatus) error
}

func (m *mockEventRepo) bySlug(slug string) (*models.Event, error) {
	for _, e := range m.events {
		if e.Slug == slug {
			return e, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockEventRepo) byID(id uint) (*models.Event, error) {
	for _, e := range m.events {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockEventRepo) Create(ctx context.Context, event *models.Event, addOnGroups []int) error {
	if m.createFn != nil {
		return m.createFn(ctx, event, addOnGroups)
	}
	event.ID = uint(len(m.events) + 1)
	m.events = append(m.events, event)
	return nil
}
func (m *mockEventRepo) FindByID(ctx context.Context, id uint) (*models.Event, error) {
	return m.byID(id)
}
func (m *mockEventRepo) FindAll(ctx context.Context) ([]models.Event, error) {
	if m.findAllFn != nil {
		return m.findAllFn(ctx)
	}
	out := make([]models.Event, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, *e)
	}
	return out, nil
}
func (m *mockEventRepo) FindBySlug(ctx context.Context, tx *gorm.DB, slug string) (*models.Event, error) {
	return m.bySlug(slug)
}
func (m *mockEventRepo) FindBySlugForUpdate(ctx context.Context, tx *gorm.DB, slug string) (*models.Event, error) {
	m.locks++
	return m.bySlug(slug)
}
func (m *mockEventRepo) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Event, error) {
	m.locks++
	return m.byID(id)
}
func (m *mockEventRepo) UpdateStatus(ctx context.Context, id uint, status models.EventStatus) error {
	if m.updateStatusFn != nil {
		return m.updateStatusFn(ctx, id, status)
	}
	e, err := m.byID(id)
	if err != nil {
		return err
	}
	e.Status = status
	return nil
}

// --- Mock BookingRepository ---

// mockBookingRepo keeps bookings in memory and derives sold counts from them the
// way the SQL aggregate does. Transaction runs fn with a nil handle, one at a
// time, standing in for the event row lock.
type mockBookingRepo struct {
	txMu     sync.Mutex
	mu       sync.Mutex
	bookings []*models.Booking

	createFn      func(ctx context.Context, booking *models.Booking) error
	soldCountsFn  func(ctx context.Context, eventID uint) (ledger.SoldCounts, error)
	setCheckoutFn func(ctx context.Context, bookingID uint, sessionID, url string) error
}

func (m *mockBookingRepo) find(match func(b *models.Booking) bool) (*models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bookings {
		if match(b) {
			cp := *b
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockBookingRepo) update(id uint, fn func(b *models.Booking)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bookings {
		if b.ID == id {
			fn(b)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *mockBookingRepo) stored(id uint) *models.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bookings {
		if b.ID == id {
			return b
		}
	}
	return nil
}

func (m *mockBookingRepo) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	return fn(nil)
}
func (m *mockBookingRepo) Create(ctx context.Context, tx *gorm.DB, booking *models.Booking) error {
	if m.createFn != nil {
		if err := m.createFn(ctx, booking); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	booking.ID = uint(len(m.bookings) + 1)
	cp := *booking
	m.bookings = append(m.bookings, &cp)
	return nil
}
func (m *mockBookingRepo) SoldCounts(ctx context.Context, tx *gorm.DB, eventID uint) (ledger.SoldCounts, error) {
	if m.soldCountsFn != nil {
		return m.soldCountsFn(ctx, eventID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var rows []models.Booking
	for _, b := range m.bookings {
		if b.EventID == eventID {
			rows = append(rows, *b)
		}
	}
	return ledger.Tally(rows), nil
}
func (m *mockBookingRepo) FindByID(ctx context.Context, id uint) (*models.Booking, error) {
	return m.find(func(b *models.Booking) bool { return b.ID == id })
}
func (m *mockBookingRepo) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Booking, error) {
	return m.FindByID(ctx, id)
}
func (m *mockBookingRepo) FindByIdempotencyKey(ctx context.Context, key string) (*models.Booking, error) {
	return m.find(func(b *models.Booking) bool { return b.IdempotencyKey == key })
}
func (m *mockBookingRepo) FindByCheckoutSessionForUpdate(ctx context.Context, tx *gorm.DB, sessionID string) (*models.Booking, error) {
	return m.find(func(b *models.Booking) bool {
		return b.StripeCheckoutSessionID != nil && *b.StripeCheckoutSessionID == sessionID
	})
}
func (m *mockBookingRepo) FindByEventID(ctx context.Context, eventID uint, status *models.BookingStatus) ([]models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Booking
	for _, b := range m.bookings {
		if b.EventID == eventID && (status == nil || b.Status == *status) {
			out = append(out, *b)
		}
	}
	return out, nil
}
func (m *mockBookingRepo) FindExpiredPending(ctx context.Context, now time.Time, limit int) ([]models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Booking
	for _, b := range m.bookings {
		if b.Status == models.StatusPending && b.ExpiresAt != nil && b.ExpiresAt.Before(now) && len(out) < limit {
			out = append(out, *b)
		}
	}
	return out, nil
}
func (m *mockBookingRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, bookingID uint, status models.BookingStatus) error {
	return m.update(bookingID, func(b *models.Booking) { b.Status = status })
}
func (m *mockBookingRepo) SetCheckout(ctx context.Context, bookingID uint, sessionID, url string) error {
	if m.setCheckoutFn != nil {
		return m.setCheckoutFn(ctx, bookingID, sessionID, url)
	}
	return m.update(bookingID, func(b *models.Booking) {
		b.StripeCheckoutSessionID = &sessionID
		b.CheckoutURL = &url
	})
}
func (m *mockBookingRepo) MarkPaid(ctx context.Context, tx *gorm.DB, bookingID uint, paymentRef string) error {
	return m.update(bookingID, func(b *models.Booking) {
		b.Status = models.StatusConfirmed
		b.ExpiresAt = nil
		if paymentRef != "" {
			b.StripePaymentIntentID = &paymentRef
		}
	})
}

// --- Mock WaitlistRepository ---

type mockWaitlistRepo struct {
	entries []*models.WaitlistEntry
}

func (m *mockWaitlistRepo) Create(ctx context.Context, tx *gorm.DB, entry *models.WaitlistEntry) error {
	entry.ID = uint(len(m.entries) + 1)
	cp := *entry
	m.entries = append(m.entries, &cp)
	return nil
}
func (m *mockWaitlistRepo) MaxPosition(ctx context.Context, tx *gorm.DB, eventID uint) (int, error) {
	top := 0
	for _, e := range m.entries {
		if e.EventID == eventID && e.Position > top {
			top = e.Position
		}
	}
	return top, nil
}
func (m *mockWaitlistRepo) FindActiveByEmail(ctx context.Context, tx *gorm.DB, eventID uint, email string) (*models.WaitlistEntry, error) {
	for _, e := range m.entries {
		if e.EventID == eventID && e.Email == email &&
			(e.Status == models.WaitlistWaiting || e.Status == models.WaitlistNotified) {
			return e, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}
func (m *mockWaitlistRepo) FindWaiting(ctx context.Context, tx *gorm.DB, eventID uint, limit int) ([]models.WaitlistEntry, error) {
	var out []models.WaitlistEntry
	for _, e := range m.entries {
		if e.EventID == eventID && e.Status == models.WaitlistWaiting && len(out) < limit {
			out = append(out, *e)
		}
	}
	return out, nil
}
func (m *mockWaitlistRepo) MarkNotified(ctx context.Context, tx *gorm.DB, ids []uint, offerExpiresAt time.Time) error {
	for _, id := range ids {
		for _, e := range m.entries {
			if e.ID == id {
				e.Status = models.WaitlistNotified
				at := offerExpiresAt
				e.OfferExpiresAt = &at
			}
		}
	}
	return nil
}
func (m *mockWaitlistRepo) CountOpenOffers(ctx context.Context, tx *gorm.DB, eventID uint, now time.Time) (int, error) {
	n := 0
	for _, e := range m.entries {
		if e.EventID == eventID && e.Status == models.WaitlistNotified && e.OfferExpiresAt != nil && e.OfferExpiresAt.After(now) {
			n++
		}
	}
	return n, nil
}
func (m *mockWaitlistRepo) ConvertByEmail(ctx context.Context, tx *gorm.DB, eventID uint, email string) (int64, error) {
	var n int64
	for _, e := range m.entries {
		if e.EventID == eventID && e.Email == email &&
			(e.Status == models.WaitlistWaiting || e.Status == models.WaitlistNotified) {
			e.Status = models.WaitlistConverted
			n++
		}
	}
	return n, nil
}
func (m *mockWaitlistRepo) FindExpiredOffers(ctx context.Context, now time.Time) ([]models.WaitlistEntry, error) {
	var out []models.WaitlistEntry
	for _, e := range m.entries {
		if e.Status == models.WaitlistNotified && e.OfferExpiresAt != nil && e.OfferExpiresAt.Before(now) {
			out = append(out, *e)
		}
	}
	return out, nil
}
func (m *mockWaitlistRepo) MarkExpired(ctx context.Context, tx *gorm.DB, id uint) error {
	for _, e := range m.entries {
		if e.ID == id {
			e.Status = models.WaitlistExpired
		}
	}
	return nil
}
func (m *mockWaitlistRepo) FindByEventID(ctx context.Context, eventID uint) ([]models.WaitlistEntry, error) {
	var out []models.WaitlistEntry
	for _, e := range m.entries {
		if e.EventID == eventID {
			out = append(out, *e)
		}
	}
	return out, nil
}

// --- Mock payment provider ---

type mockProvider struct {
	createFn func(ctx context.Context, req payment.CheckoutRequest) (payment.Session, error)
	refundFn func(ctx context.Context, paymentRef string, amount int64) error

	checkouts []payment.CheckoutRequest
	refunds   []string
}

func (m *mockProvider) CreateCheckout(ctx context.Context, req payment.CheckoutRequest) (payment.Session, error) {
	m.checkouts = append(m.checkouts, req)
	if m.createFn != nil {
		return m.createFn(ctx, req)
	}
	id := fmt.Sprintf("cs_test_%d", req.BookingID)
	return payment.Session{ID: id, URL: "https://checkout.stripe.com/c/pay/" + id}, nil
}
func (m *mockProvider) Refund(ctx context.Context, paymentRef string, amount int64) error {
	m.refunds = append(m.refunds, paymentRef)
	if m.refundFn != nil {
		return m.refundFn(ctx, paymentRef, amount)
	}
	return nil
}

// --- Mock publisher ---

type mockPublisher struct {
	mu   sync.Mutex
	keys []string
}

func (m *mockPublisher) Publish(ctx context.Context, routingKey string, payload any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys = append(m.keys, routingKey)
	return nil
}

func (m *mockPublisher) published() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.keys...)
}
