package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fairwaylink/event-booking/internal/dto"
	"github.com/fairwaylink/event-booking/internal/ledger"
	"github.com/fairwaylink/event-booking/internal/logging"
	"github.com/fairwaylink/event-booking/internal/models"
	"github.com/fairwaylink/event-booking/internal/payment"
	"github.com/fairwaylink/event-booking/internal/repository"
	"github.com/fairwaylink/event-booking/pkg/idempotency"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	idempotencyLockTTL = time.Minute
	sweepBatchSize     = 100
)

type Options struct {
	CheckoutTTL      time.Duration
	WaitlistOfferTTL time.Duration
	Now              func() time.Time
}

func (o Options) withDefaults() Options {
	if o.CheckoutTTL <= 0 {
		o.CheckoutTTL = 30 * time.Minute
	}
	if o.WaitlistOfferTTL <= 0 {
		o.WaitlistOfferTTL = 24 * time.Hour
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// BookingResult is a successful submission. CheckoutURL is set for paid orders
// that still await payment.
type BookingResult struct {
	Booking     *models.Booking
	CheckoutURL string
	Replayed    bool
}

type BookingService interface {
	CreateBooking(ctx context.Context, slug, idempotencyKey string, req dto.CreateBookingRequest) (*BookingResult, error)
	SettleCheckout(ctx context.Context, sessionID, paymentRef string) (*models.Booking, error)
	ExpireCheckout(ctx context.Context, sessionID string) (*models.Booking, error)
	CancelBooking(ctx context.Context, bookingID uint) (*models.Booking, error)
	GetBooking(ctx context.Context, id uint) (*models.Booking, error)
	ListBookings(ctx context.Context, slug string, status *models.BookingStatus) ([]models.Booking, error)
	ExpirePending(ctx context.Context) (int, error)
}

type bookingService struct {
	bookingRepo repository.BookingRepository
	eventRepo   repository.EventRepository
	waitlist    WaitlistService
	payments    payment.Provider
	locks       idempotency.Store
	publisher   Publisher
	opts        Options
}

func NewBookingService(
	bookingRepo repository.BookingRepository,
	eventRepo repository.EventRepository,
	waitlist WaitlistService,
	payments payment.Provider,
	locks idempotency.Store,
	publisher Publisher,
	opts Options,
) BookingService {
	if locks == nil {
		locks = idempotency.NewMemoryStore()
	}
	return &bookingService{
		bookingRepo: bookingRepo,
		eventRepo:   eventRepo,
		waitlist:    waitlist,
		payments:    payments,
		locks:       locks,
		publisher:   publisher,
		opts:        opts.withDefaults(),
	}
}

// CreateBooking validates and stores one submission. Capacity is re-derived from
// booking rows while the event row is locked, so concurrent submissions for the
// same event are checked one at a time. A repeated idempotency key returns the
// original booking instead of creating another.
func (s *bookingService) CreateBooking(ctx context.Context, slug, key string, req dto.CreateBookingRequest) (*BookingResult, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, ErrIdempotencyKeyRequired
	}

	acquired, err := s.locks.Acquire(ctx, key, idempotencyLockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire idempotency lock: %w", err)
	}
	if !acquired {
		return nil, ErrRequestInProgress
	}
	defer func() {
		if err := s.locks.Release(context.WithoutCancel(ctx), key); err != nil {
			logging.FromContext(ctx).WithError(err).Warn("Failed to release idempotency lock")
		}
	}()

	if existing, err := s.bookingRepo.FindByIdempotencyKey(ctx, key); err == nil {
		return s.replay(ctx, existing, req)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find booking by idempotency key: %w", err)
	}

	now := s.opts.Now()
	var (
		booking *models.Booking
		event   *models.Event
	)
	err = s.bookingRepo.Transaction(ctx, func(tx *gorm.DB) error {
		e, err := s.eventRepo.FindBySlugForUpdate(ctx, tx, slug)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEventNotFound
			}
			return fmt.Errorf("lock event: %w", err)
		}

		sold, err := s.bookingRepo.SoldCounts(ctx, tx, e.ID)
		if err != nil {
			return fmt.Errorf("sold counts: %w", err)
		}
		snap := ledger.Compute(*e, e.TicketTypes, e.AddOns, sold)

		b, err := buildBooking(e, snap, req, now)
		if err != nil {
			return err
		}
		b.IdempotencyKey = key
		if b.TotalAmount == 0 {
			b.Status = models.StatusConfirmed
		} else {
			b.Status = models.StatusPending
			expires := now.Add(s.opts.CheckoutTTL)
			b.ExpiresAt = &expires
		}

		if err := s.bookingRepo.Create(ctx, tx, b); err != nil {
			return err
		}
		if s.waitlist != nil {
			if err := s.waitlist.Convert(ctx, tx, e.ID, b.Email); err != nil {
				return fmt.Errorf("convert waitlist entry: %w", err)
			}
		}

		booking, event = b, e
		return nil
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// Lost a race on the key after the lock expired.
		existing, findErr := s.bookingRepo.FindByIdempotencyKey(ctx, key)
		if findErr != nil {
			return nil, fmt.Errorf("find booking by idempotency key: %w", findErr)
		}
		return s.replay(ctx, existing, req)
	}
	if err != nil {
		return nil, err
	}

	log := logging.FromContext(ctx).WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"event_id":   booking.EventID,
		"total":      booking.TotalAmount,
	})
	log.Info("Booking created")
	publish(ctx, s.publisher, KeyBookingCreated, newBookingMessage(booking, now))

	if booking.Status == models.StatusConfirmed {
		publish(ctx, s.publisher, KeyBookingConfirmed, newBookingMessage(booking, now))
		return &BookingResult{Booking: booking}, nil
	}
	return s.startCheckout(ctx, event, booking, req)
}

// startCheckout hands a pending booking to the payment provider. If no checkout
// can be created the booking is cancelled so its capacity is released.
func (s *bookingService) startCheckout(ctx context.Context, e *models.Event, b *models.Booking, req dto.CreateBookingRequest) (*BookingResult, error) {
	if s.payments == nil {
		s.release(ctx, b, models.StatusCancelled)
		return nil, fmt.Errorf("%w: no payment provider configured", ErrPaymentFailed)
	}

	checkout := payment.CheckoutRequest{
		BookingID:      b.ID,
		Currency:       e.Currency,
		Email:          b.Email,
		Lines:          checkoutLines(e, b),
		SuccessURL:     req.SuccessURL,
		CancelURL:      req.CancelURL,
		IdempotencyKey: "checkout-" + b.IdempotencyKey,
	}
	if b.ExpiresAt != nil {
		checkout.ExpiresAt = *b.ExpiresAt
	}

	sess, err := s.payments.CreateCheckout(ctx, checkout)
	if err != nil {
		logging.FromContext(ctx).WithError(err).WithField("booking_id", b.ID).Error("Failed to create payment checkout")
		s.release(ctx, b, models.StatusCancelled)
		return nil, fmt.Errorf("%w: %w", ErrPaymentFailed, err)
	}

	if err := s.bookingRepo.SetCheckout(ctx, b.ID, sess.ID, sess.URL); err != nil {
		return nil, fmt.Errorf("store checkout session: %w", err)
	}
	b.StripeCheckoutSessionID = &sess.ID
	b.CheckoutURL = &sess.URL
	return &BookingResult{Booking: b, CheckoutURL: sess.URL}, nil
}

func checkoutLines(e *models.Event, b *models.Booking) []payment.LineItem {
	name := e.Name
	if t, ok := e.TicketType(b.TicketTypeID); ok {
		name = e.Name + " - " + t.Name
	}
	lines := []payment.LineItem{{Name: name, UnitAmount: b.TicketPriceAtPurchase, Quantity: b.Quantity}}
	for _, line := range b.AddOns {
		if line.PriceAtPurchase == 0 {
			continue
		}
		addOnName := fmt.Sprintf("Add-on %d", line.AddOnID)
		if a, ok := e.AddOn(line.AddOnID); ok {
			addOnName = a.Name
		}
		lines = append(lines, payment.LineItem{Name: addOnName, UnitAmount: line.PriceAtPurchase, Quantity: line.Quantity})
	}
	return lines
}

func (s *bookingService) replay(ctx context.Context, b *models.Booking, req dto.CreateBookingRequest) (*BookingResult, error) {
	logging.FromContext(ctx).WithField("booking_id", b.ID).Info("Replaying idempotent booking request")

	switch b.Status {
	case models.StatusConfirmed:
		return &BookingResult{Booking: b, Replayed: true}, nil
	case models.StatusPending:
		if b.CheckoutURL != nil && *b.CheckoutURL != "" {
			return &BookingResult{Booking: b, CheckoutURL: *b.CheckoutURL, Replayed: true}, nil
		}
		// The first attempt stopped between commit and checkout creation.
		e, err := s.eventRepo.FindByID(ctx, b.EventID)
		if err != nil {
			return nil, fmt.Errorf("load event %d: %w", b.EventID, err)
		}
		res, err := s.startCheckout(ctx, e, b, req)
		if err != nil {
			return nil, err
		}
		res.Replayed = true
		return res, nil
	default:
		return nil, fmt.Errorf("%w: booking %d is %s", ErrBookingNotActive, b.ID, b.Status)
	}
}

// release marks a booking inactive outside any transaction and tells the
// waitlist that capacity came back.
func (s *bookingService) release(ctx context.Context, b *models.Booking, status models.BookingStatus) {
	if err := s.bookingRepo.UpdateStatus(ctx, nil, b.ID, status); err != nil {
		logging.FromContext(ctx).WithError(err).WithField("booking_id", b.ID).Error("Failed to release booking")
		return
	}
	b.Status = status
	s.released(ctx, b)
}

func (s *bookingService) released(ctx context.Context, b *models.Booking) {
	key := KeyBookingCancelled
	if b.Status == models.StatusRefunded {
		key = KeyBookingRefunded
	}
	publish(ctx, s.publisher, key, newBookingMessage(b, s.opts.Now()))
	if s.waitlist != nil {
		if _, err := s.waitlist.NotifyNext(ctx, b.EventID); err != nil {
			logging.FromContext(ctx).WithError(err).WithField("event_id", b.EventID).Warn("Failed to notify waitlist")
		}
	}
}

// SettleCheckout confirms the booking behind a paid checkout session. Repeated
// notifications are no-ops. A payment that lands after the hold was released is
// accepted only if capacity still allows it, and refunded otherwise.
func (s *bookingService) SettleCheckout(ctx context.Context, sessionID, paymentRef string) (*models.Booking, error) {
	var (
		booking   *models.Booking
		confirmed bool
		refund    bool
	)
	err := s.bookingRepo.Transaction(ctx, func(tx *gorm.DB) error {
		b, err := s.bookingRepo.FindByCheckoutSessionForUpdate(ctx, tx, sessionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookingNotFound
			}
			return err
		}
		booking = b

		switch b.Status {
		case models.StatusPending:
		case models.StatusCancelled:
			e, err := s.eventRepo.FindByIDForUpdate(ctx, tx, b.EventID)
			if err != nil {
				return fmt.Errorf("lock event: %w", err)
			}
			sold, err := s.bookingRepo.SoldCounts(ctx, tx, e.ID)
			if err != nil {
				return fmt.Errorf("sold counts: %w", err)
			}
			full, err := s.bookingRepo.FindByIDForUpdate(ctx, tx, b.ID)
			if err != nil {
				return err
			}
			booking = full
			if !fits(ledger.Compute(*e, e.TicketTypes, e.AddOns, sold), full) {
				refund = true
				return nil
			}
		default:
			return nil
		}

		if err := s.bookingRepo.MarkPaid(ctx, tx, b.ID, paymentRef); err != nil {
			return err
		}
		booking.Status = models.StatusConfirmed
		booking.ExpiresAt = nil
		if paymentRef != "" {
			booking.StripePaymentIntentID = &paymentRef
		}
		confirmed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	log := logging.FromContext(ctx).WithFields(logrus.Fields{"booking_id": booking.ID, "session_id": sessionID})
	switch {
	case confirmed:
		log.Info("Booking confirmed by payment")
		publish(ctx, s.publisher, KeyBookingConfirmed, newBookingMessage(booking, s.opts.Now()))
	case refund:
		log.Warn("Payment arrived after capacity was released, refunding")
		if err := s.refund(ctx, paymentRef, booking.TotalAmount); err != nil {
			return nil, err
		}
		if err := s.bookingRepo.UpdateStatus(ctx, nil, booking.ID, models.StatusRefunded); err != nil {
			return nil, err
		}
		booking.Status = models.StatusRefunded
		publish(ctx, s.publisher, KeyBookingRefunded, newBookingMessage(booking, s.opts.Now()))
	}
	return booking, nil
}

func (s *bookingService) refund(ctx context.Context, paymentRef string, amount int64) error {
	if paymentRef == "" || amount == 0 {
		return nil
	}
	if s.payments == nil {
		return fmt.Errorf("refund %s: no payment provider configured", paymentRef)
	}
	return s.payments.Refund(ctx, paymentRef, amount)
}

// ExpireCheckout cancels the pending booking behind an abandoned checkout.
func (s *bookingService) ExpireCheckout(ctx context.Context, sessionID string) (*models.Booking, error) {
	var (
		booking *models.Booking
		changed bool
	)
	err := s.bookingRepo.Transaction(ctx, func(tx *gorm.DB) error {
		b, err := s.bookingRepo.FindByCheckoutSessionForUpdate(ctx, tx, sessionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookingNotFound
			}
			return err
		}
		booking = b
		if b.Status != models.StatusPending {
			return nil
		}
		if err := s.bookingRepo.UpdateStatus(ctx, tx, b.ID, models.StatusCancelled); err != nil {
			return err
		}
		b.Status = models.StatusCancelled
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if changed {
		logging.FromContext(ctx).WithField("booking_id", booking.ID).Info("Checkout expired, booking cancelled")
		s.released(ctx, booking)
	}
	return booking, nil
}

// CancelBooking releases an active booking. Paid confirmed bookings are refunded
// in full and end as refunded.
func (s *bookingService) CancelBooking(ctx context.Context, bookingID uint) (*models.Booking, error) {
	var result *models.Booking

	err := s.bookingRepo.Transaction(ctx, func(tx *gorm.DB) error {
		booking, err := s.bookingRepo.FindByIDForUpdate(ctx, tx, bookingID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookingNotFound
			}
			return err
		}
		if !booking.Status.Active() {
			return fmt.Errorf("%w: booking %d is %s", ErrBookingNotActive, booking.ID, booking.Status)
		}

		// Serialize with submissions for the same event.
		if _, err := s.eventRepo.FindByIDForUpdate(ctx, tx, booking.EventID); err != nil {
			return err
		}

		status := models.StatusCancelled
		if booking.Status == models.StatusConfirmed && booking.TotalAmount > 0 && booking.StripePaymentIntentID != nil {
			if err := s.refund(ctx, *booking.StripePaymentIntentID, booking.TotalAmount); err != nil {
				return fmt.Errorf("refund booking %d: %w", booking.ID, err)
			}
			status = models.StatusRefunded
		}

		if err := s.bookingRepo.UpdateStatus(ctx, tx, booking.ID, status); err != nil {
			return err
		}
		booking.Status = status
		result = booking
		return nil
	})
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).WithFields(logrus.Fields{"booking_id": result.ID, "status": result.Status}).Info("Booking cancelled")
	s.released(ctx, result)
	return result, nil
}

func (s *bookingService) GetBooking(ctx context.Context, id uint) (*models.Booking, error) {
	b, err := s.bookingRepo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBookingNotFound
	}
	return b, err
}

func (s *bookingService) ListBookings(ctx context.Context, slug string, status *models.BookingStatus) ([]models.Booking, error) {
	e, err := s.eventRepo.FindBySlug(ctx, nil, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return s.bookingRepo.FindByEventID(ctx, e.ID, status)
}

// ExpirePending cancels pending bookings whose checkout window has passed and
// returns how many were cancelled.
func (s *bookingService) ExpirePending(ctx context.Context) (int, error) {
	now := s.opts.Now()
	stale, err := s.bookingRepo.FindExpiredPending(ctx, now, sweepBatchSize)
	if err != nil {
		return 0, fmt.Errorf("find expired bookings: %w", err)
	}

	var expired []*models.Booking
	for _, candidate := range stale {
		var b *models.Booking
		err := s.bookingRepo.Transaction(ctx, func(tx *gorm.DB) error {
			locked, err := s.bookingRepo.FindByIDForUpdate(ctx, tx, candidate.ID)
			if err != nil {
				return err
			}
			if locked.Status != models.StatusPending || locked.ExpiresAt == nil || !locked.ExpiresAt.Before(now) {
				return nil
			}
			if err := s.bookingRepo.UpdateStatus(ctx, tx, locked.ID, models.StatusCancelled); err != nil {
				return err
			}
			locked.Status = models.StatusCancelled
			b = locked
			return nil
		})
		if err != nil {
			return len(expired), fmt.Errorf("expire booking %d: %w", candidate.ID, err)
		}
		if b != nil {
			expired = append(expired, b)
		}
	}

	notified := make(map[uint]bool)
	for _, b := range expired {
		publish(ctx, s.publisher, KeyBookingCancelled, newBookingMessage(b, now))
		if s.waitlist != nil && !notified[b.EventID] {
			notified[b.EventID] = true
			if _, err := s.waitlist.NotifyNext(ctx, b.EventID); err != nil {
				logging.FromContext(ctx).WithError(err).WithField("event_id", b.EventID).Warn("Failed to notify waitlist")
			}
		}
	}
	return len(expired), nil
}
