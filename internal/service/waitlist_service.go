package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fairwaylink/event-booking/internal/dto"
	"github.com/fairwaylink/event-booking/internal/eligibility"
	"github.com/fairwaylink/event-booking/internal/ledger"
	"github.com/fairwaylink/event-booking/internal/logging"
	"github.com/fairwaylink/event-booking/internal/models"
	"github.com/fairwaylink/event-booking/internal/repository"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type WaitlistService interface {
	Join(ctx context.Context, slug string, req dto.JoinWaitlistRequest) (*models.WaitlistEntry, error)
	// Convert closes the active entries of email once they hold a booking. It runs
	// inside the booking's transaction.
	Convert(ctx context.Context, tx *gorm.DB, eventID uint, email string) error
	NotifyNext(ctx context.Context, eventID uint) ([]models.WaitlistEntry, error)
	ExpireOffers(ctx context.Context) (int, error)
	List(ctx context.Context, slug string) ([]models.WaitlistEntry, error)
}

type waitlistService struct {
	waitlistRepo repository.WaitlistRepository
	eventRepo    repository.EventRepository
	bookingRepo  repository.BookingRepository
	publisher    Publisher
	opts         Options
}

func NewWaitlistService(
	waitlistRepo repository.WaitlistRepository,
	eventRepo repository.EventRepository,
	bookingRepo repository.BookingRepository,
	publisher Publisher,
	opts Options,
) WaitlistService {
	return &waitlistService{
		waitlistRepo: waitlistRepo,
		eventRepo:    eventRepo,
		bookingRepo:  bookingRepo,
		publisher:    publisher,
		opts:         opts.withDefaults(),
	}
}

// Join appends a registrant to the event's queue. It is allowed when the event
// itself is waitlisted, or when the requested ticket type (or add-on) is sold
// out and accepts a waitlist.
func (s *waitlistService) Join(ctx context.Context, slug string, req dto.JoinWaitlistRequest) (*models.WaitlistEntry, error) {
	first, last, email := strings.TrimSpace(req.FirstName), strings.TrimSpace(req.LastName), strings.TrimSpace(req.Email)
	if err := checkIdentity(first, last, email); err != nil {
		return nil, err
	}

	now := s.opts.Now()
	var entry *models.WaitlistEntry
	err := s.bookingRepo.Transaction(ctx, func(tx *gorm.DB) error {
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

		if err := waitlistAllowed(e, snap, req, eligibility.Event(*e, snap, now)); err != nil {
			return err
		}
		for _, id := range req.DesiredAddOnIDs {
			if a, ok := e.AddOn(id); !ok || !eligibility.AddOnListed(*a) {
				return fmt.Errorf("%w: %d", ErrAddOnUnavailable, id)
			}
		}

		if _, err := s.waitlistRepo.FindActiveByEmail(ctx, tx, e.ID, email); err == nil {
			return ErrAlreadyWaitlisted
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		pos, err := s.waitlistRepo.MaxPosition(ctx, tx, e.ID)
		if err != nil {
			return err
		}
		w := &models.WaitlistEntry{
			EventID:          e.ID,
			TicketTypeID:     req.TicketTypeID,
			AddOnID:          req.AddOnID,
			FirstName:        first,
			LastName:         last,
			Email:            email,
			Phone:            strings.TrimSpace(req.Phone),
			Position:         pos + 1,
			Status:           models.WaitlistWaiting,
			PaymentMethodRef: req.PaymentMethodRef,
			DesiredAddOnIDs:  req.DesiredAddOnIDs,
		}
		if err := s.waitlistRepo.Create(ctx, tx, w); err != nil {
			return err
		}
		entry = w
		return nil
	})
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).WithFields(logrus.Fields{
		"event_id": entry.EventID,
		"position": entry.Position,
	}).Info("Joined waitlist")
	publish(ctx, s.publisher, KeyWaitlistJoined, newWaitlistMessage(entry))
	return entry, nil
}

func waitlistAllowed(e *models.Event, snap ledger.Snapshot, req dto.JoinWaitlistRequest, gate eligibility.Gate) error {
	if gate != eligibility.GateOpen && gate != eligibility.GateWaitlist {
		return fmt.Errorf("%w: registration is %s", ErrWaitlistUnavailable, gate)
	}

	if req.TicketTypeID != nil {
		t, ok := e.TicketType(*req.TicketTypeID)
		if !ok || t.Visibility == models.VisibilityHidden {
			return fmt.Errorf("%w: %d", ErrTicketUnavailable, *req.TicketTypeID)
		}
		if gate == eligibility.GateWaitlist {
			return nil
		}
		if !t.WaitlistEnabled || !snap.TicketSoldOut(t.ID) {
			return fmt.Errorf("%w: %s", ErrWaitlistUnavailable, t.Name)
		}
		return nil
	}

	if req.AddOnID != nil {
		a, ok := e.AddOn(*req.AddOnID)
		if !ok || !eligibility.AddOnListed(*a) {
			return fmt.Errorf("%w: %d", ErrAddOnUnavailable, *req.AddOnID)
		}
		if gate == eligibility.GateWaitlist {
			return nil
		}
		if !e.WaitlistEnabled || !snap.AddOnSoldOut(a.ID) {
			return fmt.Errorf("%w: %s", ErrWaitlistUnavailable, a.Name)
		}
		return nil
	}

	if gate != eligibility.GateWaitlist {
		return ErrWaitlistUnavailable
	}
	return nil
}

func (s *waitlistService) Convert(ctx context.Context, tx *gorm.DB, eventID uint, email string) error {
	n, err := s.waitlistRepo.ConvertByEmail(ctx, tx, eventID, email)
	if err != nil {
		return err
	}
	if n > 0 {
		logging.FromContext(ctx).WithField("event_id", eventID).Info("Waitlist entry converted to booking")
	}
	return nil
}

// NotifyNext offers released spots to the head of the queue. Spots already
// promised to an open offer are not offered twice. Offers do not reserve
// capacity: a notified registrant still books through the normal submission,
// and the first submission to reach the event lock wins.
func (s *waitlistService) NotifyNext(ctx context.Context, eventID uint) ([]models.WaitlistEntry, error) {
	now := s.opts.Now()
	var notified []models.WaitlistEntry

	err := s.bookingRepo.Transaction(ctx, func(tx *gorm.DB) error {
		e, err := s.eventRepo.FindByIDForUpdate(ctx, tx, eventID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEventNotFound
			}
			return fmt.Errorf("lock event: %w", err)
		}
		// Offers only go out while submissions are accepted.
		if e.Status != models.EventPublished {
			return nil
		}

		sold, err := s.bookingRepo.SoldCounts(ctx, tx, e.ID)
		if err != nil {
			return fmt.Errorf("sold counts: %w", err)
		}
		open, err := s.waitlistRepo.CountOpenOffers(ctx, tx, e.ID, now)
		if err != nil {
			return err
		}
		free := ledger.Compute(*e, e.TicketTypes, e.AddOns, sold).Spots() - open
		if free <= 0 {
			return nil
		}

		entries, err := s.waitlistRepo.FindWaiting(ctx, tx, e.ID, free)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}

		expires := now.Add(s.opts.WaitlistOfferTTL)
		ids := make([]uint, len(entries))
		for i := range entries {
			ids[i] = entries[i].ID
			entries[i].Status = models.WaitlistNotified
			entries[i].OfferExpiresAt = &expires
		}
		if err := s.waitlistRepo.MarkNotified(ctx, tx, ids, expires); err != nil {
			return err
		}
		notified = entries
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i := range notified {
		publish(ctx, s.publisher, KeyWaitlistNotified, newWaitlistMessage(&notified[i]))
	}
	if len(notified) > 0 {
		logging.FromContext(ctx).WithFields(logrus.Fields{
			"event_id": eventID,
			"notified": len(notified),
		}).Info("Waitlist notified")
	}
	return notified, nil
}

// ExpireOffers lapses offers nobody took up and passes the spots on.
func (s *waitlistService) ExpireOffers(ctx context.Context) (int, error) {
	stale, err := s.waitlistRepo.FindExpiredOffers(ctx, s.opts.Now())
	if err != nil {
		return 0, fmt.Errorf("find expired offers: %w", err)
	}

	events := make(map[uint]bool)
	for _, w := range stale {
		if err := s.waitlistRepo.MarkExpired(ctx, nil, w.ID); err != nil {
			return 0, fmt.Errorf("expire waitlist entry %d: %w", w.ID, err)
		}
		events[w.EventID] = true
	}
	for eventID := range events {
		if _, err := s.NotifyNext(ctx, eventID); err != nil {
			logging.FromContext(ctx).WithError(err).WithField("event_id", eventID).Warn("Failed to notify waitlist")
		}
	}
	return len(stale), nil
}

func (s *waitlistService) List(ctx context.Context, slug string) ([]models.WaitlistEntry, error) {
	e, err := s.eventRepo.FindBySlug(ctx, nil, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return s.waitlistRepo.FindByEventID(ctx, e.ID)
}
