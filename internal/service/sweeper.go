package service

import (
	"context"
	"time"

	"github.com/fairwaylink/event-booking/internal/logging"
	"github.com/sirupsen/logrus"
)

// Sweeper periodically releases lapsed checkout holds and waitlist offers.
type Sweeper struct {
	bookings BookingService
	waitlist WaitlistService
	interval time.Duration
}

func NewSweeper(bookings BookingService, waitlist WaitlistService, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{bookings: bookings, waitlist: waitlist, interval: interval}
}

// Run sweeps on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Sweep(logging.ContextWithCorrelationID(ctx, logging.NewCorrelationID()))
		}
	}
}

// Sweep runs one pass. Failures are logged and retried on the next pass.
func (s *Sweeper) Sweep(ctx context.Context) {
	log := logging.FromContext(ctx)

	bookings, err := s.bookings.ExpirePending(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to expire pending bookings")
	}

	var offers int
	if s.waitlist != nil {
		offers, err = s.waitlist.ExpireOffers(ctx)
		if err != nil {
			log.WithError(err).Error("Failed to expire waitlist offers")
		}
	}

	if bookings > 0 || offers > 0 {
		log.WithFields(logrus.Fields{
			"expired_bookings": bookings,
			"expired_offers":   offers,
		}).Info("Sweep released capacity")
	}
}
