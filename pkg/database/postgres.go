package database

import (
	"fmt"

	"github.com/fairwaylink/event-booking/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewPostgresDB opens the connection and migrates the schema. Driver errors are
// translated so unique violations surface as gorm.ErrDuplicatedKey.
func NewPostgresDB(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Event{},
		&models.TicketType{},
		&models.AddOnGroup{},
		&models.AddOn{},
		&models.FormField{},
		&models.Booking{},
		&models.BookingAddOn{},
		&models.FormResponse{},
		&models.WaitlistEntry{},
	); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}

	// One open waitlist entry per email and event.
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_waitlist_open_email
		ON event_waitlist_entries (event_id, lower(email))
		WHERE status IN ('waiting', 'notified')
	`).Error; err != nil {
		return fmt.Errorf("create waitlist index: %w", err)
	}

	// Capacity sums scan active bookings per event.
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_booking_active
		ON event_bookings (event_id, ticket_type_id)
		WHERE status IN ('pending', 'confirmed')
	`).Error; err != nil {
		return fmt.Errorf("create booking index: %w", err)
	}
	return nil
}
