package repository

import (
	"context"
	"time"

	"github.com/fairwaylink/event-booking/internal/ledger"
	"github.com/fairwaylink/event-booking/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BookingRepository interface {
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
	Create(ctx context.Context, tx *gorm.DB, booking *models.Booking) error
	SoldCounts(ctx context.Context, tx *gorm.DB, eventID uint) (ledger.SoldCounts, error)
	FindByID(ctx context.Context, id uint) (*models.Booking, error)
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Booking, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*models.Booking, error)
	FindByCheckoutSessionForUpdate(ctx context.Context, tx *gorm.DB, sessionID string) (*models.Booking, error)
	FindByEventID(ctx context.Context, eventID uint, status *models.BookingStatus) ([]models.Booking, error)
	FindExpiredPending(ctx context.Context, now time.Time, limit int) ([]models.Booking, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, bookingID uint, status models.BookingStatus) error
	SetCheckout(ctx context.Context, bookingID uint, sessionID, url string) error
	MarkPaid(ctx context.Context, tx *gorm.DB, bookingID uint, paymentRef string) error
}

type bookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) BookingRepository {
	return &bookingRepository{db: db}
}

func (r *bookingRepository) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *bookingRepository) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

// Create inserts the booking together with its add-on lines and form responses.
func (r *bookingRepository) Create(ctx context.Context, tx *gorm.DB, booking *models.Booking) error {
	return r.conn(tx).WithContext(ctx).Create(booking).Error
}

func activeStatuses() []string {
	out := make([]string, len(models.ActiveStatuses))
	for i, s := range models.ActiveStatuses {
		out[i] = string(s)
	}
	return out
}

type soldRow struct {
	ID   uint
	Sold int
}

// SoldCounts aggregates the quantities held by pending and confirmed bookings.
// Nothing is cached; callers hold the event lock when the result gates an insert.
func (r *bookingRepository) SoldCounts(ctx context.Context, tx *gorm.DB, eventID uint) (ledger.SoldCounts, error) {
	sold := ledger.NewSoldCounts()
	db := r.conn(tx).WithContext(ctx)

	var tickets []soldRow
	if err := db.Model(&models.Booking{}).
		Select("ticket_type_id AS id, COALESCE(SUM(quantity), 0) AS sold").
		Where("event_id = ? AND status IN ?", eventID, activeStatuses()).
		Group("ticket_type_id").
		Scan(&tickets).Error; err != nil {
		return sold, err
	}
	for _, row := range tickets {
		sold.Tickets[row.ID] = row.Sold
		sold.Event += row.Sold
	}

	var addOns []soldRow
	if err := db.Table("event_booking_add_ons AS a").
		Select("a.add_on_id AS id, COALESCE(SUM(a.quantity), 0) AS sold").
		Joins("JOIN event_bookings AS b ON b.id = a.booking_id").
		Where("b.event_id = ? AND b.status IN ?", eventID, activeStatuses()).
		Group("a.add_on_id").
		Scan(&addOns).Error; err != nil {
		return sold, err
	}
	for _, row := range addOns {
		sold.AddOns[row.ID] = row.Sold
	}

	return sold, nil
}

func withLines(q *gorm.DB) *gorm.DB {
	return q.Preload("AddOns").Preload("Responses")
}

func (r *bookingRepository) FindByID(ctx context.Context, id uint) (*models.Booking, error) {
	var booking models.Booking
	if err := withLines(r.db.WithContext(ctx)).First(&booking, id).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepository) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Booking, error) {
	var booking models.Booking
	if err := withLines(tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"})).
		First(&booking, id).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepository) FindByIdempotencyKey(ctx context.Context, key string) (*models.Booking, error) {
	var booking models.Booking
	if err := withLines(r.db.WithContext(ctx)).
		Where("idempotency_key = ?", key).
		First(&booking).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepository) FindByCheckoutSessionForUpdate(ctx context.Context, tx *gorm.DB, sessionID string) (*models.Booking, error) {
	var booking models.Booking
	if err := r.conn(tx).WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("stripe_checkout_session_id = ?", sessionID).
		First(&booking).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepository) FindByEventID(ctx context.Context, eventID uint, status *models.BookingStatus) ([]models.Booking, error) {
	var bookings []models.Booking
	q := withLines(r.db.WithContext(ctx)).Where("event_id = ?", eventID)
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	if err := q.Order("id ASC").Find(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}

// FindExpiredPending returns pending bookings whose checkout window has passed,
// oldest first.
func (r *bookingRepository) FindExpiredPending(ctx context.Context, now time.Time, limit int) ([]models.Booking, error) {
	var bookings []models.Booking
	err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at < ?", models.StatusPending, now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&bookings).Error
	return bookings, err
}

func (r *bookingRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, bookingID uint, status models.BookingStatus) error {
	return r.conn(tx).WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ?", bookingID).
		Update("status", status).Error
}

func (r *bookingRepository) SetCheckout(ctx context.Context, bookingID uint, sessionID, url string) error {
	return r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ?", bookingID).
		Updates(map[string]any{
			"stripe_checkout_session_id": sessionID,
			"checkout_url":               url,
		}).Error
}

// MarkPaid confirms a pending booking and records the provider's payment
// reference. The expiry is cleared so the sweeper leaves it alone.
func (r *bookingRepository) MarkPaid(ctx context.Context, tx *gorm.DB, bookingID uint, paymentRef string) error {
	updates := map[string]any{
		"status":     models.StatusConfirmed,
		"expires_at": nil,
	}
	if paymentRef != "" {
		updates["stripe_payment_intent_id"] = paymentRef
	}
	return r.conn(tx).WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ?", bookingID).
		Updates(updates).Error
}
