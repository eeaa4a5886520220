package repository

import (
	"context"
	"time"

	"github.com/fairwaylink/event-booking/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WaitlistRepository interface {
	Create(ctx context.Context, tx *gorm.DB, entry *models.WaitlistEntry) error
	MaxPosition(ctx context.Context, tx *gorm.DB, eventID uint) (int, error)
	FindActiveByEmail(ctx context.Context, tx *gorm.DB, eventID uint, email string) (*models.WaitlistEntry, error)
	FindWaiting(ctx context.Context, tx *gorm.DB, eventID uint, limit int) ([]models.WaitlistEntry, error)
	MarkNotified(ctx context.Context, tx *gorm.DB, ids []uint, offerExpiresAt time.Time) error
	CountOpenOffers(ctx context.Context, tx *gorm.DB, eventID uint, now time.Time) (int, error)
	ConvertByEmail(ctx context.Context, tx *gorm.DB, eventID uint, email string) (int64, error)
	FindExpiredOffers(ctx context.Context, now time.Time) ([]models.WaitlistEntry, error)
	MarkExpired(ctx context.Context, tx *gorm.DB, id uint) error
	FindByEventID(ctx context.Context, eventID uint) ([]models.WaitlistEntry, error)
}

type waitlistRepository struct {
	db *gorm.DB
}

func NewWaitlistRepository(db *gorm.DB) WaitlistRepository {
	return &waitlistRepository{db: db}
}

func (r *waitlistRepository) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *waitlistRepository) Create(ctx context.Context, tx *gorm.DB, entry *models.WaitlistEntry) error {
	return r.conn(tx).WithContext(ctx).Create(entry).Error
}

func (r *waitlistRepository) MaxPosition(ctx context.Context, tx *gorm.DB, eventID uint) (int, error) {
	var pos int
	err := r.conn(tx).WithContext(ctx).
		Model(&models.WaitlistEntry{}).
		Select("COALESCE(MAX(position), 0)").
		Where("event_id = ?", eventID).
		Scan(&pos).Error
	return pos, err
}

// FindActiveByEmail returns the caller's waiting or notified entry, if any.
func (r *waitlistRepository) FindActiveByEmail(ctx context.Context, tx *gorm.DB, eventID uint, email string) (*models.WaitlistEntry, error) {
	var entry models.WaitlistEntry
	err := r.conn(tx).WithContext(ctx).
		Where("event_id = ? AND LOWER(email) = LOWER(?) AND status IN ?", eventID, email,
			[]string{string(models.WaitlistWaiting), string(models.WaitlistNotified)}).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// FindWaiting returns the head of the queue in position order, locked.
func (r *waitlistRepository) FindWaiting(ctx context.Context, tx *gorm.DB, eventID uint, limit int) ([]models.WaitlistEntry, error) {
	var entries []models.WaitlistEntry
	err := r.conn(tx).WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("event_id = ? AND status = ?", eventID, models.WaitlistWaiting).
		Order("position ASC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

func (r *waitlistRepository) MarkNotified(ctx context.Context, tx *gorm.DB, ids []uint, offerExpiresAt time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return r.conn(tx).WithContext(ctx).
		Model(&models.WaitlistEntry{}).
		Where("id IN ?", ids).
		Updates(map[string]any{
			"status":           models.WaitlistNotified,
			"offer_expires_at": offerExpiresAt,
		}).Error
}

// CountOpenOffers counts notified entries whose offer has not lapsed.
func (r *waitlistRepository) CountOpenOffers(ctx context.Context, tx *gorm.DB, eventID uint, now time.Time) (int, error) {
	var n int64
	err := r.conn(tx).WithContext(ctx).
		Model(&models.WaitlistEntry{}).
		Where("event_id = ? AND status = ? AND offer_expires_at >= ?", eventID, models.WaitlistNotified, now).
		Count(&n).Error
	return int(n), err
}

// ConvertByEmail closes out the active entries of someone who has now booked.
func (r *waitlistRepository) ConvertByEmail(ctx context.Context, tx *gorm.DB, eventID uint, email string) (int64, error) {
	res := r.conn(tx).WithContext(ctx).
		Model(&models.WaitlistEntry{}).
		Where("event_id = ? AND LOWER(email) = LOWER(?) AND status IN ?", eventID, email,
			[]string{string(models.WaitlistWaiting), string(models.WaitlistNotified)}).
		Updates(map[string]any{
			"status":           models.WaitlistConverted,
			"offer_expires_at": nil,
		})
	return res.RowsAffected, res.Error
}

func (r *waitlistRepository) FindExpiredOffers(ctx context.Context, now time.Time) ([]models.WaitlistEntry, error) {
	var entries []models.WaitlistEntry
	err := r.db.WithContext(ctx).
		Where("status = ? AND offer_expires_at < ?", models.WaitlistNotified, now).
		Order("event_id ASC, position ASC").
		Find(&entries).Error
	return entries, err
}

func (r *waitlistRepository) MarkExpired(ctx context.Context, tx *gorm.DB, id uint) error {
	return r.conn(tx).WithContext(ctx).
		Model(&models.WaitlistEntry{}).
		Where("id = ? AND status = ?", id, models.WaitlistNotified).
		Update("status", models.WaitlistExpired).Error
}

func (r *waitlistRepository) FindByEventID(ctx context.Context, eventID uint) ([]models.WaitlistEntry, error) {
	var entries []models.WaitlistEntry
	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("position ASC").
		Find(&entries).Error
	return entries, err
}
