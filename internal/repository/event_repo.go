package repository

import (
	"context"

	"github.com/fairwaylink/event-booking/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type EventRepository interface {
	Create(ctx context.Context, event *models.Event, addOnGroups []int) error
	FindByID(ctx context.Context, id uint) (*models.Event, error)
	FindAll(ctx context.Context) ([]models.Event, error)
	FindBySlug(ctx context.Context, tx *gorm.DB, slug string) (*models.Event, error)
	FindBySlugForUpdate(ctx context.Context, tx *gorm.DB, slug string) (*models.Event, error)
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Event, error)
	UpdateStatus(ctx context.Context, id uint, status models.EventStatus) error
}

type eventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// withCatalog preloads everything a booking page or a submission needs.
func withCatalog(q *gorm.DB) *gorm.DB {
	return q.
		Preload("TicketTypes", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC, id ASC") }).
		Preload("AddOnGroups", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC, id ASC") }).
		Preload("AddOns", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC, id ASC") }).
		Preload("FormFields", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC, id ASC") })
}

// Create inserts the event with its ticket types, groups and form fields, then the
// add-ons, whose group IDs are only known once the groups are stored. addOnGroups[i]
// is the index into event.AddOnGroups of add-on i's group, or -1 for none.
func (r *eventRepository) Create(ctx context.Context, event *models.Event, addOnGroups []int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		addOns := event.AddOns
		event.AddOns = nil
		if err := tx.Omit("AddOns").Create(event).Error; err != nil {
			return err
		}
		for i := range addOns {
			addOns[i].EventID = event.ID
			if i < len(addOnGroups) && addOnGroups[i] >= 0 {
				id := event.AddOnGroups[addOnGroups[i]].ID
				addOns[i].GroupID = &id
			}
		}
		if len(addOns) > 0 {
			if err := tx.Create(&addOns).Error; err != nil {
				return err
			}
		}
		event.AddOns = addOns
		return nil
	})
}

func (r *eventRepository) FindByID(ctx context.Context, id uint) (*models.Event, error) {
	var event models.Event
	if err := withCatalog(r.db.WithContext(ctx)).First(&event, id).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *eventRepository) FindAll(ctx context.Context) ([]models.Event, error) {
	var events []models.Event
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *eventRepository) FindBySlug(ctx context.Context, tx *gorm.DB, slug string) (*models.Event, error) {
	var event models.Event
	if err := withCatalog(r.conn(tx).WithContext(ctx)).Where("slug = ?", slug).First(&event).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

// FindBySlugForUpdate acquires a row-level lock on the event within the given
// transaction. Every capacity check for the event runs behind this lock.
func (r *eventRepository) FindBySlugForUpdate(ctx context.Context, tx *gorm.DB, slug string) (*models.Event, error) {
	var event models.Event
	if err := withCatalog(tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"})).
		Where("slug = ?", slug).
		First(&event).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *eventRepository) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Event, error) {
	var event models.Event
	if err := withCatalog(tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"})).
		First(&event, id).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *eventRepository) UpdateStatus(ctx context.Context, id uint, status models.EventStatus) error {
	res := r.db.WithContext(ctx).
		Model(&models.Event{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
