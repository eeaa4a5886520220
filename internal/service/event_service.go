package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/fairwaylink/event-booking/internal/dto"
	"github.com/fairwaylink/event-booking/internal/eligibility"
	"github.com/fairwaylink/event-booking/internal/ledger"
	"github.com/fairwaylink/event-booking/internal/models"
	"github.com/fairwaylink/event-booking/internal/repository"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type EventService interface {
	CreateEvent(ctx context.Context, req dto.CreateEventRequest) (*models.Event, error)
	GetEvent(ctx context.Context, id uint) (*models.Event, error)
	ListEvents(ctx context.Context) ([]models.Event, error)
	UpdateStatus(ctx context.Context, id uint, status models.EventStatus) (*models.Event, error)
	Catalog(ctx context.Context, slug string) (dto.EventCatalog, error)
	Capacity(ctx context.Context, slug string) (dto.CapacityResponse, error)
}

type eventService struct {
	repo        repository.EventRepository
	bookingRepo repository.BookingRepository
	publisher   Publisher
	now         func() time.Time
}

func NewEventService(repo repository.EventRepository, bookingRepo repository.BookingRepository, publisher Publisher) EventService {
	return &eventService{repo: repo, bookingRepo: bookingRepo, publisher: publisher, now: time.Now}
}

func (s *eventService) CreateEvent(ctx context.Context, req dto.CreateEventRequest) (*models.Event, error) {
	event, groups, err := toEvent(req)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, event, groups); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: slug %q already exists", ErrInvalidEvent, event.Slug)
		}
		return nil, fmt.Errorf("create event: %w", err)
	}

	publish(ctx, s.publisher, KeyEventCreated, dto.ToEventResponse(event))
	return event, nil
}

func (s *eventService) GetEvent(ctx context.Context, id uint) (*models.Event, error) {
	e, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrEventNotFound
	}
	return e, err
}

func (s *eventService) ListEvents(ctx context.Context) ([]models.Event, error) {
	return s.repo.FindAll(ctx)
}

func (s *eventService) UpdateStatus(ctx context.Context, id uint, status models.EventStatus) (*models.Event, error) {
	if !validEventStatus(status) {
		return nil, fmt.Errorf("%w: status %q", ErrInvalidEvent, status)
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("update event status: %w", err)
	}
	return s.GetEvent(ctx, id)
}

// Catalog is the booking page's view of an event: what is listed, what is left
// and whether registration is open, all derived at call time.
func (s *eventService) Catalog(ctx context.Context, slug string) (dto.EventCatalog, error) {
	e, sold, err := s.load(ctx, slug)
	if err != nil {
		return dto.EventCatalog{}, err
	}
	now := s.now()
	snap := ledger.Compute(*e, e.TicketTypes, e.AddOns, sold)
	return dto.ToEventCatalog(e, snap, eligibility.Event(*e, snap, now), now), nil
}

func (s *eventService) Capacity(ctx context.Context, slug string) (dto.CapacityResponse, error) {
	e, sold, err := s.load(ctx, slug)
	if err != nil {
		return dto.CapacityResponse{}, err
	}
	snap := ledger.Compute(*e, e.TicketTypes, e.AddOns, sold)
	return dto.ToCapacityResponse(e, sold, snap, eligibility.Event(*e, snap, s.now())), nil
}

func (s *eventService) load(ctx context.Context, slug string) (*models.Event, ledger.SoldCounts, error) {
	e, err := s.repo.FindBySlug(ctx, nil, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledger.SoldCounts{}, ErrEventNotFound
		}
		return nil, ledger.SoldCounts{}, err
	}
	sold, err := s.bookingRepo.SoldCounts(ctx, nil, e.ID)
	if err != nil {
		return nil, ledger.SoldCounts{}, fmt.Errorf("sold counts: %w", err)
	}
	return e, sold, nil
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

func validEventStatus(s models.EventStatus) bool {
	switch s {
	case models.EventDraft, models.EventPublished, models.EventSoldOut, models.EventClosed, models.EventCancelled:
		return true
	}
	return false
}

func visibility(v string) (models.Visibility, error) {
	switch models.Visibility(v) {
	case "":
		return models.VisibilityPublic, nil
	case models.VisibilityPublic, models.VisibilityHidden, models.VisibilityInviteOnly:
		return models.Visibility(v), nil
	}
	return "", fmt.Errorf("%w: visibility %q", ErrInvalidEvent, v)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidEvent, fmt.Sprintf(format, args...))
}

// toEvent validates a create request and maps it to models. The second return
// value holds, per add-on, the index of its group in event.AddOnGroups or -1.
func toEvent(req dto.CreateEventRequest) (*models.Event, []int, error) {
	e := &models.Event{
		Name:                 strings.TrimSpace(req.Name),
		Slug:                 strings.TrimSpace(req.Slug),
		StartsAt:             req.StartsAt,
		Location:             req.Location,
		Currency:             strings.ToLower(strings.TrimSpace(req.Currency)),
		TotalCapacity:        req.TotalCapacity,
		Status:               models.EventStatus(req.Status),
		RegistrationOpensAt:  req.RegistrationOpensAt,
		RegistrationClosesAt: req.RegistrationClosesAt,
		WaitlistEnabled:      req.WaitlistEnabled,
	}
	if e.Currency == "" {
		e.Currency = "usd"
	}
	if e.Status == "" {
		e.Status = models.EventDraft
	}

	switch {
	case e.Name == "":
		return nil, nil, invalid("name is required")
	case !slugPattern.MatchString(e.Slug):
		return nil, nil, invalid("slug %q must be lowercase letters, digits and dashes", e.Slug)
	case len(e.Currency) != 3:
		return nil, nil, invalid("currency %q", e.Currency)
	case e.TotalCapacity <= 0:
		return nil, nil, invalid("total_capacity must be positive")
	case !validEventStatus(e.Status):
		return nil, nil, invalid("status %q", e.Status)
	case e.RegistrationOpensAt != nil && e.RegistrationClosesAt != nil && e.RegistrationClosesAt.Before(*e.RegistrationOpensAt):
		return nil, nil, invalid("registration closes before it opens")
	case len(req.TicketTypes) == 0:
		return nil, nil, invalid("at least one ticket type is required")
	}

	for _, t := range req.TicketTypes {
		vis, err := visibility(t.Visibility)
		if err != nil {
			return nil, nil, err
		}
		min := max(t.MinPerOrder, 1)
		switch {
		case strings.TrimSpace(t.Name) == "":
			return nil, nil, invalid("ticket type name is required")
		case t.Price < 0:
			return nil, nil, invalid("ticket type %q has a negative price", t.Name)
		case t.Capacity != nil && *t.Capacity < 0:
			return nil, nil, invalid("ticket type %q has a negative capacity", t.Name)
		case t.MaxPerOrder != 0 && t.MaxPerOrder < min:
			return nil, nil, invalid("ticket type %q max_per_order is below min_per_order", t.Name)
		}
		var code *string
		if t.AccessCode != nil && strings.TrimSpace(*t.AccessCode) != "" {
			trimmed := strings.TrimSpace(*t.AccessCode)
			code = &trimmed
		}
		e.TicketTypes = append(e.TicketTypes, models.TicketType{
			Name:            strings.TrimSpace(t.Name),
			Description:     t.Description,
			Price:           t.Price,
			Capacity:        t.Capacity,
			Visibility:      vis,
			SaleStartsAt:    t.SaleStartsAt,
			SaleEndsAt:      t.SaleEndsAt,
			MinPerOrder:     min,
			MaxPerOrder:     t.MaxPerOrder,
			AccessCode:      code,
			WaitlistEnabled: t.WaitlistEnabled,
			SortOrder:       t.SortOrder,
		})
	}

	groupIndex := make(map[string]int, len(req.AddOnGroups))
	for i, g := range req.AddOnGroups {
		sel := models.SelectionType(g.SelectionType)
		if sel == "" {
			sel = models.SelectAny
		}
		switch {
		case g.Key == "":
			return nil, nil, invalid("add-on group key is required")
		case sel != models.SelectAny && sel != models.SelectOneOnly:
			return nil, nil, invalid("add-on group %q selection_type %q", g.Key, g.SelectionType)
		}
		if _, dup := groupIndex[g.Key]; dup {
			return nil, nil, invalid("duplicate add-on group key %q", g.Key)
		}
		groupIndex[g.Key] = i
		e.AddOnGroups = append(e.AddOnGroups, models.AddOnGroup{
			Name:          g.Name,
			SelectionType: sel,
			SortOrder:     g.SortOrder,
		})
	}

	groups := make([]int, 0, len(req.AddOns))
	for _, a := range req.AddOns {
		vis, err := visibility(a.Visibility)
		if err != nil {
			return nil, nil, err
		}
		switch {
		case strings.TrimSpace(a.Name) == "":
			return nil, nil, invalid("add-on name is required")
		case a.Price < 0:
			return nil, nil, invalid("add-on %q has a negative price", a.Name)
		case a.Capacity != nil && *a.Capacity < 0:
			return nil, nil, invalid("add-on %q has a negative capacity", a.Name)
		}
		idx := -1
		if a.GroupKey != "" {
			i, ok := groupIndex[a.GroupKey]
			if !ok {
				return nil, nil, invalid("add-on %q references unknown group %q", a.Name, a.GroupKey)
			}
			idx = i
		}
		groups = append(groups, idx)
		e.AddOns = append(e.AddOns, models.AddOn{
			Name:         strings.TrimSpace(a.Name),
			Description:  a.Description,
			Price:        a.Price,
			Capacity:     a.Capacity,
			MaxPerOrder:  a.MaxPerOrder,
			Required:     a.Required,
			Visibility:   vis,
			SaleStartsAt: a.SaleStartsAt,
			SaleEndsAt:   a.SaleEndsAt,
			SortOrder:    a.SortOrder,
		})
	}

	for _, f := range req.FormFields {
		ft := models.FieldType(f.FieldType)
		if ft == "" {
			ft = models.FieldText
		}
		switch ft {
		case models.FieldText, models.FieldTextarea, models.FieldNumber, models.FieldCheckbox:
		case models.FieldSelect, models.FieldRadio:
			if len(f.Options) == 0 {
				return nil, nil, invalid("form field %q needs options", f.Label)
			}
		default:
			return nil, nil, invalid("form field %q type %q", f.Label, f.FieldType)
		}
		if strings.TrimSpace(f.Label) == "" {
			return nil, nil, invalid("form field label is required")
		}
		e.FormFields = append(e.FormFields, models.FormField{
			Label:     strings.TrimSpace(f.Label),
			FieldType: ft,
			Options:   datatypes.JSONSlice[string](f.Options),
			Required:  f.Required,
			SortOrder: f.SortOrder,
		})
	}

	return e, groups, nil
}
