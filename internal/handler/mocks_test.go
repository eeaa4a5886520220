package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/fairwaylink/event-booking/internal/dto"
	"github.com/fairwaylink/event-booking/internal/models"
	"github.com/fairwaylink/event-booking/internal/service"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// --- Mock BookingService ---

type mockBookingService struct {
	createFn func(ctx context.Context, slug, key string, req dto.CreateBookingRequest) (*service.BookingResult, error)
	settleFn func(ctx context.Context, sessionID, paymentRef string) (*models.Booking, error)
	expireFn func(ctx context.Context, sessionID string) (*models.Booking, error)
	cancelFn func(ctx context.Context, bookingID uint) (*models.Booking, error)
	getFn    func(ctx context.Context, id uint) (*models.Booking, error)
	listFn   func(ctx context.Context, slug string, status *models.BookingStatus) ([]models.Booking, error)
}

func (m *mockBookingService) CreateBooking(ctx context.Context, slug, key string, req dto.CreateBookingRequest) (*service.BookingResult, error) {
	return m.createFn(ctx, slug, key, req)
}
func (m *mockBookingService) SettleCheckout(ctx context.Context, sessionID, paymentRef string) (*models.Booking, error) {
	return m.settleFn(ctx, sessionID, paymentRef)
}
func (m *mockBookingService) ExpireCheckout(ctx context.Context, sessionID string) (*models.Booking, error) {
	return m.expireFn(ctx, sessionID)
}
func (m *mockBookingService) CancelBooking(ctx context.Context, bookingID uint) (*models.Booking, error) {
	return m.cancelFn(ctx, bookingID)
}
func (m *mockBookingService) GetBooking(ctx context.Context, id uint) (*models.Booking, error) {
	return m.getFn(ctx, id)
}
func (m *mockBookingService) ListBookings(ctx context.Context, slug string, status *models.BookingStatus) ([]models.Booking, error) {
	return m.listFn(ctx, slug, status)
}
func (m *mockBookingService) ExpirePending(ctx context.Context) (int, error) { return 0, nil }

// --- Mock EventService ---

type mockEventService struct {
	createFn   func(ctx context.Context, req dto.CreateEventRequest) (*models.Event, error)
	getFn      func(ctx context.Context, id uint) (*models.Event, error)
	listFn     func(ctx context.Context) ([]models.Event, error)
	statusFn   func(ctx context.Context, id uint, status models.EventStatus) (*models.Event, error)
	catalogFn  func(ctx context.Context, slug string) (dto.EventCatalog, error)
	capacityFn func(ctx context.Context, slug string) (dto.CapacityResponse, error)
}

func (m *mockEventService) CreateEvent(ctx context.Context, req dto.CreateEventRequest) (*models.Event, error) {
	return m.createFn(ctx, req)
}
func (m *mockEventService) GetEvent(ctx context.Context, id uint) (*models.Event, error) {
	if m.getFn == nil {
		if id == 1 {
			return &models.Event{ID: 1, Slug: "spring-open", Name: "Spring Open"}, nil
		}
		return nil, service.ErrEventNotFound
	}
	return m.getFn(ctx, id)
}
func (m *mockEventService) ListEvents(ctx context.Context) ([]models.Event, error) {
	return m.listFn(ctx)
}
func (m *mockEventService) UpdateStatus(ctx context.Context, id uint, status models.EventStatus) (*models.Event, error) {
	return m.statusFn(ctx, id, status)
}
func (m *mockEventService) Catalog(ctx context.Context, slug string) (dto.EventCatalog, error) {
	return m.catalogFn(ctx, slug)
}
func (m *mockEventService) Capacity(ctx context.Context, slug string) (dto.CapacityResponse, error) {
	return m.capacityFn(ctx, slug)
}

// --- Mock WaitlistService ---

type mockWaitlistService struct {
	joinFn func(ctx context.Context, slug string, req dto.JoinWaitlistRequest) (*models.WaitlistEntry, error)
	listFn func(ctx context.Context, slug string) ([]models.WaitlistEntry, error)
}

func (m *mockWaitlistService) Join(ctx context.Context, slug string, req dto.JoinWaitlistRequest) (*models.WaitlistEntry, error) {
	return m.joinFn(ctx, slug, req)
}
func (m *mockWaitlistService) Convert(ctx context.Context, tx *gorm.DB, eventID uint, email string) error {
	return nil
}
func (m *mockWaitlistService) NotifyNext(ctx context.Context, eventID uint) ([]models.WaitlistEntry, error) {
	return nil, nil
}
func (m *mockWaitlistService) ExpireOffers(ctx context.Context) (int, error) { return 0, nil }
func (m *mockWaitlistService) List(ctx context.Context, slug string) ([]models.WaitlistEntry, error) {
	return m.listFn(ctx, slug)
}

func newContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func httpCode(err error) int {
	if he, ok := err.(*echo.HTTPError); ok {
		return he.Code
	}
	return http.StatusInternalServerError
}
