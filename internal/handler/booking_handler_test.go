package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/fairwaylink/event-booking/internal/dto"
	"github.com/fairwaylink/event-booking/internal/models"
	"github.com/fairwaylink/event-booking/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bookingBody = `{"ticket_type_id":1,"quantity":2,"first_name":"Ada","last_name":"Lovelace","email":"ada@example.com"}`

func submit(t *testing.T, svc *mockBookingService) (int, dto.BookingOutcome, error) {
	t.Helper()
	c, rec := newContext(http.MethodPost, "/api/v1/events/spring-open/bookings", bookingBody)
	c.Request().Header.Set(HeaderIdempotencyKey, "key-1")
	c.SetParamNames("slug")
	c.SetParamValues("spring-open")

	err := NewBookingHandler(svc, &mockEventService{}).CreateBooking(c)

	var out dto.BookingOutcome
	if err == nil {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec.Code, out, err
}

func TestCreateBooking_Handler_Confirmed(t *testing.T) {
	var gotSlug, gotKey string
	svc := &mockBookingService{
		createFn: func(ctx context.Context, slug, key string, req dto.CreateBookingRequest) (*service.BookingResult, error) {
			gotSlug, gotKey = slug, key
			assert.Equal(t, "ada@example.com", req.Email)
			assert.Equal(t, 2, req.Quantity)
			return &service.BookingResult{Booking: &models.Booking{
				ID: 1, EventID: 1, Status: models.StatusConfirmed, CreatedAt: time.Now(),
			}}, nil
		},
	}

	code, out, err := submit(t, svc)

	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, code)
	assert.Equal(t, dto.OutcomeConfirmed, out.Status)
	require.NotNil(t, out.Booking)
	assert.Equal(t, uint(1), out.Booking.ID)
	assert.Equal(t, "spring-open", gotSlug)
	assert.Equal(t, "key-1", gotKey)
}

func TestCreateBooking_Handler_CheckoutRedirect(t *testing.T) {
	svc := &mockBookingService{
		createFn: func(ctx context.Context, slug, key string, req dto.CreateBookingRequest) (*service.BookingResult, error) {
			return &service.BookingResult{
				Booking:     &models.Booking{ID: 2, Status: models.StatusPending},
				CheckoutURL: "https://checkout.stripe.com/c/pay/cs_test_2",
			}, nil
		},
	}

	code, out, err := submit(t, svc)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_2", out.CheckoutURL)
	assert.Empty(t, out.Status)
}

func TestCreateBooking_Handler_ReplayIsOK(t *testing.T) {
	svc := &mockBookingService{
		createFn: func(ctx context.Context, slug, key string, req dto.CreateBookingRequest) (*service.BookingResult, error) {
			return &service.BookingResult{Booking: &models.Booking{ID: 1, Status: models.StatusConfirmed}, Replayed: true}, nil
		},
	}

	code, out, err := submit(t, svc)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, dto.OutcomeConfirmed, out.Status)
}

func TestCreateBooking_Handler_Rejections(t *testing.T) {
	tests := []struct {
		err      error
		wantCode int
		wantErr  string
	}{
		{service.ErrSoldOut, http.StatusConflict, dto.ErrorSoldOut},
		{fmt.Errorf("%w: code rejected", service.ErrInvalidAccessCode), http.StatusUnprocessableEntity, dto.ErrorInvalidAccessCode},
		{service.ErrRequestInProgress, http.StatusConflict, "request_in_progress"},
		{service.ErrIdempotencyKeyRequired, http.StatusBadRequest, "idempotency_key_required"},
		{service.ErrPaymentFailed, http.StatusBadGateway, "payment_failed"},
		{fmt.Errorf("%w: Handicap", service.ErrMissingField), http.StatusBadRequest, "missing_field"},
		{service.ErrRegistrationClosed, http.StatusBadRequest, "registration_closed"},
	}

	for _, tt := range tests {
		t.Run(tt.wantErr, func(t *testing.T) {
			svc := &mockBookingService{
				createFn: func(ctx context.Context, slug, key string, req dto.CreateBookingRequest) (*service.BookingResult, error) {
					return nil, tt.err
				},
			}

			code, out, err := submit(t, svc)

			require.NoError(t, err)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantErr, out.Error)
			assert.Equal(t, tt.err.Error(), out.Detail)
			assert.Nil(t, out.Booking)
		})
	}
}

func TestCreateBooking_Handler_EventNotFound(t *testing.T) {
	svc := &mockBookingService{
		createFn: func(ctx context.Context, slug, key string, req dto.CreateBookingRequest) (*service.BookingResult, error) {
			return nil, service.ErrEventNotFound
		},
	}

	_, _, err := submit(t, svc)

	assert.Equal(t, http.StatusNotFound, httpCode(err))
}

func TestCreateBooking_Handler_InternalError(t *testing.T) {
	boom := errors.New("db down")
	svc := &mockBookingService{
		createFn: func(ctx context.Context, slug, key string, req dto.CreateBookingRequest) (*service.BookingResult, error) {
			return nil, boom
		},
	}

	_, _, err := submit(t, svc)

	assert.ErrorIs(t, err, boom)
}

func TestCreateBooking_Handler_BadBody(t *testing.T) {
	c, rec := newContext(http.MethodPost, "/api/v1/events/spring-open/bookings", `{"quantity":"two"`)
	c.SetParamNames("slug")
	c.SetParamValues("spring-open")

	err := NewBookingHandler(&mockBookingService{}, &mockEventService{}).CreateBooking(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var out dto.BookingOutcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "invalid_request", out.Error)
}

func TestCancelBooking_Handler(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		err      error
		wantCode int
	}{
		{"success", "1", nil, http.StatusOK},
		{"invalid id", "abc", nil, http.StatusBadRequest},
		{"not found", "1", service.ErrBookingNotFound, http.StatusNotFound},
		{"already cancelled", "1", service.ErrBookingNotActive, http.StatusConflict},
		{"refund failed", "1", errors.New("stripe: card_declined"), http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockBookingService{
				cancelFn: func(ctx context.Context, bookingID uint) (*models.Booking, error) {
					if tt.err != nil {
						return nil, tt.err
					}
					return &models.Booking{ID: bookingID, Status: models.StatusCancelled}, nil
				},
			}
			c, rec := newContext(http.MethodDelete, "/api/v1/admin/bookings/"+tt.id, "")
			c.SetParamNames("id")
			c.SetParamValues(tt.id)

			err := NewBookingHandler(svc, &mockEventService{}).CancelBooking(c)

			if tt.wantCode == http.StatusOK {
				require.NoError(t, err)
				assert.Equal(t, http.StatusOK, rec.Code)
				var resp dto.BookingResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.Equal(t, models.StatusCancelled, resp.Status)
				return
			}
			assert.Equal(t, tt.wantCode, httpCode(err))
		})
	}
}

func TestGetBooking_Handler(t *testing.T) {
	svc := &mockBookingService{
		getFn: func(ctx context.Context, id uint) (*models.Booking, error) {
			if id == 1 {
				return &models.Booking{ID: 1, Email: "ada@example.com", Status: models.StatusConfirmed}, nil
			}
			return nil, service.ErrBookingNotFound
		},
	}
	h := NewBookingHandler(svc, &mockEventService{})

	c, rec := newContext(http.MethodGet, "/api/v1/admin/bookings/1", "")
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, h.GetBooking(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ada@example.com")

	c, _ = newContext(http.MethodGet, "/api/v1/admin/bookings/9", "")
	c.SetParamNames("id")
	c.SetParamValues("9")
	assert.Equal(t, http.StatusNotFound, httpCode(h.GetBooking(c)))
}

func TestListBookings_Handler_WithStatusFilter(t *testing.T) {
	var gotSlug string
	var gotStatus *models.BookingStatus
	svc := &mockBookingService{
		listFn: func(ctx context.Context, slug string, status *models.BookingStatus) ([]models.Booking, error) {
			gotSlug, gotStatus = slug, status
			return []models.Booking{{ID: 1, Status: models.StatusPending}, {ID: 2, Status: models.StatusPending}}, nil
		},
	}
	c, rec := newContext(http.MethodGet, "/api/v1/admin/events/1/bookings?status=pending", "")
	c.SetParamNames("id")
	c.SetParamValues("1")

	err := NewBookingHandler(svc, &mockEventService{}).ListBookings(c)

	require.NoError(t, err)
	assert.Equal(t, "spring-open", gotSlug)
	require.NotNil(t, gotStatus)
	assert.Equal(t, models.StatusPending, *gotStatus)
	var resp []dto.BookingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp, 2)
}

func TestListBookings_Handler_UnknownEvent(t *testing.T) {
	c, _ := newContext(http.MethodGet, "/api/v1/admin/events/7/bookings", "")
	c.SetParamNames("id")
	c.SetParamValues("7")

	err := NewBookingHandler(&mockBookingService{}, &mockEventService{}).ListBookings(c)

	assert.Equal(t, http.StatusNotFound, httpCode(err))
}
