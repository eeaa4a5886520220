package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/fairwaylink/event-booking/internal/dto"
	"github.com/fairwaylink/event-booking/internal/eligibility"
	"github.com/fairwaylink/event-booking/internal/models"
	"github.com/fairwaylink/event-booking/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetCatalog_Handler(t *testing.T) {
	svc := &mockEventService{
		catalogFn: func(ctx context.Context, slug string) (dto.EventCatalog, error) {
			if slug != "spring-open" {
				return dto.EventCatalog{}, service.ErrEventNotFound
			}
			return dto.EventCatalog{
				Event:          dto.EventView{ID: 1, Name: "Spring Open"},
				Gate:           eligibility.GateOpen,
				SpotsRemaining: 3,
			}, nil
		},
	}
	h := NewEventHandler(svc)

	c, rec := newContext(http.MethodGet, "/api/v1/events/spring-open", "")
	c.SetParamNames("slug")
	c.SetParamValues("spring-open")
	require.NoError(t, h.GetCatalog(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	var catalog dto.EventCatalog
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &catalog))
	assert.Equal(t, 3, catalog.SpotsRemaining)
	assert.Equal(t, eligibility.GateOpen, catalog.Gate)

	c, _ = newContext(http.MethodGet, "/api/v1/events/nope", "")
	c.SetParamNames("slug")
	c.SetParamValues("nope")
	assert.Equal(t, http.StatusNotFound, httpCode(h.GetCatalog(c)))
}

func TestCreateEvent_Handler(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		err      error
		wantCode int
	}{
		{"created", `{"name":"Spring Open","slug":"spring-open","total_capacity":5}`, nil, http.StatusCreated},
		{"invalid", `{"name":"Spring Open","slug":"Spring Open"}`, fmt.Errorf("%w: bad slug", service.ErrInvalidEvent), http.StatusBadRequest},
		{"malformed body", `{"name":`, nil, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockEventService{
				createFn: func(ctx context.Context, req dto.CreateEventRequest) (*models.Event, error) {
					if tt.err != nil {
						return nil, tt.err
					}
					return &models.Event{ID: 1, Name: req.Name, Slug: req.Slug, TotalCapacity: req.TotalCapacity}, nil
				},
			}
			c, rec := newContext(http.MethodPost, "/api/v1/admin/events", tt.body)

			err := NewEventHandler(svc).CreateEvent(c)

			if tt.wantCode != http.StatusCreated {
				assert.Equal(t, tt.wantCode, httpCode(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, http.StatusCreated, rec.Code)
			var resp dto.EventResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, "spring-open", resp.Slug)
			assert.Equal(t, 5, resp.TotalCapacity)
		})
	}
}

func TestGetEvent_Handler(t *testing.T) {
	h := NewEventHandler(&mockEventService{})

	c, rec := newContext(http.MethodGet, "/api/v1/admin/events/1", "")
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, h.GetEvent(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Spring Open")

	c, _ = newContext(http.MethodGet, "/api/v1/admin/events/abc", "")
	c.SetParamNames("id")
	c.SetParamValues("abc")
	assert.Equal(t, http.StatusBadRequest, httpCode(h.GetEvent(c)))

	c, _ = newContext(http.MethodGet, "/api/v1/admin/events/9", "")
	c.SetParamNames("id")
	c.SetParamValues("9")
	assert.Equal(t, http.StatusNotFound, httpCode(h.GetEvent(c)))
}

func TestListEvents_Handler(t *testing.T) {
	svc := &mockEventService{
		listFn: func(ctx context.Context) ([]models.Event, error) {
			return []models.Event{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}}, nil
		},
	}
	c, rec := newContext(http.MethodGet, "/api/v1/admin/events", "")

	require.NoError(t, NewEventHandler(svc).ListEvents(c))

	var resp []dto.EventResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp, 2)
}

func TestListEvents_Handler_Error(t *testing.T) {
	boom := errors.New("db down")
	svc := &mockEventService{
		listFn: func(ctx context.Context) ([]models.Event, error) { return nil, boom },
	}
	c, _ := newContext(http.MethodGet, "/api/v1/admin/events", "")

	assert.ErrorIs(t, NewEventHandler(svc).ListEvents(c), boom)
}

func TestUpdateStatus_Handler(t *testing.T) {
	var got models.EventStatus
	svc := &mockEventService{
		statusFn: func(ctx context.Context, id uint, status models.EventStatus) (*models.Event, error) {
			got = status
			if status == "paused" {
				return nil, fmt.Errorf("%w: unknown status", service.ErrInvalidEvent)
			}
			return &models.Event{ID: id, Status: status}, nil
		},
	}
	h := NewEventHandler(svc)

	c, rec := newContext(http.MethodPatch, "/api/v1/admin/events/1/status", `{"status":"closed"}`)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, h.UpdateStatus(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.EventClosed, got)

	c, _ = newContext(http.MethodPatch, "/api/v1/admin/events/1/status", `{"status":"paused"}`)
	c.SetParamNames("id")
	c.SetParamValues("1")
	assert.Equal(t, http.StatusBadRequest, httpCode(h.UpdateStatus(c)))
}

func TestGetCapacity_Handler(t *testing.T) {
	svc := &mockEventService{
		capacityFn: func(ctx context.Context, slug string) (dto.CapacityResponse, error) {
			assert.Equal(t, "spring-open", slug)
			return dto.CapacityResponse{EventID: 1, TotalCapacity: 5, Sold: 5, Gate: string(eligibility.GateWaitlist)}, nil
		},
	}
	c, rec := newContext(http.MethodGet, "/api/v1/admin/events/1/capacity", "")
	c.SetParamNames("id")
	c.SetParamValues("1")

	require.NoError(t, NewEventHandler(svc).GetCapacity(c))

	var resp dto.CapacityResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 5, resp.Sold)
	assert.Equal(t, "waitlist", resp.Gate)
}
