package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/fairwaylink/event-booking/internal/dto"
)

const HeaderIdempotencyKey = "Idempotency-Key"

// HTTPBackend talks to the booking API.
type HTTPBackend struct {
	baseURL string
	client  *http.Client
}

func NewHTTPBackend(baseURL string, client *http.Client) *HTTPBackend {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPBackend{baseURL: baseURL, client: client}
}

func (b *HTTPBackend) LoadEvent(ctx context.Context, slug string) (dto.EventCatalog, error) {
	var catalog dto.EventCatalog

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.eventURL(slug, ""), nil)
	if err != nil {
		return catalog, fmt.Errorf("creating request: %w", err)
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return catalog, fmt.Errorf("loading event %q: %w", slug, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return catalog, fmt.Errorf("loading event %q: unexpected status %d", slug, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&catalog); err != nil {
		return catalog, fmt.Errorf("decoding event %q: %w", slug, err)
	}
	return catalog, nil
}

func (b *HTTPBackend) SubmitBooking(ctx context.Context, slug, idempotencyKey string, body dto.CreateBookingRequest) (dto.BookingOutcome, error) {
	return b.post(ctx, b.eventURL(slug, "/bookings"), idempotencyKey, body)
}

func (b *HTTPBackend) JoinWaitlist(ctx context.Context, slug string, body dto.JoinWaitlistRequest) (dto.BookingOutcome, error) {
	return b.post(ctx, b.eventURL(slug, "/waitlist"), "", body)
}

// post returns a transport error unless the reply carries a structured outcome,
// whatever its status code.
func (b *HTTPBackend) post(ctx context.Context, target, idempotencyKey string, body any) (dto.BookingOutcome, error) {
	var outcome dto.BookingOutcome

	payload, err := json.Marshal(body)
	if err != nil {
		return outcome, fmt.Errorf("encoding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return outcome, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		req.Header.Set(HeaderIdempotencyKey, idempotencyKey)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return outcome, fmt.Errorf("posting %s: %w", target, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return outcome, fmt.Errorf("reading response: %w", err)
	}
	if err := json.Unmarshal(raw, &outcome); err != nil || outcome == (dto.BookingOutcome{}) {
		return dto.BookingOutcome{}, fmt.Errorf("posting %s: unexpected status %d", target, resp.StatusCode)
	}
	return outcome, nil
}

func (b *HTTPBackend) eventURL(slug, suffix string) string {
	return b.baseURL + "/api/v1/events/" + url.PathEscape(slug) + suffix
}
