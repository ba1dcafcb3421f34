// Package notify pushes booking lifecycle events to the clinic's operator
// channel over an outbound webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/clinivo/booking-api/internal/booking"
	"github.com/clinivo/booking-api/internal/decision"
	"github.com/clinivo/booking-api/pkg/logging"
)

const defaultTimeout = 3 * time.Second

// Event is the webhook payload envelope.
type Event struct {
	Type    string                  `json:"type"`
	Booking *booking.BookingRequest `json:"booking"`
	Links   *decision.Links         `json:"links,omitempty"`
	SentAt  time.Time               `json:"sentAt"`
}

// Event types.
const (
	EventBookingCreated = "booking.created"
	EventBookingDecided = "booking.decided"
)

// WebhookNotifier delivers events best-effort: delivery runs off the request
// goroutine and failures are logged, never surfaced to the caller.
type WebhookNotifier struct {
	url    string
	client *http.Client
	logger *logging.Logger
	now    func() time.Time
}

// NewWebhookNotifier creates a notifier posting to url. An empty url yields
// a disabled notifier that drops every event.
func NewWebhookNotifier(url string, timeout time.Duration, logger *logging.Logger) *WebhookNotifier {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger,
		now:    time.Now,
	}
}

// BookingCreated announces a new booking request and its decision links.
func (n *WebhookNotifier) BookingCreated(b *booking.BookingRequest, links *decision.Links) {
	n.dispatch(Event{Type: EventBookingCreated, Booking: b, Links: links})
}

// BookingDecided announces a confirm, decline or expiry outcome.
func (n *WebhookNotifier) BookingDecided(b *booking.BookingRequest) {
	n.dispatch(Event{Type: EventBookingDecided, Booking: b})
}

func (n *WebhookNotifier) dispatch(evt Event) {
	if n.url == "" {
		return
	}
	evt.SentAt = n.now().UTC()
	go func() {
		if err := n.post(evt); err != nil {
			n.logger.Error("webhook delivery failed",
				"error", err,
				"type", evt.Type,
				"booking_id", evt.Booking.ID,
			)
		}
	}()
}

func (n *WebhookNotifier) post(evt Event) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("notify: marshal: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), n.client.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notify: webhook returned status %d", resp.StatusCode)
	}
	return nil
}

var _ booking.Notifier = (*WebhookNotifier)(nil)
