// Package notifier implements the HTTP client for the external email
// gateway.  The gateway exposes three endpoints, one per event kind;
// each accepts a JSON payload naming the parties and the event fields
// and returns no body this service consumes.  Calls are one-way: the
// caller only learns whether the POST itself succeeded.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/voluntree/voluntree-api/internal/queue"
	"github.com/voluntree/voluntree-api/internal/utils"
)

// Client posts notification payloads to the gateway.  It never retries;
// the consumer that drives it logs failures and drops the message, so a
// booking can succeed while its email never arrives.
type Client struct {
	creationURL     string
	confirmationURL string
	cancellationURL string
	http            *http.Client
}

// New builds a Client for the given gateway base URL.  An empty base
// URL is a configuration error surfaced at startup rather than on the
// first booking.
func New(baseURL string) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("notifier: gateway base URL cannot be empty")
	}
	return &Client{
		creationURL:     baseURL + "/workshopCreationConfirmation",
		confirmationURL: baseURL + "/bookingConfirmation",
		cancellationURL: baseURL + "/bookingCancellation",
		http:            &http.Client{Timeout: 10 * time.Second},
	}, nil
}

type partyPayload struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	DidCancel *bool  `json:"didCancel,omitempty"`
}

// SendWorkshopCreationConfirmation notifies the host that their workshop
// listing is live.
func (c *Client) SendWorkshopCreationConfirmation(ctx context.Context, ev queue.WorkshopCreatedEvent) error {
	body := map[string]any{
		"host": partyPayload{Name: ev.Host.Name, Email: ev.Host.Email},
		"event": map[string]any{
			"name": ev.WorkshopName,
		},
	}
	return c.post(ctx, c.creationURL, body)
}

// SendBookingConfirmation notifies both host and attendee of a new
// booking, carrying the session date/time and the join link.
func (c *Client) SendBookingConfirmation(ctx context.Context, ev queue.BookingConfirmedEvent) error {
	body := map[string]any{
		"host": partyPayload{Name: ev.Host.Name, Email: ev.Host.Email},
		"user": partyPayload{Name: ev.Attendee.Name, Email: ev.Attendee.Email},
		"event": map[string]any{
			"date":      utils.DateToReadable(ev.Date),
			"time":      ev.StartTime,
			"join_link": ev.JoinLink,
		},
	}
	return c.post(ctx, c.confirmationURL, body)
}

// SendBookingCancellation notifies both parties of a cancellation.  The
// didCancel flags tell the gateway which side acted so it can word each
// email accordingly.
func (c *Client) SendBookingCancellation(ctx context.Context, ev queue.BookingCancelledEvent) error {
	hostCancelled := ev.TriggeredBy == queue.TriggerHost
	attendeeCancelled := ev.TriggeredBy == queue.TriggerAttendee
	body := map[string]any{
		"host": partyPayload{Name: ev.Host.Name, Email: ev.Host.Email, DidCancel: &hostCancelled},
		"user": partyPayload{Name: ev.Attendee.Name, Email: ev.Attendee.Email, DidCancel: &attendeeCancelled},
		"event": map[string]any{
			"date": utils.DateToReadable(ev.Date),
			"time": ev.StartTime,
		},
	}
	return c.post(ctx, c.cancellationURL, body)
}

func (c *Client) post(ctx context.Context, url string, body any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Voluntree-Auth", "*")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("notifier: gateway returned %d for %s", resp.StatusCode, url)
	}
	return nil
}
