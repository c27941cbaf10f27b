package notifier_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/voluntree/voluntree-api/internal/notifier"
	q "github.com/voluntree/voluntree-api/internal/queue"
)

// capture records the last request the fake gateway received.
type capture struct {
	path   string
	auth   string
	body   map[string]any
	status int
}

func newGateway(t *testing.T, cap *capture) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cap.path = r.URL.Path
		cap.auth = r.Header.Get("X-Voluntree-Auth")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&cap.body))
		status := cap.status
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
	}))
}

func bookingEvent(trigger q.Trigger) q.BookingCancelledEvent {
	return q.BookingCancelledEvent{
		BookingID:    42,
		WorkshopID:   2,
		WorkshopName: "Intro to Beekeeping",
		SlotID:       5,
		Date:         "2026-03-01",
		StartTime:    "10:00:00",
		EndTime:      "12:00:00",
		Host:         q.Party{Name: "Hanna Host", Email: "hanna@example.com"},
		Attendee:     q.Party{Name: "Alex Attendee", Email: "alex@example.com"},
		TriggeredBy:  trigger,
	}
}

func TestNewRequiresBaseURL(t *testing.T) {
	_, err := notifier.New("")
	require.Error(t, err)
}

func TestSendWorkshopCreationConfirmation(t *testing.T) {
	var cap capture
	srv := newGateway(t, &cap)
	defer srv.Close()

	c, err := notifier.New(srv.URL)
	require.NoError(t, err)

	err = c.SendWorkshopCreationConfirmation(context.Background(), q.WorkshopCreatedEvent{
		WorkshopID:   2,
		WorkshopName: "Intro to Beekeeping",
		Host:         q.Party{Name: "Hanna Host", Email: "hanna@example.com"},
	})
	require.NoError(t, err)

	require.Equal(t, "/workshopCreationConfirmation", cap.path)
	require.Equal(t, "*", cap.auth)
	host := cap.body["host"].(map[string]any)
	require.Equal(t, "Hanna Host", host["name"])
	require.Equal(t, "hanna@example.com", host["email"])
	event := cap.body["event"].(map[string]any)
	require.Equal(t, "Intro to Beekeeping", event["name"])
}

func TestSendBookingConfirmationPayload(t *testing.T) {
	var cap capture
	srv := newGateway(t, &cap)
	defer srv.Close()

	c, err := notifier.New(srv.URL)
	require.NoError(t, err)

	err = c.SendBookingConfirmation(context.Background(), q.BookingConfirmedEvent{
		WorkshopName: "Intro to Beekeeping",
		Date:         "2026-03-01",
		StartTime:    "10:00:00",
		JoinLink:     "https://meet.example/bees",
		Host:         q.Party{Name: "Hanna Host", Email: "hanna@example.com"},
		Attendee:     q.Party{Name: "Alex Attendee", Email: "alex@example.com"},
	})
	require.NoError(t, err)

	require.Equal(t, "/bookingConfirmation", cap.path)
	event := cap.body["event"].(map[string]any)
	require.Equal(t, "Sunday, 1 March 2026", event["date"]) // readable form, not ISO
	require.Equal(t, "10:00:00", event["time"])
	require.Equal(t, "https://meet.example/bees", event["join_link"])
	user := cap.body["user"].(map[string]any)
	require.Equal(t, "alex@example.com", user["email"])
	// no didCancel flags on confirmations
	require.NotContains(t, user, "didCancel")
}

func TestSendBookingCancellationFlagsActingParty(t *testing.T) {
	for _, tc := range []struct {
		trigger       q.Trigger
		hostCancelled bool
	}{
		{q.TriggerHost, true},
		{q.TriggerAttendee, false},
	} {
		var cap capture
		srv := newGateway(t, &cap)

		c, err := notifier.New(srv.URL)
		require.NoError(t, err)
		require.NoError(t, c.SendBookingCancellation(context.Background(), bookingEvent(tc.trigger)))
		srv.Close()

		require.Equal(t, "/bookingCancellation", cap.path)
		host := cap.body["host"].(map[string]any)
		user := cap.body["user"].(map[string]any)
		require.Equal(t, tc.hostCancelled, host["didCancel"])
		require.Equal(t, !tc.hostCancelled, user["didCancel"])
	}
}

func TestGatewayErrorSurfacesToCaller(t *testing.T) {
	cap := capture{status: http.StatusBadGateway}
	srv := newGateway(t, &cap)
	defer srv.Close()

	c, err := notifier.New(srv.URL)
	require.NoError(t, err)
	require.Error(t, c.SendBookingCancellation(context.Background(), bookingEvent(q.TriggerHost)))
}
