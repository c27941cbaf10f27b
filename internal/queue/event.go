// Package queue defines message payloads exchanged over the message broker.
package queue

// Trigger tags a cancellation with the party that initiated it.  The
// notification gateway uses it to select wording: the cancelling party
// gets an acknowledgement, the other party an alert.
type Trigger string

const (
	TriggerHost     Trigger = "HOST"
	TriggerAttendee Trigger = "ATTENDEE"
)

// Party carries the name and contact email of one side of a booking.
// Events embed resolved profile data so the consumer can build gateway
// payloads without querying the primary database.
type Party struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// WorkshopCreatedEvent is published when a host creates a workshop.  The
// consumer forwards it to the gateway's workshop creation confirmation
// endpoint.
type WorkshopCreatedEvent struct {
	WorkshopID   uint64 `json:"workshop_id"`
	WorkshopName string `json:"workshop_name"`
	Host         Party  `json:"host"`
	CreatedAt    string `json:"created_at"`
}

// BookingConfirmedEvent is published when a booking is successfully
// created.  It contains enough information for downstream consumers to
// notify both parties without querying the primary database.
type BookingConfirmedEvent struct {
	BookingID    uint64 `json:"booking_id"`
	WorkshopID   uint64 `json:"workshop_id"`
	WorkshopName string `json:"workshop_name"`
	SlotID       uint64 `json:"slot_id"`
	Date         string `json:"date"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	JoinLink     string `json:"join_link"`
	Host         Party  `json:"host"`
	Attendee     Party  `json:"attendee"`
	ConfirmedAt  string `json:"confirmed_at"`
}

// BookingCancelledEvent is published once per affected attendee when a
// booking is cancelled, either by the attendee directly or as part of a
// host cancelling the whole slot.  TriggeredBy records which party acted.
type BookingCancelledEvent struct {
	BookingID    uint64  `json:"booking_id"`
	WorkshopID   uint64  `json:"workshop_id"`
	WorkshopName string  `json:"workshop_name"`
	SlotID       uint64  `json:"slot_id"`
	Date         string  `json:"date"`
	StartTime    string  `json:"start_time"`
	EndTime      string  `json:"end_time"`
	Host         Party   `json:"host"`
	Attendee     Party   `json:"attendee"`
	TriggeredBy  Trigger `json:"triggered_by"`
	CancelledAt  string  `json:"cancelled_at"`
}
