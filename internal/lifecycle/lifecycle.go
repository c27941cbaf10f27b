// Package lifecycle implements the booking lifecycle: booking a slot,
// cancelling a whole slot as the host, cancelling a single booking as
// the attendee, and reviewing a past session.  Every state change is
// committed to the database first; notification events are published
// afterwards and a publish failure never rolls a change back.
package lifecycle

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/voluntree/voluntree-api/internal/model"
	q "github.com/voluntree/voluntree-api/internal/queue"
	"github.com/voluntree/voluntree-api/internal/repository"
)

var (
	// ErrSlotInPast is returned when an attendee tries to book a slot
	// whose start time has already passed.
	ErrSlotInPast = errors.New("slot has already started")
	// ErrSlotNotEnded is returned when an attendee tries to review a
	// booking before the session has taken place.
	ErrSlotNotEnded = errors.New("session has not taken place yet")
	// ErrInvalidRating is returned for review ratings outside 1..5.
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
)

// Publisher pushes domain events onto the message broker.  Delivery is
// best effort; implementations log failures instead of returning them.
type Publisher interface {
	WorkshopCreated(ctx context.Context, event q.WorkshopCreatedEvent)
	BookingConfirmed(ctx context.Context, event q.BookingConfirmedEvent)
	BookingCancelled(ctx context.Context, event q.BookingCancelledEvent)
}

// Manager coordinates repositories, transactions and event publishing
// for booking operations.  Construct it with New.
type Manager struct {
	db        *sql.DB
	profiles  *repository.ProfileRepo
	workshops *repository.WorkshopRepo
	slots     *repository.SlotRepo
	bookings  *repository.BookingRepo
	pub       Publisher

	// enforceCapacity switches BookSlot from the permissive policy
	// (bookings may exceed capacity; availability is display-only) to
	// rejecting bookings on full slots.
	enforceCapacity bool

	now func() time.Time
}

// New constructs a Manager.  All arguments are required; passing nil
// panics at startup rather than at request time.
func New(db *sql.DB, profiles *repository.ProfileRepo, workshops *repository.WorkshopRepo, slots *repository.SlotRepo, bookings *repository.BookingRepo, pub Publisher, enforceCapacity bool) *Manager {
	if db == nil || profiles == nil || workshops == nil || slots == nil || bookings == nil || pub == nil {
		panic("lifecycle.New: nil dependency")
	}
	return &Manager{
		db:              db,
		profiles:        profiles,
		workshops:       workshops,
		slots:           slots,
		bookings:        bookings,
		pub:             pub,
		enforceCapacity: enforceCapacity,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// BookSlot books the slot for the user.  The second return value
// reports whether the user's profile is complete: when it is false the
// booking was not attempted and the caller should send the user to
// profile setup.  The slot must belong to the given workshop and must
// not have started yet.  Under capacity enforcement a full slot yields
// repository.ErrConflict.
func (m *Manager) BookSlot(ctx context.Context, workshopID, slotID, userID uint64) (*model.Booking, bool, error) {
	ok, err := m.profiles.Has(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	slot, err := m.slots.GetByID(ctx, slotID)
	if err != nil {
		return nil, true, err
	}
	if slot.WorkshopID != workshopID {
		return nil, true, repository.ErrSlotNotFound
	}
	if !slot.StartsAt().After(m.now()) {
		return nil, true, ErrSlotInPast
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, true, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if m.enforceCapacity {
		n, err := m.slots.CountBookingsTx(ctx, tx, slotID)
		if err != nil {
			return nil, true, err
		}
		if n >= slot.Capacity {
			return nil, true, repository.ErrConflict
		}
	}

	booking := &model.Booking{SlotID: slotID, WorkshopID: slot.WorkshopID, UserID: userID}
	if err := m.bookings.CreateTx(ctx, tx, booking); err != nil {
		return nil, true, err
	}
	if err := tx.Commit(); err != nil {
		return nil, true, err
	}
	committed = true

	m.publishConfirmed(ctx, booking.ID, slot, userID)
	return booking, true, nil
}

// CancelSlot deletes the slot and every booking on it on behalf of the
// owning host, then notifies each affected attendee.  It returns
// repository.ErrSlotNotFound or repository.ErrForbidden when the slot
// is missing or owned by someone else.
func (m *Manager) CancelSlot(ctx context.Context, slotID, hostID uint64) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	slot, err := m.slots.GetForHostTx(ctx, tx, slotID, hostID)
	if err != nil {
		return err
	}
	affected, err := m.bookings.ListAttendeesBySlotTx(ctx, tx, slotID)
	if err != nil {
		return err
	}
	if _, err := m.bookings.DeleteBySlotTx(ctx, tx, slotID); err != nil {
		return err
	}
	if err := m.slots.DeleteTx(ctx, tx, slotID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true

	for _, ab := range affected {
		m.publishCancelled(ctx, ab.BookingID, slot, ab.UserID, q.TriggerHost)
	}
	return nil
}

// DeleteWorkshop removes the listing with all of its slots and bookings
// on behalf of the owning host, then notifies every attendee whose
// booking disappeared, exactly as if each slot had been cancelled
// one by one.  It returns repository.ErrWorkshopNotFound or
// repository.ErrForbidden when the workshop is missing or owned by
// someone else.
func (m *Manager) DeleteWorkshop(ctx context.Context, workshopID, hostID uint64) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	w, err := m.workshops.GetForHostTx(ctx, tx, workshopID, hostID)
	if err != nil {
		return err
	}

	// Collect the attendees to notify per slot before anything is
	// removed.
	slots, err := m.slots.ListByWorkshopTx(ctx, tx, workshopID)
	if err != nil {
		return err
	}
	type doomed struct {
		slot    *model.Slot
		booking repository.AttendeeBooking
	}
	var affected []doomed
	for _, slot := range slots {
		list, err := m.bookings.ListAttendeesBySlotTx(ctx, tx, slot.ID)
		if err != nil {
			return err
		}
		for _, ab := range list {
			affected = append(affected, doomed{slot: slot, booking: ab})
		}
	}

	if _, err := m.bookings.DeleteByWorkshopTx(ctx, tx, workshopID); err != nil {
		return err
	}
	if _, err := m.slots.DeleteByWorkshopTx(ctx, tx, workshopID); err != nil {
		return err
	}
	if err := m.workshops.DeleteTx(ctx, tx, workshopID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true

	for _, d := range affected {
		m.publishCancelledFor(ctx, d.booking.BookingID, d.slot, w, d.booking.UserID, q.TriggerHost)
	}
	return nil
}

// CancelBooking deletes the user's own booking and notifies both
// parties.  Other bookings on the same slot are untouched.  The
// trigger records on whose behalf the cancellation happened and is
// carried into the event unchanged.
func (m *Manager) CancelBooking(ctx context.Context, bookingID, userID uint64, trigger q.Trigger) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	slot, _, err := m.bookings.GetInfoForUserTx(ctx, tx, bookingID, userID)
	if err != nil {
		return err
	}
	if err := m.bookings.DeleteTx(ctx, tx, bookingID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true

	m.publishCancelled(ctx, bookingID, slot, userID, trigger)
	return nil
}

// ReviewBooking stores a rating and comment on the user's booking.  The
// session must already be over; a repeat review replaces the previous
// one.
func (m *Manager) ReviewBooking(ctx context.Context, bookingID, userID uint64, rating uint8, comment string) error {
	if rating < 1 || rating > 5 {
		return ErrInvalidRating
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	slot, _, err := m.bookings.GetInfoForUserTx(ctx, tx, bookingID, userID)
	_ = tx.Rollback() // read-only lookup
	if err != nil {
		return err
	}
	if slot.StartsAt().After(m.now()) {
		return ErrSlotNotEnded
	}
	return m.bookings.Review(ctx, bookingID, userID, rating, comment)
}

// AnnounceWorkshop publishes the creation event for a freshly created
// workshop.  It is called by the handler after the insert committed.
func (m *Manager) AnnounceWorkshop(ctx context.Context, w *model.Workshop) {
	host, ok := m.party(ctx, w.HostID)
	if !ok {
		log.Printf("lifecycle: skipping workshop.created for workshop %d: host %d has no complete profile", w.ID, w.HostID)
		return
	}
	m.pub.WorkshopCreated(ctx, q.WorkshopCreatedEvent{
		WorkshopID:   w.ID,
		WorkshopName: w.Name,
		Host:         host,
		CreatedAt:    m.now().Format(time.RFC3339),
	})
}

// publishConfirmed resolves both parties and publishes the booking
// confirmation.  Missing profile data drops the event with a log line;
// the booking itself is already committed.
func (m *Manager) publishConfirmed(ctx context.Context, bookingID uint64, slot *model.Slot, userID uint64) {
	w, err := m.workshops.GetByID(ctx, slot.WorkshopID)
	if err != nil {
		log.Printf("lifecycle: skipping booking.confirmed for booking %d: %v", bookingID, err)
		return
	}
	host, hostOK := m.party(ctx, w.HostID)
	attendee, attOK := m.party(ctx, userID)
	if !hostOK || !attOK {
		log.Printf("lifecycle: skipping booking.confirmed for booking %d: incomplete party profile", bookingID)
		return
	}
	m.pub.BookingConfirmed(ctx, q.BookingConfirmedEvent{
		BookingID:    bookingID,
		WorkshopID:   w.ID,
		WorkshopName: w.Name,
		SlotID:       slot.ID,
		Date:         slot.Date,
		StartTime:    slot.StartTime,
		EndTime:      slot.EndTime,
		JoinLink:     w.MeetingLink,
		Host:         host,
		Attendee:     attendee,
		ConfirmedAt:  m.now().Format(time.RFC3339),
	})
}

// publishCancelled resolves both parties and publishes one cancellation
// event for the given (former) booking.
func (m *Manager) publishCancelled(ctx context.Context, bookingID uint64, slot *model.Slot, userID uint64, trigger q.Trigger) {
	w, err := m.workshops.GetByID(ctx, slot.WorkshopID)
	if err != nil {
		log.Printf("lifecycle: skipping booking.cancelled for booking %d: %v", bookingID, err)
		return
	}
	m.publishCancelledFor(ctx, bookingID, slot, w, userID, trigger)
}

// publishCancelledFor is publishCancelled with the workshop already in
// hand.  The workshop deletion flow uses it because the row no longer
// exists once the events go out.
func (m *Manager) publishCancelledFor(ctx context.Context, bookingID uint64, slot *model.Slot, w *model.Workshop, userID uint64, trigger q.Trigger) {
	host, hostOK := m.party(ctx, w.HostID)
	attendee, attOK := m.party(ctx, userID)
	if !hostOK || !attOK {
		log.Printf("lifecycle: skipping booking.cancelled for booking %d: incomplete party profile", bookingID)
		return
	}
	m.pub.BookingCancelled(ctx, q.BookingCancelledEvent{
		BookingID:    bookingID,
		WorkshopID:   w.ID,
		WorkshopName: w.Name,
		SlotID:       slot.ID,
		Date:         slot.Date,
		StartTime:    slot.StartTime,
		EndTime:      slot.EndTime,
		Host:         host,
		Attendee:     attendee,
		TriggeredBy:  trigger,
		CancelledAt:  m.now().Format(time.RFC3339),
	})
}

// party loads the user's profile and reports whether it is complete
// enough to address a notification.
func (m *Manager) party(ctx context.Context, userID uint64) (q.Party, bool) {
	p, err := m.profiles.Get(ctx, userID)
	if err != nil || !p.Complete() {
		return q.Party{}, false
	}
	return q.Party{Name: p.Name, Email: p.Email}, true
}
