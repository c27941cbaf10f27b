package lifecycle

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	q "github.com/voluntree/voluntree-api/internal/queue"
	"github.com/voluntree/voluntree-api/internal/repository"
)

// fakePublisher records published events instead of touching a broker.
type fakePublisher struct {
	created   []q.WorkshopCreatedEvent
	confirmed []q.BookingConfirmedEvent
	cancelled []q.BookingCancelledEvent
}

func (p *fakePublisher) WorkshopCreated(_ context.Context, e q.WorkshopCreatedEvent) {
	p.created = append(p.created, e)
}
func (p *fakePublisher) BookingConfirmed(_ context.Context, e q.BookingConfirmedEvent) {
	p.confirmed = append(p.confirmed, e)
}
func (p *fakePublisher) BookingCancelled(_ context.Context, e q.BookingCancelledEvent) {
	p.cancelled = append(p.cancelled, e)
}

// Fixed clock for every test; slots dated 2026-03-01 are upcoming,
// slots dated 2026-01-01 are over.
var testNow = time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

func newTestManager(t *testing.T, enforceCapacity bool) (*Manager, sqlmock.Sqlmock, *fakePublisher) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	pub := &fakePublisher{}
	m := New(db,
		repository.NewProfileRepo(db),
		repository.NewWorkshopRepo(db),
		repository.NewSlotRepo(db),
		repository.NewBookingRepo(db),
		pub,
		enforceCapacity,
	)
	m.now = func() time.Time { return testNow }
	return m, mock, pub
}

// Query fragments shared across expectations.
var (
	hasProfileQ   = regexp.QuoteMeta(`SELECT COUNT(*) FROM profiles WHERE user_id = ? AND name <> '' AND email <> ''`)
	getProfileQ   = regexp.QuoteMeta(`SELECT user_id, name, email, COALESCE(avatar_path, '') FROM profiles WHERE user_id = ?`)
	slotByIDQ     = regexp.QuoteMeta(`SELECT id, workshop_id, DATE_FORMAT(slot_date, '%Y-%m-%d'), start_time, end_time, capacity, created_at, updated_at FROM slots WHERE id = ?`)
	slotForHostQ  = regexp.QuoteMeta(`SELECT s.id, s.workshop_id, DATE_FORMAT(s.slot_date, '%Y-%m-%d'), s.start_time, s.end_time, s.capacity,`)
	workshopByIDQ = regexp.QuoteMeta(`SELECT id, host_id, name, description, category, is_virtual, street, meeting_link, created_at, updated_at`)
	insertBookQ   = regexp.QuoteMeta(`INSERT INTO bookings (slot_id, workshop_id, user_id) VALUES (?, ?, ?)`)
	bookBackQ     = regexp.QuoteMeta(`SELECT id, slot_id, workshop_id, user_id, review_rating, review_comment, created_at, updated_at`)
	attendeesQ    = regexp.QuoteMeta(`SELECT id, user_id FROM bookings WHERE slot_id = ?`)
	bookingInfoQ  = regexp.QuoteMeta(`SELECT b.user_id,`)
	countSlotQ    = regexp.QuoteMeta(`SELECT COUNT(*) FROM bookings WHERE slot_id = ?`)
	reviewOwnerQ  = regexp.QuoteMeta(`SELECT user_id FROM bookings WHERE id = ?`)
	reviewWriteQ  = regexp.QuoteMeta(`UPDATE bookings SET review_rating = ?, review_comment = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`)
)

const (
	slotID     = uint64(5)
	workshopID = uint64(2)
	hostID     = uint64(7)
	attendeeID = uint64(3)
)

func slotRows(capacity uint32) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "workshop_id", "date", "start_time", "end_time", "capacity", "created_at", "updated_at"}).
		AddRow(slotID, workshopID, "2026-03-01", "10:00:00", "12:00:00", capacity, testNow, testNow)
}

func workshopRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "host_id", "name", "description", "category", "is_virtual", "street", "meeting_link", "created_at", "updated_at"}).
		AddRow(workshopID, hostID, "Intro to Beekeeping", "hands on", "nature", true, "", "https://meet.example/bees", testNow, testNow)
}

func profileRow(userID uint64, name, email string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"user_id", "name", "email", "avatar_path"}).
		AddRow(userID, name, email, "")
}

// expectPartyResolution covers the post-commit event enrichment: the
// workshop plus both profiles.
func expectPartyResolution(mock sqlmock.Sqlmock, userID uint64) {
	mock.ExpectQuery(workshopByIDQ).WithArgs(workshopID).WillReturnRows(workshopRows())
	mock.ExpectQuery(getProfileQ).WithArgs(hostID).WillReturnRows(profileRow(hostID, "Hanna Host", "hanna@example.com"))
	mock.ExpectQuery(getProfileQ).WithArgs(userID).WillReturnRows(profileRow(userID, "Alex Attendee", "alex@example.com"))
}

// expectSuccessfulBooking covers one full BookSlot happy path.
func expectSuccessfulBooking(mock sqlmock.Sqlmock, bookingID int64, capacity uint32) {
	mock.ExpectQuery(hasProfileQ).WithArgs(attendeeID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(slotByIDQ).WithArgs(slotID).WillReturnRows(slotRows(capacity))
	mock.ExpectBegin()
	mock.ExpectExec(insertBookQ).WithArgs(slotID, workshopID, attendeeID).
		WillReturnResult(sqlmock.NewResult(bookingID, 1))
	mock.ExpectQuery(bookBackQ).WithArgs(uint64(bookingID)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "slot_id", "workshop_id", "user_id", "review_rating", "review_comment", "created_at", "updated_at"}).
			AddRow(bookingID, slotID, workshopID, attendeeID, nil, nil, testNow, testNow))
	mock.ExpectCommit()
	expectPartyResolution(mock, attendeeID)
}

func TestBookSlotIncompleteProfileSoftFails(t *testing.T) {
	m, mock, pub := newTestManager(t, false)

	mock.ExpectQuery(hasProfileQ).WithArgs(attendeeID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	booking, profileOK, err := m.BookSlot(context.Background(), workshopID, slotID, attendeeID)
	require.NoError(t, err)
	require.False(t, profileOK)
	require.Nil(t, booking)
	require.Empty(t, pub.confirmed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBookSlotPublishesOneConfirmation(t *testing.T) {
	m, mock, pub := newTestManager(t, false)
	expectSuccessfulBooking(mock, 10, 8)

	booking, profileOK, err := m.BookSlot(context.Background(), workshopID, slotID, attendeeID)
	require.NoError(t, err)
	require.True(t, profileOK)
	require.Equal(t, uint64(10), booking.ID)

	require.Len(t, pub.confirmed, 1)
	ev := pub.confirmed[0]
	require.Equal(t, uint64(10), ev.BookingID)
	require.Equal(t, "Intro to Beekeeping", ev.WorkshopName)
	require.Equal(t, "2026-03-01", ev.Date)
	require.Equal(t, "https://meet.example/bees", ev.JoinLink)
	require.Equal(t, q.Party{Name: "Hanna Host", Email: "hanna@example.com"}, ev.Host)
	require.Equal(t, q.Party{Name: "Alex Attendee", Email: "alex@example.com"}, ev.Attendee)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBookSlotRejectsPastSlot(t *testing.T) {
	m, mock, pub := newTestManager(t, false)

	mock.ExpectQuery(hasProfileQ).WithArgs(attendeeID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	past := sqlmock.NewRows([]string{"id", "workshop_id", "date", "start_time", "end_time", "capacity", "created_at", "updated_at"}).
		AddRow(slotID, workshopID, "2026-01-01", "10:00:00", "12:00:00", 8, testNow, testNow)
	mock.ExpectQuery(slotByIDQ).WithArgs(slotID).WillReturnRows(past)

	_, profileOK, err := m.BookSlot(context.Background(), workshopID, slotID, attendeeID)
	require.ErrorIs(t, err, ErrSlotInPast)
	require.True(t, profileOK)
	require.Empty(t, pub.confirmed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBookSlotRejectsForeignWorkshop(t *testing.T) {
	m, mock, _ := newTestManager(t, false)

	mock.ExpectQuery(hasProfileQ).WithArgs(attendeeID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(slotByIDQ).WithArgs(slotID).WillReturnRows(slotRows(8))

	_, _, err := m.BookSlot(context.Background(), uint64(99), slotID, attendeeID)
	require.ErrorIs(t, err, repository.ErrSlotNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

// With enforcement disabled two bookings against capacity 1 both
// succeed; availability is display-only.
func TestBookSlotOverbookingAllowedByDefault(t *testing.T) {
	m, mock, pub := newTestManager(t, false)

	expectSuccessfulBooking(mock, 10, 1)
	expectSuccessfulBooking(mock, 11, 1)

	for range 2 {
		_, profileOK, err := m.BookSlot(context.Background(), workshopID, slotID, attendeeID)
		require.NoError(t, err)
		require.True(t, profileOK)
	}
	require.Len(t, pub.confirmed, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBookSlotCapacityEnforced(t *testing.T) {
	m, mock, pub := newTestManager(t, true)

	mock.ExpectQuery(hasProfileQ).WithArgs(attendeeID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(slotByIDQ).WithArgs(slotID).WillReturnRows(slotRows(1))
	mock.ExpectBegin()
	mock.ExpectQuery(countSlotQ).WithArgs(slotID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	_, _, err := m.BookSlot(context.Background(), workshopID, slotID, attendeeID)
	require.ErrorIs(t, err, repository.ErrConflict)
	require.Empty(t, pub.confirmed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelSlotCascadesAndNotifiesEachAttendee(t *testing.T) {
	m, mock, pub := newTestManager(t, false)

	mock.ExpectBegin()
	mock.ExpectQuery(slotForHostQ).WithArgs(slotID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "workshop_id", "date", "start_time", "end_time", "capacity", "created_at", "updated_at", "host_id"}).
			AddRow(slotID, workshopID, "2026-03-01", "10:00:00", "12:00:00", 8, testNow, testNow, hostID))
	mock.ExpectQuery(attendeesQ).WithArgs(slotID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id"}).
			AddRow(101, 31).
			AddRow(102, 32))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM bookings WHERE slot_id = ?`)).WithArgs(slotID).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM slots WHERE id = ?`)).WithArgs(slotID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	expectPartyResolution(mock, 31)
	expectPartyResolution(mock, 32)

	require.NoError(t, m.CancelSlot(context.Background(), slotID, hostID))

	require.Len(t, pub.cancelled, 2)
	require.Equal(t, uint64(101), pub.cancelled[0].BookingID)
	require.Equal(t, uint64(102), pub.cancelled[1].BookingID)
	for _, ev := range pub.cancelled {
		require.Equal(t, q.TriggerHost, ev.TriggeredBy)
	}
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelSlotForbiddenForOtherHost(t *testing.T) {
	m, mock, pub := newTestManager(t, false)

	mock.ExpectBegin()
	mock.ExpectQuery(slotForHostQ).WithArgs(slotID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "workshop_id", "date", "start_time", "end_time", "capacity", "created_at", "updated_at", "host_id"}).
			AddRow(slotID, workshopID, "2026-03-01", "10:00:00", "12:00:00", 8, testNow, testNow, hostID))
	mock.ExpectRollback()

	err := m.CancelSlot(context.Background(), slotID, uint64(4444))
	require.ErrorIs(t, err, repository.ErrForbidden)
	require.Empty(t, pub.cancelled)
	require.NoError(t, mock.ExpectationsWereMet())
}

// Deleting a whole workshop behaves like cancelling each of its slots:
// every booking disappears and every attendee gets a host-triggered
// cancellation event.
func TestDeleteWorkshopCascadesAndNotifiesEachAttendee(t *testing.T) {
	m, mock, pub := newTestManager(t, false)

	slotListQ := regexp.QuoteMeta(`FROM slots WHERE workshop_id = ? ORDER BY slot_date, start_time`)

	mock.ExpectBegin()
	mock.ExpectQuery(workshopByIDQ).WithArgs(workshopID).WillReturnRows(workshopRows())
	mock.ExpectQuery(slotListQ).WithArgs(workshopID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "workshop_id", "date", "start_time", "end_time", "capacity", "created_at", "updated_at"}).
			AddRow(slotID, workshopID, "2026-03-01", "10:00:00", "12:00:00", 8, testNow, testNow).
			AddRow(slotID+1, workshopID, "2026-03-08", "10:00:00", "12:00:00", 8, testNow, testNow))
	mock.ExpectQuery(attendeesQ).WithArgs(slotID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id"}).AddRow(101, 31))
	mock.ExpectQuery(attendeesQ).WithArgs(slotID + 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id"}).AddRow(102, 32))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM bookings WHERE workshop_id = ?`)).WithArgs(workshopID).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM slots WHERE workshop_id = ?`)).WithArgs(workshopID).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM workshops WHERE id = ?`)).WithArgs(workshopID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	// The workshop record was captured before the delete; only the
	// profiles are resolved per event.
	mock.ExpectQuery(getProfileQ).WithArgs(hostID).WillReturnRows(profileRow(hostID, "Hanna Host", "hanna@example.com"))
	mock.ExpectQuery(getProfileQ).WithArgs(uint64(31)).WillReturnRows(profileRow(31, "Alex Attendee", "alex@example.com"))
	mock.ExpectQuery(getProfileQ).WithArgs(hostID).WillReturnRows(profileRow(hostID, "Hanna Host", "hanna@example.com"))
	mock.ExpectQuery(getProfileQ).WithArgs(uint64(32)).WillReturnRows(profileRow(32, "Bea Attendee", "bea@example.com"))

	require.NoError(t, m.DeleteWorkshop(context.Background(), workshopID, hostID))

	require.Len(t, pub.cancelled, 2)
	require.Equal(t, uint64(101), pub.cancelled[0].BookingID)
	require.Equal(t, uint64(102), pub.cancelled[1].BookingID)
	for _, ev := range pub.cancelled {
		require.Equal(t, q.TriggerHost, ev.TriggeredBy)
		require.Equal(t, "Intro to Beekeeping", ev.WorkshopName)
	}
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteWorkshopForbiddenForOtherHost(t *testing.T) {
	m, mock, pub := newTestManager(t, false)

	mock.ExpectBegin()
	mock.ExpectQuery(workshopByIDQ).WithArgs(workshopID).WillReturnRows(workshopRows())
	mock.ExpectRollback()

	err := m.DeleteWorkshop(context.Background(), workshopID, uint64(4444))
	require.ErrorIs(t, err, repository.ErrForbidden)
	require.Empty(t, pub.cancelled)
	require.NoError(t, mock.ExpectationsWereMet())
}

func bookingInfoRows(ownerID uint64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"user_id",
		"s_id", "s_workshop_id", "date", "start_time", "end_time", "capacity",
		"w_id", "w_host_id", "w_name", "w_is_virtual", "w_meeting_link",
	}).AddRow(
		ownerID,
		slotID, workshopID, "2026-01-01", "10:00:00", "12:00:00", 8,
		workshopID, hostID, "Intro to Beekeeping", true, "https://meet.example/bees",
	)
}

func TestCancelBookingRemovesOnlyTargetBooking(t *testing.T) {
	m, mock, pub := newTestManager(t, false)
	bookingID := uint64(42)

	mock.ExpectBegin()
	mock.ExpectQuery(bookingInfoQ).WithArgs(bookingID).WillReturnRows(bookingInfoRows(attendeeID))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM bookings WHERE id = ?`)).WithArgs(bookingID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	expectPartyResolution(mock, attendeeID)

	require.NoError(t, m.CancelBooking(context.Background(), bookingID, attendeeID, q.TriggerAttendee))

	require.Len(t, pub.cancelled, 1)
	require.Equal(t, bookingID, pub.cancelled[0].BookingID)
	require.Equal(t, q.TriggerAttendee, pub.cancelled[0].TriggeredBy)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelBookingForbiddenForOtherUser(t *testing.T) {
	m, mock, pub := newTestManager(t, false)
	bookingID := uint64(42)

	mock.ExpectBegin()
	mock.ExpectQuery(bookingInfoQ).WithArgs(bookingID).WillReturnRows(bookingInfoRows(attendeeID))
	mock.ExpectRollback()

	err := m.CancelBooking(context.Background(), bookingID, uint64(4444), q.TriggerAttendee)
	require.ErrorIs(t, err, repository.ErrForbidden)
	require.Empty(t, pub.cancelled)
	require.NoError(t, mock.ExpectationsWereMet())
}

func expectReview(mock sqlmock.Sqlmock, bookingID uint64, rating uint8, comment string) {
	mock.ExpectBegin()
	mock.ExpectQuery(bookingInfoQ).WithArgs(bookingID).WillReturnRows(bookingInfoRows(attendeeID))
	mock.ExpectRollback()
	mock.ExpectQuery(reviewOwnerQ).WithArgs(bookingID).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(attendeeID))
	mock.ExpectExec(reviewWriteQ).WithArgs(rating, comment, bookingID).
		WillReturnResult(sqlmock.NewResult(0, 1))
}

// A second review silently replaces the first; the store keeps no history.
func TestReviewBookingLastWriteWins(t *testing.T) {
	m, mock, _ := newTestManager(t, false)
	bookingID := uint64(42)

	expectReview(mock, bookingID, 5, "great")
	expectReview(mock, bookingID, 2, "on reflection, mediocre")

	require.NoError(t, m.ReviewBooking(context.Background(), bookingID, attendeeID, 5, "great"))
	require.NoError(t, m.ReviewBooking(context.Background(), bookingID, attendeeID, 2, "on reflection, mediocre"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewBookingRejectsUpcomingSession(t *testing.T) {
	m, mock, _ := newTestManager(t, false)
	bookingID := uint64(42)

	upcoming := sqlmock.NewRows([]string{
		"user_id",
		"s_id", "s_workshop_id", "date", "start_time", "end_time", "capacity",
		"w_id", "w_host_id", "w_name", "w_is_virtual", "w_meeting_link",
	}).AddRow(
		attendeeID,
		slotID, workshopID, "2026-03-01", "10:00:00", "12:00:00", 8,
		workshopID, hostID, "Intro to Beekeeping", true, "https://meet.example/bees",
	)
	mock.ExpectBegin()
	mock.ExpectQuery(bookingInfoQ).WithArgs(bookingID).WillReturnRows(upcoming)
	mock.ExpectRollback()

	err := m.ReviewBooking(context.Background(), bookingID, attendeeID, 4, "early bird")
	require.ErrorIs(t, err, ErrSlotNotEnded)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewBookingRejectsInvalidRating(t *testing.T) {
	m, _, _ := newTestManager(t, false)

	require.ErrorIs(t, m.ReviewBooking(context.Background(), 42, attendeeID, 0, ""), ErrInvalidRating)
	require.ErrorIs(t, m.ReviewBooking(context.Background(), 42, attendeeID, 6, ""), ErrInvalidRating)
}

// Events are dropped, without error, when a party has no complete profile.
func TestBookSlotSkipsEventWhenHostProfileMissing(t *testing.T) {
	m, mock, pub := newTestManager(t, false)

	mock.ExpectQuery(hasProfileQ).WithArgs(attendeeID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(slotByIDQ).WithArgs(slotID).WillReturnRows(slotRows(8))
	mock.ExpectBegin()
	mock.ExpectExec(insertBookQ).WithArgs(slotID, workshopID, attendeeID).
		WillReturnResult(sqlmock.NewResult(10, 1))
	mock.ExpectQuery(bookBackQ).WithArgs(uint64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "slot_id", "workshop_id", "user_id", "review_rating", "review_comment", "created_at", "updated_at"}).
			AddRow(10, slotID, workshopID, attendeeID, nil, nil, testNow, testNow))
	mock.ExpectCommit()
	mock.ExpectQuery(workshopByIDQ).WithArgs(workshopID).WillReturnRows(workshopRows())
	mock.ExpectQuery(getProfileQ).WithArgs(hostID).
		WillReturnRows(profileRow(hostID, "", "")) // incomplete host profile
	mock.ExpectQuery(getProfileQ).WithArgs(attendeeID).
		WillReturnRows(profileRow(attendeeID, "Alex Attendee", "alex@example.com"))

	booking, profileOK, err := m.BookSlot(context.Background(), workshopID, slotID, attendeeID)
	require.NoError(t, err)
	require.True(t, profileOK)
	require.NotNil(t, booking)
	require.Empty(t, pub.confirmed) // booking committed, event skipped
	require.NoError(t, mock.ExpectationsWereMet())
}
