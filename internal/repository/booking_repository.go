package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/voluntree/voluntree-api/internal/model"
)

// BookingRepo provides CRUD operations for bookings.  A booking ties one
// attendee to one slot; the workshop reference is denormalized onto the
// row.  Review fields live on the booking and stay NULL until the
// attendee reviews the session.  All timestamp fields are assumed to be
// stored in UTC.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// ErrBookingNotFound indicates that a booking was not located in the DB.
var ErrBookingNotFound = errors.New("booking not found")

// CreateTx inserts a new booking within the scope of an existing
// transaction.  It populates the generated ID on the provided record and
// returns any error from the database.  The caller must commit or
// rollback the transaction.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	const q = `INSERT INTO bookings (slot_id, workshop_id, user_id) VALUES (?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, b.SlotID, b.WorkshopID, b.UserID)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	// Query back the full row to populate timestamps and defaults
	const sel = `SELECT id, slot_id, workshop_id, user_id, review_rating, review_comment, created_at, updated_at
	             FROM bookings WHERE id = ?`
	var rating sql.NullInt16
	var comment sql.NullString
	err = tx.QueryRowContext(ctx, sel, b.ID).Scan(
		&b.ID, &b.SlotID, &b.WorkshopID, &b.UserID, &rating, &comment, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if rating.Valid {
		v := uint8(rating.Int16)
		b.ReviewRating = &v
	}
	if comment.Valid {
		c := comment.String
		b.ReviewComment = &c
	}
	return nil
}

// AttendeeBooking identifies one booking on a slot together with the
// attendee holding it.
type AttendeeBooking struct {
	BookingID uint64
	UserID    uint64
}

// ListAttendeesBySlotTx returns every booking on the slot with the user
// holding it, within the caller's transaction.  The slot cancellation
// cascade reads it before deleting so it knows who must be notified.
func (r *BookingRepo) ListAttendeesBySlotTx(ctx context.Context, tx *sql.Tx, slotID uint64) ([]AttendeeBooking, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id, user_id FROM bookings WHERE slot_id = ?`, slotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AttendeeBooking
	for rows.Next() {
		var ab AttendeeBooking
		if err := rows.Scan(&ab.BookingID, &ab.UserID); err != nil {
			return nil, err
		}
		out = append(out, ab)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteBySlotTx removes every booking referencing the slot within the
// caller's transaction and returns how many rows were deleted.
func (r *BookingRepo) DeleteBySlotTx(ctx context.Context, tx *sql.Tx, slotID uint64) (int64, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM bookings WHERE slot_id = ?`, slotID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteByWorkshopTx removes every booking on any slot of the workshop
// within the caller's transaction and returns how many rows were
// deleted.
func (r *BookingRepo) DeleteByWorkshopTx(ctx context.Context, tx *sql.Tx, workshopID uint64) (int64, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM bookings WHERE workshop_id = ?`, workshopID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// GetInfoForUserTx returns the booking's slot, the owning workshop and
// the workshop's host within a transaction, validating that the booking
// belongs to the specified user.  It returns ErrBookingNotFound when the
// booking does not exist and ErrForbidden when it belongs to a different
// user.  The attendee cancellation flow uses the returned slot and host
// to address the cancellation notification.
func (r *BookingRepo) GetInfoForUserTx(ctx context.Context, tx *sql.Tx, bookingID, userID uint64) (*model.Slot, *model.Workshop, error) {
	const q = `SELECT b.user_id,
	                  s.id, s.workshop_id, DATE_FORMAT(s.slot_date, '%Y-%m-%d'), s.start_time, s.end_time, s.capacity,
	                  w.id, w.host_id, w.name, w.is_virtual, w.meeting_link
	           FROM bookings b
	           JOIN slots s ON s.id = b.slot_id
	           JOIN workshops w ON w.id = b.workshop_id
	           WHERE b.id = ?`
	var actualUserID uint64
	var s model.Slot
	var w model.Workshop
	err := tx.QueryRowContext(ctx, q, bookingID).Scan(
		&actualUserID,
		&s.ID, &s.WorkshopID, &s.Date, &s.StartTime, &s.EndTime, &s.Capacity,
		&w.ID, &w.HostID, &w.Name, &w.IsVirtual, &w.MeetingLink,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, ErrBookingNotFound
		}
		return nil, nil, err
	}
	if actualUserID != userID {
		return nil, nil, ErrForbidden
	}
	return &s, &w, nil
}

// DeleteTx removes exactly one booking row within the caller's
// transaction.  Sibling bookings on the same slot are untouched.
func (r *BookingRepo) DeleteTx(ctx context.Context, tx *sql.Tx, bookingID uint64) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, bookingID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Review writes rating and comment onto an existing booking owned by the
// given user.  A second review overwrites the first without error; the
// store keeps no history (last write wins).  ErrBookingNotFound and
// ErrForbidden are returned for missing rows and foreign rows
// respectively.
func (r *BookingRepo) Review(ctx context.Context, bookingID, userID uint64, rating uint8, comment string) error {
	var actualUserID uint64
	err := r.db.QueryRowContext(ctx, `SELECT user_id FROM bookings WHERE id = ?`, bookingID).Scan(&actualUserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrBookingNotFound
		}
		return err
	}
	if actualUserID != userID {
		return ErrForbidden
	}
	const q = `UPDATE bookings SET review_rating = ?, review_comment = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	_, err = r.db.ExecContext(ctx, q, rating, comment, bookingID)
	return err
}

// BookingDetail encapsulates a booking along with the related slot and
// workshop information.  It is returned by ListByUser for display on the
// attendee dashboard.
type BookingDetail struct {
	ID            uint64  `json:"id"`
	SlotID        uint64  `json:"slot_id"`
	WorkshopID    uint64  `json:"workshop_id"`
	WorkshopName  string  `json:"workshop_name"`
	Date          string  `json:"date"`
	StartTime     string  `json:"start_time"`
	EndTime       string  `json:"end_time"`
	MeetingLink   string  `json:"meeting_link,omitempty"`
	ReviewRating  *uint8  `json:"review_rating,omitempty"`
	ReviewComment *string `json:"review_comment,omitempty"`
}

// ListByUser returns all bookings for the given user along with slot and
// workshop details, ordered by session date ascending.  When no bookings
// exist, an empty slice is returned.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]BookingDetail, error) {
	const q = `SELECT b.id, b.slot_id, b.workshop_id, w.name, w.meeting_link,
	                  DATE_FORMAT(s.slot_date, '%Y-%m-%d'), s.start_time, s.end_time,
	                  b.review_rating, b.review_comment
	           FROM bookings b
	           JOIN slots s ON s.id = b.slot_id
	           JOIN workshops w ON w.id = b.workshop_id
	           WHERE b.user_id = ?
	           ORDER BY s.slot_date, s.start_time`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	details := make([]BookingDetail, 0)
	for rows.Next() {
		var d BookingDetail
		var rating sql.NullInt16
		var comment sql.NullString
		if err := rows.Scan(
			&d.ID, &d.SlotID, &d.WorkshopID, &d.WorkshopName, &d.MeetingLink,
			&d.Date, &d.StartTime, &d.EndTime,
			&rating, &comment,
		); err != nil {
			return nil, err
		}
		if rating.Valid {
			v := uint8(rating.Int16)
			d.ReviewRating = &v
		}
		if comment.Valid {
			c := comment.String
			d.ReviewComment = &c
		}
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return details, nil
}

// SlotBookingRow is the host's view of one booking on a slot: the
// attendee's identity alongside the review, if any.
type SlotBookingRow struct {
	ID            uint64  `json:"id"`
	UserID        uint64  `json:"user_id"`
	AttendeeName  string  `json:"attendee_name"`
	ReviewRating  *uint8  `json:"review_rating,omitempty"`
	ReviewComment *string `json:"review_comment,omitempty"`
}

// ListBySlotForHost returns all bookings for a slot when accessed by the
// host of the owning workshop.  It verifies that the slot's workshop
// belongs to the caller; otherwise ErrForbidden is returned.
// ErrSlotNotFound is returned when the slot does not exist.
func (r *BookingRepo) ListBySlotForHost(ctx context.Context, slotID, hostID uint64) ([]SlotBookingRow, error) {
	// Verify that the slot's workshop is owned by the caller.
	const checkQ = `SELECT w.host_id
	                FROM slots s
	                JOIN workshops w ON w.id = s.workshop_id
	                WHERE s.id = ?`
	var actualHostID uint64
	if err := r.db.QueryRowContext(ctx, checkQ, slotID).Scan(&actualHostID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}
	if actualHostID != hostID {
		return nil, ErrForbidden
	}
	const q = `SELECT b.id, b.user_id, COALESCE(p.name, ''), b.review_rating, b.review_comment
	           FROM bookings b
	           LEFT JOIN profiles p ON p.user_id = b.user_id
	           WHERE b.slot_id = ?
	           ORDER BY b.created_at`
	rows, err := r.db.QueryContext(ctx, q, slotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]SlotBookingRow, 0)
	for rows.Next() {
		var row SlotBookingRow
		var rating sql.NullInt16
		var comment sql.NullString
		if err := rows.Scan(&row.ID, &row.UserID, &row.AttendeeName, &rating, &comment); err != nil {
			return nil, err
		}
		if rating.Valid {
			v := uint8(rating.Int16)
			row.ReviewRating = &v
		}
		if comment.Valid {
			c := comment.String
			row.ReviewComment = &c
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
