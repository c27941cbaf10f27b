package model

import "time"

// Booking records an attendee's reservation against one slot, stored
// in the `bookings` table.  The workshop reference is denormalized so
// dashboards can render a booking without joining through slots.
// Review fields are null until the attendee leaves a review after the
// session; writing a review twice overwrites the previous one (last
// write wins).
//
// Fields:
//  ID            – primary key identifier.
//  SlotID        – slot being booked.
//  WorkshopID    – workshop the slot belongs to (denormalized).
//  UserID        – attendee who made the booking.
//  ReviewRating  – 1..5 rating, nil while unreviewed.
//  ReviewComment – free-text review comment, nil while unreviewed.
//  CreatedAt     – creation timestamp.
//  UpdatedAt     – last update timestamp.
type Booking struct {
	ID            uint64    // bookings.id
	SlotID        uint64    // bookings.slot_id
	WorkshopID    uint64    // bookings.workshop_id
	UserID        uint64    // bookings.user_id
	ReviewRating  *uint8    // bookings.review_rating (nullable)
	ReviewComment *string   // bookings.review_comment (nullable)
	CreatedAt     time.Time // bookings.created_at
	UpdatedAt     time.Time // bookings.updated_at
}

// Reviewed reports whether a review has been written onto the booking.
func (b Booking) Reviewed() bool {
	return b.ReviewRating != nil
}
