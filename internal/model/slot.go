package model

import "time"

// Slot is a single bookable time window of a workshop, stored in the
// `slots` table.  The date and clock times are kept in the string
// forms the database returns ("2006-01-02" and "15:04:05") because
// that is how the original data is keyed; StartsAt combines them when
// an instant is needed.
//
// Fields:
//  ID         – primary key identifier.
//  WorkshopID – workshop this slot belongs to.
//  Date       – calendar day of the session ("2006-01-02").
//  StartTime  – session start clock time ("15:04:05").
//  EndTime    – session end clock time ("15:04:05").
//  Capacity   – maximum number of bookings; never negative.
//  CreatedAt  – creation timestamp.
//  UpdatedAt  – last update timestamp.
type Slot struct {
	ID         uint64    // slots.id
	WorkshopID uint64    // slots.workshop_id
	Date       string    // slots.slot_date
	StartTime  string    // slots.start_time
	EndTime    string    // slots.end_time
	Capacity   uint32    // slots.capacity
	CreatedAt  time.Time // slots.created_at
	UpdatedAt  time.Time // slots.updated_at
}

// StartsAt resolves the slot's starting instant in UTC.  The zero
// time is returned when the stored date or time is malformed.
func (s Slot) StartsAt() time.Time {
	t, err := time.Parse("2006-01-02 15:04:05", s.Date+" "+s.StartTime)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
