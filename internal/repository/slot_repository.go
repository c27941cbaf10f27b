// Package repository contains data access logic for slot operations. A Slot
// is a single bookable time window of a workshop with finite capacity.
// Availability is never stored: it is derived at read time as capacity
// minus the number of booking rows referencing the slot.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/voluntree/voluntree-api/internal/model"
)

// ErrSlotNotFound indicates that a slot was not located in the DB.
var ErrSlotNotFound = errors.New("slot not found")

// SlotRepo manages persistence for slots.
type SlotRepo struct {
	db *sql.DB
}

// NewSlotRepo constructs a SlotRepo with the given DB handle.
func NewSlotRepo(db *sql.DB) *SlotRepo {
	return &SlotRepo{db: db}
}

// DB exposes the underlying sql.DB.  It allows callers to begin
// transactions spanning multiple repositories.  Use this method to
// obtain a *sql.DB when you need fine-grained transaction control.
func (r *SlotRepo) DB() *sql.DB { return r.db }

const slotColumns = `id, workshop_id, DATE_FORMAT(slot_date, '%Y-%m-%d'), start_time, end_time, capacity, created_at, updated_at`

func scanSlot(row interface{ Scan(...any) error }, s *model.Slot) error {
	return row.Scan(&s.ID, &s.WorkshopID, &s.Date, &s.StartTime, &s.EndTime, &s.Capacity, &s.CreatedAt, &s.UpdatedAt)
}

// Create inserts a new slot and assigns the generated ID back to the
// struct.  The caller must provide workshop_id, date, start/end time and
// capacity.  A follow-up SELECT populates the timestamp fields.
func (r *SlotRepo) Create(ctx context.Context, s *model.Slot) error {
	const q = `INSERT INTO slots (workshop_id, slot_date, start_time, end_time, capacity) VALUES (?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, s.WorkshopID, s.Date, s.StartTime, s.EndTime, s.Capacity)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	const sel = `SELECT ` + slotColumns + ` FROM slots WHERE id = ?`
	return scanSlot(r.db.QueryRowContext(ctx, sel, s.ID), s)
}

// GetByID retrieves a slot by its ID.  It returns ErrSlotNotFound if
// there is no matching row.
func (r *SlotRepo) GetByID(ctx context.Context, id uint64) (*model.Slot, error) {
	const q = `SELECT ` + slotColumns + ` FROM slots WHERE id = ?`
	var s model.Slot
	if err := scanSlot(r.db.QueryRowContext(ctx, q, id), &s); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}
	return &s, nil
}

// ListByWorkshop returns all slots of a workshop ordered by date and
// start time.  When no slots exist, an empty slice is returned.
func (r *SlotRepo) ListByWorkshop(ctx context.Context, workshopID uint64) ([]*model.Slot, error) {
	const q = `SELECT ` + slotColumns + ` FROM slots WHERE workshop_id = ? ORDER BY slot_date, start_time`
	rows, err := r.db.QueryContext(ctx, q, workshopID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*model.Slot, 0)
	for rows.Next() {
		s := new(model.Slot)
		if err := scanSlot(rows, s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListByWorkshopTx is ListByWorkshop within the caller's transaction.
// The workshop deletion cascade reads the doomed slots through it so the
// attendees to notify are collected from the same snapshot the deletes
// run in.
func (r *SlotRepo) ListByWorkshopTx(ctx context.Context, tx *sql.Tx, workshopID uint64) ([]*model.Slot, error) {
	const q = `SELECT ` + slotColumns + ` FROM slots WHERE workshop_id = ? ORDER BY slot_date, start_time`
	rows, err := tx.QueryContext(ctx, q, workshopID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*model.Slot, 0)
	for rows.Next() {
		s := new(model.Slot)
		if err := scanSlot(rows, s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteByWorkshopTx removes every slot of a workshop within the
// caller's transaction and reports how many were removed.  Booking rows
// must be removed by the caller beforehand.
func (r *SlotRepo) DeleteByWorkshopTx(ctx context.Context, tx *sql.Tx, workshopID uint64) (int64, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM slots WHERE workshop_id = ?`, workshopID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// BookedCounts returns the number of bookings per slot for one workshop.
// The browse endpoint subtracts these from capacity to display available
// spaces; nothing is reserved by reading them.
func (r *SlotRepo) BookedCounts(ctx context.Context, workshopID uint64) (map[uint64]uint32, error) {
	const q = `SELECT slot_id, COUNT(*) FROM bookings WHERE workshop_id = ? GROUP BY slot_id`
	rows, err := r.db.QueryContext(ctx, q, workshopID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make(map[uint64]uint32)
	for rows.Next() {
		var slotID uint64
		var n uint32
		if err := rows.Scan(&slotID, &n); err != nil {
			return nil, err
		}
		counts[slotID] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}

// GetForHostTx loads a slot and the owning workshop's host within a
// transaction.  It returns ErrSlotNotFound when the slot does not exist
// and ErrForbidden when the workshop belongs to a different host.  The
// slot cancellation flow uses it to validate ownership before the
// cascade.
func (r *SlotRepo) GetForHostTx(ctx context.Context, tx *sql.Tx, slotID, hostID uint64) (*model.Slot, error) {
	const q = `SELECT s.id, s.workshop_id, DATE_FORMAT(s.slot_date, '%Y-%m-%d'), s.start_time, s.end_time, s.capacity,
	                  s.created_at, s.updated_at, w.host_id
	           FROM slots s
	           JOIN workshops w ON w.id = s.workshop_id
	           WHERE s.id = ?`
	var s model.Slot
	var dbHostID uint64
	err := tx.QueryRowContext(ctx, q, slotID).Scan(
		&s.ID, &s.WorkshopID, &s.Date, &s.StartTime, &s.EndTime, &s.Capacity,
		&s.CreatedAt, &s.UpdatedAt, &dbHostID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}
	if dbHostID != hostID {
		return nil, ErrForbidden
	}
	return &s, nil
}

// CountBookingsTx returns the live booking count for a slot inside the
// caller's transaction.  Only the capacity-enforcement extension reads
// it; the default policy never checks.
func (r *SlotRepo) CountBookingsTx(ctx context.Context, tx *sql.Tx, slotID uint64) (uint32, error) {
	var n uint32
	err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings WHERE slot_id = ?`, slotID).Scan(&n)
	return n, err
}

// DeleteTx removes a slot row within the caller's transaction.  Booking
// rows referencing the slot must be removed by the caller beforehand.
func (r *SlotRepo) DeleteTx(ctx context.Context, tx *sql.Tx, slotID uint64) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM slots WHERE id = ?`, slotID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
