// Package repository contains data access logic separated from HTTP handlers.
// This file defines repository methods for workshop CRUD and lookup
// operations. A Workshop represents an event listing owned by a host and
// scheduled through one or more slots.
package repository

import (
	"context"      // context allows passing deadlines and cancellation signals to DB operations
	"database/sql" // sql provides generic database operations and drivers
	"errors"       // errors is used to define custom error values

	"github.com/voluntree/voluntree-api/internal/model"
)

// ErrWorkshopNotFound is returned when a workshop cannot be found in the DB.
var ErrWorkshopNotFound = errors.New("workshop not found")

// WorkshopRepo encapsulates all database queries related to workshops.  It
// depends on a sql.DB connection which should be configured elsewhere.
type WorkshopRepo struct {
	db *sql.DB // db is the underlying database connection pool
}

// NewWorkshopRepo constructs a WorkshopRepo with the provided DB handle.
// This allows dependency injection of the database in tests and at startup.
func NewWorkshopRepo(db *sql.DB) *WorkshopRepo {
	return &WorkshopRepo{db: db}
}

// DB exposes the underlying sql.DB.  It allows callers to begin
// transactions spanning multiple repositories.
func (r *WorkshopRepo) DB() *sql.DB { return r.db }

// Create inserts a new workshop into the database.  On success the
// workshop's ID field is populated with the auto-generated value, and a
// follow-up SELECT fills the timestamp fields so callers receive a fully
// populated record.  The host reference is written once here and never
// updated afterwards.
func (r *WorkshopRepo) Create(ctx context.Context, w *model.Workshop) error {
	const qInsert = `INSERT INTO workshops (host_id, name, description, category, is_virtual, street, meeting_link)
	                 VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, qInsert,
		w.HostID, w.Name, w.Description, w.Category, w.IsVirtual, w.Street, w.MeetingLink)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	w.ID = uint64(id)

	const qSelect = `SELECT host_id, name, description, category, is_virtual, street, meeting_link, created_at, updated_at
	                 FROM workshops WHERE id = ?`
	return r.db.QueryRowContext(ctx, qSelect, w.ID).Scan(
		&w.HostID, &w.Name, &w.Description, &w.Category, &w.IsVirtual, &w.Street, &w.MeetingLink,
		&w.CreatedAt, &w.UpdatedAt,
	)
}

// GetByID fetches a workshop by its ID regardless of host.  It returns
// ErrWorkshopNotFound if no row is found.
func (r *WorkshopRepo) GetByID(ctx context.Context, id uint64) (*model.Workshop, error) {
	const q = `SELECT id, host_id, name, description, category, is_virtual, street, meeting_link, created_at, updated_at
	           FROM workshops WHERE id = ?`
	var w model.Workshop
	if err := r.db.QueryRowContext(ctx, q, id).Scan(
		&w.ID, &w.HostID, &w.Name, &w.Description, &w.Category, &w.IsVirtual, &w.Street, &w.MeetingLink,
		&w.CreatedAt, &w.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrWorkshopNotFound
		}
		return nil, err
	}
	return &w, nil
}

// ListByHost returns all workshops for a specific host ordered by id.
func (r *WorkshopRepo) ListByHost(ctx context.Context, hostID uint64) ([]*model.Workshop, error) {
	const q = `SELECT id, host_id, name, description, category, is_virtual, street, meeting_link, created_at, updated_at
	           FROM workshops WHERE host_id = ? ORDER BY id`
	return r.list(ctx, q, hostID)
}

// ListPublic returns workshops for the public browse page.  Empty filter
// values match everything; virtual accepts nil to skip the filter.
func (r *WorkshopRepo) ListPublic(ctx context.Context, category string, virtual *bool) ([]*model.Workshop, error) {
	q := `SELECT id, host_id, name, description, category, is_virtual, street, meeting_link, created_at, updated_at
	      FROM workshops WHERE 1=1`
	args := []any{}
	if category != "" {
		q += " AND category = ?"
		args = append(args, category)
	}
	if virtual != nil {
		q += " AND is_virtual = ?"
		args = append(args, *virtual)
	}
	q += " ORDER BY created_at DESC"
	return r.list(ctx, q, args...)
}

func (r *WorkshopRepo) list(ctx context.Context, q string, args ...any) ([]*model.Workshop, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*model.Workshop, 0)
	for rows.Next() {
		w := new(model.Workshop)
		if err := rows.Scan(
			&w.ID, &w.HostID, &w.Name, &w.Description, &w.Category, &w.IsVirtual, &w.Street, &w.MeetingLink,
			&w.CreatedAt, &w.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Update rewrites the mutable fields of a workshop if it belongs to the
// given host.  The host reference itself is deliberately not part of the
// SET list.  It returns sql.ErrNoRows when the workshop does not exist
// and ErrForbidden when it belongs to a different host.
func (r *WorkshopRepo) Update(ctx context.Context, id, hostID uint64, w *model.Workshop) error {
	var dbHostID uint64
	if err := r.db.QueryRowContext(ctx, `SELECT host_id FROM workshops WHERE id = ?`, id).Scan(&dbHostID); err != nil {
		return err
	}
	if dbHostID != hostID {
		return ErrForbidden
	}
	const q = `UPDATE workshops
	           SET name = ?, description = ?, category = ?, is_virtual = ?, street = ?, meeting_link = ?,
	               updated_at = CURRENT_TIMESTAMP
	           WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q,
		w.Name, w.Description, w.Category, w.IsVirtual, w.Street, w.MeetingLink, id)
	return err
}

// GetForHostTx loads a workshop within the caller's transaction and
// validates ownership.  It returns ErrWorkshopNotFound when the row does
// not exist and ErrForbidden when it belongs to a different host.  The
// deletion cascade reads the full record up front because the row is
// gone by the time the cancellation notifications are built.
func (r *WorkshopRepo) GetForHostTx(ctx context.Context, tx *sql.Tx, id, hostID uint64) (*model.Workshop, error) {
	const q = `SELECT id, host_id, name, description, category, is_virtual, street, meeting_link, created_at, updated_at
	           FROM workshops WHERE id = ?`
	var w model.Workshop
	if err := tx.QueryRowContext(ctx, q, id).Scan(
		&w.ID, &w.HostID, &w.Name, &w.Description, &w.Category, &w.IsVirtual, &w.Street, &w.MeetingLink,
		&w.CreatedAt, &w.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrWorkshopNotFound
		}
		return nil, err
	}
	if w.HostID != hostID {
		return nil, ErrForbidden
	}
	return &w, nil
}

// DeleteTx removes the workshop row within the caller's transaction.
// Dependent slot and booking rows must be removed by the caller first.
func (r *WorkshopRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM workshops WHERE id = ?`, id)
	return err
}
