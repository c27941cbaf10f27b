package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/voluntree/voluntree-api/internal/model"
)

// ProfileRepo provides access to the profiles table.  A profile row
// exists only once the user has finished the profile setup flow; the
// lifecycle layer treats a missing or incomplete row as "not eligible
// to book yet" rather than an error.
type ProfileRepo struct {
	db *sql.DB
}

// NewProfileRepo returns a new ProfileRepo bound to the given database.
func NewProfileRepo(db *sql.DB) *ProfileRepo { return &ProfileRepo{db: db} }

// Get returns the profile for a user.  sql.ErrNoRows is returned when
// the user has not created a profile yet.
func (r *ProfileRepo) Get(ctx context.Context, userID uint64) (*model.Profile, error) {
	const q = `SELECT user_id, name, email, COALESCE(avatar_path, '') FROM profiles WHERE user_id = ?`
	var p model.Profile
	err := r.db.QueryRowContext(ctx, q, userID).Scan(&p.UserID, &p.Name, &p.Email, &p.AvatarPath)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Has reports whether the user has a completed profile (a row with a
// non-empty name and contact email).
func (r *ProfileRepo) Has(ctx context.Context, userID uint64) (bool, error) {
	const q = `SELECT COUNT(*) FROM profiles WHERE user_id = ? AND name <> '' AND email <> ''`
	var n int
	if err := r.db.QueryRowContext(ctx, q, userID).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// Upsert creates the profile on first save and updates name/email on
// subsequent saves.  The avatar path is left untouched here; it is
// written separately by SetAvatar after a successful upload.
func (r *ProfileRepo) Upsert(ctx context.Context, userID uint64, name, email string) error {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	const q = `INSERT INTO profiles (user_id, name, email) VALUES (?, ?, ?)
	           ON DUPLICATE KEY UPDATE name = VALUES(name), email = VALUES(email)`
	_, err := r.db.ExecContext(ctx, q, userID, name, email)
	return err
}

// SetAvatar stores the object name of the user's uploaded avatar.
func (r *ProfileRepo) SetAvatar(ctx context.Context, userID uint64, path string) error {
	const q = `UPDATE profiles SET avatar_path = ? WHERE user_id = ?`
	_, err := r.db.ExecContext(ctx, q, path, userID)
	return err
}
