package model

import "time"

// Profile holds a user's public identity as stored in the `profiles`
// table.  A profile is created once, when the user finishes the
// profile setup flow after signup.  Booking is refused (softly) until
// a profile with a name and contact email exists; notification emails
// are addressed using these fields rather than the login email.
//
// Fields:
//  UserID     – primary key, references users.id.
//  Name       – display name shown to hosts and attendees.
//  Email      – contact email used for notifications.
//  AvatarPath – object name of the uploaded avatar, empty when unset.
//  CreatedAt  – timestamp of creation.
//  UpdatedAt  – timestamp of last update.
type Profile struct {
	UserID     uint64    // profiles.user_id
	Name       string    // profiles.name
	Email      string    // profiles.email
	AvatarPath string    // profiles.avatar_path
	CreatedAt  time.Time // profiles.created_at
	UpdatedAt  time.Time // profiles.updated_at
}

// Complete reports whether the profile carries enough identity to
// take part in bookings and receive notifications.
func (p Profile) Complete() bool {
	return p.Name != "" && p.Email != ""
}
