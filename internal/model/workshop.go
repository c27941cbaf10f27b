package model

import "time"

// Workshop represents an event listing in the `workshops` table.  A
// workshop is owned by the host who created it; the host reference is
// immutable after creation.  Virtual workshops carry a meeting link,
// in-person workshops a street address.  Scheduling lives in the
// related `slots` table.
//
// Fields:
//  ID          – primary key identifier.
//  HostID      – user who created the workshop; never reassigned.
//  Name        – workshop title.
//  Description – free-text description shown on the listing page.
//  Category    – coarse classification used by browse filters.
//  IsVirtual   – whether the workshop is held online.
//  Street      – street address for in-person workshops.
//  MeetingLink – join link for virtual workshops.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Workshop struct {
	ID          uint64    // workshops.id
	HostID      uint64    // workshops.host_id
	Name        string    // workshops.name
	Description string    // workshops.description
	Category    string    // workshops.category
	IsVirtual   bool      // workshops.is_virtual
	Street      string    // workshops.street
	MeetingLink string    // workshops.meeting_link
	CreatedAt   time.Time // workshops.created_at
	UpdatedAt   time.Time // workshops.updated_at
}
