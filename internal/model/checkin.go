package model

import "time"

// CheckinStatus is the derived state of an office check-in for one
// (user, day) pair.
type CheckinStatus string

const (
	CheckinNone      CheckinStatus = "none"      // no row
	CheckinPending   CheckinStatus = "pending"   // row exists, not validated
	CheckinValidated CheckinStatus = "validated" // validated_at set
)

// OfficeCheckin is a claim of physical office presence stored in the
// `office_checkins` table.  A peer (or an elevated user) validates the
// claim by filling ValidatedBy and ValidatedAt.
//
// Fields:
//  ID          – primary key identifier.
//  UserID      – user who checked in.
//  Date        – calendar day of the claim, YYYY-MM-DD.
//  CheckedInAt – when the claim was made.
//  ValidatedBy – validator user id (nullable).
//  ValidatedAt – validation timestamp (nullable).
type OfficeCheckin struct {
	ID          uint64     `json:"id"`            // office_checkins.id
	UserID      uint64     `json:"user_id"`       // office_checkins.user_id
	Date        string     `json:"date"`          // office_checkins.day
	CheckedInAt time.Time  `json:"checked_in_at"` // office_checkins.checked_in_at
	ValidatedBy *uint64    `json:"validated_by"`  // office_checkins.validated_by (nullable)
	ValidatedAt *time.Time `json:"validated_at"`  // office_checkins.validated_at (nullable)
}

// Status derives the lifecycle state of the row.  A nil receiver is
// treated as a missing row.
func (c *OfficeCheckin) Status() CheckinStatus {
	if c == nil {
		return CheckinNone
	}
	if c.ValidatedAt != nil {
		return CheckinValidated
	}
	return CheckinPending
}
