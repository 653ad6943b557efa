package repository

import (
	"database/sql"
	"time"
)

// Timestamps are stored as UTC epoch milliseconds in both dialects.
func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullTime(ni sql.NullInt64) *time.Time {
	if !ni.Valid {
		return nil
	}
	t := fromMillis(ni.Int64)
	return &t
}

func nullID(ni sql.NullInt64) *uint64 {
	if !ni.Valid {
		return nil
	}
	id := uint64(ni.Int64)
	return &id
}

// stringOrNil turns an optional string into a driver argument.
func stringOrNil(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
