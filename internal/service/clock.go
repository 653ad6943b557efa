package service

import (
	"time"

	"github.com/iliyamo/team-presence/internal/model"
)

// Clock supplies the current time in the team's timezone.  The zero
// value uses time.Now in UTC.
type Clock struct {
	Now      func() time.Time
	Location *time.Location
}

// NewClock returns a wall clock for loc.
func NewClock(loc *time.Location) Clock {
	return Clock{Now: time.Now, Location: loc}
}

// FixedClock always reports t.  Used by tests and scripted runs.
func FixedClock(t time.Time) Clock {
	return Clock{Now: func() time.Time { return t }, Location: t.Location()}
}

func (c Clock) now() time.Time {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	return now().In(loc)
}

// Today is the current calendar day, YYYY-MM-DD.
func (c Clock) Today() string {
	return c.now().Format(model.DateLayout)
}
