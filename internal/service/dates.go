package service

import (
	"time"

	"github.com/iliyamo/team-presence/internal/model"
)

// maxRangeDays bounds the ranges served by list endpoints.
const maxRangeDays = 62

func parseDay(s string) (time.Time, error) {
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		return time.Time{}, validationf("invalid date %q, want YYYY-MM-DD", s)
	}
	return t, nil
}

// ValidateDay checks that s is a calendar day in YYYY-MM-DD form.
func ValidateDay(s string) error {
	_, err := parseDay(s)
	return err
}

// IsWeekend reports whether day falls on a Saturday or Sunday.  Bad
// input is treated as a weekday.
func IsWeekend(day string) bool {
	t, err := parseDay(day)
	if err != nil {
		return false
	}
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// WeekRange returns Monday and Sunday of the week containing today,
// shifted by offset weeks.
func WeekRange(today string, offset int) (from, to string, err error) {
	t, err := parseDay(today)
	if err != nil {
		return "", "", err
	}
	back := (int(t.Weekday()) + 6) % 7
	monday := t.AddDate(0, 0, -back+7*offset)
	return monday.Format(model.DateLayout), monday.AddDate(0, 0, 6).Format(model.DateLayout), nil
}

// MonthRange returns the first and last day of the month containing
// today, shifted by offset months.
func MonthRange(today string, offset int) (from, to string, err error) {
	t, err := parseDay(today)
	if err != nil {
		return "", "", err
	}
	first := time.Date(t.Year(), t.Month()+time.Month(offset), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return first.Format(model.DateLayout), last.Format(model.DateLayout), nil
}

// ParseMonth returns the first and last day of a YYYY-MM month.
func ParseMonth(month string) (from, to string, err error) {
	t, perr := time.Parse("2006-01", month)
	if perr != nil {
		return "", "", validationf("invalid month %q, want YYYY-MM", month)
	}
	return MonthRange(t.Format(model.DateLayout), 0)
}

// Days lists every day from..to inclusive.
func Days(from, to string) ([]string, error) {
	start, err := parseDay(from)
	if err != nil {
		return nil, err
	}
	end, err := parseDay(to)
	if err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, validationf("range end %s is before start %s", to, from)
	}
	var out []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		out = append(out, d.Format(model.DateLayout))
	}
	return out, nil
}

// ValidateRange checks a list range: both ends valid, ordered, and not
// wider than maxRangeDays.
func ValidateRange(from, to string) error {
	days, err := Days(from, to)
	if err != nil {
		return err
	}
	if len(days) > maxRangeDays {
		return validationf("range spans %d days, at most %d allowed", len(days), maxRangeDays)
	}
	return nil
}
