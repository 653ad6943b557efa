package service

import "testing"

func TestWeekRange(t *testing.T) {
	t.Parallel()

	cases := []struct {
		today    string
		offset   int
		from, to string
	}{
		{"2025-06-10", 0, "2025-06-09", "2025-06-15"},
		{"2025-06-09", 0, "2025-06-09", "2025-06-15"},
		{"2025-06-15", 0, "2025-06-09", "2025-06-15"},
		{"2025-06-10", 1, "2025-06-16", "2025-06-22"},
		{"2025-06-10", -2, "2025-05-26", "2025-06-01"},
	}
	for _, tc := range cases {
		from, to, err := WeekRange(tc.today, tc.offset)
		if err != nil {
			t.Fatalf("WeekRange(%s, %d): %v", tc.today, tc.offset, err)
		}
		if from != tc.from || to != tc.to {
			t.Fatalf("WeekRange(%s, %d) = %s..%s, want %s..%s", tc.today, tc.offset, from, to, tc.from, tc.to)
		}
	}
}

func TestMonthRange(t *testing.T) {
	t.Parallel()

	cases := []struct {
		today    string
		offset   int
		from, to string
	}{
		{"2025-06-10", 0, "2025-06-01", "2025-06-30"},
		{"2025-01-31", 1, "2025-02-01", "2025-02-28"},
		{"2024-02-10", 0, "2024-02-01", "2024-02-29"},
		{"2025-01-15", -1, "2024-12-01", "2024-12-31"},
	}
	for _, tc := range cases {
		from, to, err := MonthRange(tc.today, tc.offset)
		if err != nil {
			t.Fatalf("MonthRange(%s, %d): %v", tc.today, tc.offset, err)
		}
		if from != tc.from || to != tc.to {
			t.Fatalf("MonthRange(%s, %d) = %s..%s, want %s..%s", tc.today, tc.offset, from, to, tc.from, tc.to)
		}
	}
}

func TestIsWeekend(t *testing.T) {
	t.Parallel()

	if !IsWeekend("2025-06-14") || !IsWeekend("2025-06-15") {
		t.Fatal("expected Saturday and Sunday to be weekend")
	}
	if IsWeekend("2025-06-16") {
		t.Fatal("Monday reported as weekend")
	}
	if IsWeekend("not-a-day") {
		t.Fatal("bad input reported as weekend")
	}
}

func TestValidateRange(t *testing.T) {
	t.Parallel()

	if err := ValidateRange("2025-06-01", "2025-06-30"); err != nil {
		t.Fatalf("month range: %v", err)
	}
	wantCode(t, ValidateRange("2025-06-30", "2025-06-01"), "validation")
	wantCode(t, ValidateRange("2025-01-01", "2025-12-31"), "validation")
	wantCode(t, ValidateRange("2025-06-01", "2025/06/30"), "validation")
}

func TestParseMonth(t *testing.T) {
	t.Parallel()

	from, to, err := ParseMonth("2025-02")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if from != "2025-02-01" || to != "2025-02-28" {
		t.Fatalf("range = %s..%s", from, to)
	}
	_, _, err = ParseMonth("2025-13")
	wantCode(t, err, "validation")
}
