package model

import "time"

// DateLayout is the canonical calendar-day format used for the day
// columns and for every date exchanged over the API.
const DateLayout = "2006-01-02"

// TimeLayout is the wall-clock format of arrival and departure times.
const TimeLayout = "15:04"

// LocationStatus is the work location an employee declares for a day.
type LocationStatus string

const (
	StatusOffice          LocationStatus = "office"
	StatusHomeOffice      LocationStatus = "home_office"
	StatusCorporateTravel LocationStatus = "corporate_travel"
	StatusDayOff          LocationStatus = "day_off"
	StatusVacation        LocationStatus = "vacation"
)

// AllStatuses lists every status in display order.
var AllStatuses = []LocationStatus{
	StatusOffice,
	StatusHomeOffice,
	StatusCorporateTravel,
	StatusDayOff,
	StatusVacation,
}

// Valid reports whether s is one of the known statuses.
func (s LocationStatus) Valid() bool {
	for _, v := range AllStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Location represents one row of the `locations` table: the status a
// user declared for one calendar day.  There is at most one row per
// (UserID, Date).
//
// Fields:
//  ID            – primary key identifier.
//  UserID        – owner of the record.
//  Date          – calendar day, YYYY-MM-DD.
//  Status        – declared location.
//  Notes         – optional sanitized free text (≤200 chars).
//  ArrivalTime   – HH:MM, only set when Status is office.
//  DepartureTime – HH:MM, only set when Status is office.
//  CreatedAt     – creation timestamp.
//  UpdatedAt     – last update timestamp.
type Location struct {
	ID            uint64         `json:"id"`             // locations.id
	UserID        uint64         `json:"user_id"`        // locations.user_id
	Date          string         `json:"date"`           // locations.day
	Status        LocationStatus `json:"status"`         // locations.status
	Notes         *string        `json:"notes"`          // locations.notes (nullable)
	ArrivalTime   *string        `json:"arrival_time"`   // locations.arrival_time (nullable)
	DepartureTime *string        `json:"departure_time"` // locations.departure_time (nullable)
	CreatedAt     time.Time      `json:"created_at"`     // locations.created_at
	UpdatedAt     time.Time      `json:"updated_at"`     // locations.updated_at
}
