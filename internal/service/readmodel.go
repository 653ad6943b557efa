package service

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/iliyamo/team-presence/internal/model"
)

// EffectiveStatus resolves a user's status on day.  An explicit record
// wins; otherwise weekends default to day_off and weekdays are unset
// (empty status).  explicit reports whether a record exists.
func EffectiveStatus(locs map[string]model.Location, day string) (status model.LocationStatus, explicit bool) {
	if loc, ok := locs[day]; ok {
		return loc.Status, true
	}
	if IsWeekend(day) {
		return model.StatusDayOff, false
	}
	return "", false
}

// Snapshot summarises one day across a population.
type Snapshot struct {
	Date   string                                   `json:"date"`
	Counts map[model.LocationStatus]int             `json:"counts"`
	Roster map[model.LocationStatus][]model.Profile `json:"roster"`
	Unset  []model.Profile                          `json:"unset"`
}

// DailySnapshot counts users per effective status on day and lists who
// is in each bucket.
func DailySnapshot(day string, users []UserLocations) Snapshot {
	s := Snapshot{
		Date:   day,
		Counts: make(map[model.LocationStatus]int, len(model.AllStatuses)),
		Roster: make(map[model.LocationStatus][]model.Profile, len(model.AllStatuses)),
		Unset:  []model.Profile{},
	}
	for _, st := range model.AllStatuses {
		s.Counts[st] = 0
		s.Roster[st] = []model.Profile{}
	}
	for _, u := range users {
		st, _ := EffectiveStatus(u.Locations, day)
		if st == "" {
			s.Unset = append(s.Unset, u.Profile)
			continue
		}
		s.Counts[st]++
		s.Roster[st] = append(s.Roster[st], u.Profile)
	}
	return s
}

// Cell is one (user, day) entry of a calendar grid.
type Cell struct {
	Date          string               `json:"date"`
	Status        model.LocationStatus `json:"status,omitempty"`
	Explicit      bool                 `json:"explicit"`
	Weekend       bool                 `json:"weekend"`
	Notes         *string              `json:"notes,omitempty"`
	ArrivalTime   *string              `json:"arrival_time,omitempty"`
	DepartureTime *string              `json:"departure_time,omitempty"`
	TimeLabel     string               `json:"time_label,omitempty"`
	Checkin       model.CheckinStatus  `json:"checkin"`
	CheckinID     uint64               `json:"checkin_id,omitempty"`
	ValidatedBy   *uint64              `json:"validated_by,omitempty"`
	CanEdit       bool                 `json:"can_edit"`
	CanCheckIn    bool                 `json:"can_check_in"`
	CanValidate   bool                 `json:"can_validate"`
}

// Row is one user's line of a grid.
type Row struct {
	model.Profile
	Cells []Cell `json:"cells"`
}

// Grid is the weekly or monthly calendar matrix.
type Grid struct {
	From string   `json:"from"`
	To   string   `json:"to"`
	Days []string `json:"days"`
	Rows []Row    `json:"rows"`
}

// GridInput carries everything BuildGrid needs.  Users are rendered in
// the order given.
type GridInput struct {
	Users    []UserLocations
	Days     []string
	Checkins CheckinSet
	Viewer   Actor
	Policy   Policy
	Today    string
}

// BuildGrid projects users over days, merging location records with
// check-in state and the viewer's affordances.
func BuildGrid(in GridInput) Grid {
	g := Grid{Days: in.Days, Rows: make([]Row, 0, len(in.Users))}
	if len(in.Days) > 0 {
		g.From, g.To = in.Days[0], in.Days[len(in.Days)-1]
	}
	for _, u := range in.Users {
		row := Row{Profile: u.Profile, Cells: make([]Cell, 0, len(in.Days))}
		for _, day := range in.Days {
			st, explicit := EffectiveStatus(u.Locations, day)
			cell := Cell{Date: day, Status: st, Explicit: explicit, Weekend: IsWeekend(day)}
			if explicit {
				loc := u.Locations[day]
				cell.Notes = loc.Notes
				cell.ArrivalTime = loc.ArrivalTime
				cell.DepartureTime = loc.DepartureTime
				cell.TimeLabel = TimeLabel(loc.ArrivalTime, loc.DepartureTime)
			}
			cst, rec := in.Checkins.StatusFor(u.ID, day)
			cell.Checkin = cst
			if rec != nil {
				cell.CheckinID = rec.ID
				cell.ValidatedBy = rec.ValidatedBy
			}
			cell.CanEdit = CanEdit(in.Viewer, u.ID, day, in.Today)
			cell.CanCheckIn = in.Viewer.ID == u.ID && day == in.Today && cst == model.CheckinNone
			cell.CanValidate = in.Checkins.ShowValidate(in.Policy, in.Viewer, u.ID, day)
			row.Cells = append(row.Cells, cell)
		}
		g.Rows = append(g.Rows, row)
	}
	return g
}

// TimeLabel renders office hours as "HH:MM - HH:MM", or the single
// known bound.
func TimeLabel(arrival, departure *string) string {
	switch {
	case arrival != nil && departure != nil:
		return *arrival + " - " + *departure
	case arrival != nil:
		return *arrival
	case departure != nil:
		return "- " + *departure
	}
	return ""
}

// nameCollator orders display names the way the team reads them.
// collate.Collator is not safe for concurrent use, so each sort builds
// its own.
func nameCollator() *collate.Collator {
	return collate.New(language.BrazilianPortuguese, collate.IgnoreCase)
}

// SortWeekly puts the viewer first and orders everyone else by name.
func SortWeekly(users []UserLocations, viewerID uint64) {
	c := nameCollator()
	sort.SliceStable(users, func(i, j int) bool {
		a, b := users[i], users[j]
		if (a.ID == viewerID) != (b.ID == viewerID) {
			return a.ID == viewerID
		}
		return nameLess(c, a.Profile, b.Profile)
	})
}

// SortGrouped orders users by resource group (head, lead, equipe) and
// by name within a group.
func SortGrouped(users []UserLocations) {
	c := nameCollator()
	sort.SliceStable(users, func(i, j int) bool {
		a, b := users[i], users[j]
		if ra, rb := groupRank(a.ResourceGroup), groupRank(b.ResourceGroup); ra != rb {
			return ra < rb
		}
		return nameLess(c, a.Profile, b.Profile)
	})
}

func nameLess(c *collate.Collator, a, b model.Profile) bool {
	if r := c.CompareString(a.FullName, b.FullName); r != 0 {
		return r < 0
	}
	return a.ID < b.ID
}

func groupRank(g model.ResourceGroup) int {
	for i, v := range model.GroupOrder {
		if v == g {
			return i
		}
	}
	return len(model.GroupOrder)
}

// OfficeEntry is a user declared in the office on a given day.
type OfficeEntry struct {
	model.Profile
	ArrivalTime   *string             `json:"arrival_time"`
	DepartureTime *string             `json:"departure_time"`
	Checkin       model.CheckinStatus `json:"checkin"`
	CheckinID     uint64              `json:"checkin_id,omitempty"`
	ValidatedBy   *uint64             `json:"validated_by,omitempty"`
}

// OfficeToday lists users whose explicit status on day is office,
// validated check-ins first, then pending, then none.
func OfficeToday(day string, users []UserLocations, checkins CheckinSet) []OfficeEntry {
	out := []OfficeEntry{}
	for _, u := range users {
		loc, ok := u.Locations[day]
		if !ok || loc.Status != model.StatusOffice {
			continue
		}
		st, rec := checkins.StatusFor(u.ID, day)
		e := OfficeEntry{Profile: u.Profile, ArrivalTime: loc.ArrivalTime, DepartureTime: loc.DepartureTime, Checkin: st}
		if rec != nil {
			e.CheckinID = rec.ID
			e.ValidatedBy = rec.ValidatedBy
		}
		out = append(out, e)
	}
	c := nameCollator()
	sort.SliceStable(out, func(i, j int) bool {
		if ri, rj := checkinRank(out[i].Checkin), checkinRank(out[j].Checkin); ri != rj {
			return ri < rj
		}
		return nameLess(c, out[i].Profile, out[j].Profile)
	})
	return out
}

func checkinRank(s model.CheckinStatus) int {
	switch s {
	case model.CheckinValidated:
		return 0
	case model.CheckinPending:
		return 1
	}
	return 2
}

// UserStats are one user's explicit record counts for a month.
type UserStats struct {
	model.Profile
	Counts map[model.LocationStatus]int `json:"counts"`
	Total  int                          `json:"total"`
}

// Report is the monthly per-user summary.  Totals and Total sum the
// per-user counts across the team.
type Report struct {
	Month       string                       `json:"month"`
	From        string                       `json:"from"`
	To          string                       `json:"to"`
	WorkingDays int                          `json:"working_days"`
	Users       []UserStats                  `json:"users"`
	Totals      map[model.LocationStatus]int `json:"totals"`
	Total       int                          `json:"total"`
}

// MonthlyReport counts explicit records per status for each user in
// month (YYYY-MM).  Weekend defaults are not counted.
func MonthlyReport(month string, users []UserLocations) (Report, error) {
	from, to, err := ParseMonth(month)
	if err != nil {
		return Report{}, err
	}
	days, err := Days(from, to)
	if err != nil {
		return Report{}, err
	}
	r := Report{
		Month:  month,
		From:   from,
		To:     to,
		Users:  make([]UserStats, 0, len(users)),
		Totals: make(map[model.LocationStatus]int, len(model.AllStatuses)),
	}
	for _, st := range model.AllStatuses {
		r.Totals[st] = 0
	}
	for _, d := range days {
		if !IsWeekend(d) {
			r.WorkingDays++
		}
	}
	for _, u := range users {
		us := UserStats{Profile: u.Profile, Counts: make(map[model.LocationStatus]int, len(model.AllStatuses))}
		for _, st := range model.AllStatuses {
			us.Counts[st] = 0
		}
		for day, loc := range u.Locations {
			if day < from || day > to {
				continue
			}
			us.Counts[loc.Status]++
			us.Total++
			r.Totals[loc.Status]++
			r.Total++
		}
		r.Users = append(r.Users, us)
	}
	c := nameCollator()
	sort.SliceStable(r.Users, func(i, j int) bool { return nameLess(c, r.Users[i].Profile, r.Users[j].Profile) })
	return r, nil
}
