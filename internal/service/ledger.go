package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/team-presence/internal/model"
	"github.com/iliyamo/team-presence/internal/queue"
)

// LocationStore persists daily location records keyed by (user, day).
type LocationStore interface {
	Upsert(ctx context.Context, loc *model.Location) (created bool, err error)
	DeleteByUserAndDate(ctx context.Context, userID uint64, day string) (bool, error)
	ListRange(ctx context.Context, from, to string) ([]model.Location, error)
}

// ProfileStore lists the users visible on team views.
type ProfileStore interface {
	ListActiveProfiles(ctx context.Context) ([]model.Profile, error)
}

// UserLocations is a profile with its explicit records keyed by day.
type UserLocations struct {
	model.Profile
	Locations map[string]model.Location `json:"locations"`
}

// StatusInput is the payload of a status change.
type StatusInput struct {
	Status        model.LocationStatus
	Notes         *string
	ArrivalTime   *string
	DepartureTime *string
}

// Ledger owns the single daily status record of each user.
type Ledger struct {
	store    LocationStore
	profiles ProfileStore
	notifier Notifier
}

// NewLedger wires a Ledger.  notifier may be nil.
func NewLedger(store LocationStore, profiles ProfileStore, notifier Notifier) *Ledger {
	return &Ledger{store: store, profiles: profiles, notifier: notifier}
}

// SetStatus validates in and upserts the record for (userID, day).
// Arrival and departure are kept only for office days.
func (l *Ledger) SetStatus(ctx context.Context, userID uint64, day string, in StatusInput) (model.Location, error) {
	if err := ValidateDay(day); err != nil {
		return model.Location{}, err
	}
	if !in.Status.Valid() {
		return model.Location{}, validationf("unknown status %q", in.Status)
	}
	notes, err := SanitizeNotes(in.Notes)
	if err != nil {
		return model.Location{}, err
	}
	loc := model.Location{UserID: userID, Date: day, Status: in.Status, Notes: notes}
	if in.Status == model.StatusOffice {
		loc.ArrivalTime, loc.DepartureTime, err = officeHours(in.ArrivalTime, in.DepartureTime)
		if err != nil {
			return model.Location{}, err
		}
	}

	created, err := l.store.Upsert(ctx, &loc)
	if err != nil {
		return model.Location{}, persistence("save location", err)
	}
	op := queue.OpUpdate
	if created {
		op = queue.OpInsert
	}
	notify(ctx, l.notifier, queue.ChangeEvent{
		Table: queue.TableLocations, Op: op, UserID: userID, Date: day, RecordID: loc.ID,
	})
	return loc, nil
}

// ClearStatus removes the record for (userID, day).  Clearing a day
// with no record succeeds.
func (l *Ledger) ClearStatus(ctx context.Context, userID uint64, day string) error {
	if err := ValidateDay(day); err != nil {
		return err
	}
	deleted, err := l.store.DeleteByUserAndDate(ctx, userID, day)
	if err != nil {
		return persistence("delete location", err)
	}
	if deleted {
		notify(ctx, l.notifier, queue.ChangeEvent{
			Table: queue.TableLocations, Op: queue.OpDelete, UserID: userID, Date: day,
		})
	}
	return nil
}

// FetchRange returns every active profile with its explicit records in
// from..to.  Users without records are included with an empty map;
// weekend defaults are left to the read model.
func (l *Ledger) FetchRange(ctx context.Context, from, to string) ([]UserLocations, error) {
	if err := ValidateDay(from); err != nil {
		return nil, err
	}
	if err := ValidateDay(to); err != nil {
		return nil, err
	}
	var (
		profiles []model.Profile
		locs     []model.Location
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		profiles, err = l.profiles.ListActiveProfiles(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		locs, err = l.store.ListRange(gctx, from, to)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, persistence("load locations", err)
	}

	byUser := make(map[uint64]map[string]model.Location, len(profiles))
	for _, loc := range locs {
		m := byUser[loc.UserID]
		if m == nil {
			m = make(map[string]model.Location)
			byUser[loc.UserID] = m
		}
		m[loc.Date] = loc
	}
	out := make([]UserLocations, 0, len(profiles))
	for _, p := range profiles {
		m := byUser[p.ID]
		if m == nil {
			m = map[string]model.Location{}
		}
		out = append(out, UserLocations{Profile: p, Locations: m})
	}
	return out, nil
}

// CanEdit reports whether actor may change ownerID's record for day.
// Only the owner may edit, and only for today or later.
func CanEdit(actor Actor, ownerID uint64, day, today string) bool {
	return actor.ID == ownerID && day >= today
}

// officeHours validates optional HH:MM times.  Empty strings count as
// absent.
func officeHours(arrival, departure *string) (*string, *string, error) {
	a, err := clockTime("arrival_time", arrival)
	if err != nil {
		return nil, nil, err
	}
	d, err := clockTime("departure_time", departure)
	if err != nil {
		return nil, nil, err
	}
	if a != nil && d != nil && *d < *a {
		return nil, nil, validationf("departure %s is before arrival %s", *d, *a)
	}
	return a, d, nil
}

func clockTime(field string, v *string) (*string, error) {
	if v == nil || *v == "" {
		return nil, nil
	}
	t, err := time.Parse(model.TimeLayout, *v)
	if err != nil {
		return nil, validationf("%s %q must be HH:MM", field, *v)
	}
	s := t.Format(model.TimeLayout)
	return &s, nil
}
