package service

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Presence assembles the read-model views from the ledger and the
// check-in store.
type Presence struct {
	ledger   *Ledger
	checkins CheckinStore
	policy   Policy
	clock    Clock
}

// NewPresence wires a Presence.
func NewPresence(ledger *Ledger, checkins CheckinStore, policy Policy, clock Clock) *Presence {
	return &Presence{ledger: ledger, checkins: checkins, policy: policy, clock: clock}
}

// Today is the current day in the team's timezone.
func (p *Presence) Today() string { return p.clock.Today() }

func (p *Presence) load(ctx context.Context, from, to string) ([]UserLocations, CheckinSet, error) {
	var (
		users []UserLocations
		set   CheckinSet
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		users, err = p.ledger.FetchRange(gctx, from, to)
		return err
	})
	g.Go(func() error {
		rows, err := p.checkins.ListRange(gctx, from, to)
		if err != nil {
			return persistence("load check-ins", err)
		}
		set = NewCheckinSet(rows)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, CheckinSet{}, err
	}
	return users, set, nil
}

// Week returns the weekly grid offset weeks from the current week, with
// the viewer on the first row.
func (p *Presence) Week(ctx context.Context, viewer Actor, offset int) (Grid, error) {
	today := p.clock.Today()
	from, to, err := WeekRange(today, offset)
	if err != nil {
		return Grid{}, err
	}
	users, set, err := p.load(ctx, from, to)
	if err != nil {
		return Grid{}, err
	}
	SortWeekly(users, viewer.ID)
	days, _ := Days(from, to)
	return BuildGrid(GridInput{Users: users, Days: days, Checkins: set, Viewer: viewer, Policy: p.policy, Today: today}), nil
}

// Month returns the monthly grid offset months from the current month.
// grouped orders rows by resource group instead of viewer first.
func (p *Presence) Month(ctx context.Context, viewer Actor, offset int, grouped bool) (Grid, error) {
	today := p.clock.Today()
	from, to, err := MonthRange(today, offset)
	if err != nil {
		return Grid{}, err
	}
	users, set, err := p.load(ctx, from, to)
	if err != nil {
		return Grid{}, err
	}
	if grouped {
		SortGrouped(users)
	} else {
		SortWeekly(users, viewer.ID)
	}
	days, _ := Days(from, to)
	return BuildGrid(GridInput{Users: users, Days: days, Checkins: set, Viewer: viewer, Policy: p.policy, Today: today}), nil
}

// Daily returns the snapshot for day, today when empty.
func (p *Presence) Daily(ctx context.Context, day string) (Snapshot, error) {
	if day == "" {
		day = p.clock.Today()
	}
	users, err := p.ledger.FetchRange(ctx, day, day)
	if err != nil {
		return Snapshot{}, err
	}
	return DailySnapshot(day, users), nil
}

// Office lists who is in the office on day, today when empty.
func (p *Presence) Office(ctx context.Context, day string) ([]OfficeEntry, error) {
	if day == "" {
		day = p.clock.Today()
	}
	users, set, err := p.load(ctx, day, day)
	if err != nil {
		return nil, err
	}
	return OfficeToday(day, users, set), nil
}

// Report builds the monthly report for month (YYYY-MM), the current
// month when empty.
func (p *Presence) Report(ctx context.Context, month string) (Report, error) {
	if month == "" {
		month = p.clock.Today()[:7]
	}
	from, to, err := ParseMonth(month)
	if err != nil {
		return Report{}, err
	}
	users, err := p.ledger.FetchRange(ctx, from, to)
	if err != nil {
		return Report{}, err
	}
	return MonthlyReport(month, users)
}
