package service

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/team-presence/internal/model"
	"github.com/iliyamo/team-presence/internal/queue"
	"github.com/iliyamo/team-presence/internal/repository"
)

// CheckinStore persists office check-ins.  MarkValidated and
// DeletePending must only touch rows whose validated_at is null and
// report whether a row was affected.
type CheckinStore interface {
	Insert(ctx context.Context, userID uint64, day string, at time.Time) (model.OfficeCheckin, error)
	GetByID(ctx context.Context, id uint64) (model.OfficeCheckin, error)
	GetByUserAndDate(ctx context.Context, userID uint64, day string) (model.OfficeCheckin, error)
	MarkValidated(ctx context.Context, id, validatorID uint64, at time.Time) (bool, error)
	DeletePending(ctx context.Context, userID uint64, day string) (bool, error)
	ListRange(ctx context.Context, from, to string) ([]model.OfficeCheckin, error)
}

type checkinKey struct {
	userID uint64
	day    string
}

// CheckinSet is an in-memory snapshot of check-ins used for status
// lookups and validation affordances.
type CheckinSet struct {
	rows map[checkinKey]model.OfficeCheckin
}

// NewCheckinSet indexes rows by (user, day).
func NewCheckinSet(rows []model.OfficeCheckin) CheckinSet {
	s := CheckinSet{rows: make(map[checkinKey]model.OfficeCheckin, len(rows))}
	for _, r := range rows {
		s.rows[checkinKey{r.UserID, r.Date}] = r
	}
	return s
}

// StatusFor returns the lifecycle state of userID's check-in on day
// and the row when one exists.
func (s CheckinSet) StatusFor(userID uint64, day string) (model.CheckinStatus, *model.OfficeCheckin) {
	r, ok := s.rows[checkinKey{userID, day}]
	if !ok {
		return model.CheckinNone, nil
	}
	return r.Status(), &r
}

// CanValidate reports whether actor may validate other check-ins on
// day: elevated actors always may, anyone else needs a validated
// check-in of their own on that day.
func (s CheckinSet) CanValidate(p Policy, actor Actor, day string) bool {
	if p.IsElevated(actor) {
		return true
	}
	st, _ := s.StatusFor(actor.ID, day)
	return st == model.CheckinValidated
}

// ShowValidate reports whether the validate control should be offered
// to actor for targetID on day.
func (s CheckinSet) ShowValidate(p Policy, actor Actor, targetID uint64, day string) bool {
	if actor.ID == targetID {
		return false
	}
	if st, _ := s.StatusFor(targetID, day); st != model.CheckinPending {
		return false
	}
	return s.CanValidate(p, actor, day)
}

// Machine applies check-in transitions: none -> pending on check-in,
// pending -> none on cancel and pending -> validated on validation.
type Machine struct {
	store    CheckinStore
	policy   Policy
	notifier Notifier
	clock    Clock
}

// NewMachine wires a Machine.  notifier may be nil.
func NewMachine(store CheckinStore, policy Policy, notifier Notifier, clock Clock) *Machine {
	return &Machine{store: store, policy: policy, notifier: notifier, clock: clock}
}

// Policy returns the authorization policy in use.
func (m *Machine) Policy() Policy { return m.policy }

// CheckIn records a pending check-in for actor.  An empty day means
// today; any other day is rejected since a check-in claims presence now.
func (m *Machine) CheckIn(ctx context.Context, actor Actor, day string) (model.OfficeCheckin, error) {
	today := m.clock.Today()
	if day == "" {
		day = today
	}
	if err := ValidateDay(day); err != nil {
		return model.OfficeCheckin{}, err
	}
	if day != today {
		return model.OfficeCheckin{}, validationf("check-in is only possible for today (%s)", today)
	}
	c, err := m.store.Insert(ctx, actor.ID, day, m.clock.now())
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return model.OfficeCheckin{}, &Error{Kind: ErrDuplicateCheckin, Message: "already checked in on " + day, Err: err}
		}
		return model.OfficeCheckin{}, persistence("check in", err)
	}
	notify(ctx, m.notifier, queue.ChangeEvent{
		Table: queue.TableCheckins, Op: queue.OpInsert, UserID: actor.ID, Date: day, RecordID: c.ID,
	})
	return c, nil
}

// CancelCheckin deletes actor's own check-in on day while it is still
// pending.  Missing and validated check-ins are rejected.
func (m *Machine) CancelCheckin(ctx context.Context, actor Actor, day string) error {
	if err := ValidateDay(day); err != nil {
		return err
	}
	deleted, err := m.store.DeletePending(ctx, actor.ID, day)
	if err != nil {
		return persistence("cancel check-in", err)
	}
	if !deleted {
		return newError(ErrInvalidState, "no pending check-in on "+day)
	}
	notify(ctx, m.notifier, queue.ChangeEvent{
		Table: queue.TableCheckins, Op: queue.OpDelete, UserID: actor.ID, Date: day,
	})
	return nil
}

// Validate marks targetID's pending check-in checkinID as validated by
// actor.  Guards run in order: self-validation, state, authorization.
func (m *Machine) Validate(ctx context.Context, actor Actor, checkinID, targetID uint64) (model.OfficeCheckin, error) {
	if actor.ID == targetID {
		return model.OfficeCheckin{}, newError(ErrSelfValidation, "cannot validate your own check-in")
	}
	row, err := m.store.GetByID(ctx, checkinID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.OfficeCheckin{}, newError(ErrInvalidState, "check-in not found")
		}
		return model.OfficeCheckin{}, persistence("load check-in", err)
	}
	if row.UserID == actor.ID {
		return model.OfficeCheckin{}, newError(ErrSelfValidation, "cannot validate your own check-in")
	}
	if row.UserID != targetID {
		return model.OfficeCheckin{}, newError(ErrInvalidState, "check-in does not belong to the target user")
	}
	if row.Status() != model.CheckinPending {
		return model.OfficeCheckin{}, newError(ErrInvalidState, "check-in is already validated")
	}

	if !m.policy.IsElevated(actor) {
		own, err := m.store.GetByUserAndDate(ctx, actor.ID, row.Date)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return model.OfficeCheckin{}, newError(ErrAuthorization, "a validated check-in of your own is required to validate others")
		case err != nil:
			return model.OfficeCheckin{}, persistence("load own check-in", err)
		}
		if !NewCheckinSet([]model.OfficeCheckin{own}).CanValidate(m.policy, actor, row.Date) {
			return model.OfficeCheckin{}, newError(ErrAuthorization, "a validated check-in of your own is required to validate others")
		}
	}

	ok, err := m.store.MarkValidated(ctx, row.ID, actor.ID, m.clock.now())
	if err != nil {
		return model.OfficeCheckin{}, persistence("validate check-in", err)
	}
	if !ok {
		return model.OfficeCheckin{}, newError(ErrInvalidState, "check-in is no longer pending")
	}
	updated, err := m.store.GetByID(ctx, row.ID)
	if err != nil {
		return model.OfficeCheckin{}, persistence("reload check-in", err)
	}
	notify(ctx, m.notifier, queue.ChangeEvent{
		Table: queue.TableCheckins, Op: queue.OpUpdate, UserID: row.UserID, Date: row.Date, RecordID: row.ID,
	})
	return updated, nil
}

// List loads the check-ins in from..to.
func (m *Machine) List(ctx context.Context, from, to string) (CheckinSet, []model.OfficeCheckin, error) {
	if err := ValidateRange(from, to); err != nil {
		return CheckinSet{}, nil, err
	}
	rows, err := m.store.ListRange(ctx, from, to)
	if err != nil {
		return CheckinSet{}, nil, persistence("load check-ins", err)
	}
	return NewCheckinSet(rows), rows, nil
}
