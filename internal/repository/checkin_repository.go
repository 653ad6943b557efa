package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/team-presence/internal/model"
)

// CheckinRepo provides data access to the office_checkins table.  The
// state guards of the check-in lifecycle are expressed in the WHERE
// clauses (validated_at IS NULL) so that concurrent validate/cancel
// requests are resolved by the database.
type CheckinRepo struct {
	db *sql.DB
}

// NewCheckinRepo returns a new CheckinRepo bound to the given database.
func NewCheckinRepo(db *sql.DB) *CheckinRepo { return &CheckinRepo{db: db} }

const checkinColumns = `id, user_id, day, checked_in_at, validated_by, validated_at`

func scanCheckin(row interface{ Scan(...any) error }) (model.OfficeCheckin, error) {
	var (
		c           model.OfficeCheckin
		checkedMs   int64
		validatedBy sql.NullInt64
		validatedAt sql.NullInt64
	)
	if err := row.Scan(&c.ID, &c.UserID, &c.Date, &checkedMs, &validatedBy, &validatedAt); err != nil {
		return model.OfficeCheckin{}, err
	}
	c.CheckedInAt = fromMillis(checkedMs)
	c.ValidatedBy = nullID(validatedBy)
	c.ValidatedAt = nullTime(validatedAt)
	return c, nil
}

// Insert creates a pending check-in for (userID, day).  A second insert
// for the same key returns ErrDuplicate and leaves the first row intact.
func (r *CheckinRepo) Insert(ctx context.Context, userID uint64, day string, at time.Time) (model.OfficeCheckin, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO office_checkins (user_id, day, checked_in_at) VALUES (?, ?, ?)`,
		userID, day, toMillis(at))
	if err != nil {
		if isUniqueViolation(err) {
			return model.OfficeCheckin{}, ErrDuplicate
		}
		return model.OfficeCheckin{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.OfficeCheckin{}, err
	}
	return r.GetByID(ctx, uint64(id))
}

// GetByID returns the check-in with the given id or ErrNotFound.
func (r *CheckinRepo) GetByID(ctx context.Context, id uint64) (model.OfficeCheckin, error) {
	c, err := scanCheckin(r.db.QueryRowContext(ctx,
		`SELECT `+checkinColumns+` FROM office_checkins WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.OfficeCheckin{}, ErrNotFound
	}
	return c, err
}

// GetByUserAndDate returns the check-in for (userID, day) or ErrNotFound.
func (r *CheckinRepo) GetByUserAndDate(ctx context.Context, userID uint64, day string) (model.OfficeCheckin, error) {
	c, err := scanCheckin(r.db.QueryRowContext(ctx,
		`SELECT `+checkinColumns+` FROM office_checkins WHERE user_id = ? AND day = ? LIMIT 1`, userID, day))
	if errors.Is(err, sql.ErrNoRows) {
		return model.OfficeCheckin{}, ErrNotFound
	}
	return c, err
}

// MarkValidated moves a pending check-in to validated.  It reports false
// when the row no longer exists or was already validated.
func (r *CheckinRepo) MarkValidated(ctx context.Context, id, validatorID uint64, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE office_checkins SET validated_by = ?, validated_at = ?
		 WHERE id = ? AND validated_at IS NULL`,
		validatorID, toMillis(at), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// DeletePending removes the check-in for (userID, day) only while it is
// still pending.  Validated rows are never deleted here.
func (r *CheckinRepo) DeletePending(ctx context.Context, userID uint64, day string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM office_checkins WHERE user_id = ? AND day = ? AND validated_at IS NULL`,
		userID, day)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListRange returns all check-ins with from <= day <= to.
func (r *CheckinRepo) ListRange(ctx context.Context, from, to string) ([]model.OfficeCheckin, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+checkinColumns+` FROM office_checkins WHERE day >= ? AND day <= ? ORDER BY day, id`,
		from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.OfficeCheckin
	for rows.Next() {
		c, err := scanCheckin(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
