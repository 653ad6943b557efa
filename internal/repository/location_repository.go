package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/team-presence/internal/model"
)

// LocationRepo provides data access to the locations table.  Rows are
// keyed by (user_id, day); the unique index on that pair is what makes
// Upsert safe without application-level locking.
type LocationRepo struct {
	db *sql.DB
}

// NewLocationRepo returns a new LocationRepo bound to the given database.
func NewLocationRepo(db *sql.DB) *LocationRepo { return &LocationRepo{db: db} }

const locationColumns = `id, user_id, day, status, notes, arrival_time, departure_time, created_at, updated_at`

func scanLocation(row interface{ Scan(...any) error }) (model.Location, error) {
	var (
		l                    model.Location
		status               string
		notes, arr, dep      sql.NullString
		createdMs, updatedMs int64
	)
	if err := row.Scan(&l.ID, &l.UserID, &l.Date, &status, &notes, &arr, &dep, &createdMs, &updatedMs); err != nil {
		return model.Location{}, err
	}
	l.Status = model.LocationStatus(status)
	l.Notes = nullString(notes)
	l.ArrivalTime = nullString(arr)
	l.DepartureTime = nullString(dep)
	l.CreatedAt = fromMillis(createdMs)
	l.UpdatedAt = fromMillis(updatedMs)
	return l, nil
}

// GetByUserAndDate returns the record for (userID, day) or ErrNotFound.
func (r *LocationRepo) GetByUserAndDate(ctx context.Context, userID uint64, day string) (model.Location, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+locationColumns+` FROM locations WHERE user_id = ? AND day = ? LIMIT 1`,
		userID, day)
	l, err := scanLocation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Location{}, ErrNotFound
	}
	return l, err
}

// Upsert writes loc keyed by (UserID, Date): the existing row is updated
// in place, otherwise a new row is inserted.  If a concurrent insert wins
// the race for the key, the write falls back to an update so the caller
// still ends with exactly one row.  The stored row is read back into loc.
// created reports whether a new row was inserted.
func (r *LocationRepo) Upsert(ctx context.Context, loc *model.Location) (created bool, err error) {
	now := toMillis(time.Now())
	_, err = r.GetByUserAndDate(ctx, loc.UserID, loc.Date)
	switch {
	case err == nil:
		if err := r.updateByKey(ctx, loc, now); err != nil {
			return false, err
		}
	case errors.Is(err, ErrNotFound):
		_, err = r.db.ExecContext(ctx,
			`INSERT INTO locations (user_id, day, status, notes, arrival_time, departure_time, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			loc.UserID, loc.Date, string(loc.Status), stringOrNil(loc.Notes),
			stringOrNil(loc.ArrivalTime), stringOrNil(loc.DepartureTime), now, now)
		if err != nil {
			if !isUniqueViolation(err) {
				return false, err
			}
			if err := r.updateByKey(ctx, loc, now); err != nil {
				return false, err
			}
		} else {
			created = true
		}
	default:
		return false, err
	}
	stored, err := r.GetByUserAndDate(ctx, loc.UserID, loc.Date)
	if err != nil {
		return created, err
	}
	*loc = stored
	return created, nil
}

func (r *LocationRepo) updateByKey(ctx context.Context, loc *model.Location, nowMs int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE locations
		 SET status = ?, notes = ?, arrival_time = ?, departure_time = ?, updated_at = ?
		 WHERE user_id = ? AND day = ?`,
		string(loc.Status), stringOrNil(loc.Notes), stringOrNil(loc.ArrivalTime),
		stringOrNil(loc.DepartureTime), nowMs, loc.UserID, loc.Date)
	return err
}

// DeleteByUserAndDate removes the record for (userID, day).  It reports
// whether a row was deleted; a missing row is not an error.
func (r *LocationRepo) DeleteByUserAndDate(ctx context.Context, userID uint64, day string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM locations WHERE user_id = ? AND day = ?`, userID, day)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListRange returns every record with from <= day <= to, ordered by day
// then user.  Days compare correctly as strings because of the fixed
// YYYY-MM-DD layout.
func (r *LocationRepo) ListRange(ctx context.Context, from, to string) ([]model.Location, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+locationColumns+` FROM locations WHERE day >= ? AND day <= ? ORDER BY day, user_id`,
		from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Location
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
