package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/team-presence/internal/model"
	"github.com/iliyamo/team-presence/internal/utils"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// NewUser carries the fields needed to register an account.
type NewUser struct {
	Email         string
	Password      string
	FullName      string
	JobFunction   string
	Role          model.Role
	ResourceGroup model.ResourceGroup
}

// UserUpdate lists the profile fields an administrator may change.  Nil
// fields are left untouched.
type UserUpdate struct {
	FullName      *string
	JobFunction   *string
	AvatarURL     *string
	IsActive      *bool
	ResourceGroup *model.ResourceGroup
}

const userColumns = `id, email, password_hash, full_name, job_function, avatar_url, role, resource_group, is_active, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (model.User, error) {
	var (
		u                    model.User
		avatar               sql.NullString
		role, group          string
		createdMs, updatedMs int64
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.JobFunction, &avatar,
		&role, &group, &u.IsActive, &createdMs, &updatedMs)
	if err != nil {
		return model.User{}, err
	}
	u.AvatarURL = nullString(avatar)
	u.Role = model.Role(role)
	u.ResourceGroup = model.ResourceGroup(group)
	u.CreatedAt = fromMillis(createdMs)
	u.UpdatedAt = fromMillis(updatedMs)
	return u, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Create inserts user and returns its ID.
func (r *UserRepo) Create(ctx context.Context, in NewUser, cost int) (uint64, error) {
	return insertUser(ctx, r.DB, in, cost)
}

// Register creates an account and decides its role in one transaction.
// The first account on an empty store claims the single admin_bootstrap
// row and becomes ADMIN; concurrent first registrations race on that
// row's primary key, so exactly one of them wins.  Everyone else gets
// in.Role, or EMPLOYEE when it is unset.
func (r *UserRepo) Register(ctx context.Context, in NewUser, cost int) (uint64, model.Role, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, "", err
	}
	defer func() { _ = tx.Rollback() }()

	role := in.Role
	if !role.Valid() {
		role = model.RoleEmployee
	}
	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, "", err
	}
	if n == 0 {
		_, err := tx.ExecContext(ctx, `INSERT INTO admin_bootstrap (id, claimed_at) VALUES (1, ?)`, toMillis(time.Now()))
		switch {
		case err == nil:
			role = model.RoleAdmin
		case !isUniqueViolation(err):
			return 0, "", err
		}
	}
	in.Role = role
	id, err := insertUser(ctx, tx, in, cost)
	if err != nil {
		return 0, "", err
	}
	if err := tx.Commit(); err != nil {
		return 0, "", err
	}
	return id, role, nil
}

func insertUser(ctx context.Context, db execer, in NewUser, cost int) (uint64, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	hash, err := utils.HashPassword(in.Password, cost)
	if err != nil {
		return 0, err
	}
	role := in.Role
	if !role.Valid() {
		role = model.RoleEmployee
	}
	group := in.ResourceGroup
	if !group.Valid() {
		group = model.GroupTeam
	}
	now := toMillis(time.Now())
	res, err := db.ExecContext(ctx,
		`INSERT INTO users (email, password_hash, full_name, job_function, role, resource_group, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		email, hash, strings.TrimSpace(in.FullName), strings.TrimSpace(in.JobFunction),
		string(role), string(group), true, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ? LIMIT 1`, email))
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	return u, err
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ? LIMIT 1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	return u, err
}

// Count returns the number of registered users.
func (r *UserRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

// ListAll returns every user ordered by full name, for the admin screen.
func (r *UserRepo) ListAll(ctx context.Context) ([]model.User, error) {
	return r.list(ctx, `SELECT `+userColumns+` FROM users ORDER BY full_name, id`)
}

// ListActiveProfiles returns the team-visible profiles of active users.
func (r *UserRepo) ListActiveProfiles(ctx context.Context) ([]model.Profile, error) {
	users, err := r.list(ctx, `SELECT `+userColumns+` FROM users WHERE is_active = ? ORDER BY full_name, id`, true)
	if err != nil {
		return nil, err
	}
	out := make([]model.Profile, 0, len(users))
	for _, u := range users {
		out = append(out, u.Profile())
	}
	return out, nil
}

func (r *UserRepo) list(ctx context.Context, q string, args ...any) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Update applies the non-nil fields of upd to user id.  It returns
// ErrNotFound when the user does not exist.
func (r *UserRepo) Update(ctx context.Context, id uint64, upd UserUpdate) error {
	sets := []string{"updated_at = ?"}
	args := []any{toMillis(time.Now())}
	if upd.FullName != nil {
		sets = append(sets, "full_name = ?")
		args = append(args, strings.TrimSpace(*upd.FullName))
	}
	if upd.JobFunction != nil {
		sets = append(sets, "job_function = ?")
		args = append(args, strings.TrimSpace(*upd.JobFunction))
	}
	if upd.AvatarURL != nil {
		sets = append(sets, "avatar_url = ?")
		args = append(args, strings.TrimSpace(*upd.AvatarURL))
	}
	if upd.IsActive != nil {
		sets = append(sets, "is_active = ?")
		args = append(args, *upd.IsActive)
	}
	if upd.ResourceGroup != nil {
		sets = append(sets, "resource_group = ?")
		args = append(args, string(*upd.ResourceGroup))
	}
	args = append(args, id)
	return r.execOne(ctx, `UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
}

// SetRole changes the role of user id.
func (r *UserRepo) SetRole(ctx context.Context, id uint64, role model.Role) error {
	return r.execOne(ctx, `UPDATE users SET role = ?, updated_at = ? WHERE id = ?`,
		string(role), toMillis(time.Now()), id)
}

func (r *UserRepo) execOne(ctx context.Context, q string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
