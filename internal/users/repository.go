package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"kryta-backend/internal/db"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrConflict   = errors.New("user was modified concurrently")
	ErrEmailTaken = errors.New("email already registered")
)

const userColumns = `
	id, name, email, password_hash,
	xp, streak, failure_streak, lockout_until,
	work_hours, core_goals, bad_habits,
	is_local, version, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*User, error) {
	var (
		u       User
		email   sql.NullString
		lockout sql.NullTime
	)
	err := row.Scan(
		&u.ID, &u.Name, &email, &u.PasswordHash,
		&u.XP, &u.Streak, &u.FailureStreak, &lockout,
		&u.WorkHours, &u.CoreGoals, &u.BadHabits,
		&u.IsLocal, &u.Version, &u.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	u.Email = email.String
	if lockout.Valid {
		t := lockout.Time.UTC()
		u.LockoutUntil = &t
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}

func Get(ctx context.Context, r db.Runner, id string) (*User, error) {
	return scanUser(r.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

func GetByEmail(ctx context.Context, r db.Runner, email string) (*User, error) {
	return scanUser(r.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, normalizeEmail(email)))
}

// Create inserts u, filling ID and CreatedAt when empty.
func Create(ctx context.Context, r db.Runner, u *User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}

	var email sql.NullString
	if e := normalizeEmail(u.Email); e != "" {
		u.Email = e
		email = sql.NullString{String: e, Valid: true}
	}

	_, err := r.ExecContext(ctx, `
		INSERT INTO users (
			id, name, email, password_hash,
			xp, streak, failure_streak, lockout_until,
			work_hours, core_goals, bad_habits,
			is_local, version, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, u.ID, u.Name, email, u.PasswordHash,
		u.XP, u.Streak, u.FailureStreak, utc(u.LockoutUntil),
		u.WorkHours, u.CoreGoals, u.BadHabits,
		u.IsLocal, u.Version, u.CreatedAt,
	)
	if db.IsUniqueViolation(err) {
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// EnsureLocal returns the local-mode profile, creating it on first access.
func EnsureLocal(ctx context.Context, r db.Runner) (*User, error) {
	u, err := Get(ctx, r, LocalUserID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	_, err = r.ExecContext(ctx, `
		INSERT INTO users (id, name, is_local, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING
	`, LocalUserID, LocalUserName, true, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("create local user: %w", err)
	}
	return Get(ctx, r, LocalUserID)
}

// UpdateLedger writes the trust and reward fields if the row still has u.Version.
// On success u.Version is advanced to match the row.
func UpdateLedger(ctx context.Context, r db.Runner, u *User) error {
	res, err := r.ExecContext(ctx, `
		UPDATE users
		SET xp = ?, streak = ?, failure_streak = ?, lockout_until = ?, version = version + 1
		WHERE id = ? AND version = ?
	`, u.XP, u.Streak, u.FailureStreak, utc(u.LockoutUntil), u.ID, u.Version)
	if err != nil {
		return fmt.Errorf("update ledger: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update ledger: %w", err)
	}
	if n == 0 {
		return ErrConflict
	}

	u.Version++
	return nil
}

// UpdateProfile writes onboarding fields only.
func UpdateProfile(ctx context.Context, r db.Runner, id string, p Profile) error {
	res, err := r.ExecContext(ctx, `
		UPDATE users
		SET name = ?, work_hours = ?, core_goals = ?, bad_habits = ?
		WHERE id = ?
	`, strings.TrimSpace(p.Name), p.WorkHours, p.CoreGoals, p.BadHabits, id)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func utc(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
