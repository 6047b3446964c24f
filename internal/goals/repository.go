package goals

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"kryta-backend/internal/db"
)

var ErrNotFound = errors.New("goal not found")

// Active returns the user's active goal.
func Active(ctx context.Context, r db.Runner, userID string) (*Goal, error) {
	var g Goal
	err := r.QueryRowContext(ctx, `
		SELECT id, user_id, title, available_minutes, is_active, created_at
		FROM goals
		WHERE user_id = ? AND is_active = ?
		ORDER BY created_at DESC
		LIMIT 1
	`, userID, true).Scan(&g.ID, &g.UserID, &g.Title, &g.AvailableMinutes, &g.IsActive, &g.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select active goal: %w", err)
	}
	return &g, nil
}

// Deactivate clears the active flag on every goal of the user.
func Deactivate(ctx context.Context, r db.Runner, userID string) (int64, error) {
	res, err := r.ExecContext(ctx, `
		UPDATE goals
		SET is_active = ?
		WHERE user_id = ? AND is_active = ?
	`, false, userID, true)
	if err != nil {
		return 0, fmt.Errorf("deactivate goals: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Insert stores g as the active goal. Callers deactivate the previous one first.
func Insert(ctx context.Context, r db.Runner, g *Goal) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	g.IsActive = true

	_, err := r.ExecContext(ctx, `
		INSERT INTO goals (id, user_id, title, available_minutes, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, g.ID, g.UserID, g.Title, g.AvailableMinutes, g.IsActive, g.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert goal: %w", err)
	}
	return nil
}
