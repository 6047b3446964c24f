package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"kryta-backend/internal/db"
)

var (
	ErrNotFound  = errors.New("task not found")
	ErrCompleted = errors.New("task already completed")
)

const taskColumns = `
	id, user_id, goal_id, title, description,
	estimated_minutes, success_criteria, minimum_viable_done, proof_instruction,
	scheduled_at, priority, is_urgent, step_order,
	status, last_failure_reason, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (*Task, error) {
	var (
		t         Task
		goalID    sql.NullString
		scheduled sql.NullTime
		status    string
	)
	err := row.Scan(
		&t.ID, &t.UserID, &goalID, &t.Title, &t.Description,
		&t.EstimatedMinutes, &t.SuccessCriteria, &t.MinimumViableDone, &t.ProofInstruction,
		&scheduled, &t.Priority, &t.IsUrgent, &t.StepOrder,
		&status, &t.LastFailureReason, &t.CreatedAt, &t.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	t.Status = Status(status)
	if goalID.Valid {
		t.GoalID = &goalID.String
	}
	if scheduled.Valid {
		s := scheduled.Time.UTC()
		t.ScheduledAt = &s
	}
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return &t, nil
}

func scanTasks(rows *sql.Rows) ([]Task, error) {
	defer rows.Close()

	result := []Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *t)
	}
	return result, rows.Err()
}

// Get loads a task owned by userID. Another user's task is reported as ErrNotFound.
func Get(ctx context.Context, r db.Runner, userID, id string) (*Task, error) {
	return scanTask(r.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ? AND user_id = ?`, id, userID))
}

func List(ctx context.Context, r db.Runner, userID string) ([]Task, error) {
	rows, err := r.QueryContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE user_id = ?
		ORDER BY created_at DESC, step_order ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	return scanTasks(rows)
}

// ListSince returns tasks created at or after since, in plan order.
func ListSince(ctx context.Context, r db.Runner, userID string, since time.Time) ([]Task, error) {
	rows, err := r.QueryContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE user_id = ? AND created_at >= ?
		ORDER BY created_at ASC, step_order ASC
	`, userID, since.UTC())
	if err != nil {
		return nil, err
	}
	return scanTasks(rows)
}

// InsertMany stores new pending tasks, filling ids and timestamps.
func InsertMany(ctx context.Context, r db.Runner, list []*Task) error {
	now := time.Now().UTC()

	for _, t := range list {
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
		t.UpdatedAt = t.CreatedAt
		t.Status = StatusPending
		t.LastFailureReason = ""

		var scheduled any
		if t.ScheduledAt != nil {
			scheduled = t.ScheduledAt.UTC()
		}

		_, err := r.ExecContext(ctx, `
			INSERT INTO tasks (
				id, user_id, goal_id, title, description,
				estimated_minutes, success_criteria, minimum_viable_done, proof_instruction,
				scheduled_at, priority, is_urgent, step_order,
				status, last_failure_reason, created_at, updated_at
			)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, t.ID, t.UserID, t.GoalID, t.Title, t.Description,
			t.EstimatedMinutes, t.SuccessCriteria, t.MinimumViableDone, t.ProofInstruction,
			scheduled, t.Priority, t.IsUrgent, t.StepOrder,
			string(t.Status), t.LastFailureReason, t.CreatedAt, t.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert task %q: %w", t.Title, err)
		}
	}
	return nil
}

// UpdateVerification persists status and failure reason.
// A task that is already completed in storage is never overwritten.
func UpdateVerification(ctx context.Context, r db.Runner, t *Task) error {
	t.UpdatedAt = time.Now().UTC()

	res, err := r.ExecContext(ctx, `
		UPDATE tasks
		SET status = ?, last_failure_reason = ?, updated_at = ?
		WHERE id = ? AND user_id = ? AND status <> ?
	`, string(t.Status), t.LastFailureReason, t.UpdatedAt, t.ID, t.UserID, string(StatusCompleted))
	if err != nil {
		return fmt.Errorf("update task verification: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update task verification: %w", err)
	}
	if n == 0 {
		if _, err := Get(ctx, r, t.UserID, t.ID); err != nil {
			return err
		}
		return ErrCompleted
	}
	return nil
}
