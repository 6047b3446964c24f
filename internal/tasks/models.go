package tasks

import "time"

type Status string

const (
	StatusPending   Status = "pending"
	StatusRetry     Status = "retry"
	StatusPartial   Status = "partial"
	StatusCompleted Status = "completed"
)

// Task is one unit of committed work. Status and LastFailureReason are written only by verification.
type Task struct {
	ID                string     `json:"id"`
	UserID            string     `json:"user_id"`
	GoalID            *string    `json:"goal_id"`
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	EstimatedMinutes  int        `json:"estimated_time"`
	SuccessCriteria   string     `json:"success_criteria"`
	MinimumViableDone string     `json:"minimum_viable_done"`
	ProofInstruction  string     `json:"proof_instruction"`
	ScheduledAt       *time.Time `json:"scheduled_time"`
	Priority          int        `json:"priority"`
	IsUrgent          bool       `json:"is_urgent"`
	StepOrder         int        `json:"step_order"`
	Status            Status     `json:"status"`
	LastFailureReason string     `json:"last_failure_reason"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func (t *Task) IsCompleted() bool { return t.Status == StatusCompleted }
