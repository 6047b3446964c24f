package tasks

import (
	"time"

	"kryta-backend/internal/users"
)

// Planner defaults for fields a task descriptor leaves out.
const (
	DefaultTitle             = "Untitled Task"
	DefaultEstimatedMinutes  = 10
	DefaultSuccessCriteria   = "Complete the task"
	DefaultMinimumViableDone = "Do it"
)

type CreateTaskRequest struct {
	Title             string     `json:"title" validate:"required,max=200"`
	Description       string     `json:"description" validate:"max=2000"`
	EstimatedMinutes  int        `json:"estimated_time" validate:"min=1,max=240"`
	SuccessCriteria   string     `json:"success_criteria" validate:"max=1000"`
	MinimumViableDone string     `json:"minimum_viable_done" validate:"max=1000"`
	ProofInstruction  string     `json:"proof_instruction" validate:"max=1000"`
	ScheduledAt       *time.Time `json:"scheduled_time"`
	Priority          int        `json:"priority" validate:"min=0,max=10"`
	IsUrgent          bool       `json:"is_urgent"`
}

func (req CreateTaskRequest) toTask(userID string) *Task {
	t := &Task{
		UserID:            userID,
		Title:             req.Title,
		Description:       req.Description,
		EstimatedMinutes:  req.EstimatedMinutes,
		SuccessCriteria:   req.SuccessCriteria,
		MinimumViableDone: req.MinimumViableDone,
		ProofInstruction:  req.ProofInstruction,
		ScheduledAt:       req.ScheduledAt,
		Priority:          req.Priority,
		IsUrgent:          req.IsUrgent,
		StepOrder:         1,
	}
	if t.SuccessCriteria == "" {
		t.SuccessCriteria = DefaultSuccessCriteria
	}
	if t.MinimumViableDone == "" {
		t.MinimumViableDone = DefaultMinimumViableDone
	}
	return t
}

type LockoutStatus struct {
	Locked           bool       `json:"locked"`
	MinutesRemaining int        `json:"minutes_remaining"`
	Until            *time.Time `json:"until"`
}

type DashboardResponse struct {
	User    *users.User   `json:"user"`
	Tasks   []Task        `json:"tasks"`
	Lockout LockoutStatus `json:"lockout"`
}
