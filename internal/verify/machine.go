package verify

import (
	"context"
	"fmt"
	"time"

	"kryta-backend/internal/tasks"
	"kryta-backend/internal/users"
)

// ErrTaskCompleted rejects a second verification of a completed task.
var ErrTaskCompleted = tasks.ErrCompleted

type OutcomeStatus string

const (
	OutcomeProcessed OutcomeStatus = "processed"
	OutcomeLocked    OutcomeStatus = "locked"
)

// Outcome is what the caller is told about one verification attempt.
// Reason may differ from the task's stored failure reason when this attempt started a lockout.
type Outcome struct {
	Status           OutcomeStatus
	Verdict          Verdict
	Reason           string
	QualityScore     int
	LockoutTriggered bool
	MinutesRemaining int
	Reward           *Reward
}

func LockedReason(minutes int) string {
	if minutes < 1 {
		return "System lockout: too many failed attempts. Try again in under a minute."
	}
	return fmt.Sprintf("System lockout: too many failed attempts. Try again in %d minutes.", minutes)
}

func LockoutTriggeredReason() string {
	return fmt.Sprintf("Too many failed attempts. Verification is locked for %d minutes.",
		int(users.LockoutDuration/time.Minute))
}

// Machine runs one verification attempt against in-memory Task and User values.
// It performs no persistence.
type Machine struct {
	judge   *Adapter
	rewards *Dispatcher
}

func NewMachine(judge *Adapter, rewards *Dispatcher) *Machine {
	return &Machine{judge: judge, rewards: rewards}
}

// Verify returns the updated task and user plus the outcome. Inputs are not modified.
// A locked user gets OutcomeLocked with task and user unchanged and no judgment call.
func (m *Machine) Verify(ctx context.Context, task tasks.Task, user users.User, proof Proof, now time.Time) (tasks.Task, users.User, Outcome, error) {
	if task.IsCompleted() {
		return task, user, Outcome{}, ErrTaskCompleted
	}

	if user.IsLocked(now) {
		minutes := user.LockoutMinutesRemaining(now)
		return task, user, Outcome{
			Status:           OutcomeLocked,
			Reason:           LockedReason(minutes),
			MinutesRemaining: minutes,
		}, nil
	}

	j := m.judge.Judge(ctx, task.Title, task.SuccessCriteria, proof)

	task, user, out := Apply(task, user, j, now)

	if j.Verdict == VerdictPass {
		reward := m.rewards.Dispatch(ctx, task.Title, task.EstimatedMinutes, j.QualityScore, user.Streak)
		user.AddXP(reward.XPAwarded)
		out.Reward = &reward
	}

	return task, user, out, nil
}

// Apply folds a normalized judgment into the task and the ledger. Pure.
func Apply(task tasks.Task, user users.User, j Judgment, now time.Time) (tasks.Task, users.User, Outcome) {
	out := Outcome{
		Status:       OutcomeProcessed,
		Verdict:      j.Verdict,
		Reason:       j.Reason,
		QualityScore: j.QualityScore,
	}

	switch j.Verdict {
	case VerdictPass:
		task.Status = tasks.StatusCompleted
		task.LastFailureReason = ""
		user.RecordPass()

	case VerdictPartial:
		task.Status = tasks.StatusPartial
		task.LastFailureReason = "PARTIAL: " + j.Reason
		user.RecordPartial()

	default:
		out.Verdict = VerdictRetry
		task.Status = tasks.StatusRetry
		task.LastFailureReason = j.Reason
		if user.RecordFailure(now) {
			out.LockoutTriggered = true
			out.MinutesRemaining = user.LockoutMinutesRemaining(now)
			out.Reason = LockoutTriggeredReason()
		}
	}

	return task, user, out
}
