package verify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"kryta-backend/internal/analytics"
	"kryta-backend/internal/db"
	"kryta-backend/internal/tasks"
	"kryta-backend/internal/users"
)

// Result is one verification attempt as persisted.
type Result struct {
	Task    tasks.Task
	User    users.User
	Outcome Outcome
}

// Service loads, verifies and persists under a per-user lock.
type Service struct {
	db       *db.DB
	machine  *Machine
	locks    *userLocks
	recorder *analytics.Recorder
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(d *db.DB, machine *Machine, recorder *analytics.Recorder, logger *zap.Logger) *Service {
	return &Service{
		db:       d,
		machine:  machine,
		locks:    newUserLocks(),
		recorder: recorder,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Verify runs the state machine for one task of userID.
// Once the user's lock is held the attempt runs to completion even if ctx is cancelled,
// so a dropped client never leaves a judged attempt unrecorded.
func (s *Service) Verify(ctx context.Context, userID, taskID string, proof Proof, env analytics.Envelope) (*Result, error) {
	release, err := s.locks.acquire(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer release()

	ctx = context.WithoutCancel(ctx)

	task, err := tasks.Get(ctx, s.db, userID, taskID)
	if err != nil {
		return nil, err
	}
	user, err := users.Get(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	newTask, newUser, out, err := s.machine.Verify(ctx, *task, *user, proof, now)
	if err != nil {
		return nil, err
	}

	env.UserID = userID

	if out.Status == OutcomeLocked {
		s.logger.Info("verification rejected: user locked",
			zap.String("user_id", userID),
			zap.String("task_id", taskID),
			zap.Int("minutes_remaining", out.MinutesRemaining),
		)
		s.recorder.Record(ctx, env, analytics.EventVerificationLocked, map[string]any{
			"task_id":           taskID,
			"minutes_remaining": out.MinutesRemaining,
		}, "")
		return &Result{Task: newTask, User: newUser, Outcome: out}, nil
	}

	err = s.db.WithTx(ctx, func(tx *db.Tx) error {
		if err := users.UpdateLedger(ctx, tx, &newUser); err != nil {
			return err
		}
		if err := tasks.UpdateVerification(ctx, tx, &newTask); err != nil {
			return err
		}
		return insertEvent(ctx, tx, newTask, out, now)
	})
	if err != nil {
		return nil, fmt.Errorf("persist verification: %w", err)
	}

	xp := 0
	if out.Reward != nil {
		xp = out.Reward.XPAwarded
	}

	s.logger.Info("verification processed",
		zap.String("user_id", userID),
		zap.String("task_id", taskID),
		zap.String("verdict", string(out.Verdict)),
		zap.Int("quality_score", out.QualityScore),
		zap.Int("xp_awarded", xp),
		zap.Int("failure_streak", newUser.FailureStreak),
		zap.Bool("lockout_triggered", out.LockoutTriggered),
		zap.Bool("image_proof", proof.Image != nil),
	)
	s.recorder.Record(ctx, env, analytics.EventVerificationProcessed, map[string]any{
		"task_id":           taskID,
		"verdict":           string(out.Verdict),
		"quality_score":     out.QualityScore,
		"xp_awarded":        xp,
		"lockout_triggered": out.LockoutTriggered,
		"image_proof":       proof.Image != nil,
	}, "")

	return &Result{Task: newTask, User: newUser, Outcome: out}, nil
}

func insertEvent(ctx context.Context, r db.Runner, task tasks.Task, out Outcome, now time.Time) error {
	xp := 0
	if out.Reward != nil {
		xp = out.Reward.XPAwarded
	}

	_, err := r.ExecContext(ctx, `
		INSERT INTO verification_events (
			id, user_id, task_id, verdict, quality_score, xp_awarded, lockout_triggered, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, uuid.NewString(), task.UserID, task.ID, string(out.Verdict), out.QualityScore, xp, out.LockoutTriggered, now)
	if err != nil {
		return fmt.Errorf("insert verification event: %w", err)
	}
	return nil
}

// IsConflict reports an optimistic-lock failure from another writer.
func IsConflict(err error) bool {
	return errors.Is(err, users.ErrConflict)
}
