package verify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"kryta-backend/internal/ai"
)

// Rewarder is the motivator collaborator. It returns the raw model reply.
type Rewarder interface {
	Reward(ctx context.Context, title string, minutes, quality, streak int) (string, error)
}

type Reward struct {
	XPAwarded int    `json:"xp_awarded"`
	Message   string `json:"message"`
}

// ParseReward reads {xp_awarded, message}. Missing or invalid fields default to zero values.
func ParseReward(raw string) Reward {
	obj, err := ai.ExtractObject(raw)
	if err != nil {
		return Reward{}
	}

	var r Reward
	if xp, ok := ai.Int(obj, "xp_awarded", "xp"); ok && xp > 0 {
		r.XPAwarded = xp
	}
	r.Message, _ = ai.String(obj, "message")
	return r
}

// Dispatcher calls the Rewarder under a timeout. It never fails.
type Dispatcher struct {
	rewarder Rewarder
	timeout  time.Duration
	logger   *zap.Logger
}

func NewDispatcher(rewarder Rewarder, timeout time.Duration, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{rewarder: rewarder, timeout: timeout, logger: logger}
}

func (d *Dispatcher) Dispatch(ctx context.Context, title string, minutes, quality, streak int) Reward {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	raw, err := d.rewarder.Reward(ctx, title, minutes, quality, streak)
	if err != nil {
		d.logger.Warn("reward unavailable, awarding 0 xp", zap.Error(err))
		return Reward{}
	}
	return ParseReward(raw)
}
