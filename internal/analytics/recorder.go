package analytics

import (
	"context"
	"io"

	"github.com/posthog/posthog-go"
	"go.uber.org/zap"

	"kryta-backend/internal/db"
)

const (
	EventVerificationProcessed = "verification_processed"
	EventVerificationLocked    = "verification_locked"
	EventPlanCreated           = "plan_created"
	EventGoalReset             = "goal_reset"
	EventAppOpened             = "app_opened"
)

// Sink is the subset of the PostHog client we use.
type Sink interface {
	io.Closer
	Enqueue(msg posthog.Message) error
}

// NewPostHogSink returns nil when no API key is configured.
func NewPostHogSink(apiKey, endpoint string) (Sink, error) {
	if apiKey == "" {
		return nil, nil
	}

	cfg := posthog.Config{BatchSize: 20}
	if endpoint != "" {
		cfg.Endpoint = endpoint
	}
	return posthog.NewWithConfig(apiKey, cfg)
}

// Recorder writes events to analytics_events and, when configured, PostHog.
// Recording is best effort: failures are logged and never returned.
type Recorder struct {
	db     db.Runner
	sink   Sink
	logger *zap.Logger
}

func NewRecorder(d db.Runner, sink Sink, logger *zap.Logger) *Recorder {
	return &Recorder{db: d, sink: sink, logger: logger}
}

func (rec *Recorder) Record(ctx context.Context, env Envelope, eventName string, props map[string]any, sourceEventKey string) {
	if rec == nil {
		return
	}

	if err := Log(ctx, rec.db, env, eventName, props, sourceEventKey); err != nil {
		rec.logger.Warn("analytics event not stored", zap.String("event", eventName), zap.Error(err))
	}

	if rec.sink == nil {
		return
	}

	distinctID := env.UserID
	if distinctID == "" {
		distinctID, _ = UserIDFromContext(ctx)
	}
	if distinctID == "" {
		return
	}

	phProps := posthog.NewProperties()
	for k, v := range props {
		phProps.Set(k, v)
	}
	phProps.Set("platform", env.Platform)

	err := rec.sink.Enqueue(posthog.Capture{
		DistinctId: distinctID,
		Event:      eventName,
		Properties: phProps,
	})
	if err != nil {
		rec.logger.Debug("posthog enqueue failed", zap.String("event", eventName), zap.Error(err))
	}
}

// Close flushes PostHog.
func (rec *Recorder) Close() error {
	if rec == nil || rec.sink == nil {
		return nil
	}
	return rec.sink.Close()
}
