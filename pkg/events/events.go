// Package events publishes job lifecycle telemetry over MQTT. Everything
// here is best-effort: a publish failure is logged and the job carries on.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/molscreen/molscreen/pkg/mqtt"
)

var (
	jobTopicTemplate       = "screening/%s/events/job"
	thresholdTopicTemplate = "screening/%s/events/threshold"
	workerTopicTemplate    = "screening/%s/events/worker"
	filterTemplate         = "screening/%s/events/#"
)

// Emitter reports job progress to whoever is listening.
type Emitter interface {
	JobStarted(ctx context.Context, units, workers int)
	PreprocessingDone(ctx context.Context)
	ThresholdUpdated(ctx context.Context, threshold float64)
	WorkerDone(ctx context.Context, workerID string)
	JobCompleted(ctx context.Context, kept int)
}

type emitter struct {
	jobID  string
	pubsub mqtt.PubSub
	logger *slog.Logger
}

// New returns an emitter publishing under the screening/<jobID> topic tree.
func New(jobID string, pubsub mqtt.PubSub, logger *slog.Logger) Emitter {
	return &emitter{
		jobID:  jobID,
		pubsub: pubsub,
		logger: logger,
	}
}

func (e *emitter) publish(ctx context.Context, template string, payload map[string]any) {
	payload["job_id"] = e.jobID
	payload["time"] = time.Now().UTC().Format(time.RFC3339)

	topic := fmt.Sprintf(template, e.jobID)
	if err := e.pubsub.Publish(ctx, topic, payload); err != nil {
		e.logger.Warn("failed to publish event", slog.String("topic", topic), slog.Any("error", err))
	}
}

func (e *emitter) JobStarted(ctx context.Context, units, workers int) {
	e.publish(ctx, jobTopicTemplate, map[string]any{
		"event":   "started",
		"units":   units,
		"workers": workers,
	})
}

func (e *emitter) PreprocessingDone(ctx context.Context) {
	e.publish(ctx, jobTopicTemplate, map[string]any{
		"event": "preprocessing_done",
	})
}

func (e *emitter) ThresholdUpdated(ctx context.Context, threshold float64) {
	e.publish(ctx, thresholdTopicTemplate, map[string]any{
		"event":     "threshold_updated",
		"threshold": threshold,
	})
}

func (e *emitter) WorkerDone(ctx context.Context, workerID string) {
	e.publish(ctx, workerTopicTemplate, map[string]any{
		"event":     "worker_done",
		"worker_id": workerID,
	})
}

func (e *emitter) JobCompleted(ctx context.Context, kept int) {
	e.publish(ctx, jobTopicTemplate, map[string]any{
		"event": "completed",
		"kept":  kept,
	})
}

// Watch subscribes to every event a job publishes and hands each one to
// handle until ctx ends. The inverse of the emitter: the emitter runs
// inside the job process, Watch runs wherever someone wants to follow it.
func Watch(ctx context.Context, jobID string, pubsub mqtt.PubSub, handle mqtt.Handler) error {
	topic := fmt.Sprintf(filterTemplate, jobID)
	if err := pubsub.Subscribe(ctx, topic, handle); err != nil {
		return err
	}

	<-ctx.Done()

	// ctx is already done, a fresh context lets the unsubscribe go out.
	return pubsub.Unsubscribe(context.Background(), topic)
}

type nopEmitter struct{}

// NewNop returns an emitter that discards everything. Used when no broker
// is configured.
func NewNop() Emitter {
	return nopEmitter{}
}

func (nopEmitter) JobStarted(context.Context, int, int)       {}
func (nopEmitter) PreprocessingDone(context.Context)          {}
func (nopEmitter) ThresholdUpdated(context.Context, float64)  {}
func (nopEmitter) WorkerDone(context.Context, string)         {}
func (nopEmitter) JobCompleted(context.Context, int)          {}
