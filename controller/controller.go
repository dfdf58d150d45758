// Package controller implements the role that owns the work queue and the
// job's shutdown sequencing. There is exactly one controller per job; a
// fatal error in it cancels the shared context and with it every other
// role.
package controller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/molscreen/molscreen/pkg/events"
	"github.com/molscreen/molscreen/pkg/protocol"
	"github.com/molscreen/molscreen/result"
)

// Controller drives one screening job through its phases: readiness
// barrier, dispatch, worker drain, aggregator shutdown, final merge.
type Controller struct {
	links     *protocol.Links
	queue     *Queue
	workers   int
	outputs   int
	threshold float64

	// drainTimeout bounds the wait for worker drain acks. Zero means wait
	// forever, which is the documented default: a hung worker stalls the
	// job rather than losing its results silently.
	drainTimeout time.Duration

	events events.Emitter
	logger *slog.Logger
}

// Option tweaks controller behavior.
type Option func(*Controller)

// WithDrainTimeout bounds the drain barrier. The zero default waits
// forever.
func WithDrainTimeout(d time.Duration) Option {
	return func(c *Controller) {
		c.drainTimeout = d
	}
}

// New builds the controller for a job with the given worker count and
// output budget.
func New(links *protocol.Links, queue *Queue, workers, outputs int, emitter events.Emitter, logger *slog.Logger, opts ...Option) *Controller {
	if outputs > result.MaxOutputs {
		outputs = result.MaxOutputs
	}

	c := &Controller{
		links:     links,
		queue:     queue,
		workers:   workers,
		outputs:   outputs,
		threshold: result.Sentinel(),
		events:    emitter,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Run executes the whole controller lifecycle and returns the final
// ascending top-K.
func (c *Controller) Run(ctx context.Context) ([]result.Record, error) {
	if err := c.runHandshake(ctx); err != nil {
		return nil, err
	}

	if err := c.dispatchLoop(ctx); err != nil {
		return nil, err
	}

	if err := c.drainWorkers(ctx); err != nil {
		return nil, err
	}

	report, err := c.shutdownAggregator(ctx)
	if err != nil {
		return nil, err
	}

	return c.Finalize(report.Records), nil
}

// runHandshake broadcasts that preprocessing finished and blocks until the
// aggregator and every worker acked. Nothing is dispatched before this
// barrier completes.
func (c *Controller) runHandshake(ctx context.Context) error {
	close(c.links.PreprocessDone)
	c.events.PreprocessingDone(ctx)

	peers := c.workers + 1
	for acked := 0; acked < peers; acked++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf("handshake aborted with %d of %d peers ready: %w", acked, peers, ctx.Err())
		case id := <-c.links.Ready:
			c.logger.Debug("peer ready", slog.String("peer", id))
		}
	}

	c.logger.Info("all peers ready, starting dispatch", slog.Int("units", c.queue.Len()))

	return nil
}

// dispatchLoop serves work requests until the queue is empty, folding in
// threshold updates from the aggregator as they arrive. Each dispatch is
// stamped with the latest threshold the controller has seen; workers
// running on a slightly stale value is accepted, the threshold only ever
// tightens.
func (c *Controller) dispatchLoop(ctx context.Context) error {
	for c.queue.Len() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case threshold := <-c.links.Threshold:
			c.storeThreshold(threshold)
		case req := <-c.links.Requests:
			unit, err := c.queue.Pop()
			if err != nil {
				// Len was checked above; a failed pop means the queue was
				// mutated outside this loop, which must never happen.
				return fmt.Errorf("dispatch to %s: %w", req.WorkerID, err)
			}
			if err := c.reply(ctx, req, protocol.Assignment{Threshold: c.threshold, Unit: unit}); err != nil {
				return err
			}
		}
	}

	c.logger.Info("work queue drained")

	return nil
}

// drainWorkers answers every remaining request with NoMore and waits for
// all workers to acknowledge completion. This is the second barrier: the
// aggregator is not stopped while any worker may still report.
func (c *Controller) drainWorkers(ctx context.Context) error {
	var timeout <-chan time.Time
	if c.drainTimeout > 0 {
		timer := time.NewTimer(c.drainTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	for done := 0; done < c.workers; {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timeout:
			return fmt.Errorf("drain barrier timed out after %s with %d of %d workers done", c.drainTimeout, done, c.workers)
		case threshold := <-c.links.Threshold:
			c.storeThreshold(threshold)
		case req := <-c.links.Requests:
			if err := c.reply(ctx, req, protocol.Assignment{NoMore: true}); err != nil {
				return err
			}
		case id := <-c.links.WorkerDone:
			done++
			c.events.WorkerDone(ctx, id)
			c.logger.Info("worker done", slog.String("worker", id), slog.Int("done", done), slog.Int("total", c.workers))
		}
	}

	return nil
}

// shutdownAggregator stops the aggregator and collects its retained set.
func (c *Controller) shutdownAggregator(ctx context.Context) (protocol.FinalReport, error) {
	close(c.links.StopAggregator)

	select {
	case <-ctx.Done():
		return protocol.FinalReport{}, ctx.Err()
	case report := <-c.links.Final:
		c.logger.Info("aggregator stopped", slog.Int("retained", len(report.Records)))

		return report, nil
	}
}

// Finalize merges the retained sets, sorts ascending with item-ID
// tie-break and truncates to the output budget. The same input always
// yields the same ordered output.
func (c *Controller) Finalize(sets ...[]result.Record) []result.Record {
	merged := result.Merge(sets...)
	if len(merged) > c.outputs {
		merged = merged[:c.outputs]
	}

	return merged
}

func (c *Controller) storeThreshold(threshold float64) {
	if threshold < c.threshold {
		c.threshold = threshold
		c.logger.Debug("admission threshold tightened", slog.Float64("threshold", threshold))
	}
}

func (c *Controller) reply(ctx context.Context, req protocol.WorkRequest, a protocol.Assignment) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case req.Reply <- a:
		return nil
	}
}
