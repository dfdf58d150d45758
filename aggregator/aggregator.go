// Package aggregator implements the role that owns the bounded best-K
// buffer. It is the only writer of that buffer; every other role sees its
// state exclusively through threshold updates and the final report.
package aggregator

import (
	"context"
	"log/slog"
	"math"

	"github.com/molscreen/molscreen/pkg/events"
	"github.com/molscreen/molscreen/pkg/protocol"
	"github.com/molscreen/molscreen/result"
)

// Aggregator consumes result batches from all workers, maintains the
// best-K buffer and pushes tightened admission thresholds back to the
// controller.
type Aggregator struct {
	id     string
	links  *protocol.Links
	buffer *result.Buffer
	pushed float64

	events events.Emitter
	logger *slog.Logger
}

// New builds the aggregator around its buffer.
func New(id string, links *protocol.Links, buffer *result.Buffer, emitter events.Emitter, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		id:     id,
		links:  links,
		buffer: buffer,
		pushed: result.Sentinel(),
		events: emitter,
		logger: logger,
	}
}

// Run waits out the readiness handshake, then consumes batches until the
// controller stops it. A bad batch is dropped and logged, never fatal; the
// only ways out are the stop signal and context cancellation.
func (a *Aggregator) Run(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-a.links.PreprocessDone:
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case a.links.Ready <- a.id:
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-a.links.StopAggregator:
			report := protocol.FinalReport{Records: a.buffer.Final()}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case a.links.Final <- report:
			}
			a.logger.Info("aggregator returning final set", slog.Int("retained", len(report.Records)))

			return nil
		case batch := <-a.links.Results:
			a.onResultBatch(ctx, batch)
		}
	}
}

// onResultBatch folds one worker report into the buffer and, when a
// compaction tightened the cutoff, pushes the new threshold to the
// controller.
func (a *Aggregator) onResultBatch(ctx context.Context, batch protocol.ResultBatch) {
	records := validRecords(batch.Records)
	if len(records) == 0 {
		a.logger.Warn("dropping result batch with no usable records", slog.String("worker", batch.WorkerID))

		return
	}

	if compacted := a.buffer.Add(records); !compacted {
		return
	}

	if threshold := a.buffer.Threshold(); threshold < a.pushed {
		a.pushed = threshold
		a.links.PushThreshold(threshold)
		a.events.ThresholdUpdated(ctx, threshold)
		a.logger.Debug("pushed tightened threshold", slog.Float64("threshold", threshold))
	}
}

// validRecords drops malformed entries: empty IDs and NaN scores cannot be
// ordered and would poison the sort.
func validRecords(records []result.Record) []result.Record {
	valid := records[:0]
	for _, r := range records {
		if r.ItemID == "" || math.IsNaN(r.Score) {
			continue
		}
		valid = append(valid, r)
	}

	return valid
}
