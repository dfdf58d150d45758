// Package worker implements the role that turns work units into score
// records. A worker pulls one unit at a time from the controller, scores
// its ligands, filters by the admission threshold it was handed at
// dispatch time and reports the survivors straight to the aggregator.
package worker

import (
	"context"
	"log/slog"

	"github.com/molscreen/molscreen/pkg/archive"
	"github.com/molscreen/molscreen/pkg/codec"
	"github.com/molscreen/molscreen/pkg/protocol"
	"github.com/molscreen/molscreen/result"
	"github.com/molscreen/molscreen/scoring"
)

// Worker is one scoring loop. A job runs many of them; each is independent
// and shares nothing with its peers but the channel ends in links.
type Worker struct {
	id       string
	name     string
	links    *protocol.Links
	codec    codec.Codec
	provider scoring.Provider
	archive  archive.Archive
	poseDir  string
	logger   *slog.Logger
}

// New builds a worker. poseDir is where admitted poses are written,
// best-effort.
func New(id, name string, links *protocol.Links, c codec.Codec, provider scoring.Provider, a archive.Archive, poseDir string, logger *slog.Logger) *Worker {
	return &Worker{
		id:       id,
		name:     name,
		links:    links,
		codec:    c,
		provider: provider,
		archive:  a,
		poseDir:  poseDir,
		logger:   logger.With(slog.String("worker", name)),
	}
}

// Run waits out the readiness handshake and then requests, scores and
// reports until the controller says there is no more work.
func (w *Worker) Run(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-w.links.PreprocessDone:
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case w.links.Ready <- w.id:
	}

	return w.requestLoop(ctx)
}

func (w *Worker) requestLoop(ctx context.Context) error {
	for {
		reply := make(chan protocol.Assignment, 1)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case w.links.Requests <- protocol.WorkRequest{WorkerID: w.id, Reply: reply}:
		}

		var assignment protocol.Assignment
		select {
		case <-ctx.Done():
			return ctx.Err()
		case assignment = <-reply:
		}

		if assignment.NoMore {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case w.links.WorkerDone <- w.id:
			}
			w.logger.Info("no more work, exiting")

			return nil
		}

		items, err := w.codec.Decode(assignment.Unit)
		if err != nil {
			// The unit is dropped for good: its items are never requeued.
			w.logger.Error("failed to decode work unit, skipping",
				slog.String("unit", string(assignment.Unit)),
				slog.Any("error", err),
			)

			continue
		}

		records := w.scoreAndFilter(ctx, items, assignment.Threshold)
		if len(records) == 0 {
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case w.links.Results <- protocol.ResultBatch{WorkerID: w.id, Records: records}:
		}
	}
}

// scoreAndFilter scores every item and keeps those at or under the
// threshold. A failed item is skipped, the rest of the unit proceeds.
// Every successful score is archived whether or not it is admitted: the
// threshold avoids storage and pose I/O, it does not unscore a ligand.
func (w *Worker) scoreAndFilter(ctx context.Context, items []codec.Item, threshold float64) []result.Record {
	records := make([]result.Record, 0, len(items))

	for _, item := range items {
		if len(item.Payload) == 0 {
			w.logger.Error("ligand payload was empty, skipping", slog.String("item_id", item.ID))

			continue
		}

		score, err := w.provider.Score(ctx, item.Payload)
		if err != nil {
			w.logger.Error("failed to score ligand, skipping",
				slog.String("item_id", item.ID),
				slog.Any("error", err),
			)

			continue
		}

		if err := w.archive.Append(ctx, result.Record{ItemID: item.ID, Score: score}); err != nil {
			w.logger.Warn("failed to archive score",
				slog.String("item_id", item.ID),
				slog.Any("error", err),
			)
		}

		if score > threshold {
			continue
		}

		records = append(records, result.Record{ItemID: item.ID, Score: score})

		if err := w.provider.WritePose(ctx, item.ID, w.poseDir); err != nil {
			// Pose loss must not lose the score.
			w.logger.Warn("failed to write pose",
				slog.String("item_id", item.ID),
				slog.Any("error", err),
			)
		}
	}

	return records
}
