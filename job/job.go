// Package job assembles one screening run: workspace preparation, role
// startup, the run itself and the output artifacts left behind.
package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/0x6flab/namegenerator"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/molscreen/molscreen/aggregator"
	"github.com/molscreen/molscreen/controller"
	"github.com/molscreen/molscreen/pkg/archive"
	"github.com/molscreen/molscreen/pkg/codec"
	"github.com/molscreen/molscreen/pkg/events"
	"github.com/molscreen/molscreen/pkg/protocol"
	"github.com/molscreen/molscreen/prep"
	"github.com/molscreen/molscreen/result"
	"github.com/molscreen/molscreen/scoring"
	"github.com/molscreen/molscreen/worker"
)

// Config carries the per-run knobs. Docking chemistry lives in
// prep.Config; this is everything around it.
type Config struct {
	ID           string        `env:"JOB_ID"`
	Library      string        `env:"LIBRARY_DIR"    envDefault:"ligand_db"`
	OutputRoot   string        `env:"OUTPUT_ROOT"    envDefault:"."`
	Workers      int           `env:"WORKERS"        envDefault:"4"`
	Outputs      int           `env:"OUTPUTS"        envDefault:"1000"`
	Slack        int           `env:"OUTPUT_SLACK"   envDefault:"50"`
	DrainTimeout time.Duration `env:"DRAIN_TIMEOUT"  envDefault:"0"`
}

// Job is one screening run over a ligand library.
type Job struct {
	cfg     Config
	docking prep.Config

	provider scoring.Provider
	archive  archive.Archive
	codec    codec.Codec
	events   events.Emitter
	logger   *slog.Logger
}

// New builds a job. The provider is not yet prepared; Run does that after
// the workspace checks pass.
func New(cfg Config, docking prep.Config, provider scoring.Provider, a archive.Archive, emitter events.Emitter, logger *slog.Logger) *Job {
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Outputs < 1 {
		cfg.Outputs = result.MaxOutputs
	}

	return &Job{
		cfg:      cfg,
		docking:  docking,
		provider: provider,
		archive:  a,
		codec:    codec.NewCBOR(),
		events:   emitter,
		logger:   logger.With(slog.String("job", cfg.ID)),
	}
}

// ID returns the job identifier, generated if the config left it empty.
func (j *Job) ID() string {
	return j.cfg.ID
}

// Workspace returns the on-disk layout this job runs in.
func (j *Job) Workspace() prep.Workspace {
	return prep.Workspace{Root: j.cfg.OutputRoot}
}

// Run executes the whole job and returns the final ascending best-K. The
// retained set is also written to the workspace, together with the full
// score archive and the isolated pose artifacts.
func (j *Job) Run(ctx context.Context) ([]result.Record, error) {
	started := time.Now()

	units, err := j.preprocess()
	if err != nil {
		return nil, err
	}

	if err := j.provider.Prepare(ctx, j.docking); err != nil {
		return nil, fmt.Errorf("failed to prepare scoring engine: %w", err)
	}

	j.events.JobStarted(ctx, len(units), j.cfg.Workers)
	j.logger.Info("screening started",
		slog.Int("units", len(units)),
		slog.Int("workers", j.cfg.Workers),
		slog.Int("outputs", j.cfg.Outputs),
	)

	top, err := j.runRoles(ctx, units)
	if err != nil {
		return nil, err
	}

	if err := j.writeArtifacts(ctx, top); err != nil {
		return nil, err
	}

	j.events.JobCompleted(ctx, len(top))
	j.logger.Info("screening completed",
		slog.Int("retained", len(top)),
		slog.Duration("elapsed", time.Since(started)),
	)

	return top, nil
}

// preprocess validates the docking setup, lays out the workspace and
// enumerates the library. Any failure here aborts the job before a single
// ligand is scored.
func (j *Job) preprocess() ([]codec.UnitRef, error) {
	if err := j.docking.Validate(); err != nil {
		return nil, err
	}
	if err := prep.CheckReceptor(j.docking); err != nil {
		return nil, err
	}

	ws := j.Workspace()
	if err := ws.Prepare(); err != nil {
		return nil, err
	}
	if err := prep.WriteVinaConfig(j.docking, ws.VinaConfigPath()); err != nil {
		return nil, err
	}

	units, err := controller.EnumerateUnits(j.cfg.Library)
	if err != nil {
		return nil, err
	}
	j.logger.Info("library enumerated", slog.String("library", j.cfg.Library), slog.Int("units", len(units)))

	return units, nil
}

// runRoles starts the aggregator and the workers, then drives the
// controller in the current goroutine. A failed role cancels the group
// context and brings the others down.
func (j *Job) runRoles(ctx context.Context, units []codec.UnitRef) ([]result.Record, error) {
	links := protocol.NewLinks()

	var opts []controller.Option
	if j.cfg.DrainTimeout > 0 {
		opts = append(opts, controller.WithDrainTimeout(j.cfg.DrainTimeout))
	}

	ctrl := controller.New(links, controller.NewQueue(units), j.cfg.Workers, j.cfg.Outputs, j.events, j.logger, opts...)
	agg := aggregator.New("aggregator", links, result.NewBuffer(j.cfg.Outputs, j.cfg.Slack), j.events, j.logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return agg.Run(ctx)
	})

	namegen := namegenerator.NewGenerator()
	poseDir := j.Workspace().PoseDir()
	for i := 0; i < j.cfg.Workers; i++ {
		w := worker.New(uuid.NewString(), namegen.Generate(), links, j.codec, j.provider, j.archive, poseDir, j.logger)
		g.Go(func() error {
			return w.Run(ctx)
		})
	}

	var top []result.Record
	g.Go(func() error {
		var err error
		top, err = ctrl.Run(ctx)

		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("screening run failed: %w", err)
	}

	return top, nil
}

// writeArtifacts persists the retained set, the full score archive and the
// isolated pose files. Artifact trouble after a clean run is reported, not
// swallowed: the scores survived, the operator should know the files did
// not.
func (j *Job) writeArtifacts(ctx context.Context, top []result.Record) error {
	ws := j.Workspace()

	var errs []error
	if err := WriteScores(ws.SortedScoresPath(), top); err != nil {
		errs = append(errs, err)
	}

	all, err := j.archive.All(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("failed to read score archive: %w", err))
	} else {
		result.Sort(all)
		if err := WriteScores(ws.AllScoresPath(), all); err != nil {
			errs = append(errs, err)
		}
	}

	if err := IsolateOutput(ws, top); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
