// Package scoring defines the docking engine capability the workers consume.
// The engine itself is an external collaborator: the core only needs a ready
// signal, a score per ligand and a best-effort pose dump.
package scoring

import (
	"context"

	"github.com/molscreen/molscreen/prep"
)

// Provider scores ligand payloads against a prepared receptor.
type Provider interface {
	// Prepare readies the engine for the given docking setup. A failure
	// here is fatal to the whole job.
	Prepare(ctx context.Context, cfg prep.Config) error

	// Score evaluates one ligand and returns its best pose energy. Lower
	// is better. A failure affects only that ligand.
	Score(ctx context.Context, ligand []byte) (float64, error)

	// WritePose persists the last scored pose for itemID under outputDir.
	// Best-effort: callers log failures and keep the score.
	WritePose(ctx context.Context, itemID, outputDir string) error
}

// Func adapts a plain scoring function into a Provider with no preparation
// and no pose output.
type Func func(ligand []byte) (float64, error)

func (f Func) Prepare(context.Context, prep.Config) error { return nil }

func (f Func) Score(_ context.Context, ligand []byte) (float64, error) {
	return f(ligand)
}

func (f Func) WritePose(context.Context, string, string) error { return nil }
