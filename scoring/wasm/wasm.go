// Package wasm runs a scoring engine compiled to WebAssembly. The module
// must export `malloc(size) -> ptr` and `score(ptr, len) -> f64`; poses stay
// inside the module, so WritePose is a no-op for this provider.
package wasm

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	pkgerrors "github.com/molscreen/molscreen/pkg/errors"
	"github.com/molscreen/molscreen/prep"
	"github.com/molscreen/molscreen/scoring"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

const (
	mallocFunction = "malloc"
	scoreFunction  = "score"
)

type provider struct {
	mu      sync.Mutex
	binary  []byte
	runtime wazero.Runtime
	module  api.Module
	malloc  api.Function
	score   api.Function
	logger  *slog.Logger
}

// NewProvider wraps a scoring-engine WASM binary as a scoring.Provider.
// Prepare must be called before Score; the module instance is serialized
// behind a mutex because WASM instances are single threaded.
func NewProvider(binary []byte, logger *slog.Logger) scoring.Provider {
	return &provider{
		binary: binary,
		logger: logger,
	}
}

func (p *provider) Prepare(ctx context.Context, cfg prep.Config) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	r := wazero.NewRuntime(ctx)

	// Instantiate WASI, which implements host functions needed for TinyGo to
	// implement `panic`.
	wasi_snapshot_preview1.MustInstantiate(ctx, r)

	module, err := r.InstantiateWithConfig(ctx, p.binary, wazero.NewModuleConfig().WithStartFunctions("_initialize"))
	if err != nil {
		closeErr := r.Close(ctx)

		return stderrors.Join(stderrors.New("failed to instantiate scoring module"), err, closeErr)
	}

	malloc := module.ExportedFunction(mallocFunction)
	score := module.ExportedFunction(scoreFunction)
	if malloc == nil || score == nil {
		closeErr := r.Close(ctx)

		return stderrors.Join(fmt.Errorf("scoring module must export %q and %q", mallocFunction, scoreFunction), closeErr)
	}

	p.runtime = r
	p.module = module
	p.malloc = malloc
	p.score = score

	p.logger.Info("scoring module instantiated",
		slog.String("forcefield", cfg.Forcefield),
		slog.String("docking", cfg.Docking),
	)

	return nil
}

func (p *provider) Score(ctx context.Context, ligand []byte) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.module == nil {
		return 0, pkgerrors.ErrNotPrepared
	}

	size := uint64(len(ligand))
	results, err := p.malloc.Call(ctx, size)
	if err != nil {
		return 0, fmt.Errorf("malloc failed: %w", err)
	}
	ptr := results[0]

	if !p.module.Memory().Write(uint32(ptr), ligand) {
		return 0, fmt.Errorf("ligand of %d bytes does not fit in module memory", size)
	}

	results, err = p.score.Call(ctx, ptr, size)
	if err != nil {
		return 0, fmt.Errorf("score call failed: %w", err)
	}

	v := api.DecodeF64(results[0])
	if math.IsNaN(v) {
		return 0, fmt.Errorf("scoring module returned NaN: %w", pkgerrors.ErrInvalidData)
	}

	return v, nil
}

func (p *provider) WritePose(ctx context.Context, itemID, outputDir string) error {
	p.logger.Debug("wasm provider keeps poses in-module, skipping pose write",
		slog.String("item_id", itemID),
		slog.String("output_dir", outputDir),
	)

	return nil
}

// Close releases the module runtime.
func (p *provider) Close(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.runtime == nil {
		return nil
	}
	err := p.runtime.Close(ctx)
	p.runtime = nil
	p.module = nil

	return err
}
