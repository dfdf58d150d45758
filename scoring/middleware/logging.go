package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/molscreen/molscreen/prep"
	"github.com/molscreen/molscreen/scoring"
)

var _ scoring.Provider = (*loggingMiddleware)(nil)

type loggingMiddleware struct {
	logger   *slog.Logger
	provider scoring.Provider
}

// Logging decorates a provider with slog logging of every operation.
func Logging(logger *slog.Logger, provider scoring.Provider) scoring.Provider {
	return &loggingMiddleware{
		logger:   logger,
		provider: provider,
	}
}

func (lm *loggingMiddleware) Prepare(ctx context.Context, cfg prep.Config) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.String("forcefield", cfg.Forcefield),
			slog.String("docking", cfg.Docking),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Prepare scoring engine failed", args...)

			return
		}
		lm.logger.Info("Prepare scoring engine completed successfully", args...)
	}(time.Now())

	return lm.provider.Prepare(ctx, cfg)
}

func (lm *loggingMiddleware) Score(ctx context.Context, ligand []byte) (score float64, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Int("ligand_bytes", len(ligand)),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Score ligand failed", args...)

			return
		}
		args = append(args, slog.Float64("score", score))
		lm.logger.Debug("Score ligand completed successfully", args...)
	}(time.Now())

	return lm.provider.Score(ctx, ligand)
}

func (lm *loggingMiddleware) WritePose(ctx context.Context, itemID, outputDir string) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.String("item_id", itemID),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Write pose failed", args...)

			return
		}
		lm.logger.Debug("Write pose completed successfully", args...)
	}(time.Now())

	return lm.provider.WritePose(ctx, itemID, outputDir)
}
