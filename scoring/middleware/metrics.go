package middleware

import (
	"context"
	"time"

	"github.com/go-kit/kit/metrics"
	"github.com/molscreen/molscreen/prep"
	"github.com/molscreen/molscreen/scoring"
)

var _ scoring.Provider = (*metricsMiddleware)(nil)

type metricsMiddleware struct {
	counter  metrics.Counter
	latency  metrics.Histogram
	provider scoring.Provider
}

// Metrics decorates a provider with operation counters and latency
// histograms.
func Metrics(counter metrics.Counter, latency metrics.Histogram, provider scoring.Provider) scoring.Provider {
	return &metricsMiddleware{
		counter:  counter,
		latency:  latency,
		provider: provider,
	}
}

func (mm *metricsMiddleware) Prepare(ctx context.Context, cfg prep.Config) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "prepare").Add(1)
		mm.latency.With("method", "prepare").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.provider.Prepare(ctx, cfg)
}

func (mm *metricsMiddleware) Score(ctx context.Context, ligand []byte) (float64, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "score").Add(1)
		mm.latency.With("method", "score").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.provider.Score(ctx, ligand)
}

func (mm *metricsMiddleware) WritePose(ctx context.Context, itemID, outputDir string) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "write-pose").Add(1)
		mm.latency.With("method", "write-pose").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.provider.WritePose(ctx, itemID, outputDir)
}
