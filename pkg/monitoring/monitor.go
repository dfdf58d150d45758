// Package monitoring samples the job process's resource usage while the
// screen runs. Values are logged and exported as Prometheus gauges.
package monitoring

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shirou/gopsutil/v3/process"
)

// Metrics is one sample of the job process.
type Metrics struct {
	CPUPercent  float64   `json:"cpu_percent"`
	MemoryBytes uint64    `json:"memory_bytes"`
	ThreadCount int32     `json:"thread_count"`
	Timestamp   time.Time `json:"timestamp"`
}

// Monitor periodically collects process metrics until its context ends.
type Monitor struct {
	proc     *process.Process
	interval time.Duration
	logger   *slog.Logger

	cpuGauge    prometheus.Gauge
	memGauge    prometheus.Gauge
	threadGauge prometheus.Gauge
}

// New builds a monitor for the given PID sampling at interval. Its gauges
// register with reg; pass a per-run registry so repeated runs in one
// process do not collide.
func New(pid int32, interval time.Duration, reg prometheus.Registerer, logger *slog.Logger) (*Monitor, error) {
	proc, err := process.NewProcess(pid)
	if err != nil {
		return nil, err
	}

	return &Monitor{
		proc:     proc,
		interval: interval,
		logger:   logger,
		cpuGauge: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: "molscreen",
			Name:      "process_cpu_percent",
			Help:      "CPU usage of the screening process.",
		}),
		memGauge: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: "molscreen",
			Name:      "process_memory_bytes",
			Help:      "Resident memory of the screening process.",
		}),
		threadGauge: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: "molscreen",
			Name:      "process_threads",
			Help:      "Thread count of the screening process.",
		}),
	}, nil
}

// Collect takes one sample. Individual probe failures leave the field zero
// rather than failing the sample.
func (m *Monitor) Collect(ctx context.Context) Metrics {
	metrics := Metrics{Timestamp: time.Now()}

	if cpuPercent, err := m.proc.CPUPercentWithContext(ctx); err == nil {
		metrics.CPUPercent = cpuPercent
	}
	if memInfo, err := m.proc.MemoryInfoWithContext(ctx); err == nil {
		metrics.MemoryBytes = memInfo.RSS
	}
	if numThreads, err := m.proc.NumThreadsWithContext(ctx); err == nil {
		metrics.ThreadCount = numThreads
	}

	return metrics
}

// Run samples until ctx is done. Always returns nil so that a cancelled
// monitor does not fail the job's errgroup.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("stopping resource monitor")

			return nil
		case <-ticker.C:
			metrics := m.Collect(ctx)
			m.cpuGauge.Set(metrics.CPUPercent)
			m.memGauge.Set(float64(metrics.MemoryBytes))
			m.threadGauge.Set(float64(metrics.ThreadCount))

			m.logger.Debug("resource sample",
				slog.Float64("cpu_percent", metrics.CPUPercent),
				slog.Uint64("memory_bytes", metrics.MemoryBytes),
				slog.Int("threads", int(metrics.ThreadCount)),
			)
		}
	}
}
