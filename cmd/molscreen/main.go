package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	molscreen "github.com/molscreen/molscreen"
	"github.com/molscreen/molscreen/cli"
	"github.com/molscreen/molscreen/job"
	"github.com/molscreen/molscreen/pkg/archive"
	"github.com/molscreen/molscreen/pkg/events"
	"github.com/molscreen/molscreen/pkg/monitoring"
	"github.com/molscreen/molscreen/pkg/mqtt"
	"github.com/molscreen/molscreen/pkg/prometheus"
	"github.com/molscreen/molscreen/pkg/server"
	"github.com/molscreen/molscreen/prep"
	"github.com/molscreen/molscreen/result"
	"github.com/molscreen/molscreen/scoring/middleware"
	"github.com/molscreen/molscreen/scoring/wasm"
)

const (
	svcName       = "molscreen"
	envPrefixHTTP = "MOLSCREEN_HTTP_"
	pathEnv       = ".env"
)

type envConfig struct {
	LogLevel        string        `env:"MOLSCREEN_LOG_LEVEL"        envDefault:"info"`
	InstanceID      string        `env:"MOLSCREEN_INSTANCE_ID"`
	WASMModule      string        `env:"MOLSCREEN_WASM_MODULE"      envDefault:"scoring.wasm"`
	MQTTAddress     string        `env:"MOLSCREEN_MQTT_ADDRESS"`
	MQTTQoS         uint8         `env:"MOLSCREEN_MQTT_QOS"         envDefault:"2"`
	MQTTUsername    string        `env:"MOLSCREEN_MQTT_USERNAME"`
	MQTTPassword    string        `env:"MOLSCREEN_MQTT_PASSWORD"`
	MQTTTimeout     time.Duration `env:"MOLSCREEN_MQTT_TIMEOUT"     envDefault:"30s"`
	MonitorInterval time.Duration `env:"MOLSCREEN_MONITOR_INTERVAL" envDefault:"10s"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if _, err := os.Stat(pathEnv); err == nil {
		_ = godotenv.Load(pathEnv)
	}

	cfg := envConfig{}
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("failed to load configuration : %s", err.Error())
	}

	if cfg.InstanceID == "" {
		cfg.InstanceID = uuid.NewString()
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		log.Fatalf("failed to parse log level: %s", err.Error())
	}
	logHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	serverCfg := server.Config{}
	if err := env.ParseWithOptions(&serverCfg, env.Options{Prefix: envPrefixHTTP}); err != nil {
		log.Fatalf("failed to load %s HTTP server configuration : %s", svcName, err.Error())
	}

	archiveCfg := archive.Config{}
	if err := env.Parse(&archiveCfg); err != nil {
		log.Fatalf("failed to load archive configuration : %s", err.Error())
	}

	cli.SetRunner(&runner{
		cfg:        cfg,
		serverCfg:  serverCfg,
		archiveCfg: archiveCfg,
		logger:     logger,
	})

	rootCmd := &cobra.Command{
		Use:   svcName,
		Short: "Distributed virtual screening",
		Long:  `Screen a ligand library against a receptor and keep the best-scoring poses.`,
	}
	rootCmd.AddCommand(cli.NewScreenCmd())
	rootCmd.AddCommand(cli.NewCheckCmd())
	rootCmd.AddCommand(cli.NewWatchCmd())

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Fatal(err)
	}
}

// runner assembles and executes jobs for the CLI commands.
type runner struct {
	cfg        envConfig
	serverCfg  server.Config
	archiveCfg archive.Config
	logger     *slog.Logger
}

func (r *runner) Screen(ctx context.Context, configPath string) ([]result.Record, error) {
	cfg, err := molscreen.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	jobCfg, err := cfg.JobConfig()
	if err != nil {
		return nil, err
	}
	dockingCfg, err := cfg.DockingConfig()
	if err != nil {
		return nil, err
	}

	binary, err := os.ReadFile(r.cfg.WASMModule)
	if err != nil {
		return nil, fmt.Errorf("failed to read scoring module: %w", err)
	}

	reg := stdprometheus.NewRegistry()

	provider := wasm.NewProvider(binary, r.logger)
	provider = middleware.Logging(r.logger, provider)
	counter, latency := prometheus.MakeMetrics(reg, svcName, "scoring")
	provider = middleware.Metrics(counter, latency, provider)

	store, err := archive.New(r.archiveCfg)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := store.Close(); err != nil {
			r.logger.Warn("failed to close score archive", slog.Any("error", err))
		}
	}()

	if jobCfg.ID == "" {
		jobCfg.ID = uuid.NewString()
	}

	emitter := events.NewNop()
	if pubsub, err := r.connect(jobCfg.ID); err != nil {
		r.logger.Warn("failed to connect event stream, continuing without it", slog.Any("error", err))
	} else if pubsub != nil {
		defer func() {
			if err := pubsub.Disconnect(context.Background()); err != nil {
				r.logger.Warn("failed to disconnect event stream", slog.Any("error", err))
			}
		}()
		emitter = events.New(jobCfg.ID, pubsub, r.logger)
	}

	j := job.New(jobCfg, dockingCfg, provider, store, emitter, r.logger)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	hs := server.New(r.serverCfg, svcName, reg, r.logger)
	g.Go(func() error {
		return hs.Start(ctx)
	})

	mon, err := monitoring.New(int32(os.Getpid()), r.cfg.MonitorInterval, reg, r.logger)
	if err != nil {
		return nil, err
	}
	g.Go(func() error {
		return mon.Run(ctx)
	})

	var top []result.Record
	g.Go(func() error {
		defer cancel()
		var err error
		top, err = j.Run(ctx)

		return err
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return nil, err
	}

	return top, nil
}

func (r *runner) Check(configPath string) error {
	cfg, err := molscreen.LoadConfig(configPath)
	if err != nil {
		return err
	}
	dockingCfg, err := cfg.DockingConfig()
	if err != nil {
		return err
	}

	if err := dockingCfg.Validate(); err != nil {
		return err
	}

	return prep.CheckReceptor(dockingCfg)
}

func (r *runner) Watch(ctx context.Context, jobID string, handle mqtt.Handler) error {
	// No will for a watcher: it only listens, the job it follows owns the
	// offline status.
	pubsub, err := r.connect("")
	if err != nil {
		return err
	}
	if pubsub == nil {
		return errors.New("no MQTT broker configured, set MOLSCREEN_MQTT_ADDRESS")
	}
	defer func() {
		if err := pubsub.Disconnect(context.Background()); err != nil {
			r.logger.Warn("failed to disconnect event stream", slog.Any("error", err))
		}
	}()

	return events.Watch(ctx, jobID, pubsub, handle)
}

// connect opens the MQTT event stream. It returns nil without error when
// no broker address is configured; callers own the returned connection
// and must Disconnect it.
func (r *runner) connect(willJobID string) (mqtt.PubSub, error) {
	if r.cfg.MQTTAddress == "" {
		return nil, nil
	}

	return mqtt.NewPubSub(r.cfg.MQTTAddress, r.cfg.MQTTQoS, r.cfg.InstanceID,
		r.cfg.MQTTUsername, r.cfg.MQTTPassword, willJobID, r.cfg.MQTTTimeout, r.logger)
}
