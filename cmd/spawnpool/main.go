// Command spawnpool runs pool-engine simulations and validates their configuration.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sourcegraph/conc"
	"github.com/spf13/cobra"

	"github.com/coachpo/spawnpool/internal/config"
	"github.com/coachpo/spawnpool/internal/observability"
	"github.com/coachpo/spawnpool/internal/scenario"
	"github.com/coachpo/spawnpool/internal/sim"
	"github.com/coachpo/spawnpool/internal/telemetry"
	"github.com/coachpo/spawnpool/pkg/pool"
)

var version = "0.1.0"

const (
	defaultConfigPath        = "config/app.yaml"
	metricsShutdownTimeout   = 5 * time.Second
	metricsReadHeaderTimeout = 5 * time.Second
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type runFlags struct {
	configPath  string
	scenes      int
	frames      int
	fps         float64
	script      string
	metricsAddr string
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "spawnpool",
		Short:         "spawnpool - object pool simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "spawnpool v%s (%s %s/%s)\n",
				version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	})

	var flags runFlags
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the frame-loop simulation and print per-scene reports",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			return runSimulation(cmd.Context(), cfg, flags.metricsAddr, cmd.OutOrStdout())
		},
	}
	runCmd.Flags().StringVarP(&flags.configPath, "config", "c", defaultConfigPath, "Path to application configuration file")
	runCmd.Flags().IntVar(&flags.scenes, "scenes", 0, "Number of concurrent scenes (overrides config)")
	runCmd.Flags().IntVar(&flags.frames, "frames", 0, "Frames to simulate per scene (overrides config)")
	runCmd.Flags().Float64Var(&flags.fps, "fps", 0, "Frame rate cap; 0 runs unthrottled (overrides config)")
	runCmd.Flags().StringVar(&flags.script, "script", "", "JavaScript workload (overrides config)")
	runCmd.Flags().StringVar(&flags.metricsAddr, "metrics-addr", "", "Serve prometheus metrics on this address while running")
	root.AddCommand(runCmd)

	var validatePath string
	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration and compile the configured workload script",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Context(), validatePath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "config ok: env=%s pools=%d scenes=%d frames=%d\n",
				cfg.Environment, len(cfg.Pools), cfg.Simulation.Scenes, cfg.Simulation.Frames)
			if cfg.Simulation.Script == "" {
				return nil
			}
			script, err := scenario.Compile(cfg.Simulation.Script)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "script ok: name=%s templates=%v sha256=%s\n",
				script.Name, script.Metadata.Templates, script.Hash)
			return nil
		},
	}
	validateCmd.Flags().StringVarP(&validatePath, "config", "c", defaultConfigPath, "Path to application configuration file")
	root.AddCommand(validateCmd)

	return root
}

func loadConfig(cmd *cobra.Command, flags runFlags) (config.AppConfig, error) {
	cfg, err := config.LoadOrDefault(cmd.Context(), flags.configPath)
	if err != nil {
		return config.AppConfig{}, fmt.Errorf("load config: %w", err)
	}
	changed := cmd.Flags().Changed
	if changed("scenes") {
		cfg.Simulation.Scenes = flags.scenes
	}
	if changed("frames") {
		cfg.Simulation.Frames = flags.frames
	}
	if changed("fps") {
		cfg.Simulation.FPS = flags.fps
	}
	if changed("script") {
		cfg.Simulation.Script = flags.script
	}
	if err := cfg.Validate(); err != nil {
		return config.AppConfig{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func runSimulation(ctx context.Context, cfg config.AppConfig, metricsAddr string, out io.Writer) error {
	logger, syncLogs, err := observability.NewZapLogger(observability.ZapOptions{
		Level:       cfg.Logging.Level,
		Encoding:    cfg.Logging.Encoding,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		return err
	}
	defer func() { _ = syncLogs() }()
	observability.SetLogger(logger)
	defer observability.SetLogger(nil)

	provider, err := telemetry.NewProvider(ctx, telemetry.FromAppConfig(cfg))
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		if shutdownErr := provider.Shutdown(context.Background()); shutdownErr != nil {
			logger.Warn("telemetry shutdown failed", observability.F("error", shutdownErr))
		}
	}()
	gauges, err := telemetry.NewPoolGauges(provider.Meter())
	if err != nil {
		return err
	}
	defer func() { _ = gauges.Close() }()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	metrics := pool.NewMetrics(registry)

	var wg conc.WaitGroup
	if metricsAddr != "" {
		server := &http.Server{
			Addr:              metricsAddr,
			Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), //nolint:exhaustruct
			ReadHeaderTimeout: metricsReadHeaderTimeout,
		}
		wg.Go(func() {
			logger.Info("metrics server listening", observability.F("addr", metricsAddr))
			if serveErr := server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
				logger.Error("metrics server failed", observability.F("error", serveErr))
			}
		})
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
			wg.Wait()
		}()
	}

	var script *scenario.Script
	if cfg.Simulation.Script != "" {
		script, err = scenario.Compile(cfg.Simulation.Script)
		if err != nil {
			return err
		}
		logger.Info("workload script loaded",
			observability.F("name", script.Name),
			observability.F("path", script.Path))
	}

	logger.Info("simulation starting",
		observability.F("env", cfg.Environment),
		observability.F("scenes", cfg.Simulation.Scenes),
		observability.F("frames", cfg.Simulation.Frames),
		observability.F("fps", cfg.Simulation.FPS))

	reports, runErr := sim.Run(ctx, sim.Options{
		Config:  cfg,
		Script:  script,
		Metrics: metrics,
		Gauges:  gauges,
		Logger:  logger,
	})
	if writeErr := sim.WriteReports(out, reports); writeErr != nil {
		return errors.Join(runErr, writeErr)
	}
	return runErr
}
