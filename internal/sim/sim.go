// Package sim runs independent scenes, each with its own scene graph and pool manager, through a
// paced frame loop.
package sim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	json "github.com/goccy/go-json"
	concpool "github.com/sourcegraph/conc/pool"
	"golang.org/x/time/rate"

	"github.com/coachpo/spawnpool/internal/config"
	"github.com/coachpo/spawnpool/internal/observability"
	"github.com/coachpo/spawnpool/internal/scenario"
	"github.com/coachpo/spawnpool/internal/scenegraph"
	"github.com/coachpo/spawnpool/internal/telemetry"
	"github.com/coachpo/spawnpool/pkg/pool"
	"github.com/coachpo/spawnpool/pkg/scene"
)

// Options configures a simulation run.
type Options struct {
	Config  config.AppConfig
	Script  *scenario.Script
	Metrics *pool.Metrics
	Gauges  *telemetry.PoolGauges
	Logger  observability.Logger
}

// Report summarises one scene.
type Report struct {
	Scene      string           `json:"scene"`
	Frames     int              `json:"frames"`
	Workload   string           `json:"workload"`
	Final      pool.Snapshot    `json:"final"`
	Graph      scenegraph.Stats `json:"graph"`
	Elapsed    time.Duration    `json:"elapsed_ns"`
	CloseError string           `json:"close_error,omitempty"`
}

// Run simulates every configured scene concurrently and returns their reports ordered by scene.
// The first scene failure cancels the others.
func Run(ctx context.Context, opts Options) ([]Report, error) {
	if err := opts.Config.Validate(); err != nil {
		return nil, fmt.Errorf("sim: %w", err)
	}
	logger := observability.Or(opts.Logger)
	scenes := opts.Config.Simulation.Scenes

	reports := make([]Report, scenes)
	workers := concpool.New().
		WithContext(ctx).
		WithCancelOnError().
		WithMaxGoroutines(scenes)
	for idx := 0; idx < scenes; idx++ {
		workers.Go(func(ctx context.Context) error {
			report, err := runScene(ctx, idx, opts, logger)
			reports[idx] = report
			return err
		})
	}
	if err := workers.Wait(); err != nil {
		return reports, fmt.Errorf("sim: %w", err)
	}
	return reports, nil
}

// SceneName names the scene at idx in logs, gauges, and reports.
func SceneName(idx int) string {
	return fmt.Sprintf("scene-%03d", idx)
}

func runScene(ctx context.Context, idx int, opts Options, logger observability.Logger) (Report, error) {
	cfg := opts.Config
	name := SceneName(idx)
	started := time.Now()
	report := Report{
		Scene:      name,
		Frames:     0,
		Workload:   "churn",
		Final:      pool.Snapshot{},
		Graph:      scenegraph.Stats{},
		Elapsed:    0,
		CloseError: "",
	}

	graph := scenegraph.New()
	holding := graph.AddNode(cfg.HoldingArea)
	templates := registerTemplates(graph, cfg, opts.Script)

	pm := pool.NewPoolManager(graph,
		pool.WithHoldingArea(holding),
		pool.WithLogger(logger),
		pool.WithMetrics(opts.Metrics),
		pool.WithName(name),
		pool.WithTemplateNamer(graph.Name),
	)

	frameErr := drive(ctx, idx, pm, graph, templates, opts, logger, &report)

	report.Final = pm.Stats()
	closeErr := pm.Close()
	if closeErr != nil {
		report.CloseError = closeErr.Error()
	}
	opts.Gauges.Publish(name, pm.Stats())
	report.Graph = graph.Stats()
	report.Elapsed = time.Since(started)

	logger.Info("sim: scene finished",
		observability.F("scene", name),
		observability.F("frames", report.Frames),
		observability.F("spawned", report.Final.TotalSpawned),
		observability.F("free", report.Final.TotalFree),
		observability.F("elapsed", report.Elapsed))
	return report, errors.Join(frameErr, closeErr)
}

func drive(ctx context.Context, idx int, pm *pool.PoolManager, graph *scenegraph.Graph,
	templates []scene.ID, opts Options, logger observability.Logger, report *Report,
) error {
	cfg := opts.Config
	name := report.Scene
	for _, spec := range cfg.Pools {
		template, _ := graph.Lookup(spec.Template)
		if err := pm.CreatePool(template, spec.InitialSize); err != nil {
			return fmt.Errorf("%s: prewarm %s: %w", name, spec.Template, err)
		}
	}

	var workload scenario.Workload
	if opts.Script != nil {
		runner, err := scenario.NewRunner(opts.Script, scenario.NewPools(pm, graph), logger)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		workload = runner
		report.Workload = opts.Script.Name
	} else {
		workload = scenario.NewChurn(pm, templates, cfg.Simulation.Churn, int64(idx), logger)
	}
	defer workload.Close()

	limiter := newLimiter(cfg.Simulation.FPS)
	for frame := 0; frame < cfg.Simulation.Frames; frame++ {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%s: frame %d: %w", name, frame, err)
		}
		start := time.Now()
		if err := workload.Frame(ctx, frame); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		opts.Gauges.RecordFrame(ctx, name, time.Since(start))
		opts.Gauges.Publish(name, pm.Stats())
		report.Frames++
	}
	return nil
}

// registerTemplates adds the configured and script-declared templates to graph, in that order.
func registerTemplates(graph *scenegraph.Graph, cfg config.AppConfig, script *scenario.Script) []scene.ID {
	names := cfg.TemplateNames()
	if script != nil {
		names = append(names, script.Metadata.Templates...)
	}
	seen := make(map[string]struct{}, len(names))
	ids := make([]scene.ID, 0, len(names))
	for _, n := range names {
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		ids = append(ids, graph.AddTemplate(n))
	}
	return ids
}

// newLimiter paces frames at fps; fps <= 0 runs unthrottled.
func newLimiter(fps float64) *rate.Limiter {
	if fps <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(fps), 1)
}

// WriteReports writes reports to w as indented JSON.
func WriteReports(w io.Writer, reports []Report) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(reports)
}
