package telemetry

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/coachpo/spawnpool/pkg/pool"
)

// PoolGauges exports the latest published pool snapshot of each scene as observable gauges.
// Scenes publish from their own goroutines; the SDK reads on its own schedule.
type PoolGauges struct {
	mu     sync.Mutex
	latest map[string]pool.Snapshot

	free         metric.Int64ObservableGauge
	spawned      metric.Int64ObservableGauge
	frame        metric.Float64Histogram
	registration metric.Registration
}

// NewPoolGauges registers the pool gauges and frame histogram on meter.
func NewPoolGauges(meter metric.Meter) (*PoolGauges, error) {
	g := &PoolGauges{
		mu:           sync.Mutex{},
		latest:       make(map[string]pool.Snapshot),
		free:         nil,
		spawned:      nil,
		frame:        nil,
		registration: nil,
	}

	var err error
	g.free, err = meter.Int64ObservableGauge(MetricPoolFree,
		metric.WithDescription("Free instances waiting in a pool"),
		metric.WithUnit("{instance}"))
	if err != nil {
		return nil, fmt.Errorf("create %s gauge: %w", MetricPoolFree, err)
	}
	g.spawned, err = meter.Int64ObservableGauge(MetricPoolSpawned,
		metric.WithDescription("Tracked spawned instances of a pool"),
		metric.WithUnit("{instance}"))
	if err != nil {
		return nil, fmt.Errorf("create %s gauge: %w", MetricPoolSpawned, err)
	}
	g.frame, err = meter.Float64Histogram(MetricFrameDuration,
		metric.WithDescription("Time spent running one simulated frame"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, fmt.Errorf("create %s histogram: %w", MetricFrameDuration, err)
	}
	g.registration, err = meter.RegisterCallback(g.observe, g.free, g.spawned)
	if err != nil {
		return nil, fmt.Errorf("register pool gauge callback: %w", err)
	}
	return g, nil
}

// Publish replaces the snapshot reported for scene.
func (g *PoolGauges) Publish(scene string, snap pool.Snapshot) {
	if g == nil {
		return
	}
	snap.Pools = slices.Clone(snap.Pools)
	g.mu.Lock()
	g.latest[scene] = snap
	g.mu.Unlock()
}

// RecordFrame records how long one frame of scene took.
func (g *PoolGauges) RecordFrame(ctx context.Context, scene string, elapsed time.Duration) {
	if g == nil {
		return
	}
	g.frame.Record(ctx, float64(elapsed)/float64(time.Millisecond),
		metric.WithAttributes(AttrScene.String(scene)))
}

// Close unregisters the gauge callback.
func (g *PoolGauges) Close() error {
	if g == nil || g.registration == nil {
		return nil
	}
	return g.registration.Unregister()
}

func (g *PoolGauges) observe(_ context.Context, o metric.Observer) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for scene, snap := range g.latest {
		for _, stats := range snap.Pools {
			name := stats.Name
			if name == "" {
				name = stats.Template.String()
			}
			attrs := metric.WithAttributes(PoolAttributes(scene, name)...)
			o.ObserveInt64(g.free, int64(stats.Free), attrs)
			o.ObserveInt64(g.spawned, int64(stats.Spawned), attrs)
		}
	}
	return nil
}
