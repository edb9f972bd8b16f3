package pool

import (
	"github.com/coachpo/spawnpool/internal/observability"
	"github.com/coachpo/spawnpool/pkg/scene"
)

// Option configures a PoolManager.
type Option func(*PoolManager)

// WithLogger injects the logger used for teardown and leak reports.
func WithLogger(logger observability.Logger) Option {
	return func(pm *PoolManager) {
		pm.log = observability.Or(logger)
	}
}

// WithMetrics attaches prometheus counters. A nil value disables them.
func WithMetrics(metrics *Metrics) Option {
	return func(pm *PoolManager) {
		pm.metrics = metrics
	}
}

// WithHoldingArea parents every free instance under holder. NilID keeps them at the scene root.
func WithHoldingArea(holder scene.ID) Option {
	return func(pm *PoolManager) {
		pm.holding = holder
	}
}

// WithName labels the manager in logs and snapshots.
func WithName(name string) Option {
	return func(pm *PoolManager) {
		pm.name = name
	}
}

// WithTemplateNamer resolves human-readable template names for snapshots.
func WithTemplateNamer(namer func(scene.ID) string) Option {
	return func(pm *PoolManager) {
		pm.namer = namer
	}
}

// SpawnOption configures a single Spawn call.
type SpawnOption func(*spawnConfig)

type spawnConfig struct {
	parent     scene.ID
	at         scene.Transform
	createPool bool
}

func newSpawnConfig(opts []SpawnOption) spawnConfig {
	cfg := spawnConfig{
		parent:     scene.NilID,
		at:         scene.Origin(),
		createPool: false,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	cfg.at = cfg.at.Normalized()
	return cfg
}

// WithParent parents the spawned instance under parent.
func WithParent(parent scene.ID) SpawnOption {
	return func(cfg *spawnConfig) {
		cfg.parent = parent
	}
}

// WithPosition places the spawned instance at pos.
func WithPosition(pos scene.Vec3) SpawnOption {
	return func(cfg *spawnConfig) {
		cfg.at.Position = pos
	}
}

// WithRotation orients the spawned instance.
func WithRotation(rot scene.Quat) SpawnOption {
	return func(cfg *spawnConfig) {
		cfg.at.Rotation = rot
	}
}

// WithTransform sets position and rotation together.
func WithTransform(at scene.Transform) SpawnOption {
	return func(cfg *spawnConfig) {
		cfg.at = at
	}
}

// CreatePoolIfNeeded registers an empty pool for the template when none exists, so the spawned
// instance is tracked and returns to the pool on Recycle.
func CreatePoolIfNeeded() SpawnOption {
	return func(cfg *spawnConfig) {
		cfg.createPool = true
	}
}
