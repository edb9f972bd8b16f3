package scenario

import (
	"context"
	"math/rand"

	"github.com/coachpo/spawnpool/internal/config"
	"github.com/coachpo/spawnpool/internal/observability"
	"github.com/coachpo/spawnpool/pkg/pool"
	"github.com/coachpo/spawnpool/pkg/scene"
)

// Churn is the built-in workload: every frame it spawns a few instances of random templates and
// recycles each live instance with a fixed probability.
type Churn struct {
	pm        *pool.PoolManager
	templates []scene.ID
	cfg       config.ChurnConfig
	rng       *rand.Rand
	live      []scene.ID
	log       observability.Logger
}

// NewChurn builds a churn workload over templates. seedOffset separates scenes sharing a seed.
func NewChurn(pm *pool.PoolManager, templates []scene.ID, cfg config.ChurnConfig, seedOffset int64, logger observability.Logger) *Churn {
	return &Churn{
		pm:        pm,
		templates: templates,
		cfg:       cfg,
		// #nosec G404 -- workload randomness, not security sensitive.
		rng:  rand.New(rand.NewSource(cfg.Seed + seedOffset)),
		live: nil,
		log:  observability.Or(logger),
	}
}

// Frame spawns then recycles.
func (c *Churn) Frame(ctx context.Context, frame int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(c.templates) > 0 {
		for i := 0; i < c.cfg.SpawnPerFrame; i++ {
			template := c.templates[c.rng.Intn(len(c.templates))]
			pos := scene.Vec3{X: c.rng.Float64() * 100, Y: 0, Z: c.rng.Float64() * 100}
			id, err := c.pm.Spawn(template, pool.WithPosition(pos), pool.CreatePoolIfNeeded())
			if err != nil {
				return err
			}
			c.live = append(c.live, id)
		}
	}

	kept := c.live[:0]
	for _, id := range c.live {
		if c.rng.Float64() >= c.cfg.RecycleChance {
			kept = append(kept, id)
			continue
		}
		if err := c.pm.Recycle(id); err != nil {
			c.log.Warn("scenario: churn recycle failed",
				observability.F("frame", frame),
				observability.F("instance", id),
				observability.F("error", err))
		}
	}
	c.live = kept
	return nil
}

// Close is a no-op; the owning manager reclaims outstanding instances when it closes.
func (c *Churn) Close() {}

var (
	_ Workload = (*Churn)(nil)
	_ Workload = (*Runner)(nil)
)
