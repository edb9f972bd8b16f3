package pool

import "github.com/coachpo/spawnpool/internal/observability"

// Close tears the registry down: outstanding spawned instances are reported, everything is
// recycled and destroyed, and later CreatePool or Spawn calls fail with ErrPoolManagerClosed.
// Closing twice is a no-op.
func (pm *PoolManager) Close() error {
	if pm.closed {
		return nil
	}
	pm.logOutstanding()
	err := pm.DestroyAllTemplates()
	pm.closed = true
	return err
}

// Closed reports whether Close has run.
func (pm *PoolManager) Closed() bool {
	return pm.closed
}

func (pm *PoolManager) logOutstanding() {
	remaining := len(pm.spawned)
	if remaining == 0 {
		return
	}
	pm.log.Warn("pool manager: closing with spawned instances outstanding",
		observability.F("pool", pm.name),
		observability.F("outstanding", remaining))
	for _, stack := range pm.debug.activeStacks() {
		pm.log.Debug("pool manager: leak candidate",
			observability.F("pool", pm.name),
			observability.F("stack", stack))
	}
}
