package pool

import (
	"cmp"
	"slices"

	"github.com/sourcegraph/conc/panics"

	"github.com/coachpo/spawnpool/errs"
	"github.com/coachpo/spawnpool/internal/observability"
	"github.com/coachpo/spawnpool/pkg/scene"
)

// RecycleAll recycles every spawned instance of template in spawn order and returns how many
// instances left the spawned set.
func (pm *PoolManager) RecycleAll(template scene.ID) int {
	if pm.spawnedCount[template] == 0 {
		return 0
	}
	return pm.recycleTargets(pm.appendSpawned(make([]scene.ID, 0, pm.spawnedCount[template]), template, true))
}

// RecycleAllTemplates recycles every spawned instance of every template in spawn order.
func (pm *PoolManager) RecycleAllTemplates() int {
	if len(pm.spawned) == 0 {
		return 0
	}
	return pm.recycleTargets(pm.appendSpawned(make([]scene.ID, 0, len(pm.spawned)), scene.NilID, false))
}

// DestroyPooled destroys every free instance of template and empties its free list. The pool
// itself stays registered. Spawned instances are untouched.
func (pm *PoolManager) DestroyPooled(template scene.ID) error {
	failures := pm.destroyPooled(template)
	return observability.AggregateErrors(pm.log, "destroy pooled", failures,
		observability.F("pool", pm.name),
		observability.F("template", template))
}

// DestroyAll recycles every spawned instance of template and then destroys its free list.
func (pm *PoolManager) DestroyAll(template scene.ID) error {
	pm.RecycleAll(template)
	return pm.DestroyPooled(template)
}

// DestroyAllTemplates recycles everything and destroys every free list in pool creation order.
// Failures never stop the teardown; they are returned together.
func (pm *PoolManager) DestroyAllTemplates() error {
	pm.RecycleAllTemplates()
	templates := slices.Clone(pm.templates)
	var failures []error
	for _, template := range templates {
		failures = append(failures, pm.destroyPooled(template)...)
	}
	return observability.AggregateErrors(pm.log, "destroy all templates", failures,
		observability.F("pool", pm.name),
		observability.F("templates", len(templates)))
}

// appendSpawned appends spawned instances to buf in spawn order, filtered to template when filter
// is set. Only the appended tail is sorted.
func (pm *PoolManager) appendSpawned(buf []scene.ID, template scene.ID, filter bool) []scene.ID {
	start := len(buf)
	for id, rec := range pm.spawned {
		if filter && rec.template != template {
			continue
		}
		buf = append(buf, id)
	}
	slices.SortFunc(buf[start:], func(a, b scene.ID) int {
		return cmp.Compare(pm.spawned[a].seq, pm.spawned[b].seq)
	})
	return buf
}

func (pm *PoolManager) recycleTargets(targets []scene.ID) int {
	recycled := 0
	for _, id := range targets {
		if !pm.IsSpawned(id) {
			continue
		}
		// Tracked instances never reach the destroy path, so Recycle cannot fail here.
		_ = pm.Recycle(id)
		recycled++
	}
	return recycled
}

func (pm *PoolManager) destroyPooled(template scene.ID) []error {
	list, ok := pm.free[template]
	if !ok || list.len() == 0 {
		return nil
	}
	var failures []error
	for _, id := range list.drain() {
		delete(pm.pooledBy, id)
		if err := pm.destroy(id); err != nil {
			failures = append(failures, err)
		}
	}
	return failures
}

// destroy asks the host to destroy id, converting panics into errors.
func (pm *PoolManager) destroy(id scene.ID) error {
	var err error
	var pc panics.Catcher
	pc.Try(func() {
		err = pm.host.Destroy(id)
	})
	if recovered := pc.Recovered(); recovered != nil {
		err = recovered.AsError()
	}
	if err != nil {
		pm.metrics.incDestroy(resultFailed)
		return errs.New("pool/destroy", errs.CodeHost,
			errs.WithMessage("host failed to destroy instance"),
			errs.WithField("instance", id.String()),
			errs.WithCause(err))
	}
	pm.metrics.incDestroy(resultOK)
	return nil
}
