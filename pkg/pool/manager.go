// Package pool implements the spawn/recycle registry that reuses host objects instead of
// destroying them.
package pool

import (
	"errors"

	"github.com/coachpo/spawnpool/errs"
	"github.com/coachpo/spawnpool/internal/observability"
	"github.com/coachpo/spawnpool/pkg/scene"
)

var (
	// ErrPoolManagerClosed indicates the manager is shut down and cannot service requests.
	ErrPoolManagerClosed = errs.New("pool", errs.CodeUnavailable, errs.WithMessage("pool manager closed"))
	// ErrInvalidTemplate indicates a spawn was requested for the nil template.
	ErrInvalidTemplate = errs.New("pool/spawn", errs.CodeInvalid, errs.WithMessage("nil template"))
)

// PoolManager tracks free instances per template and the template of every spawned instance.
// An instance is either free (in exactly one free list) or spawned, never both.
//
// A PoolManager has a single logical owner. It is not safe for concurrent use; run one manager per
// goroutine and share only the Metrics and logger between them.
//
//nolint:revive // PoolManager matches the name used across the codebase.
type PoolManager struct {
	host    scene.Host
	holding scene.ID
	name    string
	namer   func(scene.ID) string
	log     observability.Logger
	metrics *Metrics
	debug   *debugState

	free      map[scene.ID]*freeList
	templates []scene.ID
	pooledBy  map[scene.ID]scene.ID

	spawned      map[scene.ID]spawnRecord
	spawnedCount map[scene.ID]int
	seq          uint64
	untracked    uint64

	closed bool
}

type spawnRecord struct {
	template scene.ID
	seq      uint64
}

// NewPoolManager constructs an empty registry driving host.
func NewPoolManager(host scene.Host, opts ...Option) *PoolManager {
	pm := &PoolManager{
		host:         host,
		holding:      scene.NilID,
		name:         "",
		namer:        nil,
		log:          observability.Log(),
		metrics:      nil,
		debug:        nil,
		free:         make(map[scene.ID]*freeList),
		templates:    nil,
		pooledBy:     make(map[scene.ID]scene.ID),
		spawned:      make(map[scene.ID]spawnRecord),
		spawnedCount: make(map[scene.ID]int),
		seq:          0,
		untracked:    0,
		closed:       false,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(pm)
		}
	}
	pm.debug = newDebugState(pm.name)
	return pm
}

// CreatePool ensures a free list exists for template and grows it to at least initialSize
// instances. Pools never shrink here. Instances created before a host failure stay pooled.
func (pm *PoolManager) CreatePool(template scene.ID, initialSize int) error {
	if pm.closed {
		return ErrPoolManagerClosed
	}
	if template.IsNil() {
		return nil
	}
	if initialSize < 0 {
		initialSize = 0
	}

	list := pm.ensurePool(template)
	for list.len() < initialSize {
		instance, err := pm.create(template, scene.Origin(), pm.holding)
		if err != nil {
			return err
		}
		pm.host.SetActive(instance, false)
		pm.pushFree(template, list, instance)
		pm.metrics.incPrewarm()
	}
	return nil
}

// Spawn hands out an instance of template, reusing the oldest free one when available.
//
// The instance is tracked, and so returns to the pool on Recycle, only when template has a pool.
// CreatePoolIfNeeded registers an empty pool first; without it a never-pooled template yields an
// untracked instance that Recycle destroys.
func (pm *PoolManager) Spawn(template scene.ID, opts ...SpawnOption) (scene.ID, error) {
	if pm.closed {
		return scene.NilID, ErrPoolManagerClosed
	}
	if template.IsNil() {
		return scene.NilID, ErrInvalidTemplate
	}
	cfg := newSpawnConfig(opts)

	list, pooled := pm.free[template]
	if !pooled && cfg.createPool {
		list = pm.ensurePool(template)
		pooled = true
	}

	source := sourceUntracked
	instance := scene.NilID
	if pooled {
		source = sourceCreated
		if id, ok := pm.takeFree(list); ok {
			instance = id
			source = sourceReused
		}
	}
	if instance.IsNil() {
		created, err := pm.create(template, cfg.at, cfg.parent)
		if err != nil {
			return scene.NilID, err
		}
		instance = created
	}

	pm.host.SetParent(instance, cfg.parent)
	pm.host.SetTransform(instance, cfg.at)
	pm.host.SetActive(instance, true)

	if pooled {
		pm.seq++
		pm.spawned[instance] = spawnRecord{template: template, seq: pm.seq}
		pm.spawnedCount[template]++
		pm.debug.recordSpawn(instance)
	} else {
		pm.untracked++
	}
	pm.metrics.incSpawn(source)
	return instance, nil
}

// Recycle returns a spawned instance to its template's pool. Anything the registry does not
// track as spawned is destroyed instead, after being pulled out of any free list it sits in.
// Recycling NilID is a no-op.
func (pm *PoolManager) Recycle(instance scene.ID) error {
	if instance.IsNil() {
		return nil
	}
	if rec, ok := pm.spawned[instance]; ok {
		pm.forgetSpawned(instance, rec)
		if !scene.Alive(pm.host, instance) {
			pm.metrics.incRecycle(resultDropped)
			pm.log.Debug("pool manager: dropped externally destroyed instance",
				observability.F("pool", pm.name),
				observability.F("instance", instance),
				observability.F("template", rec.template))
			return nil
		}
		pm.pushFree(rec.template, pm.ensurePool(rec.template), instance)
		pm.host.SetParent(instance, pm.holding)
		pm.host.SetActive(instance, false)
		pm.metrics.incRecycle(resultPooled)
		return nil
	}

	if template, ok := pm.pooledBy[instance]; ok {
		pm.free[template].remove(instance)
		delete(pm.pooledBy, instance)
		pm.metrics.incDoubleRecycle()
		pm.log.Warn("pool manager: recycle of an instance that is already pooled",
			observability.F("pool", pm.name),
			observability.F("instance", instance),
			observability.F("template", template))
	}
	pm.metrics.incRecycle(resultDestroyed)
	return pm.destroy(instance)
}

// IsSpawned reports whether instance is currently tracked as spawned.
func (pm *PoolManager) IsSpawned(instance scene.ID) bool {
	_, ok := pm.spawned[instance]
	return ok
}

func (pm *PoolManager) ensurePool(template scene.ID) *freeList {
	if list, ok := pm.free[template]; ok {
		return list
	}
	list := newFreeList()
	pm.free[template] = list
	pm.templates = append(pm.templates, template)
	return list
}

func (pm *PoolManager) pushFree(template scene.ID, list *freeList, instance scene.ID) {
	list.push(instance)
	pm.pooledBy[instance] = template
}

// takeFree pops the oldest free instance still alive on the host.
func (pm *PoolManager) takeFree(list *freeList) (scene.ID, bool) {
	for {
		instance, ok := list.pop()
		if !ok {
			return scene.NilID, false
		}
		delete(pm.pooledBy, instance)
		if scene.Alive(pm.host, instance) {
			return instance, true
		}
		pm.log.Debug("pool manager: skipped externally destroyed free instance",
			observability.F("pool", pm.name),
			observability.F("instance", instance))
	}
}

func (pm *PoolManager) forgetSpawned(instance scene.ID, rec spawnRecord) {
	delete(pm.spawned, instance)
	if n := pm.spawnedCount[rec.template] - 1; n > 0 {
		pm.spawnedCount[rec.template] = n
	} else {
		delete(pm.spawnedCount, rec.template)
	}
	pm.debug.recordRelease(instance)
}

func (pm *PoolManager) create(template scene.ID, at scene.Transform, parent scene.ID) (scene.ID, error) {
	instance, err := pm.host.Create(template, at, parent)
	if err == nil && instance.IsNil() {
		err = errors.New("host returned nil instance")
	}
	if err != nil {
		return scene.NilID, errs.New("pool/create", errs.CodeHost,
			errs.WithMessage("host failed to create instance"),
			errs.WithField("template", template.String()),
			errs.WithCause(err))
	}
	return instance, nil
}
