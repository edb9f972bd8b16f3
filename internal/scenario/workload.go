package scenario

import (
	"context"
	"fmt"

	"github.com/coachpo/spawnpool/errs"
	"github.com/coachpo/spawnpool/pkg/pool"
	"github.com/coachpo/spawnpool/pkg/scene"
)

// Workload advances one scene by a frame.
type Workload interface {
	Frame(ctx context.Context, frame int) error
	Close()
}

// Resolver maps template names to handles. scenegraph.Graph implements it.
type Resolver interface {
	Lookup(name string) (scene.ID, bool)
}

// Pools exposes a PoolManager to workloads through template names and textual handles.
type Pools struct {
	pm       *pool.PoolManager
	resolver Resolver
}

// NewPools binds pm to resolver.
func NewPools(pm *pool.PoolManager, resolver Resolver) *Pools {
	return &Pools{pm: pm, resolver: resolver}
}

// SpawnArgs are the optional placement arguments of Spawn.
type SpawnArgs struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Parent     string  `json:"parent"`
	CreatePool bool    `json:"createPool"`
}

func (p *Pools) template(name string) (scene.ID, error) {
	id, ok := p.resolver.Lookup(name)
	if !ok {
		return scene.NilID, errs.New("scenario", errs.CodeNotFound,
			errs.WithMessage("template not registered"),
			errs.WithField("template", name),
			errs.WithCause(ErrUnknownTemplate))
	}
	return id, nil
}

func parseHandle(raw string) (scene.ID, error) {
	id, err := scene.ParseID(raw)
	if err != nil {
		return scene.NilID, errs.New("scenario", errs.CodeInvalid,
			errs.WithMessage("malformed instance handle"),
			errs.WithCause(err))
	}
	return id, nil
}

// CreatePool prewarms the named template.
func (p *Pools) CreatePool(name string, size int) error {
	template, err := p.template(name)
	if err != nil {
		return err
	}
	return p.pm.CreatePool(template, size)
}

// Spawn spawns the named template and returns the instance handle.
func (p *Pools) Spawn(name string, args SpawnArgs) (string, error) {
	template, err := p.template(name)
	if err != nil {
		return "", err
	}
	opts := []pool.SpawnOption{pool.WithPosition(scene.Vec3{X: args.X, Y: args.Y, Z: args.Z})}
	if args.Parent != "" {
		parent, err := p.template(args.Parent)
		if err != nil {
			return "", err
		}
		opts = append(opts, pool.WithParent(parent))
	}
	if args.CreatePool {
		opts = append(opts, pool.CreatePoolIfNeeded())
	}
	id, err := p.pm.Spawn(template, opts...)
	if err != nil {
		return "", fmt.Errorf("spawn %s: %w", name, err)
	}
	return id.String(), nil
}

// Recycle recycles the instance behind handle.
func (p *Pools) Recycle(handle string) error {
	id, err := parseHandle(handle)
	if err != nil {
		return err
	}
	return p.pm.Recycle(id)
}

// RecycleAll recycles every spawned instance of the named template.
func (p *Pools) RecycleAll(name string) (int, error) {
	template, err := p.template(name)
	if err != nil {
		return 0, err
	}
	return p.pm.RecycleAll(template), nil
}

// RecycleAllTemplates recycles every spawned instance.
func (p *Pools) RecycleAllTemplates() int {
	return p.pm.RecycleAllTemplates()
}

// DestroyPooled destroys the free instances of the named template.
func (p *Pools) DestroyPooled(name string) error {
	template, err := p.template(name)
	if err != nil {
		return err
	}
	return p.pm.DestroyPooled(template)
}

// DestroyAll recycles and destroys everything of the named template.
func (p *Pools) DestroyAll(name string) error {
	template, err := p.template(name)
	if err != nil {
		return err
	}
	return p.pm.DestroyAll(template)
}

// CountPooled counts free instances of the named template.
func (p *Pools) CountPooled(name string) (int, error) {
	template, err := p.template(name)
	if err != nil {
		return 0, err
	}
	return p.pm.CountPooled(template), nil
}

// CountSpawned counts tracked spawned instances of the named template.
func (p *Pools) CountSpawned(name string) (int, error) {
	template, err := p.template(name)
	if err != nil {
		return 0, err
	}
	return p.pm.CountSpawned(template), nil
}

// CountAllPooled counts free instances across templates.
func (p *Pools) CountAllPooled() int {
	return p.pm.CountAllPooled()
}

// IsSpawned reports whether handle is tracked as spawned.
func (p *Pools) IsSpawned(handle string) (bool, error) {
	id, err := parseHandle(handle)
	if err != nil {
		return false, err
	}
	return p.pm.IsSpawned(id), nil
}
