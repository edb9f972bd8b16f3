package scenario

import (
	"context"
	"fmt"

	"github.com/dop251/goja"

	"github.com/coachpo/spawnpool/internal/observability"
)

// Runner executes a Script's onFrame export against one scene. It owns a private VM and must
// stay on a single goroutine.
type Runner struct {
	script  *Script
	rt      *goja.Runtime
	onFrame goja.Callable
	pools   *goja.Object
}

// NewRunner instantiates script in a fresh VM bound to pools.
func NewRunner(script *Script, pools *Pools, logger observability.Logger) (*Runner, error) {
	if script == nil {
		return nil, fmt.Errorf("scenario runner: script required")
	}
	rt := goja.New()
	exports, err := runModule(rt, script.Program, observability.Or(logger))
	if err != nil {
		return nil, fmt.Errorf("scenario runner: execute %s: %w", script.Path, err)
	}
	value := exports.Get("onFrame")
	if value == nil || goja.IsUndefined(value) || goja.IsNull(value) {
		return nil, ErrFunctionMissing
	}
	onFrame, ok := goja.AssertFunction(value)
	if !ok {
		return nil, fmt.Errorf("scenario runner: export onFrame not callable")
	}
	bound, err := bindPools(rt, pools)
	if err != nil {
		return nil, err
	}
	return &Runner{script: script, rt: rt, onFrame: onFrame, pools: bound}, nil
}

// Frame calls onFrame(pools, frame). Script exceptions, including failed pool calls, are
// returned as errors.
func (r *Runner) Frame(ctx context.Context, frame int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := r.onFrame(goja.Undefined(), r.pools, r.rt.ToValue(frame)); err != nil {
		return fmt.Errorf("scenario %s: frame %d: %w", r.script.Name, frame, err)
	}
	return nil
}

// Close interrupts any script still running in the VM.
func (r *Runner) Close() {
	if r == nil {
		return
	}
	r.rt.Interrupt("scenario runner closed")
}

func bindPools(rt *goja.Runtime, pools *Pools) (*goja.Object, error) {
	obj := rt.NewObject()
	spawn := func(call goja.FunctionCall) goja.Value {
		var args SpawnArgs
		if opt := call.Argument(1); !goja.IsUndefined(opt) && !goja.IsNull(opt) {
			if err := rt.ExportTo(opt, &args); err != nil {
				panic(rt.NewGoError(fmt.Errorf("spawn options: %w", err)))
			}
		}
		handle, err := pools.Spawn(call.Argument(0).String(), args)
		if err != nil {
			panic(rt.NewGoError(err))
		}
		return rt.ToValue(handle)
	}
	bindings := map[string]any{
		"createPool":          pools.CreatePool,
		"spawn":               spawn,
		"recycle":             pools.Recycle,
		"recycleAll":          pools.RecycleAll,
		"recycleAllTemplates": pools.RecycleAllTemplates,
		"destroyPooled":       pools.DestroyPooled,
		"destroyAll":          pools.DestroyAll,
		"countPooled":         pools.CountPooled,
		"countSpawned":        pools.CountSpawned,
		"countAllPooled":      pools.CountAllPooled,
		"isSpawned":           pools.IsSpawned,
	}
	for name, fn := range bindings {
		if err := obj.Set(name, fn); err != nil {
			return nil, fmt.Errorf("scenario runner: bind %s: %w", name, err)
		}
	}
	return obj, nil
}
