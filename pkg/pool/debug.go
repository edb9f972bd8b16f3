//go:build debug

package pool

import (
	"runtime/debug"

	"github.com/coachpo/spawnpool/pkg/scene"
)

type debugState struct {
	name   string
	stacks map[scene.ID]string
}

func newDebugState(name string) *debugState {
	return &debugState{
		name:   name,
		stacks: make(map[scene.ID]string),
	}
}

func (d *debugState) recordSpawn(id scene.ID) {
	if d == nil {
		return
	}
	d.stacks[id] = string(debug.Stack())
}

func (d *debugState) recordRelease(id scene.ID) {
	if d == nil {
		return
	}
	delete(d.stacks, id)
}

func (d *debugState) activeStacks() []string {
	if d == nil || len(d.stacks) == 0 {
		return nil
	}
	out := make([]string, 0, len(d.stacks))
	for id, stack := range d.stacks {
		out = append(out, d.name+" "+id.String()+"\n"+stack)
	}
	return out
}
