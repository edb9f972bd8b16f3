//go:build !debug

package pool

import "github.com/coachpo/spawnpool/pkg/scene"

type debugState struct{}

func newDebugState(string) *debugState { return nil }

func (d *debugState) recordSpawn(scene.ID) {}

func (d *debugState) recordRelease(scene.ID) {}

func (d *debugState) activeStacks() []string { return nil }
