package pool

import "github.com/coachpo/spawnpool/pkg/scene"

// CountPooled returns the number of free instances of template.
func (pm *PoolManager) CountPooled(template scene.ID) int {
	if list, ok := pm.free[template]; ok {
		return list.len()
	}
	return 0
}

// CountSpawned returns the number of tracked spawned instances of template.
func (pm *PoolManager) CountSpawned(template scene.ID) int {
	return pm.spawnedCount[template]
}

// CountAllPooled returns the number of free instances across all templates.
func (pm *PoolManager) CountAllPooled() int {
	total := 0
	for _, list := range pm.free {
		total += list.len()
	}
	return total
}

// HasPool reports whether template has a registered free list, even an empty one.
func (pm *PoolManager) HasPool(template scene.ID) bool {
	_, ok := pm.free[template]
	return ok
}

// GetPooled writes the free instances of template in reuse order into buf. A nil buf allocates a
// new slice; appendTo=false truncates buf first. The resulting slice is returned.
func (pm *PoolManager) GetPooled(template scene.ID, buf []scene.ID, appendTo bool) []scene.ID {
	buf = prepareBuffer(buf, appendTo)
	if list, ok := pm.free[template]; ok {
		buf = list.items(buf)
	}
	return buf
}

// GetSpawned writes the spawned instances of template in spawn order into buf, following the
// same buffer rules as GetPooled.
func (pm *PoolManager) GetSpawned(template scene.ID, buf []scene.ID, appendTo bool) []scene.ID {
	buf = prepareBuffer(buf, appendTo)
	if pm.spawnedCount[template] == 0 {
		return buf
	}
	return pm.appendSpawned(buf, template, true)
}

func prepareBuffer(buf []scene.ID, appendTo bool) []scene.ID {
	if buf == nil {
		return make([]scene.ID, 0)
	}
	if !appendTo {
		return buf[:0]
	}
	return buf
}
