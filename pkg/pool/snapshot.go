package pool

import (
	"io"

	json "github.com/goccy/go-json"

	"github.com/coachpo/spawnpool/pkg/scene"
)

// PoolStats describes one registered template.
//
//nolint:revive // PoolStats reads better than Stats at call sites.
type PoolStats struct {
	Template scene.ID `json:"template"`
	Name     string   `json:"name,omitempty"`
	Free     int      `json:"free"`
	Spawned  int      `json:"spawned"`
}

// Snapshot is a point-in-time copy of registry counts.
type Snapshot struct {
	Name         string      `json:"name,omitempty"`
	Pools        []PoolStats `json:"pools"`
	Untracked    uint64      `json:"untracked_spawns"`
	TotalFree    int         `json:"total_free"`
	TotalSpawned int         `json:"total_spawned"`
	Closed       bool        `json:"closed"`
}

// Stats returns per-template counts in pool creation order.
func (pm *PoolManager) Stats() Snapshot {
	snap := Snapshot{
		Name:         pm.name,
		Pools:        make([]PoolStats, 0, len(pm.templates)),
		Untracked:    pm.untracked,
		TotalFree:    0,
		TotalSpawned: len(pm.spawned),
		Closed:       pm.closed,
	}
	for _, template := range pm.templates {
		stats := PoolStats{
			Template: template,
			Name:     "",
			Free:     pm.CountPooled(template),
			Spawned:  pm.CountSpawned(template),
		}
		if pm.namer != nil {
			stats.Name = pm.namer(template)
		}
		snap.TotalFree += stats.Free
		snap.Pools = append(snap.Pools, stats)
	}
	return snap
}

// EncodeJSON renders the snapshot as compact JSON.
func EncodeJSON(snap Snapshot) ([]byte, error) {
	return json.MarshalNoEscape(snap)
}

// WriteJSON writes the snapshot to w as indented JSON.
func WriteJSON(w io.Writer, snap Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}
