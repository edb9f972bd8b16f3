package pool

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coachpo/spawnpool/internal/scenegraph"
	"github.com/coachpo/spawnpool/pkg/scene"
)

type fixture struct {
	graph   *scenegraph.Graph
	host    *faultyHost
	pm      *PoolManager
	crate   scene.ID
	orb     scene.ID
	holding scene.ID
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	graph := scenegraph.New()
	host := &faultyHost{
		Graph:        graph,
		createBudget: -1,
		destroyErr:   make(map[scene.ID]error),
		destroyPanic: make(map[scene.ID]bool),
	}
	holding := graph.AddNode("holding")
	all := append([]Option{WithHoldingArea(holding), WithTemplateNamer(graph.Name)}, opts...)
	return &fixture{
		graph:   graph,
		host:    host,
		pm:      NewPoolManager(host, all...),
		crate:   graph.AddTemplate("crate"),
		orb:     graph.AddTemplate("orb"),
		holding: holding,
	}
}

func (f *fixture) spawn(t *testing.T, template scene.ID, opts ...SpawnOption) scene.ID {
	t.Helper()
	id, err := f.pm.Spawn(template, opts...)
	require.NoError(t, err)
	require.False(t, id.IsNil())
	return id
}

func (f *fixture) node(t *testing.T, id scene.ID) scenegraph.Node {
	t.Helper()
	node, ok := f.graph.Node(id)
	require.True(t, ok, "node %s missing from graph", id)
	return node
}

// faultyHost wraps a Graph with injectable create and destroy failures.
type faultyHost struct {
	*scenegraph.Graph
	createBudget int
	destroyErr   map[scene.ID]error
	destroyPanic map[scene.ID]bool
}

func (h *faultyHost) Create(template scene.ID, at scene.Transform, parent scene.ID) (scene.ID, error) {
	if h.createBudget == 0 {
		return scene.NilID, errors.New("create budget exhausted")
	}
	if h.createBudget > 0 {
		h.createBudget--
	}
	return h.Graph.Create(template, at, parent)
}

func (h *faultyHost) Destroy(id scene.ID) error {
	if h.destroyPanic[id] {
		panic("boom: destroy " + id.String())
	}
	if err := h.destroyErr[id]; err != nil {
		return err
	}
	return h.Graph.Destroy(id)
}

// requireConsistent checks that the two mappings stay disjoint and agree with the counters.
func requireConsistent(t *testing.T, pm *PoolManager) {
	t.Helper()
	free := 0
	for template, list := range pm.free {
		for _, id := range list.items(nil) {
			owner, ok := pm.pooledBy[id]
			require.True(t, ok)
			require.Equal(t, template, owner)
			require.False(t, pm.IsSpawned(id), "instance %s is both free and spawned", id)
		}
		free += list.len()
	}
	require.Equal(t, free, len(pm.pooledBy))
	require.Equal(t, free, pm.CountAllPooled())

	perTemplate := make(map[scene.ID]int)
	for _, rec := range pm.spawned {
		perTemplate[rec.template]++
		require.True(t, pm.HasPool(rec.template))
	}
	for template, n := range perTemplate {
		require.Equal(t, n, pm.CountSpawned(template))
	}
	require.Equal(t, len(perTemplate), len(pm.spawnedCount))
}
