package pool

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coachpo/spawnpool/errs"
	"github.com/coachpo/spawnpool/pkg/scene"
)

func TestReuseRoundTripAndTeardown(t *testing.T) {
	f := newFixture(t)
	pm := f.pm

	require.NoError(t, pm.CreatePool(f.crate, 2))
	require.Equal(t, 2, pm.CountPooled(f.crate))
	prewarmed := pm.GetPooled(f.crate, nil, false)

	a := f.spawn(t, f.crate)
	b := f.spawn(t, f.crate)
	require.Equal(t, prewarmed, []scene.ID{a, b})
	require.Equal(t, 0, pm.CountPooled(f.crate))
	require.Equal(t, 2, pm.CountSpawned(f.crate))

	require.NoError(t, pm.Recycle(a))
	require.Equal(t, 1, pm.CountPooled(f.crate))
	require.Equal(t, 1, pm.CountSpawned(f.crate))
	requireConsistent(t, pm)

	c := f.spawn(t, f.crate)
	require.Equal(t, a, c)

	require.Equal(t, 2, pm.RecycleAll(f.crate))
	require.Equal(t, 2, pm.CountPooled(f.crate))
	require.Equal(t, 0, pm.CountSpawned(f.crate))
	require.Equal(t, []scene.ID{b, a}, pm.GetPooled(f.crate, nil, false))
	requireConsistent(t, pm)

	require.NoError(t, pm.DestroyPooled(f.crate))
	require.Equal(t, 0, pm.CountPooled(f.crate))
	require.True(t, pm.HasPool(f.crate))
	require.False(t, f.graph.Exists(a))
	require.False(t, f.graph.Exists(b))
	require.EqualValues(t, 2, f.graph.Stats().Created)
}

func TestUntrackedSpawnIsDestroyedOnRecycle(t *testing.T) {
	f := newFixture(t)
	pm := f.pm

	orb := f.spawn(t, f.orb)
	require.False(t, pm.IsSpawned(orb))
	require.False(t, pm.HasPool(f.orb))
	require.True(t, f.node(t, orb).Active)

	require.NoError(t, pm.Recycle(orb))
	require.False(t, f.graph.Exists(orb))
	require.Equal(t, 0, pm.CountPooled(f.orb))
	require.EqualValues(t, 1, pm.Stats().Untracked)
}

func TestCreatePoolIfNeededTracksSpawn(t *testing.T) {
	f := newFixture(t)
	pm := f.pm

	orb := f.spawn(t, f.orb, CreatePoolIfNeeded())
	require.True(t, pm.IsSpawned(orb))
	require.True(t, pm.HasPool(f.orb))
	require.Equal(t, 0, pm.CountPooled(f.orb))

	require.NoError(t, pm.Recycle(orb))
	require.True(t, f.graph.Exists(orb))
	require.Equal(t, 1, pm.CountPooled(f.orb))
	requireConsistent(t, pm)
}

func TestSpawnAgainstEmptyPoolIsTracked(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.pm.CreatePool(f.crate, 0))

	id := f.spawn(t, f.crate)
	require.True(t, f.pm.IsSpawned(id))
	require.Equal(t, 1, f.pm.CountSpawned(f.crate))
}

func TestCreatePoolOnlyGrows(t *testing.T) {
	f := newFixture(t)
	pm := f.pm

	require.NoError(t, pm.CreatePool(f.crate, 5))
	require.NoError(t, pm.CreatePool(f.crate, 5))
	require.Equal(t, 5, pm.CountPooled(f.crate))

	require.NoError(t, pm.CreatePool(f.crate, 3))
	require.Equal(t, 5, pm.CountPooled(f.crate))

	require.NoError(t, pm.CreatePool(f.crate, 7))
	require.Equal(t, 7, pm.CountPooled(f.crate))

	require.NoError(t, pm.CreatePool(f.orb, -4))
	require.True(t, pm.HasPool(f.orb))
	require.Equal(t, 0, pm.CountPooled(f.orb))

	require.NoError(t, pm.CreatePool(scene.NilID, 3))
	require.False(t, pm.HasPool(scene.NilID))
	require.Equal(t, 7, pm.CountAllPooled())

	for _, id := range pm.GetPooled(f.crate, nil, false) {
		node := f.node(t, id)
		require.False(t, node.Active)
		require.Equal(t, f.holding, node.Parent)
	}
}

func TestCreatePoolKeepsInstancesBuiltBeforeFailure(t *testing.T) {
	f := newFixture(t)
	f.host.createBudget = 2

	err := f.pm.CreatePool(f.crate, 4)
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.CodeHost))
	require.Equal(t, 2, f.pm.CountPooled(f.crate))

	_, err = f.pm.Spawn(f.orb)
	require.True(t, errs.Is(err, errs.CodeHost))
}

func TestSpawnPlacesInstance(t *testing.T) {
	f := newFixture(t)
	pm := f.pm
	require.NoError(t, pm.CreatePool(f.crate, 1))

	parent := f.graph.AddNode("stage")
	rot := scene.Quat{Y: 1}
	id := f.spawn(t, f.crate,
		WithParent(parent),
		WithPosition(scene.Vec3{X: 1, Y: 2, Z: 3}),
		WithRotation(rot),
	)
	node := f.node(t, id)
	require.True(t, node.Active)
	require.Equal(t, parent, node.Parent)
	require.Equal(t, scene.Vec3{X: 1, Y: 2, Z: 3}, node.Transform.Position)
	require.Equal(t, rot, node.Transform.Rotation)

	require.NoError(t, pm.Recycle(id))
	node = f.node(t, id)
	require.False(t, node.Active)
	require.Equal(t, f.holding, node.Parent)

	again := f.spawn(t, f.crate, WithTransform(scene.Transform{Position: scene.Vec3{Z: 9}}))
	require.Equal(t, id, again)
	node = f.node(t, again)
	require.Equal(t, scene.NilID, node.Parent)
	require.Equal(t, scene.Identity, node.Transform.Rotation)
	require.Equal(t, 9.0, node.Transform.Position.Z)
}

func TestSpawnRejectsNilTemplate(t *testing.T) {
	f := newFixture(t)
	id, err := f.pm.Spawn(scene.NilID)
	require.ErrorIs(t, err, ErrInvalidTemplate)
	require.True(t, errs.Is(err, errs.CodeInvalid))
	require.True(t, id.IsNil())
	require.NoError(t, f.pm.Recycle(scene.NilID))
}

func TestDoubleRecycleRemovesStaleFreeEntry(t *testing.T) {
	f := newFixture(t)
	pm := f.pm
	require.NoError(t, pm.CreatePool(f.crate, 0))

	id := f.spawn(t, f.crate)
	require.NoError(t, pm.Recycle(id))
	require.Equal(t, 1, pm.CountPooled(f.crate))

	require.NoError(t, pm.Recycle(id))
	require.Equal(t, 0, pm.CountPooled(f.crate))
	require.False(t, f.graph.Exists(id))
	requireConsistent(t, pm)

	next := f.spawn(t, f.crate)
	require.NotEqual(t, id, next)
	require.True(t, f.graph.Exists(next))
}

func TestSpawnSkipsExternallyDestroyedFreeInstances(t *testing.T) {
	f := newFixture(t)
	pm := f.pm
	require.NoError(t, pm.CreatePool(f.crate, 2))
	pooled := pm.GetPooled(f.crate, nil, false)

	require.NoError(t, f.graph.Destroy(pooled[0]))
	id := f.spawn(t, f.crate)
	require.Equal(t, pooled[1], id)
	require.Equal(t, 0, pm.CountPooled(f.crate))
	requireConsistent(t, pm)
}

func TestRecycleForgetsExternallyDestroyedInstance(t *testing.T) {
	f := newFixture(t)
	pm := f.pm
	require.NoError(t, pm.CreatePool(f.crate, 1))

	id := f.spawn(t, f.crate)
	require.NoError(t, f.graph.Destroy(id))
	require.NoError(t, pm.Recycle(id))
	require.False(t, pm.IsSpawned(id))
	require.Equal(t, 0, pm.CountPooled(f.crate))
	requireConsistent(t, pm)
}

func TestDestroyAllOnlyTouchesTemplate(t *testing.T) {
	f := newFixture(t)
	pm := f.pm
	require.NoError(t, pm.CreatePool(f.crate, 2))
	require.NoError(t, pm.CreatePool(f.orb, 1))
	f.spawn(t, f.crate)
	f.spawn(t, f.crate)
	f.spawn(t, f.crate)
	orb := f.spawn(t, f.orb)

	require.NoError(t, pm.DestroyAll(f.crate))
	require.Equal(t, 0, pm.CountPooled(f.crate))
	require.Equal(t, 0, pm.CountSpawned(f.crate))
	require.True(t, pm.IsSpawned(orb))
	require.Equal(t, 1, pm.CountSpawned(f.orb))
	requireConsistent(t, pm)
}

func TestDestroyAllTemplatesAggregatesFailures(t *testing.T) {
	f := newFixture(t)
	pm := f.pm
	require.NoError(t, pm.CreatePool(f.crate, 3))
	require.NoError(t, pm.CreatePool(f.orb, 1))
	spawned := f.spawn(t, f.orb)

	crates := pm.GetPooled(f.crate, nil, false)
	refused := errors.New("refused")
	f.host.destroyErr[crates[0]] = refused
	f.host.destroyPanic[crates[1]] = true

	err := pm.DestroyAllTemplates()
	require.Error(t, err)
	require.ErrorIs(t, err, refused)
	require.True(t, errs.Is(err, errs.CodeHost))
	require.Contains(t, err.Error(), "boom")

	require.Equal(t, 0, pm.CountAllPooled())
	require.False(t, pm.IsSpawned(spawned))
	require.False(t, f.graph.Exists(crates[2]))
	require.False(t, f.graph.Exists(spawned))
	require.True(t, pm.HasPool(f.crate))
	requireConsistent(t, pm)
}

func TestRecycleUntrackedReturnsDestroyError(t *testing.T) {
	f := newFixture(t)
	id := f.spawn(t, f.orb)
	f.host.destroyPanic[id] = true

	err := f.pm.Recycle(id)
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.CodeHost))
}

func TestRecycleAllTemplatesUsesSpawnOrder(t *testing.T) {
	f := newFixture(t)
	pm := f.pm
	require.NoError(t, pm.CreatePool(f.crate, 0))
	require.NoError(t, pm.CreatePool(f.orb, 0))

	first := f.spawn(t, f.crate)
	second := f.spawn(t, f.orb)
	third := f.spawn(t, f.crate)
	require.Equal(t, []scene.ID{first, third}, pm.GetSpawned(f.crate, nil, false))

	require.Equal(t, 3, pm.RecycleAllTemplates())
	require.Equal(t, []scene.ID{first, third}, pm.GetPooled(f.crate, nil, false))
	require.Equal(t, []scene.ID{second}, pm.GetPooled(f.orb, nil, false))
	require.Equal(t, 0, pm.RecycleAllTemplates())
	require.Equal(t, 0, pm.RecycleAll(scene.NilID))
}

func TestQueryBufferContract(t *testing.T) {
	f := newFixture(t)
	pm := f.pm

	empty := pm.GetPooled(f.crate, nil, false)
	require.NotNil(t, empty)
	require.Empty(t, empty)

	require.NoError(t, pm.CreatePool(f.crate, 2))
	sentinel := scene.NewID()
	buf := []scene.ID{sentinel}

	appended := pm.GetPooled(f.crate, buf, true)
	require.Len(t, appended, 3)
	require.Equal(t, sentinel, appended[0])

	reset := pm.GetPooled(f.crate, appended, false)
	require.Len(t, reset, 2)
	require.NotContains(t, reset, sentinel)

	spawned := pm.GetSpawned(f.crate, []scene.ID{sentinel}, false)
	require.Empty(t, spawned)
	require.Equal(t, 0, pm.CountSpawned(scene.NilID))
	require.Equal(t, 0, pm.CountPooled(scene.NilID))
	require.False(t, pm.IsSpawned(scene.NilID))
}

func TestGetSpawnedReusesBuffer(t *testing.T) {
	f := newFixture(t)
	pm := f.pm
	require.NoError(t, pm.CreatePool(f.crate, 0))
	require.NoError(t, pm.CreatePool(f.orb, 0))

	var want []scene.ID
	for i := 0; i < 200; i++ {
		want = append(want, f.spawn(t, f.crate))
		f.spawn(t, f.orb)
	}

	buf := make([]scene.ID, 0, 512)
	buf = pm.GetSpawned(f.crate, buf, false)
	require.Equal(t, want, buf)

	allocs := testing.AllocsPerRun(100, func() {
		buf = pm.GetSpawned(f.crate, buf, false)
	})
	require.Zero(t, allocs)
	require.Len(t, buf, 200)

	sentinel := scene.NewID()
	appended := pm.GetSpawned(f.crate, append(buf[:0], sentinel), true)
	require.Equal(t, sentinel, appended[0])
	require.Equal(t, want, appended[1:])
}
