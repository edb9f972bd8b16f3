package pool

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coachpo/spawnpool/pkg/scene"
)

func TestFreeListFIFO(t *testing.T) {
	list := newFreeList()
	a, b, c := scene.NewID(), scene.NewID(), scene.NewID()
	list.push(a)
	list.push(b)
	list.push(c)
	require.Equal(t, 3, list.len())
	require.Equal(t, []scene.ID{a, b, c}, list.items(nil))

	got, ok := list.pop()
	require.True(t, ok)
	require.Equal(t, a, got)
	require.NotContains(t, list.members, a)
	require.Equal(t, 2, list.len())
}

func TestFreeListRemoveLeavesTombstone(t *testing.T) {
	list := newFreeList()
	a, b, c := scene.NewID(), scene.NewID(), scene.NewID()
	list.push(a)
	list.push(b)
	list.push(c)

	require.True(t, list.remove(b))
	require.False(t, list.remove(b))
	require.Equal(t, []scene.ID{a, c}, list.items(nil))

	first, _ := list.pop()
	second, _ := list.pop()
	require.Equal(t, a, first)
	require.Equal(t, c, second)
	_, ok := list.pop()
	require.False(t, ok)
}

func TestFreeListRepushMovesToTail(t *testing.T) {
	list := newFreeList()
	a, b := scene.NewID(), scene.NewID()
	list.push(a)
	list.push(b)
	list.push(a)
	require.Equal(t, 2, list.len())
	require.Equal(t, []scene.ID{b, a}, list.items(nil))
}

func TestFreeListCompactsTombstones(t *testing.T) {
	list := newFreeList()
	keep := scene.NewID()
	list.push(keep)
	for i := 0; i < 100; i++ {
		id := scene.NewID()
		list.push(id)
		list.remove(id)
	}
	require.Equal(t, 1, list.len())
	require.LessOrEqual(t, list.ring.Length(), 2*list.len()+17)
	require.Equal(t, []scene.ID{keep}, list.items(nil))
}

func TestFreeListDrain(t *testing.T) {
	list := newFreeList()
	a, b := scene.NewID(), scene.NewID()
	list.push(a)
	list.push(b)
	require.Equal(t, []scene.ID{a, b}, list.drain())
	require.Equal(t, 0, list.len())
	require.Empty(t, list.items(nil))
}
