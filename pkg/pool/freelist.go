package pool

import (
	"github.com/eapache/queue"

	"github.com/coachpo/spawnpool/pkg/scene"
)

// freeEntry is one slot in the ring buffer. A slot is live only while members still maps its id to
// the same generation; anything else is a tombstone skipped on pop.
type freeEntry struct {
	id  scene.ID
	gen uint64
}

// freeList is a FIFO of inactive instances for one template.
type freeList struct {
	ring    *queue.Queue
	members map[scene.ID]uint64
	gen     uint64
}

func newFreeList() *freeList {
	return &freeList{
		ring:    queue.New(),
		members: make(map[scene.ID]uint64),
		gen:     0,
	}
}

func (f *freeList) len() int {
	return len(f.members)
}

// push appends id at the tail. Pushing an id already present moves it to the tail.
func (f *freeList) push(id scene.ID) {
	f.gen++
	f.members[id] = f.gen
	f.ring.Add(freeEntry{id: id, gen: f.gen})
	f.compact()
}

// pop removes and returns the oldest live entry.
func (f *freeList) pop() (scene.ID, bool) {
	for f.ring.Length() > 0 {
		entry := f.ring.Peek().(freeEntry)
		f.ring.Remove()
		if gen, ok := f.members[entry.id]; ok && gen == entry.gen {
			delete(f.members, entry.id)
			return entry.id, true
		}
	}
	return scene.NilID, false
}

// remove drops id from the list; its ring slot becomes a tombstone.
func (f *freeList) remove(id scene.ID) bool {
	if _, ok := f.members[id]; !ok {
		return false
	}
	delete(f.members, id)
	f.compact()
	return true
}

// items appends the live entries in FIFO order to buf.
func (f *freeList) items(buf []scene.ID) []scene.ID {
	for i := 0; i < f.ring.Length(); i++ {
		entry := f.ring.Get(i).(freeEntry)
		if gen, ok := f.members[entry.id]; ok && gen == entry.gen {
			buf = append(buf, entry.id)
		}
	}
	return buf
}

// drain empties the list and returns its former contents in FIFO order.
func (f *freeList) drain() []scene.ID {
	out := f.items(make([]scene.ID, 0, f.len()))
	f.ring = queue.New()
	f.members = make(map[scene.ID]uint64)
	return out
}

// compact rebuilds the ring once tombstones outnumber live entries.
func (f *freeList) compact() {
	if f.ring.Length() <= 2*len(f.members)+16 {
		return
	}
	live := f.items(make([]scene.ID, 0, len(f.members)))
	f.ring = queue.New()
	for _, id := range live {
		f.ring.Add(freeEntry{id: id, gen: f.members[id]})
	}
}
