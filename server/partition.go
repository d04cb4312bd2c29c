package server

import (
	"net"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/contrail-controller/bgp-mcast-tree/internal/sched"
	"github.com/contrail-controller/bgp-mcast-tree/table"
)

// ManagerPartition owns the GroupEntry index for one route-table
// partition, guarded by mu, and the single-consumer work queue on
// whose one worker goroutine the partition's GroupEntry rebuilds and
// index evictions run (spec §4.3, §5). It is the Go equivalent of McastManagerPartition.
type ManagerPartition struct {
	manager        *TreeManager
	id             int
	tablePartition table.TablePartition
	degree         int

	mu      sync.Mutex
	entries map[GroupSourceKey]*GroupEntry

	queue       *sched.PartitionQueue
	updateCount uint64
}

func newManagerPartition(manager *TreeManager, id int, tablePartition table.TablePartition, degree int) *ManagerPartition {
	p := &ManagerPartition{
		manager:        manager,
		id:             id,
		tablePartition: tablePartition,
		degree:         degree,
		entries:        make(map[GroupSourceKey]*GroupEntry),
	}
	p.queue = manager.scheduler.Queue(sched.TaskClassName, id, p.run)
	return p
}

// Locate finds or creates the GroupEntry for (group, source) (spec
// §4.3: "insertion uses default construction").
func (p *ManagerPartition) locate(group, source net.IP) *GroupEntry {
	key := keyOf(group, source)

	p.mu.Lock()
	defer p.mu.Unlock()

	if e, ok := p.entries[key]; ok {
		return e
	}
	e := newGroupEntry(p, group, source)
	p.entries[key] = e
	return e
}

// find returns the GroupEntry for key, if one exists.
func (p *ManagerPartition) find(key GroupSourceKey) (*GroupEntry, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[key]
	return e, ok
}

// enqueue schedules entry for rebuild if it is not already on the
// queue (spec §4.3: "if entry.on_queue already set, no-op").
func (p *ManagerPartition) enqueue(entry *GroupEntry) {
	p.mu.Lock()
	already := entry.onQueue
	if !already {
		entry.onQueue = true
	}
	p.mu.Unlock()

	if !already {
		p.queue.Enqueue(entry)
	}
}

// run is the worker callback invoked, one at a time, on this
// partition's worker goroutine for every enqueued GroupEntry (spec
// §4.3: ProcessSGEntry).
func (p *ManagerPartition) run(item interface{}) {
	// A bare func() is a synchronization marker (used by tests to
	// deterministically wait for the worker to catch up), not a
	// GroupEntry to rebuild.
	if fn, ok := item.(func()); ok {
		fn()
		return
	}

	entry := item.(*GroupEntry)

	p.mu.Lock()
	entry.onQueue = false
	p.mu.Unlock()

	if entry.IsEmpty() {
		p.mu.Lock()
		delete(p.entries, entry.key)
		empty := len(p.entries) == 0
		p.mu.Unlock()

		if empty {
			p.manager.mayResumeDelete()
		}
		return
	}

	entry.RebuildAll()
	atomic.AddUint64(&p.updateCount, 1)

	logrus.WithFields(logrus.Fields{
		"Topic":     "ManagerPartition",
		"Partition": p.id,
		"Key":       entry.key,
	}).Debug("rebuilt distribution tree")

	p.mu.Lock()
	empty := len(p.entries) == 0
	p.mu.Unlock()
	if empty {
		p.manager.mayResumeDelete()
	}
}

// isEmpty reports whether this partition's GroupEntry index is empty
// (spec §4.4: MayDelete <=> every partition is empty).
func (p *ManagerPartition) isEmpty() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries) == 0
}

// UpdateCount returns the number of rebuilds this partition has
// performed, for diagnostics/tests.
func (p *ManagerPartition) UpdateCount() uint64 {
	return atomic.LoadUint64(&p.updateCount)
}
