// Package server is the actor/management layer of the multicast
// distribution-tree engine: GroupEntry, ManagerPartition, and
// TreeManager, wired together the way the teacher's server package
// wires Peer/FSM/BgpServer off the table package's data model.
package server

import (
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/contrail-controller/bgp-mcast-tree/config"
	"github.com/contrail-controller/bgp-mcast-tree/internal/lifetime"
	"github.com/contrail-controller/bgp-mcast-tree/internal/sched"
	"github.com/contrail-controller/bgp-mcast-tree/table"
)

// TreeManager is the top-level object: it owns one ManagerPartition
// per route-table partition, registers as a listener on the
// multicast-route table, fans listener callbacks to the correct
// partition, and implements the drain-to-delete lifecycle (spec §2,
// §4.4). It is the Go equivalent of McastTreeManager.
type TreeManager struct {
	table  table.PartitionedTable
	global config.Global

	scheduler *sched.Scheduler

	listenerID string
	partitions []*ManagerPartition

	coordinator   *lifetime.Coordinator
	deleter       lifetime.Actor
	deletePending bool

	// terminateOnce guards Terminate against running twice: once the
	// coordinator's worker goroutine runs Destroy (hence Terminate) on
	// its own after a ManagedDelete, a caller that also calls
	// Terminate directly (e.g. an unconditional test/shutdown cleanup)
	// must not double-close the partitions' queues.
	terminateOnce sync.Once
}

// NewTreeManager constructs a TreeManager over table, not yet
// registered or running: call Initialize to wire it up. global
// carries the local router-id and branching factor, the way
// *config.Global is threaded into the teacher's NewPeer.
func NewTreeManager(t table.PartitionedTable, global config.Global, coordinator *lifetime.Coordinator) *TreeManager {
	m := &TreeManager{
		table:       t,
		global:      global,
		scheduler:   sched.NewScheduler(),
		coordinator: coordinator,
	}
	m.deleter = &treeManagerActor{manager: m}
	return m
}

// Initialize allocates one ManagerPartition per table partition and
// registers the route listener (spec §4.4).
func (m *TreeManager) Initialize() {
	count := m.table.PartitionCount()
	m.partitions = make([]*ManagerPartition, count)
	for i := 0; i < count; i++ {
		m.partitions[i] = newManagerPartition(m, i, m.table.Partition(i), m.global.Degree())
	}
	m.listenerID = newListenerID()
	m.table.Register(m.listenerID, m.onRoute)

	logrus.WithFields(logrus.Fields{
		"Topic":      "TreeManager",
		"Partitions": count,
		"ListenerID": m.listenerID,
	}).Info("initialized multicast distribution-tree manager")
}

// Terminate unregisters the listener and shuts every partition's
// worker down (spec §4.4). scheduler.Shutdown alone is enough to stop
// every partition's queue, since Initialize obtained all of them
// through that same scheduler; it must not also be done
// per-partition, or the second Shutdown call on a given queue would
// close its already-closed channel. Safe to call Terminate itself
// more than once; only the first call has any effect.
func (m *TreeManager) Terminate() {
	m.terminateOnce.Do(func() {
		m.table.Unregister(m.listenerID)
		m.scheduler.Shutdown()
	})
}

// onRoute is the route-table listener callback (spec §4.4). The table
// layer may invoke it on any goroutine — not necessarily the target
// partition's own worker — so it never mutates a GroupEntry's tree
// state directly; it goes through AddForwarder/DeleteForwarder/
// UpdateForwarder, which serialize against that partition's
// RebuildAll via the entry's own mutex (spec §5).
func (m *TreeManager) onRoute(partitionID int, route table.Route) {
	partition := m.partitions[partitionID]
	tablePartition := partition.tablePartition

	state := tablePartition.GetState(route, m.listenerID)
	if state == nil {
		if route.IsDeleted() {
			return
		}
		if route.BestPath() == nil {
			table.LogMalformed("missing best path", route)
			return
		}

		prefix := route.Prefix()
		entry := partition.locate(prefix.Group, prefix.Source)
		forwarder := table.NewForwarderFromRoute(route)
		entry.AddForwarder(forwarder)
		tablePartition.SetState(route, m.listenerID, forwarder)
		return
	}

	forwarder := state.(*table.Forwarder)
	prefix := route.Prefix()
	entry, ok := partition.find(keyOf(prefix.Group, prefix.Source))
	invariant(ok, "tree_manager: group entry missing for forwarder %s", forwarder)

	if route.IsDeleted() {
		tablePartition.ClearState(route, m.listenerID)
		entry.DeleteForwarder(forwarder)
		return
	}

	if entry.UpdateForwarder(forwarder, route) {
		partition.enqueue(entry)
	}
}

// ExportUpdate is called by the route table's export path (spec §6):
// it looks up the route's attached Forwarder under this manager's
// listener id and delegates to Forwarder.Export.
func (m *TreeManager) ExportUpdate(partitionID int, route table.Route) (table.OutboundAttr, bool) {
	tablePartition := m.partitions[partitionID].tablePartition
	state := tablePartition.GetState(route, m.listenerID)
	forwarder, ok := state.(*table.Forwarder)
	if !ok {
		return table.OutboundAttr{}, false
	}
	return forwarder.Export()
}

// MayDelete reports whether every partition is empty (spec §4.4).
func (m *TreeManager) MayDelete() bool {
	for _, p := range m.partitions {
		if !p.isEmpty() {
			return false
		}
	}
	return true
}

// ManagedDelete marks deletion intent and enqueues the manager onto
// the lifetime coordinator (spec §4.4).
func (m *TreeManager) ManagedDelete() {
	m.deletePending = true
	m.coordinator.Enqueue(m.deleter)
}

// mayResumeDelete is called by a ManagerPartition worker every time
// its index becomes empty. coordinator.Poke only hands the check off
// to the coordinator's own worker goroutine and returns immediately:
// Destroy (hence Terminate, hence every partition's shutdown) never
// runs on the calling partition worker's goroutine, so a partition
// cannot deadlock waiting on its own shutdown (spec §4.4).
func (m *TreeManager) mayResumeDelete() {
	if !m.deletePending {
		return
	}
	m.coordinator.Poke(m.deleter)
}

// treeManagerActor adapts TreeManager to lifetime.Actor, the Go
// equivalent of McastTreeManager::DeleteActor.
type treeManagerActor struct {
	manager *TreeManager
}

func (a *treeManagerActor) MayDelete() bool { return a.manager.MayDelete() }

func (a *treeManagerActor) Shutdown() {}

func (a *treeManagerActor) Destroy() { a.manager.Terminate() }

// newListenerID generates an opaque listener id using uuid, as a
// PartitionedTable might key its per-entry state registry by an
// arbitrary string handle.
func newListenerID() string {
	return uuid.NewString()
}
