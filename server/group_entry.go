package server

import (
	"net"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/contrail-controller/bgp-mcast-tree/table"
)

// GroupSourceKey identifies one (group, source) multicast pair. It is
// the Go equivalent of the Ip4Address pair keying McastSGEntry in the
// original source, made comparable (hence usable as a map key) by
// storing the dotted-quad string form rather than net.IP.
type GroupSourceKey struct {
	Group  string
	Source string
}

func keyOf(group, source net.IP) GroupSourceKey {
	return GroupSourceKey{Group: group.String(), Source: source.String()}
}

// GroupEntry is the engine's per-(group, source) aggregation of all
// joined forwarders and its current distribution tree: the Go
// equivalent of McastSGEntry.
type GroupEntry struct {
	partition *ManagerPartition
	key       GroupSourceKey
	group     net.IP
	source    net.IP

	// mu guards every field below except onQueue: sets, needsRebuild,
	// forestNode, forestNodeRoute, and any Forwarder reachable through
	// them. They
	// are mutated both from AddForwarder/DeleteForwarder/
	// UpdateForwarder (called from TreeManager.onRoute, on whichever
	// goroutine the route table delivers that callback on) and from
	// RebuildAll (called from the partition's own worker goroutine),
	// so they need a lock of their own distinct from
	// ManagerPartition.mu, which only protects the partition's entry
	// index and onQueue.
	mu sync.Mutex

	sets         [2]forwarderSet
	needsRebuild [2]bool

	forestNode      *table.Forwarder
	forestNodeRoute table.Route

	onQueue bool
}

func newGroupEntry(partition *ManagerPartition, group, source net.IP) *GroupEntry {
	return &GroupEntry{
		partition: partition,
		key:       keyOf(group, source),
		group:     group,
		source:    source,
	}
}

// Key returns the (group, source) this entry aggregates.
func (e *GroupEntry) Key() GroupSourceKey { return e.key }

// ForestNode returns the current tree root, or nil if the Local set
// is empty (spec §4.2.1).
func (e *GroupEntry) ForestNode() *table.Forwarder {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.forestNode
}

// AddForwarder inserts f into its level's set, marks that level for
// rebuild, and schedules the entry on the partition's work queue
// (spec §4.2).
func (e *GroupEntry) AddForwarder(f *table.Forwarder) {
	level := f.Level()

	e.mu.Lock()
	e.sets[level].insert(f)
	e.needsRebuild[level] = true
	e.mu.Unlock()

	e.partition.enqueue(e)
}

// UpdateForwarder refreshes f from a fresh read of route and, if
// anything changed, returns true so the caller can enqueue a rebuild.
// f is owned by e, so the refresh is serialized against RebuildAll the
// same way AddForwarder/DeleteForwarder are (spec §4.1).
func (e *GroupEntry) UpdateForwarder(f *table.Forwarder, route table.Route) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return f.UpdateFrom(route)
}

// DeleteForwarder removes f from its level's set, releases its label
// and flushes its adjacencies. If f is the current forest-node, the
// forest-node route is torn down first (spec §4.2). A deleted
// Forwarder has no further lifecycle in Go the way McastForwarder's
// destructor runs FlushLinks/ReleaseLabel on `delete forwarder`, so
// this method does that cleanup directly rather than waiting for the
// next rebuild to find it already gone from the set.
func (e *GroupEntry) DeleteForwarder(f *table.Forwarder) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if f == e.forestNode {
		e.deleteForestNodeRoute()
	}
	level := f.Level()
	e.sets[level].remove(f)
	f.FlushAdjacencies()
	f.ReleaseLabel()
	e.needsRebuild[level] = true
	e.partition.enqueue(e)
}

// IsEmpty reports whether both level sets are empty (spec §4.2, §4.3).
func (e *GroupEntry) IsEmpty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sets[table.LevelLocal].empty() && e.sets[table.LevelGlobal].empty()
}

// RebuildAll rebuilds the distribution tree for every level that
// needs it. Invoked by the partition worker after the entry is
// dequeued (spec §4.2). It holds e.mu for the whole pass, so it is
// serialized against AddForwarder/DeleteForwarder/UpdateForwarder,
// which may run on whatever goroutine the route table delivers
// TreeManager.onRoute on rather than this partition's own worker.
func (e *GroupEntry) RebuildAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, level := range table.Levels() {
		e.rebuild(level)
	}
}

// rebuild runs the deterministic k-ary tree-construction algorithm
// for one level (spec §4.2). It is a no-op when that level does not
// need rebuilding, and a no-op for LevelGlobal in this version — the
// engine currently builds trees at the Local level only (spec §9).
// Callers must hold e.mu.
func (e *GroupEntry) rebuild(level table.Level) {
	if !e.needsRebuild[level] {
		return
	}
	if level == table.LevelGlobal {
		return
	}

	set := &e.sets[level]

	// Tear down the previous tree and re-notify every forwarder's
	// route so the table will later pull a fresh outbound attribute.
	tablePartition := e.partition.tablePartition
	for _, f := range set.items {
		f.FlushAdjacencies()
		f.ReleaseLabel()
		tablePartition.Notify(f.Route())
	}

	vec := set.snapshot()
	degree := e.partition.degree

	allocated := make([]*table.Forwarder, 0, len(vec))
	if err := e.linkTree(vec, degree, &allocated); err != nil {
		// Out-of-capacity (spec §7 mode 3): roll back everything
		// this pass allocated/linked and retry on the next drain.
		logrus.WithFields(logrus.Fields{
			"Topic": "GroupEntry",
			"Key":   e.key,
			"Level": level,
			"Error": err,
		}).Warn("rebuild failed, rolling back and retrying on next drain")
		for _, f := range allocated {
			f.FlushAdjacencies()
			f.ReleaseLabel()
		}
		return
	}

	e.needsRebuild[level] = false
	e.updateRoutes(level)
}

// linkTree allocates a label for, and links into the breadth-first
// k-ary tree, every forwarder in vec, in order. allocated accumulates
// every forwarder successfully touched so far so the caller can roll
// back on error.
func (e *GroupEntry) linkTree(vec []*table.Forwarder, degree int, allocated *[]*table.Forwarder) error {
	for i, f := range vec {
		if err := f.AllocateLabel(); err != nil {
			return err
		}
		*allocated = append(*allocated, f)

		if i == 0 {
			continue
		}
		parentIdx := (i - 1) / degree
		parent := vec[parentIdx]
		f.AddAdjacency(parent)
		parent.AddAdjacency(f)
	}
	return nil
}

// updateRoutes updates the forest-node route for level, if level
// drives it (spec §4.2.1; only LevelLocal does).
func (e *GroupEntry) updateRoutes(level table.Level) {
	if level == table.LevelLocal {
		e.updateForestNodeRoute()
	}
}

// updateForestNodeRoute recomputes the forest-node (the greatest
// element of the Local set) and, if it changed, tears down the old
// forest-node route and installs a new one (spec §4.2.1).
func (e *GroupEntry) updateForestNodeRoute() {
	newForestNode := e.sets[table.LevelLocal].greatest()
	if newForestNode == e.forestNode {
		return
	}

	e.deleteForestNodeRoute()
	if newForestNode != nil {
		e.addForestNodeRoute(newForestNode)
	}
}

func (e *GroupEntry) addForestNodeRoute(newForestNode *table.Forwarder) {
	invariant(e.forestNode == nil, "group_entry: forest node already set for %v", e.key)
	invariant(e.forestNodeRoute == nil, "group_entry: forest node route already set for %v", e.key)

	prefix := table.Prefix{
		Type:               table.RouteTypeForestNode,
		RouteDistinguisher: table.NullRouteDistinguisher,
		RouterID:           net.ParseIP(e.partition.manager.global.RouterID),
		Group:              e.group,
		Source:             e.source,
	}
	route := e.partition.tablePartition.AddForestNodeRoute(
		prefix, e.partition.manager.global.RouterID, newForestNode.RouteDistinguisher())

	e.forestNode = newForestNode
	e.forestNodeRoute = route
}

func (e *GroupEntry) deleteForestNodeRoute() {
	if e.forestNodeRoute == nil {
		return
	}
	invariant(e.forestNode != nil, "group_entry: forest node route without forest node for %v", e.key)

	e.partition.tablePartition.RemoveForestNodeRoute(e.forestNodeRoute)
	e.forestNode = nil
	e.forestNodeRoute = nil
}
