package server

import (
	"net"
	"sync"
	"testing"

	"github.com/contrail-controller/bgp-mcast-tree/table"
)

// fakeLabelBlock is a minimal, test-only table.LabelBlock: a simple
// counter, optionally made to fail to exercise the out-of-capacity
// path (spec §7 mode 3, scenario S5).
type fakeLabelBlock struct {
	mu        sync.Mutex
	next      uint32
	exhausted bool
}

func newFakeLabelBlock() *fakeLabelBlock {
	return &fakeLabelBlock{}
}

func (b *fakeLabelBlock) Allocate() (uint32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.exhausted {
		return 0, table.ErrLabelBlockExhausted
	}
	b.next++
	return b.next, nil
}

func (b *fakeLabelBlock) Release(label uint32) {}

func (b *fakeLabelBlock) setExhausted(v bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.exhausted = v
}

// fakePath is a minimal table.Path.
type fakePath struct {
	nextHop    net.IP
	labelBlock table.LabelBlock
	encap      []string
}

func (p *fakePath) NextHop() net.IP             { return p.nextHop }
func (p *fakePath) LabelBlock() table.LabelBlock { return p.labelBlock }
func (p *fakePath) Encapsulation() []string      { return p.encap }

// fakeRoute is a minimal table.Route: newJoinRoute builds native
// multicast join routes (LevelLocal), and AddForestNodeRoute builds
// forest-node routes.
type fakeRoute struct {
	prefix  table.Prefix
	path    *fakePath
	deleted bool
	name    string
}

func (r *fakeRoute) Prefix() table.Prefix { return r.prefix }
func (r *fakeRoute) BestPath() table.Path {
	if r.path == nil {
		return nil
	}
	return r.path
}
func (r *fakeRoute) IsDeleted() bool { return r.deleted }
func (r *fakeRoute) String() string  { return r.name }

func newJoinRoute(name string, rd uint64, group, source, peerAddr net.IP, lb table.LabelBlock) *fakeRoute {
	return &fakeRoute{
		name: name,
		prefix: table.Prefix{
			Type:               table.RouteTypeNative,
			RouteDistinguisher: table.RouteDistinguisherFromUint64(rd),
			Group:              group,
			Source:             source,
		},
		path: &fakePath{
			nextHop:    peerAddr,
			labelBlock: lb,
			encap:      []string{"vxlan"},
		},
	}
}

// fakeTablePartition is a minimal, in-memory table.TablePartition.
type fakeTablePartition struct {
	mu     sync.Mutex
	states map[table.Route]map[string]table.ListenerState

	forestRoutes map[string]*fakeRoute
	notified     []table.Route
}

func newFakeTablePartition() *fakeTablePartition {
	return &fakeTablePartition{
		states:       make(map[table.Route]map[string]table.ListenerState),
		forestRoutes: make(map[string]*fakeRoute),
	}
}

func (p *fakeTablePartition) AddForestNodeRoute(prefix table.Prefix, nextHop string, sourceRD table.RouteDistinguisher) table.Route {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := prefix.Group.String() + "," + prefix.Source.String()
	route, ok := p.forestRoutes[key]
	if !ok {
		route = &fakeRoute{
			name:   "forest-node:" + key,
			prefix: prefix,
		}
		p.forestRoutes[key] = route
	}
	route.path = &fakePath{nextHop: net.ParseIP(nextHop)}
	route.deleted = false
	p.notified = append(p.notified, route)
	return route
}

func (p *fakeTablePartition) RemoveForestNodeRoute(route table.Route) {
	p.mu.Lock()
	defer p.mu.Unlock()
	r := route.(*fakeRoute)
	r.deleted = true
	p.notified = append(p.notified, route)
}

func (p *fakeTablePartition) Notify(route table.Route) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notified = append(p.notified, route)
}

func (p *fakeTablePartition) GetState(route table.Route, listenerID string) table.ListenerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	byListener, ok := p.states[route]
	if !ok {
		return nil
	}
	return byListener[listenerID]
}

func (p *fakeTablePartition) SetState(route table.Route, listenerID string, state table.ListenerState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	byListener, ok := p.states[route]
	if !ok {
		byListener = make(map[string]table.ListenerState)
		p.states[route] = byListener
	}
	byListener[listenerID] = state
}

func (p *fakeTablePartition) ClearState(route table.Route, listenerID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if byListener, ok := p.states[route]; ok {
		delete(byListener, listenerID)
	}
}

// fakeTable is a minimal, in-memory table.PartitionedTable driving the
// tests: it fans Deliver calls to registered listeners synchronously,
// the way the real table is guaranteed to invoke the callback on the
// partition's own db-table task (spec §5).
type fakeTable struct {
	mu         sync.Mutex
	partitions []*fakeTablePartition
	listeners  map[string]table.ListenerFunc
}

func newFakeTable(partitionCount int) *fakeTable {
	t := &fakeTable{
		partitions: make([]*fakeTablePartition, partitionCount),
		listeners:  make(map[string]table.ListenerFunc),
	}
	for i := range t.partitions {
		t.partitions[i] = newFakeTablePartition()
	}
	return t
}

func (t *fakeTable) Register(listenerID string, callback table.ListenerFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listeners[listenerID] = callback
}

func (t *fakeTable) Unregister(listenerID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.listeners, listenerID)
}

func (t *fakeTable) Partition(i int) table.TablePartition { return t.partitions[i] }

// hasListener reports whether listenerID is still registered, for
// tests asserting that Terminate actually unregistered it.
func (t *fakeTable) hasListener(listenerID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.listeners[listenerID]
	return ok
}

func (t *fakeTable) PartitionCount() int { return len(t.partitions) }

// Deliver simulates the route table invoking every registered
// listener for a change to route on partitionID.
func (t *fakeTable) Deliver(partitionID int, route table.Route) {
	t.mu.Lock()
	callbacks := make([]table.ListenerFunc, 0, len(t.listeners))
	for _, cb := range t.listeners {
		callbacks = append(callbacks, cb)
	}
	t.mu.Unlock()

	for _, cb := range callbacks {
		cb(partitionID, route)
	}
}

var _ table.PartitionedTable = (*fakeTable)(nil)
var _ table.TablePartition = (*fakeTablePartition)(nil)
var _ table.Route = (*fakeRoute)(nil)
var _ table.Path = (*fakePath)(nil)
var _ table.LabelBlock = (*fakeLabelBlock)(nil)

// drain blocks until the partition's work queue has processed every
// item enqueued so far, by pushing a marker func through the same
// serial worker and waiting for it to run (ManagerPartition.run treats
// a bare func() as a "call me back" marker rather than a GroupEntry).
func (p *ManagerPartition) drain(t *testing.T) {
	t.Helper()
	done := make(chan struct{})
	p.queue.Enqueue(func() { close(done) })
	<-done
}
