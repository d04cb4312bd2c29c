package server

import (
	"net"
	"testing"

	"github.com/contrail-controller/bgp-mcast-tree/config"
	"github.com/contrail-controller/bgp-mcast-tree/internal/lifetime"
	"github.com/contrail-controller/bgp-mcast-tree/table"
)

// newTestManager builds a TreeManager wired to a fresh fakeTable with
// partitionCount partitions and the given branching factor, and
// initializes it. t.Cleanup tears it down.
func newTestManager(t *testing.T, partitionCount, degree int) (*TreeManager, *fakeTable) {
	t.Helper()
	ft := newFakeTable(partitionCount)
	return newTestManagerOverTable(t, ft, degree)
}

// newTestManagerOverTable is like newTestManager but wires an
// already-constructed fakeTable, so callers can deliver routes before
// the manager is initialized (scenario S6).
func newTestManagerOverTable(t *testing.T, ft *fakeTable, degree int) (*TreeManager, *fakeTable) {
	t.Helper()

	coord := lifetime.NewCoordinator()
	global := config.Global{
		RouterID:        "10.0.0.1",
		BranchingFactor: degree,
	}
	m := NewTreeManager(ft, global, coord)
	m.Initialize()
	t.Cleanup(m.Terminate)
	t.Cleanup(coord.Close)
	return m, ft
}

// join delivers a join route for forwarder rd onto partition 0 of ft,
// through m, and returns the route so the caller can later delete it.
func join(m *TreeManager, ft *fakeTable, rd uint64, group, source, peer string, lb table.LabelBlock) *fakeRoute {
	route := newJoinRoute(
		"",
		rd,
		net.ParseIP(group),
		net.ParseIP(source),
		net.ParseIP(peer),
		lb,
	)
	ft.Deliver(0, route)
	return route
}

func withdraw(ft *fakeTable, route *fakeRoute) {
	route.deleted = true
	ft.Deliver(0, route)
}
