package server

import (
	"net"
	"testing"

	"github.com/contrail-controller/bgp-mcast-tree/table"
)

// Property 5 (idempotent enqueue): multiple enqueue calls for the same
// entry between drains collapse into a single rebuild pass.
func TestManagerPartition_EnqueueCollapsesBetweenDrains(t *testing.T) {
	m, _ := newTestManager(t, 1, 4)
	p := m.partitions[0]

	e := p.locate(net.ParseIP(testGroup), net.ParseIP(testSource))
	f1 := forwarderFromRD(1, "192.0.2.1", newFakeLabelBlock())
	f2 := forwarderFromRD(2, "192.0.2.2", newFakeLabelBlock())
	f3 := forwarderFromRD(3, "192.0.2.3", newFakeLabelBlock())

	// Hold the worker on a marker so no drain happens until every
	// enqueue below has been made.
	release := make(chan struct{})
	p.queue.Enqueue(func() { <-release })

	e.AddForwarder(f1)
	p.enqueue(e)
	p.enqueue(e)
	e.AddForwarder(f2)
	e.AddForwarder(f3)

	close(release)
	p.drain(t)

	if got := p.UpdateCount(); got != 1 {
		t.Fatalf("expected exactly one rebuild from the collapsed enqueues, got %d", got)
	}

	vec := e.sets[table.LevelLocal].snapshot()
	if len(vec) != 3 {
		t.Fatalf("expected all 3 forwarders present after the single rebuild, got %d", len(vec))
	}
}

// find/locate contract: locate is idempotent and find reflects only
// entries actually created.
func TestManagerPartition_LocateIsIdempotentPerKey(t *testing.T) {
	m, _ := newTestManager(t, 1, 4)
	p := m.partitions[0]

	e1 := p.locate(net.ParseIP(testGroup), net.ParseIP(testSource))
	e2 := p.locate(net.ParseIP(testGroup), net.ParseIP(testSource))
	if e1 != e2 {
		t.Fatalf("expected locate to return the same GroupEntry for the same key")
	}

	if _, ok := p.find(keyOf(net.ParseIP("239.9.9.9"), net.ParseIP(testSource))); ok {
		t.Fatalf("expected find to report false for a key never located")
	}
}

// An entry that empties itself is dropped from the partition's index,
// and a partition with no entries reports isEmpty.
func TestManagerPartition_EmptyEntryIsDroppedFromIndex(t *testing.T) {
	m, ft := newTestManager(t, 1, 4)
	p := m.partitions[0]

	route := join(m, ft, 1, testGroup, testSource, "192.0.2.1", newFakeLabelBlock())
	p.drain(t)
	if p.isEmpty() {
		t.Fatalf("expected partition non-empty with one live forwarder")
	}

	withdraw(ft, route)
	p.drain(t)

	if !p.isEmpty() {
		t.Fatalf("expected partition empty after its only forwarder withdrew")
	}
	if _, ok := p.find(keyOf(net.ParseIP(testGroup), net.ParseIP(testSource))); ok {
		t.Fatalf("expected the emptied entry to be dropped from the index")
	}
}
