package server

import (
	"sort"

	"github.com/contrail-controller/bgp-mcast-tree/table"
)

// forwarderSet is an ordered set of Forwarders, keyed and sorted by
// RouteDistinguisher (spec §3: "forwarder sets are ordered by
// route-distinguisher (total order)"). Go's standard library has no
// ordered-set container, so this is a small sorted slice — the
// documented stdlib exception for this concern (see DESIGN.md).
type forwarderSet struct {
	items []*table.Forwarder
}

func (s *forwarderSet) search(rd table.RouteDistinguisher) int {
	return sort.Search(len(s.items), func(i int) bool {
		return !s.items[i].RouteDistinguisher().Less(rd)
	})
}

// insert adds f in sorted position. Inserting a Forwarder whose RD is
// already present is a programmer-contract violation: the spec
// guarantees "exactly one forwarder exists per route under this
// listener" so RDs within one level are distinct.
func (s *forwarderSet) insert(f *table.Forwarder) {
	rd := f.RouteDistinguisher()
	i := s.search(rd)
	if i < len(s.items) && s.items[i].RouteDistinguisher() == rd {
		invariant(false, "forwarder_set: duplicate route-distinguisher %x", rd)
	}
	s.items = append(s.items, nil)
	copy(s.items[i+1:], s.items[i:])
	s.items[i] = f
}

// remove erases f from the set, if present.
func (s *forwarderSet) remove(f *table.Forwarder) {
	rd := f.RouteDistinguisher()
	i := s.search(rd)
	if i < len(s.items) && s.items[i] == f {
		s.items = append(s.items[:i], s.items[i+1:]...)
	}
}

// empty reports whether the set holds no forwarders.
func (s *forwarderSet) empty() bool {
	return len(s.items) == 0
}

// snapshot returns the set's forwarders in ascending RD order,
// independent of insertion history (spec §4.2 step 2). The returned
// slice is a fresh copy safe for the caller to index arbitrarily.
func (s *forwarderSet) snapshot() []*table.Forwarder {
	out := make([]*table.Forwarder, len(s.items))
	copy(out, s.items)
	return out
}

// greatest returns the maximum element under the RD order, or nil if
// the set is empty — used to select the forest-node (spec §4.2.1).
func (s *forwarderSet) greatest() *table.Forwarder {
	if len(s.items) == 0 {
		return nil
	}
	return s.items[len(s.items)-1]
}
