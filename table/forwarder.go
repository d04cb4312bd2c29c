package table

import (
	"fmt"
	"net"

	"github.com/sirupsen/logrus"
)

// Forwarder is a remote endpoint that has joined a multicast
// (group, source) via a route advertisement: a leaf of the
// distribution tree plus its local state. It is the Go equivalent of
// McastForwarder in the original source.
//
// A Forwarder is owned by exactly one GroupEntry, via that entry's
// per-level forwarder set; its adjacency references are non-owning
// back-references into sibling Forwarders owned by the same
// GroupEntry and never outlive a single rebuild.
type Forwarder struct {
	route Route

	level              Level
	routeDistinguisher RouteDistinguisher
	routerID           net.IP
	address            net.IP
	labelBlock         LabelBlock
	encap              []string

	label uint32

	adjacency []*Forwarder
}

// NewForwarderFromRoute extracts a Forwarder from route: peer address
// (from the best path's next-hop), encapsulation set, and label-block
// reference for Local-level routes; Global-level routes carry no
// address or label-block (spec §4.1).
func NewForwarderFromRoute(route Route) *Forwarder {
	prefix := route.Prefix()
	f := &Forwarder{
		route:              route,
		routeDistinguisher: prefix.RouteDistinguisher,
		routerID:           prefix.RouterID,
	}

	path := route.BestPath()
	if prefix.Type == RouteTypeNative {
		f.level = LevelLocal
		f.address = path.NextHop()
		f.labelBlock = path.LabelBlock()
	} else {
		f.level = LevelGlobal
	}

	// Missing encapsulation (a nil Path.Encapsulation) is the empty
	// set, not an error (spec §9).
	f.encap = path.Encapsulation()
	if f.encap == nil {
		f.encap = []string{}
	}

	return f
}

// Route returns the route this Forwarder was built from.
func (f *Forwarder) Route() Route { return f.route }

// Level reports which tier this Forwarder belongs to.
func (f *Forwarder) Level() Level { return f.level }

// RouteDistinguisher is the total-order key used to shape the tree.
func (f *Forwarder) RouteDistinguisher() RouteDistinguisher { return f.routeDistinguisher }

// Address is the forwarder's peer address, meaningful at LevelLocal only.
func (f *Forwarder) Address() net.IP { return f.address }

// Label is the forwarder's currently allocated label, or 0 if none.
func (f *Forwarder) Label() uint32 { return f.label }

// Encapsulation is the forwarder's tunnel encapsulation set.
func (f *Forwarder) Encapsulation() []string { return f.encap }

// String gives a printable representation, mirroring
// McastForwarder::ToString in the original source.
func (f *Forwarder) String() string {
	return fmt.Sprintf("%x -> %d", f.routeDistinguisher, f.label)
}

// UpdateFrom refreshes label-block, address and encapsulation from a
// fresh read of route. It returns true if anything changed, so the
// caller can decide whether to enqueue a rebuild (spec §4.1).
func (f *Forwarder) UpdateFrom(route Route) bool {
	fresh := NewForwarderFromRoute(route)
	changed := false

	if f.labelBlock != fresh.labelBlock {
		f.labelBlock = fresh.labelBlock
		changed = true
	}
	if !f.address.Equal(fresh.address) {
		f.address = fresh.address
		changed = true
	}
	if !encapEqual(f.encap, fresh.encap) {
		f.encap = fresh.encap
		changed = true
	}

	return changed
}

func encapEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// AllocateLabel requests a new label for this Forwarder from its
// label block. It is a no-op (returns nil) if a label is already
// held, since rebuild always flushes labels before reallocating.
func (f *Forwarder) AllocateLabel() error {
	if f.label != 0 {
		return nil
	}
	label, err := f.labelBlock.Allocate()
	if err != nil {
		return err
	}
	f.label = label
	return nil
}

// ReleaseLabel releases the held label, if any, back to the label
// block. Idempotent: a no-op when label is already 0 (spec §4.1).
func (f *Forwarder) ReleaseLabel() {
	if f.label == 0 {
		return
	}
	f.labelBlock.Release(f.label)
	f.label = 0
}

// FindAdjacency returns the adjacency entry matching peer, or nil.
func (f *Forwarder) FindAdjacency(peer *Forwarder) *Forwarder {
	for _, p := range f.adjacency {
		if p == peer {
			return p
		}
	}
	return nil
}

// AddAdjacency links peer as an adjacency of f. The caller is
// responsible for the symmetric call on peer (rebuild always adds
// both directions together). A self-link or a duplicate link is a
// programmer-contract violation (spec §9): the k-ary tree
// construction never generates either.
func (f *Forwarder) AddAdjacency(peer *Forwarder) {
	invariant(peer != f, "forwarder: self-adjacency on %s", f)
	invariant(f.FindAdjacency(peer) == nil, "forwarder: duplicate adjacency %s -> %s", f, peer)
	f.adjacency = append(f.adjacency, peer)
}

// removeAdjacency removes peer from f's adjacency list, if present.
func (f *Forwarder) removeAdjacency(peer *Forwarder) {
	for i, p := range f.adjacency {
		if p == peer {
			f.adjacency = append(f.adjacency[:i], f.adjacency[i+1:]...)
			return
		}
	}
}

// FlushAdjacencies removes f from every peer's adjacency list and
// clears its own, symmetrically: if A links to B then B links to A,
// and both directions are removed together (spec §4.1).
func (f *Forwarder) FlushAdjacencies() {
	for _, peer := range f.adjacency {
		peer.removeAdjacency(f)
	}
	f.adjacency = nil
}

// Adjacency returns the forwarder's current tree adjacencies. The
// returned slice is owned by f; callers must not mutate it.
func (f *Forwarder) Adjacency() []*Forwarder {
	return f.adjacency
}

// Export builds the outbound attribute to be re-advertised for this
// Forwarder's route: its own label as the out-label, and its current
// adjacencies as the replication list. Returns false when the
// forwarder has no adjacencies or no label, i.e. is not presently
// part of the tree (spec §4.1).
func (f *Forwarder) Export() (OutboundAttr, bool) {
	if len(f.adjacency) == 0 || f.label == 0 {
		return OutboundAttr{}, false
	}

	olist := make([]OutboundElem, 0, len(f.adjacency))
	for _, peer := range f.adjacency {
		olist = append(olist, OutboundElem{
			PeerAddress: peer.address.String(),
			PeerLabel:   peer.label,
			Encap:       peer.encap,
		})
	}

	return OutboundAttr{
		Label: f.label,
		OList: olist,
	}, true
}

// LogMalformed logs and drops a malformed route at the listener
// boundary (spec §7 mode 2). Kept here, rather than in server, since
// Forwarder construction is where prefix/path fields are first read.
func LogMalformed(reason string, route Route) {
	logrus.WithFields(logrus.Fields{
		"Topic":  "Forwarder",
		"Reason": reason,
	}).Warn("ignoring malformed multicast route")
}
