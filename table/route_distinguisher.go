// Package table holds the shared per-route data model for the
// multicast distribution-tree engine: route distinguishers, levels,
// label blocks, forwarders and the outbound attributes the engine
// re-advertises.
package table

import "bytes"

// RouteDistinguisher is an opaque, comparable, byte-ordered
// identifier. It is the total order used to shape the distribution
// tree deterministically: the same multiset of RDs always sorts the
// same way regardless of insertion order.
type RouteDistinguisher [8]byte

// NullRouteDistinguisher is the zero value, used for synthesized
// forest-node routes which carry no distinguisher of their own.
var NullRouteDistinguisher = RouteDistinguisher{}

// Less reports whether rd sorts before other under the engine's
// total order.
func (rd RouteDistinguisher) Less(other RouteDistinguisher) bool {
	return bytes.Compare(rd[:], other[:]) < 0
}

// RouteDistinguisherFromUint64 builds an RD from a 64-bit value,
// convenient for tests and for two-byte-ASN:4-byte-number style RDs.
func RouteDistinguisherFromUint64(v uint64) RouteDistinguisher {
	var rd RouteDistinguisher
	for i := 7; i >= 0; i-- {
		rd[i] = byte(v)
		v >>= 8
	}
	return rd
}
