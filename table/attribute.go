package table

// OutboundElem is one {peer-address, peer-label, peer-encapsulation}
// triple in an outbound attribute's replication list — the Go
// equivalent of BgpOListElem in the original source.
type OutboundElem struct {
	PeerAddress string
	PeerLabel   uint32
	Encap       []string
}

// OutboundAttr is the attribute a Forwarder's owning route re-advertises
// once it is part of the tree: its own out-label plus the replication
// list drawn from its current adjacencies (spec §4.1).
type OutboundAttr struct {
	Label uint32
	OList []OutboundElem
}

// AttrSpec is the set of fields identifying an attribute to intern,
// used when synthesizing the forest-node route's path attributes
// (spec §4.2.1).
type AttrSpec struct {
	NextHop  string
	SourceRD RouteDistinguisher
}

// AttributeHandle is an opaque, interned attribute reference.
type AttributeHandle interface{}

// AttributeDB is the external attribute-interning collaborator (spec
// §6): Locate returns the (possibly out-of-capacity) interned handle
// for spec.
type AttributeDB interface {
	Locate(spec AttrSpec) (AttributeHandle, error)
}
