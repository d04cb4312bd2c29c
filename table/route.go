package table

import "net"

// RouteType distinguishes a native (Local-level) multicast join route
// from a cross-tier (Global-level) one, mirroring InetMVpnPrefix's
// NativeRoute/CMcastRoute distinction in the original source.
type RouteType int

const (
	RouteTypeNative RouteType = iota
	RouteTypeForestNode
)

// Prefix is the parsed multicast-join prefix carried by a Route:
// {type, route-distinguisher, router-id, group, source} from spec §6.
type Prefix struct {
	Type               RouteType
	RouteDistinguisher RouteDistinguisher
	RouterID           net.IP
	Group              net.IP
	Source             net.IP
}

// Path is the best path of a Route, exposing exactly the fields the
// engine needs (spec §6): next-hop, label-block reference and
// encapsulation, both only meaningful at the Local level.
type Path interface {
	NextHop() net.IP
	LabelBlock() LabelBlock
	Encapsulation() []string
}

// Route is a multicast-prefix route as seen through the route table's
// listener protocol (spec §6). All on-wire decoding happens upstream;
// by the time the engine sees a Route its fields are already valid.
type Route interface {
	Prefix() Prefix
	BestPath() Path
	IsDeleted() bool
}

// ListenerState is the opaque per-(table,listener) state slot a Route
// carries, used to attach a Forwarder to the Route that produced it
// (spec §6, §9: "typed back-reference... do not retrofit inheritance").
type ListenerState interface {
	// no methods: callers type-assert to *table.Forwarder
}
