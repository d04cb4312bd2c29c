// Package config holds the static engine-wide configuration consumed
// by the server package, mirroring the role gobgp's own config.Global/
// config.Neighbor play for *Peer construction.
package config

// DefaultBranchingFactor is the engine-wide k-ary branching factor
// used when a Global does not override it (spec §4.2 step 3).
const DefaultBranchingFactor = 4

// Global is the tree manager's static configuration, passed by value
// into server.NewTreeManager the way *config.Global is passed into
// the teacher's NewPeer.
type Global struct {
	// RouterID is the local router-id used as the next-hop when
	// synthesizing forest-node routes (spec §4.2.1).
	RouterID string

	// BranchingFactor is K, the fixed engine-wide branching factor
	// for distribution-tree construction (spec §4.2). Zero means
	// DefaultBranchingFactor.
	BranchingFactor int
}

// Degree returns the configured branching factor, defaulting to
// DefaultBranchingFactor when unset or non-positive.
func (g Global) Degree() int {
	if g.BranchingFactor <= 0 {
		return DefaultBranchingFactor
	}
	return g.BranchingFactor
}
