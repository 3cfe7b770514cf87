package analysis

import "github.com/katalvlaran/firmkit/irgraph"

// OutEdges is a snapshot of every node's use list at the time it was taken,
// keyed by node ID so it stays valid to read even as the live graph's
// out-edges keep mutating underneath it.
type OutEdges map[uint64][]*irgraph.Node

// OutEdgesPass materializes the graph's out-edges as a stable snapshot
// (§4.3 "Out-edges: maintained incrementally by construction and exchange").
// irgraph.Node.Uses already keeps this incrementally correct node-by-node;
// this pass exists so other analyses can declare Requires() on a single,
// graph-wide property rather than reaching into irgraph internals directly.
type OutEdgesPass struct{}

func (OutEdgesPass) Property() irgraph.Property     { return irgraph.PropOutEdges }
func (OutEdgesPass) Requires() []irgraph.Property    { return nil }
func (OutEdgesPass) Invalidates() []irgraph.Property { return nil }

func (OutEdgesPass) Run(g *irgraph.Graph) (interface{}, error) {
	out := make(OutEdges, len(g.Nodes()))
	for _, n := range g.Nodes() {
		out[n.ID()] = n.Uses()
	}
	return out, nil
}
