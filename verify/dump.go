package verify

import (
	"github.com/davecgh/go-spew/spew"
	"github.com/katalvlaran/firmkit/irgraph"
)

// DumpSubgraph renders n together with its direct inputs and uses for
// attaching to a Diagnostic when the bare node/block/entity prefix (§6)
// isn't enough context to act on a finding — e.g. cmd/firmc's verbose
// output mode. Not part of the diagnostic stream's own stable prefix;
// callers append it only on request.
func DumpSubgraph(n *irgraph.Node) string {
	if n == nil {
		return spew.Sdump(n)
	}
	return spew.Sdump(struct {
		Node   *irgraph.Node
		Inputs []*irgraph.Node
		Uses   []*irgraph.Node
	}{Node: n, Inputs: n.In, Uses: n.Uses()})
}
