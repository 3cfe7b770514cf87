// Package analysis implements the §4.3 analyses over an irgraph.Graph:
// out-edges, dominance/post-dominance, loop tree, liveness, loop-closed
// SSA, and alias analysis. Every analysis is a Pass: it declares the
// properties it Requires() and the ones it Invalidates(), and Run recomputes
// lazily — idempotent reanalysis of a fresh property is a no-op (§9
// "Property cache coherence").
package analysis

import "github.com/katalvlaran/firmkit/irgraph"

// Pass is one analysis over a graph, keyed to the irgraph.Property it
// produces. Requires lists properties Run reads (and therefore must already
// be fresh, recomputing them first if not); Invalidates lists properties
// that Run's own result makes stale in turn (almost always none — analyses
// read the graph, they do not mutate it; only transform passes invalidate).
type Pass interface {
	Property() irgraph.Property
	Requires() []irgraph.Property
	Invalidates() []irgraph.Property
	Run(g *irgraph.Graph) (interface{}, error)
}

// Ensure runs pass on g if its property is stale, first ensuring every
// property it Requires() is itself fresh (recursively, via the registry),
// then stores and returns the fresh result. Already-fresh properties are
// returned from cache untouched (§9 "recompute-if-stale, idempotent
// reanalysis").
func Ensure(g *irgraph.Graph, reg *Registry, pass Pass) (interface{}, error) {
	if v, fresh := g.Property(pass.Property()); fresh {
		return v, nil
	}
	for _, req := range pass.Requires() {
		if _, fresh := g.Property(req); fresh {
			continue
		}
		dep, ok := reg.byProperty[req]
		if !ok {
			return nil, ErrUnknownDependency
		}
		if _, err := Ensure(g, reg, dep); err != nil {
			return nil, err
		}
	}
	result, err := pass.Run(g)
	if err != nil {
		return nil, err
	}
	g.SetProperty(pass.Property(), result)
	for _, inv := range pass.Invalidates() {
		g.Invalidate(inv)
	}
	return result, nil
}

// Registry resolves a Pass by the property it produces, so Ensure can
// recursively satisfy a Requires() list without every pass needing a direct
// reference to every other one.
type Registry struct {
	byProperty map[irgraph.Property]Pass
}

// NewRegistry builds a Registry preloaded with every analysis this package
// implements.
func NewRegistry() *Registry {
	r := &Registry{byProperty: map[irgraph.Property]Pass{}}
	for _, p := range []Pass{
		OutEdgesPass{},
		DominancePass{},
		PostDominancePass{},
		LoopTreePass{},
		LivenessPass{},
		LoopClosedSSAPass{},
		AliasPass{},
	} {
		r.byProperty[p.Property()] = p
	}
	return r
}

// Register installs (or overrides) the pass responsible for a property,
// used by callers that swap in a specialized liveness/alias variant.
func (r *Registry) Register(p Pass) {
	r.byProperty[p.Property()] = p
}
