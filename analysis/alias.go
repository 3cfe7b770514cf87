package analysis

import "github.com/katalvlaran/firmkit/irgraph"

// AliasRelation classifies the possible overlap between two pointer values
// (§4.3 "Alias (no_alias/may_alias/must_alias from type + symbolic
// base/offset)").
type AliasRelation int

const (
	AliasMay AliasRelation = iota // conservative default: nothing provable
	AliasNone
	AliasMust
)

func (r AliasRelation) String() string {
	switch r {
	case AliasNone:
		return "no_alias"
	case AliasMust:
		return "must_alias"
	default:
		return "may_alias"
	}
}

// Alias answers alias queries by decomposing each address into a symbolic
// (base, constant offset) pair and comparing bases: this pass is cheap
// enough that it computes nothing eagerly and just exposes Query.
type Alias struct{}

// symbolicAddr is an address decomposed into an opaque base value plus a
// statically-known constant byte offset from it. decompose always sets
// exact: an expression it cannot break down further (e.g. a Load result
// used as a pointer) becomes its own opaque base with zero offset.
type symbolicAddr struct {
	base  *irgraph.Node
	offset int64
	exact bool
}

func decompose(addr *irgraph.Node) symbolicAddr {
	switch addr.Op {
	case irgraph.OpAlloc:
		return symbolicAddr{base: addr, offset: 0, exact: true}
	case irgraph.OpConv:
		inner := decompose(addr.InAt(0))
		return symbolicAddr{base: inner.base, offset: inner.offset, exact: inner.exact}
	case irgraph.OpAdd:
		l, r := addr.InAt(0), addr.InAt(1)
		if c, ok := constOffset(r); ok {
			inner := decompose(l)
			return symbolicAddr{base: inner.base, offset: inner.offset + c, exact: inner.exact}
		}
		if c, ok := constOffset(l); ok {
			inner := decompose(r)
			return symbolicAddr{base: inner.base, offset: inner.offset + c, exact: inner.exact}
		}
	}
	return symbolicAddr{base: addr, offset: 0, exact: true}
}

func constOffset(n *irgraph.Node) (int64, bool) {
	if n.Op != irgraph.OpConst {
		return 0, false
	}
	ca, ok := n.Attrs.(irgraph.ConstAttrs)
	if !ok {
		return 0, false
	}
	// Read the raw bit pattern rather than Int64()/Uint64(): pointer-mode
	// offset constants carry ArithReference, not ArithInt, and those
	// accessors panic outside their own arithmetic class.
	return int64(ca.Value.Bits), true
}

// Query classifies the relation between addresses a and b.
func (Alias) Query(a, b *irgraph.Node) AliasRelation {
	da, db := decompose(a), decompose(b)
	if da.base == db.base {
		if da.exact && db.exact {
			if da.offset == db.offset {
				return AliasMust
			}
			return AliasNone
		}
		return AliasMay
	}
	// Two distinct, statically-known allocations never overlap; anything
	// else (parameters, loaded pointers, unresolved bases) might.
	if da.base.Op == irgraph.OpAlloc && db.base.Op == irgraph.OpAlloc {
		return AliasNone
	}
	return AliasMay
}

// AliasPass registers Alias as a Pass so it can be looked up through the
// Registry like every other analysis, even though Query is evaluated lazily
// per pair rather than precomputed over the whole graph.
type AliasPass struct{}

func (AliasPass) Property() irgraph.Property     { return irgraph.PropAlias }
func (AliasPass) Requires() []irgraph.Property    { return nil }
func (AliasPass) Invalidates() []irgraph.Property { return nil }

func (AliasPass) Run(g *irgraph.Graph) (interface{}, error) {
	return Alias{}, nil
}
