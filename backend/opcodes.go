package backend

import "github.com/katalvlaran/firmkit/irgraph"

// The back end's own pseudo-opcodes: every target shares these (they are
// inserted by RegAlloc glue and PrologueEpilogue before any target-specific
// Select ever runs), so they are allocated in the target-opcode range
// (irgraph.OpTarget0 and up) rather than the generic middle-end set —
// generic passes (localopt, the analyses) already treat anything in that
// range as opaque and leave it alone.
const (
	// OpSpill stores a value to its assigned frame entity. In[0] is the
	// value being spilled; Attrs is SpillAttrs.
	OpSpill irgraph.Opcode = irgraph.OpTarget0 + iota

	// OpReload loads a previously spilled value back from its frame
	// entity. In[0] is the OpSpill it reloads; Attrs is SpillAttrs.
	OpReload

	// OpIncSP adjusts the stack pointer by a fixed, signed byte delta.
	// In[0] is the control predecessor it is scheduled after. Attrs is
	// IncSPAttrs.
	OpIncSP

	// OpCopy materializes a register-to-register move. TwoAddressFixup
	// inserts these to satisfy a ShouldBeSame constraint RegAlloc's
	// free-list assignment didn't happen to already honor (the generic
	// glue's rendering of §8 scenario 6's IA-32 sub→neg;add rewrite — a
	// real target's Copy lowers to whatever move instruction it owns).
	OpCopy
)

// SpillAttrs is the attribute payload of OpSpill and OpReload: which frame
// entity (the coalesced track number SpillSlotCoalesce assigns, laid out as
// the Graph.FrameType member named slot<N>) the value occupies.
type SpillAttrs struct {
	irgraph.BaseAttrs
	FrameEntityID uint64
}

// IncSPAttrs is the attribute payload of OpIncSP: the byte delta applied to
// the stack pointer (positive after Start, negative before each Return).
type IncSPAttrs struct {
	irgraph.BaseAttrs
	Delta int64
}
