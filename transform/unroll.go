package transform

import (
	"github.com/katalvlaran/firmkit/analysis"
	"github.com/katalvlaran/firmkit/irgraph"
	"github.com/katalvlaran/firmkit/mode"
	"github.com/katalvlaran/firmkit/tarval"
)

// MaxFullUnrollTripCount bounds the trip count FullUnroll will clone
// literally; a larger static count is almost certainly a mistaken call
// (or a degenerate fixture) rather than a profitable unroll.
const MaxFullUnrollTripCount = 1 << 16

// MaxDuffFactor bounds the replica count DuffUnroll will build.
const MaxDuffFactor = 64

// loopShape is the canonical two-block loop this package's unrolling
// supports: a Header ending in exactly one Cond, whose taken edge reenters
// Header through Body's single back edge and whose untaken edge reaches
// Exit. recognizeLoopShape intentionally does not generalize beyond this —
// multi-block bodies, multiple latches, and multiple exits are out of scope
// (§4.4's scenarios only exercise the canonical shape); a loop outside it
// is reported via ErrUnrollPrecondition rather than partially handled.
type loopShape struct {
	Header *irgraph.Block
	Body   *irgraph.Block
	Exit   *irgraph.Block

	Cond         *irgraph.Node // the header's sole branch
	ContinueProj *irgraph.Node // Proj(Cond, 1): header -> body
	ExitProj     *irgraph.Node // Proj(Cond, 0): header -> exit
	ExitPos      int           // ExitProj's position in Exit.Preds()

	EntryCtrl *irgraph.Node // header's control pred from outside the loop
	BackCtrl  *irgraph.Node // header's control pred from Body (the back edge)
	EntryPos  int           // EntryCtrl's position in Header.Preds()
	BackPos   int           // BackCtrl's position in Header.Preds()
}

// recognizeLoopShape verifies loop fits the canonical shape above and
// collects the handles both unroll strategies need.
func recognizeLoopShape(g *irgraph.Graph, loop *analysis.Loop) (*loopShape, error) {
	if loop.Irreducible || len(loop.Body) != 2 {
		return nil, ErrUnrollPrecondition
	}
	header := loop.Header
	preds := header.Preds()
	if len(preds) != 2 {
		return nil, ErrUnrollPrecondition
	}

	var body *irgraph.Block
	for id, b := range loop.Body {
		if id != header.ID() {
			body = b
		}
	}
	if body == nil {
		return nil, ErrUnrollPrecondition
	}

	entryPos, backPos := -1, -1
	for i, p := range preds {
		if p == nil || p.Block == nil {
			return nil, ErrUnrollPrecondition
		}
		if p.Block.ID() == body.ID() {
			backPos = i
		} else {
			entryPos = i
		}
	}
	if entryPos < 0 || backPos < 0 {
		return nil, ErrUnrollPrecondition
	}

	bodyPreds := body.Preds()
	if len(bodyPreds) != 1 {
		return nil, ErrUnrollPrecondition
	}

	var cond *irgraph.Node
	for _, n := range header.Nodes() {
		if n.Op == irgraph.OpCond {
			if cond != nil {
				return nil, ErrUnrollPrecondition
			}
			cond = n
		}
	}
	if cond == nil || cond.InAt(0) != header.Node() {
		return nil, ErrUnrollPrecondition
	}

	var continueProj, exitProj *irgraph.Node
	for _, n := range header.Nodes() {
		if n.Op != irgraph.OpProj || n.InAt(0) != cond {
			continue
		}
		switch n.Attrs.(irgraph.ProjAttrs).Num {
		case 1:
			continueProj = n
		case 0:
			exitProj = n
		}
	}
	if continueProj == nil || exitProj == nil || bodyPreds[0] != continueProj {
		return nil, ErrUnrollPrecondition
	}

	var exit *irgraph.Block
	exitPos := -1
	for _, b := range g.Blocks() {
		for i, p := range b.Preds() {
			if p == exitProj {
				exit, exitPos = b, i
			}
		}
	}
	if exit == nil {
		return nil, ErrUnrollPrecondition
	}

	return &loopShape{
		Header: header, Body: body, Exit: exit,
		Cond: cond, ContinueProj: continueProj, ExitProj: exitProj, ExitPos: exitPos,
		EntryCtrl: preds[entryPos], BackCtrl: preds[backPos],
		EntryPos: entryPos, BackPos: backPos,
	}, nil
}

// headerPhis returns every Phi owned by header, in no particular order.
func headerPhis(header *irgraph.Block) []*irgraph.Node {
	var out []*irgraph.Node
	for _, n := range header.Nodes() {
		if n.Op == irgraph.OpPhi {
			out = append(out, n)
		}
	}
	return out
}

// chainBodyClones clones shape.Body count times in sequence, threading each
// of phis' values through an override map (phiSeed supplies what every phi
// carries into the first clone) and wiring clone k's entry predecessor to
// clone k-1's back edge (or, for k==0, to firstPred). Returns the control
// value leaving the last clone, the value each phi would carry into a
// (count+1)'th clone, and the last clone's own link map — used to resolve
// any other body-local value that crosses out of the loop.
func chainBodyClones(g *irgraph.Graph, shape *loopShape, phis []*irgraph.Node, firstPred *irgraph.Node, phiSeed map[*irgraph.Node]*irgraph.Node, count int) (*irgraph.Node, map[*irgraph.Node]*irgraph.Node, *regionClone) {
	current := map[*irgraph.Node]*irgraph.Node{}
	for phi, v := range phiSeed {
		current[phi] = v
	}
	prevCtrl := firstPred
	var last *regionClone
	for k := 0; k < count; k++ {
		override := map[*irgraph.Node]*irgraph.Node{shape.ContinueProj: prevCtrl}
		for phi, v := range current {
			override[phi] = v
		}

		rc := cloneRegion(g, []*irgraph.Block{shape.Body}, override)
		last = rc
		prevCtrl = rc.node(shape.BackCtrl)

		next := map[*irgraph.Node]*irgraph.Node{}
		for _, phi := range phis {
			next[phi] = rc.resolveExternal(phi.In[shape.BackPos], override)
		}
		current = next
	}
	return prevCtrl, current, last
}

// foreignCrossing reports, for loop's exit-closed-SSA phis (if the property
// is fresh), whether any crossing value other than the ones this call
// already knows how to rewire exists — the precondition both strategies
// share: "fail before mutating" (§4.4) means this check must run before
// either strategy touches the graph, not after.
func foreignCrossing(g *irgraph.Graph, header *irgraph.Block, known map[*irgraph.Node]bool) error {
	lcsVal, fresh := g.Property(irgraph.PropLoopClosedSSA)
	if !fresh {
		return nil
	}
	lcs := lcsVal.(*analysis.LoopClosedSSA)
	phiMap, ok := lcs.ExitPhis[header.ID()]
	if !ok {
		return nil
	}
	for origID := range phiMap {
		orig, ok := g.NodeByID(origID)
		if !ok || !known[orig] {
			return ErrUnrollPrecondition
		}
	}
	return nil
}

// redirectExitPhis rewires loop's exit-closed-SSA phis (if fresh) for
// header, replacing each crossing value's operand with resolve's answer.
func redirectExitPhis(g *irgraph.Graph, shape *loopShape, resolve func(orig *irgraph.Node) *irgraph.Node) {
	lcsVal, fresh := g.Property(irgraph.PropLoopClosedSSA)
	if !fresh {
		return
	}
	lcs := lcsVal.(*analysis.LoopClosedSSA)
	phiMap, ok := lcs.ExitPhis[shape.Header.ID()]
	if !ok {
		return
	}
	for origID, exitPhi := range phiMap {
		orig, ok := g.NodeByID(origID)
		if !ok {
			continue
		}
		g.ReplaceInput(exitPhi, shape.ExitPos, resolve(orig))
	}
}

// FullUnroll replaces loop with tripCount back-to-back copies of its body,
// threading each header phi's recurrence through an override map instead of
// through the phi itself, and wires the exit block straight to the values
// (and control edge) the last copy produces (§4.4 "Full/fixed-factor: clone
// the loop body N times ... eliminate the header phi/compare entirely when
// N is static"). tripCount == 0 collapses the loop to nothing: the exit
// reads straight from whatever would have entered the header on the very
// first iteration, which is only well-defined when every crossing value is
// itself a header phi (a body-local value simply never gets computed).
//
// DeadCodeElim must run afterward to collect the now-unreachable header,
// Cond, and compare — like every pass in this package, FullUnroll only
// rewires; it never deletes.
func FullUnroll(g *irgraph.Graph, loop *analysis.Loop, tripCount int) error {
	if tripCount < 0 || tripCount > MaxFullUnrollTripCount {
		return ErrUnrollPrecondition
	}
	shape, err := recognizeLoopShape(g, loop)
	if err != nil {
		return err
	}
	phis := headerPhis(shape.Header)

	if tripCount == 0 {
		known := map[*irgraph.Node]bool{}
		for _, phi := range phis {
			known[phi] = true
		}
		if err := foreignCrossing(g, shape.Header, known); err != nil {
			return err
		}

		entryVals := map[*irgraph.Node]*irgraph.Node{}
		for _, phi := range phis {
			entryVals[phi] = phi.In[shape.EntryPos]
		}
		g.ReplaceInput(shape.Exit.Node(), shape.ExitPos, shape.EntryCtrl)
		redirectExitPhis(g, shape, func(orig *irgraph.Node) *irgraph.Node { return entryVals[orig] })
		g.InvalidateAll()
		return nil
	}

	seed := map[*irgraph.Node]*irgraph.Node{}
	for _, phi := range phis {
		seed[phi] = phi.In[shape.EntryPos]
	}
	finalCtrl, finalVals, lastClone := chainBodyClones(g, shape, phis, shape.EntryCtrl, seed, tripCount)

	g.ReplaceInput(shape.Exit.Node(), shape.ExitPos, finalCtrl)
	redirectExitPhis(g, shape, func(orig *irgraph.Node) *irgraph.Node {
		if v, ok := finalVals[orig]; ok {
			return v
		}
		return lastClone.node(orig)
	})

	g.InvalidateAll()
	return nil
}

// induction is a recognized header induction variable: a Phi updated by
// In[backPos] = phi <stepOp> step, with step a loop-invariant constant and
// the header's Cmp reading the phi against a valid base bound (§4.4's Duff
// strategy precondition list). Scoped to linear steps (Add/Sub); a
// multiplicative step would need a discrete-log residue computation this
// pass does not build, so recognizeInduction rejects it outright.
type induction struct {
	Phi     *irgraph.Node
	IncNode *irgraph.Node
	StepOp  irgraph.Opcode
	Step    *tarval.Tarval // the literal constant operand of IncNode

	// SignedStep normalizes Step to "the signed delta the phi gains each
	// iteration": Step itself for Add, its negation for Sub. Every formula
	// below is written once in terms of SignedStep rather than duplicated
	// per stepOp.
	SignedStep *tarval.Tarval

	Cmp    *irgraph.Node
	IndPos int // the phi's operand position within Cmp (0 or 1)
	Bound  *irgraph.Node
}

// recognizeInduction validates the §4.4 Duff preconditions: a single header
// phi (so the unrolled chain has exactly one recurrence to thread), updated
// by a linear op against a constant step reached through exactly the loop's
// one back edge, compared in the canonical "phi REL bound" orientation with
// a relation that is neither equality nor unordered, against a bound that
// is itself a valid base.
func recognizeInduction(g *irgraph.Graph, reg *analysis.Registry, loop *analysis.Loop, shape *loopShape) (*induction, error) {
	phis := headerPhis(shape.Header)
	if len(phis) != 1 {
		return nil, ErrUnrollPrecondition
	}
	phi := phis[0]
	inc := phi.In[shape.BackPos]
	if inc == nil || inc.Block == nil || inc.Block.ID() != shape.Body.ID() {
		return nil, ErrUnrollPrecondition // not reached through exactly one back edge
	}

	var stepOp irgraph.Opcode
	switch inc.Op {
	case irgraph.OpAdd, irgraph.OpSub:
		stepOp = inc.Op
	default:
		return nil, ErrUnrollPrecondition
	}

	var step *tarval.Tarval
	switch {
	case inc.InAt(0) == phi && inc.InAt(1) != nil && inc.InAt(1).Op == irgraph.OpConst:
		step = inc.InAt(1).Attrs.(irgraph.ConstAttrs).Value
	case stepOp == irgraph.OpAdd && inc.InAt(1) == phi && inc.InAt(0) != nil && inc.InAt(0).Op == irgraph.OpConst:
		step = inc.InAt(0).Attrs.(irgraph.ConstAttrs).Value
	default:
		return nil, ErrUnrollPrecondition
	}
	if step.IsZero() {
		return nil, ErrUnrollPrecondition
	}
	signedStep := step
	if stepOp == irgraph.OpSub {
		signedStep = tarval.Neg(step.Mode, step)
	}

	if shape.Cond.InAt(1) == nil || shape.Cond.InAt(1).Op != irgraph.OpCmp {
		return nil, ErrUnrollPrecondition
	}
	cmp := shape.Cond.InAt(1)
	if cmp.InAt(0) != phi {
		// Scoped to the canonical "phi REL bound" orientation; the mirrored
		// "bound REL phi" form would need every relation flipped below.
		return nil, ErrUnrollPrecondition
	}
	relation := cmp.Attrs.(irgraph.CmpAttrs).Relation
	if relation == tarval.RelEqual || relation&tarval.RelUnordered != 0 {
		return nil, ErrUnrollPrecondition
	}

	bound := cmp.InAt(1)
	if err := validBase(g, reg, loop, bound); err != nil {
		return nil, err
	}

	return &induction{
		Phi: phi, IncNode: inc, StepOp: stepOp, Step: step, SignedStep: signedStep,
		Cmp: cmp, IndPos: 0, Bound: bound,
	}, nil
}

// validBase reports whether n is acceptable as an induction bound: a
// compile-time constant, a value defined entirely outside the loop, or a
// pure call whose arguments are themselves valid bases and whose own reads
// (if it is in fact a Load) are proven clear of the loop body's stores.
func validBase(g *irgraph.Graph, reg *analysis.Registry, loop *analysis.Loop, n *irgraph.Node) error {
	if n.Op == irgraph.OpConst {
		return nil
	}
	if n.Block == nil || loop.Body[n.Block.ID()] == nil {
		return nil // loop-invariant: defined outside the loop entirely
	}
	if n.Op == irgraph.OpProj {
		switch src := n.InAt(0); {
		case src != nil && src.Op == irgraph.OpLoad:
			if !loadClearOfBodyStores(g, reg, loop, src) {
				return ErrUnrollPrecondition
			}
			return nil
		case src != nil && src.Op == irgraph.OpCall:
			ca, ok := src.Attrs.(irgraph.CallAttrs)
			if !ok || !ca.Pure {
				return ErrUnrollPrecondition
			}
			for _, arg := range src.In[1:] {
				if err := validBase(g, reg, loop, arg); err != nil {
					return err
				}
			}
			return nil
		}
	}
	return ErrUnrollPrecondition
}

// loadClearOfBodyStores reports whether load's address cannot alias any
// store in loop.Body, via analysis.Alias (§4.3 "Alias").
func loadClearOfBodyStores(g *irgraph.Graph, reg *analysis.Registry, loop *analysis.Loop, load *irgraph.Node) bool {
	av, err := analysis.Ensure(g, reg, analysis.AliasPass{})
	if err != nil {
		return false
	}
	al := av.(analysis.Alias)
	addr := load.InAt(1)
	for _, b := range loop.Body {
		for _, n := range b.Nodes() {
			if n.Op != irgraph.OpStore {
				continue
			}
			if al.Query(addr, n.InAt(1)) != analysis.AliasNone {
				return false
			}
		}
	}
	return true
}

// constNode wraps v in a fresh Const node placed in block.
func constNode(g *irgraph.Graph, block *irgraph.Block, v *tarval.Tarval) *irgraph.Node {
	return g.NewNode(irgraph.OpConst, v.Mode, block, nil, irgraph.ConstAttrs{Value: v})
}

// buildOp emits a live binary op node, used where one operand is not known
// at transform time (unlike binConst's folding shortcut).
func buildOp(g *irgraph.Graph, block *irgraph.Block, op irgraph.Opcode, m mode.Mode, a, b *irgraph.Node) *irgraph.Node {
	return g.NewNode(op, m, block, []*irgraph.Node{a, b}, irgraph.BaseAttrs{})
}

// binConst builds `bound op delta`, folding to a single Const when bound is
// itself constant (mirrors localopt's own constant-folding shape) and
// otherwise emitting a live node in block.
func binConst(g *irgraph.Graph, block *irgraph.Block, op irgraph.Opcode, bound *irgraph.Node, delta *tarval.Tarval) *irgraph.Node {
	m := bound.Mode
	if bound.Op == irgraph.OpConst {
		bv := bound.Attrs.(irgraph.ConstAttrs).Value
		var folded *tarval.Tarval
		switch op {
		case irgraph.OpAdd:
			folded = tarval.Add(m, bv, delta)
		case irgraph.OpSub:
			folded = tarval.Sub(m, bv, delta)
		}
		return constNode(g, block, folded)
	}
	return buildOp(g, block, op, m, bound, constNode(g, block, delta))
}

// rewriteBound computes the unrolled main loop's new compare bound: N minus
// the signed step times (factor-1), matching §4.4(c)'s "replace the header
// compare's bound with N ± (|c|·(factor−1))" — the sign is carried by
// SignedStep itself rather than branching on stepOp here.
func rewriteBound(g *irgraph.Graph, block *irgraph.Block, ind *induction, factor int) *irgraph.Node {
	m := ind.SignedStep.Mode
	delta := tarval.Mul(m, ind.SignedStep, tarval.NewInt(m, int64(factor-1)))
	return binConst(g, block, irgraph.OpSub, ind.Bound, delta)
}

// residueBound computes i0 + ((N - i0) mod (c·factor)): the induction value
// left over after peeling whatever iterations don't divide evenly into
// factor-sized groups — the loop fix-up's own bound (§4.4 "Loop fix-up: a
// literal duplicate of the original loop that runs the residue").
func residueBound(g *irgraph.Graph, block *irgraph.Block, shape *loopShape, ind *induction, factor int) *irgraph.Node {
	m := ind.SignedStep.Mode
	i0 := ind.Phi.In[shape.EntryPos]
	diff := buildOp(g, block, irgraph.OpSub, m, ind.Bound, i0)
	factorStep := constNode(g, block, tarval.Mul(m, ind.SignedStep, tarval.NewInt(m, int64(factor))))
	residue := buildOp(g, block, irgraph.OpMod, m, diff, factorStep)
	return buildOp(g, block, irgraph.OpAdd, m, i0, residue)
}

// DuffUnroll replaces loop with a Duff's-device-style unrolled form (§4.4
// "Duff's device"): a loop fix-up (a full clone of the original loop, its
// own bound rewritten to run only the residue), feeding a single rewritten
// header that chains factor body clones per iteration before re-testing
// against N ± (|c|·(factor−1)). Only the recognized induction variable may
// cross the loop's exit — any other crossing value makes the loop
// ineligible, checked before any mutation so a rejected call leaves the
// graph untouched.
//
// This pass always emits the loop fix-up; the spec's alternative
// switch-based fix-up (available when the mode is integer and the step
// isn't multiplicative) is not implemented here.
func DuffUnroll(g *irgraph.Graph, reg *analysis.Registry, loop *analysis.Loop, factor int) error {
	if factor < 2 || factor > MaxDuffFactor {
		return ErrUnrollPrecondition
	}
	shape, err := recognizeLoopShape(g, loop)
	if err != nil {
		return err
	}
	ind, err := recognizeInduction(g, reg, loop, shape)
	if err != nil {
		return err
	}
	if err := foreignCrossing(g, shape.Header, map[*irgraph.Node]bool{ind.Phi: true}); err != nil {
		return err
	}

	preheader := shape.EntryCtrl.Block

	// One new header carrying the stride-factor·c bound, looping over
	// `factor` freshly chained body clones before re-testing.
	headerRC := cloneRegion(g, []*irgraph.Block{shape.Header}, nil)
	newHeader := headerRC.block(shape.Header)
	newHeaderPhi := headerRC.node(ind.Phi)
	newCmp := headerRC.node(ind.Cmp)
	newContinueProj := headerRC.node(shape.ContinueProj)
	newExitProj := headerRC.node(shape.ExitProj)

	newBound := rewriteBound(g, preheader, ind, factor)
	g.ReplaceInput(newCmp, 1, newBound)

	seed := map[*irgraph.Node]*irgraph.Node{ind.Phi: newHeaderPhi}
	finalCtrl, finalVals, _ := chainBodyClones(g, shape, []*irgraph.Node{ind.Phi}, newContinueProj, seed, factor)
	g.ReplaceInput(newHeader.Node(), shape.BackPos, finalCtrl)
	g.ReplaceInput(newHeaderPhi, shape.BackPos, finalVals[ind.Phi])

	// Loop fix-up: a standalone clone of the whole original loop, its
	// compare bound swapped for the dynamically computed residue limit,
	// feeding its own final induction value into the unrolled loop's entry.
	fixupRC := cloneRegion(g, []*irgraph.Block{shape.Header, shape.Body}, nil)
	fixupCmp := fixupRC.node(ind.Cmp)
	fixupPhi := fixupRC.node(ind.Phi)
	fixupExitProj := fixupRC.node(shape.ExitProj)

	fixupLimit := residueBound(g, preheader, shape, ind, factor)
	g.ReplaceInput(fixupCmp, 1, fixupLimit)

	g.ReplaceInput(newHeader.Node(), shape.EntryPos, fixupExitProj)
	g.ReplaceInput(newHeaderPhi, shape.EntryPos, fixupPhi)

	g.ReplaceInput(shape.Exit.Node(), shape.ExitPos, newExitProj)
	redirectExitPhis(g, shape, func(*irgraph.Node) *irgraph.Node { return newHeaderPhi })

	g.InvalidateAll()
	return nil
}

// FindSuitableFactor would normally size a fixed unroll factor from the
// loop body's footprint against a target-specific budget.
//
// TODO: unconditionally returns 0, disabling the automatic fixed-factor
// search; costEstimatedFactor below is the analysis that would otherwise
// run. Preserved verbatim rather than wired back in, pending clarification
// of the target budget this was meant to read from (§9 open question).
func FindSuitableFactor(g *irgraph.Graph, loop *analysis.Loop) int {
	return 0
}

// costEstimatedFactor sizes a fixed unroll factor from the loop body's
// block count; never called while FindSuitableFactor short-circuits above.
func costEstimatedFactor(loop *analysis.Loop) int {
	bodySize := len(loop.Body)
	switch {
	case bodySize <= 4:
		return 8
	case bodySize <= 16:
		return 4
	default:
		return 0
	}
}
