package main

import (
	"fmt"

	"github.com/katalvlaran/firmkit/analysis"
	"github.com/katalvlaran/firmkit/construct"
	"github.com/katalvlaran/firmkit/irgraph"
	"github.com/katalvlaran/firmkit/mode"
	"github.com/katalvlaran/firmkit/tarval"
	"github.com/katalvlaran/firmkit/transform"
)

// scenario builds one of the §8 end-to-end demonstration graphs, returning
// it already finalized and ready for the backend pipeline.
type scenario struct {
	name        string
	description string
	build       func() (*irgraph.Graph, *analysis.Registry, error)
}

var scenarios = map[string]scenario{
	"empty": {
		name:        "empty",
		description: "a procedure returning void with zero locals",
		build:       buildEmptyMain,
	},
	"cond": {
		name:        "cond",
		description: "int f(int a) { return (a>2 && a<10) ? 1 : a; }",
		build:       buildConditional,
	},
	"inline": {
		name:        "inline",
		description: "a setter/getter call pair on a fresh allocation, inlined and CSE'd",
		build:       buildInlineCSE,
	},
	"loop": {
		name:        "loop",
		description: "for (int i=0;i<4;++i) s+=a[i]; fully unrolled at factor=4",
		build:       buildFullyUnrolledLoop,
	},
}

// orderedScenarioNames lists the scenario keys in a fixed, deterministic
// display order (map iteration order is not).
var orderedScenarioNames = []string{"empty", "cond", "inline", "loop"}

func buildEmptyMain() (*irgraph.Graph, *analysis.Registry, error) {
	ctx := construct.BeginGraph(irgraph.Entity{LinkerName: "main"}, nil, nil)
	start := ctx.StartBlock()

	mem := ctx.NewProj(start, start.Node(), 0, mode.Mem)
	if _, err := ctx.NewReturn(start, start.Node(), mem); err != nil {
		return nil, nil, err
	}
	if err := ctx.Finalize(); err != nil {
		return nil, nil, err
	}
	return ctx.Graph(), analysis.NewRegistry(), nil
}

func buildConditional() (*irgraph.Graph, *analysis.Registry, error) {
	ctx := construct.BeginGraph(irgraph.Entity{LinkerName: "f"}, nil, []mode.Mode{mode.Is32})
	start := ctx.StartBlock()

	arg := ctx.NewProj(start, start.Node(), 1, mode.Is32)
	mem := ctx.NewProj(start, start.Node(), 0, mode.Mem)

	two := ctx.NewConst(start, tarval.NewInt(mode.Is32, 2))
	ten := ctx.NewConst(start, tarval.NewInt(mode.Is32, 10))
	one := ctx.NewConst(start, tarval.NewInt(mode.Is32, 1))

	gt, err := ctx.NewCmp(start, arg, two, tarval.RelGreater)
	if err != nil {
		return nil, nil, err
	}
	lt, err := ctx.NewCmp(start, arg, ten, tarval.RelLess)
	if err != nil {
		return nil, nil, err
	}
	inRange, err := ctx.NewAnd(start, gt, lt)
	if err != nil {
		return nil, nil, err
	}
	result, err := ctx.NewMux(start, inRange, one, arg)
	if err != nil {
		return nil, nil, err
	}
	if _, err := ctx.NewReturn(start, start.Node(), mem, result); err != nil {
		return nil, nil, err
	}
	if err := ctx.Finalize(); err != nil {
		return nil, nil, err
	}
	return ctx.Graph(), analysis.NewRegistry(), nil
}

// buildInlineCSE builds a caller that allocates, calls a setter then a
// getter on the same cell, and returns their sum with the argument; the
// caller returns the inlined, DCE'd result — the setter/getter graphs
// themselves are transient inlining sources, never emitted on their own.
func buildInlineCSE() (*irgraph.Graph, *analysis.Registry, error) {
	setterCtx := construct.BeginGraph(irgraph.Entity{LinkerName: "setter"}, nil, nil)
	setterStart := setterCtx.StartBlock()
	setterMem := setterCtx.NewProj(setterStart, setterStart.Node(), 0, mode.Mem)
	setterPtr := setterCtx.NewProj(setterStart, setterStart.Node(), 1, mode.P)
	setterVal := setterCtx.NewProj(setterStart, setterStart.Node(), 2, mode.Is32)
	storedMem, err := setterCtx.NewStore(setterStart, setterMem, setterPtr, setterVal)
	if err != nil {
		return nil, nil, err
	}
	if _, err := setterCtx.NewReturn(setterStart, setterStart.Node(), storedMem); err != nil {
		return nil, nil, err
	}
	if err := setterCtx.Finalize(); err != nil {
		return nil, nil, err
	}

	getterCtx := construct.BeginGraph(irgraph.Entity{LinkerName: "getter"}, nil, nil)
	getterStart := getterCtx.StartBlock()
	getterMem := getterCtx.NewProj(getterStart, getterStart.Node(), 0, mode.Mem)
	getterPtr := getterCtx.NewProj(getterStart, getterStart.Node(), 1, mode.P)
	loadTuple, err := getterCtx.NewLoad(getterStart, getterMem, getterPtr, mode.Is32)
	if err != nil {
		return nil, nil, err
	}
	loadedMem := getterCtx.NewProj(getterStart, loadTuple, 0, mode.Mem)
	loadedVal := getterCtx.NewProj(getterStart, loadTuple, 1, mode.Is32)
	if _, err := getterCtx.NewReturn(getterStart, getterStart.Node(), loadedMem, loadedVal); err != nil {
		return nil, nil, err
	}
	if err := getterCtx.Finalize(); err != nil {
		return nil, nil, err
	}

	callerCtx := construct.BeginGraph(irgraph.Entity{LinkerName: "caller"}, nil, []mode.Mode{mode.Is32})
	callerStart := callerCtx.StartBlock()
	callerMem := callerCtx.NewProj(callerStart, callerStart.Node(), 0, mode.Mem)
	callerArg := callerCtx.NewProj(callerStart, callerStart.Node(), 1, mode.Is32)

	cell := callerCtx.NewAlloc(callerStart)
	storedVal := callerCtx.NewConst(callerStart, tarval.NewInt(mode.Is32, 7))

	setterCall, err := callerCtx.NewCall(callerStart, callerMem, setterCtx.Graph().Entity, false, cell, storedVal)
	if err != nil {
		return nil, nil, err
	}
	memAfterSet := callerCtx.NewProj(callerStart, setterCall, 0, mode.Mem)

	getterCall, err := callerCtx.NewCall(callerStart, memAfterSet, getterCtx.Graph().Entity, false, cell)
	if err != nil {
		return nil, nil, err
	}
	memAfterGet := callerCtx.NewProj(callerStart, getterCall, 0, mode.Mem)
	gotVal := callerCtx.NewProj(callerStart, getterCall, 1, mode.Is32)

	sum, err := callerCtx.NewAdd(callerStart, callerArg, gotVal)
	if err != nil {
		return nil, nil, err
	}
	if _, err := callerCtx.NewReturn(callerStart, callerStart.Node(), memAfterGet, sum); err != nil {
		return nil, nil, err
	}
	if err := callerCtx.Finalize(); err != nil {
		return nil, nil, err
	}

	g := callerCtx.Graph()
	if err := transform.Inline(g, setterCall, setterCtx.Graph()); err != nil {
		return nil, nil, fmt.Errorf("inline setter: %w", err)
	}
	if err := transform.Inline(g, getterCall, getterCtx.Graph()); err != nil {
		return nil, nil, fmt.Errorf("inline getter: %w", err)
	}
	transform.DeadCodeElim(g)

	return g, analysis.NewRegistry(), nil
}

// buildFullyUnrolledLoop builds the canonical two-block loop shape
// (Header -> Body -> back to Header, Header -> Exit) computing
// s = sum(a[0..3]), then fully unrolls it at factor=4 (§4.4, §8 scenario 4).
func buildFullyUnrolledLoop() (*irgraph.Graph, *analysis.Registry, error) {
	// Local slots: 0 = i, 1 = s, 2 = the threaded memory edge.
	ctx := construct.BeginGraph(irgraph.Entity{LinkerName: "loopsum"}, nil, []mode.Mode{mode.Is32, mode.Is32, mode.Mem})
	start := ctx.StartBlock()

	zero := ctx.NewConst(start, tarval.NewInt(mode.Is32, 0))
	if err := ctx.SetValue(start, 0, zero); err != nil {
		return nil, nil, err
	}
	if err := ctx.SetValue(start, 1, zero); err != nil {
		return nil, nil, err
	}
	startMem := ctx.NewProj(start, start.Node(), 0, mode.Mem)
	if err := ctx.SetValue(start, 2, startMem); err != nil {
		return nil, nil, err
	}
	arr := ctx.NewAlloc(start)
	preheaderJmp := ctx.NewJmp(start, start.Node())

	header := ctx.NewImmBlock()
	if err := ctx.AddPred(header, preheaderJmp); err != nil {
		return nil, nil, err
	}
	iHeader, err := ctx.GetValue(header, 0)
	if err != nil {
		return nil, nil, err
	}
	four := ctx.NewConst(header, tarval.NewInt(mode.Is32, 4))
	cmp, err := ctx.NewCmp(header, iHeader, four, tarval.RelLess)
	if err != nil {
		return nil, nil, err
	}
	cond, err := ctx.NewCond(header, header.Node(), cmp)
	if err != nil {
		return nil, nil, err
	}
	continueProj := ctx.NewProj(header, cond, 1, mode.Ctrl)
	exitProj := ctx.NewProj(header, cond, 0, mode.Ctrl)

	body := ctx.NewImmBlock()
	if err := ctx.AddPred(body, continueProj); err != nil {
		return nil, nil, err
	}
	iBody, err := ctx.GetValue(body, 0)
	if err != nil {
		return nil, nil, err
	}
	sBody, err := ctx.GetValue(body, 1)
	if err != nil {
		return nil, nil, err
	}
	memBody, err := ctx.GetValue(body, 2)
	if err != nil {
		return nil, nil, err
	}
	idxAddr := ctx.NewConv(body, iBody, mode.P)
	addr, err := ctx.NewAdd(body, arr, idxAddr)
	if err != nil {
		return nil, nil, err
	}
	loadTuple, err := ctx.NewLoad(body, memBody, addr, mode.Is32)
	if err != nil {
		return nil, nil, err
	}
	memAfterLoad := ctx.NewProj(body, loadTuple, 0, mode.Mem)
	loadedVal := ctx.NewProj(body, loadTuple, 1, mode.Is32)
	sNext, err := ctx.NewAdd(body, sBody, loadedVal)
	if err != nil {
		return nil, nil, err
	}
	one := ctx.NewConst(body, tarval.NewInt(mode.Is32, 1))
	iNext, err := ctx.NewAdd(body, iBody, one)
	if err != nil {
		return nil, nil, err
	}
	if err := ctx.SetValue(body, 0, iNext); err != nil {
		return nil, nil, err
	}
	if err := ctx.SetValue(body, 1, sNext); err != nil {
		return nil, nil, err
	}
	if err := ctx.SetValue(body, 2, memAfterLoad); err != nil {
		return nil, nil, err
	}
	backEdge := ctx.NewJmp(body, body.Node())
	if err := ctx.AddPred(header, backEdge); err != nil {
		return nil, nil, err
	}
	if err := ctx.MatureBlock(header); err != nil {
		return nil, nil, err
	}
	if err := ctx.MatureBlock(body); err != nil {
		return nil, nil, err
	}

	exit := ctx.NewImmBlock()
	if err := ctx.AddPred(exit, exitProj); err != nil {
		return nil, nil, err
	}
	if err := ctx.MatureBlock(exit); err != nil {
		return nil, nil, err
	}
	sExit, err := ctx.GetValue(exit, 1)
	if err != nil {
		return nil, nil, err
	}
	memExit, err := ctx.GetValue(exit, 2)
	if err != nil {
		return nil, nil, err
	}
	if _, err := ctx.NewReturn(exit, exit.Node(), memExit, sExit); err != nil {
		return nil, nil, err
	}
	if err := ctx.Finalize(); err != nil {
		return nil, nil, err
	}

	g := ctx.Graph()
	reg := analysis.NewRegistry()

	ltVal, err := analysis.Ensure(g, reg, analysis.LoopTreePass{})
	if err != nil {
		return nil, nil, err
	}
	lt := ltVal.(*analysis.LoopTree)
	loop, ok := lt.Innermost[header.ID()]
	if !ok {
		return nil, nil, fmt.Errorf("loop scenario: header %d not recognized as a loop", header.ID())
	}

	if _, err := analysis.Ensure(g, reg, analysis.LoopClosedSSAPass{}); err != nil {
		return nil, nil, err
	}
	if err := transform.FullUnroll(g, loop, 4); err != nil {
		return nil, nil, fmt.Errorf("unroll: %w", err)
	}
	transform.DeadCodeElim(g)

	return g, reg, nil
}
