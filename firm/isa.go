package firm

import (
	"sort"

	"github.com/katalvlaran/firmkit/internal/clog"
	"github.com/katalvlaran/firmkit/irgraph"
	"golang.org/x/exp/maps"
)

// logger is the package-wide diagnostic sink (§6, §7): installed once at
// package init, not reconfigured by Init itself, since a caller wanting a
// different sink can simply call clog.New and keep its own reference —
// nothing downstream of firm reaches back into this var.
var logger = clog.Default()

// ISA is the pluggable per-target seam (§6): a concrete backend registers
// one implementation under a name via RegisterTarget, and the backend
// pipeline (backend.Run) drives it through LowerForTarget/GenerateCode for
// every procedure. No concrete ISA (amd64, arm, ...) ships in this module —
// only the interface and the registry.
type ISA interface {
	// Init prepares the ISA to emit code under p; called once per target
	// selection, before any graph is lowered.
	Init(p Params) error
	// Finish releases any resources Init acquired.
	Finish()
	// GetParams returns the Params the ISA was initialized with.
	GetParams() Params
	// LowerForTarget rewrites g's IR to the subset the ISA's instruction
	// selector accepts (e.g. splitting wide ops the target has no single
	// instruction for), in place.
	LowerForTarget(g *irgraph.Graph) error
	// GenerateCode emits the final machine code / assembly text for g,
	// which must already have passed through the full backend pipeline.
	GenerateCode(g *irgraph.Graph) ([]byte, error)
	// IsValidClobber reports whether regName names a register the ISA's
	// calling convention allows a callee to clobber without saving.
	IsValidClobber(regName string) bool
	// GetOpEstimatedCost estimates op's cost in the ISA's own cost model,
	// consulted by cost-driven transforms (e.g. transform.FindSuitableFactor).
	GetOpEstimatedCost(op irgraph.Opcode) int
}

var targets = map[string]ISA{}

// RegisterTarget installs isa under name, failing if name is empty or
// already claimed.
func RegisterTarget(name string, isa ISA) error {
	if name == "" {
		return ErrEmptyTargetName
	}
	if _, exists := targets[name]; exists {
		return ErrTargetAlreadyRegistered
	}
	targets[name] = isa
	logger.Info("registered target %q", name)
	return nil
}

// LookupTarget returns the ISA registered under name.
func LookupTarget(name string) (ISA, error) {
	isa, ok := targets[name]
	if !ok {
		return nil, ErrUnknownTarget
	}
	return isa, nil
}

// TargetNames lists every currently registered target name, sorted for
// deterministic introspection (matching Options.Keys's own ordering
// guarantee).
func TargetNames() []string {
	names := maps.Keys(targets)
	sort.Strings(names)
	return names
}
