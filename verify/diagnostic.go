// Package verify implements the §4.6 invariant checks: Node (dominance,
// phi arity, memory ordering), Schedule, RegisterPressure/Liveness,
// SpillSlot, and RegisterAllocation groups. Every check reads a graph and
// reports diagnostics; none mutates (§8's verifier-idempotence law) —
// grounded on builder/validators.go + matrix/validators.go's dedicated,
// sentinel/formatted-error-returning validator-function convention,
// generalized from "called once at a constructor's entry" to "called after
// every backend pipeline stage, never aborting".
package verify

import "fmt"

// Severity orders a Diagnostic's urgency.
type Severity int

const (
	SeverityWarn Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "ERROR"
	}
	return "WARN"
}

// Diagnostic is one verifier finding: the violated invariant's name, a
// human-readable message, and the offending node/block/entity identifiers
// used as the §6 diagnostic-stream prefix ("the offending node, its block,
// and the owning entity's linker-name").
type Diagnostic struct {
	Severity   Severity
	Check      string // e.g. "dominance", "phi-arity", "schedule"
	Message    string
	NodeID     uint64
	BlockID    uint64
	LinkerName string
}

// String renders d as "[SEVERITY] entity: check: message (node=N block=B)",
// the stable prefix format §6 requires.
func (d Diagnostic) String() string {
	return fmt.Sprintf("[%s] %s: %s: %s (node=%d block=%d)",
		d.Severity, d.LinkerName, d.Check, d.Message, d.NodeID, d.BlockID)
}

// Report collects every Diagnostic a verify run produced, in the order
// checks ran.
type Report []Diagnostic

// OK reports whether the report contains no SeverityError diagnostic — a
// caller willing to tolerate warnings while still gating on hard failures
// checks this rather than len(report) == 0.
func (r Report) OK() bool {
	for _, d := range r {
		if d.Severity == SeverityError {
			return false
		}
	}
	return true
}

func diag(linkerName string, sev Severity, check, format string, node, block uint64, args ...interface{}) Diagnostic {
	return Diagnostic{
		Severity:   sev,
		Check:      check,
		Message:    fmt.Sprintf(format, args...),
		NodeID:     node,
		BlockID:    block,
		LinkerName: linkerName,
	}
}
