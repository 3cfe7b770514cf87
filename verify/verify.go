package verify

import (
	"github.com/katalvlaran/firmkit/analysis"
	"github.com/katalvlaran/firmkit/irgraph"
)

// Config bundles the inputs only available once a backend stage beyond
// plain IR construction has run: allocatable register counts (for
// LivenessChecks), spill live ranges (for SpillSlotChecks), and post-RegAlloc
// assignments (for RegisterAllocationChecks). A nil field skips the
// corresponding group rather than reporting spuriously against data that
// doesn't exist yet at the caller's current pipeline stage.
type Config struct {
	Capacity    map[RegisterClass]int
	SpillRanges []LiveRange
	Assignments []Assignment

	// Order, when non-nil, is backend.Function's own per-block schedule —
	// ScheduleChecks runs against it instead of raw creation order, since a
	// backend stage may have inserted or rewired nodes since construction.
	Order map[uint64][]*irgraph.Node
}

// Run executes every applicable check group against g and returns their
// combined Report (§4.5 "Verifier runs after every stage", §8 "running the
// verifier on a graph does not mutate it" — every check here only reads g
// and reg's cached analyses). NodeChecks and ScheduleChecks always run;
// the RegAlloc-dependent groups run only when cfg supplies their data.
func Run(g *irgraph.Graph, reg *analysis.Registry, cfg Config) (Report, error) {
	var report Report

	nodeReport, err := NodeChecks(g, reg)
	if err != nil {
		return nil, err
	}
	report = append(report, nodeReport...)
	if cfg.Order != nil {
		report = append(report, ScheduleChecksWithOrder(g, cfg.Order)...)
	} else {
		report = append(report, ScheduleChecks(g)...)
	}

	if cfg.Capacity != nil {
		livenessReport, err := LivenessChecks(g, reg, cfg.Capacity)
		if err != nil {
			return nil, err
		}
		report = append(report, livenessReport...)
	}
	if cfg.SpillRanges != nil {
		report = append(report, SpillSlotChecks(g.Entity.LinkerName, cfg.SpillRanges)...)
	}
	if cfg.Assignments != nil {
		report = append(report, RegisterAllocationChecks(g.Entity.LinkerName, cfg.Assignments)...)
	}
	return report, nil
}
