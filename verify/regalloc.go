package verify

// LiveRange is a half-open [Start, End) interval over a linear schedule
// position, identifying one spill's occupancy of a frame entity.
// backend.SpillSlotCoalesce builds these before calling SpillSlotChecks.
type LiveRange struct {
	NodeID        uint64
	FrameEntityID uint64
	Start, End    int

	// Size and Align describe the spilled value's storage footprint; they
	// are metadata for backend.SpillSlotCoalesce's frame layout and play no
	// role in the overlap check itself (zero values are valid — a caller
	// that only cares about interference may omit them).
	Size, Align uint32
}

func (r LiveRange) overlaps(o LiveRange) bool {
	return r.Start < o.End && o.Start < r.End
}

// SpillSlotChecks enforces §8's "Spill-slot non-interference: two spills
// sharing a frame entity have disjoint live ranges."
func SpillSlotChecks(entity string, ranges []LiveRange) Report {
	var report Report
	byEntity := map[uint64][]LiveRange{}
	for _, r := range ranges {
		byEntity[r.FrameEntityID] = append(byEntity[r.FrameEntityID], r)
	}
	for frameID, rs := range byEntity {
		for i := 0; i < len(rs); i++ {
			for j := i + 1; j < len(rs); j++ {
				if !rs[i].overlaps(rs[j]) {
					continue
				}
				report = append(report, diag(entity, SeverityError, "spill-slot",
					"spills for nodes %d and %d share frame entity %d with overlapping live ranges",
					0, 0, rs[i].NodeID, rs[j].NodeID, frameID))
			}
		}
	}
	return report
}

// ConstraintKind names one of the §4.5 Select-stage register constraints a
// RegAlloc assignment must satisfy.
type ConstraintKind int

const (
	ConstraintNone ConstraintKind = iota
	ConstraintShouldBeSame
	ConstraintMustBeDifferent
	ConstraintLimitedToRegister
)

// Assignment is one node's post-RegAlloc register binding, as the backend's
// RegAlloc glue stage produces it.
type Assignment struct {
	NodeID     uint64
	BlockID    uint64
	Register   string
	Constraint ConstraintKind
	PairNodeID uint64   // the related operand for ShouldBeSame/MustBeDifferent
	Allowed    []string // the legal register set for LimitedToRegister
}

// RegisterAllocationChecks verifies every Assignment against its own
// declared constraint.
func RegisterAllocationChecks(entity string, assignments []Assignment) Report {
	var report Report
	byNode := make(map[uint64]Assignment, len(assignments))
	for _, a := range assignments {
		byNode[a.NodeID] = a
	}

	for _, a := range assignments {
		switch a.Constraint {
		case ConstraintShouldBeSame:
			if other, ok := byNode[a.PairNodeID]; ok && other.Register != a.Register {
				report = append(report, diag(entity, SeverityError, "register-allocation",
					"assigned %q, should-be-same as node %d's %q",
					a.NodeID, a.BlockID, a.Register, a.PairNodeID, other.Register))
			}
		case ConstraintMustBeDifferent:
			if other, ok := byNode[a.PairNodeID]; ok && other.Register == a.Register {
				report = append(report, diag(entity, SeverityError, "register-allocation",
					"and node %d must-be-different but share register %q",
					a.NodeID, a.BlockID, a.PairNodeID, a.Register))
			}
		case ConstraintLimitedToRegister:
			if !contains(a.Allowed, a.Register) {
				report = append(report, diag(entity, SeverityError, "register-allocation",
					"assigned %q, not in its limited-to-register set %v",
					a.NodeID, a.BlockID, a.Register, a.Allowed))
			}
		}
	}
	return report
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
