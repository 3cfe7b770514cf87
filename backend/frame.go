package backend

import (
	"fmt"
	"sort"

	"github.com/katalvlaran/firmkit/mode"
	"github.com/katalvlaran/firmkit/typ"
	"github.com/katalvlaran/firmkit/verify"
)

// track is one frame entity under construction: every range already
// assigned to it, kept only to test the next candidate for overlap.
type track struct {
	entityID uint64
	size     uint32
	align    uint32
	assigned []verify.LiveRange
}

func (t *track) overlapsAny(r verify.LiveRange) bool {
	for _, a := range t.assigned {
		if a.Start < r.End && r.Start < a.End {
			return true
		}
	}
	return false
}

// SpillSlotCoalesce collects every RegAlloc spill candidate, assigns each a
// frame entity — sharing one entity between spills whose live ranges don't
// overlap, exactly as a linear-scan register allocator's own spill-slot
// reuse does — then lays out Graph.FrameType as a Struct of the resulting
// entities by ascending alignment (§4.5 step 6; the entities are sorted
// here, since typ.Struct keeps the member order it is given).
func (fn *Function) SpillSlotCoalesce() error {
	if len(fn.SpillRanges) == 0 {
		// PrologueEpilogue reads Graph.FrameType unconditionally; an empty
		// struct keeps that read safe for a procedure with nothing to spill.
		fn.Graph.FrameType = typ.Struct(fn.Graph.Entity.LinkerName+".frame", nil, nil)
		return nil
	}

	ranges := append([]verify.LiveRange(nil), fn.SpillRanges...)
	sort.Slice(ranges, func(i, j int) bool { return ranges[i].Start < ranges[j].Start })

	var tracks []*track
	fn.frameOf = map[uint64]uint64{}
	for _, r := range ranges {
		var chosen *track
		for _, t := range tracks {
			if !t.overlapsAny(r) && t.size >= r.Size {
				chosen = t
				break
			}
		}
		if chosen == nil {
			chosen = &track{entityID: uint64(len(tracks)), size: r.Size, align: r.Align}
			tracks = append(tracks, chosen)
		}
		chosen.assigned = append(chosen.assigned, r)
		fn.frameOf[r.NodeID] = chosen.entityID
	}

	// Fix up FrameEntityID on every Spill/Reload node and every recorded
	// LiveRange to the coalesced track index rather than the placeholder
	// (the spill node's own ID) RegAlloc left in place.
	for i := range fn.SpillRanges {
		if entity, ok := fn.frameOf[fn.SpillRanges[i].NodeID]; ok {
			fn.SpillRanges[i].FrameEntityID = entity
		}
	}
	for _, n := range fn.Graph.Nodes() {
		if n.Op != OpSpill && n.Op != OpReload {
			continue
		}
		spillID := n.ID()
		if n.Op == OpReload {
			spillID = n.InAt(0).ID()
		}
		if entity, ok := fn.frameOf[spillID]; ok {
			n.Attrs = SpillAttrs{FrameEntityID: entity}
		}
	}

	fieldTypes := make([]*typ.Type, len(tracks))
	fieldNames := make([]string, len(tracks))
	sort.Slice(tracks, func(i, j int) bool { return tracks[i].align < tracks[j].align })
	for i, t := range tracks {
		fieldTypes[i] = slotType(t.size)
		fieldNames[i] = fmt.Sprintf("slot%d", t.entityID)
	}
	fn.Graph.FrameType = typ.Struct(fn.Graph.Entity.LinkerName+".frame", fieldTypes, fieldNames)
	return nil
}

// slotType picks the narrowest integer primitive type at least byteSize
// bytes wide to back one frame slot; the member's own size is what
// typ.Struct's layout actually uses.
func slotType(byteSize uint32) *typ.Type {
	switch {
	case byteSize <= 1:
		return typ.Primitive(mode.Is8)
	case byteSize <= 2:
		return typ.Primitive(mode.Is16)
	case byteSize <= 4:
		return typ.Primitive(mode.Is32)
	default:
		return typ.Primitive(mode.Is64)
	}
}
