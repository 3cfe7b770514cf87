package verify

import "github.com/katalvlaran/firmkit/irgraph"

// ScheduleChecks enforces §8's "Schedule: ∀ block b and ∀ non-phi node
// n ∈ b, every in-block input of n has a strictly smaller timestamp", using
// Block.Nodes()'s creation order as the timestamp. Suitable before
// backend.Schedule has run (construction's own node order is already
// legal); once it has, call ScheduleChecksWithOrder against the schedule it
// produced instead, since backend stages may since have inserted or
// rewired nodes the raw creation order no longer reflects.
func ScheduleChecks(g *irgraph.Graph) Report {
	return scheduleChecks(g, nil)
}

// ScheduleChecksWithOrder is ScheduleChecks against an explicit per-block
// order (backend.Function.Order) rather than raw creation order — the
// form verify.Run uses once Config.Order is supplied.
func ScheduleChecksWithOrder(g *irgraph.Graph, order map[uint64][]*irgraph.Node) Report {
	return scheduleChecks(g, order)
}

func scheduleChecks(g *irgraph.Graph, order map[uint64][]*irgraph.Node) Report {
	entity := g.Entity.LinkerName
	var report Report

	for _, b := range g.Blocks() {
		nodes := b.Nodes()
		if order != nil {
			if explicit, ok := order[b.ID()]; ok {
				nodes = explicit
			}
		}
		position := make(map[uint64]int, len(nodes))
		for i, n := range nodes {
			position[n.ID()] = i
		}
		for i, n := range nodes {
			if n.Op == irgraph.OpPhi {
				continue
			}
			for _, in := range n.In {
				if in == nil || in.Block != b {
					continue
				}
				j, ok := position[in.ID()]
				if !ok || j < i {
					continue
				}
				report = append(report, diag(entity, SeverityError, "schedule",
					"in-block input node %d is not scheduled before node %d", n.ID(), b.ID(), in.ID(), n.ID()))
			}
		}
	}
	return report
}
