// Package backend implements the §4.5 per-procedure back-end pipeline: nine
// stages running in sequence over an irgraph.Graph — LowerForTarget, Select,
// Schedule, RegAlloc glue, TwoAddressFixup, SpillSlotCoalesce,
// PrologueEpilogue, Peephole, Emit. Concrete target emitters (amd64/arm/
// ia32/...) are external collaborators reached only through firm.ISA; this
// package supplies the target-agnostic glue every target shares (the
// register-class classification, the schedule builder, the spill/reload
// allocator, the frame layout) and calls out to the target only for the
// handful of things that are genuinely target-specific (lowering, clobber
// validity, op cost, code generation).
//
// The verifier (package verify) runs after every stage; a Structural
// finding is a diagnostic, not an abort (§7 "Error Handling Design" — only
// Resource and Contract errors stop the pipeline).
package backend
