package irgraph

import "github.com/katalvlaran/firmkit/typ"

// Entity is the persistent symbol (function, field, global) a Graph
// defines (§3 "Graph"). LinkerName prefixes every verifier diagnostic
// (§6 "Diagnostics").
type Entity struct {
	LinkerName string
	Type       *typ.Type // typ.KindMethod for procedures
}
