// Package ident provides the process-wide interned string pool used for
// entity linker-names, type names, and attribute symbols throughout the
// kernel (§2 "Identifiers & Types").
//
// The pool is shared by every graph in the process; per §5 it is guarded by
// a single read-mostly, write-rare mutex, mirroring core.Graph's split
// muVert/muEdgeAdj locking discipline collapsed here into one table.
package ident

import "sync"

// ID is an interned identifier. Two IDs are equal iff their underlying
// strings are equal; callers may compare IDs with ==.
type ID struct {
	s string
}

// String returns the identifier's text.
func (i ID) String() string { return i.s }

// IsZero reports whether i is the zero value (never produced by New).
func (i ID) IsZero() bool { return i.s == "" }

var (
	mu   sync.RWMutex
	pool = map[string]ID{}
)

// New interns s, returning the canonical ID for it. Safe for concurrent use
// from multiple graphs' owning threads (§5: "writers serialize with readers").
func New(s string) ID {
	mu.RLock()
	if id, ok := pool[s]; ok {
		mu.RUnlock()
		return id
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if id, ok := pool[s]; ok {
		return id
	}
	id := ID{s: s}
	pool[s] = id
	return id
}

// Count returns the number of distinct interned identifiers; exposed for
// diagnostics and tests only.
func Count() int {
	mu.RLock()
	defer mu.RUnlock()
	return len(pool)
}
