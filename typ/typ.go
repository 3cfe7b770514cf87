// Package typ implements the type graph: primitive, pointer, array, struct,
// class, and method types (§2 "Identifiers & Types"). Types are immutable
// once built, interned by structural identity within a process-wide,
// read-mostly registry exactly as ident interns names (§5).
//
// The frame type of a procedure (§3 "Graph") is an ordinary Struct type
// whose members are the stack slots backend.SpillSlotCoalesce lays out by
// ascending alignment (§4.5 step 6).
package typ

import (
	"sync"

	"github.com/katalvlaran/firmkit/ident"
	"github.com/katalvlaran/firmkit/mode"
)

// Kind distinguishes the closed set of type shapes.
type Kind uint8

const (
	KindPrimitive Kind = iota
	KindPointer
	KindArray
	KindStruct
	KindClass
	KindMethod
)

// Member is one named, offset-positioned field of a Struct or Class type.
type Member struct {
	Name   ident.ID
	Type   *Type
	Offset uint32 // byte offset within the owning aggregate
}

// Type is an immutable node in the type graph.
type Type struct {
	Kind Kind
	Name ident.ID

	// Primitive
	Mode mode.Mode

	// Pointer / Array element
	Elem *Type

	// Array
	Len uint64 // element count; 0 means unbounded/flexible

	// Struct / Class
	Members []Member

	// Method
	Params  []*Type
	Results []*Type

	size  uint32
	align uint32
}

// Size returns the type's size in bytes.
func (t *Type) Size() uint32 { return t.size }

// Alignment returns the type's required alignment in bytes (always a power of two).
func (t *Type) Alignment() uint32 { return t.align }

// MemberNamed returns the member with the given name, or (Member{}, false).
func (t *Type) MemberNamed(name string) (Member, bool) {
	for _, m := range t.Members {
		if m.Name.String() == name {
			return m, true
		}
	}
	return Member{}, false
}

var (
	mu       sync.RWMutex
	registry = map[string]*Type{}
)

func internKey(key string, build func() *Type) *Type {
	mu.RLock()
	if t, ok := registry[key]; ok {
		mu.RUnlock()
		return t
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if t, ok := registry[key]; ok {
		return t
	}
	t := build()
	registry[key] = t
	return t
}

// Primitive interns a primitive type wrapping the given mode.
func Primitive(m mode.Mode) *Type {
	key := "prim:" + m.String()
	return internKey(key, func() *Type {
		sz := uint32(m.Size()) / 8
		if sz == 0 {
			sz = 1
		}
		return &Type{Kind: KindPrimitive, Name: ident.New(m.String()), Mode: m, size: sz, align: sz}
	})
}

// Pointer interns a pointer-to-elem type at the current mode.P width.
func Pointer(elem *Type) *Type {
	key := "ptr:" + elem.Name.String()
	return internKey(key, func() *Type {
		sz := uint32(mode.P.Size()) / 8
		return &Type{Kind: KindPointer, Name: ident.New("*" + elem.Name.String()), Elem: elem, size: sz, align: sz}
	})
}

// Array interns a fixed-length array of n elements of elem.
func Array(elem *Type, n uint64) *Type {
	key := "arr:" + elem.Name.String() + ":" + itoa(n)
	return internKey(key, func() *Type {
		sz := elem.size * uint32(n)
		return &Type{Kind: KindArray, Name: ident.New(elem.Name.String() + "[]"), Elem: elem, Len: n, size: sz, align: elem.align}
	})
}

// Struct builds a new (non-interned — struct identity is nominal, not
// structural) aggregate type, laying out members in the given field order
// at natural alignment. Struct does not reorder members; the frame type
// layout (§4.5 step 6) sorts its slots by ascending alignment before
// calling it.
func Struct(name string, fieldTypes []*Type, fieldNames []string) *Type {
	members := make([]Member, len(fieldTypes))
	var offset, maxAlign uint32 = 0, 1
	for i, ft := range fieldTypes {
		if ft.align > 1 {
			offset = align(offset, ft.align)
		}
		members[i] = Member{Name: ident.New(fieldNames[i]), Type: ft, Offset: offset}
		offset += ft.size
		if ft.align > maxAlign {
			maxAlign = ft.align
		}
	}
	total := align(offset, maxAlign)
	return &Type{Kind: KindStruct, Name: ident.New(name), Members: members, size: total, align: maxAlign}
}

// Class is a Struct with an implicit method table; layout identical to Struct.
func Class(name string, fieldTypes []*Type, fieldNames []string) *Type {
	s := Struct(name, fieldTypes, fieldNames)
	s.Kind = KindClass
	return s
}

// Method interns a callable signature (params -> results); used as an
// entity's type in irgraph.Graph.Entity.
func Method(params, results []*Type) *Type {
	var paramNames, resultNames []string
	for _, p := range params {
		paramNames = append(paramNames, p.Name.String())
	}
	for _, r := range results {
		resultNames = append(resultNames, r.Name.String())
	}
	key := "method:" + join(paramNames) + "->" + join(resultNames)
	return internKey(key, func() *Type {
		return &Type{Kind: KindMethod, Name: ident.New("method"), Params: params, Results: results}
	})
}

func align(offset, a uint32) uint32 {
	if a <= 1 {
		return offset
	}
	return (offset + a - 1) &^ (a - 1)
}

func itoa(n uint64) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

func join(ss []string) string {
	out := ""
	for i, s := range ss {
		if i > 0 {
			out += ","
		}
		out += s
	}
	return out
}
