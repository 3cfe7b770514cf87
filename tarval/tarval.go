// Package tarval provides target-exact constant values ("target values") and
// the arithmetic, comparison, and conversion operations the local optimizer
// folds constant expressions through.
//
// The pool of interned Tarvals is process-wide and immutable after a value
// is created: two Tarvals of the same mode and bit pattern are always the
// same *Tarval pointer, so identity comparison in localopt's value-numbering
// is sound (mirrors core.Graph's edge-identity canonicalization, generalized
// to constant values instead of graph nodes).
package tarval

import (
	"fmt"
	"math"
	"math/bits"
	"sync"

	"github.com/katalvlaran/firmkit/mode"
)

// Relation is a bitset of possible comparison outcomes, matching the modes
// a Cmp node's attribute payload restricts itself to (§3/§4.2 rule 4).
type Relation uint8

const (
	RelLess Relation = 1 << iota
	RelEqual
	RelGreater
	RelUnordered
)

// Tarval is a target-exact constant. Bits holds the raw two's-complement (or
// IEEE-754) bit pattern truncated to Mode.Size(); interpretation depends on
// Mode.Arith().
type Tarval struct {
	Mode mode.Mode
	Bits uint64
}

var (
	poolMu sync.RWMutex
	pool   = map[mode.Mode]map[uint64]*Tarval{}
)

func mask(m mode.Mode) uint64 {
	if m.Size() == 0 || m.Size() >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << m.Size()) - 1
}

// intern returns the canonical *Tarval for (m, bits & mask(m)), creating and
// caching it on first use. Append-only: entries are never evicted or mutated.
func intern(m mode.Mode, raw uint64) *Tarval {
	raw &= mask(m)

	poolMu.RLock()
	if byBits, ok := pool[m]; ok {
		if tv, ok := byBits[raw]; ok {
			poolMu.RUnlock()
			return tv
		}
	}
	poolMu.RUnlock()

	poolMu.Lock()
	defer poolMu.Unlock()
	byBits, ok := pool[m]
	if !ok {
		byBits = map[uint64]*Tarval{}
		pool[m] = byBits
	}
	if tv, ok := byBits[raw]; ok {
		return tv
	}
	tv := &Tarval{Mode: m, Bits: raw}
	byBits[raw] = tv
	return tv
}

// NewInt interns a signed or unsigned integer constant of the given mode,
// truncating v to the mode's width (modulo-2^size semantics, per §6's
// "modulo-shift amount" / overflow tuning knobs for wraparound arithmetic).
func NewInt(m mode.Mode, v int64) *Tarval {
	return intern(m, uint64(v))
}

// NewFloat interns a floating-point constant of the given mode (F32 or F64).
func NewFloat(m mode.Mode, v float64) *Tarval {
	switch m {
	case mode.F32:
		return intern(m, uint64(math.Float32bits(float32(v))))
	case mode.F64:
		return intern(m, math.Float64bits(v))
	default:
		panic(fmt.Sprintf("tarval: NewFloat: mode %s is not a float mode", m))
	}
}

// Int64 returns the signed interpretation of an integer Tarval, sign-extended
// from its mode's width.
func (t *Tarval) Int64() int64 {
	if !t.Mode.IsInt() {
		panic(fmt.Sprintf("tarval: Int64 on non-integer mode %s", t.Mode))
	}
	if !t.Mode.Signed() || t.Mode.Size() >= 64 {
		return int64(t.Bits)
	}
	shift := 64 - t.Mode.Size()
	return int64(t.Bits<<shift) >> shift
}

// Uint64 returns the unsigned interpretation of an integer Tarval.
func (t *Tarval) Uint64() uint64 {
	if !t.Mode.IsInt() {
		panic(fmt.Sprintf("tarval: Uint64 on non-integer mode %s", t.Mode))
	}
	return t.Bits
}

// Float64 returns the floating-point interpretation of a float Tarval.
func (t *Tarval) Float64() float64 {
	switch t.Mode {
	case mode.F32:
		return float64(math.Float32frombits(uint32(t.Bits)))
	case mode.F64:
		return math.Float64frombits(t.Bits)
	default:
		panic(fmt.Sprintf("tarval: Float64 on non-float mode %s", t.Mode))
	}
}

// IsZero reports whether t is the additive identity of its mode.
func (t *Tarval) IsZero() bool {
	if t.Mode.IsFloat() {
		return t.Float64() == 0
	}
	return t.Bits == 0
}

// IsOne reports whether t is the multiplicative identity of its mode.
func (t *Tarval) IsOne() bool {
	if t.Mode.IsFloat() {
		return t.Float64() == 1
	}
	return t.Int64() == 1
}

// intBin is the shape every integer binary arithmetic rule below shares:
// compute in a wide accumulator, then truncate back into the mode.
func intBin(m mode.Mode, a, b *Tarval, f func(x, y int64) int64) *Tarval {
	return NewInt(m, f(a.Int64(), b.Int64()))
}

// Add computes a+b, wrapping modulo 2^size (no trap on overflow; the
// overflow-semantics knob from firm.Params governs only float→int Convert).
func Add(m mode.Mode, a, b *Tarval) *Tarval {
	if m.IsFloat() {
		return NewFloat(m, a.Float64()+b.Float64())
	}
	return intBin(m, a, b, func(x, y int64) int64 { return x + y })
}

// Sub computes a-b.
func Sub(m mode.Mode, a, b *Tarval) *Tarval {
	if m.IsFloat() {
		return NewFloat(m, a.Float64()-b.Float64())
	}
	return intBin(m, a, b, func(x, y int64) int64 { return x - y })
}

// Mul computes a*b.
func Mul(m mode.Mode, a, b *Tarval) *Tarval {
	if m.IsFloat() {
		return NewFloat(m, a.Float64()*b.Float64())
	}
	return intBin(m, a, b, func(x, y int64) int64 { return x * y })
}

// Div computes truncating integer division or IEEE float division.
// Div by zero on an integer mode panics: the construction façade must never
// fold a division whose divisor Tarval IsZero (localopt checks this before
// calling Div).
func Div(m mode.Mode, a, b *Tarval) *Tarval {
	if m.IsFloat() {
		return NewFloat(m, a.Float64()/b.Float64())
	}
	if b.IsZero() {
		panic("tarval: Div by zero constant")
	}
	return intBin(m, a, b, func(x, y int64) int64 { return x / y })
}

// Mod computes the truncating remainder (sign of dividend), integer modes only.
func Mod(m mode.Mode, a, b *Tarval) *Tarval {
	if b.IsZero() {
		panic("tarval: Mod by zero constant")
	}
	return intBin(m, a, b, func(x, y int64) int64 { return x % y })
}

// And, Or, Xor compute bitwise operations, integer modes only.
func And(m mode.Mode, a, b *Tarval) *Tarval { return NewInt(m, int64(a.Uint64()&b.Uint64())) }
func Or(m mode.Mode, a, b *Tarval) *Tarval  { return NewInt(m, int64(a.Uint64()|b.Uint64())) }
func Xor(m mode.Mode, a, b *Tarval) *Tarval { return NewInt(m, int64(a.Uint64()^b.Uint64())) }

// Not computes the bitwise complement.
func Not(m mode.Mode, a *Tarval) *Tarval { return NewInt(m, int64(^a.Uint64())) }

// Neg computes the arithmetic negation.
func Neg(m mode.Mode, a *Tarval) *Tarval {
	if m.IsFloat() {
		return NewFloat(m, -a.Float64())
	}
	return NewInt(m, -a.Int64())
}

// Shl computes a logical left shift by a shift amount modulo the mode's
// width (§6 "modulo-shift amount" tuning).
func Shl(m mode.Mode, a *Tarval, shiftAmt uint64) *Tarval {
	n := shiftAmt % uint64(modShiftBase(m))
	return NewInt(m, int64(a.Uint64()<<n))
}

// Shr computes a shift right; arithmetic (sign-extending) if m is signed,
// logical otherwise.
func Shr(m mode.Mode, a *Tarval, shiftAmt uint64) *Tarval {
	n := shiftAmt % uint64(modShiftBase(m))
	if m.Signed() {
		return NewInt(m, a.Int64()>>n)
	}
	return NewInt(m, int64(a.Uint64()>>n))
}

func modShiftBase(m mode.Mode) uint8 {
	if m.Size() == 0 {
		return 64
	}
	return m.Size()
}

// RotL computes a left rotation within the mode's width. The back end's
// peephole stage does not call it.
func RotL(m mode.Mode, a *Tarval, n uint64) *Tarval {
	sz := uint(modShiftBase(m))
	n %= uint64(sz)
	v := a.Uint64() & mask(m)
	rotated := bits.RotateLeft64(v<<(64-sz), int(n)) >> (64 - sz)
	return NewInt(m, int64(rotated))
}

// Cmp computes the Relation between a and b. The local optimizer does not
// call it: Cmp nodes are not constant-folded.
func Cmp(a, b *Tarval) Relation {
	if a.Mode.IsFloat() {
		x, y := a.Float64(), b.Float64()
		switch {
		case math.IsNaN(x) || math.IsNaN(y):
			return RelUnordered
		case x < y:
			return RelLess
		case x > y:
			return RelGreater
		default:
			return RelEqual
		}
	}
	x, y := a.Int64(), b.Int64()
	switch {
	case x < y:
		return RelLess
	case x > y:
		return RelGreater
	default:
		return RelEqual
	}
}

// ConvOverflow selects float-to-int conversion behavior when the source
// value does not fit the destination mode, configured globally via
// firm.Params (§6 "overflow semantics for float-to-int conversion").
type ConvOverflow uint8

const (
	ConvSaturate ConvOverflow = iota // clamp to the destination's min/max
	ConvWrap                         // reduce modulo 2^size, matching integer-to-integer Convert
	ConvPanic                        // treat as a contract violation (§7)
)

var convOverflow = ConvSaturate

// SetConvOverflow installs the float-to-int overflow policy used by Convert.
// Called once from firm.Init; not safe to change concurrently with folding.
func SetConvOverflow(c ConvOverflow) { convOverflow = c }

// Convert reinterprets or numerically converts t into mode m, matching the
// semantics of the IR's Conv opcode: int-to-int truncates/sign-extends,
// float-to-float rounds to the narrower format, int-to-float and
// float-to-int perform numeric conversion (the latter governed by
// convOverflow).
func Convert(t *Tarval, m mode.Mode) *Tarval {
	switch {
	case t.Mode.IsInt() && m.IsInt():
		return NewInt(m, t.Int64())
	case t.Mode.IsFloat() && m.IsFloat():
		return NewFloat(m, t.Float64())
	case t.Mode.IsInt() && m.IsFloat():
		return NewFloat(m, float64(t.Int64()))
	case t.Mode.IsFloat() && m.IsInt():
		return convFloatToInt(t, m)
	default:
		panic(fmt.Sprintf("tarval: Convert: unsupported %s -> %s", t.Mode, m))
	}
}

func convFloatToInt(t *Tarval, m mode.Mode) *Tarval {
	f := t.Float64()
	if math.IsNaN(f) {
		switch convOverflow {
		case ConvPanic:
			panic("tarval: Convert: NaN to integer")
		default:
			return NewInt(m, 0)
		}
	}
	lo, hi := intRange(m)
	if f < lo || f > hi {
		switch convOverflow {
		case ConvSaturate:
			if f < lo {
				return NewInt(m, int64(lo))
			}
			return NewInt(m, int64(hi))
		case ConvPanic:
			panic("tarval: Convert: float-to-int overflow")
		case ConvWrap:
			return NewInt(m, int64(f))
		}
	}
	return NewInt(m, int64(f))
}

func intRange(m mode.Mode) (lo, hi float64) {
	sz := m.Size()
	if m.Signed() {
		hi = float64(int64(1)<<(sz-1) - 1)
		lo = -float64(int64(1) << (sz - 1))
		return
	}
	if sz >= 64 {
		return 0, math.MaxUint64
	}
	return 0, float64((uint64(1) << sz) - 1)
}

// String renders t for diagnostics, e.g. "Is32:5" or "F64:3.5".
func (t *Tarval) String() string {
	if t.Mode.IsFloat() {
		return fmt.Sprintf("%s:%g", t.Mode, t.Float64())
	}
	if t.Mode.Signed() {
		return fmt.Sprintf("%s:%d", t.Mode, t.Int64())
	}
	return fmt.Sprintf("%s:%d", t.Mode, t.Uint64())
}
