package firm

import (
	"fmt"

	"github.com/katalvlaran/firmkit/mode"
	"github.com/katalvlaran/firmkit/tarval"
)

// ByteOrder selects the target's multi-byte layout.
type ByteOrder uint8

const (
	LittleEndian ByteOrder = iota
	BigEndian
)

func (o ByteOrder) String() string {
	if o == BigEndian {
		return "big-endian"
	}
	return "little-endian"
}

// Default params — single source of truth, mirrored by defaultParams below
// (grounded on matrix.Options's DefaultXxx constant block).
const (
	DefaultPointerSize         = 64
	DefaultMachineSize         = 64
	DefaultStackParamAlignment = 8
)

// Params collects the global tuning knobs firm.Init applies once, before any
// graph is built: byte order, pointer size, position-independent code,
// unaligned-access legality, modulo-shift width normalization, whether
// division/shift lowering may assume hardware support, float-to-int
// overflow semantics, the target machine's word size, stack-parameter
// alignment, and a handful of optional knobs (extended/long-double
// arithmetic mode, an if-conversion profitability predicate).
//
// Grounded on matrix.Options: a functional-options struct gathered by
// private WithX closures, validated eagerly (panic on a nonsensical value)
// rather than deferred to first use.
type Params struct {
	byteOrder           ByteOrder
	pointerSize         uint8
	pic                 bool
	unalignedAccess     bool
	moduloShift         bool
	archDivShift        bool
	overflow            tarval.ConvOverflow
	machineSize         uint8
	stackParamAlignment uint32
	longDouble          bool
	floatArithMode      string
	ifConvPredicate     func(bodySize int) bool
}

func defaultParams() Params {
	return Params{
		byteOrder:           LittleEndian,
		pointerSize:         DefaultPointerSize,
		machineSize:         DefaultMachineSize,
		stackParamAlignment: DefaultStackParamAlignment,
		overflow:            tarval.ConvSaturate,
		archDivShift:        true,
	}
}

// ByteOrder reports the configured byte order.
func (p Params) ByteOrder() ByteOrder { return p.byteOrder }

// PointerSize reports the configured pointer width, in bits.
func (p Params) PointerSize() uint8 { return p.pointerSize }

// PIC reports whether code must be position-independent.
func (p Params) PIC() bool { return p.pic }

// UnalignedAccess reports whether the target tolerates unaligned loads/stores.
func (p Params) UnalignedAccess() bool { return p.unalignedAccess }

// ModuloShift reports whether shift amounts wrap modulo the operand width.
func (p Params) ModuloShift() bool { return p.moduloShift }

// ArchDivShift reports whether division/modulo lowering may assume native
// hardware support rather than emitting a software sequence.
func (p Params) ArchDivShift() bool { return p.archDivShift }

// Overflow reports the float-to-int conversion overflow policy.
func (p Params) Overflow() tarval.ConvOverflow { return p.overflow }

// MachineSize reports the target machine's native word size, in bits.
func (p Params) MachineSize() uint8 { return p.machineSize }

// StackParamAlignment reports the byte alignment stack-passed parameters
// must respect.
func (p Params) StackParamAlignment() uint32 { return p.stackParamAlignment }

// LongDouble reports whether extended-precision floating point arithmetic
// is enabled.
func (p Params) LongDouble() bool { return p.longDouble }

// FloatArithMode reports the configured software/hardware float-arithmetic
// mode name, or "" if unset.
func (p Params) FloatArithMode() string { return p.floatArithMode }

// IfConversionPredicate reports the configured if-conversion profitability
// predicate, or nil if none was set (if-conversion then never fires).
func (p Params) IfConversionPredicate() func(bodySize int) bool { return p.ifConvPredicate }

// Option mutates a Params under construction; WithX constructors below are
// the only supported way to build one.
type Option func(*Params)

func WithByteOrder(o ByteOrder) Option {
	if o != LittleEndian && o != BigEndian {
		panic(fmt.Sprintf("firm: WithByteOrder: invalid byte order %d", o))
	}
	return func(p *Params) { p.byteOrder = o }
}

func WithPointerSize(bits uint8) Option {
	if bits != 32 && bits != 64 {
		panic(fmt.Sprintf("firm: WithPointerSize: unsupported width %d", bits))
	}
	return func(p *Params) { p.pointerSize = bits }
}

func WithPIC(enabled bool) Option {
	return func(p *Params) { p.pic = enabled }
}

func WithUnalignedAccess(enabled bool) Option {
	return func(p *Params) { p.unalignedAccess = enabled }
}

func WithModuloShift(enabled bool) Option {
	return func(p *Params) { p.moduloShift = enabled }
}

func WithArchDivShift(enabled bool) Option {
	return func(p *Params) { p.archDivShift = enabled }
}

func WithFloatToIntOverflow(c tarval.ConvOverflow) Option {
	return func(p *Params) { p.overflow = c }
}

func WithMachineSize(bits uint8) Option {
	if bits != 16 && bits != 32 && bits != 64 {
		panic(fmt.Sprintf("firm: WithMachineSize: unsupported width %d", bits))
	}
	return func(p *Params) { p.machineSize = bits }
}

func WithStackParamAlignment(bytes uint32) Option {
	if bytes == 0 || bytes&(bytes-1) != 0 {
		panic(fmt.Sprintf("firm: WithStackParamAlignment: %d is not a power of two", bytes))
	}
	return func(p *Params) { p.stackParamAlignment = bytes }
}

func WithLongDouble(enabled bool) Option {
	return func(p *Params) { p.longDouble = enabled }
}

func WithFloatArithMode(name string) Option {
	if name == "" {
		panic("firm: WithFloatArithMode: empty mode name")
	}
	return func(p *Params) { p.floatArithMode = name }
}

func WithIfConversionPredicate(pred func(bodySize int) bool) Option {
	return func(p *Params) { p.ifConvPredicate = pred }
}

var (
	initialized bool
	params      Params
)

// Init applies opts over defaultParams and installs the result as the
// package-wide configuration, propagating the pointer-size and
// float-to-int overflow knobs into mode and tarval (§6: both packages hold
// process-wide state exactly for this reason). Init may be called again to
// reconfigure; it is not safe for concurrent use with graph construction.
func Init(opts ...Option) error {
	p := defaultParams()
	for _, opt := range opts {
		opt(&p)
	}
	if err := mode.SetPointerSize(p.pointerSize); err != nil {
		return fmt.Errorf("firm: Init: %w", err)
	}
	tarval.SetConvOverflow(p.overflow)

	params = p
	initialized = true
	logger.Info("initialized: pointer=%d machine=%d byteorder=%s pic=%v",
		p.pointerSize, p.machineSize, p.byteOrder, p.pic)
	return nil
}

// GetParams returns the params installed by the most recent Init call.
func GetParams() (Params, error) {
	if !initialized {
		return Params{}, ErrNotInitialized
	}
	return params, nil
}
