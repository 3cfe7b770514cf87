package analysis

import "errors"

// ErrUnknownDependency is returned when a Pass declares a Requires()
// property with no registered producer.
var ErrUnknownDependency = errors.New("analysis: no pass registered for required property")

// ErrUnreachableBlock is returned by dominance/loop-tree computation when a
// block is never reached from Start, which would make "immediate dominator"
// undefined for it.
var ErrUnreachableBlock = errors.New("analysis: block is unreachable from Start")
