// Package firm is the kernel's external facade: global configuration
// (Init/Params), the pluggable target registry (RegisterTarget/ISA), the
// dotted-path option tree (Options), and the replaceable panic hook
// (PanicHandler/Guard). It owns no IR construction or optimization logic of
// its own — those live in irgraph, construct, localopt, analysis, transform,
// backend, and verify.
package firm
