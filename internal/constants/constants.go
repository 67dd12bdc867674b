// Package constants holds the compile-time-bounded defaults for the active
// object framework. Every value here is a default, not a hard limit — callers
// override them through Config; the paired Min/Max constants are the actual
// bounds Config.Validate enforces.
package constants

import "time"

// Priority range. Priority 0 is reserved for the idle thread; real active
// objects register at 1..MaxPriority.
const (
	MinPriority     = 1
	MaxPriorityCap  = 64
	DefaultMaxPrio  = 32
)

// Tick rates. Most applications need exactly one time base; the framework
// supports up to 15 independent ones (e.g. a fast UI tick and a slow
// watchdog tick) so timers never have to share a list.
const (
	MinTickRates     = 1
	MaxTickRatesCap  = 15
	DefaultTickRates = 1
)

// Event pools. A size-indexed allocator of up to 255 pools, ordered by
// ascending block size.
const (
	MinPools     = 1
	MaxPoolsCap  = 255
	DefaultPools = 3
)

// DefaultQueueDepth is the default capacity of an active object's event
// queue (in events, not counting the front slot).
const DefaultQueueDepth = 32

// DefaultNestDepth is a nominal statechart nesting depth. internal/hsm does
// not reference it: Init and Dispatch bound their entry/exit path slices
// with hsm's own maxNestDepth (32 levels) and panic when a path would
// exceed that.
const DefaultNestDepth = 8

// Reserved signals. Signals below UserSigBase are synthesized by the HSM
// processor itself and must never be posted from outside it.
const (
	SigEmpty uint32 = 0
	SigEntry uint32 = 1
	SigExit  uint32 = 2
	SigInit  uint32 = 3

	UserSigBase uint32 = 4
)

// Timing constants for the demo tick source and CLI harness.
//
// A real deployment drives Tick() from its own periodic interrupt or
// time.Ticker; these are only the defaults the CLI harness and the native
// Port implementation fall back to when nothing more specific is configured.
const (
	// DefaultTickInterval is the default Config.TickInterval, the period
	// Context.StartTicking uses when it is given no interval.
	DefaultTickInterval = 10 * time.Millisecond

	// ShutdownDrainTimeout is not referenced by Context.Shutdown, which
	// waits for each active object's goroutine to exit with no time limit.
	ShutdownDrainTimeout = 1 * time.Second
)
