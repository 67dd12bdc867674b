package aokit

import (
	"time"

	"github.com/kestrelsys/aokit/internal/constants"
)

// Config bounds the resources a Context will allocate. Every field
// has a min/max enforced by Validate, mirroring the compile-time-bounded
// configuration ranges of the original framework — in Go these are runtime
// checks rather than preprocessor-bounded integer widths, since there is no
// ABI to pack against.
type Config struct {
	// MaxPriority is the highest active-object priority the context will
	// accept at Start. Priorities are 1..MaxPriority, unique per AO.
	MaxPriority uint32

	// MaxTickRates bounds how many independent timer wheels StartTicking
	// may create.
	MaxTickRates int

	// MaxPools bounds how many event pools InitPools may register.
	MaxPools int

	// DefaultQueueDepth is the queue length ActiveObject.Start uses when it
	// is called with qlen <= 0.
	DefaultQueueDepth int

	// TickInterval is the wall-clock period of one tick for tick rate 0
	// when StartTicking is called without an explicit interval.
	TickInterval time.Duration
}

// DefaultConfig returns the framework's default resource bounds.
func DefaultConfig() Config {
	return Config{
		MaxPriority:       constants.DefaultMaxPrio,
		MaxTickRates:      constants.DefaultTickRates,
		MaxPools:          constants.DefaultPools,
		DefaultQueueDepth: constants.DefaultQueueDepth,
		TickInterval:      constants.DefaultTickInterval,
	}
}

// Validate checks every field against its documented range, returning a
// structured *Error on the first violation found.
func (c Config) Validate() error {
	if c.MaxPriority < constants.MinPriority || c.MaxPriority > constants.MaxPriorityCap {
		return NewError("Config.Validate", ErrCodeInvalidConfig)
	}
	if c.MaxTickRates < constants.MinTickRates || c.MaxTickRates > constants.MaxTickRatesCap {
		return NewError("Config.Validate", ErrCodeInvalidConfig)
	}
	if c.MaxPools < constants.MinPools || c.MaxPools > constants.MaxPoolsCap {
		return NewError("Config.Validate", ErrCodeInvalidConfig)
	}
	if c.DefaultQueueDepth <= 0 {
		return NewError("Config.Validate", ErrCodeInvalidConfig)
	}
	if c.TickInterval <= 0 {
		return NewError("Config.Validate", ErrCodeInvalidConfig)
	}
	return nil
}
