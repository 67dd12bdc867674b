package aokit

import (
	"fmt"
	"os"

	"github.com/kestrelsys/aokit/internal/logging"
)

// Port is the small set of primitives a host environment must supply. It is
// deliberately narrow: critical-section and context-switch primitives live
// on Context itself (§4.J), implemented with sync.Mutex/sync/atomic, since
// Go has no user-visible interrupt-mask instruction for a Port to wrap.
type Port interface {
	// OnStartup runs once, synchronously, from NewContext.
	OnStartup()
	// OnCleanup runs once, synchronously, from Context.Shutdown.
	OnCleanup()
	// OnIdle is not called by the framework: the scheduler parks idle
	// active-object goroutines on its own condition variable, and the
	// default Port's OnIdle is a no-op.
	OnIdle()
	// OnAssert reports a fatal programming-error invariant violation.
	// Called with the detecting critical section's lock already released
	// (Go has no analogue of "interrupts still disabled", so unlike the
	// original the assert handler never runs with a framework lock held).
	OnAssert(module string, line int)
}

// DefaultPort is the Port used when NewContext is given a nil one: OnIdle
// is a no-op (the scheduler's own condition variable already parks the
// caller), and OnAssert logs then panics, matching §7's "default Port
// implementation calls panic after logging" contract.
type DefaultPort struct {
	Logger Logger
}

func (p DefaultPort) OnStartup() {}
func (p DefaultPort) OnCleanup() {}
func (p DefaultPort) OnIdle()    {}

func (p DefaultPort) OnAssert(module string, line int) {
	msg := fmt.Sprintf("assertion fired: %s:%d", module, line)
	if p.Logger != nil {
		p.Logger.Errorf("%s", msg)
	}
	panic(msg)
}

// ExitPort is a Port whose OnAssert calls os.Exit instead of panicking,
// for a production deployment that prefers a clean process exit (and a
// supervisor restart) over an unwound goroutine stack.
type ExitPort struct {
	Logger Logger
	Code   int
}

func (p ExitPort) OnStartup() {}
func (p ExitPort) OnCleanup() {}
func (p ExitPort) OnIdle()    {}

func (p ExitPort) OnAssert(module string, line int) {
	if p.Logger != nil {
		p.Logger.Errorf("assertion fired: %s:%d", module, line)
	}
	code := p.Code
	if code == 0 {
		code = 1
	}
	os.Exit(code)
}

// TraceRecordKind tags the kind of event a TraceRecord describes.
type TraceRecordKind int

const (
	TraceStateEntry TraceRecordKind = iota
	TraceStateExit
	TraceTransition
	TracePublish
	TracePost
	TracePoolGet
	TracePoolPut
	TraceTimerArm
	TraceTimerFire
	TraceAssertion
)

func (k TraceRecordKind) String() string {
	switch k {
	case TraceStateEntry:
		return "state-entry"
	case TraceStateExit:
		return "state-exit"
	case TraceTransition:
		return "transition"
	case TracePublish:
		return "publish"
	case TracePost:
		return "post"
	case TracePoolGet:
		return "pool-get"
	case TracePoolPut:
		return "pool-put"
	case TraceTimerArm:
		return "timer-arm"
	case TraceTimerFire:
		return "timer-fire"
	case TraceAssertion:
		return "assertion"
	default:
		return "unknown"
	}
}

// TraceRecord is one typed point on the trace sink's side channel. The
// fields populated depend on Kind; zero values mean "not applicable".
type TraceRecord struct {
	Kind     TraceRecordKind
	AO       string
	State    string
	Signal   Signal
	PoolID   int32
	TickRate int
	Detail   string
}

// TraceSink accepts trace records emitted by the core. A nil sink is
// replaced by NoopTraceSink at Context construction, so hot-path code never
// needs a nil check of its own.
type TraceSink interface {
	Trace(rec TraceRecord)
}

// NoopTraceSink discards every record.
type NoopTraceSink struct{}

func (NoopTraceSink) Trace(TraceRecord) {}

// LoggingTraceSink routes every trace record through a *logging.Logger's
// TraceEvent at debug level, for an embedder who wants trace output
// interleaved with the rest of the application's log stream instead of a
// dedicated side channel (a tracing UI, a ring buffer, ...).
type LoggingTraceSink struct {
	Logger *logging.Logger
}

func (s LoggingTraceSink) Trace(rec TraceRecord) {
	s.Logger.TraceEvent(rec.Kind.String(), rec.AO, uint32(rec.Signal), rec.Detail)
}

// Logger is the structured, operator-facing logging interface the
// framework context carries independently of the trace sink. It is
// satisfied directly by *logging.Logger.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Errorf(format string, args ...any)
}
