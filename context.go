package aokit

import (
	"sort"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/kestrelsys/aokit/internal/bitset"
	"github.com/kestrelsys/aokit/internal/logging"
)

// Context owns every piece of global mutable state the framework needs:
// the pool table, the active-object table, the subscriber table, the
// time-event wheels, and the ready set — as one value with an explicit
// NewContext/Shutdown lifecycle, so multiple independent frameworks can coexist
// in one process (handy for tests). Never reach for package-level globals
// here; every operation is a method on *Context.
type Context struct {
	config  Config
	port    Port
	trace   TraceSink
	logger  Logger
	metrics *Metrics

	crit sync.Mutex // stands in for "mask interrupts" (§5)

	mu     sync.RWMutex
	active []*ActiveObject // indexed by priority, active[0] unused

	pubsubMu    sync.RWMutex
	subscribers map[Signal]*bitset.PrioritySet

	pools []*EventPool

	wheels     []*timeWheel
	tickStop   []func()
	sched      *scheduler
}

// NewContext validates cfg and builds a Context ready for InitPools,
// NewActiveObject, and StartTicking calls. A nil port/trace/logger default
// to DefaultPort{}, NoopTraceSink{}, and logging.Default() respectively.
func NewContext(cfg Config, port Port, trace TraceSink, logger Logger) (*Context, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Default()
	}
	if port == nil {
		port = DefaultPort{Logger: logger}
	}
	if trace == nil {
		trace = NoopTraceSink{}
	}

	c := &Context{
		config:      cfg,
		port:        port,
		trace:       trace,
		logger:      logger,
		metrics:     NewMetrics(),
		active:      make([]*ActiveObject, cfg.MaxPriority+1),
		subscribers: make(map[Signal]*bitset.PrioritySet),
		wheels:      make([]*timeWheel, cfg.MaxTickRates),
	}
	for i := range c.wheels {
		c.wheels[i] = &timeWheel{}
	}
	c.sched = newScheduler(cfg.MaxPriority)

	c.port.OnStartup()
	return c, nil
}

// Metrics returns the context's counters.
func (c *Context) Metrics() *Metrics {
	return c.metrics
}

// InitPools registers one event pool per blockSize, sorted ascending, each
// holding capacityEach blocks (§4.A). Call once, before starting any active
// object that will call NewEvent.
func (c *Context) InitPools(capacityEach int, blockSizes ...uint32) error {
	if len(blockSizes) > c.config.MaxPools {
		return NewError("InitPools", ErrCodeInvalidConfig)
	}
	sorted := append([]uint32(nil), blockSizes...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	c.pools = make([]*EventPool, 0, len(sorted))
	for _, bs := range sorted {
		c.pools = append(c.pools, newEventPool(capacityEach, bs))
	}
	return nil
}

// NewEvent allocates an event of at least size bytes of payload weight from
// the first pool whose BlockSize accommodates it. margin == 0 is the
// "guaranteed" flavor: allocation failure is a fatal assertion through
// Port.OnAssert. margin > 0 is best-effort: ok is false on exhaustion and
// the caller decides what to do.
func (c *Context) NewEvent(size uint32, margin uint32, sig Signal) (e *Event, ok bool) {
	for i, p := range c.pools {
		if p.BlockSize() < size {
			continue
		}
		c.crit.Lock()
		e, ok = p.get(margin, i, sig)
		c.crit.Unlock()
		if !ok {
			c.metrics.notePoolGet(false, 0)
			if margin == 0 {
				c.Assert("NewEvent")
			}
			return nil, false
		}
		c.metrics.notePoolGet(true, p.MinFree())
		c.trace.Trace(TraceRecord{Kind: TracePoolGet, PoolID: e.PoolID, Signal: sig})
		return e, true
	}
	c.metrics.notePoolGet(false, 0)
	if margin == 0 {
		c.Assert("NewEvent")
	}
	return nil, false
}

// retain increments e's reference count under the critical section lock,
// the mirror operation to recycle (§5's critical-section policy names
// "reference-count updates" explicitly). A no-op for static events. Every
// caller handing an event to more than one holder — PostFIFO, PostLIFO,
// Publish's protective increment — goes through this instead of touching
// e.RefCtr directly, since two active objects can be racing a recycle of
// the same event pointer from their own dispatch loops at the same time.
func (c *Context) retain(e *Event) {
	if e == nil || e.PoolID == 0 {
		return
	}
	c.crit.Lock()
	e.RefCtr++
	c.crit.Unlock()
}

// recycle is the garbage-collector step of §4.A: a no-op for static events,
// otherwise decrement the reference count and return the block to its pool
// once the last reference is gone. A pool refusing the return (out-of-range
// slot, or a block already free — a double-recycle) is a fatal programming
// error, asserted through Port.OnAssert like every other §7 invariant
// violation.
func (c *Context) recycle(e *Event) {
	if e == nil || e.PoolID == 0 {
		return
	}
	c.crit.Lock()
	e.RefCtr--
	wasLastRef := e.RefCtr <= 0
	var returned bool
	if wasLastRef {
		p := c.pools[e.PoolID-1]
		returned = p.put(e.slot)
	}
	c.crit.Unlock()

	if wasLastRef {
		if !returned {
			c.Assert("recycle")
			return
		}
		c.trace.Trace(TraceRecord{Kind: TracePoolPut, PoolID: e.PoolID, Signal: e.Sig})
	}
}

func (c *Context) activeObject(prio uint32) *ActiveObject {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if prio >= uint32(len(c.active)) {
		return nil
	}
	return c.active[prio]
}

func (c *Context) register(ao *ActiveObject) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ao.priority == 0 || ao.priority >= uint32(len(c.active)) {
		return NewError("Start", ErrCodePriorityRange)
	}
	if c.active[ao.priority] != nil {
		return NewError("Start", ErrCodePriorityInUse)
	}
	c.active[ao.priority] = ao
	return nil
}

func (c *Context) unregister(ao *ActiveObject) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active[ao.priority] == ao {
		c.active[ao.priority] = nil
	}
}

// Assert reports a fatal programming-error invariant violation to the
// port, after bumping the assertion counter and logging. It never returns
// normally in the default and exit ports, but a supervisor-style Port may
// choose to return and let the caller unwind — the framework itself never
// relies on OnAssert returning.
func (c *Context) Assert(module string) {
	c.metrics.AssertionCount.Add(1)
	c.logger.Errorf("assertion fired in %s", module)
	c.trace.Trace(TraceRecord{Kind: TraceAssertion, Detail: module})
	c.port.OnAssert(module, 0)
}

// StartTicking drives tickRate's time-event wheel from a time.Ticker at the
// given interval (Config.TickInterval when interval <= 0) — the native Go
// stand-in for a bare-metal periodic interrupt (§4.E). Each tick's actual CLOCK_MONOTONIC gap from the
// previous one is fed to the metrics jitter tracker, since time.Ticker
// gives no signal of its own about how late the runtime scheduler ran it.
// Call Context.Shutdown to stop every configured tick source.
func (c *Context) StartTicking(tickRate int, interval time.Duration) error {
	if tickRate < 0 || tickRate >= len(c.wheels) {
		return NewError("StartTicking", ErrCodeInvalidConfig)
	}
	if interval <= 0 {
		interval = c.config.TickInterval
	}
	ticker := time.NewTicker(interval)
	stop := make(chan struct{})
	go func() {
		defer ticker.Stop()
		intervalNanos := interval.Nanoseconds()
		var lastNanos int64
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				var ts unix.Timespec
				if unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts) == nil {
					now := ts.Nano()
					if lastNanos != 0 {
						c.metrics.noteTickJitter(now-lastNanos, intervalNanos)
					}
					lastNanos = now
				}
				c.Tick(tickRate)
			}
		}
	}()
	c.tickStop = append(c.tickStop, func() { close(stop) })
	return nil
}

// Shutdown stops every tick source, then every registered active object
// (draining and recycling their queued events), then calls Port.OnCleanup.
func (c *Context) Shutdown() {
	for _, stop := range c.tickStop {
		stop()
	}
	c.tickStop = nil

	c.mu.RLock()
	aos := append([]*ActiveObject(nil), c.active...)
	c.mu.RUnlock()

	for _, ao := range aos {
		if ao != nil {
			ao.Stop()
		}
	}
	c.port.OnCleanup()
}
