package aokit

import "sync/atomic"

// Metrics is a set of lock-free counters tracking framework health,
// directly modeled on the teacher's Metrics: atomic.Uint64/atomic.Uint32
// fields, a NewMetrics constructor, and a Snapshot method returning a
// point-in-time value safe to log or export without holding any lock the
// hot path also needs.
type Metrics struct {
	// DispatchCount is the number of HSM Dispatch calls completed across
	// every active object.
	DispatchCount atomic.Uint64

	// AssertionCount is the number of times Port.OnAssert fired.
	AssertionCount atomic.Uint64

	// PoolGetCount / PoolGetFailures track event-pool allocation traffic.
	PoolGetCount    atomic.Uint64
	PoolGetFailures atomic.Uint64

	// PoolMinFree is the lowest free-block count ever observed across all
	// pools (the worst low-water mark), updated opportunistically.
	PoolMinFree atomic.Uint32

	// QueueHighWater is the highest event-queue occupancy ever observed
	// across all active objects.
	QueueHighWater atomic.Uint32

	// QueueDropCount counts PostFIFO/PostLIFO calls that failed (queue
	// full under a best-effort margin, or a post to a stopped AO).
	QueueDropCount atomic.Uint64

	// MutexContentionCount counts Mutex.Lock calls that had to wait because
	// another active object already held the mutex.
	MutexContentionCount atomic.Uint64

	// PublishCount / PublishNoSubscriberCount track pub/sub traffic.
	PublishCount             atomic.Uint64
	PublishNoSubscriberCount atomic.Uint64

	// TimerFireCount counts time events that posted their target event.
	TimerFireCount atomic.Uint64

	// TickJitterNanos is the largest deviation ever observed between a tick
	// source's configured interval and the actual monotonic-clock gap
	// between two consecutive Tick calls, in nanoseconds. Populated from
	// CLOCK_MONOTONIC reads (see StartTicking), since time.Ticker itself
	// gives no feedback about how late the runtime delivered a given tick.
	TickJitterNanos atomic.Int64
}

// NewMetrics returns a zeroed Metrics ready for use.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// notePoolGet records a successful or failed allocation attempt and updates
// the pool low-water mark.
func (m *Metrics) notePoolGet(ok bool, free uint32) {
	m.PoolGetCount.Add(1)
	if !ok {
		m.PoolGetFailures.Add(1)
		return
	}
	for {
		cur := m.PoolMinFree.Load()
		if free >= cur && cur != 0 {
			return
		}
		if m.PoolMinFree.CompareAndSwap(cur, free) {
			return
		}
	}
}

// noteTickJitter records how far off intervalNanos the actual gap between
// two consecutive ticks landed, keeping the worst (largest) deviation seen.
func (m *Metrics) noteTickJitter(actualNanos, intervalNanos int64) {
	jitter := actualNanos - intervalNanos
	if jitter < 0 {
		jitter = -jitter
	}
	for {
		cur := m.TickJitterNanos.Load()
		if jitter <= cur {
			return
		}
		if m.TickJitterNanos.CompareAndSwap(cur, jitter) {
			return
		}
	}
}

func (m *Metrics) noteQueueDepth(depth uint32) {
	for {
		cur := m.QueueHighWater.Load()
		if depth <= cur {
			return
		}
		if m.QueueHighWater.CompareAndSwap(cur, depth) {
			return
		}
	}
}

// MetricsSnapshot is a point-in-time copy of Metrics safe to hand to a
// logger or an HTTP handler without further synchronization.
type MetricsSnapshot struct {
	DispatchCount            uint64
	AssertionCount           uint64
	PoolGetCount             uint64
	PoolGetFailures          uint64
	PoolMinFree              uint32
	QueueHighWater           uint32
	QueueDropCount           uint64
	MutexContentionCount     uint64
	PublishCount             uint64
	PublishNoSubscriberCount uint64
	TimerFireCount           uint64
	TickJitterNanos          int64
}

// Snapshot copies every counter's current value.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		DispatchCount:            m.DispatchCount.Load(),
		AssertionCount:           m.AssertionCount.Load(),
		PoolGetCount:             m.PoolGetCount.Load(),
		PoolGetFailures:          m.PoolGetFailures.Load(),
		PoolMinFree:              m.PoolMinFree.Load(),
		QueueHighWater:           m.QueueHighWater.Load(),
		QueueDropCount:           m.QueueDropCount.Load(),
		MutexContentionCount:     m.MutexContentionCount.Load(),
		PublishCount:             m.PublishCount.Load(),
		PublishNoSubscriberCount: m.PublishNoSubscriberCount.Load(),
		TimerFireCount:           m.TimerFireCount.Load(),
		TickJitterNanos:          m.TickJitterNanos.Load(),
	}
}
