package aokit

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Arming a timer only links it onto the wheel's "fresh" side list; that list
// is spliced onto the main list at the end of whichever Tick happens to run
// next. So a timer armed for N ticks needs N+1 Tick calls to fire: the first
// Tick only performs the splice, the remaining N decrement it to zero. This
// is what makes "armed during this tick's own processing" consistently fire
// no earlier than the following tick.
func TestTimeEventOneShotFiresAfterArmedTicksPlusOne(t *testing.T) {
	c := newTestContext(t)
	var counter int64
	ao := c.NewActiveObject("timed", pingFixture(&counter), false)
	require.NoError(t, ao.Start(1, 4))

	te := c.NewTimeEvent(sigPing, 0, ao)
	te.ArmIn(2, 0)

	c.Tick(0) // splice only
	require.EqualValues(t, 0, atomic.LoadInt64(&counter))
	c.Tick(0) // ctr 2 -> 1
	require.EqualValues(t, 0, atomic.LoadInt64(&counter))
	c.Tick(0) // ctr 1 -> 0, fires
	require.Eventually(t, func() bool { return atomic.LoadInt64(&counter) == 1 }, time.Second, time.Millisecond)

	for i := 0; i < 3; i++ {
		c.Tick(0)
	}
	time.Sleep(20 * time.Millisecond)
	require.EqualValues(t, 1, atomic.LoadInt64(&counter), "a one-shot must not refire")

	ao.Stop()
}

func TestTimeEventPeriodicReloadsAndRefires(t *testing.T) {
	c := newTestContext(t)
	var counter int64
	ao := c.NewActiveObject("timed", pingFixture(&counter), false)
	require.NoError(t, ao.Start(1, 4))

	te := c.NewTimeEvent(sigPing, 0, ao)
	te.ArmIn(1, 1)

	c.Tick(0) // splice only
	require.EqualValues(t, 0, atomic.LoadInt64(&counter))

	c.Tick(0) // fires, reloads
	require.Eventually(t, func() bool { return atomic.LoadInt64(&counter) == 1 }, time.Second, time.Millisecond)

	c.Tick(0) // fires again
	require.Eventually(t, func() bool { return atomic.LoadInt64(&counter) == 2 }, time.Second, time.Millisecond)

	te.Disarm()
	c.Tick(0)
	time.Sleep(20 * time.Millisecond)
	require.EqualValues(t, 2, atomic.LoadInt64(&counter), "a disarmed timer must not fire again")

	ao.Stop()
}

func TestTimeEventMetricsCountFires(t *testing.T) {
	c := newTestContext(t)
	var counter int64
	ao := c.NewActiveObject("timed", pingFixture(&counter), false)
	require.NoError(t, ao.Start(1, 4))

	te := c.NewTimeEvent(sigPing, 0, ao)
	te.ArmIn(1, 0)

	c.Tick(0) // splice only
	c.Tick(0) // ctr 1 -> 0, fires

	require.Eventually(t, func() bool {
		return c.Metrics().Snapshot().TimerFireCount == 1
	}, time.Second, time.Millisecond)

	ao.Stop()
}
