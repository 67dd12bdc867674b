package aokit

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/kestrelsys/aokit/internal/hsm"
	"github.com/stretchr/testify/require"
)

const sigPing Signal = UserSigBase

// pingFixture builds a trivial two-level statechart (a formal top-most
// "root" composite state whose SigInit drills into "idle") whose only
// behavior is counting sigPing deliveries, for exercising the active
// object's dispatch loop without a real application's complexity.
func pingFixture(counter *int64) *hsm.State {
	var root, idle *hsm.State
	root = hsm.New("root", func(m *hsm.Machine, e hsm.Event) hsm.Result {
		switch e.Signal() {
		case hsm.SigInit:
			return m.Tran(idle)
		case hsm.SigEntry, hsm.SigExit:
			return hsm.ResultHandled
		}
		return m.Super(hsm.Top)
	})
	idle = hsm.New("idle", func(m *hsm.Machine, e hsm.Event) hsm.Result {
		switch e.Signal() {
		case hsm.SigEntry, hsm.SigExit:
			return hsm.ResultHandled
		case sigPing:
			atomic.AddInt64(counter, 1)
			return hsm.ResultHandled
		}
		return m.Super(root)
	})
	return root
}

func TestActiveObjectDispatchesPostedEvents(t *testing.T) {
	c := newTestContext(t)
	var counter int64
	ao := c.NewActiveObject("pinger", pingFixture(&counter), false)
	require.NoError(t, ao.Start(1, 4))

	require.True(t, ao.PostFIFO(NewStaticEvent(sigPing), 0))
	require.True(t, ao.PostFIFO(NewStaticEvent(sigPing), 0))

	require.Eventually(t, func() bool { return atomic.LoadInt64(&counter) == 2 }, time.Second, time.Millisecond)
	require.EqualValues(t, 2, c.Metrics().Snapshot().DispatchCount)

	ao.Stop()
}

func TestActiveObjectStopDropsFurtherPosts(t *testing.T) {
	c := newTestContext(t)
	var counter int64
	ao := c.NewActiveObject("pinger", pingFixture(&counter), false)
	require.NoError(t, ao.Start(1, 4))
	ao.Stop()
	require.False(t, ao.PostFIFO(NewStaticEvent(sigPing), 0))
	require.False(t, ao.PostLIFO(NewStaticEvent(sigPing)))
}

func TestActiveObjectStartRejectsDuplicatePriority(t *testing.T) {
	c := newTestContext(t)
	var counter int64
	a := c.NewActiveObject("a", pingFixture(&counter), false)
	b := c.NewActiveObject("b", pingFixture(&counter), false)
	require.NoError(t, a.Start(2, 4))

	err := b.Start(2, 4)
	require.Error(t, err)
	require.True(t, IsCode(err, ErrCodePriorityInUse))

	a.Stop()
}

func TestActiveObjectStartRejectsOutOfRangePriority(t *testing.T) {
	c := newTestContext(t)
	var counter int64
	a := c.NewActiveObject("a", pingFixture(&counter), false)
	err := a.Start(0, 4)
	require.Error(t, err)
	require.True(t, IsCode(err, ErrCodePriorityRange))
}

func TestActiveObjectPostLIFODispatchesEvent(t *testing.T) {
	c := newTestContext(t)
	var counter int64
	ao := c.NewActiveObject("pinger", pingFixture(&counter), true)
	require.NoError(t, ao.Start(1, 4))

	require.True(t, ao.PostLIFO(NewStaticEvent(sigPing)))
	require.Eventually(t, func() bool { return atomic.LoadInt64(&counter) == 1 }, time.Second, time.Millisecond)

	ao.Stop()
}
