package aokit

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMetricsNotePoolGet(t *testing.T) {
	m := NewMetrics()
	m.notePoolGet(true, 10)
	m.notePoolGet(true, 3)
	m.notePoolGet(false, 0)

	snap := m.Snapshot()
	require.EqualValues(t, 3, snap.PoolGetCount)
	require.EqualValues(t, 1, snap.PoolGetFailures)
	require.EqualValues(t, 3, snap.PoolMinFree)
}

func TestMetricsNoteQueueDepthTracksHighWater(t *testing.T) {
	m := NewMetrics()
	m.noteQueueDepth(2)
	m.noteQueueDepth(7)
	m.noteQueueDepth(4)

	require.EqualValues(t, 7, m.Snapshot().QueueHighWater)
}

func TestMetricsNoteTickJitterTracksWorstDeviation(t *testing.T) {
	m := NewMetrics()
	m.noteTickJitter(10_100_000, 10_000_000) // 100us late
	m.noteTickJitter(9_950_000, 10_000_000)  // 50us early, smaller deviation
	m.noteTickJitter(10_500_000, 10_000_000) // 500us late, new worst

	require.EqualValues(t, 500_000, m.Snapshot().TickJitterNanos)
}

func TestMetricsSnapshotIsIndependentCopy(t *testing.T) {
	m := NewMetrics()
	snap := m.Snapshot()
	m.DispatchCount.Add(1)
	require.EqualValues(t, 0, snap.DispatchCount)
	require.EqualValues(t, 1, m.Snapshot().DispatchCount)
}
