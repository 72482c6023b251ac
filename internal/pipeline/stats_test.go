package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunStatsSnapshotPercentiles(t *testing.T) {
	stats := NewRunStats(time.Hour)
	stats.Record(100, false)
	stats.Record(200, false)
	stats.Record(300, true)
	stats.Record(400, false)
	stats.Record(500, false)

	snap := stats.Snapshot()
	require.Equal(t, 5, snap.Count)
	assert.Equal(t, 1, snap.Failed)
	assert.Equal(t, int64(100), snap.MinMs)
	assert.Equal(t, int64(500), snap.MaxMs)
	assert.InDelta(t, 300, snap.AvgMs, 1e-9)
	assert.InDelta(t, 300, snap.P50Ms, 1e-9)
	assert.InDelta(t, 480, snap.P95Ms, 1e-6)
	assert.InDelta(t, 496, snap.P99Ms, 1e-6)
}

func TestRunStatsPrunesExpiredSamples(t *testing.T) {
	stats := NewRunStats(10 * time.Millisecond)
	stats.Record(100, true)
	time.Sleep(25 * time.Millisecond)

	snap := stats.Snapshot()
	assert.Zero(t, snap.Count)
	assert.Zero(t, snap.Failed)

	stats.Record(200, false)
	snap = stats.Snapshot()
	require.Equal(t, 1, snap.Count)
	assert.Equal(t, int64(200), snap.MinMs)
	assert.Equal(t, int64(200), snap.MaxMs)
}

func TestRunStatsRecordClampsNegativeDuration(t *testing.T) {
	stats := NewRunStats(time.Hour)
	stats.Record(-10, false)
	snap := stats.Snapshot()
	require.Equal(t, 1, snap.Count)
	assert.Zero(t, snap.MinMs)
	assert.Zero(t, snap.MaxMs)
}

func TestPercentileSingleValue(t *testing.T) {
	assert.Equal(t, 7.0, percentile([]int64{7}, 50))
	assert.Zero(t, percentile(nil, 50))
}
