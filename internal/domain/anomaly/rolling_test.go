package anomaly

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsBuffer_CapacityEviction(t *testing.T) {
	buf := NewStatsBuffer(3)
	for _, v := range []float64{1, 2, 3, 4, 5} {
		buf.Push(v)
	}

	require.Equal(t, 3, buf.Len())
	stats := buf.Summary()
	assert.InDelta(t, 4.0, stats.Mean, 1e-9)
}

func TestStatsBuffer_IgnoresNonFinite(t *testing.T) {
	buf := NewStatsBuffer(5)
	buf.Push(10)
	buf.Push(math.NaN())
	buf.Push(math.Inf(-1))
	buf.Push(20)

	assert.Equal(t, 2, buf.Len())
	assert.InDelta(t, 15.0, buf.Summary().Mean, 1e-9)
}

func TestStatsBuffer_Summary(t *testing.T) {
	buf := NewStatsBuffer(10)
	for _, v := range []float64{2, 4, 4, 4, 5, 5, 7, 9} {
		buf.Push(v)
	}

	stats := buf.Summary()
	assert.Equal(t, 8, stats.Count)
	assert.InDelta(t, 5.0, stats.Mean, 1e-9)
	assert.InDelta(t, 2.0, stats.StdDev, 1e-9)
	assert.InDelta(t, 4.0, stats.Q1, 1e-9)
	assert.InDelta(t, 5.5, stats.Q3, 1e-9)
}

func TestStatsBuffer_EmptySummary(t *testing.T) {
	assert.Equal(t, Stats{}, NewStatsBuffer(4).Summary())
}

func TestRollingStats_SeedReplaces(t *testing.T) {
	r := NewRollingStats(20)
	r.Observe("altitude", 99999)

	r.Seed("altitude", []float64{100, 110, 120, 130})

	stats, ok := r.Summary("altitude", 3)
	require.True(t, ok)
	assert.Equal(t, 4, stats.Count)
	assert.InDelta(t, 115.0, stats.Mean, 1e-9)
}

func TestRollingStats_MinSamplesGate(t *testing.T) {
	r := NewRollingStats(20)
	r.Observe("velocity", 400)
	r.Observe("velocity", 410)

	_, ok := r.Summary("velocity", 3)
	assert.False(t, ok)

	_, ok = r.Summary("unknown", 1)
	assert.False(t, ok)
}

func TestRollingStats_SeedHonorsCapacity(t *testing.T) {
	r := NewRollingStats(3)
	r.Seed("altitude", []float64{1, 2, 3, 4, 5, 6})

	stats, ok := r.Summary("altitude", 1)
	require.True(t, ok)
	assert.Equal(t, 3, stats.Count)
	assert.InDelta(t, 5.0, stats.Mean, 1e-9)
}
