package anomaly

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackCache_AppendAndRecent(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	cache := NewTrackCache(DefaultConfig())

	for i := 0; i < 4; i++ {
		cache.Append("abc123", TrackPoint{
			Lat: 40.0 + float64(i),
			Lon: -73.0,
			At:  now.Add(time.Duration(i) * time.Minute),
		})
	}

	recent := cache.Recent("abc123", 2, now.Add(4*time.Minute))
	require.Len(t, recent, 2)
	assert.InDelta(t, 42.0, recent[0].Lat, 1e-9)
	assert.InDelta(t, 43.0, recent[1].Lat, 1e-9)
}

func TestTrackCache_PointCountCap(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	cfg := DefaultConfig()
	cfg.TrackMaxPoints = 3
	cache := NewTrackCache(cfg)

	for i := 0; i < 10; i++ {
		cache.Append("abc123", TrackPoint{At: now.Add(time.Duration(i) * time.Second)})
	}

	recent := cache.Recent("abc123", 100, now.Add(10*time.Second))
	assert.Len(t, recent, 3)
}

func TestTrackCache_AgeEviction(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	cache := NewTrackCache(DefaultConfig())

	cache.Append("abc123", TrackPoint{At: now.Add(-2 * time.Hour)})
	cache.Append("abc123", TrackPoint{At: now})

	recent := cache.Recent("abc123", 100, now)
	require.Len(t, recent, 1)
	assert.Equal(t, now, recent[0].At)
}

func TestTrackCache_RegressiveTimestampClamped(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	cache := NewTrackCache(DefaultConfig())

	cache.Append("abc123", TrackPoint{Lat: 40.0, At: now})
	cache.Append("abc123", TrackPoint{Lat: 41.0, At: now.Add(10 * time.Minute)})
	cache.Append("abc123", TrackPoint{Lat: 42.0, At: now.Add(-5 * time.Minute)})

	recent := cache.Recent("abc123", 100, now.Add(10*time.Minute))
	require.Len(t, recent, 3)
	assert.Equal(t, now.Add(10*time.Minute), recent[2].At)
	for i := 1; i < len(recent); i++ {
		assert.False(t, recent[i].At.Before(recent[i-1].At))
	}
}

func TestTrackCache_UnknownEntity(t *testing.T) {
	cache := NewTrackCache(DefaultConfig())
	assert.Nil(t, cache.Recent("ffffff", 5, time.Unix(1_700_000_000, 0)))
}

func TestTrackCache_EntityCapEvictsLRU(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	cfg := DefaultConfig()
	cfg.TrackMaxEntries = 64
	cache := NewTrackCache(cfg)

	for i := 0; i < 1000; i++ {
		id := fmt.Sprintf("%06x", i)
		cache.Append(id, TrackPoint{At: now.Add(time.Duration(i) * time.Second)})
	}

	assert.LessOrEqual(t, cache.Entities(), 2*trackStripes)
}
