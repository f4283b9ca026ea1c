package anomaly

import (
	"hash/fnv"
	"sync"
	"time"
)

// trackStripes spreads entity locks so concurrent workers on different
// entities rarely contend.
const trackStripes = 64

// TrackPoint is one historical position observation for an entity.
type TrackPoint struct {
	Lat float64
	Lon float64
	At  time.Time
}

// TrackCache keeps a bounded per-entity history of recent positions. Both the
// per-entity point count and age window, and the global entity count, are
// enforced on every write so memory stays bounded under sustained load.
type TrackCache struct {
	maxPoints  int
	maxAge     time.Duration
	maxEntries int

	stripes [trackStripes]trackStripe
}

type trackStripe struct {
	mu     sync.Mutex
	tracks map[string]*entityTrack
}

type entityTrack struct {
	points   []TrackPoint
	lastSeen time.Time
}

// NewTrackCache sizes the cache from cfg.
func NewTrackCache(cfg Config) *TrackCache {
	c := &TrackCache{
		maxPoints:  cfg.TrackMaxPoints,
		maxAge:     cfg.TrackMaxAge,
		maxEntries: cfg.TrackMaxEntries,
	}
	for i := range c.stripes {
		c.stripes[i].tracks = make(map[string]*entityTrack)
	}
	return c
}

// Recent returns up to n most recent points for the entity, oldest first.
// Points past the age window are excluded.
func (c *TrackCache) Recent(entityID string, n int, now time.Time) []TrackPoint {
	stripe := c.stripe(entityID)
	stripe.mu.Lock()
	defer stripe.mu.Unlock()

	track, ok := stripe.tracks[entityID]
	if !ok {
		return nil
	}

	cutoff := now.Add(-c.maxAge)
	fresh := track.points
	for len(fresh) > 0 && fresh[0].At.Before(cutoff) {
		fresh = fresh[1:]
	}
	if len(fresh) > n {
		fresh = fresh[len(fresh)-n:]
	}
	out := make([]TrackPoint, len(fresh))
	copy(out, fresh)
	return out
}

// Append records a new point for the entity, evicting aged and excess points
// and, when the global entity cap is exceeded, the least recently seen entity
// on the same stripe.
func (c *TrackCache) Append(entityID string, p TrackPoint) {
	stripe := c.stripe(entityID)
	stripe.mu.Lock()
	defer stripe.mu.Unlock()

	track, ok := stripe.tracks[entityID]
	if !ok {
		if len(stripe.tracks) >= c.maxEntries/trackStripes+1 {
			stripe.evictOldest()
		}
		track = &entityTrack{}
		stripe.tracks[entityID] = track
	}

	// The slice stays sorted by At; a record whose timestamp runs backwards
	// is clamped to the newest point so age trimming never skips entries.
	if n := len(track.points); n > 0 && p.At.Before(track.points[n-1].At) {
		p.At = track.points[n-1].At
	}

	cutoff := p.At.Add(-c.maxAge)
	points := track.points
	for len(points) > 0 && points[0].At.Before(cutoff) {
		points = points[1:]
	}
	points = append(points, p)
	if len(points) > c.maxPoints {
		points = points[len(points)-c.maxPoints:]
	}

	track.points = append(track.points[:0:0], points...)
	track.lastSeen = p.At
}

// Entities returns the number of tracked entities across all stripes.
func (c *TrackCache) Entities() int {
	n := 0
	for i := range c.stripes {
		c.stripes[i].mu.Lock()
		n += len(c.stripes[i].tracks)
		c.stripes[i].mu.Unlock()
	}
	return n
}

func (c *TrackCache) stripe(entityID string) *trackStripe {
	h := fnv.New32a()
	h.Write([]byte(entityID))
	return &c.stripes[h.Sum32()%trackStripes]
}

// evictOldest drops the least recently seen entity. Caller holds the stripe
// lock.
func (s *trackStripe) evictOldest() {
	var oldestID string
	var oldest time.Time
	first := true
	for id, track := range s.tracks {
		if first || track.lastSeen.Before(oldest) {
			oldestID = id
			oldest = track.lastSeen
			first = false
		}
	}
	if !first {
		delete(s.tracks, oldestID)
	}
}
