package anomaly

import (
	"fmt"
	"time"

	"github.com/skywardops/telemetry-quality-engine/internal/domain/errors"
)

// Boundary is a rectangular lat/lon zone.
type Boundary struct {
	Name   string
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// Contains reports whether the point lies inside the rectangle, edges
// inclusive.
func (b Boundary) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// Config holds the detector tunables. Construct via DefaultConfig or
// NewConfig; invalid configurations fail at construction, never per record.
type Config struct {
	// Statistical outlier thresholds.
	ZScoreThreshold float64
	IQRMultiplier   float64
	MinSamples      int

	// Physical ceilings and floors.
	MaxPhysicalAltitude     float64
	MinPhysicalAltitude     float64
	MaxPhysicalVelocity     float64
	MaxPhysicalVerticalRate float64

	// Position-jump thresholds.
	MaxJumpSpeedPerSec float64 // distance units per second
	TeleportDistanceKm float64 // absolute distance that makes a jump critical

	// Stuck-entity thresholds.
	StuckRadiusKm    float64
	StuckMinDuration time.Duration
	StuckMaxVelocity float64
	StuckMinPoints   int

	// Zones.
	ForbiddenZones []Boundary
	OceanicZones   []Boundary

	// Temporal thresholds.
	MaxFutureTolerance time.Duration
	MaxRecordAge       time.Duration

	// Corruption sanity ceiling on any numeric magnitude.
	SanityCeiling float64

	// Track cache sizing.
	TrackMaxPoints  int
	TrackMaxAge     time.Duration
	TrackMaxEntries int
}

// DefaultConfig returns detector defaults matching the quality scorer's unit
// conventions.
func DefaultConfig() Config {
	return Config{
		ZScoreThreshold: 3.0,
		IQRMultiplier:   1.5,
		MinSamples:      10,

		MaxPhysicalAltitude:     80000,
		MinPhysicalAltitude:     -1500,
		MaxPhysicalVelocity:     1500,
		MaxPhysicalVerticalRate: 200,

		MaxJumpSpeedPerSec: 500,
		TeleportDistanceKm: 500,

		StuckRadiusKm:    0.5,
		StuckMinDuration: 5 * time.Minute,
		StuckMaxVelocity: 5,
		StuckMinPoints:   3,

		OceanicZones: []Boundary{
			{Name: "north_atlantic", MinLat: 20, MaxLat: 60, MinLon: -60, MaxLon: -10},
		},

		MaxFutureTolerance: 60 * time.Second,
		MaxRecordAge:       7 * 24 * time.Hour,

		SanityCeiling: 1e9,

		TrackMaxPoints:  10,
		TrackMaxAge:     30 * time.Minute,
		TrackMaxEntries: 10_000,
	}
}

// NewConfig validates cfg and returns it unchanged.
func NewConfig(cfg Config) (Config, error) {
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration invariants.
func (c Config) Validate() error {
	if c.ZScoreThreshold <= 0 {
		return errors.NewConfigError("INVALID_Z_THRESHOLD", "z-score threshold must be positive")
	}
	if c.IQRMultiplier <= 0 {
		return errors.NewConfigError("INVALID_IQR_MULTIPLIER", "iqr multiplier must be positive")
	}
	if c.MinSamples < 2 {
		return errors.NewConfigError("INVALID_MIN_SAMPLES", "minimum sample count must be at least 2")
	}
	if c.MinPhysicalAltitude >= c.MaxPhysicalAltitude {
		return errors.NewConfigError("INVALID_ALTITUDE_BOUNDS", "altitude floor must be below ceiling")
	}
	if c.MaxPhysicalVelocity <= 0 || c.MaxPhysicalVerticalRate <= 0 {
		return errors.NewConfigError("INVALID_PHYSICAL_BOUNDS", "physical velocity bounds must be positive")
	}
	if c.MaxJumpSpeedPerSec <= 0 || c.TeleportDistanceKm <= 0 {
		return errors.NewConfigError("INVALID_JUMP_BOUNDS", "jump thresholds must be positive")
	}
	if c.StuckRadiusKm <= 0 || c.StuckMinDuration <= 0 || c.StuckMinPoints < 2 {
		return errors.NewConfigError("INVALID_STUCK_BOUNDS", "stuck thresholds must be positive")
	}
	for _, zone := range append(append([]Boundary{}, c.ForbiddenZones...), c.OceanicZones...) {
		if zone.MinLat >= zone.MaxLat || zone.MinLon >= zone.MaxLon {
			return errors.NewConfigError("INVALID_ZONE",
				fmt.Sprintf("zone %q has inverted bounds", zone.Name))
		}
	}
	if c.MaxFutureTolerance <= 0 || c.MaxRecordAge <= 0 {
		return errors.NewConfigError("INVALID_TEMPORAL_BOUNDS", "temporal thresholds must be positive")
	}
	if c.SanityCeiling <= 0 {
		return errors.NewConfigError("INVALID_SANITY_CEILING", "sanity ceiling must be positive")
	}
	if c.TrackMaxPoints < 1 || c.TrackMaxAge <= 0 || c.TrackMaxEntries < 1 {
		return errors.NewConfigError("INVALID_TRACK_BOUNDS", "track cache bounds must be positive")
	}
	return nil
}
