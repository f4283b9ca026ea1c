package quality

import (
	"fmt"
	"math"
	"time"

	"github.com/skywardops/telemetry-quality-engine/internal/domain/errors"
	"github.com/skywardops/telemetry-quality-engine/internal/domain/telemetry"
)

// weightSumTolerance absorbs float accumulation error when checking that the
// four dimension weights sum to exactly 1.
const weightSumTolerance = 1e-9

// Config holds the tunables for the four quality dimensions. Construct via
// DefaultConfig or NewConfig; a Config that fails Validate must never reach
// the scorer.
type Config struct {
	CompletenessWeight float64
	ValidityWeight     float64
	ConsistencyWeight  float64
	TimelinessWeight   float64

	// Field presence classes for the completeness dimension.
	CriticalFields  []string
	ImportantFields []string

	MissingCriticalPenalty  float64
	MissingImportantPenalty float64

	// Declared plausible ranges per numeric field, keyed by field name.
	FieldRanges map[string]telemetry.Range

	// Consistency thresholds.
	MaxSpeedAltitudeRatio float64       // velocity/altitude ceiling for airborne entities
	MaxReasonableSpeedKms float64       // km/s bound for the cross-record jump check
	MaxPositionJumpKm     float64       // absolute distance floor before a jump is flagged
	StuckRadiusKm         float64       // movement radius for the stuck check
	StuckMinDuration      time.Duration // elapsed time before near-zero movement is suspicious
	StuckMaxVelocity      float64       // reported velocity ceiling for the stuck check
	GroundAltitudeCeiling float64       // grounded entities above this altitude are contradictions
	LowAltitude           float64       // airborne below this altitude...
	LowVelocity           float64       // ...and below this velocity is a contradiction

	// Timeliness thresholds.
	OptimalFreshness    time.Duration
	AcceptableFreshness time.Duration
	StaleCutoff         time.Duration

	// Grade cutoffs, evaluated highest first.
	GradeExcellent  float64
	GradeGood       float64
	GradeAcceptable float64
	GradePoor       float64

	QuarantineThreshold       float64
	QuarantineOnCriticalIssue bool
}

// DefaultConfig returns a configuration tuned for ADS-B style feeds:
// altitudes in feet, velocities in knots, distances in kilometers.
func DefaultConfig() Config {
	return Config{
		CompletenessWeight: 0.30,
		ValidityWeight:     0.30,
		ConsistencyWeight:  0.20,
		TimelinessWeight:   0.20,

		CriticalFields: []string{
			telemetry.FieldEntityID,
			telemetry.FieldLatitude,
			telemetry.FieldLongitude,
			telemetry.FieldLastContact,
		},
		ImportantFields: []string{
			telemetry.FieldAltitude,
			telemetry.FieldVelocity,
			telemetry.FieldVerticalRate,
			telemetry.FieldOnGround,
			telemetry.FieldPositionTime,
		},

		MissingCriticalPenalty:  0.30,
		MissingImportantPenalty: 0.10,

		FieldRanges: map[string]telemetry.Range{
			telemetry.FieldAltitude:     {Min: -1500, Max: 60000},
			telemetry.FieldVelocity:     {Min: 0, Max: 1500},
			telemetry.FieldVerticalRate: {Min: -150, Max: 150},
			telemetry.FieldLatitude:     {Min: -90, Max: 90},
			telemetry.FieldLongitude:    {Min: -180, Max: 180},
		},

		MaxSpeedAltitudeRatio: 1.0,
		MaxReasonableSpeedKms: 0.35,
		MaxPositionJumpKm:     100,
		StuckRadiusKm:         0.5,
		StuckMinDuration:      5 * time.Minute,
		StuckMaxVelocity:      5,
		GroundAltitudeCeiling: 100,
		LowAltitude:           50,
		LowVelocity:           10,

		OptimalFreshness:    10 * time.Second,
		AcceptableFreshness: 60 * time.Second,
		StaleCutoff:         5 * time.Minute,

		GradeExcellent:  0.90,
		GradeGood:       0.80,
		GradeAcceptable: 0.70,
		GradePoor:       0.60,

		QuarantineThreshold:       0.50,
		QuarantineOnCriticalIssue: true,
	}
}

// NewConfig validates cfg and returns it unchanged. Invalid configurations
// fail here, never at per-record scoring time.
func NewConfig(cfg Config) (Config, error) {
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration invariants.
func (c Config) Validate() error {
	for name, w := range map[string]float64{
		"completeness_weight": c.CompletenessWeight,
		"validity_weight":     c.ValidityWeight,
		"consistency_weight":  c.ConsistencyWeight,
		"timeliness_weight":   c.TimelinessWeight,
	} {
		if math.IsNaN(w) || w < 0 || w > 1 {
			return errors.NewConfigError("INVALID_WEIGHT",
				fmt.Sprintf("%s must be in [0,1], got %v", name, w))
		}
	}

	sum := c.CompletenessWeight + c.ValidityWeight + c.ConsistencyWeight + c.TimelinessWeight
	if math.Abs(sum-1.0) > weightSumTolerance {
		return errors.NewConfigError("WEIGHTS_MUST_SUM_TO_ONE",
			fmt.Sprintf("dimension weights sum to %v, want 1.0", sum))
	}

	if c.MissingCriticalPenalty <= 0 || c.MissingCriticalPenalty > 1 {
		return errors.NewConfigError("INVALID_PENALTY", "missing-critical penalty must be in (0,1]")
	}
	if c.MissingImportantPenalty <= 0 || c.MissingImportantPenalty > 1 {
		return errors.NewConfigError("INVALID_PENALTY", "missing-important penalty must be in (0,1]")
	}

	for field, r := range c.FieldRanges {
		if r.Min >= r.Max {
			return errors.NewConfigError("INVALID_RANGE",
				fmt.Sprintf("range for %s has min >= max", field))
		}
	}

	if !(c.OptimalFreshness < c.AcceptableFreshness && c.AcceptableFreshness < c.StaleCutoff) {
		return errors.NewConfigError("INVALID_FRESHNESS_ORDER",
			"freshness thresholds must satisfy optimal < acceptable < stale")
	}

	if !(c.GradeExcellent > c.GradeGood && c.GradeGood > c.GradeAcceptable && c.GradeAcceptable > c.GradePoor) {
		return errors.NewConfigError("INVALID_GRADE_CUTOFFS",
			"grade cutoffs must be strictly decreasing")
	}

	if c.QuarantineThreshold < 0 || c.QuarantineThreshold > 1 {
		return errors.NewConfigError("INVALID_QUARANTINE_THRESHOLD",
			"quarantine threshold must be in [0,1]")
	}

	return nil
}
