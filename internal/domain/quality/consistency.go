package quality

import (
	"fmt"

	"github.com/skywardops/telemetry-quality-engine/internal/domain/geo"
	"github.com/skywardops/telemetry-quality-engine/internal/domain/telemetry"
)

// assessConsistency runs cross-field and cross-record checks. Each applicable
// check counts toward a failed/performed ratio; with nothing to check the
// record has no observed contradictions and scores 1.
func assessConsistency(rec, prev *telemetry.Record, cfg Config) (float64, []Issue) {
	performed := 0
	failed := 0
	var issues []Issue

	// Speed-to-altitude ratio, airborne entities only.
	if rec.Airborne() && rec.Velocity != nil && rec.Altitude != nil && *rec.Altitude > 0 {
		performed++
		ratio := *rec.Velocity / *rec.Altitude
		if ratio > cfg.MaxSpeedAltitudeRatio {
			failed++
			issues = append(issues, Issue{
				Dimension:   DimensionConsistency,
				Severity:    telemetry.SeverityMedium,
				Field:       telemetry.FieldVelocity,
				Type:        IssueSpeedAltitudeMismatch,
				Description: fmt.Sprintf("speed %.1f implausible at altitude %.1f", *rec.Velocity, *rec.Altitude),
				Value:       rec.Velocity,
			})
		}
	}

	if prev != nil && rec.HasPosition() && prev.HasPosition() &&
		rec.LastContact != nil && prev.LastContact != nil {

		distance := geo.Distance(*prev.Latitude, *prev.Longitude, *rec.Latitude, *rec.Longitude)
		elapsed := *rec.LastContact - *prev.LastContact

		// Position jump. Zero or negative elapsed time yields no implied
		// speed and is never flagged here.
		performed++
		if elapsed > 0 {
			impliedSpeed := distance / elapsed
			if impliedSpeed > cfg.MaxReasonableSpeedKms && distance > cfg.MaxPositionJumpKm {
				failed++
				issues = append(issues, Issue{
					Dimension: DimensionConsistency,
					Severity:  telemetry.SeverityHigh,
					Field:     telemetry.FieldLatitude,
					Type:      IssueImpossiblePositionJump,
					Description: fmt.Sprintf("moved %.1f km in %.1f s (%.2f km/s)",
						distance, elapsed, impliedSpeed),
					Value: &distance,
				})
			}
		}

		// Stuck position, airborne entities only; grounded entities
		// legitimately sit still.
		if rec.Airborne() && rec.Velocity != nil {
			performed++
			if elapsed >= cfg.StuckMinDuration.Seconds() &&
				distance <= cfg.StuckRadiusKm &&
				*rec.Velocity < cfg.StuckMaxVelocity {
				failed++
				issues = append(issues, Issue{
					Dimension: DimensionConsistency,
					Severity:  telemetry.SeverityMedium,
					Field:     telemetry.FieldLatitude,
					Type:      IssueStuckPosition,
					Description: fmt.Sprintf("airborne but moved only %.2f km in %.0f s",
						distance, elapsed),
					Value: &distance,
				})
			}
		}
	}

	// On-ground status against altitude and velocity.
	if rec.OnGround != nil {
		performed++
		switch {
		case *rec.OnGround && rec.Altitude != nil && *rec.Altitude > cfg.GroundAltitudeCeiling:
			failed++
			issues = append(issues, Issue{
				Dimension:   DimensionConsistency,
				Severity:    telemetry.SeverityMedium,
				Field:       telemetry.FieldOnGround,
				Type:        IssueGroundStateConflict,
				Description: fmt.Sprintf("reported on ground at altitude %.1f", *rec.Altitude),
				Value:       rec.Altitude,
			})
		case !*rec.OnGround && rec.Altitude != nil && rec.Velocity != nil &&
			*rec.Altitude < cfg.LowAltitude && *rec.Velocity < cfg.LowVelocity:
			failed++
			issues = append(issues, Issue{
				Dimension:   DimensionConsistency,
				Severity:    telemetry.SeverityMedium,
				Field:       telemetry.FieldOnGround,
				Type:        IssueGroundStateConflict,
				Description: fmt.Sprintf("reported airborne at altitude %.1f with speed %.1f", *rec.Altitude, *rec.Velocity),
				Value:       rec.Altitude,
			})
		}
	}

	if performed == 0 {
		return 1, issues
	}
	return 1 - float64(failed)/float64(performed), issues
}
