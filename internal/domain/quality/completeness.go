package quality

import (
	"fmt"

	"github.com/skywardops/telemetry-quality-engine/internal/domain/telemetry"
)

// assessCompleteness penalizes absent fields. Missing critical fields take a
// severe fixed penalty, missing important fields a smaller one, and the final
// score can never exceed the raw presence ratio across both classes.
func assessCompleteness(rec *telemetry.Record, cfg Config) (float64, []Issue, int) {
	score := 1.0
	present := 0
	total := len(cfg.CriticalFields) + len(cfg.ImportantFields)
	var issues []Issue

	for _, field := range cfg.CriticalFields {
		if fieldPresent(rec, field) {
			present++
			continue
		}
		score -= cfg.MissingCriticalPenalty
		issues = append(issues, Issue{
			Dimension:   DimensionCompleteness,
			Severity:    telemetry.SeverityCritical,
			Field:       field,
			Type:        IssueMissingCriticalField,
			Description: fmt.Sprintf("critical field %s is missing", field),
		})
	}

	for _, field := range cfg.ImportantFields {
		if fieldPresent(rec, field) {
			present++
			continue
		}
		score -= cfg.MissingImportantPenalty
		issues = append(issues, Issue{
			Dimension:   DimensionCompleteness,
			Severity:    telemetry.SeverityMedium,
			Field:       field,
			Type:        IssueMissingImportantField,
			Description: fmt.Sprintf("important field %s is missing", field),
		})
	}

	if score < 0 {
		score = 0
	}
	if total > 0 {
		ratio := float64(present) / float64(total)
		if score > ratio {
			score = ratio
		}
	}

	return score, issues, total
}

func fieldPresent(rec *telemetry.Record, field string) bool {
	switch field {
	case telemetry.FieldEntityID:
		return rec.EntityID != ""
	case telemetry.FieldLatitude:
		return rec.Latitude != nil
	case telemetry.FieldLongitude:
		return rec.Longitude != nil
	case telemetry.FieldAltitude:
		return rec.Altitude != nil
	case telemetry.FieldVelocity:
		return rec.Velocity != nil
	case telemetry.FieldVerticalRate:
		return rec.VerticalRate != nil
	case telemetry.FieldOnGround:
		return rec.OnGround != nil
	case telemetry.FieldPositionTime:
		return rec.PositionTime != nil
	case telemetry.FieldLastContact:
		return rec.LastContact != nil
	default:
		_, ok := rec.Extra[field]
		return ok
	}
}
