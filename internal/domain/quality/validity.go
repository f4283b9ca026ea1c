package quality

import (
	"fmt"
	"math"
	"regexp"

	"github.com/skywardops/telemetry-quality-engine/internal/domain/telemetry"
)

// entityIDPattern is the expected hex-identifier shape: a 24-bit address
// rendered as exactly six lowercase hex characters.
var entityIDPattern = regexp.MustCompile(`^[0-9a-f]{6}$`)

// assessValidity range-checks every numeric field that is present, plus the
// entity-id format. Score is 1 minus the failure ratio; with no applicable
// checks the dimension carries no information and scores 0.
func assessValidity(rec *telemetry.Record, cfg Config) (float64, []Issue) {
	performed := 0
	failed := 0
	var issues []Issue

	check := func(field string, v *float64) {
		if v == nil {
			return
		}
		performed++
		value := *v

		if math.IsNaN(value) {
			failed++
			issues = append(issues, Issue{
				Dimension:   DimensionValidity,
				Severity:    telemetry.SeverityHigh,
				Field:       field,
				Type:        IssueNonNumericValue,
				Description: fmt.Sprintf("%s is not a number", field),
			})
			return
		}
		if math.IsInf(value, 0) {
			failed++
			issues = append(issues, Issue{
				Dimension:   DimensionValidity,
				Severity:    telemetry.SeverityHigh,
				Field:       field,
				Type:        IssueNonFiniteValue,
				Description: fmt.Sprintf("%s is not finite", field),
			})
			return
		}

		r, ok := cfg.FieldRanges[field]
		if !ok {
			return
		}
		if !r.Contains(value) {
			failed++
			expected := r
			issues = append(issues, Issue{
				Dimension:   DimensionValidity,
				Severity:    telemetry.SeverityHigh,
				Field:       field,
				Type:        IssueValueOutOfRange,
				Description: fmt.Sprintf("%s %.2f outside [%.2f, %.2f]", field, value, r.Min, r.Max),
				Value:       &value,
				Expected:    &expected,
			})
		}
	}

	check(telemetry.FieldAltitude, rec.Altitude)
	check(telemetry.FieldVelocity, rec.Velocity)
	check(telemetry.FieldLatitude, rec.Latitude)
	check(telemetry.FieldLongitude, rec.Longitude)
	check(telemetry.FieldVerticalRate, rec.VerticalRate)

	if rec.EntityID != "" {
		performed++
		if !entityIDPattern.MatchString(rec.EntityID) {
			failed++
			issues = append(issues, Issue{
				Dimension:   DimensionValidity,
				Severity:    telemetry.SeverityMedium,
				Field:       telemetry.FieldEntityID,
				Type:        IssueMalformedEntityID,
				Description: fmt.Sprintf("entity id %q is not a 6-char lowercase hex address", rec.EntityID),
			})
		}
	}

	if performed == 0 {
		return 0, issues
	}
	return 1 - float64(failed)/float64(performed), issues
}
