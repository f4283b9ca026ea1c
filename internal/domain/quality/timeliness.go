package quality

import (
	"fmt"
	"math"
	"time"

	"github.com/skywardops/telemetry-quality-engine/internal/domain/telemetry"
)

// assessTimeliness grades how fresh the record is relative to now. Freshness
// is piecewise: full credit inside the optimal window, a linear slide to 0.8
// by the acceptable window, a linear slide to 0.5 by the stale cutoff, then a
// flat 0.2. A present but staler position fix can only pull the score down.
func assessTimeliness(rec *telemetry.Record, now time.Time, cfg Config) (float64, []Issue) {
	var issues []Issue

	if rec.LastContact == nil {
		issues = append(issues, Issue{
			Dimension:   DimensionTimeliness,
			Severity:    telemetry.SeverityHigh,
			Field:       telemetry.FieldLastContact,
			Type:        IssueMissingTimestamp,
			Description: "last contact timestamp is missing",
		})
		return 0, issues
	}

	// A NaN or infinite timestamp cannot be aged; treating it as the zero
	// time would make the record look decades old instead of broken.
	if !finiteTimestamp(rec.LastContact) {
		issues = append(issues, Issue{
			Dimension:   DimensionTimeliness,
			Severity:    telemetry.SeverityHigh,
			Field:       telemetry.FieldLastContact,
			Type:        IssueNonNumericTimestamp,
			Description: "last contact timestamp is not a finite number",
		})
		return 0, issues
	}
	if rec.PositionTime != nil && !finiteTimestamp(rec.PositionTime) {
		issues = append(issues, Issue{
			Dimension:   DimensionTimeliness,
			Severity:    telemetry.SeverityHigh,
			Field:       telemetry.FieldPositionTime,
			Type:        IssueNonNumericTimestamp,
			Description: "position timestamp is not a finite number",
		})
		return 0, issues
	}

	age := now.Sub(rec.ContactTime())
	score := freshnessScore(age, cfg)

	switch {
	case age > cfg.StaleCutoff:
		v := age.Seconds()
		issues = append(issues, Issue{
			Dimension:   DimensionTimeliness,
			Severity:    telemetry.SeverityHigh,
			Field:       telemetry.FieldLastContact,
			Type:        IssueStaleTimestamp,
			Description: fmt.Sprintf("record is %.0f s old", v),
			Value:       &v,
		})
	case age > cfg.AcceptableFreshness:
		v := age.Seconds()
		issues = append(issues, Issue{
			Dimension:   DimensionTimeliness,
			Severity:    telemetry.SeverityMedium,
			Field:       telemetry.FieldLastContact,
			Type:        IssueStaleTimestamp,
			Description: fmt.Sprintf("record is %.0f s old", v),
			Value:       &v,
		})
	}

	if rec.PositionTime != nil {
		posScore := freshnessScore(now.Sub(rec.PositionFixTime()), cfg)
		if posScore < score {
			score = posScore
		}
	}

	return score, issues
}

func finiteTimestamp(v *float64) bool {
	return !math.IsNaN(*v) && !math.IsInf(*v, 0)
}

func freshnessScore(age time.Duration, cfg Config) float64 {
	if age < 0 {
		age = 0
	}
	a := age.Seconds()
	opt := cfg.OptimalFreshness.Seconds()
	acc := cfg.AcceptableFreshness.Seconds()
	stale := cfg.StaleCutoff.Seconds()

	switch {
	case a <= opt:
		return 1.0
	case a <= acc:
		return 1.0 - 0.2*(a-opt)/(acc-opt)
	case a <= stale:
		return 0.8 - 0.3*(a-acc)/(stale-acc)
	default:
		return 0.2
	}
}
