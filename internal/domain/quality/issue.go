package quality

import "github.com/skywardops/telemetry-quality-engine/internal/domain/telemetry"

// Dimension identifies one of the four quality axes.
type Dimension int

const (
	DimensionCompleteness Dimension = iota
	DimensionValidity
	DimensionConsistency
	DimensionTimeliness
)

func (d Dimension) String() string {
	switch d {
	case DimensionCompleteness:
		return "completeness"
	case DimensionValidity:
		return "validity"
	case DimensionConsistency:
		return "consistency"
	case DimensionTimeliness:
		return "timeliness"
	default:
		return "unknown"
	}
}

// IssueType is the closed set of quality findings. Downstream consumers can
// switch exhaustively on it; there is no free-form metadata escape hatch.
type IssueType int

const (
	IssueMissingCriticalField IssueType = iota
	IssueMissingImportantField
	IssueNonNumericValue
	IssueNonFiniteValue
	IssueValueOutOfRange
	IssueMalformedEntityID
	IssueSpeedAltitudeMismatch
	IssueImpossiblePositionJump
	IssueStuckPosition
	IssueGroundStateConflict
	IssueStaleTimestamp
	IssueMissingTimestamp
	IssueNonNumericTimestamp
	IssueNullRecord
)

func (t IssueType) String() string {
	switch t {
	case IssueMissingCriticalField:
		return "missing_critical_field"
	case IssueMissingImportantField:
		return "missing_important_field"
	case IssueNonNumericValue:
		return "non_numeric_value"
	case IssueNonFiniteValue:
		return "non_finite_value"
	case IssueValueOutOfRange:
		return "value_out_of_range"
	case IssueMalformedEntityID:
		return "malformed_entity_id"
	case IssueSpeedAltitudeMismatch:
		return "speed_altitude_mismatch"
	case IssueImpossiblePositionJump:
		return "impossible_position_jump"
	case IssueStuckPosition:
		return "stuck_position"
	case IssueGroundStateConflict:
		return "ground_state_conflict"
	case IssueStaleTimestamp:
		return "stale_timestamp"
	case IssueMissingTimestamp:
		return "missing_timestamp"
	case IssueNonNumericTimestamp:
		return "non_numeric_timestamp"
	case IssueNullRecord:
		return "null_record"
	default:
		return "unknown"
	}
}

// Issue is a single quality finding. Issues are produced, never mutated.
type Issue struct {
	Dimension   Dimension          `json:"dimension"`
	Severity    telemetry.Severity `json:"severity"`
	Field       string             `json:"field,omitempty"`
	Type        IssueType          `json:"type"`
	Description string             `json:"description"`
	Value       *float64           `json:"value,omitempty"`
	Expected    *telemetry.Range   `json:"expected,omitempty"`
}
