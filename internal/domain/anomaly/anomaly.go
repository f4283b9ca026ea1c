package anomaly

import "github.com/skywardops/telemetry-quality-engine/internal/domain/telemetry"

// Type is the closed set of anomaly kinds the detector can emit.
type Type int

const (
	TypeAltitude Type = iota
	TypeVelocity
	TypePositionJump
	TypeGeographicBoundary
	TypeStuckEntity
	TypeTemporal
	TypeImpossibleFlight
	TypeDataCorruption
)

func (t Type) String() string {
	switch t {
	case TypeAltitude:
		return "altitude"
	case TypeVelocity:
		return "velocity"
	case TypePositionJump:
		return "position_jump"
	case TypeGeographicBoundary:
		return "geographic_boundary"
	case TypeStuckEntity:
		return "stuck_entity"
	case TypeTemporal:
		return "temporal"
	case TypeImpossibleFlight:
		return "impossible_flight"
	case TypeDataCorruption:
		return "data_corruption"
	default:
		return "unknown"
	}
}

// Details is the fixed payload an anomaly can carry. Only the fields relevant
// to the anomaly's type are set; absent fields are nil or zero.
type Details struct {
	DistanceKm     *float64 `json:"distance_km,omitempty"`
	ElapsedSeconds *float64 `json:"elapsed_seconds,omitempty"`
	ImpliedSpeed   *float64 `json:"implied_speed,omitempty"`
	ZScore         *float64 `json:"z_score,omitempty"`
	Mean           *float64 `json:"mean,omitempty"`
	StdDev         *float64 `json:"std_dev,omitempty"`
	IQRLow         *float64 `json:"iqr_low,omitempty"`
	IQRHigh        *float64 `json:"iqr_high,omitempty"`
	Zone           string   `json:"zone,omitempty"`
	TrackPoints    int      `json:"track_points,omitempty"`
	FailedCheck    string   `json:"failed_check,omitempty"`
}

// Anomaly is a single detector finding. Immutable once returned.
type Anomaly struct {
	Type        Type               `json:"type"`
	Severity    telemetry.Severity `json:"severity"`
	Description string             `json:"description"`
	Field       string             `json:"field,omitempty"`
	Value       *float64           `json:"value,omitempty"`
	Expected    *telemetry.Range   `json:"expected,omitempty"`
	Confidence  float64            `json:"confidence"`
	Details     *Details           `json:"details,omitempty"`
}
