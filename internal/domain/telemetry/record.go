package telemetry

import (
	"math"
	"time"
)

// Record is a single positional observation of a tracked entity. Fields are
// pointers because absence means "unknown", not zero; a Record is never
// mutated after construction.
type Record struct {
	EntityID     string   `json:"entity_id"`
	Callsign     string   `json:"callsign,omitempty"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
	Altitude     *float64 `json:"altitude,omitempty"`
	Velocity     *float64 `json:"velocity,omitempty"`
	VerticalRate *float64 `json:"vertical_rate,omitempty"`
	OnGround     *bool    `json:"on_ground,omitempty"`

	// Unix seconds. PositionTime is when the position fix was taken,
	// LastContact when the sensor last heard from the entity.
	PositionTime *float64 `json:"position_time,omitempty"`
	LastContact  *float64 `json:"last_contact,omitempty"`

	// Extra carries sensor-specific numeric fields that are not part of the
	// core model but still participate in corruption scanning.
	Extra map[string]float64 `json:"extra,omitempty"`
}

// Field names as they appear in issues, anomalies, and configuration.
const (
	FieldEntityID     = "entity_id"
	FieldLatitude     = "latitude"
	FieldLongitude    = "longitude"
	FieldAltitude     = "altitude"
	FieldVelocity     = "velocity"
	FieldVerticalRate = "vertical_rate"
	FieldOnGround     = "on_ground"
	FieldPositionTime = "position_time"
	FieldLastContact  = "last_contact"
)

// NamedValue pairs a field name with its numeric value.
type NamedValue struct {
	Field string
	Value float64
}

// NumericFields returns every numeric field that is present on the record,
// core fields first, then Extra in unspecified order.
func (r *Record) NumericFields() []NamedValue {
	out := make([]NamedValue, 0, 7+len(r.Extra))
	add := func(field string, v *float64) {
		if v != nil {
			out = append(out, NamedValue{Field: field, Value: *v})
		}
	}
	add(FieldLatitude, r.Latitude)
	add(FieldLongitude, r.Longitude)
	add(FieldAltitude, r.Altitude)
	add(FieldVelocity, r.Velocity)
	add(FieldVerticalRate, r.VerticalRate)
	add(FieldPositionTime, r.PositionTime)
	add(FieldLastContact, r.LastContact)
	for field, v := range r.Extra {
		out = append(out, NamedValue{Field: field, Value: v})
	}
	return out
}

// HasPosition reports whether both coordinates are present and finite.
func (r *Record) HasPosition() bool {
	return r.Latitude != nil && r.Longitude != nil &&
		!math.IsNaN(*r.Latitude) && !math.IsInf(*r.Latitude, 0) &&
		!math.IsNaN(*r.Longitude) && !math.IsInf(*r.Longitude, 0)
}

// Airborne reports whether the entity is known to be off the ground.
// An absent on-ground flag is treated as airborne, matching sensor behavior
// where grounded targets are the ones that reliably report the flag.
func (r *Record) Airborne() bool {
	return r.OnGround == nil || !*r.OnGround
}

// ContactTime returns LastContact as a time.Time, or the zero value when the
// field is absent or non-finite.
func (r *Record) ContactTime() time.Time {
	return unixTime(r.LastContact)
}

// PositionFixTime returns PositionTime as a time.Time, or the zero value when
// the field is absent or non-finite.
func (r *Record) PositionFixTime() time.Time {
	return unixTime(r.PositionTime)
}

func unixTime(v *float64) time.Time {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return time.Time{}
	}
	sec := int64(*v)
	nsec := int64((*v - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec)
}

// Float returns a pointer to v. Convenience for building records.
func Float(v float64) *float64 { return &v }

// Bool returns a pointer to b. Convenience for building records.
func Bool(b bool) *bool { return &b }
