package anomaly

import (
	"fmt"
	"math"
	"time"

	"github.com/skywardops/telemetry-quality-engine/internal/domain/geo"
	"github.com/skywardops/telemetry-quality-engine/internal/domain/telemetry"
)

// Detector runs seven independent anomaly checks over a record. Checks never
// abort each other: a check that fails internally degrades to a single
// data-corruption finding and the remaining checks still run. Safe for
// concurrent use as long as records for one entity arrive on one goroutine.
type Detector struct {
	cfg    Config
	tracks *TrackCache
	stats  *RollingStats
	now    func() time.Time
}

// NewDetector validates cfg and returns a detector with empty caches.
func NewDetector(cfg Config) (*Detector, error) {
	validated, err := NewConfig(cfg)
	if err != nil {
		return nil, err
	}
	return &Detector{
		cfg:    validated,
		tracks: NewTrackCache(validated),
		stats:  NewRollingStats(2 * validated.MinSamples),
		now:    time.Now,
	}, nil
}

// Config returns the detector's validated configuration.
func (d *Detector) Config() Config { return d.cfg }

// Tracks exposes the entity track cache for inspection.
func (d *Detector) Tracks() *TrackCache { return d.tracks }

// namedCheck pairs a check with the name reported when it fails internally.
type namedCheck struct {
	name string
	fn   func(*telemetry.Record) ([]Anomaly, error)
}

// Detect runs all checks against rec and returns the combined findings.
// historical, when supplied, reseeds the rolling statistics buffers after the
// checks have read them; the entity track is likewise appended to only after
// every check has run.
func (d *Detector) Detect(rec *telemetry.Record, historical []*telemetry.Record) []Anomaly {
	if rec == nil {
		return []Anomaly{{
			Type:        TypeDataCorruption,
			Severity:    telemetry.SeverityCritical,
			Description: "record is null",
			Confidence:  1.0,
		}}
	}

	checks := []namedCheck{
		{"physical_impossibility", d.checkPhysical},
		{"statistical_outlier", d.checkStatistical},
		{"geographic_boundary", d.checkGeographic},
		{"position_jump", d.checkPositionJump},
		{"stuck_entity", d.checkStuck},
		{"temporal", d.checkTemporal},
		{"data_corruption", d.checkCorruption},
	}

	var anomalies []Anomaly
	for _, check := range checks {
		found, err := check.fn(rec)
		if err != nil {
			anomalies = append(anomalies, Anomaly{
				Type:        TypeDataCorruption,
				Severity:    telemetry.SeverityHigh,
				Description: fmt.Sprintf("%s check failed: %v", check.name, err),
				Confidence:  0.5,
				Details:     &Details{FailedCheck: check.name},
			})
			continue
		}
		anomalies = append(anomalies, found...)
	}

	d.updateTrack(rec)
	d.refreshStats(rec, historical)

	return anomalies
}

func (d *Detector) checkPhysical(rec *telemetry.Record) ([]Anomaly, error) {
	var out []Anomaly

	if v := finite(rec.Altitude); v != nil {
		expected := telemetry.Range{Min: d.cfg.MinPhysicalAltitude, Max: d.cfg.MaxPhysicalAltitude}
		switch {
		case *v > d.cfg.MaxPhysicalAltitude:
			out = append(out, Anomaly{
				Type:        TypeAltitude,
				Severity:    telemetry.SeverityCritical,
				Field:       telemetry.FieldAltitude,
				Description: fmt.Sprintf("altitude %.0f above physical ceiling %.0f", *v, d.cfg.MaxPhysicalAltitude),
				Value:       v,
				Expected:    &expected,
				Confidence:  1.0,
			})
		case *v < d.cfg.MinPhysicalAltitude:
			// Some terrain sits below sea level, so the floor case is
			// high severity at reduced confidence, not critical.
			out = append(out, Anomaly{
				Type:        TypeAltitude,
				Severity:    telemetry.SeverityHigh,
				Field:       telemetry.FieldAltitude,
				Description: fmt.Sprintf("altitude %.0f below physical floor %.0f", *v, d.cfg.MinPhysicalAltitude),
				Value:       v,
				Expected:    &expected,
				Confidence:  0.9,
			})
		}
	}

	if v := finite(rec.Velocity); v != nil {
		if *v > d.cfg.MaxPhysicalVelocity || *v < 0 {
			expected := telemetry.Range{Min: 0, Max: d.cfg.MaxPhysicalVelocity}
			out = append(out, Anomaly{
				Type:        TypeVelocity,
				Severity:    telemetry.SeverityCritical,
				Field:       telemetry.FieldVelocity,
				Description: fmt.Sprintf("velocity %.0f outside physical bounds", *v),
				Value:       v,
				Expected:    &expected,
				Confidence:  1.0,
			})
		}
	}

	if v := finite(rec.VerticalRate); v != nil {
		if math.Abs(*v) > d.cfg.MaxPhysicalVerticalRate {
			expected := telemetry.Range{Min: -d.cfg.MaxPhysicalVerticalRate, Max: d.cfg.MaxPhysicalVerticalRate}
			out = append(out, Anomaly{
				Type:        TypeImpossibleFlight,
				Severity:    telemetry.SeverityHigh,
				Field:       telemetry.FieldVerticalRate,
				Description: fmt.Sprintf("vertical rate %.0f exceeds physical limit %.0f", *v, d.cfg.MaxPhysicalVerticalRate),
				Value:       v,
				Expected:    &expected,
				Confidence:  1.0,
			})
		}
	}

	return out, nil
}

func (d *Detector) checkStatistical(rec *telemetry.Record) ([]Anomaly, error) {
	metrics := []struct {
		field string
		value *float64
		typ   Type
	}{
		{telemetry.FieldAltitude, rec.Altitude, TypeAltitude},
		{telemetry.FieldVelocity, rec.Velocity, TypeVelocity},
	}

	var out []Anomaly
	for _, m := range metrics {
		v := finite(m.value)
		if v == nil {
			continue
		}
		stats, ok := d.stats.Summary(m.field, d.cfg.MinSamples)
		if !ok {
			continue
		}
		if math.IsNaN(stats.Mean) || math.IsNaN(stats.StdDev) {
			return nil, fmt.Errorf("non-finite baseline for %s", m.field)
		}

		z := 0.0
		if stats.StdDev > 0 {
			z = math.Abs(*v-stats.Mean) / stats.StdDev
		}
		iqr := stats.Q3 - stats.Q1
		low := stats.Q1 - d.cfg.IQRMultiplier*iqr
		high := stats.Q3 + d.cfg.IQRMultiplier*iqr

		zFlag := z > d.cfg.ZScoreThreshold
		iqrFlag := *v < low || *v > high
		if !zFlag && !iqrFlag {
			continue
		}

		severity := telemetry.SeverityMedium
		if z > 2*d.cfg.ZScoreThreshold {
			severity = telemetry.SeverityHigh
		}
		confidence := z / (2 * d.cfg.ZScoreThreshold)
		if confidence < 0.5 {
			confidence = 0.5
		}
		if confidence > 1.0 {
			confidence = 1.0
		}

		zv, mean, sd := z, stats.Mean, stats.StdDev
		lo, hi := low, high
		out = append(out, Anomaly{
			Type:     m.typ,
			Severity: severity,
			Field:    m.field,
			Description: fmt.Sprintf("%s %.1f is a statistical outlier (z=%.2f, mean=%.1f)",
				m.field, *v, z, stats.Mean),
			Value:      v,
			Confidence: confidence,
			Details: &Details{
				ZScore:  &zv,
				Mean:    &mean,
				StdDev:  &sd,
				IQRLow:  &lo,
				IQRHigh: &hi,
			},
		})
	}

	return out, nil
}

func (d *Detector) checkGeographic(rec *telemetry.Record) ([]Anomaly, error) {
	if !rec.HasPosition() {
		return nil, nil
	}
	lat, lon := *rec.Latitude, *rec.Longitude

	var out []Anomaly
	for _, zone := range d.cfg.ForbiddenZones {
		if zone.Contains(lat, lon) {
			out = append(out, Anomaly{
				Type:        TypeGeographicBoundary,
				Severity:    telemetry.SeverityHigh,
				Field:       telemetry.FieldLatitude,
				Description: fmt.Sprintf("position inside forbidden zone %q", zone.Name),
				Confidence:  0.9,
				Details:     &Details{Zone: zone.Name},
			})
		}
	}

	if rec.Airborne() {
		for _, zone := range d.cfg.OceanicZones {
			if zone.Contains(lat, lon) {
				out = append(out, Anomaly{
					Type:        TypeGeographicBoundary,
					Severity:    telemetry.SeverityLow,
					Field:       telemetry.FieldLatitude,
					Description: fmt.Sprintf("position over oceanic zone %q", zone.Name),
					Confidence:  0.3,
					Details:     &Details{Zone: zone.Name},
				})
			}
		}
	}

	return out, nil
}

func (d *Detector) checkPositionJump(rec *telemetry.Record) ([]Anomaly, error) {
	if !rec.HasPosition() {
		return nil, nil
	}
	now := d.now()
	recent := d.tracks.Recent(rec.EntityID, 1, now)
	if len(recent) == 0 {
		return nil, nil
	}

	last := recent[len(recent)-1]
	at := rec.ContactTime()
	if at.IsZero() {
		at = now
	}

	elapsed := at.Sub(last.At).Seconds()
	if elapsed <= 0 {
		// Zero or regressive timestamps carry no speed information.
		return nil, nil
	}

	distance := geo.Distance(last.Lat, last.Lon, *rec.Latitude, *rec.Longitude)
	speed := distance / elapsed
	if speed <= d.cfg.MaxJumpSpeedPerSec {
		return nil, nil
	}

	severity := telemetry.SeverityHigh
	confidence := 0.8
	if distance > 1000 {
		confidence = 1.0
	}
	if distance > d.cfg.TeleportDistanceKm {
		severity = telemetry.SeverityCritical
		confidence = 1.0
	}

	return []Anomaly{{
		Type:     TypePositionJump,
		Severity: severity,
		Field:    telemetry.FieldLatitude,
		Description: fmt.Sprintf("moved %.1f km in %.1f s (%.1f km/s)",
			distance, elapsed, speed),
		Value:      &distance,
		Confidence: confidence,
		Details: &Details{
			DistanceKm:     &distance,
			ElapsedSeconds: &elapsed,
			ImpliedSpeed:   &speed,
		},
	}}, nil
}

func (d *Detector) checkStuck(rec *telemetry.Record) ([]Anomaly, error) {
	if !rec.HasPosition() || !rec.Airborne() {
		return nil, nil
	}
	v := finite(rec.Velocity)
	if v == nil || *v >= d.cfg.StuckMaxVelocity {
		return nil, nil
	}

	recent := d.tracks.Recent(rec.EntityID, d.cfg.TrackMaxPoints, d.now())
	if len(recent) < d.cfg.StuckMinPoints {
		return nil, nil
	}

	for _, p := range recent {
		if geo.Distance(p.Lat, p.Lon, *rec.Latitude, *rec.Longitude) > d.cfg.StuckRadiusKm {
			return nil, nil
		}
	}

	span := recent[len(recent)-1].At.Sub(recent[0].At)
	if span <= d.cfg.StuckMinDuration {
		return nil, nil
	}

	return []Anomaly{{
		Type:     TypeStuckEntity,
		Severity: telemetry.SeverityMedium,
		Field:    telemetry.FieldLatitude,
		Description: fmt.Sprintf("airborne entity stationary within %.1f km for %.0f s",
			d.cfg.StuckRadiusKm, span.Seconds()),
		Confidence: 0.8,
		Details:    &Details{TrackPoints: len(recent)},
	}}, nil
}

func (d *Detector) checkTemporal(rec *telemetry.Record) ([]Anomaly, error) {
	now := d.now()

	var out []Anomaly
	check := func(field string, v *float64, at time.Time) {
		if finite(v) == nil || at.IsZero() {
			return
		}
		switch {
		case at.After(now.Add(d.cfg.MaxFutureTolerance)):
			ahead := at.Sub(now).Seconds()
			out = append(out, Anomaly{
				Type:        TypeTemporal,
				Severity:    telemetry.SeverityHigh,
				Field:       field,
				Description: fmt.Sprintf("%s is %.0f s in the future", field, ahead),
				Value:       v,
				Confidence:  1.0,
			})
		case now.Sub(at) > d.cfg.MaxRecordAge:
			age := now.Sub(at).Seconds()
			out = append(out, Anomaly{
				Type:        TypeTemporal,
				Severity:    telemetry.SeverityMedium,
				Field:       field,
				Description: fmt.Sprintf("%s is %.0f s old", field, age),
				Value:       v,
				Confidence:  0.7,
			})
		}
	}

	check(telemetry.FieldLastContact, rec.LastContact, rec.ContactTime())
	check(telemetry.FieldPositionTime, rec.PositionTime, rec.PositionFixTime())

	return out, nil
}

func (d *Detector) checkCorruption(rec *telemetry.Record) ([]Anomaly, error) {
	var out []Anomaly
	for _, nv := range rec.NumericFields() {
		switch {
		case math.IsNaN(nv.Value):
			out = append(out, Anomaly{
				Type:        TypeDataCorruption,
				Severity:    telemetry.SeverityHigh,
				Field:       nv.Field,
				Description: fmt.Sprintf("%s is NaN", nv.Field),
				Confidence:  1.0,
			})
		case math.IsInf(nv.Value, 0):
			v := nv.Value
			out = append(out, Anomaly{
				Type:        TypeDataCorruption,
				Severity:    telemetry.SeverityHigh,
				Field:       nv.Field,
				Description: fmt.Sprintf("%s is infinite", nv.Field),
				Value:       &v,
				Confidence:  1.0,
			})
		case math.Abs(nv.Value) > d.cfg.SanityCeiling:
			v := nv.Value
			out = append(out, Anomaly{
				Type:        TypeDataCorruption,
				Severity:    telemetry.SeverityMedium,
				Field:       nv.Field,
				Description: fmt.Sprintf("%s magnitude %.3g exceeds sanity ceiling", nv.Field, v),
				Value:       &v,
				Confidence:  0.9,
			})
		}
	}
	return out, nil
}

// updateTrack appends the record's position after all checks have read the
// cache.
func (d *Detector) updateTrack(rec *telemetry.Record) {
	if rec.EntityID == "" || !rec.HasPosition() {
		return
	}
	at := rec.ContactTime()
	if at.IsZero() {
		at = d.now()
	}
	d.tracks.Append(rec.EntityID, TrackPoint{
		Lat: *rec.Latitude,
		Lon: *rec.Longitude,
		At:  at,
	})
}

// refreshStats reseeds the rolling buffers from caller-supplied history, or
// folds in the live observation when no history was given.
func (d *Detector) refreshStats(rec *telemetry.Record, historical []*telemetry.Record) {
	if len(historical) > 0 {
		var altitudes, velocities []float64
		for _, h := range historical {
			if h == nil {
				continue
			}
			if v := finite(h.Altitude); v != nil {
				altitudes = append(altitudes, *v)
			}
			if v := finite(h.Velocity); v != nil {
				velocities = append(velocities, *v)
			}
		}
		d.stats.Seed(telemetry.FieldAltitude, altitudes)
		d.stats.Seed(telemetry.FieldVelocity, velocities)
		return
	}

	if v := finite(rec.Altitude); v != nil {
		d.stats.Observe(telemetry.FieldAltitude, *v)
	}
	if v := finite(rec.Velocity); v != nil {
		d.stats.Observe(telemetry.FieldVelocity, *v)
	}
}

// finite returns v when present and a real number, else nil.
func finite(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	return v
}
