package validation

import (
	"context"

	"github.com/skywardops/telemetry-quality-engine/internal/domain/quality"
	"github.com/skywardops/telemetry-quality-engine/internal/domain/telemetry"
)

// Service validates telemetry records against the quality scorer and anomaly
// detector and produces one Verdict per record.
type Service interface {
	// Validate scores rec and runs anomaly detection against it
	Validate(ctx context.Context, rec *telemetry.Record) (*Verdict, error)
	// Stats returns the scorer's running counters
	Stats() quality.RunStats
}

// RecordSource supplies records in per-entity arrival order.
type RecordSource interface {
	// Records returns the stream; the source closes the channel when
	// exhausted or when ctx is done
	Records(ctx context.Context) <-chan *telemetry.Record
}

// HistoryProvider supplies recent records for an entity, used only to seed
// the detector's rolling statistics.
type HistoryProvider interface {
	RecentRecords(ctx context.Context, entityID string, limit int) ([]*telemetry.Record, error)
}

// QuarantineHandler receives verdicts whose records must be withheld from
// downstream consumption.
type QuarantineHandler interface {
	Quarantine(ctx context.Context, verdict *Verdict) error
}

// VerdictRepository persists verdicts.
type VerdictRepository interface {
	Save(ctx context.Context, verdict *Verdict) error
	ListRecent(ctx context.Context, entityID string, limit int) ([]*Verdict, error)
}
