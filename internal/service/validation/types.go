package validation

import (
	"time"

	"github.com/google/uuid"

	"github.com/skywardops/telemetry-quality-engine/internal/domain/anomaly"
	"github.com/skywardops/telemetry-quality-engine/internal/domain/quality"
	"github.com/skywardops/telemetry-quality-engine/internal/domain/telemetry"
)

// Verdict is the combined outcome of validating one record. It carries the
// record itself so reviewers and the history provider can reconstruct what
// was judged.
type Verdict struct {
	ID         uuid.UUID         `json:"id"`
	EntityID   string            `json:"entity_id"`
	ReceivedAt time.Time         `json:"received_at"`
	Record     *telemetry.Record `json:"record,omitempty"`
	Score      quality.Score     `json:"score"`
	Anomalies  []anomaly.Anomaly `json:"anomalies,omitempty"`
}

// Quarantined reports whether the record behind this verdict must be withheld.
func (v *Verdict) Quarantined() bool {
	return v.Score.ShouldQuarantine
}

// HistorySeedLimit is how many recent records the service requests from the
// HistoryProvider when it first sees an entity.
const HistorySeedLimit = 20

// previousRecords remembers the last record per entity with bounded memory.
// Two generations rotate: lookups consult both, inserts go to the current one,
// and a full current generation replaces the previous wholesale. Not safe for
// concurrent use across entities owned by different workers; the pipeline
// shards by entity so each worker touches disjoint keys, and the service
// guards the maps with a mutex for the single-caller case.
type previousRecords struct {
	limit   int
	current map[string]*telemetry.Record
	older   map[string]*telemetry.Record
}

func newPreviousRecords(limit int) *previousRecords {
	if limit < 1 {
		limit = 1
	}
	return &previousRecords{
		limit:   limit,
		current: make(map[string]*telemetry.Record),
	}
}

func (p *previousRecords) get(entityID string) *telemetry.Record {
	if rec, ok := p.current[entityID]; ok {
		return rec
	}
	return p.older[entityID]
}

func (p *previousRecords) put(entityID string, rec *telemetry.Record) {
	if len(p.current) >= p.limit {
		p.older = p.current
		p.current = make(map[string]*telemetry.Record)
	}
	p.current[entityID] = rec
}
