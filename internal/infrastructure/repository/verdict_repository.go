package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skywardops/telemetry-quality-engine/internal/domain/anomaly"
	"github.com/skywardops/telemetry-quality-engine/internal/domain/telemetry"
	"github.com/skywardops/telemetry-quality-engine/internal/service/validation"
)

// VerdictRepository persists verdicts in Postgres. The score, anomalies, and
// the judged record are stored as JSONB alongside the queryable columns, so
// the same table serves review queries and history seeding.
type VerdictRepository struct {
	pool *pgxpool.Pool
}

// NewVerdictRepository wraps pool.
func NewVerdictRepository(pool *pgxpool.Pool) *VerdictRepository {
	return &VerdictRepository{pool: pool}
}

// Save stores one verdict.
func (r *VerdictRepository) Save(ctx context.Context, verdict *validation.Verdict) error {
	score, err := json.Marshal(verdict.Score)
	if err != nil {
		return fmt.Errorf("marshal score: %w", err)
	}
	anomalies, err := json.Marshal(verdict.Anomalies)
	if err != nil {
		return fmt.Errorf("marshal anomalies: %w", err)
	}
	var record []byte
	if verdict.Record != nil {
		record, err = json.Marshal(verdict.Record)
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO verdicts (
			id, entity_id, received_at, overall_score, grade,
			quarantined, anomaly_count, score, anomalies, record
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		verdict.ID,
		verdict.EntityID,
		verdict.ReceivedAt,
		verdict.Score.Overall,
		verdict.Score.Grade.String(),
		verdict.Score.ShouldQuarantine,
		len(verdict.Anomalies),
		score,
		anomalies,
		record,
	)
	if err != nil {
		return fmt.Errorf("insert verdict: %w", err)
	}
	return nil
}

// ListRecent returns the most recent verdicts for an entity, newest first.
func (r *VerdictRepository) ListRecent(ctx context.Context, entityID string, limit int) ([]*validation.Verdict, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, entity_id, received_at, score, anomalies, record
		FROM verdicts
		WHERE entity_id = $1
		ORDER BY received_at DESC
		LIMIT $2`,
		entityID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query verdicts: %w", err)
	}
	defer rows.Close()

	var out []*validation.Verdict
	for rows.Next() {
		var v validation.Verdict
		var score, anomalies, record []byte
		if err := rows.Scan(&v.ID, &v.EntityID, &v.ReceivedAt, &score, &anomalies, &record); err != nil {
			return nil, fmt.Errorf("scan verdict: %w", err)
		}
		if err := decodeVerdict(&v, score, anomalies, record); err != nil {
			return nil, err
		}
		out = append(out, &v)
	}
	return out, rows.Err()
}

// RecentRecords returns the records behind the entity's most recent verdicts,
// oldest first, for seeding statistical baselines.
func (r *VerdictRepository) RecentRecords(ctx context.Context, entityID string, limit int) ([]*telemetry.Record, error) {
	verdicts, err := r.ListRecent(ctx, entityID, limit)
	if err != nil {
		return nil, err
	}
	return recordsOldestFirst(verdicts), nil
}

// decodeVerdict fills v's JSONB-backed fields from their raw column bytes.
func decodeVerdict(v *validation.Verdict, score, anomalies, record []byte) error {
	if err := json.Unmarshal(score, &v.Score); err != nil {
		return fmt.Errorf("unmarshal score: %w", err)
	}
	if len(anomalies) > 0 {
		var list []anomaly.Anomaly
		if err := json.Unmarshal(anomalies, &list); err != nil {
			return fmt.Errorf("unmarshal anomalies: %w", err)
		}
		v.Anomalies = list
	}
	if len(record) > 0 {
		var rec telemetry.Record
		if err := json.Unmarshal(record, &rec); err != nil {
			return fmt.Errorf("unmarshal record: %w", err)
		}
		v.Record = &rec
	}
	return nil
}

// recordsOldestFirst reverses a newest-first verdict list into the
// oldest-first record order baseline seeding expects, skipping verdicts that
// were stored without a record.
func recordsOldestFirst(verdicts []*validation.Verdict) []*telemetry.Record {
	records := make([]*telemetry.Record, 0, len(verdicts))
	for i := len(verdicts) - 1; i >= 0; i-- {
		if verdicts[i].Record != nil {
			records = append(records, verdicts[i].Record)
		}
	}
	return records
}

// QuarantineRate returns the fraction of quarantined verdicts over the most
// recent n verdicts across all entities.
func (r *VerdictRepository) QuarantineRate(ctx context.Context, n int) (float64, error) {
	var total, quarantined int64
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE quarantined)
		FROM (
			SELECT quarantined FROM verdicts
			ORDER BY received_at DESC
			LIMIT $1
		) recent`,
		n,
	).Scan(&total, &quarantined)
	if err != nil {
		return 0, fmt.Errorf("query quarantine rate: %w", err)
	}
	if total == 0 {
		return 0, nil
	}
	return float64(quarantined) / float64(total), nil
}

var _ validation.VerdictRepository = (*VerdictRepository)(nil)
var _ validation.HistoryProvider = (*VerdictRepository)(nil)
