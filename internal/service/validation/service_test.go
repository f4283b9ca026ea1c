package validation

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skywardops/telemetry-quality-engine/internal/domain/anomaly"
	"github.com/skywardops/telemetry-quality-engine/internal/domain/quality"
	"github.com/skywardops/telemetry-quality-engine/internal/domain/telemetry"
)

type memoryRepo struct {
	mu       sync.Mutex
	verdicts []*Verdict
	saveErr  error
}

func (r *memoryRepo) Save(_ context.Context, v *Verdict) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.verdicts = append(r.verdicts, v)
	return nil
}

func (r *memoryRepo) ListRecent(_ context.Context, entityID string, limit int) ([]*Verdict, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Verdict
	for i := len(r.verdicts) - 1; i >= 0 && len(out) < limit; i-- {
		if r.verdicts[i].EntityID == entityID {
			out = append(out, r.verdicts[i])
		}
	}
	return out, nil
}

func (r *memoryRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.verdicts)
}

type memoryQuarantine struct {
	mu       sync.Mutex
	verdicts []*Verdict
}

func (q *memoryQuarantine) Quarantine(_ context.Context, v *Verdict) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.verdicts = append(q.verdicts, v)
	return nil
}

func (q *memoryQuarantine) count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.verdicts)
}

type stubHistory struct {
	mu      sync.Mutex
	calls   int
	records []*telemetry.Record
}

func (h *stubHistory) RecentRecords(_ context.Context, _ string, _ int) ([]*telemetry.Record, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls++
	return h.records, nil
}

func newTestService(t *testing.T, opts Options) Service {
	t.Helper()
	scorer, err := quality.NewScorer(quality.DefaultConfig())
	require.NoError(t, err)
	detector, err := anomaly.NewDetector(anomaly.DefaultConfig())
	require.NoError(t, err)
	return NewService(scorer, detector, opts)
}

func freshRecord(entityID string) *telemetry.Record {
	return &telemetry.Record{
		EntityID:    entityID,
		Latitude:    telemetry.Float(40.64),
		Longitude:   telemetry.Float(-73.77),
		Altitude:    telemetry.Float(45000),
		Velocity:    telemetry.Float(430),
		OnGround:    telemetry.Bool(false),
		LastContact: telemetry.Float(float64(time.Now().Unix())),
	}
}

func TestValidate_CleanRecord(t *testing.T) {
	repo := &memoryRepo{}
	quarantine := &memoryQuarantine{}
	svc := newTestService(t, Options{Repository: repo, Quarantine: quarantine})

	verdict, err := svc.Validate(context.Background(), freshRecord("abc123"))
	require.NoError(t, err)

	assert.Equal(t, "abc123", verdict.EntityID)
	assert.False(t, verdict.Quarantined())
	assert.GreaterOrEqual(t, verdict.Score.Overall, 0.85)
	assert.Empty(t, verdict.Anomalies)
	assert.Equal(t, 1, repo.count())
	assert.Zero(t, quarantine.count())
}

func TestValidate_QuarantinesBadRecord(t *testing.T) {
	repo := &memoryRepo{}
	quarantine := &memoryQuarantine{}
	svc := newTestService(t, Options{Repository: repo, Quarantine: quarantine})

	rec := freshRecord("abc123")
	rec.Latitude = nil

	verdict, err := svc.Validate(context.Background(), rec)
	require.NoError(t, err)

	assert.True(t, verdict.Quarantined())
	assert.Equal(t, 1, quarantine.count())
	assert.Equal(t, 1, repo.count())
}

func TestValidate_NilRecord(t *testing.T) {
	svc := newTestService(t, Options{})

	verdict, err := svc.Validate(context.Background(), nil)
	require.NoError(t, err)

	assert.True(t, verdict.Quarantined())
	assert.Empty(t, verdict.EntityID)
	require.Len(t, verdict.Anomalies, 1)
	assert.Equal(t, anomaly.TypeDataCorruption, verdict.Anomalies[0].Type)
}

func TestValidate_SaveFailureSurfaces(t *testing.T) {
	repo := &memoryRepo{saveErr: fmt.Errorf("connection refused")}
	svc := newTestService(t, Options{Repository: repo})

	verdict, err := svc.Validate(context.Background(), freshRecord("abc123"))

	require.Error(t, err)
	require.NotNil(t, verdict)
	assert.False(t, verdict.Quarantined())
}

func TestValidate_PreviousRecordFeedsConsistency(t *testing.T) {
	svc := newTestService(t, Options{})
	ctx := context.Background()

	first := freshRecord("abc123")
	_, err := svc.Validate(ctx, first)
	require.NoError(t, err)

	// Same entity roughly 600 km away one second later.
	second := freshRecord("abc123")
	second.Latitude = telemetry.Float(46.04)
	second.LastContact = telemetry.Float(*first.LastContact + 1)

	verdict, err := svc.Validate(ctx, second)
	require.NoError(t, err)

	var jumpIssue bool
	for _, issue := range verdict.Score.Issues {
		if issue.Type == quality.IssueImpossiblePositionJump {
			jumpIssue = true
		}
	}
	assert.True(t, jumpIssue)

	var jumpAnomaly bool
	for _, a := range verdict.Anomalies {
		if a.Type == anomaly.TypePositionJump {
			jumpAnomaly = true
			assert.Equal(t, telemetry.SeverityCritical, a.Severity)
		}
	}
	assert.True(t, jumpAnomaly)
}

func TestValidate_HistorySeededOncePerEntity(t *testing.T) {
	history := &stubHistory{}
	svc := newTestService(t, Options{History: history})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Validate(ctx, freshRecord("abc123"))
		require.NoError(t, err)
	}
	_, err := svc.Validate(ctx, freshRecord("def456"))
	require.NoError(t, err)

	assert.Equal(t, 2, history.calls)
}

func TestStats_Accumulate(t *testing.T) {
	svc := newTestService(t, Options{})
	ctx := context.Background()

	_, err := svc.Validate(ctx, freshRecord("abc123"))
	require.NoError(t, err)
	_, err = svc.Validate(ctx, nil)
	require.NoError(t, err)

	stats := svc.Stats()
	assert.Equal(t, int64(2), stats.RecordsProcessed)
	assert.Equal(t, int64(1), stats.RecordsQuarantined)
}
