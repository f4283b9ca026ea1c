package quality

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skywardops/telemetry-quality-engine/internal/domain/errors"
	"github.com/skywardops/telemetry-quality-engine/internal/domain/telemetry"
)

func newTestScorer(t *testing.T, at time.Time) *Scorer {
	t.Helper()
	s, err := NewScorer(DefaultConfig())
	require.NoError(t, err)
	s.now = func() time.Time { return at }
	return s
}

func goodRecord(contact float64) *telemetry.Record {
	return &telemetry.Record{
		EntityID:    "abc123",
		Latitude:    telemetry.Float(40.64),
		Longitude:   telemetry.Float(-73.77),
		Altitude:    telemetry.Float(45000),
		Velocity:    telemetry.Float(430),
		OnGround:    telemetry.Bool(false),
		LastContact: telemetry.Float(contact),
	}
}

func TestNewScorer_RejectsBadWeights(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CompletenessWeight = 0.50

	_, err := NewScorer(cfg)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestScore_WellFormedRecord(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := newTestScorer(t, now)

	score := s.Score(goodRecord(float64(now.Unix())), nil)

	assert.InDelta(t, 1.0, score.Validity, 1e-9)
	assert.InDelta(t, 1.0, score.Consistency, 1e-9)
	assert.InDelta(t, 1.0, score.Timeliness, 1e-9)
	assert.InDelta(t, 7.0/9.0, score.Completeness, 1e-9)
	assert.GreaterOrEqual(t, score.Overall, 0.85)
	assert.Equal(t, GradeA, score.Grade)
	assert.False(t, score.ShouldQuarantine)
}

func TestScore_AlwaysInUnitInterval(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := newTestScorer(t, now)

	records := []*telemetry.Record{
		nil,
		{},
		{EntityID: "ZZZZ"},
		{
			EntityID:  "abc123",
			Latitude:  telemetry.Float(200),
			Longitude: telemetry.Float(-500),
			Altitude:  telemetry.Float(math.NaN()),
			Velocity:  telemetry.Float(math.Inf(1)),
		},
		goodRecord(float64(now.Unix()) - 86400*30),
	}

	for _, rec := range records {
		score := s.Score(rec, nil)
		assert.GreaterOrEqual(t, score.Overall, 0.0)
		assert.LessOrEqual(t, score.Overall, 1.0)
		for _, dim := range []float64{score.Completeness, score.Validity, score.Consistency, score.Timeliness} {
			assert.GreaterOrEqual(t, dim, 0.0)
			assert.LessOrEqual(t, dim, 1.0)
		}
	}
}

func TestScore_MissingCriticalFieldQuarantines(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := newTestScorer(t, now)

	rec := goodRecord(float64(now.Unix()))
	rec.Latitude = nil

	score := s.Score(rec, nil)

	require.Greater(t, score.CriticalIssueCount(), 0)
	assert.True(t, score.ShouldQuarantine)

	var found bool
	for _, issue := range score.Issues {
		if issue.Type == IssueMissingCriticalField && issue.Field == telemetry.FieldLatitude {
			found = true
			assert.Equal(t, telemetry.SeverityCritical, issue.Severity)
		}
	}
	assert.True(t, found)
}

func TestScore_NilRecord(t *testing.T) {
	s := newTestScorer(t, time.Unix(1_700_000_000, 0))

	score := s.Score(nil, nil)

	assert.Zero(t, score.Overall)
	assert.Equal(t, GradeF, score.Grade)
	assert.True(t, score.ShouldQuarantine)
	require.Len(t, score.Issues, 1)
	assert.Equal(t, IssueNullRecord, score.Issues[0].Type)
}

func TestScore_IdempotentUnderFixedClock(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := newTestScorer(t, now)

	rec := goodRecord(float64(now.Unix()) - 45)
	rec.VerticalRate = telemetry.Float(12)

	first := s.Score(rec, nil)
	second := s.Score(rec, nil)

	assert.Equal(t, first, second)
}

func TestScore_PositionJump(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := newTestScorer(t, now)

	prev := goodRecord(float64(now.Unix()) - 10)
	rec := goodRecord(float64(now.Unix()))
	rec.Latitude = telemetry.Float(51.47)
	rec.Longitude = telemetry.Float(-0.45)

	score := s.Score(rec, prev)

	var found bool
	for _, issue := range score.Issues {
		if issue.Type == IssueImpossiblePositionJump {
			found = true
			assert.Equal(t, telemetry.SeverityHigh, issue.Severity)
		}
	}
	assert.True(t, found)
	assert.Less(t, score.Consistency, 1.0)
}

func TestScore_ZeroElapsedJumpNotFlagged(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := newTestScorer(t, now)

	contact := float64(now.Unix())
	prev := goodRecord(contact)
	rec := goodRecord(contact)
	rec.Latitude = telemetry.Float(51.47)
	rec.Longitude = telemetry.Float(-0.45)

	score := s.Score(rec, prev)

	for _, issue := range score.Issues {
		assert.NotEqual(t, IssueImpossiblePositionJump, issue.Type)
	}
}

func TestScore_StuckPosition(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := newTestScorer(t, now)

	prev := goodRecord(float64(now.Unix()) - 600)
	rec := goodRecord(float64(now.Unix()))
	rec.Velocity = telemetry.Float(2)

	score := s.Score(rec, prev)

	count := 0
	for _, issue := range score.Issues {
		if issue.Type == IssueStuckPosition {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestScore_StuckSkippedOnGround(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := newTestScorer(t, now)

	prev := goodRecord(float64(now.Unix()) - 600)
	rec := goodRecord(float64(now.Unix()))
	rec.Velocity = telemetry.Float(0)
	rec.Altitude = telemetry.Float(0)
	rec.OnGround = telemetry.Bool(true)
	prev.OnGround = telemetry.Bool(true)

	score := s.Score(rec, prev)

	for _, issue := range score.Issues {
		assert.NotEqual(t, IssueStuckPosition, issue.Type)
	}
}

func TestScore_GroundStateConflict(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := newTestScorer(t, now)

	rec := goodRecord(float64(now.Unix()))
	rec.OnGround = telemetry.Bool(true)

	score := s.Score(rec, nil)

	var found bool
	for _, issue := range score.Issues {
		if issue.Type == IssueGroundStateConflict {
			found = true
		}
	}
	assert.True(t, found)
}

func TestScore_Stats(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := newTestScorer(t, now)

	s.Score(goodRecord(float64(now.Unix())), nil)
	s.Score(nil, nil)

	stats := s.Stats()
	assert.Equal(t, int64(2), stats.RecordsProcessed)
	assert.Equal(t, int64(1), stats.RecordsQuarantined)
	assert.Equal(t, int64(1), stats.IssuesByType[IssueNullRecord])
	assert.Greater(t, stats.MeanScore(), 0.0)
}

func TestGrades(t *testing.T) {
	s := newTestScorer(t, time.Unix(1_700_000_000, 0))

	tests := []struct {
		overall float64
		want    Grade
	}{
		{0.95, GradeA},
		{0.90, GradeA},
		{0.85, GradeB},
		{0.75, GradeC},
		{0.65, GradeD},
		{0.40, GradeF},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, s.grade(tt.overall), "overall=%v", tt.overall)
	}
}

func TestFreshnessScore(t *testing.T) {
	cfg := DefaultConfig()

	assert.InDelta(t, 1.0, freshnessScore(5*time.Second, cfg), 1e-9)
	assert.InDelta(t, 1.0, freshnessScore(-3*time.Second, cfg), 1e-9)
	assert.InDelta(t, 0.9, freshnessScore(35*time.Second, cfg), 1e-9)
	assert.InDelta(t, 0.8, freshnessScore(60*time.Second, cfg), 1e-9)
	assert.InDelta(t, 0.5, freshnessScore(5*time.Minute, cfg), 1e-9)
	assert.InDelta(t, 0.2, freshnessScore(time.Hour, cfg), 1e-9)
}

func TestScore_StaleRecordIssue(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := newTestScorer(t, now)

	rec := goodRecord(float64(now.Unix()) - 3600)

	score := s.Score(rec, nil)

	var found bool
	for _, issue := range score.Issues {
		if issue.Type == IssueStaleTimestamp {
			found = true
			assert.Equal(t, telemetry.SeverityHigh, issue.Severity)
		}
	}
	assert.True(t, found)
	assert.InDelta(t, 0.2, score.Timeliness, 1e-9)
}

func TestScore_NonNumericContactTimestamp(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := newTestScorer(t, now)

	rec := goodRecord(math.NaN())

	score := s.Score(rec, nil)

	assert.Zero(t, score.Timeliness)

	var found bool
	for _, issue := range score.Issues {
		switch issue.Type {
		case IssueNonNumericTimestamp:
			found = true
			assert.Equal(t, telemetry.SeverityHigh, issue.Severity)
			assert.Equal(t, telemetry.FieldLastContact, issue.Field)
		case IssueStaleTimestamp:
			t.Errorf("NaN timestamp must not be aged into a stale issue")
		}
	}
	assert.True(t, found)
}

func TestScore_NonNumericPositionTimestamp(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := newTestScorer(t, now)

	rec := goodRecord(float64(now.Unix()))
	rec.PositionTime = telemetry.Float(math.Inf(1))

	score := s.Score(rec, nil)

	assert.Zero(t, score.Timeliness)

	var found bool
	for _, issue := range score.Issues {
		if issue.Type == IssueNonNumericTimestamp {
			found = true
			assert.Equal(t, telemetry.SeverityHigh, issue.Severity)
			assert.Equal(t, telemetry.FieldPositionTime, issue.Field)
		}
	}
	assert.True(t, found)
}

func TestScore_OutOfRangeValue(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := newTestScorer(t, now)

	rec := goodRecord(float64(now.Unix()))
	rec.Altitude = telemetry.Float(95000)

	score := s.Score(rec, nil)

	var found bool
	for _, issue := range score.Issues {
		if issue.Type == IssueValueOutOfRange && issue.Field == telemetry.FieldAltitude {
			found = true
			require.NotNil(t, issue.Expected)
			assert.Equal(t, telemetry.Range{Min: -1500, Max: 60000}, *issue.Expected)
		}
	}
	assert.True(t, found)
	assert.Less(t, score.Validity, 1.0)
}

func TestScore_MalformedEntityID(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := newTestScorer(t, now)

	rec := goodRecord(float64(now.Unix()))
	rec.EntityID = "ABC123"

	score := s.Score(rec, nil)

	var found bool
	for _, issue := range score.Issues {
		if issue.Type == IssueMalformedEntityID {
			found = true
			assert.Equal(t, telemetry.SeverityMedium, issue.Severity)
		}
	}
	assert.True(t, found)
}

func TestRecommendations_DeterministicOrder(t *testing.T) {
	issues := []Issue{
		{Type: IssueStaleTimestamp},
		{Type: IssueMissingCriticalField},
		{Type: IssueStaleTimestamp},
	}

	got := recommendations(issues)

	require.Len(t, got, 2)
	assert.Equal(t, recommendationText[IssueMissingCriticalField], got[0])
	assert.Equal(t, recommendationText[IssueStaleTimestamp], got[1])
}
