package quality

import (
	"sync"
	"time"

	"github.com/skywardops/telemetry-quality-engine/internal/domain/telemetry"
)

// Scorer assesses records across the four quality dimensions and produces a
// weighted overall score. A Scorer is safe for concurrent use.
type Scorer struct {
	cfg Config
	now func() time.Time

	mu    sync.Mutex
	stats RunStats
}

// RunStats accumulates counters across every record a Scorer has seen.
type RunStats struct {
	RecordsProcessed   int64
	RecordsQuarantined int64
	ScoreSum           float64
	IssuesByType       map[IssueType]int64
	IssuesBySeverity   map[telemetry.Severity]int64
}

// MeanScore returns the running average overall score, or 0 before the first
// record.
func (s RunStats) MeanScore() float64 {
	if s.RecordsProcessed == 0 {
		return 0
	}
	return s.ScoreSum / float64(s.RecordsProcessed)
}

// NewScorer validates cfg and returns a scorer bound to it.
func NewScorer(cfg Config) (*Scorer, error) {
	validated, err := NewConfig(cfg)
	if err != nil {
		return nil, err
	}
	return &Scorer{
		cfg: validated,
		now: time.Now,
		stats: RunStats{
			IssuesByType:     make(map[IssueType]int64),
			IssuesBySeverity: make(map[telemetry.Severity]int64),
		},
	}, nil
}

// Config returns the scorer's validated configuration.
func (s *Scorer) Config() Config { return s.cfg }

// Score assesses rec against the four dimensions. prev is the previous record
// for the same entity, or nil when none is known; it feeds the cross-record
// consistency checks only. Scoring is pure in its inputs plus the clock.
func (s *Scorer) Score(rec, prev *telemetry.Record) Score {
	if rec == nil {
		score := Score{
			Grade:            GradeF,
			ShouldQuarantine: true,
			Issues: []Issue{{
				Dimension:   DimensionCompleteness,
				Severity:    telemetry.SeverityCritical,
				Type:        IssueNullRecord,
				Description: "record is null",
			}},
			Recommendations: []string{"drop the record; there is nothing to assess"},
		}
		s.record(score)
		return score
	}

	completeness, completenessIssues, examined := assessCompleteness(rec, s.cfg)
	validity, validityIssues := assessValidity(rec, s.cfg)
	consistency, consistencyIssues := assessConsistency(rec, prev, s.cfg)
	timeliness, timelinessIssues := assessTimeliness(rec, s.now(), s.cfg)

	issues := make([]Issue, 0,
		len(completenessIssues)+len(validityIssues)+len(consistencyIssues)+len(timelinessIssues))
	issues = append(issues, completenessIssues...)
	issues = append(issues, validityIssues...)
	issues = append(issues, consistencyIssues...)
	issues = append(issues, timelinessIssues...)

	overall := s.cfg.CompletenessWeight*completeness +
		s.cfg.ValidityWeight*validity +
		s.cfg.ConsistencyWeight*consistency +
		s.cfg.TimelinessWeight*timeliness

	score := Score{
		Overall:         overall,
		Completeness:    completeness,
		Validity:        validity,
		Consistency:     consistency,
		Timeliness:      timeliness,
		FieldsExamined:  examined,
		Issues:          issues,
		Grade:           s.grade(overall),
		Recommendations: recommendations(issues),
	}
	score.ShouldQuarantine = overall < s.cfg.QuarantineThreshold ||
		(s.cfg.QuarantineOnCriticalIssue && score.CriticalIssueCount() > 0)

	s.record(score)
	return score
}

// Stats returns a snapshot of the run counters.
func (s *Scorer) Stats() RunStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.stats
	snap.IssuesByType = make(map[IssueType]int64, len(s.stats.IssuesByType))
	for k, v := range s.stats.IssuesByType {
		snap.IssuesByType[k] = v
	}
	snap.IssuesBySeverity = make(map[telemetry.Severity]int64, len(s.stats.IssuesBySeverity))
	for k, v := range s.stats.IssuesBySeverity {
		snap.IssuesBySeverity[k] = v
	}
	return snap
}

func (s *Scorer) record(score Score) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.RecordsProcessed++
	s.stats.ScoreSum += score.Overall
	if score.ShouldQuarantine {
		s.stats.RecordsQuarantined++
	}
	for _, issue := range score.Issues {
		s.stats.IssuesByType[issue.Type]++
		s.stats.IssuesBySeverity[issue.Severity]++
	}
}

func (s *Scorer) grade(overall float64) Grade {
	switch {
	case overall >= s.cfg.GradeExcellent:
		return GradeA
	case overall >= s.cfg.GradeGood:
		return GradeB
	case overall >= s.cfg.GradeAcceptable:
		return GradeC
	case overall >= s.cfg.GradePoor:
		return GradeD
	default:
		return GradeF
	}
}

// recommendationOrder fixes the emission order so identical issue sets always
// produce identical recommendation lists.
var recommendationOrder = []IssueType{
	IssueMissingCriticalField,
	IssueMissingImportantField,
	IssueNonNumericValue,
	IssueNonFiniteValue,
	IssueValueOutOfRange,
	IssueMalformedEntityID,
	IssueSpeedAltitudeMismatch,
	IssueImpossiblePositionJump,
	IssueStuckPosition,
	IssueGroundStateConflict,
	IssueStaleTimestamp,
	IssueMissingTimestamp,
	IssueNonNumericTimestamp,
}

var recommendationText = map[IssueType]string{
	IssueMissingCriticalField:   "verify sensor coverage; critical fields are absent",
	IssueMissingImportantField:  "check upstream decoding; important fields are absent",
	IssueNonNumericValue:        "reject upstream NaN values before ingestion",
	IssueNonFiniteValue:         "reject upstream infinite values before ingestion",
	IssueValueOutOfRange:        "review sensor calibration; values fall outside plausible ranges",
	IssueMalformedEntityID:      "normalize entity identifiers to lowercase hex at ingestion",
	IssueSpeedAltitudeMismatch:  "cross-check velocity against altitude for this entity",
	IssueImpossiblePositionJump: "investigate position source; movement is physically impossible",
	IssueStuckPosition:          "check for a stale cached position being re-reported",
	IssueGroundStateConflict:    "verify the on-ground flag against altitude and velocity",
	IssueStaleTimestamp:         "reduce ingestion latency or drop aged records",
	IssueMissingTimestamp:       "require a contact timestamp on every record",
	IssueNonNumericTimestamp:    "reject NaN and infinite timestamps before ingestion",
}

func recommendations(issues []Issue) []string {
	if len(issues) == 0 {
		return nil
	}
	seen := make(map[IssueType]bool, len(issues))
	for _, issue := range issues {
		seen[issue.Type] = true
	}
	var out []string
	for _, t := range recommendationOrder {
		if seen[t] {
			out = append(out, recommendationText[t])
		}
	}
	return out
}
