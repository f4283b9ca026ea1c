package quality

import "github.com/skywardops/telemetry-quality-engine/internal/domain/telemetry"

// Grade is the letter grade derived from the overall score.
type Grade int

const (
	GradeA Grade = iota
	GradeB
	GradeC
	GradeD
	GradeF
)

func (g Grade) String() string {
	switch g {
	case GradeA:
		return "A"
	case GradeB:
		return "B"
	case GradeC:
		return "C"
	case GradeD:
		return "D"
	case GradeF:
		return "F"
	default:
		return "?"
	}
}

// Score is the result of scoring one record. Overall is always the weighted
// sum of the four dimension scores under the scorer's configuration.
type Score struct {
	Overall      float64 `json:"overall"`
	Completeness float64 `json:"completeness"`
	Validity     float64 `json:"validity"`
	Consistency  float64 `json:"consistency"`
	Timeliness   float64 `json:"timeliness"`

	FieldsExamined   int      `json:"fields_examined"`
	Issues           []Issue  `json:"issues"`
	Grade            Grade    `json:"grade"`
	Recommendations  []string `json:"recommendations,omitempty"`
	ShouldQuarantine bool     `json:"should_quarantine"`
}

// CriticalIssueCount returns how many issues carry critical severity.
func (s *Score) CriticalIssueCount() int {
	n := 0
	for _, issue := range s.Issues {
		if issue.Severity == telemetry.SeverityCritical {
			n++
		}
	}
	return n
}
