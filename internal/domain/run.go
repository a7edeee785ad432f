package domain

import (
	"time"

	"github.com/google/uuid"
)

// ScorecardRow summarises data quality for one entity.
type ScorecardRow struct {
	Entity       EntityName `json:"entity"`
	Label        string     `json:"label"`
	TotalRecords int        `json:"total_records"`
	CleanRecords int        `json:"clean_records"`
	IssueCount   int        `json:"issue_count"`
	QualityScore float64    `json:"quality_score_percent"`
}

// SeverityCount is the number of ledger rows at one severity.
type SeverityCount struct {
	Severity Severity `json:"severity"`
	Count    int      `json:"count"`
}

// IssueTypeCount is the number of ledger rows for one entity and issue code.
type IssueTypeCount struct {
	Entity   EntityName `json:"entity"`
	Code     IssueCode  `json:"issue_code"`
	Severity Severity   `json:"severity"`
	Count    int        `json:"count"`
}

// Summary aggregates the emitted ledger for human review.
type Summary struct {
	TotalIssues   int              `json:"total_issues"`
	BySeverity    []SeverityCount  `json:"by_severity"`
	ByType        []IssueTypeCount `json:"by_type"`
	TopMismatches []Issue          `json:"top_status_mismatches"`
}

// Run is the complete result of one validation pass.
type Run struct {
	ID         uuid.UUID      `json:"id"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	AsOf       time.Time      `json:"as_of"`
	Issues     IssueSet       `json:"-"`
	Ledger     Ledger         `json:"-"`
	Scorecard  []ScorecardRow `json:"scorecard"`
	Summary    Summary        `json:"summary"`
}

// RunRecord is the persisted header of a run.
type RunRecord struct {
	ID          uuid.UUID
	StartedAt   time.Time
	FinishedAt  time.Time
	AsOf        time.Time
	MinSeverity Severity
	IssueCount  int
	LedgerCount int
}
