package domain

import (
	"fmt"
	"strings"
)

// Severity ranks how badly an issue affects financial correctness.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityCritical
)

// Severities lists all severities from most to least severe.
func Severities() []Severity {
	return []Severity{SeverityCritical, SeverityWarning, SeverityInfo}
}

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "Info"
	case SeverityWarning:
		return "Warning"
	case SeverityCritical:
		return "Critical"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// MarshalText encodes the severity by name.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a severity name.
func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSeverity accepts Info, Warning or Critical case-insensitively.
func ParseSeverity(raw string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "info":
		return SeverityInfo, nil
	case "warning":
		return SeverityWarning, nil
	case "critical":
		return SeverityCritical, nil
	default:
		return SeverityInfo, fmt.Errorf("unknown severity %q", raw)
	}
}

// IssueCode identifies the check that produced an issue.
type IssueCode string

const (
	IssueOrphanedReference     IssueCode = "orphaned_reference"
	IssueDuplicateID           IssueCode = "duplicate_id"
	IssueInvalidValue          IssueCode = "invalid_value"
	IssueCreditLimitExceeded   IssueCode = "credit_limit_exceeded"
	IssueArithmeticError       IssueCode = "arithmetic_error"
	IssueLeadBeforeSignup      IssueCode = "lead_before_signup"
	IssueCreditBeforeSignup    IssueCode = "credit_before_signup"
	IssueDueBeforeIssue        IssueCode = "due_before_issue"
	IssueWalletInvoiceMismatch IssueCode = "wallet_invoice_mismatch"
	IssueAmountOutlier         IssueCode = "amount_outlier"
	IssueFeeRatioOutlier       IssueCode = "fee_ratio_outlier"
	IssueNoLeadsActiveCredit   IssueCode = "no_leads_active_credit"
	IssueConversionExtreme     IssueCode = "conversion_extreme"
	IssueStatusMismatch        IssueCode = "status_mismatch"
)

// Issue is one detected data-quality problem on one record.
type Issue struct {
	Entity      EntityName `json:"entity"`
	RecordID    string     `json:"record_id"`
	Code        IssueCode  `json:"issue_code"`
	Severity    Severity   `json:"severity"`
	Description string     `json:"description"`
}

// IssueSet is the complete, unfiltered collection of issues from a run. It is
// the only input the scorer accepts.
type IssueSet struct {
	issues []Issue
}

// NewIssueSet concatenates issue groups in the given order.
func NewIssueSet(groups ...[]Issue) IssueSet {
	total := 0
	for _, group := range groups {
		total += len(group)
	}
	issues := make([]Issue, 0, total)
	for _, group := range groups {
		issues = append(issues, group...)
	}
	return IssueSet{issues: issues}
}

// Len returns the number of issues.
func (s IssueSet) Len() int {
	return len(s.issues)
}

// Issues returns a copy of the issues in detection order.
func (s IssueSet) Issues() []Issue {
	out := make([]Issue, len(s.issues))
	copy(out, s.issues)
	return out
}

// Filter builds the presentation ledger holding issues at or above threshold.
func (s IssueSet) Filter(threshold Severity) Ledger {
	rows := make([]Issue, 0, len(s.issues))
	for _, issue := range s.issues {
		if issue.Severity >= threshold {
			rows = append(rows, issue)
		}
	}
	return Ledger{rows: rows, minSeverity: threshold}
}

// Ledger is the severity-filtered issue list emitted to reports. It cannot be
// converted back into an IssueSet.
type Ledger struct {
	rows        []Issue
	minSeverity Severity
}

// Rows returns a copy of the ledger rows.
func (l Ledger) Rows() []Issue {
	out := make([]Issue, len(l.rows))
	copy(out, l.rows)
	return out
}

// Len returns the number of ledger rows.
func (l Ledger) Len() int {
	return len(l.rows)
}

// MinSeverity returns the threshold used to build the ledger.
func (l Ledger) MinSeverity() Severity {
	return l.minSeverity
}
