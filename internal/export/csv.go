package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/rpattn/creditdq/internal/domain"
)

var (
	ledgerHeader    = []string{"entity", "record_id", "issue_code", "severity", "description"}
	scorecardHeader = []string{"entity", "total_records", "clean_records", "issue_count", "quality_score_percent"}
)

func writeLedgerCSV(out io.Writer, run domain.Run) error {
	csvWriter := csv.NewWriter(out)
	if err := csvWriter.Write(ledgerHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, issue := range run.Ledger.Rows() {
		if err := csvWriter.Write(ledgerRecord(issue)); err != nil {
			return fmt.Errorf("write ledger row: %w", err)
		}
	}
	csvWriter.Flush()
	return csvWriter.Error()
}

func writeScorecardCSV(out io.Writer, run domain.Run) error {
	csvWriter := csv.NewWriter(out)
	if err := csvWriter.Write(scorecardHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range run.Scorecard {
		if err := csvWriter.Write(scorecardRecord(row)); err != nil {
			return fmt.Errorf("write scorecard row: %w", err)
		}
	}
	csvWriter.Flush()
	return csvWriter.Error()
}

func ledgerRecord(issue domain.Issue) []string {
	return []string{
		string(issue.Entity),
		issue.RecordID,
		string(issue.Code),
		issue.Severity.String(),
		issue.Description,
	}
}

func scorecardRecord(row domain.ScorecardRow) []string {
	return []string{
		row.Label,
		strconv.Itoa(row.TotalRecords),
		strconv.Itoa(row.CleanRecords),
		strconv.Itoa(row.IssueCount),
		formatScore(row.QualityScore),
	}
}

func formatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', 2, 64)
}
