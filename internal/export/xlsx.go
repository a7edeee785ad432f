package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/rpattn/creditdq/internal/domain"
)

const (
	issuesSheet    = "Issues"
	scorecardSheet = "Scorecard"
	summarySheet   = "Summary"
)

// writeWorkbook renders the ledger, scorecard and findings summary as one
// workbook with a sheet each.
func writeWorkbook(out io.Writer, run domain.Run) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), issuesSheet); err != nil {
		return fmt.Errorf("rename default sheet: %w", err)
	}
	for _, sheet := range []string{scorecardSheet, summarySheet} {
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("create sheet %s: %w", sheet, err)
		}
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	issueRows := make([][]any, 0, run.Ledger.Len())
	for _, issue := range run.Ledger.Rows() {
		issueRows = append(issueRows, []any{
			string(issue.Entity), issue.RecordID, string(issue.Code), issue.Severity.String(), issue.Description,
		})
	}
	if err := writeSheet(f, issuesSheet, header, toAny(ledgerHeader), issueRows); err != nil {
		return err
	}

	scoreRows := make([][]any, 0, len(run.Scorecard))
	for _, row := range run.Scorecard {
		scoreRows = append(scoreRows, []any{row.Label, row.TotalRecords, row.CleanRecords, row.IssueCount, row.QualityScore})
	}
	if err := writeSheet(f, scorecardSheet, header, toAny(scorecardHeader), scoreRows); err != nil {
		return err
	}

	summaryRows := make([][]any, 0, len(run.Summary.BySeverity)+len(run.Summary.ByType))
	for _, sc := range run.Summary.BySeverity {
		summaryRows = append(summaryRows, []any{"*", "*", sc.Severity.String(), sc.Count})
	}
	for _, tc := range run.Summary.ByType {
		summaryRows = append(summaryRows, []any{string(tc.Entity), string(tc.Code), tc.Severity.String(), tc.Count})
	}
	if err := writeSheet(f, summarySheet, header, []any{"entity", "issue_code", "severity", "count"}, summaryRows); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	if err := f.Write(out); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, headerStyle int, header []any, rows [][]any) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write %s header: %w", sheet, err)
	}
	if err := f.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
		return fmt.Errorf("style %s header: %w", sheet, err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+2, err)
		}
	}
	return nil
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
