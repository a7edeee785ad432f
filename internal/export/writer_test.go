package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"github.com/rpattn/creditdq/internal/domain"
)

var fixedNow = time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)

func sampleRun() domain.Run {
	issues := domain.NewIssueSet([]domain.Issue{
		{Entity: domain.EntityCredits, RecordID: "C1", Code: domain.IssueStatusMismatch, Severity: domain.SeverityWarning, Description: "actual=Paid, expected=InReview, inv_sum=0, issued=200"},
		{Entity: domain.EntityInvoices, RecordID: "I1", Code: domain.IssueArithmeticError, Severity: domain.SeverityCritical, Description: "expected 900, got 901"},
		{Entity: domain.EntityCredits, RecordID: "C2", Code: domain.IssueAmountOutlier, Severity: domain.SeverityInfo, Description: "50 outside [55, 790]"},
	})
	ledger := issues.Filter(domain.SeverityWarning)
	return domain.Run{
		ID:         uuid.MustParse("7b0c6c1e-3f7f-4a55-9f3a-0d8f43d9a001"),
		StartedAt:  fixedNow,
		FinishedAt: fixedNow,
		AsOf:       time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Issues:     issues,
		Ledger:     ledger,
		Scorecard: []domain.ScorecardRow{
			{Entity: domain.EntityCredits, Label: "Credits", TotalRecords: 4, CleanRecords: 2, IssueCount: 2, QualityScore: 50},
			{Entity: domain.EntityInvoices, Label: "Invoices", TotalRecords: 3, CleanRecords: 2, IssueCount: 1, QualityScore: 66.67},
		},
		Summary: domain.Summary{
			TotalIssues: 2,
			BySeverity: []domain.SeverityCount{
				{Severity: domain.SeverityCritical, Count: 1},
				{Severity: domain.SeverityWarning, Count: 1},
			},
			ByType: []domain.IssueTypeCount{
				{Entity: domain.EntityCredits, Code: domain.IssueStatusMismatch, Severity: domain.SeverityWarning, Count: 1},
				{Entity: domain.EntityInvoices, Code: domain.IssueArithmeticError, Severity: domain.SeverityCritical, Count: 1},
			},
			TopMismatches: ledger.Rows()[:1],
		},
	}
}

func newTestWriter(dir string, formats ...Format) *Writer {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewWriter(dir, formats, WithLogger(logger), WithClock(func() time.Time { return fixedNow }))
}

func TestWriteAllCSV(t *testing.T) {
	dir := t.TempDir()
	artifacts, err := newTestWriter(dir, FormatCSV).WriteAll(context.Background(), sampleRun())
	if err != nil {
		t.Fatalf("write returned error: %v", err)
	}
	if len(artifacts) != 2 {
		t.Fatalf("expected ledger and scorecard files, got %+v", artifacts)
	}

	payload, err := os.ReadFile(filepath.Join(dir, LedgerCSVFile))
	if err != nil {
		t.Fatalf("read ledger: %v", err)
	}
	if int64(len(payload)) != artifacts[0].Bytes {
		t.Fatalf("byte count mismatch: file %d, reported %d", len(payload), artifacts[0].Bytes)
	}
	records, err := csv.NewReader(bytes.NewReader(payload)).ReadAll()
	if err != nil {
		t.Fatalf("parse ledger: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header plus 2 filtered rows, got %d", len(records))
	}
	if records[0][2] != "issue_code" || records[2][4] != "expected 900, got 901" {
		t.Fatalf("unexpected ledger contents: %v", records)
	}

	scorecard, err := os.ReadFile(filepath.Join(dir, ScorecardCSVFile))
	if err != nil {
		t.Fatalf("read scorecard: %v", err)
	}
	if !strings.Contains(string(scorecard), "Invoices,3,2,1,66.67") {
		t.Fatalf("unexpected scorecard csv:\n%s", scorecard)
	}

	leftovers, _ := filepath.Glob(filepath.Join(dir, ".*"))
	if len(leftovers) != 0 {
		t.Fatalf("temp files left behind: %v", leftovers)
	}
}

func TestWriteAllMarkdown(t *testing.T) {
	dir := t.TempDir()
	if _, err := newTestWriter(dir, FormatMarkdown).WriteAll(context.Background(), sampleRun()); err != nil {
		t.Fatalf("write returned error: %v", err)
	}

	payload, err := os.ReadFile(filepath.Join(dir, FindingsFile))
	if err != nil {
		t.Fatalf("read findings: %v", err)
	}
	report := string(payload)
	for _, want := range []string{
		"# Data Quality Findings",
		"2024-06-01T09:30:00Z",
		"- Total issues detected: 3 (ledger threshold Warning, 2 rows reported)",
		"- By severity: Critical=1, Warning=1",
		"| Credits | 4 | 2 | 2 | 50.00 |",
		"## Issue Summary by Type",
		"## Top 1 Credit Status Mismatches",
		"## Severity Guidance",
		"## Recommendations",
	} {
		if !strings.Contains(report, want) {
			t.Fatalf("findings report missing %q:\n%s", want, report)
		}
	}
}

func TestWriteAllWorkbook(t *testing.T) {
	dir := t.TempDir()
	if _, err := newTestWriter(dir, FormatXLSX).WriteAll(context.Background(), sampleRun()); err != nil {
		t.Fatalf("write returned error: %v", err)
	}

	f, err := excelize.OpenFile(filepath.Join(dir, WorkbookFile))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) != 3 || sheets[0] != issuesSheet {
		t.Fatalf("unexpected sheets: %v", sheets)
	}
	rows, err := f.GetRows(issuesSheet)
	if err != nil {
		t.Fatalf("read issues sheet: %v", err)
	}
	if len(rows) != 3 || rows[1][1] != "C1" {
		t.Fatalf("unexpected issue rows: %v", rows)
	}
}

func TestWriteAllParquetAndJSON(t *testing.T) {
	dir := t.TempDir()
	artifacts, err := newTestWriter(dir, FormatParquet, FormatJSON).WriteAll(context.Background(), sampleRun())
	if err != nil {
		t.Fatalf("write returned error: %v", err)
	}
	if len(artifacts) != 2 || artifacts[0].Format != FormatParquet {
		t.Fatalf("unexpected artifacts: %+v", artifacts)
	}

	parquetBytes, err := os.ReadFile(filepath.Join(dir, LedgerParquetFile))
	if err != nil {
		t.Fatalf("read parquet: %v", err)
	}
	if !bytes.HasPrefix(parquetBytes, []byte("PAR1")) || !bytes.HasSuffix(parquetBytes, []byte("PAR1")) {
		t.Fatalf("parquet file lacks magic bytes")
	}

	payload, err := os.ReadFile(filepath.Join(dir, RunJSONFile))
	if err != nil {
		t.Fatalf("read json: %v", err)
	}
	var doc struct {
		ID          string `json:"id"`
		MinSeverity string `json:"min_severity"`
		Ledger      []struct {
			RecordID string `json:"record_id"`
			Severity string `json:"severity"`
		} `json:"ledger"`
		Scorecard []domain.ScorecardRow `json:"scorecard"`
	}
	if err := json.Unmarshal(payload, &doc); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if doc.MinSeverity != "Warning" || len(doc.Ledger) != 2 || doc.Ledger[1].Severity != "Critical" {
		t.Fatalf("unexpected run document: %+v", doc)
	}
	if len(doc.Scorecard) != 2 || doc.ID != "7b0c6c1e-3f7f-4a55-9f3a-0d8f43d9a001" {
		t.Fatalf("unexpected run document header: %+v", doc)
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat(" Markdown "); err != nil || f != FormatMarkdown {
		t.Fatalf("expected markdown alias, got %q, %v", f, err)
	}
	if _, err := ParseFormat("pdf"); !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestNewWriterDefaultsFormats(t *testing.T) {
	w := newTestWriter(t.TempDir())
	if len(w.formats) != len(DefaultFormats) {
		t.Fatalf("expected default formats, got %v", w.formats)
	}
}
