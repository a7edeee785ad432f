package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rpattn/creditdq/internal/domain"
)

const severityGuidance = `| Severity | Definition | Examples |
|---|---|---|
| Critical | Breaks financial or contractual logic | orphaned_reference, credit_limit_exceeded, arithmetic_error |
| Warning | Likely to skew reporting or KPIs | lead_before_signup, due_before_issue, wallet_invoice_mismatch, status_mismatch |
| Info | Anomalies worth review | amount_outlier, fee_ratio_outlier, no_leads_active_credit, conversion_extreme |
`

var recommendations = []string{
	"Credits: review status_mismatch rows and enforce pre-issuance checks against seller credit_limit.",
	"Invoices: standardise columns (sales_amount, fees, credits_due, from_balance) and reconcile stored totals.",
	"Wallet: reconcile wallet movements with invoices weekly and investigate gaps beyond tolerance.",
	"Leads: monitor temporal violations and extreme conversion cohorts; tune lead routing.",
	"References: repair orphaned foreign keys at the source before downstream loads.",
}

func (w *Writer) writeFindings(out io.Writer, run domain.Run) error {
	var b strings.Builder

	b.WriteString("# Data Quality Findings\n\n")
	fmt.Fprintf(&b, "_Run %s at %s, evaluated as of %s_\n\n",
		run.ID, w.now().UTC().Format(time.RFC3339), run.AsOf.Format("2006-01-02"))

	b.WriteString("## Overview\n\n")
	fmt.Fprintf(&b, "- Total issues detected: %d (ledger threshold %s, %d rows reported)\n",
		run.Issues.Len(), run.Ledger.MinSeverity(), run.Summary.TotalIssues)
	if len(run.Summary.BySeverity) > 0 {
		parts := make([]string, 0, len(run.Summary.BySeverity))
		for _, sc := range run.Summary.BySeverity {
			parts = append(parts, fmt.Sprintf("%s=%d", sc.Severity, sc.Count))
		}
		fmt.Fprintf(&b, "- By severity: %s\n", strings.Join(parts, ", "))
	}
	labels := make([]string, 0, len(run.Scorecard))
	for _, row := range run.Scorecard {
		labels = append(labels, row.Label)
	}
	fmt.Fprintf(&b, "- Entities analysed: %s\n", strings.Join(labels, ", "))

	b.WriteString("\n## Data Quality Scorecard\n\n")
	scoreRows := make([][]string, 0, len(run.Scorecard))
	for _, row := range run.Scorecard {
		scoreRows = append(scoreRows, scorecardRecord(row))
	}
	writeTable(&b, []string{"Entity", "Total Records", "Clean Records", "Issues", "Quality Score (%)"}, scoreRows)

	if run.Summary.TotalIssues == 0 {
		b.WriteString("\nNo issues found.\n")
	} else {
		b.WriteString("\n## Issue Summary by Type\n\n")
		typeRows := make([][]string, 0, len(run.Summary.ByType))
		for _, tc := range run.Summary.ByType {
			typeRows = append(typeRows, []string{string(tc.Entity), string(tc.Code), tc.Severity.String(), fmt.Sprint(tc.Count)})
		}
		writeTable(&b, []string{"entity", "issue", "severity", "count"}, typeRows)

		if len(run.Summary.TopMismatches) > 0 {
			fmt.Fprintf(&b, "\n## Top %d Credit Status Mismatches\n\n", len(run.Summary.TopMismatches))
			mismatchRows := make([][]string, 0, len(run.Summary.TopMismatches))
			for _, issue := range run.Summary.TopMismatches {
				mismatchRows = append(mismatchRows, ledgerRecord(issue))
			}
			writeTable(&b, ledgerHeader, mismatchRows)
		}
	}

	b.WriteString("\n## Severity Guidance\n\n")
	b.WriteString(severityGuidance)

	b.WriteString("\n## Recommendations\n\n")
	for _, rec := range recommendations {
		fmt.Fprintf(&b, "- %s\n", rec)
	}

	_, err := io.WriteString(out, b.String())
	return err
}

func writeTable(b *strings.Builder, header []string, rows [][]string) {
	writeTableRow(b, header)
	sep := make([]string, len(header))
	for i := range sep {
		sep[i] = "---"
	}
	writeTableRow(b, sep)
	for _, row := range rows {
		writeTableRow(b, row)
	}
}

func writeTableRow(b *strings.Builder, cells []string) {
	b.WriteString("|")
	for _, cell := range cells {
		cell = strings.ReplaceAll(cell, "|", `\|`)
		cell = strings.ReplaceAll(cell, "\n", " ")
		b.WriteString(" " + cell + " |")
	}
	b.WriteString("\n")
}
