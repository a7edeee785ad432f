package scoring

import (
	"testing"

	"github.com/rpattn/creditdq/internal/domain"
)

func sampleDataset() *domain.Dataset {
	return &domain.Dataset{
		Sellers: []domain.Seller{{ID: "S1"}, {ID: "S2"}, {ID: "S3"}, {ID: "S4"}},
		Credits: []domain.Credit{{ID: "C1"}, {ID: "C2"}},
	}
}

func sampleIssues() domain.IssueSet {
	return domain.NewIssueSet([]domain.Issue{
		{Entity: domain.EntitySellers, RecordID: "S1", Code: domain.IssueCreditLimitExceeded, Severity: domain.SeverityCritical},
		{Entity: domain.EntitySellers, RecordID: "S1", Code: domain.IssueConversionExtreme, Severity: domain.SeverityInfo},
		{Entity: domain.EntitySellers, RecordID: "S2", Code: domain.IssueNoLeadsActiveCredit, Severity: domain.SeverityInfo},
		{Entity: domain.EntityCredits, RecordID: "C1", Code: domain.IssueStatusMismatch, Severity: domain.SeverityWarning},
		{Entity: domain.EntityCredits, RecordID: "C2", Code: domain.IssueStatusMismatch, Severity: domain.SeverityWarning},
	})
}

func rowFor(t *testing.T, rows []domain.ScorecardRow, entity domain.EntityName) domain.ScorecardRow {
	t.Helper()
	for _, row := range rows {
		if row.Entity == entity {
			return row
		}
	}
	t.Fatalf("no scorecard row for %s", entity)
	return domain.ScorecardRow{}
}

func TestBuildScorecardCountsDistinctRecords(t *testing.T) {
	rows := BuildScorecard(sampleDataset(), sampleIssues())

	if len(rows) != len(domain.Entities()) {
		t.Fatalf("expected one row per entity, got %d", len(rows))
	}

	sellers := rowFor(t, rows, domain.EntitySellers)
	if sellers.TotalRecords != 4 || sellers.CleanRecords != 2 || sellers.IssueCount != 3 {
		t.Fatalf("unexpected sellers row: %+v", sellers)
	}
	if sellers.QualityScore != 50 {
		t.Fatalf("expected sellers score 50, got %v", sellers.QualityScore)
	}

	credits := rowFor(t, rows, domain.EntityCredits)
	if credits.CleanRecords != 0 || credits.QualityScore != 0 {
		t.Fatalf("unexpected credits row: %+v", credits)
	}

	leads := rowFor(t, rows, domain.EntityLeads)
	if leads.TotalRecords != 0 || leads.QualityScore != 0 {
		t.Fatalf("empty entity should score zero: %+v", leads)
	}
}

func TestBuildScorecardRoundsToTwoDecimals(t *testing.T) {
	d := &domain.Dataset{Leads: []domain.Lead{{ID: "L1"}, {ID: "L2"}, {ID: "L3"}}}
	issues := domain.NewIssueSet([]domain.Issue{{Entity: domain.EntityLeads, RecordID: "L1"}})

	leads := rowFor(t, BuildScorecard(d, issues), domain.EntityLeads)
	if leads.QualityScore != 66.67 {
		t.Fatalf("expected 66.67, got %v", leads.QualityScore)
	}
}

func TestSummarize(t *testing.T) {
	ledger := sampleIssues().Filter(domain.SeverityWarning)
	summary := Summarize(ledger, 1)

	if summary.TotalIssues != 3 {
		t.Fatalf("expected 3 ledger rows, got %d", summary.TotalIssues)
	}
	if len(summary.BySeverity) != 2 || summary.BySeverity[0].Severity != domain.SeverityCritical || summary.BySeverity[1].Count != 2 {
		t.Fatalf("unexpected severity breakdown: %+v", summary.BySeverity)
	}
	if len(summary.ByType) != 2 {
		t.Fatalf("expected 2 type groups, got %+v", summary.ByType)
	}
	first := summary.ByType[0]
	if first.Entity != domain.EntityCredits || first.Code != domain.IssueStatusMismatch || first.Count != 2 {
		t.Fatalf("unexpected first type group: %+v", first)
	}
	if len(summary.TopMismatches) != 1 || summary.TopMismatches[0].RecordID != "C1" {
		t.Fatalf("expected top mismatch sample capped at 1, got %+v", summary.TopMismatches)
	}
}

func TestBuildScorecardIgnoresIssuesForUnknownRecords(t *testing.T) {
	d := &domain.Dataset{Sellers: []domain.Seller{{ID: "S1"}}}
	issues := domain.NewIssueSet([]domain.Issue{
		{Entity: domain.EntitySellers, RecordID: "S8", Code: domain.IssueWalletInvoiceMismatch, Severity: domain.SeverityWarning},
		{Entity: domain.EntitySellers, RecordID: "S9", Code: domain.IssueConversionExtreme, Severity: domain.SeverityInfo},
	})

	sellers := rowFor(t, BuildScorecard(d, issues), domain.EntitySellers)
	if sellers.CleanRecords != 1 || sellers.IssueCount != 0 || sellers.QualityScore != 100 {
		t.Fatalf("issues on ids outside the sellers table must not affect the row: %+v", sellers)
	}
}
