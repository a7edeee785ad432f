package scoring

import (
	"math"
	"sort"

	"github.com/rpattn/creditdq/internal/domain"
)

// BuildScorecard scores every entity against the full issue set. A record
// carrying several issues counts once as unclean. Issues whose record id is
// not a record of that entity do not affect its row. Entities with no
// records score zero.
func BuildScorecard(d *domain.Dataset, issues domain.IssueSet) []domain.ScorecardRow {
	known := make(map[domain.EntityName]map[string]struct{})
	for _, entity := range domain.Entities() {
		ids := make(map[string]struct{})
		for _, id := range d.RecordIDs(entity) {
			ids[id] = struct{}{}
		}
		known[entity] = ids
	}

	flagged := make(map[domain.EntityName]map[string]struct{})
	counts := make(map[domain.EntityName]int)
	for _, issue := range issues.Issues() {
		if _, ok := known[issue.Entity][issue.RecordID]; !ok {
			continue
		}
		ids, ok := flagged[issue.Entity]
		if !ok {
			ids = make(map[string]struct{})
			flagged[issue.Entity] = ids
		}
		ids[issue.RecordID] = struct{}{}
		counts[issue.Entity]++
	}

	entities := domain.Entities()
	rows := make([]domain.ScorecardRow, 0, len(entities))
	for _, entity := range entities {
		total := d.Count(entity)
		clean := total - len(flagged[entity])
		score := 0.0
		if total > 0 {
			score = math.Round(float64(clean)/float64(total)*100*100) / 100
		}
		rows = append(rows, domain.ScorecardRow{
			Entity:       entity,
			Label:        entity.Label(),
			TotalRecords: total,
			CleanRecords: clean,
			IssueCount:   counts[entity],
			QualityScore: score,
		})
	}
	return rows
}

// Summarize aggregates the presentation ledger by severity and by (entity,
// issue code, severity), and samples up to topN status mismatches in ledger
// order.
func Summarize(ledger domain.Ledger, topN int) domain.Summary {
	rows := ledger.Rows()
	summary := domain.Summary{TotalIssues: len(rows)}

	bySeverity := make(map[domain.Severity]int)
	type typeKey struct {
		entity   domain.EntityName
		code     domain.IssueCode
		severity domain.Severity
	}
	byType := make(map[typeKey]int)

	for _, issue := range rows {
		bySeverity[issue.Severity]++
		byType[typeKey{issue.Entity, issue.Code, issue.Severity}]++
		if issue.Code == domain.IssueStatusMismatch && len(summary.TopMismatches) < topN {
			summary.TopMismatches = append(summary.TopMismatches, issue)
		}
	}

	for _, severity := range domain.Severities() {
		if n := bySeverity[severity]; n > 0 {
			summary.BySeverity = append(summary.BySeverity, domain.SeverityCount{Severity: severity, Count: n})
		}
	}

	for key, n := range byType {
		summary.ByType = append(summary.ByType, domain.IssueTypeCount{
			Entity:   key.entity,
			Code:     key.code,
			Severity: key.severity,
			Count:    n,
		})
	}
	sort.Slice(summary.ByType, func(i, j int) bool {
		a, b := summary.ByType[i], summary.ByType[j]
		if a.Entity != b.Entity {
			return a.Entity < b.Entity
		}
		if a.Code != b.Code {
			return a.Code < b.Code
		}
		return a.Severity > b.Severity
	})

	return summary
}
