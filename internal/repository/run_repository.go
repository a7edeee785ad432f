package repository

import (
	"context"
	"fmt"

	"github.com/rpattn/creditdq/internal/db"
	"github.com/rpattn/creditdq/internal/domain"

	"github.com/jackc/pgx/v5"
)

const defaultRunListLimit = 20

type runRepository struct {
	conn *db.Connection
}

// NewRunRepository wires a repository backed by the dq_* tables.
func NewRunRepository(conn *db.Connection) RunRepository {
	return &runRepository{conn: conn}
}

// Save writes the run header, every issue of the unfiltered set and the
// scorecard in one transaction.
func (r *runRepository) Save(ctx context.Context, run domain.Run) error {
	if r.conn == nil || r.conn.Pool == nil {
		return fmt.Errorf("run repository not initialized")
	}

	return r.conn.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(
			ctx,
			`INSERT INTO dq_runs (id, started_at, finished_at, as_of, min_severity, issue_count, ledger_count)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			run.ID,
			run.StartedAt,
			run.FinishedAt,
			run.AsOf,
			run.Ledger.MinSeverity().String(),
			run.Issues.Len(),
			run.Ledger.Len(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert run: %w", err)
		}

		issues := run.Issues.Issues()
		_, err = tx.CopyFrom(
			ctx,
			pgx.Identifier{"dq_issues"},
			[]string{"run_id", "position", "entity", "record_id", "issue_code", "severity", "description"},
			pgx.CopyFromSlice(len(issues), func(i int) ([]any, error) {
				issue := issues[i]
				return []any{
					run.ID,
					i,
					string(issue.Entity),
					issue.RecordID,
					string(issue.Code),
					issue.Severity.String(),
					issue.Description,
				}, nil
			}),
		)
		if err != nil {
			return fmt.Errorf("failed to copy issues: %w", err)
		}

		batch := &pgx.Batch{}
		for _, row := range run.Scorecard {
			batch.Queue(
				`INSERT INTO dq_scorecard (run_id, entity, label, total_records, clean_records, issue_count, quality_score)
				 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				run.ID,
				string(row.Entity),
				row.Label,
				row.TotalRecords,
				row.CleanRecords,
				row.IssueCount,
				row.QualityScore,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to insert scorecard: %w", err)
		}
		return nil
	})
}

// List returns the most recent runs first.
func (r *runRepository) List(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	if r.conn == nil || r.conn.Pool == nil {
		return nil, fmt.Errorf("run repository not initialized")
	}
	if limit <= 0 {
		limit = defaultRunListLimit
	}

	rows, err := r.conn.Pool.Query(
		ctx,
		`SELECT id, started_at, finished_at, as_of, min_severity, issue_count, ledger_count
		 FROM dq_runs
		 ORDER BY started_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var records []domain.RunRecord
	for rows.Next() {
		var (
			record   domain.RunRecord
			severity string
		)
		if err := rows.Scan(
			&record.ID,
			&record.StartedAt,
			&record.FinishedAt,
			&record.AsOf,
			&severity,
			&record.IssueCount,
			&record.LedgerCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		record.MinSeverity, err = domain.ParseSeverity(severity)
		if err != nil {
			return nil, fmt.Errorf("run %s: %w", record.ID, err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return records, nil
}
