package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/rpattn/creditdq/internal/domain"
	"github.com/rpattn/creditdq/internal/ingestion"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultSchema = "public"

// PostgresSource reads entity tables from a Postgres schema. Every column is
// cast to text so the loader applies the same coercion as for files.
type PostgresSource struct {
	pool   *pgxpool.Pool
	schema string
}

// NewPostgresSource reads tables from the public schema of pool.
func NewPostgresSource(pool *pgxpool.Pool) *PostgresSource {
	return &PostgresSource{pool: pool, schema: defaultSchema}
}

// WithSchema returns a copy of the source reading from schema instead.
func (s *PostgresSource) WithSchema(schema string) *PostgresSource {
	clone := *s
	if schema != "" {
		clone.schema = schema
	}
	return &clone
}

// ReadTable returns the first candidate table that exists in the schema.
func (s *PostgresSource) ReadTable(ctx context.Context, candidates []string) (domain.RawTable, error) {
	if s.pool == nil {
		return domain.RawTable{}, fmt.Errorf("postgres source not initialized")
	}

	for _, name := range candidates {
		columns, err := s.columns(ctx, name)
		if err != nil {
			return domain.RawTable{}, err
		}
		if len(columns) == 0 {
			continue
		}
		rows, err := s.rows(ctx, name, columns)
		if err != nil {
			return domain.RawTable{}, err
		}
		return ingestion.NewRawTable(name, s.schema+"."+name, columns, rows), nil
	}
	return domain.RawTable{}, domain.ErrTableNotFound
}

func (s *PostgresSource) columns(ctx context.Context, table string) ([]string, error) {
	rows, err := s.pool.Query(
		ctx,
		`SELECT column_name
		 FROM information_schema.columns
		 WHERE table_schema = $1 AND table_name = $2
		 ORDER BY ordinal_position`,
		s.schema,
		table,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list columns of %s: %w", table, err)
	}
	columns, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan columns of %s: %w", table, err)
	}
	return columns, nil
}

func (s *PostgresSource) rows(ctx context.Context, table string, columns []string) ([][]string, error) {
	selects := make([]string, len(columns))
	for i, column := range columns {
		selects[i] = pgx.Identifier{column}.Sanitize() + "::text"
	}
	query := fmt.Sprintf("SELECT %s FROM %s",
		strings.Join(selects, ", "), pgx.Identifier{s.schema, table}.Sanitize())

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to read table %s: %w", table, err)
	}
	defer rows.Close()

	var out [][]string
	values := make([]pgtype.Text, len(columns))
	dest := make([]any, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan row of %s: %w", table, err)
		}
		record := make([]string, len(columns))
		for i, v := range values {
			if v.Valid {
				record[i] = v.String
			}
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate table %s: %w", table, err)
	}
	return out, nil
}
