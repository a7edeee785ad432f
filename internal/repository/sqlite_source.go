package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rpattn/creditdq/internal/domain"
	"github.com/rpattn/creditdq/internal/ingestion"

	_ "modernc.org/sqlite"
)

// SQLiteSource reads entity tables from a SQLite database file.
type SQLiteSource struct {
	db   *sql.DB
	path string
}

// OpenSQLiteSource opens an existing database file.
func OpenSQLiteSource(path string) (*SQLiteSource, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}
	return &SQLiteSource{db: db, path: path}, nil
}

// Close releases the database handle.
func (s *SQLiteSource) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// ReadTable returns the first candidate table or view present in the file.
// Name matching is case-insensitive, as SQLite itself is.
func (s *SQLiteSource) ReadTable(ctx context.Context, candidates []string) (domain.RawTable, error) {
	if s.db == nil {
		return domain.RawTable{}, fmt.Errorf("sqlite source not initialized")
	}

	for _, name := range candidates {
		var actual string
		err := s.db.QueryRowContext(ctx,
			`SELECT name FROM sqlite_master WHERE type IN ('table', 'view') AND name = ? COLLATE NOCASE`,
			name,
		).Scan(&actual)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return domain.RawTable{}, fmt.Errorf("failed to look up table %s: %w", name, err)
		}
		headers, rows, err := s.readAll(ctx, actual)
		if err != nil {
			return domain.RawTable{}, err
		}
		return ingestion.NewRawTable(name, s.path+":"+actual, headers, rows), nil
	}
	return domain.RawTable{}, domain.ErrTableNotFound
}

func (s *SQLiteSource) readAll(ctx context.Context, table string) ([]string, [][]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT * FROM "+quoteIdent(table))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read table %s: %w", table, err)
	}
	defer rows.Close()

	headers, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list columns of %s: %w", table, err)
	}

	values := make([]any, len(headers))
	dest := make([]any, len(headers))
	for i := range values {
		dest[i] = &values[i]
	}
	var out [][]string
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, nil, fmt.Errorf("failed to scan row of %s: %w", table, err)
		}
		record := make([]string, len(headers))
		for i, v := range values {
			record[i] = cellText(v)
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to iterate table %s: %w", table, err)
	}
	return headers, out, nil
}

// cellText renders a driver value the way a CSV export of the table would.
func cellText(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case []byte:
		return string(value)
	case int64:
		return strconv.FormatInt(value, 10)
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(value)
	case time.Time:
		value = value.UTC()
		if value.Hour() == 0 && value.Minute() == 0 && value.Second() == 0 && value.Nanosecond() == 0 {
			return value.Format("2006-01-02")
		}
		return value.Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprint(value)
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
