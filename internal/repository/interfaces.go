package repository

import (
	"context"

	"github.com/rpattn/creditdq/internal/domain"
	"github.com/rpattn/creditdq/internal/ingestion"
)

// RunRepository persists validation runs and lists past ones.
type RunRepository interface {
	Save(ctx context.Context, run domain.Run) error
	List(ctx context.Context, limit int) ([]domain.RunRecord, error)
}

// Both SQL sources satisfy the loader's table source contract.
var (
	_ ingestion.TableSource = (*PostgresSource)(nil)
	_ ingestion.TableSource = (*SQLiteSource)(nil)
)
