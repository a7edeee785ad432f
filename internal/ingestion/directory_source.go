package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rpattn/creditdq/internal/domain"
)

// supportedExtensions are tried in order for every candidate table name.
var supportedExtensions = []string{".csv", ".xlsx"}

// DirectorySource reads tables from CSV or XLSX files named after the entity,
// e.g. sellers.csv or wallet.xlsx.
type DirectorySource struct {
	dir string
}

// NewDirectorySource returns a source rooted at dir.
func NewDirectorySource(dir string) *DirectorySource {
	return &DirectorySource{dir: dir}
}

// ReadTable implements TableSource.
func (s *DirectorySource) ReadTable(ctx context.Context, candidates []string) (domain.RawTable, error) {
	for _, name := range candidates {
		for _, ext := range supportedExtensions {
			if err := ctx.Err(); err != nil {
				return domain.RawTable{}, err
			}

			path := filepath.Join(s.dir, name+ext)
			payload, err := os.ReadFile(path)
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if err != nil {
				return domain.RawTable{}, fmt.Errorf("read %s: %w", path, err)
			}

			table, err := ParseTable(path, payload)
			if err != nil {
				return domain.RawTable{}, err
			}
			return table, nil
		}
	}
	return domain.RawTable{}, domain.ErrTableNotFound
}
