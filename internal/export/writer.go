package export

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rpattn/creditdq/internal/domain"
)

// Format selects one report artefact family.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "md"
	FormatXLSX     Format = "xlsx"
	FormatParquet  Format = "parquet"
	FormatJSON     Format = "json"
)

// File names written into the output directory.
const (
	LedgerCSVFile     = "data_quality_report.csv"
	ScorecardCSVFile  = "data_quality_scorecard.csv"
	FindingsFile      = "data_quality_findings.md"
	WorkbookFile      = "data_quality.xlsx"
	LedgerParquetFile = "data_quality_report.parquet"
	RunJSONFile       = "data_quality_run.json"
)

// DefaultFormats is what the CLI writes when nothing is configured.
var DefaultFormats = []Format{FormatCSV, FormatMarkdown}

// ErrUnknownFormat is returned for unrecognised format names.
var ErrUnknownFormat = errors.New("unknown report format")

// ParseFormat accepts a format name case-insensitively. "markdown" is an alias
// for "md".
func ParseFormat(raw string) (Format, error) {
	switch value := strings.ToLower(strings.TrimSpace(raw)); value {
	case "csv", "xlsx", "parquet", "json", "md":
		return Format(value), nil
	case "markdown":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, raw)
	}
}

// Artifact describes one written file.
type Artifact struct {
	Format Format
	Path   string
	Bytes  int64
}

// Writer renders a run into report files.
type Writer struct {
	dir        string
	formats    []Format
	logger     logrus.FieldLogger
	now        func() time.Time
	bufferSize int
}

type Option func(*Writer)

func WithLogger(logger logrus.FieldLogger) Option {
	return func(w *Writer) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithClock overrides the timestamp printed in the findings report.
func WithClock(now func() time.Time) Option {
	return func(w *Writer) {
		if now != nil {
			w.now = now
		}
	}
}

func NewWriter(dir string, formats []Format, opts ...Option) *Writer {
	w := &Writer{
		dir:        filepath.Clean(dir),
		formats:    dedupeFormats(formats),
		logger:     logrus.StandardLogger(),
		now:        time.Now,
		bufferSize: 1 << 16,
	}
	for _, opt := range opts {
		opt(w)
	}
	if len(w.formats) == 0 {
		w.formats = append([]Format(nil), DefaultFormats...)
	}
	w.logger = w.logger.WithField("component", "export")
	return w
}

func dedupeFormats(formats []Format) []Format {
	seen := make(map[Format]bool, len(formats))
	out := make([]Format, 0, len(formats))
	for _, f := range formats {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}

// WriteAll writes every configured format for run and returns the files in
// the order written. Each file is staged next to its destination and renamed
// into place, so a failed write never leaves a partial report behind.
func (w *Writer) WriteAll(ctx context.Context, run domain.Run) ([]Artifact, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure output directory: %w", err)
	}

	var artifacts []Artifact
	for _, format := range w.formats {
		if err := ctx.Err(); err != nil {
			return artifacts, err
		}

		var written []Artifact
		var err error
		switch format {
		case FormatCSV:
			written, err = w.writeFiles(format, run,
				namedRender{LedgerCSVFile, writeLedgerCSV},
				namedRender{ScorecardCSVFile, writeScorecardCSV})
		case FormatMarkdown:
			written, err = w.writeFiles(format, run, namedRender{FindingsFile, w.writeFindings})
		case FormatXLSX:
			written, err = w.writeFiles(format, run, namedRender{WorkbookFile, writeWorkbook})
		case FormatParquet:
			written, err = w.writeFiles(format, run, namedRender{LedgerParquetFile, writeLedgerParquet})
		case FormatJSON:
			written, err = w.writeFiles(format, run, namedRender{RunJSONFile, writeRunJSON})
		default:
			err = fmt.Errorf("%w: %q", ErrUnknownFormat, format)
		}
		if err != nil {
			return artifacts, err
		}
		artifacts = append(artifacts, written...)
	}
	return artifacts, nil
}

type renderFunc func(io.Writer, domain.Run) error

type namedRender struct {
	name   string
	render renderFunc
}

func (w *Writer) writeFiles(format Format, run domain.Run, files ...namedRender) ([]Artifact, error) {
	out := make([]Artifact, 0, len(files))
	for _, file := range files {
		artifact, err := w.writeFile(format, file.name, run, file.render)
		if err != nil {
			return nil, err
		}
		out = append(out, artifact)
	}
	return out, nil
}

func (w *Writer) writeFile(format Format, name string, run domain.Run, render renderFunc) (Artifact, error) {
	tempFile, err := os.CreateTemp(w.dir, "."+name+"-*")
	if err != nil {
		return Artifact{}, fmt.Errorf("create temp file for %s: %w", name, err)
	}
	tempPath := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = tempFile.Close()
			_ = os.Remove(tempPath)
		}
	}()

	buffered := bufio.NewWriterSize(tempFile, w.bufferSize)
	counter := &countingWriter{writer: buffered}
	if err := render(counter, run); err != nil {
		return Artifact{}, fmt.Errorf("render %s: %w", name, err)
	}
	if err := buffered.Flush(); err != nil {
		return Artifact{}, fmt.Errorf("flush %s: %w", name, err)
	}
	if err := tempFile.Sync(); err != nil {
		return Artifact{}, fmt.Errorf("sync %s: %w", name, err)
	}
	if err := tempFile.Close(); err != nil {
		return Artifact{}, fmt.Errorf("close %s: %w", name, err)
	}

	finalPath := filepath.Join(w.dir, name)
	if err := os.Rename(tempPath, finalPath); err != nil {
		return Artifact{}, fmt.Errorf("promote %s: %w", name, err)
	}
	cleanup = false

	w.logger.WithFields(logrus.Fields{
		"format": format,
		"path":   finalPath,
		"bytes":  counter.count,
	}).Info("report written")
	return Artifact{Format: format, Path: finalPath, Bytes: counter.count}, nil
}

type countingWriter struct {
	writer *bufio.Writer
	count  int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.writer.Write(p)
	c.count += int64(n)
	return n, err
}

// runDocument is the JSON shape of a run; the ledger rows are inlined since
// the domain type keeps them unexported.
type runDocument struct {
	domain.Run
	MinSeverity domain.Severity `json:"min_severity"`
	Ledger      []domain.Issue  `json:"ledger"`
}

func writeRunJSON(out io.Writer, run domain.Run) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(runDocument{
		Run:         run,
		MinSeverity: run.Ledger.MinSeverity(),
		Ledger:      run.Ledger.Rows(),
	})
}
