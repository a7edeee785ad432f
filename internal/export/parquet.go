package export

import (
	"fmt"
	"io"

	"github.com/xitongsys/parquet-go-source/writerfile"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/rpattn/creditdq/internal/domain"
)

type parquetIssue struct {
	RunID       string `parquet:"name=run_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Entity      string `parquet:"name=entity, type=BYTE_ARRAY, convertedtype=UTF8"`
	RecordID    string `parquet:"name=record_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	IssueCode   string `parquet:"name=issue_code, type=BYTE_ARRAY, convertedtype=UTF8"`
	Severity    string `parquet:"name=severity, type=BYTE_ARRAY, convertedtype=UTF8"`
	SeverityInt int32  `parquet:"name=severity_rank, type=INT32"`
	Description string `parquet:"name=description, type=BYTE_ARRAY, convertedtype=UTF8"`
}

func writeLedgerParquet(out io.Writer, run domain.Run) error {
	fw := writerfile.NewWriterFile(out)
	pw, err := writer.NewParquetWriter(fw, new(parquetIssue), 1)
	if err != nil {
		return fmt.Errorf("parquet schema: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	runID := run.ID.String()
	for _, issue := range run.Ledger.Rows() {
		row := &parquetIssue{
			RunID:       runID,
			Entity:      string(issue.Entity),
			RecordID:    issue.RecordID,
			IssueCode:   string(issue.Code),
			Severity:    issue.Severity.String(),
			SeverityInt: int32(issue.Severity),
			Description: issue.Description,
		}
		if err := pw.Write(row); err != nil {
			return fmt.Errorf("parquet write: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("parquet finalize: %w", err)
	}
	return nil
}
