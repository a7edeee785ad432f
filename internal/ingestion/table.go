package ingestion

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/rpattn/creditdq/internal/domain"

	"github.com/xuri/excelize/v2"
)

var (
	// ErrUnsupportedFormat is returned when a source file is not CSV or XLSX.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrEmptyTable is returned when a file holds no header row at all.
	ErrEmptyTable = errors.New("no rows found in file")

	byteOrderMark = []byte{0xEF, 0xBB, 0xBF}
)

// ParseTable decodes a CSV or XLSX payload into a raw table. The format is
// chosen by file extension. Headers are trimmed, lower-cased and sanitised so
// alias resolution can match them directly.
func ParseTable(fileName string, payload []byte) (domain.RawTable, error) {
	var (
		records [][]string
		lines   []int
		err     error
	)
	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".csv":
		records, lines, err = readCSV(payload)
	case ".xlsx":
		records, lines, err = readExcel(payload)
	default:
		return domain.RawTable{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return domain.RawTable{}, err
	}

	table, err := normalizeTable(records, lines)
	if err != nil {
		return domain.RawTable{}, fmt.Errorf("%s: %w", fileName, err)
	}
	table.Name = strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName))
	table.Source = fileName
	return table, nil
}

// NewRawTable builds a raw table from already-split headers and rows, as
// returned by SQL sources.
func NewRawTable(name, source string, headers []string, rows [][]string) domain.RawTable {
	sanitized := sanitizeHeaders(headers)
	padded := make([][]string, 0, len(rows))
	for _, row := range rows {
		padded = append(padded, padRow(row, len(sanitized)))
	}
	return domain.RawTable{
		Name:    name,
		Source:  source,
		Headers: sanitized,
		Rows:    padded,
	}
}

// readCSV returns the records with the file line each one starts on. The csv
// reader skips blank lines, so record positions alone do not give line
// numbers.
func readCSV(payload []byte) ([][]string, []int, error) {
	reader := bufio.NewReader(bytes.NewReader(payload))
	if prefix, err := reader.Peek(len(byteOrderMark)); err == nil && bytes.Equal(prefix, byteOrderMark) {
		_, _ = reader.Discard(len(byteOrderMark))
	}

	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1

	var (
		records [][]string
		lines   []int
	)
	for {
		record, err := csvReader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read csv: %w", err)
		}
		line, _ := csvReader.FieldPos(0)
		records = append(records, record)
		lines = append(lines, line)
	}
	return records, lines, nil
}

func readExcel(payload []byte) ([][]string, []int, error) {
	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, errors.New("excel file has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read rows from xlsx: %w", err)
	}
	// GetRows keeps blank rows in place, so the sheet row is the position.
	lines := make([]int, len(rows))
	for i := range rows {
		lines[i] = i + 1
	}
	return rows, lines, nil
}

// normalizeTable takes the first non-blank record as the header and drops
// blank records, keeping the source line of every data row.
func normalizeTable(records [][]string, lines []int) (domain.RawTable, error) {
	var (
		headerRow  []string
		dataRows   [][]string
		rowNumbers []int
	)
	for idx, row := range records {
		if len(cleanRow(row)) == 0 {
			continue
		}
		if headerRow == nil {
			headerRow = row
			continue
		}
		dataRows = append(dataRows, row)
		rowNumbers = append(rowNumbers, lines[idx])
	}

	if headerRow == nil {
		return domain.RawTable{}, ErrEmptyTable
	}

	headers := sanitizeHeaders(headerRow)
	for i := range dataRows {
		dataRows[i] = padRow(dataRows[i], len(headers))
	}

	return domain.RawTable{
		Headers:    headers,
		Rows:       dataRows,
		RowNumbers: rowNumbers,
	}, nil
}

func cleanRow(row []string) []string {
	var cleaned []string
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			cleaned = append(cleaned, cell)
		}
	}
	return cleaned
}

func sanitizeHeaders(raw []string) []string {
	headers := make([]string, len(raw))
	seen := make(map[string]int)

	for idx, value := range raw {
		name := strings.ToLower(strings.TrimSpace(value))
		name = strings.TrimPrefix(name, string(byteOrderMark))
		name = strings.ReplaceAll(name, " ", "_")
		name = strings.ReplaceAll(name, ".", "_")
		name = strings.ReplaceAll(name, "-", "_")
		name = strings.Trim(name, "_")
		if name == "" {
			name = fmt.Sprintf("column_%d", idx+1)
		}

		base := name
		count := seen[base]
		if count > 0 {
			name = fmt.Sprintf("%s_%d", base, count+1)
		}
		seen[base] = count + 1

		headers[idx] = name
	}

	return headers
}

func padRow(row []string, length int) []string {
	if len(row) >= length {
		return row[:length]
	}
	padded := make([]string, length)
	copy(padded, row)
	return padded
}
