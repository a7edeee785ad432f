package ingestion

import (
	"errors"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestParseTableCSVStripsBOMAndSanitizesHeaders(t *testing.T) {
	payload := append([]byte{0xEF, 0xBB, 0xBF}, []byte("Seller ID,Credit-Limit,name,name\n\n1,1000,Acme,dup\n2,500\n")...)

	table, err := ParseTable("data/sellers.csv", payload)
	if err != nil {
		t.Fatalf("parse returned error: %v", err)
	}

	if table.Name != "sellers" {
		t.Fatalf("expected table name sellers, got %q", table.Name)
	}
	want := []string{"seller_id", "credit_limit", "name", "name_2"}
	if len(table.Headers) != len(want) {
		t.Fatalf("unexpected headers: %v", table.Headers)
	}
	for i, header := range want {
		if table.Headers[i] != header {
			t.Fatalf("header %d: expected %q, got %q", i, header, table.Headers[i])
		}
	}
	if len(table.Rows) != 2 {
		t.Fatalf("expected 2 data rows, got %d", len(table.Rows))
	}
	if len(table.Rows[1]) != 4 || table.Rows[1][2] != "" {
		t.Fatalf("expected short row to be padded, got %v", table.Rows[1])
	}
}

func TestParseTableXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	if err := f.SetSheetRow(sheet, "A1", &[]any{"lead_id", "seller_id", "status"}); err != nil {
		t.Fatalf("set header: %v", err)
	}
	if err := f.SetSheetRow(sheet, "A2", &[]any{"L1", "S1", "confirmed"}); err != nil {
		t.Fatalf("set row: %v", err)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}

	table, err := ParseTable("leads.xlsx", buf.Bytes())
	if err != nil {
		t.Fatalf("parse returned error: %v", err)
	}
	if len(table.Rows) != 1 || table.Rows[0][2] != "confirmed" {
		t.Fatalf("unexpected rows: %v", table.Rows)
	}
}

func TestParseTableKeepsSourceLineNumbers(t *testing.T) {
	csvTable, err := ParseTable("sellers.csv", []byte("\nseller_id,market\nS1,GCC\n\n,\nS2,AFRQ\n"))
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(csvTable.Rows) != 2 || csvTable.RowNumbers[0] != 3 || csvTable.RowNumbers[1] != 6 {
		t.Fatalf("unexpected csv rows %v at lines %v", csvTable.Rows, csvTable.RowNumbers)
	}

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	if err := f.SetSheetRow(sheet, "A1", &[]any{"lead_id", "seller_id"}); err != nil {
		t.Fatalf("set header: %v", err)
	}
	if err := f.SetSheetRow(sheet, "A4", &[]any{"L1", "S1"}); err != nil {
		t.Fatalf("set row: %v", err)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	xlsxTable, err := ParseTable("leads.xlsx", buf.Bytes())
	if err != nil {
		t.Fatalf("parse xlsx: %v", err)
	}
	if len(xlsxTable.Rows) != 1 || xlsxTable.RowNumbers[0] != 4 {
		t.Fatalf("unexpected xlsx rows %v at lines %v", xlsxTable.Rows, xlsxTable.RowNumbers)
	}
}

func TestParseTableEmptyFile(t *testing.T) {
	for _, payload := range []string{"", "\n\n"} {
		if _, err := ParseTable("account_managers.csv", []byte(payload)); !errors.Is(err, ErrEmptyTable) {
			t.Fatalf("expected ErrEmptyTable for %q, got %v", payload, err)
		}
	}
}

func TestParseTableRejectsUnknownFormat(t *testing.T) {
	_, err := ParseTable("sellers.json", []byte("{}"))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestParseDecimal(t *testing.T) {
	cases := []struct {
		raw     string
		want    string
		present bool
		wantErr bool
	}{
		{raw: "1,000.50", want: "1000.5", present: true},
		{raw: " -30 ", want: "-30", present: true},
		{raw: "", want: "0"},
		{raw: "NaN", want: "0"},
		{raw: "abc", want: "0", wantErr: true},
	}

	for _, tc := range cases {
		value, present, err := parseDecimal(tc.raw)
		if (err != nil) != tc.wantErr {
			t.Fatalf("%q: unexpected error state: %v", tc.raw, err)
		}
		if present != tc.present {
			t.Fatalf("%q: expected present=%v", tc.raw, tc.present)
		}
		if value.String() != tc.want {
			t.Fatalf("%q: expected %s, got %s", tc.raw, tc.want, value.String())
		}
	}
}

func TestNormalizeID(t *testing.T) {
	cases := map[string]string{
		"12.0":   "12",
		" S-1 ":  "S-1",
		"nan":    "",
		"1.05":   "1.05",
		"abc.0":  "abc.0",
		"-7.0":   "-7",
		"":       "",
		"NULL":   "",
		"007":    "007",
		"uuid-1": "uuid-1",
	}
	for raw, want := range cases {
		if got := normalizeID(raw); got != want {
			t.Fatalf("normalizeID(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestParseTimestampLayouts(t *testing.T) {
	for _, raw := range []string{"2024-03-01", "2024-03-01 10:11:12", "2024-03-01T10:11:12Z", "2024/03/01"} {
		ts, err := parseTimestamp(raw)
		if err != nil {
			t.Fatalf("%q: %v", raw, err)
		}
		if ts.Year() != 2024 || ts.Month() != 3 || ts.Day() != 1 {
			t.Fatalf("%q parsed as %v", raw, ts)
		}
	}
	if _, err := parseTimestamp("yesterday"); err == nil {
		t.Fatalf("expected error for unrecognised timestamp")
	}
}
