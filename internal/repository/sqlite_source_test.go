package repository

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/rpattn/creditdq/internal/domain"
	"github.com/rpattn/creditdq/internal/ingestion"

	"github.com/sirupsen/logrus"
)

func createFixtureDB(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "exam_database.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open fixture db: %v", err)
	}
	defer db.Close()

	statements := []string{
		`CREATE TABLE Sellers (seller_id TEXT, name TEXT, market TEXT, signup_date TEXT, credit_limit REAL, am_id TEXT)`,
		`INSERT INTO Sellers VALUES ('S1', 'Acme', 'GCC', '2024-01-01', 1000, 'A1'), ('S2', 'Beta', 'AFRQ', '2024-02-01', 500.5, NULL)`,
		`CREATE TABLE credits (credit_id TEXT, seller_id TEXT, amount INTEGER, issue_date TEXT, due_date TEXT, status TEXT)`,
		`INSERT INTO credits VALUES ('C1', 'S1', 400, '2024-03-01', '2024-04-01', 'Approved')`,
		`CREATE TABLE invoices (invoice_id TEXT, seller_id TEXT, period_start TEXT, sales_amount REAL, fees REAL, credits_due REAL, from_balance REAL)`,
		`INSERT INTO invoices VALUES ('I1', 'S1', '2024-03-10', 1000, 50, 20, -30)`,
		`CREATE TABLE leads (lead_id TEXT, seller_id TEXT, created_at TEXT, status TEXT)`,
		`INSERT INTO leads VALUES ('L1', 'S1', '2024-02-01 10:00:00', 'confirmed')`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("exec %q: %v", stmt, err)
		}
	}
	return path
}

func TestSQLiteSourceReadTable(t *testing.T) {
	src, err := OpenSQLiteSource(createFixtureDB(t))
	if err != nil {
		t.Fatalf("open source: %v", err)
	}
	defer src.Close()

	table, err := src.ReadTable(context.Background(), []string{"sellers"})
	if err != nil {
		t.Fatalf("read sellers: %v", err)
	}
	if len(table.Headers) != 6 || table.Headers[0] != "seller_id" {
		t.Fatalf("unexpected headers: %v", table.Headers)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(table.Rows))
	}
	if table.Rows[0][4] != "1000" || table.Rows[1][4] != "500.5" {
		t.Fatalf("unexpected numeric rendering: %v", table.Rows)
	}
	if table.Rows[1][5] != "" {
		t.Fatalf("expected NULL to read as empty, got %q", table.Rows[1][5])
	}

	if _, err := src.ReadTable(context.Background(), []string{"wallet_transactions", "wallet"}); !errors.Is(err, domain.ErrTableNotFound) {
		t.Fatalf("expected ErrTableNotFound, got %v", err)
	}
}

func TestSQLiteSourceFeedsLoader(t *testing.T) {
	src, err := OpenSQLiteSource(createFixtureDB(t))
	if err != nil {
		t.Fatalf("open source: %v", err)
	}
	defer src.Close()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	dataset, err := ingestion.NewLoader(logger).Load(context.Background(), src)
	if err != nil {
		t.Fatalf("load returned error: %v", err)
	}
	if len(dataset.Sellers) != 2 || len(dataset.Credits) != 1 || len(dataset.Leads) != 1 {
		t.Fatalf("unexpected dataset sizes: %d sellers, %d credits, %d leads",
			len(dataset.Sellers), len(dataset.Credits), len(dataset.Leads))
	}
	if !dataset.InvoiceTotalSynthesized {
		t.Fatalf("expected invoice totals to be synthesized without a total column")
	}
	if got := dataset.Invoices[0].Total.String(); got != "900" {
		t.Fatalf("expected synthesized total 900, got %s", got)
	}
	if dataset.Present(domain.EntityWalletTransactions) {
		t.Fatalf("wallet table should be absent")
	}
}

func TestOpenSQLiteSourceMissingFile(t *testing.T) {
	if _, err := OpenSQLiteSource(filepath.Join(t.TempDir(), "missing.db")); err == nil {
		t.Fatalf("expected error for missing database file")
	}
}

func TestCellText(t *testing.T) {
	cases := map[string]any{
		"":      nil,
		"42":    int64(42),
		"0.125": 0.125,
		"abc":   []byte("abc"),
		"true":  true,
	}
	for want, in := range cases {
		if got := cellText(in); got != want {
			t.Errorf("cellText(%v) = %q, want %q", in, got, want)
		}
	}
}
