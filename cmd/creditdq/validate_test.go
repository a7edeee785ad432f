package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rpattn/creditdq/internal/config"
	"github.com/rpattn/creditdq/internal/export"

	"github.com/sirupsen/logrus"
)

var fixtureFiles = map[string]string{
	"sellers.csv": `seller_id,name,market,signup_date,credit_limit
S1,Acme,GCC,2024-01-01,1000
S2,Beta,AFRQ,2024-02-01,500
`,
	"credits.csv": `credit_id,seller_id,amount,issue_date,due_date,status
C1,S1,400,2024-03-01,2024-04-01,Paid
C2,S9,100,2024-03-05,2024-04-05,Approved
`,
	"invoices.csv": `invoice_id,seller_id,period_start,sales_amount,fees,credits_due,from_balance,total
I1,S1,2024-03-10,1000,50,20,-30,901
`,
	"leads.csv": `lead_id,seller_id,created_at,status
L1,S1,2024-02-01,confirmed
`,
}

func writeFixtures(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range fixtureFiles {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func TestRunValidateDirectorySource(t *testing.T) {
	t.Chdir(t.TempDir())
	input := writeFixtures(t)
	output := t.TempDir()

	cfg, err := config.Load("", nil)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	cfg.Source.Path = input
	cfg.Report.OutputDir = output
	cfg.AsOfDate = "2024-06-01"

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	var out bytes.Buffer
	if err := runValidate(context.Background(), &out, cfg, logger); err != nil {
		t.Fatalf("validate returned error: %v", err)
	}

	for _, want := range []string{"as of 2024-06-01", "Credits", "Invoices"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("summary missing %q:\n%s", want, out.String())
		}
	}
	ledger, err := os.ReadFile(filepath.Join(output, export.LedgerCSVFile))
	if err != nil {
		t.Fatalf("read ledger: %v", err)
	}
	for _, want := range []string{"orphaned_reference", "arithmetic_error", "seller_id S9 not found in sellers"} {
		if !strings.Contains(string(ledger), want) {
			t.Fatalf("ledger missing %q:\n%s", want, ledger)
		}
	}
	if _, err := os.Stat(filepath.Join(output, export.FindingsFile)); err != nil {
		t.Fatalf("expected findings report: %v", err)
	}
}

func TestRunValidateMissingRequiredTable(t *testing.T) {
	t.Chdir(t.TempDir())
	input := writeFixtures(t)
	if err := os.Remove(filepath.Join(input, "leads.csv")); err != nil {
		t.Fatalf("remove leads: %v", err)
	}

	cfg, err := config.Load("", nil)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	cfg.Source.Path = input
	cfg.Report.OutputDir = t.TempDir()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	err = runValidate(context.Background(), io.Discard, cfg, logger)
	if err == nil || !strings.Contains(err.Error(), "leads") {
		t.Fatalf("expected error naming the leads table, got %v", err)
	}
}
