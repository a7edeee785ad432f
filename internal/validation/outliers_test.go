package validation

import (
	"fmt"
	"io"
	"testing"

	"github.com/rpattn/creditdq/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

func discardLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestPercentileInterpolates(t *testing.T) {
	values := []float64{10, 20, 30, 40}
	cases := map[float64]float64{0: 10, 50: 25, 100: 40, 25: 17.5}
	for p, want := range cases {
		if got := percentile(values, p); got != want {
			t.Fatalf("percentile(%v) = %v, want %v", p, got, want)
		}
	}
}

func TestCreditAmountOutliersOpenInterval(t *testing.T) {
	d := &domain.Dataset{}
	for i := 1; i <= 101; i++ {
		d.Credits = append(d.Credits, domain.Credit{ID: fmt.Sprintf("C%d", i), Amount: decimal.NewFromInt(int64(i))})
	}

	issues := creditAmountOutliers(d, DefaultOptions(testNow))
	if len(issues) != 2 {
		t.Fatalf("expected only the two extremes, got %+v", issues)
	}
	if issues[0].RecordID != "C1" || issues[1].RecordID != "C101" {
		t.Fatalf("unexpected outliers: %+v", issues)
	}
	if issues[0].Description != "1 outside [2, 100]" {
		t.Fatalf("unexpected description %q", issues[0].Description)
	}
}

func TestFeeRatioOutliers(t *testing.T) {
	d := &domain.Dataset{Invoices: []domain.Invoice{
		{ID: "low", SalesAmount: dec("100"), Fees: dec("4")},
		{ID: "edge", SalesAmount: dec("100"), Fees: dec("5")},
		{ID: "high", SalesAmount: dec("100"), Fees: dec("50")},
		{ID: "zero", SalesAmount: dec("0"), Fees: dec("10")},
		{ID: "upper", SalesAmount: dec("100"), Fees: dec("40")},
	}}

	issues := feeRatioOutliers(d, DefaultOptions(testNow), discardLogger())
	if len(issues) != 2 || issues[0].RecordID != "low" || issues[1].RecordID != "high" {
		t.Fatalf("unexpected fee ratio outliers: %+v", issues)
	}
	if issues[1].Description != "fee_ratio=0.500" {
		t.Fatalf("unexpected description %q", issues[1].Description)
	}
}

func TestSellersWithoutLeads(t *testing.T) {
	d := &domain.Dataset{
		Sellers: []domain.Seller{{ID: "S1"}, {ID: "S2"}, {ID: "S3"}},
		Credits: []domain.Credit{
			{SellerID: "S1", Status: domain.CreditStatusNew},
			{SellerID: "S2", Status: domain.CreditStatusCancelled},
			{SellerID: "S3", Status: domain.CreditStatusApproved},
		},
		Leads: []domain.Lead{{SellerID: "S3"}},
	}

	issues := sellersWithoutLeads(d)
	if len(issues) != 1 || issues[0].RecordID != "S1" || issues[0].Severity != domain.SeverityInfo {
		t.Fatalf("expected S1 only, got %+v", issues)
	}
}

func TestConversionExtremesRequiresMinimumLeads(t *testing.T) {
	d := &domain.Dataset{}
	addLeads := func(seller string, confirmed, other int) {
		d.Sellers = append(d.Sellers, domain.Seller{ID: seller})
		for i := 0; i < confirmed; i++ {
			d.Leads = append(d.Leads, domain.Lead{SellerID: seller, Status: "Confirmed"})
		}
		for i := 0; i < other; i++ {
			d.Leads = append(d.Leads, domain.Lead{SellerID: seller, Status: "rejected"})
		}
	}
	addLeads("tiny", 0, 4)
	addLeads("cold", 0, 5)
	addLeads("hot", 10, 0)
	addLeads("normal", 5, 5)

	issues := conversionExtremes(d, DefaultOptions(testNow))
	if len(issues) != 2 || issues[0].RecordID != "cold" || issues[1].RecordID != "hot" {
		t.Fatalf("unexpected conversion extremes: %+v", issues)
	}
	if issues[0].Description != "conv=0.00 over 5 leads" {
		t.Fatalf("unexpected description %q", issues[0].Description)
	}
}

func TestConversionExtremesIgnoresUnknownSellers(t *testing.T) {
	d := &domain.Dataset{Sellers: []domain.Seller{{ID: "S1"}}}
	for i := 0; i < 5; i++ {
		d.Leads = append(d.Leads, domain.Lead{SellerID: "S9", Status: "confirmed"})
	}

	if issues := conversionExtremes(d, DefaultOptions(testNow)); len(issues) != 0 {
		t.Fatalf("leads of a seller missing from the sellers table must not be scored: %+v", issues)
	}
}
