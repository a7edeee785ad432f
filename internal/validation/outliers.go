package validation

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/rpattn/creditdq/internal/domain"

	"github.com/sirupsen/logrus"
)

// DetectOutliers flags distributional anomalies. All findings are Info and
// never influence the other checks. Rows a ratio cannot be computed for are
// skipped and logged at debug level.
func DetectOutliers(d *domain.Dataset, opts Options, logger logrus.FieldLogger) []domain.Issue {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	var issues []domain.Issue
	issues = append(issues, creditAmountOutliers(d, opts)...)
	issues = append(issues, feeRatioOutliers(d, opts, logger)...)
	issues = append(issues, sellersWithoutLeads(d)...)
	issues = append(issues, conversionExtremes(d, opts)...)
	return issues
}

// creditAmountOutliers flags credits strictly outside the configured
// percentile band of all credit amounts.
func creditAmountOutliers(d *domain.Dataset, opts Options) []domain.Issue {
	if len(d.Credits) == 0 {
		return nil
	}

	amounts := make([]float64, len(d.Credits))
	for i, c := range d.Credits {
		amounts[i] = c.Amount.InexactFloat64()
	}
	sort.Float64s(amounts)
	low := percentile(amounts, opts.OutlierPercentileLow)
	high := percentile(amounts, opts.OutlierPercentileHigh)

	var issues []domain.Issue
	for _, c := range d.Credits {
		amount := c.Amount.InexactFloat64()
		if amount >= low && amount <= high {
			continue
		}
		issues = append(issues, infoIssue(domain.EntityCredits, c.ID, domain.IssueAmountOutlier,
			fmt.Sprintf("%s outside [%s, %s]", c.Amount.String(), formatFloat(low), formatFloat(high))))
	}
	return issues
}

func feeRatioOutliers(d *domain.Dataset, opts Options, logger logrus.FieldLogger) []domain.Issue {
	var (
		issues  []domain.Issue
		skipped int
	)
	for _, inv := range d.Invoices {
		if inv.SalesAmount.IsZero() {
			skipped++
			logger.WithFields(logrus.Fields{
				"entity":    domain.EntityInvoices,
				"record_id": inv.ID,
			}).Debug("fee ratio skipped: sales_amount is zero")
			continue
		}
		ratio := inv.Fees.Div(inv.SalesAmount)
		if !ratio.LessThan(opts.FeeRatioLow) && !ratio.GreaterThan(opts.FeeRatioHigh) {
			continue
		}
		issues = append(issues, infoIssue(domain.EntityInvoices, inv.ID, domain.IssueFeeRatioOutlier,
			"fee_ratio="+ratio.StringFixed(3)))
	}
	if skipped > 0 {
		logger.WithFields(logrus.Fields{
			"check":   "fee_ratio_outlier",
			"skipped": skipped,
		}).Info("rows skipped for degenerate input")
	}
	return issues
}

func sellersWithoutLeads(d *domain.Dataset) []domain.Issue {
	leads := make(map[string]int, len(d.Sellers))
	for _, l := range d.Leads {
		leads[l.SellerID]++
	}
	openCredits := make(map[string]int, len(d.Sellers))
	for _, c := range d.Credits {
		if c.Status != domain.CreditStatusCancelled {
			openCredits[c.SellerID]++
		}
	}

	var issues []domain.Issue
	for _, s := range uniqueSellers(d) {
		if leads[s.ID] > 0 || openCredits[s.ID] == 0 {
			continue
		}
		issues = append(issues, infoIssue(domain.EntitySellers, s.ID, domain.IssueNoLeadsActiveCredit,
			fmt.Sprintf("%d non-cancelled credits but no leads", openCredits[s.ID])))
	}
	return issues
}

func conversionExtremes(d *domain.Dataset, opts Options) []domain.Issue {
	type tally struct {
		total     int
		confirmed int
	}
	tallies := make(map[string]*tally)
	for _, l := range d.Leads {
		t, ok := tallies[l.SellerID]
		if !ok {
			t = &tally{}
			tallies[l.SellerID] = t
		}
		t.total++
		if l.Confirmed() {
			t.confirmed++
		}
	}

	var issues []domain.Issue
	for _, s := range uniqueSellers(d) {
		sellerID := s.ID
		t, ok := tallies[sellerID]
		if !ok || t.total < opts.MinLeadsForConversionCheck {
			continue
		}
		rate := float64(t.confirmed) / float64(t.total)
		if rate >= opts.ConversionLow && rate <= opts.ConversionHigh {
			continue
		}
		issues = append(issues, infoIssue(domain.EntitySellers, sellerID, domain.IssueConversionExtreme,
			fmt.Sprintf("conv=%.2f over %d leads", rate, t.total)))
	}
	return issues
}

func infoIssue(entity domain.EntityName, id string, code domain.IssueCode, desc string) domain.Issue {
	return domain.Issue{
		Entity:      entity,
		RecordID:    id,
		Code:        code,
		Severity:    domain.SeverityInfo,
		Description: desc,
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
