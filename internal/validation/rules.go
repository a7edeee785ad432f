package validation

import (
	"fmt"
	"time"

	"github.com/rpattn/creditdq/internal/domain"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// relativeEpsilon bounds the denominator of the relative wallet tolerance.
var relativeEpsilon = decimal.New(1, -9)

// CheckBusinessRules runs the credit limit, invoice arithmetic, temporal and
// wallet reconciliation checks. Every check runs regardless of what the
// others find.
func CheckBusinessRules(d *domain.Dataset, opts Options) []domain.Issue {
	var issues []domain.Issue
	issues = append(issues, checkCreditLimits(d)...)
	issues = append(issues, checkInvoiceArithmetic(d)...)
	issues = append(issues, checkTemporal(d)...)
	issues = append(issues, checkWalletReconciliation(d, opts)...)
	return issues
}

// uniqueSellers yields sellers in source order, first occurrence per id.
func uniqueSellers(d *domain.Dataset) []domain.Seller {
	seen := make(map[string]struct{}, len(d.Sellers))
	out := make([]domain.Seller, 0, len(d.Sellers))
	for _, s := range d.Sellers {
		if _, ok := seen[s.ID]; ok {
			continue
		}
		seen[s.ID] = struct{}{}
		out = append(out, s)
	}
	return out
}

func checkCreditLimits(d *domain.Dataset) []domain.Issue {
	exposure := make(map[string]decimal.Decimal)
	for _, c := range d.Credits {
		if !c.Status.Live() {
			continue
		}
		exposure[c.SellerID] = exposure[c.SellerID].Add(c.Amount)
	}

	var issues []domain.Issue
	for _, s := range uniqueSellers(d) {
		sum, ok := exposure[s.ID]
		if !ok || !sum.GreaterThan(s.CreditLimit) {
			continue
		}
		issues = append(issues, domain.Issue{
			Entity:      domain.EntitySellers,
			RecordID:    s.ID,
			Code:        domain.IssueCreditLimitExceeded,
			Severity:    domain.SeverityCritical,
			Description: fmt.Sprintf("%s > %s", sum.String(), s.CreditLimit.String()),
		})
	}
	return issues
}

func checkInvoiceArithmetic(d *domain.Dataset) []domain.Issue {
	var issues []domain.Issue
	for _, inv := range d.Invoices {
		if inv.TotalSynthesized {
			continue
		}
		expected := inv.ExpectedTotal()
		if expected.Equal(inv.Total) {
			continue
		}
		issues = append(issues, domain.Issue{
			Entity:      domain.EntityInvoices,
			RecordID:    inv.ID,
			Code:        domain.IssueArithmeticError,
			Severity:    domain.SeverityCritical,
			Description: fmt.Sprintf("expected %s, got %s", expected.String(), inv.Total.String()),
		})
	}
	return issues
}

func checkTemporal(d *domain.Dataset) []domain.Issue {
	signup := make(map[string]time.Time, len(d.Sellers))
	for _, s := range uniqueSellers(d) {
		if !s.SignupDate.IsZero() {
			signup[s.ID] = s.SignupDate
		}
	}

	var issues []domain.Issue
	for _, l := range d.Leads {
		joined, ok := signup[l.SellerID]
		if !ok || l.CreatedDate.IsZero() || !l.CreatedDate.Before(joined) {
			continue
		}
		issues = append(issues, temporalIssue(domain.EntityLeads, l.ID, domain.IssueLeadBeforeSignup,
			fmt.Sprintf("lead created %s before signup %s", l.CreatedDate.Format(dateLayout), joined.Format(dateLayout))))
	}

	for _, c := range d.Credits {
		if joined, ok := signup[c.SellerID]; ok && !c.IssueDate.IsZero() && c.IssueDate.Before(joined) {
			issues = append(issues, temporalIssue(domain.EntityCredits, c.ID, domain.IssueCreditBeforeSignup,
				fmt.Sprintf("issued %s before signup %s", c.IssueDate.Format(dateLayout), joined.Format(dateLayout))))
		}
		if !c.IssueDate.IsZero() && !c.DueDate.IsZero() && c.DueDate.Before(c.IssueDate) {
			issues = append(issues, temporalIssue(domain.EntityCredits, c.ID, domain.IssueDueBeforeIssue,
				fmt.Sprintf("due %s before issue %s", c.DueDate.Format(dateLayout), c.IssueDate.Format(dateLayout))))
		}
	}
	return issues
}

func temporalIssue(entity domain.EntityName, id string, code domain.IssueCode, desc string) domain.Issue {
	return domain.Issue{
		Entity:      entity,
		RecordID:    id,
		Code:        code,
		Severity:    domain.SeverityWarning,
		Description: desc,
	}
}

// checkWalletReconciliation compares per-seller wallet and invoice sums for
// every seller in the sellers table. A seller is flagged only when the
// difference breaches both the absolute and the relative tolerance. Rows for
// unknown sellers are left to the orphaned reference check. The check is
// skipped when no wallet table was loaded.
func checkWalletReconciliation(d *domain.Dataset, opts Options) []domain.Issue {
	if !d.Present(domain.EntityWalletTransactions) {
		return nil
	}

	wallet := make(map[string]decimal.Decimal)
	for _, w := range d.WalletTransactions {
		wallet[w.SellerID] = wallet[w.SellerID].Add(w.Amount)
	}
	invoiced := make(map[string]decimal.Decimal)
	for _, inv := range d.Invoices {
		invoiced[inv.SellerID] = invoiced[inv.SellerID].Add(inv.Total)
	}

	var issues []domain.Issue
	for _, s := range uniqueSellers(d) {
		sellerID := s.ID
		walletSum, invoiceSum := wallet[sellerID], invoiced[sellerID]
		diff := walletSum.Sub(invoiceSum).Abs()
		if !diff.GreaterThan(opts.AbsoluteTolerance) {
			continue
		}
		relative := diff.Div(decimal.Max(invoiceSum.Abs(), relativeEpsilon))
		if !relative.GreaterThan(opts.RelativeTolerance) {
			continue
		}
		issues = append(issues, domain.Issue{
			Entity:      domain.EntitySellers,
			RecordID:    sellerID,
			Code:        domain.IssueWalletInvoiceMismatch,
			Severity:    domain.SeverityWarning,
			Description: fmt.Sprintf("wallet_sum=%s vs invoice_sum=%s", walletSum.String(), invoiceSum.String()),
		})
	}
	return issues
}
