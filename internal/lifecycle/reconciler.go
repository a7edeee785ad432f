package lifecycle

import (
	"fmt"
	"sort"
	"time"

	"github.com/rpattn/creditdq/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Rule names the precedence rule that produced an expected status.
type Rule string

const (
	// RuleHistoryTerminal: the latest history entry is terminal and wins.
	RuleHistoryTerminal Rule = "history_terminal"
	// RuleNoInvoiceEvidence: inv_sum <= 0, the credit is treated as unconsumed.
	RuleNoInvoiceEvidence Rule = "no_invoice_evidence"
	// RuleInvoicedNotDue: positive inv_sum before the due date.
	RuleInvoicedNotDue Rule = "invoiced_not_due"
	// RuleInvoicedDuePassed: positive inv_sum after the due date. Without a
	// terminal history entry completion is never asserted, so this still
	// yields Approved.
	RuleInvoicedDuePassed Rule = "invoiced_due_passed"
)

// Options configures the reconciler.
type Options struct {
	// AsOf is the reference instant due dates are compared against.
	AsOf time.Time
	// ScopeToCreditWindow additionally bounds counted invoices above by the
	// earlier of the seller's next credit issue date and the due date.
	ScopeToCreditWindow bool
}

// Derivation is the trace of one expected-status computation.
type Derivation struct {
	CreditID   string
	Expected   domain.CreditStatus
	Rule       Rule
	InvoiceSum decimal.Decimal
	DuePassed  bool
	// WindowEnd is the exclusive upper bound applied to invoice periods, zero
	// when unbounded.
	WindowEnd time.Time
}

// Evidence is the per-dataset index the reconciler derives statuses from.
type Evidence struct {
	invoicesBySeller map[string][]domain.Invoice
	latestHistory    map[string]domain.CreditHistory
	issueDates       map[string][]time.Time
}

// NewEvidence indexes invoices by seller, the latest history entry per
// credit, and credit issue dates per seller.
func NewEvidence(d *domain.Dataset) *Evidence {
	ev := &Evidence{
		invoicesBySeller: make(map[string][]domain.Invoice),
		latestHistory:    make(map[string]domain.CreditHistory),
		issueDates:       make(map[string][]time.Time),
	}
	for _, inv := range d.Invoices {
		ev.invoicesBySeller[inv.SellerID] = append(ev.invoicesBySeller[inv.SellerID], inv)
	}
	for _, h := range d.CreditHistories {
		current, ok := ev.latestHistory[h.CreditID]
		if !ok || h.ChangedAt.After(current.ChangedAt) || (h.ChangedAt.Equal(current.ChangedAt) && h.Row > current.Row) {
			ev.latestHistory[h.CreditID] = h
		}
	}
	for _, c := range d.Credits {
		if !c.IssueDate.IsZero() {
			ev.issueDates[c.SellerID] = append(ev.issueDates[c.SellerID], c.IssueDate)
		}
	}
	for seller := range ev.issueDates {
		dates := ev.issueDates[seller]
		sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	}
	return ev
}

// nextIssueDate returns the seller's first credit issue date strictly after
// issued, or zero.
func (ev *Evidence) nextIssueDate(sellerID string, issued time.Time) time.Time {
	dates := ev.issueDates[sellerID]
	idx := sort.Search(len(dates), func(i int) bool { return dates[i].After(issued) })
	if idx < len(dates) {
		return dates[idx]
	}
	return time.Time{}
}

// Reconciler reconstructs expected credit statuses and reports drift from
// the stored status. It never modifies its input.
type Reconciler struct {
	opts   Options
	logger logrus.FieldLogger
}

// NewReconciler creates a reconciler.
func NewReconciler(opts Options, logger logrus.FieldLogger) *Reconciler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Reconciler{opts: opts, logger: logger.WithField("component", "lifecycle")}
}

// Derive computes the expected status of credit. Rules are evaluated in
// order and the first match wins:
//
//  1. the latest history entry is terminal: its status
//  2. inv_sum <= 0: InReview
//  3. inv_sum > 0, due date not passed: Approved
//  4. inv_sum > 0, due date passed: Approved
func (r *Reconciler) Derive(credit domain.Credit, ev *Evidence) Derivation {
	windowEnd := r.windowEnd(credit, ev)
	invSum := decimal.Zero
	for _, inv := range ev.invoicesBySeller[credit.SellerID] {
		if inv.PeriodStart.IsZero() {
			continue
		}
		if !credit.IssueDate.IsZero() && inv.PeriodStart.Before(credit.IssueDate) {
			continue
		}
		if !windowEnd.IsZero() && !inv.PeriodStart.Before(windowEnd) {
			continue
		}
		invSum = invSum.Add(inv.Total)
	}

	out := Derivation{
		CreditID:   credit.ID,
		InvoiceSum: invSum,
		DuePassed:  !credit.DueDate.IsZero() && credit.DueDate.Before(r.opts.AsOf),
		WindowEnd:  windowEnd,
	}

	if h, ok := ev.latestHistory[credit.ID]; ok && h.Status.Terminal() {
		out.Expected, out.Rule = h.Status, RuleHistoryTerminal
		return out
	}

	switch {
	case !invSum.IsPositive():
		out.Expected, out.Rule = domain.CreditStatusInReview, RuleNoInvoiceEvidence
	case !out.DuePassed:
		out.Expected, out.Rule = domain.CreditStatusApproved, RuleInvoicedNotDue
	default:
		out.Expected, out.Rule = domain.CreditStatusApproved, RuleInvoicedDuePassed
	}
	return out
}

func (r *Reconciler) windowEnd(credit domain.Credit, ev *Evidence) time.Time {
	if !r.opts.ScopeToCreditWindow {
		return time.Time{}
	}
	end := credit.DueDate
	if credit.IssueDate.IsZero() {
		return end
	}
	if next := ev.nextIssueDate(credit.SellerID, credit.IssueDate); !next.IsZero() && (end.IsZero() || next.Before(end)) {
		end = next
	}
	return end
}

// Reconcile derives every credit's expected status and returns one Warning
// status_mismatch issue per credit whose stored status differs. A stored
// status that is not a known status always mismatches.
func (r *Reconciler) Reconcile(d *domain.Dataset) []domain.Issue {
	ev := NewEvidence(d)
	rules := make(map[Rule]int)

	var issues []domain.Issue
	for _, credit := range d.Credits {
		derivation := r.Derive(credit, ev)
		rules[derivation.Rule]++
		if credit.Status != domain.CreditStatusUnknown && credit.Status == derivation.Expected {
			continue
		}
		issues = append(issues, domain.Issue{
			Entity:   domain.EntityCredits,
			RecordID: credit.ID,
			Code:     domain.IssueStatusMismatch,
			Severity: domain.SeverityWarning,
			Description: fmt.Sprintf("actual=%s, expected=%s, inv_sum=%s, issued=%s",
				credit.StatusText(), derivation.Expected, derivation.InvoiceSum.String(), credit.Amount.String()),
		})
	}

	r.logger.WithFields(logrus.Fields{
		"credits":    len(d.Credits),
		"mismatches": len(issues),
		"rules":      rules,
	}).Info("credit lifecycle reconciled")
	return issues
}
