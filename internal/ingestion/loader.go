package ingestion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rpattn/creditdq/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// TableSource yields raw tables. ReadTable returns domain.ErrTableNotFound
// when none of the candidate names exist.
type TableSource interface {
	ReadTable(ctx context.Context, candidates []string) (domain.RawTable, error)
}

// Loader turns raw tables into a typed dataset.
type Loader struct {
	logger logrus.FieldLogger
}

// NewLoader creates a loader that logs through logger.
func NewLoader(logger logrus.FieldLogger) *Loader {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Loader{logger: logger.WithField("component", "ingestion")}
}

// Load reads every known entity from src. A *SchemaError is returned when a
// required table or required field cannot be resolved; in that case no
// dataset is produced.
func (l *Loader) Load(ctx context.Context, src TableSource) (*domain.Dataset, error) {
	if src == nil {
		return nil, errors.New("table source is required")
	}

	dataset := &domain.Dataset{}
	for _, schema := range schemas {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		raw, err := src.ReadTable(ctx, schema.Tables)
		if errors.Is(err, domain.ErrTableNotFound) || errors.Is(err, ErrEmptyTable) {
			if schema.Required {
				return nil, &SchemaError{Entity: schema.Entity, Aliases: schema.Tables}
			}
			l.logger.WithFields(logrus.Fields{
				"entity": schema.Entity,
				"reason": err,
			}).Info("optional table not available, treating as empty")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", schema.Entity, err)
		}

		table, err := resolve(schema, raw)
		if err != nil {
			return nil, err
		}

		dataset.MarkPresent(schema.Entity)
		before := len(dataset.LoadIssues)
		l.build(table, dataset)

		l.logger.WithFields(logrus.Fields{
			"entity":         schema.Entity,
			"source":         raw.Source,
			"rows":           len(raw.Rows),
			"invalid_values": len(dataset.LoadIssues) - before,
		}).Info("table loaded")
	}

	return dataset, nil
}

func (l *Loader) build(t resolvedTable, d *domain.Dataset) {
	switch t.schema.Entity {
	case domain.EntitySeniorAccountManagers:
		t.each(d, func(r *rowReader) {
			d.SeniorAccountManagers = append(d.SeniorAccountManagers, domain.SeniorAccountManager{
				ID:    r.recordID,
				Name:  r.text(fieldName),
				Email: r.text(fieldEmail),
			})
		})
	case domain.EntityAccountManagers:
		t.each(d, func(r *rowReader) {
			d.AccountManagers = append(d.AccountManagers, domain.AccountManager{
				ID:    r.recordID,
				Name:  r.text(fieldName),
				Email: r.text(fieldEmail),
				SAMID: r.id(fieldSAMID),
			})
		})
	case domain.EntitySellers:
		t.each(d, func(r *rowReader) {
			seller := domain.Seller{
				ID:             r.recordID,
				Name:           r.text(fieldName),
				SignupDate:     r.date(fieldSignupDate),
				CreditLimit:    r.decimal(fieldCreditLimit),
				AvgWeeklyLeads: r.decimal(fieldWeeklyLeads),
				InitialWallet:  r.decimal(fieldWallet),
				AMID:           r.id(fieldAMID),
				SAMID:          r.id(fieldSAMID),
			}
			market, ok := domain.ParseMarket(r.text(fieldMarket))
			if !ok && market != "" {
				r.invalid(fieldMarket, string(market), "unknown market")
			}
			seller.Market = market
			if seller.CreditLimit.IsNegative() {
				r.invalid(fieldCreditLimit, seller.CreditLimit.String(), "credit limit must not be negative")
			}
			d.Sellers = append(d.Sellers, seller)
		})
	case domain.EntityCredits:
		t.each(d, func(r *rowReader) {
			raw := r.text(fieldStatus)
			status, ok := domain.ParseCreditStatus(raw)
			if !ok && raw != "" {
				r.invalid(fieldStatus, raw, "unknown credit status")
			}
			d.Credits = append(d.Credits, domain.Credit{
				ID:        r.recordID,
				SellerID:  r.id(fieldSellerID),
				Amount:    r.decimal(fieldAmount),
				IssueDate: r.date(fieldIssueDate),
				DueDate:   r.date(fieldDueDate),
				Status:    status,
				RawStatus: raw,
			})
		})
	case domain.EntityCreditHistories:
		t.each(d, func(r *rowReader) {
			raw := r.text(fieldStatus)
			status, _ := domain.ParseCreditStatus(raw)
			d.CreditHistories = append(d.CreditHistories, domain.CreditHistory{
				ID:        r.recordID,
				CreditID:  r.id(fieldCreditID),
				Status:    status,
				RawStatus: raw,
				ChangedAt: r.date(fieldChangedAt),
				Row:       r.index,
			})
		})
	case domain.EntityCreditChat:
		t.each(d, func(r *rowReader) {
			d.CreditChats = append(d.CreditChats, domain.CreditChat{
				ID:          r.recordID,
				CreditID:    r.id(fieldCreditID),
				UserID:      r.id(fieldUserID),
				Role:        r.text(fieldRole),
				MessageTime: r.date(fieldMessageTime),
				Message:     r.text(fieldMessage),
			})
		})
	case domain.EntityInvoices:
		hasTotalColumn := t.has(fieldTotal)
		if !hasTotalColumn {
			d.InvoiceTotalSynthesized = true
			l.logger.WithField("entity", t.schema.Entity).Info("no total column; synthesizing totals from components")
		}
		t.each(d, func(r *rowReader) {
			invoice := domain.Invoice{
				ID:          r.recordID,
				SellerID:    r.id(fieldSellerID),
				PeriodStart: r.date(fieldPeriodStart),
				PeriodEnd:   r.date(fieldPeriodEnd),
				SalesAmount: r.decimal(fieldSales),
				Fees:        r.decimal(fieldFees),
				CreditsDue:  r.decimal(fieldCreditsDue),
				FromBalance: r.decimal(fieldFromBalance),
			}
			total, present := r.optionalDecimal(fieldTotal)
			if present {
				invoice.Total = total
			} else {
				invoice.Total = invoice.ExpectedTotal()
				invoice.TotalSynthesized = true
				if hasTotalColumn {
					l.logger.WithFields(logrus.Fields{
						"entity":    t.schema.Entity,
						"record_id": r.recordID,
					}).Debug("empty total; synthesized from components")
				}
			}
			d.Invoices = append(d.Invoices, invoice)
		})
	case domain.EntityInvoiceItems:
		t.each(d, func(r *rowReader) {
			d.InvoiceItems = append(d.InvoiceItems, domain.InvoiceItem{
				ID:        r.recordID,
				InvoiceID: r.id(fieldInvoiceID),
				ItemType:  r.text(fieldItemType),
				Amount:    r.decimal(fieldAmount),
			})
		})
	case domain.EntityLeads:
		t.each(d, func(r *rowReader) {
			d.Leads = append(d.Leads, domain.Lead{
				ID:          r.recordID,
				SellerID:    r.id(fieldSellerID),
				CreatedDate: r.date(fieldCreatedAt),
				Amount:      r.decimal(fieldAmount),
				Status:      r.text(fieldStatus),
			})
		})
	case domain.EntityWalletTransactions:
		t.each(d, func(r *rowReader) {
			d.WalletTransactions = append(d.WalletTransactions, domain.WalletTransaction{
				ID:        r.recordID,
				SellerID:  r.id(fieldSellerID),
				Type:      r.text(fieldType),
				Amount:    r.decimal(fieldAmount),
				CreatedAt: r.date(fieldCreatedAt),
			})
		})
	}
}

// each walks the data rows in source order.
func (t resolvedTable) each(d *domain.Dataset, fn func(r *rowReader)) {
	for idx, row := range t.raw.Rows {
		r := &rowReader{
			table:   t,
			row:     row,
			index:   idx,
			dataset: d,
		}
		r.recordID = r.id(fieldID)
		if r.recordID == "" {
			r.recordID = r.fallbackID()
		}
		fn(r)
	}
}

// rowReader reads typed values from one row. Values that fail to coerce are
// recorded as invalid_value issues and read as their zero value.
type rowReader struct {
	table    resolvedTable
	row      []string
	index    int
	recordID string
	dataset  *domain.Dataset
}

// rowNumber is the source line of the row, counting the header as line 1
// when the source carries no line numbers.
func (r *rowReader) rowNumber() int {
	if numbers := r.table.raw.RowNumbers; r.index < len(numbers) {
		return numbers[r.index]
	}
	return r.index + 2
}

// fallbackID names rows of tables without their own key, e.g. credit
// histories keyed only by credit_id.
func (r *rowReader) fallbackID() string {
	for _, parent := range []string{fieldCreditID, fieldInvoiceID} {
		if value := r.id(parent); value != "" {
			return fmt.Sprintf("%s#%d", value, r.index+1)
		}
	}
	return fmt.Sprintf("row-%d", r.rowNumber())
}

func (r *rowReader) raw(field string) (string, bool) {
	idx, ok := r.table.columns[field]
	if !ok || idx >= len(r.row) {
		return "", false
	}
	return strings.TrimSpace(r.row[idx]), true
}

func (r *rowReader) text(field string) string {
	value, _ := r.raw(field)
	return value
}

func (r *rowReader) id(field string) string {
	value, _ := r.raw(field)
	return normalizeID(value)
}

func (r *rowReader) decimal(field string) decimal.Decimal {
	value, _ := r.optionalDecimal(field)
	return value
}

// optionalDecimal reports whether the cell carried a usable number.
func (r *rowReader) optionalDecimal(field string) (decimal.Decimal, bool) {
	raw, ok := r.raw(field)
	if !ok {
		return decimal.Zero, false
	}
	value, present, err := parseDecimal(raw)
	if err != nil {
		r.invalid(field, raw, "not a number")
		return decimal.Zero, false
	}
	return value, present
}

func (r *rowReader) date(field string) time.Time {
	raw, ok := r.raw(field)
	if !ok || raw == "" || strings.EqualFold(raw, "nat") || strings.EqualFold(raw, "null") {
		return time.Time{}
	}
	ts, err := parseTimestamp(raw)
	if err != nil {
		r.invalid(field, raw, "not a date")
		return time.Time{}
	}
	return ts
}

func (r *rowReader) invalid(field, raw, reason string) {
	r.dataset.LoadIssues = append(r.dataset.LoadIssues, domain.Issue{
		Entity:      r.table.schema.Entity,
		RecordID:    r.recordID,
		Code:        domain.IssueInvalidValue,
		Severity:    domain.SeverityWarning,
		Description: fmt.Sprintf("row %d: %s %q %s", r.rowNumber(), field, raw, reason),
	})
}
