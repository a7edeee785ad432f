package domain

import "errors"

// ErrTableNotFound is returned by table sources when none of the candidate
// table names exist.
var ErrTableNotFound = errors.New("table not found")

// RawTable is an untyped tabular extract: sanitised headers and string cells.
type RawTable struct {
	Name    string
	Source  string
	Headers []string
	Rows    [][]string
	// RowNumbers holds the 1-based source line of each data row. Sources
	// without line numbering leave it empty; their rows are numbered from 2.
	RowNumbers []int
}

// Dataset is the typed, immutable snapshot a validation run operates on.
type Dataset struct {
	Sellers               []Seller
	AccountManagers       []AccountManager
	SeniorAccountManagers []SeniorAccountManager
	Credits               []Credit
	CreditHistories       []CreditHistory
	CreditChats           []CreditChat
	Invoices              []Invoice
	InvoiceItems          []InvoiceItem
	Leads                 []Lead
	WalletTransactions    []WalletTransaction

	// InvoiceTotalSynthesized is set when the invoice table had no total
	// column and every total was derived by the loader.
	InvoiceTotalSynthesized bool

	// LoadIssues holds row-level problems recorded while coercing values.
	LoadIssues []Issue

	present map[EntityName]bool
}

// MarkPresent records that the entity's table was found in the source.
func (d *Dataset) MarkPresent(entity EntityName) {
	if d.present == nil {
		d.present = make(map[EntityName]bool)
	}
	d.present[entity] = true
}

// Present reports whether the entity's table was loaded from the source. A
// table holding records counts as present even if it was never marked.
func (d *Dataset) Present(entity EntityName) bool {
	return d.present[entity] || d.Count(entity) > 0
}

// Count returns the number of records loaded for an entity.
func (d *Dataset) Count(entity EntityName) int {
	switch entity {
	case EntitySellers:
		return len(d.Sellers)
	case EntityAccountManagers:
		return len(d.AccountManagers)
	case EntitySeniorAccountManagers:
		return len(d.SeniorAccountManagers)
	case EntityCredits:
		return len(d.Credits)
	case EntityCreditHistories:
		return len(d.CreditHistories)
	case EntityCreditChat:
		return len(d.CreditChats)
	case EntityInvoices:
		return len(d.Invoices)
	case EntityInvoiceItems:
		return len(d.InvoiceItems)
	case EntityLeads:
		return len(d.Leads)
	case EntityWalletTransactions:
		return len(d.WalletTransactions)
	default:
		return 0
	}
}

// SellerIndex maps seller id to its first position in Sellers.
func (d *Dataset) SellerIndex() map[string]int {
	index := make(map[string]int, len(d.Sellers))
	for i, seller := range d.Sellers {
		if _, ok := index[seller.ID]; !ok {
			index[seller.ID] = i
		}
	}
	return index
}

// RecordIDs returns the record identifiers of an entity in source order.
func (d *Dataset) RecordIDs(entity EntityName) []string {
	var ids []string
	add := func(id string) { ids = append(ids, id) }
	switch entity {
	case EntitySellers:
		for _, r := range d.Sellers {
			add(r.ID)
		}
	case EntityAccountManagers:
		for _, r := range d.AccountManagers {
			add(r.ID)
		}
	case EntitySeniorAccountManagers:
		for _, r := range d.SeniorAccountManagers {
			add(r.ID)
		}
	case EntityCredits:
		for _, r := range d.Credits {
			add(r.ID)
		}
	case EntityCreditHistories:
		for _, r := range d.CreditHistories {
			add(r.ID)
		}
	case EntityCreditChat:
		for _, r := range d.CreditChats {
			add(r.ID)
		}
	case EntityInvoices:
		for _, r := range d.Invoices {
			add(r.ID)
		}
	case EntityInvoiceItems:
		for _, r := range d.InvoiceItems {
			add(r.ID)
		}
	case EntityLeads:
		for _, r := range d.Leads {
			add(r.ID)
		}
	case EntityWalletTransactions:
		for _, r := range d.WalletTransactions {
			add(r.ID)
		}
	}
	return ids
}
