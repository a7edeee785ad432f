package validation

import (
	"fmt"

	"github.com/rpattn/creditdq/internal/domain"
)

// reference is one child row pointing at a parent id.
type reference struct {
	recordID string
	value    string
}

// foreignKey declares a child-to-parent relationship. Optional keys accept an
// empty value; mandatory keys treat an empty value as an orphan.
type foreignKey struct {
	child    domain.EntityName
	field    string
	parent   domain.EntityName
	optional bool
	refs     func(d *domain.Dataset) []reference
}

var foreignKeys = []foreignKey{
	{
		child: domain.EntitySellers, field: "am_id", parent: domain.EntityAccountManagers, optional: true,
		refs: func(d *domain.Dataset) []reference {
			out := make([]reference, 0, len(d.Sellers))
			for _, s := range d.Sellers {
				out = append(out, reference{recordID: s.ID, value: s.AMID})
			}
			return out
		},
	},
	{
		child: domain.EntitySellers, field: "sam_id", parent: domain.EntitySeniorAccountManagers, optional: true,
		refs: func(d *domain.Dataset) []reference {
			out := make([]reference, 0, len(d.Sellers))
			for _, s := range d.Sellers {
				out = append(out, reference{recordID: s.ID, value: s.SAMID})
			}
			return out
		},
	},
	{
		child: domain.EntityAccountManagers, field: "sam_id", parent: domain.EntitySeniorAccountManagers, optional: true,
		refs: func(d *domain.Dataset) []reference {
			out := make([]reference, 0, len(d.AccountManagers))
			for _, am := range d.AccountManagers {
				out = append(out, reference{recordID: am.ID, value: am.SAMID})
			}
			return out
		},
	},
	{
		child: domain.EntityCredits, field: "seller_id", parent: domain.EntitySellers,
		refs: func(d *domain.Dataset) []reference {
			out := make([]reference, 0, len(d.Credits))
			for _, c := range d.Credits {
				out = append(out, reference{recordID: c.ID, value: c.SellerID})
			}
			return out
		},
	},
	{
		child: domain.EntityInvoices, field: "seller_id", parent: domain.EntitySellers,
		refs: func(d *domain.Dataset) []reference {
			out := make([]reference, 0, len(d.Invoices))
			for _, inv := range d.Invoices {
				out = append(out, reference{recordID: inv.ID, value: inv.SellerID})
			}
			return out
		},
	},
	{
		child: domain.EntityLeads, field: "seller_id", parent: domain.EntitySellers,
		refs: func(d *domain.Dataset) []reference {
			out := make([]reference, 0, len(d.Leads))
			for _, l := range d.Leads {
				out = append(out, reference{recordID: l.ID, value: l.SellerID})
			}
			return out
		},
	},
	{
		child: domain.EntityWalletTransactions, field: "seller_id", parent: domain.EntitySellers,
		refs: func(d *domain.Dataset) []reference {
			out := make([]reference, 0, len(d.WalletTransactions))
			for _, w := range d.WalletTransactions {
				out = append(out, reference{recordID: w.ID, value: w.SellerID})
			}
			return out
		},
	},
	{
		child: domain.EntityInvoiceItems, field: "invoice_id", parent: domain.EntityInvoices,
		refs: func(d *domain.Dataset) []reference {
			out := make([]reference, 0, len(d.InvoiceItems))
			for _, item := range d.InvoiceItems {
				out = append(out, reference{recordID: item.ID, value: item.InvoiceID})
			}
			return out
		},
	},
	{
		child: domain.EntityCreditHistories, field: "credit_id", parent: domain.EntityCredits,
		refs: func(d *domain.Dataset) []reference {
			out := make([]reference, 0, len(d.CreditHistories))
			for _, h := range d.CreditHistories {
				out = append(out, reference{recordID: h.ID, value: h.CreditID})
			}
			return out
		},
	},
	{
		child: domain.EntityCreditChat, field: "credit_id", parent: domain.EntityCredits,
		refs: func(d *domain.Dataset) []reference {
			out := make([]reference, 0, len(d.CreditChats))
			for _, chat := range d.CreditChats {
				out = append(out, reference{recordID: chat.ID, value: chat.CreditID})
			}
			return out
		},
	},
}

// CheckIntegrity reports orphaned foreign keys and duplicated identifiers.
// Parent id sets are built once per parent entity, so the check is linear in
// the number of rows. Relationships whose parent table was not loaded are
// skipped.
func CheckIntegrity(d *domain.Dataset) []domain.Issue {
	var issues []domain.Issue
	parents := make(map[domain.EntityName]map[string]struct{})

	for _, fk := range foreignKeys {
		if !d.Present(fk.parent) {
			continue
		}
		ids, ok := parents[fk.parent]
		if !ok {
			ids = idSet(d.RecordIDs(fk.parent))
			parents[fk.parent] = ids
		}

		for _, ref := range fk.refs(d) {
			if ref.value == "" {
				if fk.optional {
					continue
				}
				issues = append(issues, orphan(fk, ref.recordID, "<empty>"))
				continue
			}
			if _, ok := ids[ref.value]; !ok {
				issues = append(issues, orphan(fk, ref.recordID, ref.value))
			}
		}
	}

	for _, entity := range domain.Entities() {
		issues = append(issues, duplicates(entity, d.RecordIDs(entity))...)
	}
	return issues
}

func idSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func orphan(fk foreignKey, recordID, value string) domain.Issue {
	return domain.Issue{
		Entity:      fk.child,
		RecordID:    recordID,
		Code:        domain.IssueOrphanedReference,
		Severity:    domain.SeverityCritical,
		Description: fmt.Sprintf("%s %s not found in %s", fk.field, value, fk.parent),
	}
}

func duplicates(entity domain.EntityName, ids []string) []domain.Issue {
	var issues []domain.Issue
	seen := make(map[string]int, len(ids))
	for _, id := range ids {
		seen[id]++
		if n := seen[id]; n > 1 {
			issues = append(issues, domain.Issue{
				Entity:      entity,
				RecordID:    id,
				Code:        domain.IssueDuplicateID,
				Severity:    domain.SeverityWarning,
				Description: fmt.Sprintf("id %s repeated (occurrence %d)", id, n),
			})
		}
	}
	return issues
}
