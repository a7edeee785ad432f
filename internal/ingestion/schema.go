package ingestion

import (
	"fmt"
	"strings"

	"github.com/rpattn/creditdq/internal/domain"
)

// FieldSpec declares one logical field and the ordered list of source column
// names that may carry it. The first alias present in the table wins.
type FieldSpec struct {
	Name     string
	Aliases  []string
	Required bool
}

// TableSchema describes where an entity is read from and which fields it has.
type TableSchema struct {
	Entity   domain.EntityName
	Tables   []string
	Required bool
	Fields   []FieldSpec
}

// SchemaError reports a required table or field with no matching source.
type SchemaError struct {
	Entity  domain.EntityName
	Field   string
	Aliases []string
	Source  string
}

func (e *SchemaError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("schema error: required table %s not found (tried %s)", e.Entity, strings.Join(e.Aliases, ", "))
	}
	return fmt.Sprintf("schema error: %s (%s) has no column for required field %s (accepted: %s)",
		e.Entity, e.Source, e.Field, strings.Join(e.Aliases, ", "))
}

// Field constructors for the schema table below.

func idField(name string, aliases ...string) FieldSpec {
	return FieldSpec{Name: name, Aliases: aliases, Required: true}
}

func optionalIDField(name string, aliases ...string) FieldSpec {
	return FieldSpec{Name: name, Aliases: aliases}
}

func textField(name string, required bool, aliases ...string) FieldSpec {
	return FieldSpec{Name: name, Aliases: aliases, Required: required}
}

func amountField(name string, required bool, aliases ...string) FieldSpec {
	return FieldSpec{Name: name, Aliases: aliases, Required: required}
}

func dateField(name string, required bool, aliases ...string) FieldSpec {
	return FieldSpec{Name: name, Aliases: aliases, Required: required}
}

// Field names shared by the loader and the per-entity builders.
const (
	fieldID          = "id"
	fieldName        = "name"
	fieldEmail       = "email"
	fieldMarket      = "market"
	fieldSignupDate  = "signup_date"
	fieldCreditLimit = "credit_limit"
	fieldWeeklyLeads = "avg_weekly_leads"
	fieldWallet      = "initial_wallet"
	fieldAMID        = "am_id"
	fieldSAMID       = "sam_id"
	fieldSellerID    = "seller_id"
	fieldCreditID    = "credit_id"
	fieldInvoiceID   = "invoice_id"
	fieldAmount      = "amount"
	fieldIssueDate   = "issue_date"
	fieldDueDate     = "due_date"
	fieldStatus      = "status"
	fieldChangedAt   = "changed_at"
	fieldUserID      = "user_id"
	fieldRole        = "role"
	fieldMessageTime = "message_time"
	fieldMessage     = "message"
	fieldPeriodStart = "period_start"
	fieldPeriodEnd   = "period_end"
	fieldSales       = "sales_amount"
	fieldFees        = "fees"
	fieldCreditsDue  = "credits_due"
	fieldFromBalance = "from_balance"
	fieldTotal       = "total"
	fieldItemType    = "item_type"
	fieldCreatedAt   = "created_at"
	fieldType        = "type"
)

var schemas = []TableSchema{
	{
		Entity: domain.EntitySeniorAccountManagers,
		Tables: []string{"senior_account_managers", "sams"},
		Fields: []FieldSpec{
			idField(fieldID, "sam_id", "id"),
			textField(fieldName, false, "sam_name", "name"),
			textField(fieldEmail, false, "sam_email", "email"),
		},
	},
	{
		Entity: domain.EntityAccountManagers,
		Tables: []string{"account_managers", "ams"},
		Fields: []FieldSpec{
			idField(fieldID, "am_id", "id"),
			textField(fieldName, false, "am_name", "name"),
			textField(fieldEmail, false, "am_email", "email"),
			optionalIDField(fieldSAMID, "sam_id", "senior_account_manager_id"),
		},
	},
	{
		Entity:   domain.EntitySellers,
		Tables:   []string{"sellers"},
		Required: true,
		Fields: []FieldSpec{
			idField(fieldID, "seller_id", "id"),
			textField(fieldName, false, "seller_name", "name"),
			textField(fieldMarket, true, "market", "region"),
			dateField(fieldSignupDate, true, "signup_date", "signed_up_at", "created_at"),
			amountField(fieldCreditLimit, true, "credit_limit", "limit"),
			amountField(fieldWeeklyLeads, false, "avg_weekly_leads", "weekly_leads"),
			amountField(fieldWallet, false, "initial_wallet", "initial_wallet_balance", "wallet_balance"),
			optionalIDField(fieldAMID, "am_id", "account_manager_id"),
			optionalIDField(fieldSAMID, "sam_id", "senior_account_manager_id"),
		},
	},
	{
		Entity:   domain.EntityCredits,
		Tables:   []string{"credits"},
		Required: true,
		Fields: []FieldSpec{
			idField(fieldID, "credit_id", "id"),
			idField(fieldSellerID, "seller_id"),
			amountField(fieldAmount, true, "amount", "credit_amount"),
			dateField(fieldIssueDate, true, "issue_date", "issued_at"),
			dateField(fieldDueDate, true, "due_date", "due_at"),
			textField(fieldStatus, true, "status", "credit_status"),
		},
	},
	{
		Entity: domain.EntityCreditHistories,
		Tables: []string{"credit_histories", "credit_history"},
		Fields: []FieldSpec{
			optionalIDField(fieldID, "credit_history_id", "history_id", "id"),
			idField(fieldCreditID, "credit_id"),
			textField(fieldStatus, true, "status"),
			dateField(fieldChangedAt, true, "changed_at", "created_at", "event_time", "timestamp"),
		},
	},
	{
		Entity: domain.EntityCreditChat,
		Tables: []string{"credit_chat", "credit_chats"},
		Fields: []FieldSpec{
			optionalIDField(fieldID, "credit_chat_id", "message_id", "id"),
			idField(fieldCreditID, "credit_id"),
			optionalIDField(fieldUserID, "user_id"),
			textField(fieldRole, false, "role"),
			dateField(fieldMessageTime, false, "message_time", "created_at"),
			textField(fieldMessage, false, "message", "body"),
		},
	},
	{
		Entity:   domain.EntityInvoices,
		Tables:   []string{"invoices"},
		Required: true,
		Fields: []FieldSpec{
			idField(fieldID, "invoice_id", "id"),
			idField(fieldSellerID, "seller_id"),
			dateField(fieldPeriodStart, true, "period_start", "start_date"),
			dateField(fieldPeriodEnd, false, "period_end", "end_date"),
			amountField(fieldSales, true, "sales_amount", "amount_sales", "sales"),
			amountField(fieldFees, true, "fees", "fee", "total_fees"),
			amountField(fieldCreditsDue, true, "credits_due", "credit_due", "credits"),
			amountField(fieldFromBalance, true, "from_balance", "prev_balance", "carryover"),
			amountField(fieldTotal, false, "total", "invoice_total", "amount_total", "grand_total", "invoice_amount", "total_amount"),
		},
	},
	{
		Entity: domain.EntityInvoiceItems,
		Tables: []string{"invoice_items"},
		Fields: []FieldSpec{
			optionalIDField(fieldID, "invoice_item_id", "item_id", "id"),
			idField(fieldInvoiceID, "invoice_id"),
			textField(fieldItemType, false, "item_type", "type"),
			amountField(fieldAmount, true, "amount", "line_total", "total", "net_amount", "subtotal", "price_total"),
		},
	},
	{
		Entity:   domain.EntityLeads,
		Tables:   []string{"leads"},
		Required: true,
		Fields: []FieldSpec{
			idField(fieldID, "lead_id", "id"),
			idField(fieldSellerID, "seller_id"),
			dateField(fieldCreatedAt, true, "created_at", "created_date", "lead_date"),
			amountField(fieldAmount, false, "amount", "lead_amount"),
			textField(fieldStatus, true, "status", "confirmation_status"),
		},
	},
	{
		Entity: domain.EntityWalletTransactions,
		Tables: []string{"wallet_transactions", "wallet"},
		Fields: []FieldSpec{
			idField(fieldID, "transaction_id", "wallet_id", "id"),
			idField(fieldSellerID, "seller_id"),
			textField(fieldType, false, "type", "transaction_type"),
			amountField(fieldAmount, true, "amount", "value", "delta", "transaction_amount"),
			dateField(fieldCreatedAt, false, "created_at", "created_date"),
		},
	},
}

// Schemas returns the schema descriptors in load order.
func Schemas() []TableSchema {
	out := make([]TableSchema, len(schemas))
	copy(out, schemas)
	return out
}

// resolvedTable is a raw table whose logical fields have been bound to column
// positions. Downstream code never looks at aliases again.
type resolvedTable struct {
	schema  TableSchema
	raw     domain.RawTable
	columns map[string]int
}

func resolve(schema TableSchema, raw domain.RawTable) (resolvedTable, error) {
	positions := make(map[string]int, len(raw.Headers))
	for idx, header := range raw.Headers {
		if _, ok := positions[header]; !ok {
			positions[header] = idx
		}
	}

	columns := make(map[string]int, len(schema.Fields))
	for _, field := range schema.Fields {
		for _, alias := range field.Aliases {
			if idx, ok := positions[alias]; ok {
				columns[field.Name] = idx
				break
			}
		}
		if _, ok := columns[field.Name]; !ok && field.Required {
			return resolvedTable{}, &SchemaError{
				Entity:  schema.Entity,
				Field:   field.Name,
				Aliases: field.Aliases,
				Source:  raw.Source,
			}
		}
	}

	return resolvedTable{schema: schema, raw: raw, columns: columns}, nil
}

func (t resolvedTable) has(field string) bool {
	_, ok := t.columns[field]
	return ok
}
