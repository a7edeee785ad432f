package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// EntityName identifies one source table of the credit dataset.
type EntityName string

const (
	EntitySellers               EntityName = "sellers"
	EntityAccountManagers       EntityName = "account_managers"
	EntitySeniorAccountManagers EntityName = "senior_account_managers"
	EntityCredits               EntityName = "credits"
	EntityCreditHistories       EntityName = "credit_histories"
	EntityCreditChat            EntityName = "credit_chat"
	EntityInvoices              EntityName = "invoices"
	EntityInvoiceItems          EntityName = "invoice_items"
	EntityLeads                 EntityName = "leads"
	EntityWalletTransactions    EntityName = "wallet_transactions"
)

var entityLabels = map[EntityName]string{
	EntitySellers:               "Sellers",
	EntityAccountManagers:       "AccountManagers",
	EntitySeniorAccountManagers: "SeniorAccountManagers",
	EntityCredits:               "Credits",
	EntityCreditHistories:       "CreditHistories",
	EntityCreditChat:            "CreditChat",
	EntityInvoices:              "Invoices",
	EntityInvoiceItems:          "InvoiceItems",
	EntityLeads:                 "Leads",
	EntityWalletTransactions:    "WalletTransactions",
}

// Label returns the display name used in reports.
func (e EntityName) Label() string {
	if label, ok := entityLabels[e]; ok {
		return label
	}
	return string(e)
}

// Entities lists every entity in scorecard order.
func Entities() []EntityName {
	return []EntityName{
		EntitySellers,
		EntityCredits,
		EntityInvoices,
		EntityInvoiceItems,
		EntityLeads,
		EntityWalletTransactions,
		EntityAccountManagers,
		EntitySeniorAccountManagers,
		EntityCreditHistories,
		EntityCreditChat,
	}
}

// Market is the commercial region a seller operates in.
type Market string

const (
	MarketGCC  Market = "GCC"
	MarketAFRQ Market = "AFRQ"
)

// ParseMarket normalises a raw market value. The boolean reports whether the
// value is one of the known markets.
func ParseMarket(raw string) (Market, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "GCC":
		return MarketGCC, true
	case "AFRQ":
		return MarketAFRQ, true
	default:
		return Market(strings.TrimSpace(raw)), false
	}
}

// CreditStatus is the lifecycle state of a credit.
type CreditStatus string

const (
	CreditStatusUnknown   CreditStatus = ""
	CreditStatusNew       CreditStatus = "New"
	CreditStatusInReview  CreditStatus = "InReview"
	CreditStatusApproved  CreditStatus = "Approved"
	CreditStatusPaid      CreditStatus = "Paid"
	CreditStatusDeposit   CreditStatus = "Deposit"
	CreditStatusCancelled CreditStatus = "Cancelled"
)

// ParseCreditStatus maps loosely formatted status text ("in review",
// "IN_REVIEW", "canceled") onto the canonical status. Unrecognised values
// return CreditStatusUnknown and false.
func ParseCreditStatus(raw string) (CreditStatus, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.NewReplacer(" ", "", "_", "", "-", "").Replace(key)
	switch key {
	case "new":
		return CreditStatusNew, true
	case "inreview", "review":
		return CreditStatusInReview, true
	case "approved":
		return CreditStatusApproved, true
	case "paid":
		return CreditStatusPaid, true
	case "deposit":
		return CreditStatusDeposit, true
	case "cancelled", "canceled":
		return CreditStatusCancelled, true
	default:
		return CreditStatusUnknown, false
	}
}

// Terminal reports whether no further lifecycle transition is expected.
func (s CreditStatus) Terminal() bool {
	return s == CreditStatusPaid || s == CreditStatusDeposit || s == CreditStatusCancelled
}

// Live reports whether the status consumes seller credit limit.
func (s CreditStatus) Live() bool {
	return s == CreditStatusApproved || s == CreditStatusPaid || s == CreditStatusDeposit
}

// Seller is a merchant holding a credit line.
type Seller struct {
	ID             string
	Name           string
	Market         Market
	SignupDate     time.Time
	CreditLimit    decimal.Decimal
	AvgWeeklyLeads decimal.Decimal
	InitialWallet  decimal.Decimal
	AMID           string
	SAMID          string
}

// AccountManager owns a portfolio of sellers.
type AccountManager struct {
	ID    string
	Name  string
	Email string
	SAMID string
}

// SeniorAccountManager supervises account managers.
type SeniorAccountManager struct {
	ID    string
	Name  string
	Email string
}

// Credit is one credit issued to a seller.
type Credit struct {
	ID        string
	SellerID  string
	Amount    decimal.Decimal
	IssueDate time.Time
	DueDate   time.Time
	Status    CreditStatus
	RawStatus string
}

// StatusText returns the canonical status name, or the raw text when the
// stored value is not a known status.
func (c Credit) StatusText() string {
	if c.Status != CreditStatusUnknown {
		return string(c.Status)
	}
	return c.RawStatus
}

// CreditHistory is one append-only status transition for a credit.
type CreditHistory struct {
	ID        string
	CreditID  string
	Status    CreditStatus
	RawStatus string
	ChangedAt time.Time
	// Row is the zero-based source position, used to order entries that share
	// a timestamp.
	Row int
}

// CreditChat is a message exchanged about a credit.
type CreditChat struct {
	ID          string
	CreditID    string
	UserID      string
	Role        string
	MessageTime time.Time
	Message     string
}

// Invoice is a periodic settlement statement for a seller.
type Invoice struct {
	ID          string
	SellerID    string
	PeriodStart time.Time
	PeriodEnd   time.Time
	SalesAmount decimal.Decimal
	Fees        decimal.Decimal
	CreditsDue  decimal.Decimal
	FromBalance decimal.Decimal
	Total       decimal.Decimal
	// TotalSynthesized is set when the loader derived Total from its
	// components because the source carried no value.
	TotalSynthesized bool
}

// ExpectedTotal recomputes the invoice total from its components:
// sales_amount - fees - credits_due - abs(min(from_balance, 0)).
func (i Invoice) ExpectedTotal() decimal.Decimal {
	carried := decimal.Min(i.FromBalance, decimal.Zero).Abs()
	return i.SalesAmount.Sub(i.Fees).Sub(i.CreditsDue).Sub(carried)
}

// InvoiceItem is a single line of an invoice.
type InvoiceItem struct {
	ID        string
	InvoiceID string
	ItemType  string
	Amount    decimal.Decimal
}

// Lead is a customer order generated for a seller.
type Lead struct {
	ID          string
	SellerID    string
	CreatedDate time.Time
	Amount      decimal.Decimal
	Status      string
}

// Confirmed reports whether the lead converted.
func (l Lead) Confirmed() bool {
	return strings.EqualFold(strings.TrimSpace(l.Status), "confirmed")
}

// WalletTransaction is a signed movement on a seller wallet.
type WalletTransaction struct {
	ID        string
	SellerID  string
	Type      string
	Amount    decimal.Decimal
	CreatedAt time.Time
}
