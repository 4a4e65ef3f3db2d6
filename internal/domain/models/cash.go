package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MovementType is the direction of a manual cash movement.
type MovementType string

const (
	MovementIncome  MovementType = "income"
	MovementExpense MovementType = "expense"
)

// Valid reports whether t is a known movement type.
func (t MovementType) Valid() bool {
	return t == MovementIncome || t == MovementExpense
}

// MovementSource selects the account a manual movement touches.
type MovementSource string

const (
	SourceCapital MovementSource = "capital"
	SourceProfit  MovementSource = "profit"
)

// Valid reports whether s is a known source.
func (s MovementSource) Valid() bool {
	return s == SourceCapital || s == SourceProfit
}

// Account names the two ledger documents.
type Account string

const (
	AccountCapital Account = "Capital"
	AccountProfit  Account = "Ganancia"
)

// Accounts lists both ledger accounts in display order.
var Accounts = []Account{AccountCapital, AccountProfit}

// CashMovement is a manual income or expense against one account.
type CashMovement struct {
	ID          string          `bson:"_id" json:"id"`
	Type        MovementType    `bson:"type" json:"type"`
	Amount      decimal.Decimal `bson:"amount" json:"amount"`
	Source      MovementSource  `bson:"source" json:"source"`
	Description string          `bson:"description" json:"description"`
	CreatedAt   time.Time       `bson:"createdAt" json:"createdAt"`
}

// Delta is the signed effect of the movement on the balances.
func (m CashMovement) Delta() Balances {
	amount := m.Amount
	if m.Type == MovementExpense {
		amount = amount.Neg()
	}
	if m.Source == SourceProfit {
		return Balances{Capital: decimal.Zero, Profit: amount}
	}
	return Balances{Capital: amount, Profit: decimal.Zero}
}

// Balances holds the two account amounts, or a signed change to them.
type Balances struct {
	Capital decimal.Decimal `json:"capital"`
	Profit  decimal.Decimal `json:"profit"`
}

// Add returns the element-wise sum.
func (b Balances) Add(other Balances) Balances {
	return Balances{Capital: b.Capital.Add(other.Capital), Profit: b.Profit.Add(other.Profit)}
}

// Neg returns the inverse change.
func (b Balances) Neg() Balances {
	return Balances{Capital: b.Capital.Neg(), Profit: b.Profit.Neg()}
}

// IsZero reports whether both components are zero.
func (b Balances) IsZero() bool {
	return b.Capital.IsZero() && b.Profit.IsZero()
}

// Of returns the component of the named account.
func (b Balances) Of(account Account) decimal.Decimal {
	if account == AccountProfit {
		return b.Profit
	}
	return b.Capital
}

// Total is capital plus profit.
func (b Balances) Total() decimal.Decimal {
	return b.Capital.Add(b.Profit)
}

// EntryKind classifies a ledger entry.
type EntryKind string

const (
	EntryOpeningBalance   EntryKind = "opening-balance"
	EntrySaleCredit       EntryKind = "sale-credit"
	EntrySaleDebit        EntryKind = "sale-debit"
	EntryMovementIncome   EntryKind = "movement-income"
	EntryMovementExpense  EntryKind = "movement-expense"
	EntryMovementReversal EntryKind = "movement-reversal"
)

// LedgerEntry is an append-only signed change to the balances. The pair (Kind, RefID) is
// unique, so replaying the same operation never applies twice.
type LedgerEntry struct {
	ID          string          `bson:"_id" json:"id"`
	Kind        EntryKind       `bson:"kind" json:"kind"`
	RefID       string          `bson:"refId" json:"refId"`
	Capital     decimal.Decimal `bson:"capital" json:"capital"`
	Profit      decimal.Decimal `bson:"profit" json:"profit"`
	Description string          `bson:"description,omitempty" json:"description,omitempty"`
	CreatedAt   time.Time       `bson:"createdAt" json:"createdAt"`
}

// Delta is the signed change the entry applies.
func (e LedgerEntry) Delta() Balances {
	return Balances{Capital: e.Capital, Profit: e.Profit}
}

// Fold sums entries into balances.
func Fold(entries []LedgerEntry) Balances {
	total := Balances{Capital: decimal.Zero, Profit: decimal.Zero}
	for _, e := range entries {
		total = total.Add(e.Delta())
	}
	return total
}
