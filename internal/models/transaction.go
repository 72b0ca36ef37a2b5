package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Transaction struct {
	ID          string    `json:"id"`
	AccountID   string    `json:"accountId"`
	AmountCents int64     `json:"amountCents"`
	Currency    string    `json:"currency"`
	Merchant    string    `json:"merchant,omitempty"`
	Category    string    `json:"category,omitempty"`
	OccurredAt  time.Time `json:"occurredAt"`
	Note        string    `json:"note,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Amount returns the transaction amount in currency units.
// Negative for spending, positive for income.
func (t Transaction) Amount() decimal.Decimal {
	return decimal.New(t.AmountCents, -2)
}

// BudgetSummary is the month roll-up the budget page renders.
type BudgetSummary struct {
	Month        string  `json:"month"` // YYYY-MM
	IncomeCents  int64   `json:"incomeCents"`
	ExpenseCents int64   `json:"expenseCents"`
	SavingsRate  float64 `json:"savingsRate"` // 0..1
}

func (b BudgetSummary) Income() decimal.Decimal {
	return decimal.New(b.IncomeCents, -2)
}

func (b BudgetSummary) Expense() decimal.Decimal {
	return decimal.New(b.ExpenseCents, -2)
}
