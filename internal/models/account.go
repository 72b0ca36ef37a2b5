package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account types as the gateway reports them
const (
	AccountCash       = "CASH"
	AccountChecking   = "CHECKING"
	AccountSavings    = "SAVINGS"
	AccountCredit     = "CREDIT"
	AccountLoan       = "LOAN"
	AccountInvestment = "INVESTMENT"
	AccountOther      = "OTHER"
)

type Account struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	Name         string    `json:"name"`
	Institution  string    `json:"institution,omitempty"`
	Type         string    `json:"type"`
	Currency     string    `json:"currency"`
	BalanceCents int64     `json:"balanceCents"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Balance returns the account balance in currency units.
// The gateway keeps amounts in cents to avoid float drift on its side.
func (a Account) Balance() decimal.Decimal {
	return decimal.New(a.BalanceCents, -2)
}
