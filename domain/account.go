package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Balance struct {
	Currency  string
	Total     decimal.Decimal
	Available decimal.Decimal
}

type WithdrawalRequest struct {
	Currency string
	Amount   decimal.Decimal
	Address  string
	// Payment id or memo for tagged coins.
	AddressTag string
}

type WithdrawalResult struct {
	ID      string
	Message string
}

// Deposit is a credited deposit. The exchange lists a deposit only once it
// is complete.
type Deposit struct {
	ID        string
	Currency  string
	Amount    decimal.Decimal
	Address   string
	TxID      string
	Timestamp time.Time
}
