package domain

import "github.com/shopspring/decimal"

// Price and quantity increments are eight decimal places on every market.
var MarketStepSize = decimal.New(1, -8)

// Market is a tradable pair as listed by the exchange.
type Market struct {
	Symbol       *MarketSymbol
	MarketName   string
	MinTradeSize decimal.Decimal
	StepSize     decimal.Decimal
	Active       bool
}
