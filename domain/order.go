package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type TradeSide string

const (
	Buy  TradeSide = "buy"
	Sell TradeSide = "sell"
)

type OrderStatus string

const (
	OrderPending         OrderStatus = "pending"
	OrderPartiallyFilled OrderStatus = "partially_filled"
	OrderFilled          OrderStatus = "filled"
	OrderCanceled        OrderStatus = "canceled"
)

type OrderType string

const (
	OrderTypeLimit  OrderType = "limit"
	OrderTypeMarket OrderType = "market"
)

// OrderRecord is an order as reported by the exchange, before any
// interpretation of its quantities.
type OrderRecord struct {
	OrderID          string
	Amount           decimal.Decimal
	Remaining        decimal.Decimal
	LimitPrice       decimal.Decimal
	AverageFillPrice decimal.Decimal
	Cancelled        bool
	TypeToken        string
	// Some endpoints name the type field differently; used when TypeToken is blank.
	FallbackType       string
	Commission         decimal.Decimal
	OpenedTime         time.Time
	Timestamp          time.Time
	ExchangeSymbolPair string
}

type ResolvedOrder struct {
	OrderID      string
	Symbol       string
	Status       OrderStatus
	Amount       decimal.Decimal
	FilledAmount decimal.Decimal
	AveragePrice decimal.Decimal
	Price        decimal.Decimal
	Side         TradeSide
	Fees         decimal.Decimal
	FeesCurrency string
	OrderDate    time.Time
}

type OrderRequest struct {
	Symbol *MarketSymbol
	Side   TradeSide
	Type   OrderType
	Amount decimal.Decimal
	Price  decimal.Decimal
}

// ResolveOrder derives the order status and fill figures. Cancellation wins
// over any fill, then a full fill, then no fill at all.
func ResolveOrder(record OrderRecord) ResolvedOrder {
	filled := record.Amount.Sub(record.Remaining)

	var status OrderStatus
	switch {
	case record.Cancelled:
		status = OrderCanceled
	case filled.GreaterThanOrEqual(record.Amount):
		status = OrderFilled
	case filled.IsZero():
		status = OrderPending
	default:
		status = OrderPartiallyFilled
	}

	averagePrice := record.AverageFillPrice
	if averagePrice.IsZero() {
		averagePrice = record.LimitPrice
	}

	price := record.LimitPrice
	if price.IsZero() {
		price = averagePrice
	}

	orderDate := record.OpenedTime
	if orderDate.IsZero() {
		orderDate = record.Timestamp
	}

	typeToken := record.TypeToken
	if strings.TrimSpace(typeToken) == "" {
		typeToken = record.FallbackType
	}

	return ResolvedOrder{
		OrderID:      record.OrderID,
		Symbol:       record.ExchangeSymbolPair,
		Status:       status,
		Amount:       record.Amount,
		FilledAmount: filled,
		AveragePrice: averagePrice,
		Price:        price,
		Side:         SideFromTypeToken(typeToken),
		Fees:         record.Commission,
		FeesCurrency: feesCurrency(record.ExchangeSymbolPair),
		OrderDate:    orderDate,
	}
}

// SideFromTypeToken reads tokens such as "LIMIT_BUY". Anything without
// "buy" in it is a sell.
func SideFromTypeToken(token string) TradeSide {
	if strings.Contains(strings.ToUpper(token), "BUY") {
		return Buy
	}
	return Sell
}

// Commission is charged in the quote currency, the first half of "BTC-LTC".
func feesCurrency(pair string) string {
	if strings.TrimSpace(pair) == "" {
		return ""
	}

	parts := strings.Split(pair, "-")
	if len(parts) != 2 {
		return ""
	}
	return parts[0]
}
