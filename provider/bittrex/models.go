package bittrex

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spooky-finn/go-bittrex-bridge/domain"
	"github.com/tidwall/gjson"
)

// Timestamps come without a zone and are UTC, with or without fractions.
var timeLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	time.RFC3339Nano,
}

func parseTime(r gjson.Result) time.Time {
	if !r.Exists() || r.Type == gjson.Null {
		return time.Time{}
	}

	s := strings.TrimSpace(r.String())
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// parseDecimal keeps the literal digits of a JSON number.
func parseDecimal(r gjson.Result) decimal.Decimal {
	var raw string
	switch r.Type {
	case gjson.Number:
		raw = r.Raw
	case gjson.String:
		raw = r.Str
	default:
		return decimal.Zero
	}

	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseTicker(r gjson.Result) *domain.Ticker {
	return &domain.Ticker{
		Bid:         parseDecimal(r.Get("Bid")),
		Ask:         parseDecimal(r.Get("Ask")),
		Last:        parseDecimal(r.Get("Last")),
		BaseVolume:  parseDecimal(r.Get("BaseVolume")),
		QuoteVolume: parseDecimal(r.Get("Volume")),
		Timestamp:   parseTime(r.Get("TimeStamp")),
	}
}

func parseCandle(r gjson.Result) domain.Candle {
	return domain.Candle{
		Open:       parseDecimal(r.Get("O")),
		High:       parseDecimal(r.Get("H")),
		Low:        parseDecimal(r.Get("L")),
		Close:      parseDecimal(r.Get("C")),
		Volume:     parseDecimal(r.Get("V")),
		BaseVolume: parseDecimal(r.Get("BV")),
		OpenTime:   parseTime(r.Get("T")),
	}
}

func parseDepth(levels gjson.Result) domain.DepthSide {
	depth := make(domain.DepthSide, 0, len(levels.Array()))
	for _, l := range levels.Array() {
		depth = append(depth, domain.PriceLevel{
			Price:    parseDecimal(l.Get("Rate")),
			Quantity: parseDecimal(l.Get("Quantity")),
		})
	}
	return depth
}

func parseTrade(r gjson.Result) domain.Trade {
	return domain.Trade{
		ID:        r.Get("Id").Int(),
		Price:     parseDecimal(r.Get("Price")),
		Quantity:  parseDecimal(r.Get("Quantity")),
		Timestamp: parseTime(r.Get("TimeStamp")),
		Side:      domain.SideFromTypeToken(r.Get("OrderType").String()),
	}
}

func parseOrder(r gjson.Result) domain.OrderRecord {
	commission := r.Get("Commission")
	if !commission.Exists() {
		commission = r.Get("CommissionPaid")
	}

	return domain.OrderRecord{
		OrderID:            r.Get("OrderUuid").String(),
		Amount:             parseDecimal(r.Get("Quantity")),
		Remaining:          parseDecimal(r.Get("QuantityRemaining")),
		LimitPrice:         parseDecimal(r.Get("Limit")),
		AverageFillPrice:   parseDecimal(r.Get("PricePerUnit")),
		Cancelled:          r.Get("CancelInitiated").Bool(),
		TypeToken:          r.Get("OrderType").String(),
		FallbackType:       r.Get("Type").String(),
		Commission:         parseDecimal(commission),
		OpenedTime:         parseTime(r.Get("Opened")),
		Timestamp:          parseTime(r.Get("TimeStamp")),
		ExchangeSymbolPair: r.Get("Exchange").String(),
	}
}

func parseCurrency(r gjson.Result) domain.Currency {
	return domain.Currency{
		Name:             strings.ToUpper(r.Get("Currency").String()),
		FullName:         r.Get("CurrencyLong").String(),
		CoinType:         r.Get("CoinType").String(),
		BaseAddress:      r.Get("BaseAddress").String(),
		MinConfirmations: int(r.Get("MinConfirmation").Int()),
		TxFee:            parseDecimal(r.Get("TxFee")),
		Enabled:          r.Get("IsActive").Bool(),
		Notice:           r.Get("Notice").String(),
	}
}

func parseBalance(r gjson.Result) domain.Balance {
	return domain.Balance{
		Currency:  r.Get("Currency").String(),
		Total:     parseDecimal(r.Get("Balance")),
		Available: parseDecimal(r.Get("Available")),
	}
}

func parseMarket(r gjson.Result) (domain.Market, error) {
	name := strings.ToUpper(r.Get("MarketName").String())
	symbol, err := domain.NewMarketSymbolFromExchangeName(name)
	if err != nil {
		return domain.Market{}, err
	}

	return domain.Market{
		Symbol:       symbol,
		MarketName:   name,
		MinTradeSize: parseDecimal(r.Get("MinTradeSize")),
		StepSize:     domain.MarketStepSize,
		Active:       r.Get("IsActive").Bool(),
	}, nil
}

func parseDeposit(r gjson.Result) domain.Deposit {
	return domain.Deposit{
		ID:        r.Get("Id").String(),
		Currency:  strings.ToUpper(r.Get("Currency").String()),
		Amount:    parseDecimal(r.Get("Amount")),
		Address:   r.Get("CryptoAddress").String(),
		TxID:      r.Get("TxId").String(),
		Timestamp: parseTime(r.Get("LastUpdated")),
	}
}
