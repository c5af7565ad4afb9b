package domain

import (
	"fmt"
	"strings"
)

type MarketSymbol struct {
	BaseAsset  string
	QuoteAsset string
}

func NewMarketSymbol(base string, quote string) (*MarketSymbol, error) {
	if base == "" || quote == "" {
		return nil, fmt.Errorf("base and quote must not be empty: %w", ErrInvalidArgument)
	}
	base = strings.ToLower(base)
	quote = strings.ToLower(quote)
	if base == quote {
		return nil, fmt.Errorf("base and quote must be different: %w", ErrInvalidArgument)
	}
	return &MarketSymbol{
		BaseAsset:  base,
		QuoteAsset: quote,
	}, nil
}

// NewMarketSymbolFromString parses the bridge notation "base_quote".
func NewMarketSymbolFromString(s string) (*MarketSymbol, error) {
	split := strings.Split(s, "_")

	if len(split) != 2 {
		return nil, fmt.Errorf("invalid symbol string %q: %w", s, ErrInvalidArgument)
	}

	return NewMarketSymbol(split[0], split[1])
}

// NewMarketSymbolFromExchangeName parses a Bittrex market name. Bittrex puts
// the quote currency first: "BTC-LTC" is LTC priced in BTC.
func NewMarketSymbolFromExchangeName(name string) (*MarketSymbol, error) {
	split := strings.Split(name, "-")

	if len(split) != 2 {
		return nil, fmt.Errorf("invalid market name %q: %w", name, ErrInvalidArgument)
	}

	return NewMarketSymbol(split[1], split[0])
}

// ExchangeName returns the Bittrex market name, e.g. "BTC-LTC".
func (ms *MarketSymbol) ExchangeName() string {
	return strings.ToUpper(ms.QuoteAsset + "-" + ms.BaseAsset)
}

func (ms *MarketSymbol) Join(separator string) string {
	return fmt.Sprintf("%s%s%s", ms.BaseAsset, separator, ms.QuoteAsset)
}

func (ms *MarketSymbol) String() string {
	return ms.Join("_")
}

func (ms *MarketSymbol) Equal(other *MarketSymbol) bool {
	if other == nil {
		return false
	}
	return ms.BaseAsset == other.BaseAsset && ms.QuoteAsset == other.QuoteAsset
}
