package helpers

import (
	"strconv"

	"github.com/spooky-finn/go-bittrex-bridge/domain"
)

// IntToString converts int64 to string.
func IntToString(i int64) string {
	return strconv.FormatInt(i, 10)
}

// ParseMarkets parses a list of "base_quote" markets, dropping duplicates.
func ParseMarkets(markets []string) ([]*domain.MarketSymbol, error) {
	seen := make(map[string]struct{}, len(markets))
	symbols := make([]*domain.MarketSymbol, 0, len(markets))

	for _, m := range markets {
		symbol, err := domain.NewMarketSymbolFromString(m)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[symbol.String()]; ok {
			continue
		}
		seen[symbol.String()] = struct{}{}
		symbols = append(symbols, symbol)
	}

	return symbols, nil
}
