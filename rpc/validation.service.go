package rpc

import (
	"strings"

	"github.com/spooky-finn/go-bittrex-bridge/domain"
)

const (
	SourceAuto     = ""
	SourceLocal    = "local"
	SourceExchange = "exchange"
)

type ValidationServiceConfig struct {
	// Markets in "base_quote" notation. Empty allows every market.
	AvailableMarkets []string
}

type ValidationService struct {
	markets map[string]struct{}
}

func NewValidationService(config *ValidationServiceConfig) *ValidationService {
	markets := make(map[string]struct{}, len(config.AvailableMarkets))
	for _, m := range config.AvailableMarkets {
		markets[strings.ToLower(strings.TrimSpace(m))] = struct{}{}
	}

	return &ValidationService{markets: markets}
}

func (s *ValidationService) IsSupportedMarket(symbol *domain.MarketSymbol) bool {
	if len(s.markets) == 0 {
		return true
	}
	_, ok := s.markets[symbol.String()]
	return ok
}

func (s *ValidationService) IsSupportedSource(source string) bool {
	switch source {
	case SourceAuto, SourceLocal, SourceExchange:
		return true
	}
	return false
}
