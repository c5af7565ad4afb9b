package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spooky-finn/go-bittrex-bridge/domain"
)

type CurrencyGateway interface {
	Currencies(ctx context.Context) ([]domain.Currency, error)
	// DepositAddress returns the currency code and raw address the exchange
	// reports. For tagged coins the address field holds the tag.
	DepositAddress(ctx context.Context, currency string) (*domain.DepositDetails, error)
	DepositHistory(ctx context.Context, currency string) ([]domain.Deposit, error)
}

type DepositUseCase struct {
	gateway   CurrencyGateway
	coinTypes *domain.CoinTypeCatalog
}

func NewDepositUseCase(gateway CurrencyGateway, coinTypes *domain.CoinTypeCatalog) *DepositUseCase {
	if coinTypes == nil {
		coinTypes = domain.DefaultCoinTypeCatalog()
	}
	return &DepositUseCase{gateway: gateway, coinTypes: coinTypes}
}

func (d *DepositUseCase) Currencies(ctx context.Context) (domain.CurrencyCatalog, error) {
	currencies, err := d.gateway.Currencies(ctx)
	if err != nil {
		return nil, err
	}
	return domain.NewCurrencyCatalog(currencies), nil
}

// DepositAddress resolves where to deposit currency. Coins with a shared
// wallet get its base address plus the account tag. An unknown currency or
// coin type is logged and yields nil.
func (d *DepositUseCase) DepositAddress(ctx context.Context, currency string) (*domain.DepositDetails, error) {
	catalog, err := d.Currencies(ctx)
	if err != nil {
		return nil, err
	}

	raw, err := d.gateway.DepositAddress(ctx, currency)
	if err != nil {
		return nil, err
	}

	details, err := classifyDeposit(catalog, d.coinTypes, raw)
	if errors.Is(err, domain.ErrLookupMiss) {
		logger.WithField("currency", raw.Symbol).Warn(err)
		return nil, nil
	}
	return details, err
}

// DepositHistory lists credited deposits, of every currency when currency
// is blank.
func (d *DepositUseCase) DepositHistory(ctx context.Context, currency string) ([]domain.Deposit, error) {
	return d.gateway.DepositHistory(ctx, strings.ToUpper(strings.TrimSpace(currency)))
}

// RegenerateDepositAddress always reports false: the exchange cannot issue a
// new address.
func (d *DepositUseCase) RegenerateDepositAddress(_ context.Context, currency string) (bool, error) {
	logger.WithField("currency", currency).Debugf("address regeneration: %s", domain.ErrUnsupported)
	return false, nil
}

func classifyDeposit(
	catalog domain.CurrencyCatalog, coinTypes *domain.CoinTypeCatalog, raw *domain.DepositDetails,
) (*domain.DepositDetails, error) {
	coin, ok := catalog.Lookup(raw.Symbol)
	if !ok {
		return nil, fmt.Errorf("unable to find %s in the list of coins: %w", raw.Symbol, domain.ErrLookupMiss)
	}

	details := &domain.DepositDetails{Symbol: raw.Symbol}

	switch coinTypes.Fields(coin.CoinType) {
	case domain.DepositFieldsTwo:
		details.Address = coin.BaseAddress
		details.AddressTag = raw.Address
	case domain.DepositFieldsOne:
		details.Address = raw.Address
	default:
		return nil, fmt.Errorf("unknown coin type %s, register it as a one or two field type: %w", coin.CoinType, domain.ErrLookupMiss)
	}

	return details, nil
}
