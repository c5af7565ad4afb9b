package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/spooky-finn/go-bittrex-bridge/domain"
)

type AccountGateway interface {
	Balances(ctx context.Context) ([]domain.Balance, error)
	Withdraw(ctx context.Context, req domain.WithdrawalRequest) (*domain.WithdrawalResult, error)
}

type AccountUseCase struct {
	gateway AccountGateway
}

func NewAccountUseCase(gateway AccountGateway) *AccountUseCase {
	return &AccountUseCase{gateway: gateway}
}

// Amounts returns the non-zero total balance per currency.
func (a *AccountUseCase) Amounts(ctx context.Context) (map[string]domain.Balance, error) {
	return a.balances(ctx, func(b domain.Balance) bool { return b.Total.IsPositive() })
}

// AmountsAvailableToTrade returns the balances with funds not held by open orders.
func (a *AccountUseCase) AmountsAvailableToTrade(ctx context.Context) (map[string]domain.Balance, error) {
	return a.balances(ctx, func(b domain.Balance) bool { return b.Available.IsPositive() })
}

func (a *AccountUseCase) balances(ctx context.Context, keep func(domain.Balance) bool) (map[string]domain.Balance, error) {
	balances, err := a.gateway.Balances(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[string]domain.Balance, len(balances))
	for _, b := range balances {
		if keep(b) {
			out[strings.ToUpper(b.Currency)] = b
		}
	}
	return out, nil
}

func (a *AccountUseCase) Withdraw(ctx context.Context, req domain.WithdrawalRequest) (*domain.WithdrawalResult, error) {
	if strings.TrimSpace(req.Currency) == "" || strings.TrimSpace(req.Address) == "" {
		return nil, fmt.Errorf("withdrawal currency and address are required: %w", domain.ErrInvalidArgument)
	}
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("withdrawal amount %s must be positive: %w", req.Amount, domain.ErrInvalidArgument)
	}

	req.Currency = strings.ToUpper(req.Currency)
	return a.gateway.Withdraw(ctx, req)
}
