package bittrex

import (
	"context"
	"net/url"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/spooky-finn/go-bittrex-bridge/domain"
	"github.com/tidwall/gjson"
)

func optionalMarket(symbol *domain.MarketSymbol) url.Values {
	if symbol == nil {
		return nil
	}
	return marketQuery(symbol)
}

func parseOrders(result gjson.Result) []domain.OrderRecord {
	orders := make([]domain.OrderRecord, 0, len(result.Array()))
	for _, r := range result.Array() {
		orders = append(orders, parseOrder(r))
	}
	return orders
}

func (api *BittrexSyncAPI) PlaceLimitOrder(
	ctx context.Context, symbol *domain.MarketSymbol, side domain.TradeSide, amount, price decimal.Decimal,
) (string, error) {
	path := "market/selllimit"
	if side == domain.Buy {
		path = "market/buylimit"
	}

	query := marketQuery(symbol)
	query.Set("quantity", amount.String())
	query.Set("rate", price.String())

	result, err := api.private(ctx, "placeorder", path, query)
	if err != nil {
		return "", err
	}

	orderID := result.Get("uuid").String()
	if orderID == "" {
		return "", domain.NewTransportError("placeorder", errors.New("response carries no order uuid"))
	}
	return orderID, nil
}

func (api *BittrexSyncAPI) Order(ctx context.Context, orderID string) (*domain.OrderRecord, error) {
	result, err := api.private(ctx, "getorder", "account/getorder", url.Values{"uuid": {orderID}})
	if err != nil {
		return nil, err
	}

	order := parseOrder(result)
	return &order, nil
}

func (api *BittrexSyncAPI) OpenOrders(ctx context.Context, symbol *domain.MarketSymbol) ([]domain.OrderRecord, error) {
	result, err := api.private(ctx, "getopenorders", "market/getopenorders", optionalMarket(symbol))
	if err != nil {
		return nil, err
	}
	return parseOrders(result), nil
}

func (api *BittrexSyncAPI) OrderHistory(ctx context.Context, symbol *domain.MarketSymbol) ([]domain.OrderRecord, error) {
	result, err := api.private(ctx, "getorderhistory", "account/getorderhistory", optionalMarket(symbol))
	if err != nil {
		return nil, err
	}
	return parseOrders(result), nil
}

func (api *BittrexSyncAPI) CancelOrder(ctx context.Context, orderID string) error {
	_, err := api.private(ctx, "cancel", "market/cancel", url.Values{"uuid": {orderID}})
	return err
}

func (api *BittrexSyncAPI) DepositAddress(ctx context.Context, currency string) (*domain.DepositDetails, error) {
	result, err := api.private(ctx, "getdepositaddress", "account/getdepositaddress", url.Values{"currency": {currency}})
	if err != nil {
		return nil, err
	}

	return &domain.DepositDetails{
		Symbol:  result.Get("Currency").String(),
		Address: result.Get("Address").String(),
	}, nil
}

// DepositHistory lists the credited deposits, of one currency when currency
// is set.
func (api *BittrexSyncAPI) DepositHistory(ctx context.Context, currency string) ([]domain.Deposit, error) {
	var query url.Values
	if currency != "" {
		query = url.Values{"currency": {currency}}
	}

	result, err := api.private(ctx, "getdeposithistory", "account/getdeposithistory", query)
	if err != nil {
		return nil, err
	}

	deposits := make([]domain.Deposit, 0, len(result.Array()))
	for _, r := range result.Array() {
		deposits = append(deposits, parseDeposit(r))
	}
	return deposits, nil
}

func (api *BittrexSyncAPI) Balances(ctx context.Context) ([]domain.Balance, error) {
	result, err := api.private(ctx, "getbalances", "account/getbalances", nil)
	if err != nil {
		return nil, err
	}

	balances := make([]domain.Balance, 0, len(result.Array()))
	for _, r := range result.Array() {
		balances = append(balances, parseBalance(r))
	}
	return balances, nil
}

func (api *BittrexSyncAPI) Withdraw(ctx context.Context, req domain.WithdrawalRequest) (*domain.WithdrawalResult, error) {
	query := url.Values{
		"currency": {req.Currency},
		"quantity": {req.Amount.String()},
		"address":  {req.Address},
	}
	if req.AddressTag != "" {
		query.Set("paymentid", req.AddressTag)
	}

	result, err := api.private(ctx, "withdraw", "account/withdraw", query)
	if err != nil {
		return nil, err
	}

	return &domain.WithdrawalResult{
		ID:      result.Get("uuid").String(),
		Message: result.Get("msg").String(),
	}, nil
}
