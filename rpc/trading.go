package rpc

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spooky-finn/go-bittrex-bridge/domain"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

type OrderService interface {
	PlaceOrder(ctx context.Context, req domain.OrderRequest) (*domain.ResolvedOrder, error)
	GetOrder(ctx context.Context, orderID string) (*domain.ResolvedOrder, error)
	OpenOrders(ctx context.Context, symbol *domain.MarketSymbol) ([]domain.ResolvedOrder, error)
	CompletedOrders(ctx context.Context, symbol *domain.MarketSymbol, after *time.Time) ([]domain.ResolvedOrder, error)
	CancelOrder(ctx context.Context, orderID string) error
}

type DepositService interface {
	DepositAddress(ctx context.Context, currency string) (*domain.DepositDetails, error)
	DepositHistory(ctx context.Context, currency string) ([]domain.Deposit, error)
}

type AccountService interface {
	Amounts(ctx context.Context) (map[string]domain.Balance, error)
	AmountsAvailableToTrade(ctx context.Context) (map[string]domain.Balance, error)
	Withdraw(ctx context.Context, req domain.WithdrawalRequest) (*domain.WithdrawalResult, error)
}

type tradingServer struct {
	ordersUseCase     OrderService
	depositUseCase    DepositService
	accountUseCase    AccountService
	validationService *ValidationService
}

func NewTradingServer(
	orders OrderService,
	deposits DepositService,
	account AccountService,
	conf *ValidationServiceConfig,
) *tradingServer {
	return &tradingServer{
		ordersUseCase:     orders,
		depositUseCase:    deposits,
		accountUseCase:    account,
		validationService: NewValidationService(conf),
	}
}

func (s *tradingServer) PlaceOrder(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	marketSymbol, err := marketField(in, "market", s.validationService)
	if err != nil {
		return nil, err
	}

	side := domain.TradeSide(strings.ToLower(stringField(in, "side")))
	if side != domain.Buy && side != domain.Sell {
		return nil, status.Errorf(codes.InvalidArgument, "side must be %s or %s", domain.Buy, domain.Sell)
	}

	orderType := domain.OrderType(strings.ToLower(stringField(in, "type")))
	if orderType == "" {
		orderType = domain.OrderTypeLimit
	}

	amount, err := decimalField(in, "amount")
	if err != nil {
		return nil, err
	}
	price, err := decimalField(in, "price")
	if err != nil {
		return nil, err
	}

	order, err := s.ordersUseCase.PlaceOrder(ctx, domain.OrderRequest{
		Symbol: marketSymbol,
		Side:   side,
		Type:   orderType,
		Amount: amount,
		Price:  price,
	})
	if err != nil {
		return nil, toStatus(err)
	}

	return structpb.NewStruct(map[string]interface{}{"order": orderValue(*order)})
}

func (s *tradingServer) GetOrder(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	order, err := s.ordersUseCase.GetOrder(ctx, stringField(in, "order_id"))
	if err != nil {
		return nil, toStatus(err)
	}

	// blank order id
	if order == nil {
		return structpb.NewStruct(map[string]interface{}{"order": nil})
	}
	return structpb.NewStruct(map[string]interface{}{"order": orderValue(*order)})
}

func (s *tradingServer) GetOpenOrders(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	marketSymbol, err := optionalMarketField(in, "market", s.validationService)
	if err != nil {
		return nil, err
	}

	orders, err := s.ordersUseCase.OpenOrders(ctx, marketSymbol)
	if err != nil {
		return nil, toStatus(err)
	}
	return structpb.NewStruct(map[string]interface{}{"orders": orderList(orders)})
}

func (s *tradingServer) GetCompletedOrders(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	marketSymbol, err := optionalMarketField(in, "market", s.validationService)
	if err != nil {
		return nil, err
	}
	after, err := timeField(in, "after")
	if err != nil {
		return nil, err
	}

	orders, err := s.ordersUseCase.CompletedOrders(ctx, marketSymbol, after)
	if err != nil {
		return nil, toStatus(err)
	}
	return structpb.NewStruct(map[string]interface{}{"orders": orderList(orders)})
}

func (s *tradingServer) CancelOrder(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	orderID := stringField(in, "order_id")
	if err := s.ordersUseCase.CancelOrder(ctx, orderID); err != nil {
		return nil, toStatus(err)
	}

	return structpb.NewStruct(map[string]interface{}{
		"order_id": orderID,
		"canceled": true,
	})
}

func (s *tradingServer) GetDepositAddress(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	currency := strings.ToUpper(stringField(in, "currency"))
	if currency == "" {
		return nil, status.Error(codes.InvalidArgument, "currency is required")
	}

	details, err := s.depositUseCase.DepositAddress(ctx, currency)
	if err != nil {
		return nil, toStatus(err)
	}
	if details == nil {
		return nil, status.Errorf(codes.NotFound, "no deposit address for %s", currency)
	}

	return structpb.NewStruct(map[string]interface{}{
		"currency":    details.Symbol,
		"address":     details.Address,
		"address_tag": details.AddressTag,
	})
}

func (s *tradingServer) GetDepositHistory(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	deposits, err := s.depositUseCase.DepositHistory(ctx, stringField(in, "currency"))
	if err != nil {
		return nil, toStatus(err)
	}

	list := make([]interface{}, 0, len(deposits))
	for _, d := range deposits {
		list = append(list, map[string]interface{}{
			"id":        d.ID,
			"currency":  d.Currency,
			"amount":    d.Amount.String(),
			"address":   d.Address,
			"tx_id":     d.TxID,
			"timestamp": formatTime(d.Timestamp),
		})
	}
	return structpb.NewStruct(map[string]interface{}{"deposits": list})
}

// GetAmounts returns total balances, or the funds free to trade when
// "available" is set.
func (s *tradingServer) GetAmounts(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	amounts := s.accountUseCase.Amounts
	if in.GetFields()["available"].GetBoolValue() {
		amounts = s.accountUseCase.AmountsAvailableToTrade
	}

	balances, err := amounts(ctx)
	if err != nil {
		return nil, toStatus(err)
	}

	out := make(map[string]interface{}, len(balances))
	for currency, b := range balances {
		out[currency] = map[string]interface{}{
			"total":     b.Total.String(),
			"available": b.Available.String(),
		}
	}
	return structpb.NewStruct(map[string]interface{}{"amounts": out})
}

func (s *tradingServer) Withdraw(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	amount, err := decimalField(in, "amount")
	if err != nil {
		return nil, err
	}

	result, err := s.accountUseCase.Withdraw(ctx, domain.WithdrawalRequest{
		Currency:   stringField(in, "currency"),
		Amount:     amount,
		Address:    stringField(in, "address"),
		AddressTag: stringField(in, "address_tag"),
	})
	if err != nil {
		return nil, toStatus(err)
	}

	return structpb.NewStruct(map[string]interface{}{
		"id":      result.ID,
		"message": result.Message,
	})
}

func orderValue(o domain.ResolvedOrder) map[string]interface{} {
	return map[string]interface{}{
		"order_id":      o.OrderID,
		"market":        o.Symbol,
		"status":        string(o.Status),
		"side":          string(o.Side),
		"amount":        o.Amount.String(),
		"filled_amount": o.FilledAmount.String(),
		"average_price": o.AveragePrice.String(),
		"price":         o.Price.String(),
		"fees":          o.Fees.String(),
		"fees_currency": o.FeesCurrency,
		"order_date":    formatTime(o.OrderDate),
	}
}

func orderList(orders []domain.ResolvedOrder) []interface{} {
	list := make([]interface{}, 0, len(orders))
	for _, o := range orders {
		list = append(list, orderValue(o))
	}
	return list
}

// decimalField reads a decimal sent as a string or a number; a missing
// field is zero.
func decimalField(in *structpb.Struct, name string) (decimal.Decimal, error) {
	v, ok := in.GetFields()[name]
	if !ok {
		return decimal.Zero, nil
	}

	switch kind := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		d, err := decimal.NewFromString(strings.TrimSpace(kind.StringValue))
		if err != nil {
			return decimal.Zero, status.Errorf(codes.InvalidArgument, "%s: %s", name, err)
		}
		return d, nil
	case *structpb.Value_NumberValue:
		return decimal.NewFromFloat(kind.NumberValue), nil
	default:
		return decimal.Zero, status.Errorf(codes.InvalidArgument, "%s must be a decimal", name)
	}
}
