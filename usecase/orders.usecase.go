package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spooky-finn/go-bittrex-bridge/domain"
)

// Price and quantity step for every market.
const stepPlaces = 8

type OrdersGateway interface {
	PlaceLimitOrder(ctx context.Context, symbol *domain.MarketSymbol, side domain.TradeSide, amount, price decimal.Decimal) (string, error)
	Order(ctx context.Context, orderID string) (*domain.OrderRecord, error)
	// A nil symbol means every market.
	OpenOrders(ctx context.Context, symbol *domain.MarketSymbol) ([]domain.OrderRecord, error)
	OrderHistory(ctx context.Context, symbol *domain.MarketSymbol) ([]domain.OrderRecord, error)
	CancelOrder(ctx context.Context, orderID string) error
}

type OrdersUseCase struct {
	gateway OrdersGateway
	now     func() time.Time
}

func NewOrdersUseCase(gateway OrdersGateway) *OrdersUseCase {
	return &OrdersUseCase{gateway: gateway, now: time.Now}
}

// PlaceOrder places a limit order. Market orders are not offered by the exchange.
func (o *OrdersUseCase) PlaceOrder(ctx context.Context, req domain.OrderRequest) (*domain.ResolvedOrder, error) {
	if req.Type == domain.OrderTypeMarket {
		return nil, fmt.Errorf("order type %s is not supported: %w", req.Type, domain.ErrInvalidArgument)
	}
	if req.Symbol == nil {
		return nil, fmt.Errorf("order market is required: %w", domain.ErrInvalidArgument)
	}

	amount := req.Amount.Truncate(stepPlaces)
	price := req.Price.Truncate(stepPlaces)
	if !amount.IsPositive() || !price.IsPositive() {
		return nil, fmt.Errorf("order amount %s and price %s must be positive: %w", req.Amount, req.Price, domain.ErrInvalidArgument)
	}

	orderID, err := o.gateway.PlaceLimitOrder(ctx, req.Symbol, req.Side, amount, price)
	if err != nil {
		return nil, err
	}

	return &domain.ResolvedOrder{
		OrderID:      orderID,
		Symbol:       req.Symbol.ExchangeName(),
		Status:       domain.OrderPending,
		Amount:       amount,
		FilledAmount: decimal.Zero,
		AveragePrice: price,
		Price:        price,
		Side:         req.Side,
		OrderDate:    o.now().UTC(),
	}, nil
}

// GetOrder returns nil without asking the exchange when orderID is blank.
func (o *OrdersUseCase) GetOrder(ctx context.Context, orderID string) (*domain.ResolvedOrder, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, nil
	}
	if err := validateOrderID(orderID); err != nil {
		return nil, err
	}

	record, err := o.gateway.Order(ctx, orderID)
	if err != nil {
		return nil, err
	}

	resolved := domain.ResolveOrder(*record)
	return &resolved, nil
}

func (o *OrdersUseCase) OpenOrders(ctx context.Context, symbol *domain.MarketSymbol) ([]domain.ResolvedOrder, error) {
	records, err := o.gateway.OpenOrders(ctx, symbol)
	if err != nil {
		return nil, err
	}

	orders := make([]domain.ResolvedOrder, 0, len(records))
	for _, r := range records {
		orders = append(orders, domain.ResolveOrder(r))
	}
	return orders, nil
}

// CompletedOrders filters the order history by date locally, the exchange
// endpoint takes no time parameter.
func (o *OrdersUseCase) CompletedOrders(
	ctx context.Context, symbol *domain.MarketSymbol, after *time.Time,
) ([]domain.ResolvedOrder, error) {
	records, err := o.gateway.OrderHistory(ctx, symbol)
	if err != nil {
		return nil, err
	}

	orders := make([]domain.ResolvedOrder, 0, len(records))
	for _, r := range records {
		order := domain.ResolveOrder(r)
		if after == nil || !order.OrderDate.Before(*after) {
			orders = append(orders, order)
		}
	}
	return orders, nil
}

func (o *OrdersUseCase) CancelOrder(ctx context.Context, orderID string) error {
	if err := validateOrderID(orderID); err != nil {
		return err
	}
	return o.gateway.CancelOrder(ctx, orderID)
}

func validateOrderID(orderID string) error {
	if _, err := uuid.Parse(orderID); err != nil {
		return fmt.Errorf("order id %q: %w", orderID, domain.ErrInvalidArgument)
	}
	return nil
}
