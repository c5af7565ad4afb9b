package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	marketDataServiceName = "cryptobridge.MarketDataService"
	tradingServiceName    = "cryptobridge.TradingService"
)

// MarketDataServiceServer is served over gRPC with google.protobuf.Struct
// requests and responses.
type MarketDataServiceServer interface {
	GetOrderBookSnapshot(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetTicker(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetTickers(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetMarkets(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetCandles(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetRecentTrades(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// TradingServiceServer covers the authenticated account: orders, deposits
// and balances.
type TradingServiceServer interface {
	PlaceOrder(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetOrder(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetOpenOrders(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetCompletedOrders(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CancelOrder(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetDepositAddress(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetDepositHistory(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetAmounts(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Withdraw(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod[S any] func(S, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler[S any](service, name string, call unaryMethod[S]) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(S), ctx, in)
		}

		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + service + "/" + name}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(S), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func marketDataMethod(name string, call unaryMethod[MarketDataServiceServer]) grpc.MethodDesc {
	return grpc.MethodDesc{MethodName: name, Handler: unaryHandler(marketDataServiceName, name, call)}
}

func tradingMethod(name string, call unaryMethod[TradingServiceServer]) grpc.MethodDesc {
	return grpc.MethodDesc{MethodName: name, Handler: unaryHandler(tradingServiceName, name, call)}
}

var MarketDataServiceDesc = grpc.ServiceDesc{
	ServiceName: marketDataServiceName,
	HandlerType: (*MarketDataServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		marketDataMethod("GetOrderBookSnapshot", MarketDataServiceServer.GetOrderBookSnapshot),
		marketDataMethod("GetTicker", MarketDataServiceServer.GetTicker),
		marketDataMethod("GetTickers", MarketDataServiceServer.GetTickers),
		marketDataMethod("GetMarkets", MarketDataServiceServer.GetMarkets),
		marketDataMethod("GetCandles", MarketDataServiceServer.GetCandles),
		marketDataMethod("GetRecentTrades", MarketDataServiceServer.GetRecentTrades),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "cryptobridge/market_data.proto",
}

var TradingServiceDesc = grpc.ServiceDesc{
	ServiceName: tradingServiceName,
	HandlerType: (*TradingServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		tradingMethod("PlaceOrder", TradingServiceServer.PlaceOrder),
		tradingMethod("GetOrder", TradingServiceServer.GetOrder),
		tradingMethod("GetOpenOrders", TradingServiceServer.GetOpenOrders),
		tradingMethod("GetCompletedOrders", TradingServiceServer.GetCompletedOrders),
		tradingMethod("CancelOrder", TradingServiceServer.CancelOrder),
		tradingMethod("GetDepositAddress", TradingServiceServer.GetDepositAddress),
		tradingMethod("GetDepositHistory", TradingServiceServer.GetDepositHistory),
		tradingMethod("GetAmounts", TradingServiceServer.GetAmounts),
		tradingMethod("Withdraw", TradingServiceServer.Withdraw),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "cryptobridge/trading.proto",
}

func RegisterMarketDataServiceServer(s grpc.ServiceRegistrar, srv MarketDataServiceServer) {
	s.RegisterService(&MarketDataServiceDesc, srv)
}

func RegisterTradingServiceServer(s grpc.ServiceRegistrar, srv TradingServiceServer) {
	s.RegisterService(&TradingServiceDesc, srv)
}

func invoke(ctx context.Context, cc grpc.ClientConnInterface, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

type MarketDataServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewMarketDataServiceClient(cc grpc.ClientConnInterface) *MarketDataServiceClient {
	return &MarketDataServiceClient{cc: cc}
}

func (c *MarketDataServiceClient) GetOrderBookSnapshot(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke(ctx, c.cc, "/"+marketDataServiceName+"/GetOrderBookSnapshot", in, opts...)
}

func (c *MarketDataServiceClient) GetTicker(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke(ctx, c.cc, "/"+marketDataServiceName+"/GetTicker", in, opts...)
}

func (c *MarketDataServiceClient) GetTickers(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke(ctx, c.cc, "/"+marketDataServiceName+"/GetTickers", in, opts...)
}

func (c *MarketDataServiceClient) GetMarkets(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke(ctx, c.cc, "/"+marketDataServiceName+"/GetMarkets", in, opts...)
}

func (c *MarketDataServiceClient) GetCandles(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke(ctx, c.cc, "/"+marketDataServiceName+"/GetCandles", in, opts...)
}

func (c *MarketDataServiceClient) GetRecentTrades(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke(ctx, c.cc, "/"+marketDataServiceName+"/GetRecentTrades", in, opts...)
}

type TradingServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewTradingServiceClient(cc grpc.ClientConnInterface) *TradingServiceClient {
	return &TradingServiceClient{cc: cc}
}

func (c *TradingServiceClient) PlaceOrder(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke(ctx, c.cc, "/"+tradingServiceName+"/PlaceOrder", in, opts...)
}

func (c *TradingServiceClient) GetOrder(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke(ctx, c.cc, "/"+tradingServiceName+"/GetOrder", in, opts...)
}

func (c *TradingServiceClient) GetOpenOrders(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke(ctx, c.cc, "/"+tradingServiceName+"/GetOpenOrders", in, opts...)
}

func (c *TradingServiceClient) GetCompletedOrders(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke(ctx, c.cc, "/"+tradingServiceName+"/GetCompletedOrders", in, opts...)
}

func (c *TradingServiceClient) CancelOrder(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke(ctx, c.cc, "/"+tradingServiceName+"/CancelOrder", in, opts...)
}

func (c *TradingServiceClient) GetDepositAddress(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke(ctx, c.cc, "/"+tradingServiceName+"/GetDepositAddress", in, opts...)
}

func (c *TradingServiceClient) GetDepositHistory(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke(ctx, c.cc, "/"+tradingServiceName+"/GetDepositHistory", in, opts...)
}

func (c *TradingServiceClient) GetAmounts(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke(ctx, c.cc, "/"+tradingServiceName+"/GetAmounts", in, opts...)
}

func (c *TradingServiceClient) Withdraw(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke(ctx, c.cc, "/"+tradingServiceName+"/Withdraw", in, opts...)
}
