package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"net"

	"github.com/olyamironova/txbuilder/internal/api/dto"
	"github.com/olyamironova/txbuilder/internal/core"
	"github.com/olyamironova/txbuilder/internal/domain"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name. Messages are
// google.protobuf.Struct values shaped like the REST API's JSON bodies.
const ServiceName = "txbuilder.v1.TxBuilder"

// TxBuilderServer is the service contract behind ServiceDesc.
type TxBuilderServer interface {
	Build(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Submit(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Inventory(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Orderbook(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

var _ TxBuilderServer = (*GRPCServer)(nil)

type GRPCServer struct {
	Eng    *core.Engine
	Market *core.Market
	logger *zap.Logger
}

func NewGRPCServer(eng *core.Engine, market *core.Market, logger *zap.Logger) *GRPCServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GRPCServer{Eng: eng, Market: market, logger: logger}
}

// Register attaches the service to s.
func (s *GRPCServer) Register(r grpc.ServiceRegistrar) {
	r.RegisterService(&ServiceDesc, s)
}

// Run serves on addr until ctx is cancelled, then stops gracefully.
func (s *GRPCServer) Run(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.logUnary))
	s.Register(srv)
	go func() {
		<-ctx.Done()
		srv.GracefulStop()
	}()
	s.logger.Info("grpc server listening", zap.String("addr", addr))
	return srv.Serve(lis)
}

func (s *GRPCServer) logUnary(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	resp, err := handler(ctx, req)
	if err != nil {
		s.logger.Warn("grpc request failed", zap.String("method", info.FullMethod), zap.Error(err))
	}
	return resp, err
}

// actionEnvelope is {"action": "<name>", "request": {...}}.
type actionEnvelope struct {
	Action  string          `json:"action"`
	Request json.RawMessage `json:"request"`
}

func decodeAction(req *structpb.Struct) (core.Action, error) {
	raw, err := req.MarshalJSON()
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}
	var env actionEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}
	body, ok := dto.NewActionRequest(env.Action)
	if !ok {
		return nil, status.Errorf(codes.InvalidArgument, "unknown action %q", env.Action)
	}
	if len(env.Request) == 0 {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	if err := json.Unmarshal(env.Request, body); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid %s request: %v", env.Action, err)
	}
	a, err := body.Action()
	if err != nil {
		return nil, toStatus(err)
	}
	return a, nil
}

func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	out := &structpb.Struct{}
	if err := out.UnmarshalJSON(raw); err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

func (s *GRPCServer) Build(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	a, err := decodeAction(req)
	if err != nil {
		return nil, err
	}
	tx, err := s.Eng.Build(ctx, a)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(dto.BuildResponse{Action: a.Name(), Transaction: tx})
}

func (s *GRPCServer) Submit(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	a, err := decodeAction(req)
	if err != nil {
		return nil, err
	}
	rcpt, err := s.Eng.Submit(ctx, a)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(dto.NewSubmitResponse(rcpt, a.Assets()))
}

func (s *GRPCServer) Inventory(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	owner := req.GetFields()["owner"].GetStringValue()
	asset := domain.AssetType{
		Type:     req.GetFields()["asset"].GetStringValue(),
		Decimals: uint8(req.GetFields()["decimals"].GetNumberValue()),
	}
	coins, err := s.Eng.Inventory(ctx, owner, asset)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(dto.NewInventoryResponse(owner, asset, coins))
}

func (s *GRPCServer) Orderbook(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	poolID := req.GetFields()["pool_id"].GetStringValue()
	if poolID == "" {
		return nil, status.Error(codes.InvalidArgument, "pool_id is required")
	}
	depth := int(req.GetFields()["depth"].GetNumberValue())
	return toStruct(s.Market.Orderbook(ctx, poolID, depth))
}

// toStatus maps engine errors onto gRPC status codes.
func toStatus(err error) error {
	var code codes.Code
	switch {
	case errors.Is(err, domain.ErrValidation):
		code = codes.InvalidArgument
	case errors.Is(err, domain.ErrInsufficientBalance),
		errors.Is(err, domain.ErrInsufficientGasReserve),
		errors.Is(err, domain.ErrNoSpendableCoin):
		code = codes.FailedPrecondition
	case errors.Is(err, domain.ErrActionInFlight):
		code = codes.Aborted
	case errors.Is(err, domain.ErrExecution):
		code = codes.Internal
	case errors.Is(err, domain.ErrNetwork):
		code = codes.Unavailable
	default:
		code = codes.Internal
	}
	return status.Error(code, err.Error())
}

func unaryHandler(call func(TxBuilderServer, context.Context, *structpb.Struct) (*structpb.Struct, error), method string) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(TxBuilderServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + method}
		return interceptor(ctx, in, info, func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(TxBuilderServer), ctx, req.(*structpb.Struct))
		})
	}
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TxBuilderServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Build", Handler: unaryHandler(TxBuilderServer.Build, "Build")},
		{MethodName: "Submit", Handler: unaryHandler(TxBuilderServer.Submit, "Submit")},
		{MethodName: "Inventory", Handler: unaryHandler(TxBuilderServer.Inventory, "Inventory")},
		{MethodName: "Orderbook", Handler: unaryHandler(TxBuilderServer.Orderbook, "Orderbook")},
	},
	Metadata: "internal/api/grpc/grpc_server.go",
}
