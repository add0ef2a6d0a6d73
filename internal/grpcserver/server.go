// Package grpcserver exposes the command surface as the unary gRPC method
// moviedb.v1.Commands/Invoke, carried with the JSON codec.
package grpcserver

import (
	"context"
	"strings"

	"github.com/goccy/go-json"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"moviedb/internal/auth"
	"moviedb/internal/commands"
	"moviedb/pkg/apperr"
	"moviedb/pkg/logging"
)

const (
	ServiceName  = "moviedb.v1.Commands"
	InvokeMethod = "/" + ServiceName + "/Invoke"

	// KindTrailer carries the error kind of a failed call.
	KindTrailer = "x-error-kind"
)

type InvokeRequest struct {
	Command string          `json:"command"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type InvokeReply struct {
	Result json.RawMessage `json:"result"`
}

type CommandsServer interface {
	Invoke(context.Context, *InvokeRequest) (*InvokeReply, error)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CommandsServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Invoke", Handler: invokeHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "moviedb/v1/commands",
}

func invokeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(InvokeRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CommandsServer).Invoke(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: InvokeMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CommandsServer).Invoke(ctx, req.(*InvokeRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func Register(s grpc.ServiceRegistrar, srv CommandsServer) {
	s.RegisterService(&ServiceDesc, srv)
}

type Server struct {
	Dispatcher *commands.Dispatcher
}

func NewServer(d *commands.Dispatcher) *Server {
	return &Server{Dispatcher: d}
}

// New builds a grpc.Server with the command service registered.
func New(d *commands.Dispatcher, opts ...grpc.ServerOption) *grpc.Server {
	gs := grpc.NewServer(opts...)
	Register(gs, NewServer(d))
	return gs
}

func (s *Server) Invoke(ctx context.Context, req *InvokeRequest) (*InvokeReply, error) {
	if req == nil || strings.TrimSpace(req.Command) == "" {
		return nil, status.Error(codes.InvalidArgument, "command required")
	}

	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if v := md.Get("authorization"); len(v) > 0 {
			ctx = auth.WithToken(ctx, auth.BearerToken(v[0]))
		}
	}

	res, err := s.Dispatcher.Dispatch(ctx, req.Command, req.Params)
	if err != nil {
		kind := apperr.KindOf(err)
		_ = grpc.SetTrailer(ctx, metadata.Pairs(KindTrailer, string(kind)))
		code := Code(kind)
		if commands.IsUnknownCommand(err) {
			code = codes.Unimplemented
		}
		return nil, status.Error(code, apperr.Message(err))
	}

	raw, err := json.Marshal(res)
	if err != nil {
		logging.Error().Err(err).Str("command", req.Command).Msg("encode result failed")
		return nil, status.Error(codes.Internal, "encode result failed")
	}
	return &InvokeReply{Result: raw}, nil
}

// Code maps an error kind onto a gRPC status code.
func Code(kind apperr.Kind) codes.Code {
	switch kind {
	case apperr.KindValidation:
		return codes.InvalidArgument
	case apperr.KindAuthentication, apperr.KindNoSession:
		return codes.Unauthenticated
	case apperr.KindPermissionDenied:
		return codes.PermissionDenied
	case apperr.KindNotFound:
		return codes.NotFound
	case apperr.KindDuplicateUsername:
		return codes.AlreadyExists
	case apperr.KindResourceBusy:
		return codes.Unavailable
	default:
		return codes.Internal
	}
}
