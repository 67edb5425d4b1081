// Package rpc serves chromalens.LensService over gRPC.
package rpc

import (
	"context"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	apperrors "github.com/chromalens/platform/internal/errors"
	"github.com/chromalens/platform/internal/orchestrator"
	"github.com/chromalens/platform/internal/trace"
	pb "github.com/chromalens/platform/pkg/pb"
)

// Keepalive settings for control clients.
const (
	KeepaliveTime    = 30 * time.Second
	KeepaliveTimeout = 10 * time.Second
	MinClientPing    = 5 * time.Second
)

// Service implements pb.LensServiceServer on top of the manager.
type Service struct {
	pb.UnimplementedLensServiceServer
	orch *orchestrator.Manager
}

func NewService(orch *orchestrator.Manager) *Service {
	return &Service{orch: orch}
}

func (s *Service) Activate(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
	if err := s.orch.ActivateMagnifier(ctx, in.GetValue()); err != nil {
		return nil, toStatus(err)
	}
	return s.state()
}

func (s *Service) Deactivate(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	s.orch.DeactivateMagnifier()
	return s.state()
}

func (s *Service) SetFilter(_ context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
	s.orch.SetFilter(in.GetValue())
	return s.state()
}

func (s *Service) GetState(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return s.state()
}

func (s *Service) Inspect(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	fields := in.GetFields()
	x, okX := fields["x"].GetKind().(*structpb.Value_NumberValue)
	y, okY := fields["y"].GetKind().(*structpb.Value_NumberValue)
	if !okX || !okY {
		return nil, toStatus(apperrors.New(apperrors.CodeInvalidArgument, "x and y must be numbers"))
	}

	res, err := s.orch.Inspect(ctx, x.NumberValue, y.NumberValue, fields["filter"].GetStringValue())
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(res)
}

func (s *Service) LookupColor(_ context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
	info, err := s.orch.LookupColor(in.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(info)
}

func (s *Service) state() (*structpb.Struct, error) {
	return encode(s.orch.State())
}

func encode(v any) (*structpb.Struct, error) {
	out, err := pb.ToStruct(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encoding response: %v", err)
	}
	return out, nil
}

// toStatus converts err into a gRPC status carrying an ErrorInfo detail.
func toStatus(err error) error {
	if appErr, ok := apperrors.As(err); ok {
		return appErr.GRPCStatus().Err()
	}
	return apperrors.Wrap(err, apperrors.CodeInternal, err.Error()).GRPCStatus().Err()
}

// Server is the gRPC server with the lens and health services registered.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
}

// NewServer registers svc and a health service reporting SERVING.
func NewServer(svc *Service, opts ...grpc.ServerOption) *Server {
	opts = append([]grpc.ServerOption{
		grpc.ChainUnaryInterceptor(trace.UnaryServerInterceptor()),
		grpc.KeepaliveParams(keepalive.ServerParameters{Time: KeepaliveTime, Timeout: KeepaliveTimeout}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{MinTime: MinClientPing, PermitWithoutStream: true}),
	}, opts...)

	gs := grpc.NewServer(opts...)
	pb.RegisterLensServiceServer(gs, svc)

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(pb.LensService_ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(gs, hs)

	return &Server{grpc: gs, health: hs}
}

// Serve blocks serving lis until Stop.
func (s *Server) Serve(lis net.Listener) error {
	return s.grpc.Serve(lis)
}

// Stop flips health to NOT_SERVING and drains in-flight calls.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
