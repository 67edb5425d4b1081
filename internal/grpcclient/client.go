package grpcclient

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	apperrors "github.com/chromalens/platform/internal/errors"
	"github.com/chromalens/platform/internal/inspector"
	"github.com/chromalens/platform/internal/orchestrator"
	"github.com/chromalens/platform/internal/resilience"
	"github.com/chromalens/platform/internal/trace"
	pb "github.com/chromalens/platform/pkg/pb"
)

// Config holds client settings.
type Config struct {
	KeepaliveTime    time.Duration
	KeepaliveTimeout time.Duration
	CallTimeout      time.Duration
	Retry            resilience.RetryConfig
}

// DefaultConfig returns standard client settings.
func DefaultConfig() Config {
	return Config{
		KeepaliveTime:    DefaultKeepaliveTime,
		KeepaliveTimeout: DefaultKeepaliveTimeout,
		CallTimeout:      DefaultCallTimeout,
		Retry:            retryConfig(),
	}
}

func retryConfig() resilience.RetryConfig {
	rc := resilience.DefaultRetryConfig()
	rc.IsRetryable = retryable
	return rc
}

// retryable retries gRPC failures whose AppError code is retryable
// (UNAVAILABLE, TIMEOUT, DEVICE_BUSY).
func retryable(err error) bool {
	if _, ok := status.FromError(err); !ok {
		return false
	}
	return apperrors.IsRetryable(apperrors.FromGRPCError(err))
}

// Client wraps the lens and health service clients
type Client struct {
	conn   *grpc.ClientConn
	cfg    Config
	Lens   pb.LensServiceClient
	Health healthpb.HealthClient
}

// New creates a client for addr. Extra dial options are appended (tests pass a
// bufconn dialer).
func New(addr string, cfg Config, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                cfg.KeepaliveTime,
			Timeout:             cfg.KeepaliveTimeout,
			PermitWithoutStream: true,
		}),
		grpc.WithChainUnaryInterceptor(trace.UnaryClientInterceptor()),
	}, opts...)

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.CodeUnavailable, "dialing %s", addr)
	}

	return &Client{
		conn:   conn,
		cfg:    cfg,
		Lens:   pb.NewLensServiceClient(conn),
		Health: healthpb.NewHealthClient(conn),
	}, nil
}

// Close closes the gRPC connection
func (c *Client) Close() error {
	return c.conn.Close()
}

// call runs fn with retry on transient failures and converts the final error
// back into an AppError.
func (c *Client) call(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Deadline(); !ok && c.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.CallTimeout)
		defer cancel()
	}
	err := resilience.Retry(ctx, c.cfg.Retry, func() error { return fn(ctx) })
	if err == nil {
		return nil
	}
	if _, ok := apperrors.As(err); ok {
		return err
	}
	return apperrors.FromGRPCError(err)
}

func (c *Client) stateCall(ctx context.Context, fn func(ctx context.Context) (*structpb.Struct, error)) (orchestrator.State, error) {
	var st orchestrator.State
	err := c.call(ctx, func(ctx context.Context) error {
		out, err := fn(ctx)
		if err != nil {
			return err
		}
		return pb.FromStruct(out, &st)
	})
	return st, err
}

// Activate starts the magnifier with filter ("" keeps the current one).
func (c *Client) Activate(ctx context.Context, filter string) (orchestrator.State, error) {
	return c.stateCall(ctx, func(ctx context.Context) (*structpb.Struct, error) {
		return c.Lens.Activate(ctx, wrapperspb.String(filter))
	})
}

// Deactivate stops the magnifier.
func (c *Client) Deactivate(ctx context.Context) (orchestrator.State, error) {
	return c.stateCall(ctx, func(ctx context.Context) (*structpb.Struct, error) {
		return c.Lens.Deactivate(ctx, &emptypb.Empty{})
	})
}

// SetFilter changes the current filter.
func (c *Client) SetFilter(ctx context.Context, filter string) (orchestrator.State, error) {
	return c.stateCall(ctx, func(ctx context.Context) (*structpb.Struct, error) {
		return c.Lens.SetFilter(ctx, wrapperspb.String(filter))
	})
}

// State fetches the current state.
func (c *Client) State(ctx context.Context) (orchestrator.State, error) {
	return c.stateCall(ctx, func(ctx context.Context) (*structpb.Struct, error) {
		return c.Lens.GetState(ctx, &emptypb.Empty{})
	})
}

// Inspect samples the screen pixel at (x, y).
func (c *Client) Inspect(ctx context.Context, x, y float64, filter string) (inspector.Result, error) {
	var res inspector.Result
	err := c.call(ctx, func(ctx context.Context) error {
		out, err := c.Lens.Inspect(ctx, pb.InspectRequest(x, y, filter))
		if err != nil {
			return err
		}
		return pb.FromStruct(out, &res)
	})
	res.X, res.Y = x, y
	return res, err
}

// LookupColor names a hex colour.
func (c *Client) LookupColor(ctx context.Context, hex string) (inspector.ColorInfo, error) {
	var info inspector.ColorInfo
	err := c.call(ctx, func(ctx context.Context) error {
		out, err := c.Lens.LookupColor(ctx, wrapperspb.String(hex))
		if err != nil {
			return err
		}
		return pb.FromStruct(out, &info)
	})
	return info, err
}

// Healthy reports whether the server's health service says SERVING.
func (c *Client) Healthy(ctx context.Context) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, HealthCheckTimeout)
	defer cancel()
	resp, err := c.Health.Check(ctx, &healthpb.HealthCheckRequest{Service: pb.LensService_ServiceName})
	if err != nil {
		return false, apperrors.FromGRPCError(err)
	}
	return resp.GetStatus() == healthpb.HealthCheckResponse_SERVING, nil
}
