package server

import (
	"context"
	"errors"
	"runtime/debug"
	"time"

	"github.com/coupline/coup-server-go/internal/config"
	"github.com/coupline/coup-server-go/internal/game"
	"github.com/coupline/coup-server-go/internal/match"
	"github.com/coupline/coup-server-go/internal/repository"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/status"
)

// MatchServiceName is the health service name reported for the match server.
const MatchServiceName = "coup.v1.MatchService"

// CodeFor maps an engine, repository or manager error to a gRPC status code.
func CodeFor(err error) codes.Code {
	switch {
	case err == nil:
		return codes.OK
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, game.ErrValidation), errors.Is(err, match.ErrUnknownCommand):
		return codes.InvalidArgument
	case errors.Is(err, game.ErrNotFound), errors.Is(err, repository.ErrGameNotFound):
		return codes.NotFound
	case errors.Is(err, game.ErrInconsistentState):
		return codes.FailedPrecondition
	case errors.Is(err, repository.ErrVersionConflict):
		return codes.Aborted
	case errors.Is(err, repository.ErrGameExists):
		return codes.AlreadyExists
	case errors.Is(err, game.ErrInvariantViolation), errors.Is(err, repository.ErrCorruptSnapshot):
		return codes.Internal
	default:
		return codes.Unknown
	}
}

// StatusFromError converts err into a gRPC status carrying its message.
func StatusFromError(err error) *status.Status {
	if s, ok := status.FromError(err); ok {
		return s
	}
	return status.New(CodeFor(err), err.Error())
}

// RecoveryInterceptor turns handler panics into Internal errors.
func RecoveryInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				if logger != nil {
					logger.Error("panic in grpc handler",
						zap.String("method", info.FullMethod),
						zap.Any("panic", r),
						zap.ByteString("stack", debug.Stack()),
					)
				}
				err = status.Errorf(codes.Internal, "internal error")
			}
		}()
		return handler(ctx, req)
	}
}

// LoggingInterceptor logs every call with its duration and status code.
func LoggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		if logger != nil {
			logger.Debug("grpc call",
				zap.String("method", info.FullMethod),
				zap.Duration("duration", time.Since(start)),
				zap.String("code", status.Code(err).String()),
			)
		}
		return resp, err
	}
}

// NewGRPCServer builds the gRPC server with the standard health service
// registered and MatchServiceName marked as serving.
func NewGRPCServer(cfg config.GRPCConfig, logger *zap.Logger) (*grpc.Server, *health.Server) {
	opts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(
			RecoveryInterceptor(logger),
			LoggingInterceptor(logger),
		),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    30 * time.Second,
			Timeout: 10 * time.Second,
		}),
	}
	if cfg.MaxConcurrentStreams > 0 {
		opts = append(opts, grpc.MaxConcurrentStreams(uint32(cfg.MaxConcurrentStreams)))
	}

	srv := grpc.NewServer(opts...)
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(srv, healthSrv)
	healthSrv.SetServingStatus(MatchServiceName, healthpb.HealthCheckResponse_SERVING)
	return srv, healthSrv
}
