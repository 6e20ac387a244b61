package httpapi

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// GRPCServer exposes grpc.health.v1.Health. The status follows the
// readiness probe: SERVING while it passes, NOT_SERVING otherwise.
type GRPCServer struct {
	health    *health.Server
	readiness readinessChecker
	interval  time.Duration
	logger    *slog.Logger
}

// NewGRPCServer creates the health service wrapper.
func NewGRPCServer(r readinessChecker, logger *slog.Logger) *GRPCServer {
	if r == nil {
		r = ReadyProbe{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GRPCServer{
		health:    health.NewServer(),
		readiness: r,
		interval:  10 * time.Second,
		logger:    logger,
	}
}

// Register installs the health service on srv.
func (s *GRPCServer) Register(srv *grpc.Server) {
	healthpb.RegisterHealthServer(srv, s.health)
}

// Refresh runs the readiness probe once and publishes the result for both
// the overall server and the console service name.
func (s *GRPCServer) Refresh(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	if err := s.readiness.Check(ctx); err != nil {
		s.logger.WarnContext(ctx, "readiness check failed", slog.Any("error", err))
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(serviceName, status)
	return status
}

// Watch refreshes the status until ctx ends, then marks the server as
// shutting down.
func (s *GRPCServer) Watch(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	s.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			s.health.Shutdown()
			return
		case <-ticker.C:
			s.Refresh(ctx)
		}
	}
}
