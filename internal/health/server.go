// Package health exposes the standard gRPC health service for orchestrators.
package health

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
)

// ServiceName is the name reported alongside the overall ("") status.
const ServiceName = "careerbot"

// Server serves grpc.health.v1.Health.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
	logger *slog.Logger
}

// New creates a Server that reports NOT_SERVING until SetServing(true).
func New(logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	gs := grpc.NewServer(
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    2 * time.Minute,
			Timeout: 10 * time.Second,
		}),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)

	s := &Server{grpc: gs, health: hs, logger: logger}
	s.SetServing(false)
	return s
}

// SetServing flips the reported status of the overall server and ServiceName.
func (s *Server) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

// ListenAndServe listens on addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	var lc net.ListenConfig
	lis, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, lis)
}

// Serve serves on lis until ctx is done, then reports NOT_SERVING and stops gracefully.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("gRPC health server listening", "addr", lis.Addr().String())
		errCh <- s.grpc.Serve(lis)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("serve grpc health: %w", err)
		}
		return nil
	case <-ctx.Done():
		s.health.Shutdown()
		s.grpc.GracefulStop()
		<-errCh
		return nil
	}
}
