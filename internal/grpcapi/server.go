// Package grpcapi serves the standard gRPC health protocol for the
// backoffice, driven by periodic store readiness probes.
package grpcapi

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"smartlotto.org/internal/obs"
)

// ServiceName is the health service name reported next to the overall "" entry.
const ServiceName = "smartlotto.backoffice.v1.Backoffice"

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server wraps a grpc.Server with the health service registered.
type Server struct {
	srv      *grpc.Server
	health   *health.Server
	probe    Pinger
	interval time.Duration
	timeout  time.Duration
}

// New registers the health service. Until the first probe both entries report NOT_SERVING.
func New(probe Pinger, interval time.Duration, opts ...grpc.ServerOption) *Server {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	s := &Server{
		srv:      grpc.NewServer(opts...),
		health:   health.NewServer(),
		probe:    probe,
		interval: interval,
		timeout:  2 * time.Second,
	}
	healthpb.RegisterHealthServer(s.srv, s.health)
	s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// Probe runs one readiness check and publishes the result.
func (s *Server) Probe(ctx context.Context) error {
	var err error
	if s.probe != nil {
		pctx, cancel := context.WithTimeout(ctx, s.timeout)
		err = s.probe.Ping(pctx)
		cancel()
	}
	if err != nil {
		obs.LoggerFrom(ctx).Warn("readiness probe failed", zap.Error(err))
		s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
		obs.SetReady(false)
		return err
	}
	s.setStatus(healthpb.HealthCheckResponse_SERVING)
	obs.SetReady(true)
	return nil
}

// Watch probes until ctx is done, then marks the service as shutting down.
func (s *Server) Watch(ctx context.Context) {
	_ = s.Probe(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.health.Shutdown()
			return
		case <-ticker.C:
			_ = s.Probe(ctx)
		}
	}
}

// Serve blocks serving on lis.
func (s *Server) Serve(lis net.Listener) error {
	return s.srv.Serve(lis)
}

// GracefulStop drains in-flight RPCs.
func (s *Server) GracefulStop() {
	s.health.Shutdown()
	s.srv.GracefulStop()
}

func (s *Server) setStatus(st healthpb.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
}
