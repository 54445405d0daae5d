package server

import (
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthServiceName is the service reported next to the overall "" status.
const HealthServiceName = "pageocr.OCR"

// HealthServer serves grpc.health.v1 for orchestrators that probe over gRPC.
type HealthServer struct {
	grpc   *grpc.Server
	health *health.Server
	logger *slog.Logger
}

func NewHealthServer(logger *slog.Logger) *HealthServer {
	if logger == nil {
		logger = slog.Default()
	}
	gs := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(HealthServiceName, healthpb.HealthCheckResponse_SERVING)
	return &HealthServer{grpc: gs, health: hs, logger: logger}
}

// Serve blocks until the listener fails or Stop is called.
func (s *HealthServer) Serve(lis net.Listener) error {
	s.logger.Info("grpc health listening", "addr", lis.Addr().String())
	return s.grpc.Serve(lis)
}

// SetNotServing flips every service to NOT_SERVING so probes drain traffic.
func (s *HealthServer) SetNotServing() {
	s.health.Shutdown()
}

// Stop marks the server not serving and stops it gracefully.
func (s *HealthServer) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
