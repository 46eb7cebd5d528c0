package grpc

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health check name of the inventory service.
const ServiceName = "inventory"

// Health reports whether the inventory has finished loading.
// Both the overall status and ServiceName start as NOT_SERVING.
type Health struct {
	srv *health.Server
}

func NewHealth() *Health {
	srv := health.NewServer()
	srv.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	srv.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return &Health{srv: srv}
}

// Register adds the standard health service to s.
func (h *Health) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, h.srv)
}

// SetServing marks the inventory ready, once products are loaded.
func (h *Health) SetServing() {
	h.srv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	h.srv.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
}

// Shutdown reports NOT_SERVING for every service and ignores later status changes.
func (h *Health) Shutdown() {
	h.srv.Shutdown()
}
