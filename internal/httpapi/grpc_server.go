package httpapi

import (
	"context"

	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"nurseconnect.org/internal/obs"
)

// HealthServer answers grpc.health.v1.Health/Check from the database clock.
// The empty service name and serviceName are both recognised.
type HealthServer struct {
	healthpb.UnimplementedHealthServer

	clock Clock
}

// NewHealthServer creates the gRPC health service. A nil clock always serves.
func NewHealthServer(clock Clock) *HealthServer {
	return &HealthServer{clock: clock}
}

// Check reports SERVING when the database answers, NOT_SERVING otherwise.
func (s *HealthServer) Check(ctx context.Context, req *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	if svc := req.GetService(); svc != "" && svc != serviceName {
		return nil, status.Errorf(codes.NotFound, "unknown service %q", svc)
	}
	if s.clock != nil {
		if _, err := s.clock.Now(ctx); err != nil {
			obs.SetReady(false)
			return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_NOT_SERVING}, nil
		}
	}
	obs.SetReady(true)
	return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING}, nil
}
