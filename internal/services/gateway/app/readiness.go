package app

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ReadinessProbe reports whether a dependency is ready to serve.
type ReadinessProbe func(ctx context.Context) error

// GRPCHealthProbe asks a gRPC health service for the status of service
// ("" is the server as a whole).
func GRPCHealthProbe(conn grpc.ClientConnInterface, service string) ReadinessProbe {
	client := healthpb.NewHealthClient(conn)
	return func(ctx context.Context) error {
		resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
		if err != nil {
			return fmt.Errorf("health check: %w", err)
		}
		if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
			return fmt.Errorf("health check: %s", resp.GetStatus())
		}
		return nil
	}
}
