// Package health reports commissioned models through the standard gRPC
// health service. Every model is a service named "<container>/<path>", e.g.
// "default/shop/web"; the container itself is "<container>".
package health

import (
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/anvil-platform/composer/internal/commission"
)

// NewServer returns a gRPC server with the health service registered.
func NewServer(opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	srv := grpc.NewServer(opts...)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	return srv, hs
}

// Reporter publishes the serving state of one container's models. It is a
// commission.Listener.
type Reporter struct {
	server    *health.Server
	container string
}

func NewReporter(server *health.Server, container string) *Reporter {
	return &Reporter{server: server, container: container}
}

var _ commission.Listener = (*Reporter)(nil)

// ServiceName is the health service name of the model at path.
func ServiceName(container, path string) string {
	if path == "" || path == "/" {
		return container
	}
	return container + "/" + strings.TrimPrefix(path, "/")
}

// Completed marks a model serving once it is commissioned and not serving
// once it is decommissioned or fails to commission.
func (r *Reporter) Completed(res commission.Result) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if res.Direction == commission.Commissioning && res.Succeeded() {
		status = healthpb.HealthCheckResponse_SERVING
	}
	r.server.SetServingStatus(ServiceName(r.container, res.Model), status)
}

// SetContainer reports the container as a whole.
func (r *Reporter) SetContainer(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	r.server.SetServingStatus(r.container, status)
}

// Forget marks the container and the given model paths unknown, for a
// container that no longer exists.
func (r *Reporter) Forget(paths ...string) {
	r.server.SetServingStatus(r.container, healthpb.HealthCheckResponse_SERVICE_UNKNOWN)
	for _, p := range paths {
		r.server.SetServingStatus(ServiceName(r.container, p), healthpb.HealthCheckResponse_SERVICE_UNKNOWN)
	}
}
