// Command composer-probe checks the serving state of a container, or of one
// model in it, against the operator's gRPC health service.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/anvil-platform/composer/internal/health"
)

func main() {
	var target string
	var container string
	var path string
	var timeout time.Duration
	flag.StringVar(&target, "target", "127.0.0.1:9090", "gRPC health address of the operator")
	flag.StringVar(&container, "container", "default/shop", "container as namespace/name")
	flag.StringVar(&path, "model", "", "model path inside the container, e.g. /frontend; the container itself when empty")
	flag.DurationVar(&timeout, "timeout", 3*time.Second, "request timeout")
	flag.Parse()

	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "dial %s: %v\n", target, err)
		os.Exit(2)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	serving, err := probe(ctx, healthpb.NewHealthClient(conn), health.ServiceName(container, path), os.Stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if !serving {
		os.Exit(1)
	}
}

// probe prints the status of service and reports whether it is serving.
func probe(ctx context.Context, c healthpb.HealthClient, service string, out io.Writer) (bool, error) {
	resp, err := c.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return false, fmt.Errorf("check %s: %w", service, err)
	}
	fmt.Fprintf(out, "%s: %s\n", service, resp.GetStatus())
	return resp.GetStatus() == healthpb.HealthCheckResponse_SERVING, nil
}
