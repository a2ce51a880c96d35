package main

import (
	"bytes"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/anvil-platform/composer/internal/health"
)

func TestProbe(t *testing.T) {
	lis := bufconn.Listen(1 << 20)
	srv, hs := health.NewServer()
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	client := healthpb.NewHealthClient(conn)

	r := health.NewReporter(hs, "default/shop")
	r.SetContainer(true)
	hs.SetServingStatus(health.ServiceName("default/shop", "/frontend"), healthpb.HealthCheckResponse_NOT_SERVING)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	var out bytes.Buffer
	serving, err := probe(ctx, client, "default/shop", &out)
	if err != nil || !serving {
		t.Fatalf("expected container serving, got %v (%v)", serving, err)
	}
	if !strings.Contains(out.String(), "default/shop: SERVING") {
		t.Fatalf("unexpected output %q", out.String())
	}

	serving, err = probe(ctx, client, "default/shop/frontend", &out)
	if err != nil || serving {
		t.Fatalf("expected frontend not serving, got %v (%v)", serving, err)
	}

	_, err = probe(ctx, client, "default/shop/missing", &out)
	if status.Code(err) != codes.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
}
