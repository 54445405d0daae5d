package server

import (
	"context"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func TestHealthServer(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	hs := NewHealthServer(discardLogger())
	go func() { _ = hs.Serve(lis) }()
	defer hs.Stop()

	conn, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	client := healthpb.NewHealthClient(conn)

	check := func(service string) healthpb.HealthCheckResponse_ServingStatus {
		t.Helper()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
		if err != nil {
			t.Fatalf("Check(%q): %v", service, err)
		}
		return resp.GetStatus()
	}

	if got := check(""); got != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("overall status = %v", got)
	}
	if got := check(HealthServiceName); got != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("%s status = %v", HealthServiceName, got)
	}

	hs.SetNotServing()
	if got := check(HealthServiceName); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("after shutdown status = %v, want NOT_SERVING", got)
	}
}
