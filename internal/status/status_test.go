package status

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func check(t *testing.T, addr string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: Service})
	require.NoError(t, err)
	return resp.GetStatus()
}

func TestServer_ServingTransitions(t *testing.T) {
	s := NewServer("127.0.0.1:0", zaptest.NewLogger(t))
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, s.Addr()))

	s.SetServing(false)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, s.Addr()))

	s.SetServing(true)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, s.Addr()))

	assert.Error(t, s.Start(context.Background()), "double start")
}

func TestServer_StopIsIdempotent(t *testing.T) {
	s := NewServer("127.0.0.1:0", nil)
	s.SetServing(false)
	s.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	cancel()
	s.Stop()
	s.Stop()
	s.SetServing(true)
}
