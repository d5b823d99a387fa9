package health

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

const bufSize = 1 << 20

type flakyDB struct{ down atomic.Bool }

func (f *flakyDB) PingContext(context.Context) error {
	if f.down.Load() {
		return errors.New("unable to open database file")
	}
	return nil
}

func dial(t *testing.T, s *Server) healthpb.HealthClient {
	t.Helper()
	lis := bufconn.Listen(bufSize)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return healthpb.NewHealthClient(conn)
}

func status(c healthpb.HealthClient, service string) healthpb.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	resp, err := c.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN
	}
	return resp.GetStatus()
}

func TestServingByDefault(t *testing.T) {
	c := dial(t, New("order", zerolog.Nop()))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, status(c, ""))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, status(c, "order"))
}

func TestMonitorFollowsDatabase(t *testing.T) {
	s := New("catalog", zerolog.Nop())
	c := dial(t, s)
	db := &flakyDB{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Monitor(ctx, db, 10*time.Millisecond)

	db.down.Store(true)
	assert.Eventually(t, func() bool {
		return status(c, "catalog") == healthpb.HealthCheckResponse_NOT_SERVING
	}, 2*time.Second, 10*time.Millisecond)

	db.down.Store(false)
	assert.Eventually(t, func() bool {
		return status(c, "catalog") == healthpb.HealthCheckResponse_SERVING
	}, 2*time.Second, 10*time.Millisecond)
}

func TestMonitorDefaultsNonPositiveInterval(t *testing.T) {
	s := New("order", zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Monitor(ctx, &flakyDB{}, 0)
		s.Monitor(ctx, &flakyDB{}, -time.Second)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Monitor did not return after cancel")
	}
}
