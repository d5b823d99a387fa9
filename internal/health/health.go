// Package health runs the gRPC side of every service: the standard health
// service, whose status follows a database ping, plus server reflection.
package health

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

type Pinger interface {
	PingContext(ctx context.Context) error
}

type Server struct {
	grpc    *grpc.Server
	hs      *health.Server
	service string
	log     zerolog.Logger
}

func New(service string, logger zerolog.Logger) *Server {
	s := &Server{
		grpc:    grpc.NewServer(),
		hs:      health.NewServer(),
		service: service,
		log:     logger,
	}
	healthpb.RegisterHealthServer(s.grpc, s.hs)
	reflection.Register(s.grpc)
	s.SetServing(true)
	return s
}

// SetServing flips both the named service and the overall ("") status.
func (s *Server) SetServing(ok bool) {
	st := healthpb.HealthCheckResponse_SERVING
	if !ok {
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.hs.SetServingStatus("", st)
	s.hs.SetServingStatus(s.service, st)
}

// Monitor pings db every interval and updates the status until ctx ends.
func (s *Server) Monitor(ctx context.Context, db Pinger, every time.Duration) {
	if every <= 0 {
		every = 15 * time.Second
	}
	t := time.NewTicker(every)
	defer t.Stop()
	healthy := true
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			pctx, cancel := context.WithTimeout(ctx, every)
			err := db.PingContext(pctx)
			cancel()
			if ok := err == nil; ok != healthy {
				healthy = ok
				s.SetServing(ok)
				if ok {
					s.log.Info().Msg("database reachable again")
				} else {
					s.log.Warn().Err(err).Msg("database ping failed, reporting NOT_SERVING")
				}
			}
		}
	}
}

func (s *Server) Serve(lis net.Listener) error {
	err := s.grpc.Serve(lis)
	if errors.Is(err, grpc.ErrServerStopped) {
		return nil
	}
	return err
}

func (s *Server) ListenAndServe(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.log.Info().Str("addr", addr).Msg("gRPC health listening")
	return s.Serve(lis)
}

func (s *Server) Stop() {
	s.hs.Shutdown()
	s.grpc.GracefulStop()
}
