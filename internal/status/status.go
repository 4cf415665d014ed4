// Package status exposes the health of a running migration job over the
// standard gRPC health protocol.
package status

import (
	"context"
	"fmt"
	"net"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Server serves grpc.health.v1 for the job. The overall status and the status
// of Service are kept in step.
type Server struct {
	addr   string
	logger *zap.Logger

	mu       sync.Mutex
	grpc     *grpc.Server
	health   *health.Server
	listener net.Listener
	done     chan struct{}
}

// Service is the health service name reported for the job.
const Service = "hbase2hive.Migration"

// NewServer creates a status server that will listen on addr.
func NewServer(addr string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{addr: addr, logger: logger}
}

// Start listens and serves in the background until Stop is called or ctx ends.
// The job starts out SERVING.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.grpc != nil {
		return fmt.Errorf("status: server already started")
	}

	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("status: failed to listen on %s: %w", s.addr, err)
	}

	s.grpc = grpc.NewServer()
	s.health = health.NewServer()
	healthpb.RegisterHealthServer(s.grpc, s.health)
	s.listener = lis
	s.done = make(chan struct{})
	s.setLocked(true)

	go func() {
		s.logger.Info("status server listening", zap.String("addr", lis.Addr().String()))
		if err := s.grpc.Serve(lis); err != nil {
			s.logger.Warn("status server stopped", zap.Error(err))
		}
	}()
	go func(done chan struct{}) {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-done:
		}
	}(s.done)
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// SetServing reports the job as SERVING or NOT_SERVING.
func (s *Server) SetServing(serving bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.health != nil {
		s.setLocked(serving)
	}
}

func (s *Server) setLocked(serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(Service, st)
}

// Stop shuts the server down. It is safe to call more than once.
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.grpc == nil {
		return
	}
	s.health.Shutdown()
	s.grpc.GracefulStop()
	close(s.done)
	s.grpc = nil
	s.health = nil
	s.listener = nil
}
