package api

import (
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service name reported alongside the overall
// server status.
const ServiceName = "stockmcp.Tools"

// healthService wraps the standard gRPC health server.
type healthService struct {
	srv *health.Server
}

func newHealthService() *healthService {
	h := &healthService{srv: health.NewServer()}
	h.srv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	h.srv.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	return h
}

// shutdown flips every service to NOT_SERVING.
func (h *healthService) shutdown() {
	h.srv.Shutdown()
}

func (s *Server) startGRPC(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	s.ServeGRPC(ln)
	return nil
}

// ServeGRPC starts the gRPC health service on ln in the background.
func (s *Server) ServeGRPC(ln net.Listener) {
	gs := grpc.NewServer()
	hs := newHealthService()
	healthpb.RegisterHealthServer(gs, hs.srv)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		ln.Close()
		return
	}
	s.grpcServer, s.health = gs, hs
	s.mu.Unlock()

	go func() {
		s.log.Info("gRPC health listening", "addr", ln.Addr().String())
		if err := gs.Serve(ln); err != nil {
			s.log.Error("gRPC server error", "error", err)
		}
	}()
}

// stopGRPC stops the gRPC health service if it is running.
func (s *Server) stopGRPC() {
	s.mu.Lock()
	gs, hs := s.grpcServer, s.health
	s.grpcServer = nil
	s.mu.Unlock()

	if hs != nil {
		hs.shutdown()
	}
	if gs != nil {
		gs.Stop()
	}
}
