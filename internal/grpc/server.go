package grpc

import (
	"fmt"
	"net"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/PapNorbert/WatchWise/pkg/log"
)

// ServiceName is the health service name reported for the gateway.
const ServiceName = "watchwise.chat.Gateway"

// Server wraps the gRPC server exposing grpc.health.v1 for the gateway.
type Server struct {
	srv    *grpc.Server
	health *health.Server
	lis    net.Listener
}

func NewServer(addr string, logger zerolog.Logger) (*Server, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s := grpc.NewServer(
		grpc.UnaryInterceptor(log.UnaryServerInterceptor(logger)),
		grpc.StreamInterceptor(log.StreamServerInterceptor(logger)),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	reflection.Register(s)

	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	return &Server{srv: s, health: hs, lis: lis}, nil
}

// Addr returns the bound listen address.
func (s *Server) Addr() string {
	return s.lis.Addr().String()
}

// Serve blocks until the server stops.
func (s *Server) Serve() error {
	l := log.L()
	l.Info().Str("address", s.Addr()).Msg("chat grpc server listening")
	if err := s.srv.Serve(s.lis); err != nil && err != grpc.ErrServerStopped {
		return err
	}
	return nil
}

// SetServing flips the overall and gateway health status.
func (s *Server) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

// Stop marks the service as not serving and drains in-flight calls.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.srv.GracefulStop()
}
