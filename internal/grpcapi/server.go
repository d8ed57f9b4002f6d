package grpcapi

import (
	"fmt"
	"net"

	"google.golang.org/grpc"

	"github.com/eqsat/eqsat/internal/repository"
	"github.com/eqsat/eqsat/pkg/utils"
)

// Server owns the grpc.Server and its listener.
type Server struct {
	port   int
	logger utils.Logger
	server *grpc.Server
}

// NewServer creates a gRPC server exposing RunService against repos.
func NewServer(port int, repos *repository.Repositories, clock utils.Clock, logger utils.Logger) *Server {
	if logger == nil {
		logger = utils.NewDefaultLogger(utils.LevelInfo, nil)
	}

	grpcServer := grpc.NewServer()
	RegisterRunServiceServer(grpcServer, NewService(repos, clock, logger))

	return &Server{
		port:   port,
		logger: logger,
		server: grpcServer,
	}
}

// Start listens on the configured port and serves until Stop is called
// or Serve returns an error.
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("grpcapi: listen: %w", err)
	}

	s.logger.Info("Starting gRPC API at :%d", s.port)
	return s.server.Serve(lis)
}

// Stop gracefully stops the gRPC server.
func (s *Server) Stop() {
	s.server.GracefulStop()
}
