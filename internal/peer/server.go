package peer

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Server wraps a Node's HTTP mux in a listen/serve/shutdown lifecycle,
// following the teacher's daemon server pattern.
type Server struct {
	node       *Node
	httpServer *http.Server
	listener   net.Listener
}

// NewServer binds a Server to listen on addr.
func NewServer(n *Node, addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("bind peer listener on %s: %w", addr, err)
	}
	return &Server{
		node:     n,
		listener: listener,
		httpServer: &http.Server{
			Handler:      n.Mux(),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}, nil
}

// Addr returns the bound address (useful when addr was ":0").
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Serve runs the HTTP server until Shutdown is called. It returns
// http.ErrServerClosed on a clean shutdown.
func (s *Server) Serve() error {
	return s.httpServer.Serve(s.listener)
}

// Shutdown gracefully stops the server, waiting up to the given context's
// deadline for in-flight requests to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
