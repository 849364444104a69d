package server

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"tcpchat/internal/configs"
	"tcpchat/internal/pkg/limiter"
	"tcpchat/internal/pkg/logx"
)

// pause after a failed Accept so a persistent error does not spin the loop.
const acceptBackoff = 50 * time.Millisecond

// Server accepts connections and runs one Handler per connection, all sharing one Registry.
type Server struct {
	registry *Registry

	msgRate  rate.Limit
	msgBurst int

	// maxConns caps concurrently served connections; zero means unlimited.
	maxConns int

	// joinLimiter rejects connections above the per-IP join rate; nil means unlimited.
	joinLimiter *limiter.IPRateLimiter

	// mu protects conns and closing.
	mu      sync.Mutex
	conns   map[Conn]struct{}
	closing bool
	wg      sync.WaitGroup

	logger zerolog.Logger
}

// NewServer creates a server configured from cfg.
func NewServer(cfg *configs.AppConfig) *Server {
	s := &Server{
		registry: NewRegistry(cfg.WriteTimeout),
		msgRate:  rate.Limit(cfg.MsgRate),
		msgBurst: cfg.MsgBurst,
		maxConns: cfg.MaxConns,
		conns:    make(map[Conn]struct{}),
		logger:   logx.Component("server"),
	}
	if cfg.JoinRate > 0 {
		s.joinLimiter = limiter.NewIPRateLimiter(rate.Limit(cfg.JoinRate), cfg.JoinBurst)
	}
	return s
}

// Registry returns the registry shared by all connections.
func (s *Server) Registry() *Registry {
	return s.registry
}

// Serve accepts connections from ln until ctx is cancelled or ln is closed.
// Accept errors are logged and do not stop the loop. On return every active
// connection has been closed and its handler has finished.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info().Str("addr", ln.Addr().String()).Msg("Listening for chat connections")

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			ln.Close()
		case <-stop:
		}
	}()

	defer s.shutdown()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			s.logger.Error().Err(err).Msg("Failed to accept connection")
			time.Sleep(acceptBackoff)
			continue
		}

		if s.joinLimiter != nil && !s.joinLimiter.AllowAddr(conn.RemoteAddr().String()) {
			s.logger.Warn().Str("remote_addr", conn.RemoteAddr().String()).Msg("Join rate limit exceeded. Closing connection.")
			conn.Close()
			continue
		}

		go s.ServeConn(conn)
	}
}

// ServeConn runs a Handler for conn and blocks until it finishes. conn is closed
// without a reply when the server is shutting down or already full.
func (s *Server) ServeConn(conn Conn) {
	if !s.track(conn) {
		conn.Close()
		return
	}
	defer s.untrack(conn)

	NewHandler(conn, s.registry, s.msgRate, s.msgBurst).Serve()
}

func (s *Server) track(conn Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closing {
		return false
	}
	if s.maxConns > 0 && len(s.conns) >= s.maxConns {
		s.logger.Warn().Int("max_connections", s.maxConns).Msg("Chat is full. Closing connection.")
		return false
	}
	s.conns[conn] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(conn Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()

	s.wg.Done()
}

// shutdown closes every active connection and waits for the handlers to run their cleanup.
func (s *Server) shutdown() {
	s.mu.Lock()
	s.closing = true
	for conn := range s.conns {
		conn.Close()
	}
	active := len(s.conns)
	s.mu.Unlock()

	s.logger.Info().Int("active_connections", active).Msg("Shutting down. Waiting for connections to finish.")
	s.wg.Wait()

	if s.joinLimiter != nil {
		s.joinLimiter.Close()
	}
	s.logger.Info().Msg("Server stopped.")
}
