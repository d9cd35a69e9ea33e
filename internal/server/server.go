// Package server is the transport layer: it accepts TCP connections,
// reads framed command envelopes, routes each one to the right
// execution pool, and writes replies and sync bundles back under a
// per-connection single-writer discipline.
package server

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/exemee/Laba8-server/internal/dispatch"
	"github.com/exemee/Laba8-server/internal/logger"
	"github.com/exemee/Laba8-server/internal/pool"
	"github.com/exemee/Laba8-server/pkg/metrics"
)

// Config holds transport settings.
type Config struct {
	// ListenAddr is the "host:port" the server listens on.
	ListenAddr string

	// MaxConnections caps concurrent client connections. 0 = unlimited.
	MaxConnections int

	// ReadTimeout bounds reading one frame; IdleTimeout bounds the gap
	// between frames; WriteTimeout bounds one reply write.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// RateLimit and RateBurst bound envelopes per second per
	// connection. 0 disables limiting.
	RateLimit float64
	RateBurst int

	// SyncInterval is the period between "regular" sync bundle pushes.
	// 0 disables periodic sync; the "init" push on connect still
	// happens.
	SyncInterval time.Duration

	// ShutdownTimeout bounds how long Stop waits for connections to
	// drain before forcing them closed.
	ShutdownTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = ":7777"
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 30 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 30 * time.Second
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 5 * time.Minute
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 30 * time.Second
	}
}

// Server accepts connections and feeds the dispatcher through the two
// execution pools.
type Server struct {
	config     Config
	dispatcher *dispatch.Dispatcher
	fixedPool  *pool.Fixed
	scanPool   *pool.Scan
	metrics    metrics.CommandMetrics

	listener      net.Listener
	boundAddr     atomic.Value // net.Addr, set once Serve has bound
	connSemaphore chan struct{}
	activeConns   sync.WaitGroup
	connCount     atomic.Int32
	openConns     sync.Map // connection id -> net.Conn, for forced close

	shutdown     chan struct{}
	shutdownOnce sync.Once
}

// New wires a Server. All collaborators are injected; nil metrics means
// no-op.
func New(config Config, d *dispatch.Dispatcher, fixed *pool.Fixed, scan *pool.Scan, m metrics.CommandMetrics) *Server {
	config.applyDefaults()

	var sem chan struct{}
	if config.MaxConnections > 0 {
		sem = make(chan struct{}, config.MaxConnections)
	}
	if m == nil {
		m = metrics.NewNoopCommandMetrics()
	}

	return &Server{
		config:        config,
		dispatcher:    d,
		fixedPool:     fixed,
		scanPool:      scan,
		metrics:       m,
		connSemaphore: sem,
		shutdown:      make(chan struct{}),
	}
}

// Serve accepts connections until the context is cancelled, then drains
// active connections within ShutdownTimeout.
func (s *Server) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.config.ListenAddr, err)
	}
	s.listener = listener
	s.boundAddr.Store(listener.Addr())
	logger.Info("Server listening on %s", listener.Addr())

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	for {
		if s.connSemaphore != nil {
			select {
			case s.connSemaphore <- struct{}{}:
			case <-s.shutdown:
				return s.drain()
			}
		}

		tcpConn, err := listener.Accept()
		if err != nil {
			s.releaseConnSlot()
			select {
			case <-s.shutdown:
				return s.drain()
			default:
				logger.Warn("Accept failed: %v", err)
				continue
			}
		}

		c := newConn(s, tcpConn)
		s.trackConn(c)

		s.activeConns.Add(1)
		go func() {
			defer s.activeConns.Done()
			defer s.untrackConn(c)
			c.serve(ctx)
		}()
	}
}

// Addr returns the bound listener address, or nil before Serve has
// bound it. Useful when listening on an ephemeral port.
func (s *Server) Addr() net.Addr {
	if addr, ok := s.boundAddr.Load().(net.Addr); ok {
		return addr
	}
	return nil
}

// Stop closes the listener and signals every connection to wind down.
// Safe to call more than once.
func (s *Server) Stop() {
	s.shutdownOnce.Do(func() {
		close(s.shutdown)
		if s.listener != nil {
			_ = s.listener.Close()
		}
	})
}

func (s *Server) drain() error {
	done := make(chan struct{})
	go func() {
		s.activeConns.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("All connections drained")
	case <-time.After(s.config.ShutdownTimeout):
		logger.Warn("Shutdown timeout; forcing %d connections closed", s.connCount.Load())
		s.openConns.Range(func(_, v any) bool {
			_ = v.(net.Conn).Close()
			return true
		})
		s.activeConns.Wait()
	}
	return nil
}

func (s *Server) trackConn(c *conn) {
	s.openConns.Store(c.id, c.conn)
	s.metrics.RecordConnectionAccepted()
	s.metrics.SetActiveConnections(s.connCount.Add(1))
}

func (s *Server) untrackConn(c *conn) {
	s.openConns.Delete(c.id)
	s.metrics.RecordConnectionClosed()
	s.metrics.SetActiveConnections(s.connCount.Add(-1))
	s.releaseConnSlot()
}

func (s *Server) releaseConnSlot() {
	if s.connSemaphore != nil {
		select {
		case <-s.connSemaphore:
		default:
		}
	}
}
