package server

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/exemee/Laba8-server/internal/dispatch"
	"github.com/exemee/Laba8-server/internal/logger"
	"github.com/exemee/Laba8-server/internal/protocol/wire"
)

// conn is one client connection. It owns the write side: every reply
// and sync bundle goes through send, which holds writeMu, so the two
// execution pools can complete tasks for this connection concurrently
// without interleaving bytes on the wire.
type conn struct {
	server *Server
	conn   net.Conn
	id     string

	writeMu sync.Mutex
	limiter *rate.Limiter
}

func newConn(s *Server, tcpConn net.Conn) *conn {
	var limiter *rate.Limiter
	if s.config.RateLimit > 0 {
		burst := s.config.RateBurst
		if burst <= 0 {
			burst = int(s.config.RateLimit)
		}
		limiter = rate.NewLimiter(rate.Limit(s.config.RateLimit), burst)
	}

	return &conn{
		server:  s,
		conn:    tcpConn,
		id:      uuid.NewString(),
		limiter: limiter,
	}
}

// serve reads envelopes until the connection dies or the server shuts
// down. A panic in the read path closes only this connection.
func (c *conn) serve(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Panic on connection %s from %s: %v", c.id, c.remote(), r)
		}
		_ = c.conn.Close()
	}()

	logger.Debug("Connection %s opened from %s", c.id, c.remote())

	// First contact: push the full collection so the client can render
	// immediately.
	if err := c.pushSync(ctx, wire.SyncInit); err != nil {
		logger.Warn("Init sync to %s failed: %v", c.remote(), err)
		return
	}

	stopSync := c.startSyncTicker(ctx)
	defer stopSync()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.server.shutdown:
			return
		default:
		}

		if err := c.handleEnvelope(ctx); err != nil {
			switch {
			case err == io.EOF:
				logger.Debug("Connection %s closed by client", c.id)
			case isTimeout(err):
				logger.Debug("Connection %s timed out: %v", c.id, err)
			default:
				logger.Warn("Connection %s read failed: %v", c.id, err)
			}
			return
		}
	}
}

// handleEnvelope reads one envelope and submits it to the pool matching
// its verb. The reply is written by the pool task; read and reply are
// deliberately decoupled, so no ordering is guaranteed across
// envelopes from the same connection.
func (c *conn) handleEnvelope(ctx context.Context) error {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.server.config.IdleTimeout)); err != nil {
		return err
	}

	var env wire.Envelope
	if err := wire.ReadFrame(c.conn, &env); err != nil {
		return err
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	task := func() {
		verb := string(env.Verb)
		c.server.metrics.RecordCommandStart(verb)
		start := time.Now()

		reply := c.server.dispatcher.Dispatch(ctx, &env, c.remote())

		c.server.metrics.RecordCommandEnd(verb)
		c.server.metrics.RecordCommand(verb, reply.Kind, time.Since(start))

		if err := c.send(reply); err != nil {
			logger.Warn("Reply to %s (verb %s) failed: %v", c.remote(), env.Verb, err)
		}
	}

	var err error
	if dispatch.IsScanVerb(env.Verb) {
		err = c.server.scanPool.Submit(task)
	} else {
		err = c.server.fixedPool.Submit(task)
	}
	if err != nil {
		return err
	}
	return nil
}

// send writes one frame under the connection write lock. This is the
// single-writer discipline: at most one frame is in flight per
// connection no matter which pool produced it.
func (c *conn) send(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(c.server.config.WriteTimeout)); err != nil {
		return err
	}
	return wire.WriteFrame(c.conn, v)
}

// pushSync sends a full-collection sync bundle with the given mode.
func (c *conn) pushSync(ctx context.Context, mode string) error {
	bundle, err := c.server.dispatcher.SyncBundle(ctx, mode)
	if err != nil {
		return err
	}
	if err := c.send(bundle); err != nil {
		return err
	}
	c.server.metrics.RecordSync(mode)
	return nil
}

// startSyncTicker pushes "regular" sync bundles on the configured
// interval. Returns a stop function; a no-op when sync is disabled.
func (c *conn) startSyncTicker(ctx context.Context) func() {
	if c.server.config.SyncInterval <= 0 {
		return func() {}
	}

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(c.server.config.SyncInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := c.pushSync(ctx, wire.SyncRegular); err != nil {
					logger.Debug("Regular sync to %s failed: %v", c.remote(), err)
					return
				}
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-c.server.shutdown:
				return
			}
		}
	}()
	return func() { close(done) }
}

func (c *conn) remote() string {
	return c.conn.RemoteAddr().String()
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
