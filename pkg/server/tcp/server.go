// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package tcp

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/absmach/mstomp/pkg/metrics"
	"github.com/absmach/mstomp/pkg/server"
	"github.com/absmach/mstomp/pkg/stomp"
	"github.com/google/uuid"
)

// Protocol is the protocol label of TCP connections.
const Protocol = "tcp"

var (
	// ErrShutdownTimeout is returned when graceful shutdown exceeds the configured timeout.
	ErrShutdownTimeout = errors.New("shutdown timeout exceeded")
)

// Config holds the TCP server configuration.
type Config struct {
	// Address is the listen address (host:port)
	Address string

	// TLSConfig is optional TLS configuration for the listener
	TLSConfig *tls.Config

	// ShutdownTimeout is the maximum time to wait for active connections to drain
	// during graceful shutdown. After this timeout, remaining connections are
	// forcefully closed.
	ShutdownTimeout time.Duration

	// MaxFrameSize bounds a single inbound frame. Zero means unbounded.
	MaxFrameSize int

	// WriteTimeout bounds every write to a client.
	WriteTimeout time.Duration

	// Metrics is optional.
	Metrics *metrics.Metrics

	// Logger for server events
	Logger *slog.Logger
}

// Server accepts STOMP connections over TCP and feeds their frames to a
// Dispatcher.
type Server struct {
	config     Config
	dispatcher server.Dispatcher
	wg         sync.WaitGroup
}

// New creates a new TCP server with the given configuration and dispatcher.
func New(cfg Config, d server.Dispatcher) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}

	return &Server{
		config:     cfg,
		dispatcher: d,
	}
}

// Listen starts the TCP server and blocks until the context is cancelled.
// It implements graceful shutdown with connection draining.
func (s *Server) Listen(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Address, err)
	}
	return s.Serve(ctx, listener)
}

// Serve accepts connections on listener until the context is cancelled.
// The listener is closed on return.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	// Wrap with TLS if configured
	if s.config.TLSConfig != nil {
		listener = tls.NewListener(listener, s.config.TLSConfig)
		s.config.Logger.Info("TLS enabled", slog.String("address", listener.Addr().String()))
	}

	s.config.Logger.Info("TCP server started", slog.String("address", listener.Addr().String()))

	// Active connections get their own context so draining can outlive ctx.
	connCtx, connCancel := context.WithCancel(context.Background())
	defer connCancel()

	acceptDone := make(chan struct{})
	go func() {
		defer close(acceptDone)
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			conn, err := listener.Accept()
			if err != nil {
				select {
				case <-ctx.Done():
					return
				default:
				}
				if errors.Is(err, net.ErrClosed) {
					return
				}
				s.config.Logger.Error("failed to accept connection", slog.String("error", err.Error()))
				continue
			}

			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				if err := s.observe(connCtx, conn); err != nil && !errors.Is(err, io.EOF) {
					s.config.Logger.Debug("connection handler error",
						slog.String("remote", conn.RemoteAddr().String()),
						slog.String("error", err.Error()))
				}
			}()
		}
	}()

	<-ctx.Done()
	s.config.Logger.Info("shutdown signal received, closing listener")

	if err := listener.Close(); err != nil {
		s.config.Logger.Error("error closing listener", slog.String("error", err.Error()))
	}
	<-acceptDone

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.config.Logger.Info("all connections closed gracefully")
		return nil
	case <-time.After(s.config.ShutdownTimeout):
		s.config.Logger.Warn("shutdown timeout exceeded, forcing connection closure")
		connCancel()
		select {
		case <-done:
			return ErrShutdownTimeout
		case <-time.After(1 * time.Second):
			return ErrShutdownTimeout
		}
	}
}

func (s *Server) observe(ctx context.Context, nc net.Conn) error {
	if s.config.Metrics == nil {
		return s.handleConn(ctx, nc)
	}
	return s.config.Metrics.ObserveConnection(Protocol, func() error {
		return s.handleConn(ctx, nc)
	})
}

// handleConn reads frames from a client until either side closes it:
//  1. Complete the TLS handshake and keep the client certificate
//  2. Feed every frame to the dispatcher
//  3. After CONNECT, start pulsing and enforce the read deadline
//  4. Release the session when the connection ends
func (s *Server) handleConn(ctx context.Context, nc net.Conn) error {
	c := &conn{
		nc:           nc,
		id:           uuid.New().String(),
		writeTimeout: s.config.WriteTimeout,
	}
	defer c.Close(stomp.CloseByServer)

	if tlsConn, ok := nc.(*tls.Conn); ok {
		if err := tlsConn.Handshake(); err != nil {
			return fmt.Errorf("TLS handshake failed: %w", err)
		}
		state := tlsConn.ConnectionState()
		if len(state.PeerCertificates) > 0 {
			c.cert = state.PeerCertificates[0]
		}
	}

	stop := context.AfterFunc(ctx, func() {
		_ = c.Close(stomp.CloseByServer)
	})
	defer stop()

	ka := server.NewKeepalive(ctx, s.dispatcher, c.id, c.Write, s.countPulse)
	defer func() {
		ka.Stop()
		s.dispatcher.Release(context.Background(), c)
		s.config.Logger.Debug("connection closed", slog.String("session", c.id))
	}()

	s.config.Logger.Debug("connection established",
		slog.String("session", c.id),
		slog.String("client", c.RemoteAddr()))

	fr := newFrameReader(nc, s.config.MaxFrameSize)
	for !c.closed.Load() {
		if t := ka.ReadTimeout(); t > 0 {
			if err := nc.SetReadDeadline(time.Now().Add(t)); err != nil {
				return err
			}
		}
		raw, err := fr.next()
		if err != nil {
			if c.closed.Load() {
				return nil
			}
			return err
		}

		s.dispatcher.HandleFrame(ctx, raw, c)
		ka.Update()
	}
	return nil
}

func (s *Server) countPulse() {
	if s.config.Metrics != nil {
		s.config.Metrics.Heartbeats.WithLabelValues(metrics.Outbound).Inc()
	}
}

// conn is a client connection as the dispatcher sees it.
type conn struct {
	nc           net.Conn
	id           string
	cert         *x509.Certificate
	writeTimeout time.Duration

	wmu       sync.Mutex
	suspended atomic.Bool
	closed    atomic.Bool
}

var _ stomp.CertConn = (*conn)(nil)

func (c *conn) ID() string                     { return c.id }
func (c *conn) RemoteAddr() string             { return c.nc.RemoteAddr().String() }
func (c *conn) Protocol() string               { return Protocol }
func (c *conn) Certificate() *x509.Certificate { return c.cert }
func (c *conn) Suspended() bool                { return c.suspended.Load() }
func (c *conn) Suspend()                       { c.suspended.Store(true) }

func (c *conn) Write(p []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	if c.closed.Load() {
		return net.ErrClosed
	}
	if c.writeTimeout > 0 {
		if err := c.nc.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return err
		}
	}
	_, err := c.nc.Write(p)
	return err
}

func (c *conn) Close(stomp.CloseReason) error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.nc.Close()
}
