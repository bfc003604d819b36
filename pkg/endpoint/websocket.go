// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package endpoint

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/absmach/mstomp/pkg/metrics"
	"github.com/absmach/mstomp/pkg/server"
	"github.com/absmach/mstomp/pkg/server/websocket"
	"github.com/go-chi/chi/v5"
)

// DefaultPath is where the WebSocket handler is mounted when no path is set.
const DefaultPath = "/stomp"

// WebSocketConfig holds configuration for the WebSocket endpoint.
type WebSocketConfig struct {
	Host            string
	Port            string
	Path            string
	AllowedOrigins  []string
	MaxFrameSize    int64
	TLSConfig       *tls.Config
	ShutdownTimeout time.Duration
	Metrics         *metrics.Metrics
	Logger          *slog.Logger
}

// WebSocket coordinates the HTTP server and the STOMP WebSocket handler.
type WebSocket struct {
	server          *http.Server
	handler         *websocket.Handler
	shutdownTimeout time.Duration
	logger          *slog.Logger
}

// NewWebSocket creates a WebSocket endpoint feeding d, mounted at cfg.Path.
func NewWebSocket(cfg WebSocketConfig, d server.Dispatcher) *WebSocket {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Path == "" {
		cfg.Path = DefaultPath
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}

	h := websocket.New(websocket.Config{
		AllowedOrigins: cfg.AllowedOrigins,
		MaxFrameSize:   cfg.MaxFrameSize,
		Metrics:        cfg.Metrics,
		Logger:         cfg.Logger,
	}, d)

	r := chi.NewRouter()
	r.Handle(cfg.Path, h)

	return &WebSocket{
		server: &http.Server{
			Addr:              net.JoinHostPort(cfg.Host, cfg.Port),
			Handler:           r,
			TLSConfig:         cfg.TLSConfig,
			ReadHeaderTimeout: 10 * time.Second,
		},
		handler:         h,
		shutdownTimeout: cfg.ShutdownTimeout,
		logger:          cfg.Logger,
	}
}

// Handler returns the router serving the endpoint.
func (e *WebSocket) Handler() http.Handler {
	return e.server.Handler
}

// Listen starts the WebSocket endpoint and blocks until context is cancelled.
func (e *WebSocket) Listen(ctx context.Context) error {
	e.logger.Info("WebSocket server started", slog.String("address", e.server.Addr))

	errCh := make(chan error, 1)
	go func() {
		if e.server.TLSConfig != nil {
			// WSS
			errCh <- e.server.ListenAndServeTLS("", "")
		} else {
			// WS
			errCh <- e.server.ListenAndServe()
		}
	}()

	select {
	case <-ctx.Done():
		e.logger.Info("shutdown signal received, closing WebSocket server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), e.shutdownTimeout)
		defer cancel()

		// Hijacked connections are not tracked by the HTTP server.
		err := errors.Join(e.server.Shutdown(shutdownCtx), e.handler.Shutdown(shutdownCtx))
		if err != nil {
			e.logger.Error("error during shutdown", slog.String("error", err.Error()))
			return err
		}

		e.logger.Info("WebSocket server shutdown complete")
		return nil

	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		_ = e.handler.Shutdown(context.Background())
		return err
	}
}
