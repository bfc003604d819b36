// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package websocket

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	mserrors "github.com/absmach/mstomp/pkg/errors"
	"github.com/absmach/mstomp/pkg/metrics"
	"github.com/absmach/mstomp/pkg/server"
	"github.com/absmach/mstomp/pkg/stomp"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Protocol is the protocol label of WebSocket connections.
const Protocol = "websocket"

// Subprotocols are the STOMP WebSocket subprotocols offered during upgrade.
var Subprotocols = []string{"v11.stomp", "v10.stomp"}

// Config holds the WebSocket handler configuration.
type Config struct {
	// AllowedOrigins lists the Origin values accepted on upgrade. Empty
	// accepts every origin.
	AllowedOrigins []string

	// MaxFrameSize bounds a single inbound message. Zero means unbounded.
	MaxFrameSize int64

	// WriteTimeout bounds every write to a client.
	WriteTimeout time.Duration

	// Metrics is optional.
	Metrics *metrics.Metrics

	// Logger for handler events
	Logger *slog.Logger
}

// Handler upgrades HTTP requests to WebSocket and serves STOMP over them,
// one frame per text message.
type Handler struct {
	config     Config
	dispatcher server.Dispatcher
	upgrader   websocket.Upgrader

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ http.Handler = (*Handler)(nil)

// New creates a new WebSocket handler feeding d.
func New(cfg Config, d server.Dispatcher) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &Handler{
		config:     cfg,
		dispatcher: d,
		ctx:        ctx,
		cancel:     cancel,
	}
	h.upgrader = websocket.Upgrader{
		Subprotocols: Subprotocols,
		CheckOrigin:  h.checkOrigin,
	}
	return h
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if len(h.config.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if slices.Contains(h.config.AllowedOrigins, origin) {
		return true
	}
	h.config.Logger.Warn("websocket upgrade rejected",
		slog.String("remote", r.RemoteAddr),
		slog.String("origin", origin),
		slog.String("error", mserrors.ErrInvalidOrigin.Error()))
	return false
}

// ServeHTTP implements http.Handler interface.
// It upgrades the request and serves the connection until it closes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.wg.Add(1)
	defer h.wg.Done()

	if h.ctx.Err() != nil {
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.config.Logger.Error("failed to upgrade client connection",
			slog.String("remote", r.RemoteAddr),
			slog.String("error", err.Error()))
		return
	}

	c := NewConn(ws, uuid.New().String(), r.RemoteAddr, h.config.WriteTimeout)
	if r.TLS != nil && len(r.TLS.PeerCertificates) > 0 {
		c.cert = r.TLS.PeerCertificates[0]
	}

	if h.config.Metrics == nil {
		h.serve(c)
		return
	}
	_ = h.config.Metrics.ObserveConnection(Protocol, func() error {
		h.serve(c)
		return nil
	})
}

func (h *Handler) serve(c *Conn) {
	defer c.Close(stomp.CloseByServer)

	if h.config.MaxFrameSize > 0 {
		c.ws.SetReadLimit(h.config.MaxFrameSize)
	}

	ctx := h.ctx
	stop := context.AfterFunc(ctx, func() {
		_ = c.Close(stomp.CloseByServer)
	})
	defer stop()

	ka := server.NewKeepalive(ctx, h.dispatcher, c.id, c.Write, h.countPulse)
	defer func() {
		ka.Stop()
		h.dispatcher.Release(context.Background(), c)
		h.config.Logger.Debug("websocket connection closed", slog.String("session", c.id))
	}()

	h.config.Logger.Debug("websocket connection upgraded",
		slog.String("session", c.id),
		slog.String("remote", c.remote),
		slog.String("subprotocol", c.ws.Subprotocol()))

	for !c.closed.Load() {
		if t := ka.ReadTimeout(); t > 0 {
			if err := c.ws.SetReadDeadline(time.Now().Add(t)); err != nil {
				return
			}
		}
		_, msg, err := c.ws.ReadMessage()
		if err != nil {
			if !c.closed.Load() && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logError(c, err)
			}
			return
		}

		h.dispatcher.HandleFrame(ctx, msg, c)
		ka.Update()
	}
}

func (h *Handler) logError(c *Conn, err error) {
	if errors.Is(err, websocket.ErrReadLimit) {
		h.config.Logger.Warn("frame exceeds size limit",
			slog.String("session", c.id),
			slog.String("error", mserrors.ErrSizeLimitExceeded.Error()))
		return
	}
	h.config.Logger.Debug("websocket read error",
		slog.String("session", c.id),
		slog.String("error", err.Error()))
}

func (h *Handler) countPulse() {
	if h.config.Metrics != nil {
		h.config.Metrics.Heartbeats.WithLabelValues(metrics.Outbound).Inc()
	}
}

// Shutdown closes every open connection and waits for them to be released,
// or for ctx to be done.
func (h *Handler) Shutdown(ctx context.Context) error {
	h.cancel()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
