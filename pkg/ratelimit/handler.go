// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package ratelimit

import (
	"context"
	"log/slog"
	"net"

	"github.com/absmach/mstomp/pkg/handler"
	"github.com/absmach/mstomp/pkg/metrics"
)

// Limiter types reported in the rate limited metric.
const (
	limitGlobal  = "global"
	limitConnect = "connect"
	limitSend    = "send"
)

// Config holds the limiters applied by Handler. Nil limiters are skipped.
type Config struct {
	// Global is shared by every CONNECT and SEND.
	Global *TokenBucket

	// Connect is keyed by the client host.
	Connect *Limiter

	// Send is keyed by session.
	Send *Limiter

	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// Handler wraps a handler.Handler and refuses CONNECT and SEND frames over
// their rate. A refused hook returns ErrRateLimitExceeded, which the
// dispatcher reports to the client as an ERROR frame.
type Handler struct {
	handler.Handler
	config Config
}

var _ handler.Handler = (*Handler)(nil)

// NewHandler wraps h.
func NewHandler(h handler.Handler, cfg Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Handler{Handler: h, config: cfg}
}

// AuthConnect implements handler.Handler with rate limiting.
func (h *Handler) AuthConnect(ctx context.Context, hctx *handler.Context) error {
	if !h.allowGlobal(hctx) {
		return ErrRateLimitExceeded
	}
	if h.config.Connect != nil && !h.config.Connect.Allow(clientHost(hctx.RemoteAddr)) {
		h.limited(hctx, limitConnect)
		return ErrRateLimitExceeded
	}
	return h.Handler.AuthConnect(ctx, hctx)
}

// AuthSend implements handler.Handler with rate limiting.
func (h *Handler) AuthSend(ctx context.Context, hctx *handler.Context, destination *string, payload *[]byte) error {
	if !h.allowGlobal(hctx) {
		return ErrRateLimitExceeded
	}
	if h.config.Send != nil && !h.config.Send.Allow(hctx.SessionID) {
		h.limited(hctx, limitSend)
		return ErrRateLimitExceeded
	}
	return h.Handler.AuthSend(ctx, hctx, destination, payload)
}

// OnDisconnect implements handler.Handler and forgets the session bucket.
func (h *Handler) OnDisconnect(ctx context.Context, hctx *handler.Context) error {
	if h.config.Send != nil {
		h.config.Send.Remove(hctx.SessionID)
	}
	return h.Handler.OnDisconnect(ctx, hctx)
}

func (h *Handler) allowGlobal(hctx *handler.Context) bool {
	if h.config.Global == nil || h.config.Global.Allow() {
		return true
	}
	h.limited(hctx, limitGlobal)
	return false
}

func (h *Handler) limited(hctx *handler.Context, kind string) {
	if h.config.Metrics != nil {
		h.config.Metrics.RateLimitedRequests.WithLabelValues(hctx.Protocol, kind).Inc()
	}
	h.config.Logger.Warn("Rate limit exceeded",
		slog.String("limiter", kind),
		slog.String("session", hctx.SessionID),
		slog.String("remote", hctx.RemoteAddr))
}

func clientHost(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
