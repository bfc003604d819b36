// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package endpoint

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net"
	"time"

	"github.com/absmach/mstomp/pkg/metrics"
	"github.com/absmach/mstomp/pkg/server"
	"github.com/absmach/mstomp/pkg/server/tcp"
)

// TCPConfig holds configuration for the raw TCP endpoint.
type TCPConfig struct {
	Host            string
	Port            string
	TLSConfig       *tls.Config
	MaxFrameSize    int
	ShutdownTimeout time.Duration
	Metrics         *metrics.Metrics
	Logger          *slog.Logger
}

// TCP coordinates the STOMP TCP server.
type TCP struct {
	server *tcp.Server
}

// NewTCP creates a TCP endpoint feeding d.
func NewTCP(cfg TCPConfig, d server.Dispatcher) *TCP {
	serverCfg := tcp.Config{
		Address:         net.JoinHostPort(cfg.Host, cfg.Port),
		TLSConfig:       cfg.TLSConfig,
		ShutdownTimeout: cfg.ShutdownTimeout,
		MaxFrameSize:    cfg.MaxFrameSize,
		Metrics:         cfg.Metrics,
		Logger:          cfg.Logger,
	}

	return &TCP{
		server: tcp.New(serverCfg, d),
	}
}

// Listen starts the TCP endpoint and blocks until context is cancelled.
func (e *TCP) Listen(ctx context.Context) error {
	return e.server.Listen(ctx)
}
