// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/absmach/mstomp"
	"github.com/absmach/mstomp/examples/chat"
	"github.com/absmach/mstomp/examples/simple"
	"github.com/absmach/mstomp/pkg/broadcast"
	"github.com/absmach/mstomp/pkg/destination"
	"github.com/absmach/mstomp/pkg/endpoint"
	"github.com/absmach/mstomp/pkg/stomp"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

const (
	dispatcherPrefix = "MSTOMP_"

	tcpWithoutTLS = "MSTOMP_TCP_WITHOUT_TLS_"
	tcpWithTLS    = "MSTOMP_TCP_WITH_TLS_"
	tcpWithmTLS   = "MSTOMP_TCP_WITH_MTLS_"

	wsWithoutTLS = "MSTOMP_WS_WITHOUT_TLS_"
	wsWithTLS    = "MSTOMP_WS_WITH_TLS_"
	wsWithmTLS   = "MSTOMP_WS_WITH_MTLS_"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)

	logHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})
	logger := slog.New(logHandler)

	// Load .env file
	if err := godotenv.Load(); err != nil {
		logger.Warn("no .env file found, using environment variables")
	}

	dispatcher, err := newDispatcher(logger)
	if err != nil {
		logger.Error("failed to create dispatcher", slog.String("error", err.Error()))
		os.Exit(1)
	}

	for _, prefix := range []string{tcpWithoutTLS, tcpWithTLS, tcpWithmTLS} {
		if err := startTCP(g, ctx, prefix, dispatcher, logger); err != nil {
			logger.Warn("TCP endpoint not started",
				slog.String("prefix", prefix),
				slog.String("error", err.Error()))
		}
	}

	for _, prefix := range []string{wsWithoutTLS, wsWithTLS, wsWithmTLS} {
		if err := startWebSocket(g, ctx, prefix, dispatcher, logger); err != nil {
			logger.Warn("WebSocket endpoint not started",
				slog.String("prefix", prefix),
				slog.String("error", err.Error()))
		}
	}

	// Signal handler
	g.Go(func() error {
		return StopSignalHandler(ctx, cancel, logger)
	})

	if err := g.Wait(); err != nil {
		logger.Error(fmt.Sprintf("mstomp service terminated with error: %s", err))
	} else {
		logger.Info("mstomp service stopped")
	}
}

func newDispatcher(logger *slog.Logger) (*stomp.Dispatcher, error) {
	cfg, err := mstomp.NewDispatcherConfig(env.Options{Prefix: dispatcherPrefix})
	if err != nil {
		return nil, err
	}
	codec, err := mstomp.NewCodec(cfg.Codec)
	if err != nil {
		return nil, err
	}
	adapter, err := stomp.NewAdapter(cfg.Adapter)
	if err != nil {
		return nil, err
	}

	registry := destination.NewRegistry(broadcast.New(broadcast.Config{Logger: logger}))
	if err := chat.Register(registry, nil); err != nil {
		return nil, err
	}

	return stomp.New(stomp.Config{
		Destinations:     registry,
		Codec:            codec,
		Adapter:          adapter,
		Handler:          simple.New(logger),
		IgnoreErrors:     cfg.IgnoreErrors,
		HeartbeatMinimum: cfg.HeartbeatMinimum,
		ServerName:       cfg.ServerName,
		Logger:           logger,
	}), nil
}

func startTCP(g *errgroup.Group, ctx context.Context, envPrefix string, d *stomp.Dispatcher, logger *slog.Logger) error {
	cfg, err := mstomp.NewConfig(env.Options{Prefix: envPrefix})
	if err != nil {
		return err
	}

	// Skip if port is not configured
	if cfg.Port == "" {
		return fmt.Errorf("port not configured")
	}

	tlsCfg, err := cfg.TLS()
	if err != nil {
		return err
	}

	e := endpoint.NewTCP(endpoint.TCPConfig{
		Host:            cfg.Host,
		Port:            cfg.Port,
		TLSConfig:       tlsCfg,
		MaxFrameSize:    cfg.MaxFrameSize,
		ShutdownTimeout: cfg.ShutdownTimeout,
		Logger:          logger,
	}, d)

	g.Go(func() error {
		return e.Listen(ctx)
	})

	logger.Info("TCP endpoint started", slog.String("prefix", envPrefix))
	return nil
}

func startWebSocket(g *errgroup.Group, ctx context.Context, envPrefix string, d *stomp.Dispatcher, logger *slog.Logger) error {
	cfg, err := mstomp.NewConfig(env.Options{Prefix: envPrefix})
	if err != nil {
		return err
	}

	// Skip if port is not configured
	if cfg.Port == "" {
		return fmt.Errorf("port not configured")
	}

	tlsCfg, err := cfg.TLS()
	if err != nil {
		return err
	}

	e := endpoint.NewWebSocket(endpoint.WebSocketConfig{
		Host:            cfg.Host,
		Port:            cfg.Port,
		Path:            cfg.Path,
		AllowedOrigins:  cfg.AllowedOrigins,
		MaxFrameSize:    int64(cfg.MaxFrameSize),
		TLSConfig:       tlsCfg,
		ShutdownTimeout: cfg.ShutdownTimeout,
		Logger:          logger,
	}, d)

	g.Go(func() error {
		return e.Listen(ctx)
	})

	logger.Info("WebSocket endpoint started", slog.String("prefix", envPrefix))
	return nil
}

func StopSignalHandler(ctx context.Context, cancel context.CancelFunc, logger *slog.Logger) error {
	c := make(chan os.Signal, 2)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-c:
		logger.Info("received shutdown signal")
		cancel()
		return nil
	case <-ctx.Done():
		return nil
	}
}
