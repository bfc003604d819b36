// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package main provides a production-ready mstomp deployment
// with metrics, health checks and rate limiting.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/absmach/mstomp"
	"github.com/absmach/mstomp/examples/chat"
	"github.com/absmach/mstomp/examples/simple"
	"github.com/absmach/mstomp/pkg/breaker"
	"github.com/absmach/mstomp/pkg/broadcast"
	"github.com/absmach/mstomp/pkg/destination"
	"github.com/absmach/mstomp/pkg/endpoint"
	"github.com/absmach/mstomp/pkg/health"
	"github.com/absmach/mstomp/pkg/metrics"
	"github.com/absmach/mstomp/pkg/ratelimit"
	"github.com/absmach/mstomp/pkg/stomp"
	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

// Config holds the application configuration.
type Config struct {
	// Observability
	OpsPort   int    `env:"OPS_PORT"   envDefault:"9090"`
	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Resource Limits
	MaxSessions   int `env:"MAX_SESSIONS"   envDefault:"10000"`
	MaxGoroutines int `env:"MAX_GOROUTINES" envDefault:"50000"`

	// Rate Limiting
	ConnectCapacity    int64         `env:"CONNECT_RATE_CAPACITY" envDefault:"10"`
	ConnectRefill      int64         `env:"CONNECT_RATE_REFILL"   envDefault:"1"`
	SendCapacity       int64         `env:"SEND_RATE_CAPACITY"    envDefault:"100"`
	SendRefill         int64         `env:"SEND_RATE_REFILL"      envDefault:"10"`
	GlobalRateCapacity int64         `env:"GLOBAL_RATE_CAPACITY"  envDefault:"10000"`
	GlobalRateRefill   int64         `env:"GLOBAL_RATE_REFILL"    envDefault:"1000"`
	RateLimitIdle      time.Duration `env:"RATE_LIMIT_IDLE"       envDefault:"5m"`

	// Circuit breaker guarding destination services
	BreakerMaxFailures  int           `env:"BREAKER_MAX_FAILURES"  envDefault:"5"`
	BreakerResetTimeout time.Duration `env:"BREAKER_RESET_TIMEOUT" envDefault:"30s"`
	ServiceTimeout      time.Duration `env:"SERVICE_TIMEOUT"       envDefault:"5s"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Users is a list of login:passcode pairs. Empty accepts every CONNECT.
	Users map[string]string `env:"USERS" envSeparator:"," envKeyValSeparator:":"`
}

func main() {
	// .env file is optional
	_ = godotenv.Load()

	cfg := Config{}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "MSTOMP_"}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse config: %v\n", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.LogLevel, cfg.LogFormat)
	logger.Info("Starting mstomp in production mode",
		slog.Int("max_sessions", cfg.MaxSessions),
		slog.Int("max_goroutines", cfg.MaxGoroutines))

	m := metrics.New("mstomp", prometheus.DefaultRegisterer)

	// Rate limiters
	connectLimiter := ratelimit.NewLimiter(cfg.ConnectCapacity, cfg.ConnectRefill, cfg.MaxSessions, cfg.RateLimitIdle)
	defer connectLimiter.Close()
	sendLimiter := ratelimit.NewLimiter(cfg.SendCapacity, cfg.SendRefill, cfg.MaxSessions, cfg.RateLimitIdle)
	defer sendLimiter.Close()

	hooks := simple.New(logger)
	hooks.Users = cfg.Users
	limited := ratelimit.NewHandler(hooks, ratelimit.Config{
		Global:  ratelimit.NewTokenBucket(cfg.GlobalRateCapacity, cfg.GlobalRateRefill),
		Connect: connectLimiter,
		Send:    sendLimiter,
		Metrics: m,
		Logger:  logger,
	})

	dispatcher, registry, err := newDispatcher(cfg, limited, m, logger)
	if err != nil {
		logger.Error("Failed to create dispatcher", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Health checks
	checker := health.NewChecker(10 * time.Second)
	checker.Register("goroutines", health.MaxCount("goroutines", runtime.NumGoroutine, cfg.MaxGoroutines))
	checker.Register("sessions", health.MaxCount("sessions", dispatcher.Sessions, cfg.MaxSessions))
	checker.RegisterCritical("destinations", health.NotEmpty("destinations", registry.Destinations))

	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return serveOps(ctx, cfg.OpsPort, checker, logger)
	})

	if err := startTCP(g, ctx, dispatcher, m, logger); err != nil {
		logger.Warn("TCP endpoint not started", slog.String("error", err.Error()))
	}
	if err := startWebSocket(g, ctx, dispatcher, m, logger); err != nil {
		logger.Warn("WebSocket endpoint not started", slog.String("error", err.Error()))
	}

	// Setup graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout+5*time.Second)
	defer shutdownCancel()

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			logger.Error("Shutdown error", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("Graceful shutdown completed")
	case <-shutdownCtx.Done():
		logger.Warn("Shutdown timeout exceeded, forcing exit")
		os.Exit(1)
	}
}

func newDispatcher(c Config, h *ratelimit.Handler, m *metrics.Metrics, logger *slog.Logger) (*stomp.Dispatcher, *destination.Registry, error) {
	cfg, err := mstomp.NewDispatcherConfig(env.Options{Prefix: "MSTOMP_"})
	if err != nil {
		return nil, nil, err
	}
	codec, err := mstomp.NewCodec(cfg.Codec)
	if err != nil {
		return nil, nil, err
	}
	adapter, err := stomp.NewAdapter(cfg.Adapter)
	if err != nil {
		return nil, nil, err
	}

	registry := destination.NewRegistry(broadcast.New(broadcast.Config{Metrics: m, Logger: logger}))
	registry.Use(breaker.Middleware(breaker.Config{
		MaxFailures:  c.BreakerMaxFailures,
		ResetTimeout: c.BreakerResetTimeout,
		Timeout:      c.ServiceTimeout,
		Ignore:       func(err error) bool { return errors.Is(err, chat.ErrEmptyMessage) },
	}, m, logger))
	if err := chat.Register(registry, nil); err != nil {
		return nil, nil, err
	}

	d := stomp.New(stomp.Config{
		Destinations:     registry,
		Codec:            codec,
		Adapter:          adapter,
		Handler:          h,
		IgnoreErrors:     cfg.IgnoreErrors,
		HeartbeatMinimum: cfg.HeartbeatMinimum,
		ServerName:       cfg.ServerName,
		Metrics:          m,
		Logger:           logger,
	})
	return d, registry, nil
}

func startTCP(g *errgroup.Group, ctx context.Context, d *stomp.Dispatcher, m *metrics.Metrics, logger *slog.Logger) error {
	cfg, err := mstomp.NewConfig(env.Options{Prefix: "MSTOMP_TCP_"})
	if err != nil {
		return err
	}
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
		Metrics:         m,
		Logger:          logger,
	}, d)

	g.Go(func() error {
		logger.Info("Starting TCP endpoint", slog.String("address", net.JoinHostPort(cfg.Host, cfg.Port)))
		return e.Listen(ctx)
	})
	return nil
}

func startWebSocket(g *errgroup.Group, ctx context.Context, d *stomp.Dispatcher, m *metrics.Metrics, logger *slog.Logger) error {
	cfg, err := mstomp.NewConfig(env.Options{Prefix: "MSTOMP_WS_"})
	if err != nil {
		return err
	}
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
		Metrics:         m,
		Logger:          logger,
	}, d)

	g.Go(func() error {
		logger.Info("Starting WebSocket endpoint",
			slog.String("address", net.JoinHostPort(cfg.Host, cfg.Port)),
			slog.String("path", cfg.Path))
		return e.Listen(ctx)
	})
	return nil
}

// setupLogger creates a structured logger with the specified level and format.
func setupLogger(level, format string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

// serveOps serves metrics and health probes until ctx is done.
func serveOps(ctx context.Context, port int, checker *health.Checker, logger *slog.Logger) error {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	checker.Routes(r)

	srv := &http.Server{
		Addr:         ":" + strconv.Itoa(port),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting ops server", slog.String("address", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
