// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package mstomp

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
)

var errAppendCA = errors.New("failed to append CA certificates")

// Config is the configuration of one listener, read from the environment
// under a per-listener prefix.
type Config struct {
	Host            string        `env:"HOST"             envDefault:""`
	Port            string        `env:"PORT"             envDefault:""`
	Path            string        `env:"PATH"             envDefault:"/stomp"`
	MaxFrameSize    int           `env:"MAX_FRAME_SIZE"   envDefault:"65536"`
	AllowedOrigins  []string      `env:"ALLOWED_ORIGINS"  envSeparator:","`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	CertFile     string `env:"CERT_FILE"      envDefault:""`
	KeyFile      string `env:"KEY_FILE"       envDefault:""`
	ClientCAFile string `env:"CLIENT_CA_FILE" envDefault:""`
}

// NewConfig parses a listener configuration.
func NewConfig(opts env.Options) (Config, error) {
	c := Config{}
	if err := env.ParseWithOptions(&c, opts); err != nil {
		return Config{}, err
	}
	return c, nil
}

// TLS builds the listener TLS configuration. It returns nil when no
// certificate is configured. A client CA turns on mutual TLS.
func (c Config) TLS() (*tls.Config, error) {
	if c.CertFile == "" && c.KeyFile == "" {
		return nil, nil
	}

	cert, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load server certificate: %w", err)
	}
	cfg := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}

	if c.ClientCAFile == "" {
		return cfg, nil
	}
	pem, err := os.ReadFile(c.ClientCAFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read client CA: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, errAppendCA
	}
	cfg.ClientCAs = pool
	cfg.ClientAuth = tls.RequireAndVerifyClientCert

	return cfg, nil
}

// DispatcherConfig configures frame processing shared by every listener.
type DispatcherConfig struct {
	Codec            string        `env:"CODEC"             envDefault:"text"`
	Adapter          string        `env:"ADAPTER"           envDefault:"default"`
	IgnoreErrors     bool          `env:"IGNORE_ERRORS"     envDefault:"false"`
	HeartbeatMinimum time.Duration `env:"HEARTBEAT_MINIMUM" envDefault:"60s"`
	ServerName       string        `env:"SERVER_NAME"       envDefault:"mstomp"`
}

// NewDispatcherConfig parses the dispatcher configuration.
func NewDispatcherConfig(opts env.Options) (DispatcherConfig, error) {
	c := DispatcherConfig{}
	if err := env.ParseWithOptions(&c, opts); err != nil {
		return DispatcherConfig{}, err
	}
	return c, nil
}
