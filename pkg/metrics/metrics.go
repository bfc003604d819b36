// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package metrics provides Prometheus instrumentation for mstomp.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Frame directions.
const (
	Inbound  = "inbound"
	Outbound = "outbound"
)

// Metrics holds all Prometheus metrics for mstomp.
type Metrics struct {
	// Connection metrics
	ActiveConnections  *prometheus.GaugeVec
	TotalConnections   *prometheus.CounterVec
	ConnectionDuration *prometheus.HistogramVec

	// Frame metrics
	FramesTotal   *prometheus.CounterVec
	FrameDuration *prometheus.HistogramVec
	FrameErrors   *prometheus.CounterVec
	FrameSize     *prometheus.HistogramVec
	Heartbeats    *prometheus.CounterVec

	// Messaging metrics
	ActiveSubscriptions prometheus.Gauge
	MessagesDelivered   *prometheus.CounterVec
	Transactions        *prometheus.CounterVec

	// Rate limiter metrics
	RateLimitedRequests *prometheus.CounterVec

	// Auth metrics
	AuthAttempts *prometheus.CounterVec
	AuthFailures *prometheus.CounterVec

	// Circuit breaker metrics
	BreakerState *prometheus.GaugeVec
	BreakerTrips *prometheus.CounterVec
}

// New creates a new Metrics instance registered with reg.
// A nil reg registers with the Prometheus default registerer.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "mstomp"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	m := &Metrics{
		ActiveConnections: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_connections",
				Help:      "Number of currently active connections",
			},
			[]string{"protocol"},
		),
		TotalConnections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "connections_total",
				Help:      "Total number of connections",
			},
			[]string{"protocol", "status"},
		),
		ConnectionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "connection_duration_seconds",
				Help:      "Connection duration in seconds",
				Buckets:   []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60, 300, 600},
			},
			[]string{"protocol"},
		),
		FramesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "frames_total",
				Help:      "Total number of STOMP frames",
			},
			[]string{"action", "direction"},
		),
		FrameDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "frame_duration_seconds",
				Help:      "Inbound frame handling duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"action"},
		),
		FrameErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "frame_errors_total",
				Help:      "Total number of inbound frames that failed",
			},
			[]string{"action", "error_type"},
		),
		FrameSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "frame_size_bytes",
				Help:      "Frame size in bytes",
				Buckets:   []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"direction"},
		),
		Heartbeats: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "heartbeats_total",
				Help:      "Total number of heart-beat pulses",
			},
			[]string{"direction"},
		),
		ActiveSubscriptions: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_subscriptions",
				Help:      "Number of currently registered subscriptions",
			},
		),
		MessagesDelivered: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "messages_delivered_total",
				Help:      "Total number of broadcast deliveries to connections",
			},
			[]string{"status"},
		),
		Transactions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transactions_total",
				Help:      "Total number of transaction frames by outcome",
			},
			[]string{"outcome"},
		),
		RateLimitedRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limited_requests_total",
				Help:      "Total number of rate limited requests",
			},
			[]string{"protocol", "limiter_type"},
		),
		AuthAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "auth_attempts_total",
				Help:      "Total number of authentication attempts",
			},
			[]string{"protocol", "type"},
		),
		AuthFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "auth_failures_total",
				Help:      "Total number of authentication failures",
			},
			[]string{"protocol", "type", "reason"},
		),
		BreakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_state",
				Help:      "Circuit breaker state per destination (0=closed, 1=half-open, 2=open)",
			},
			[]string{"destination"},
		),
		BreakerTrips: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_trips_total",
				Help:      "Total number of times a destination's circuit breaker opened",
			},
			[]string{"destination"},
		),
	}

	return m
}

// ObserveConnection tracks a connection lifecycle.
func (m *Metrics) ObserveConnection(protocol string, f func() error) error {
	m.ActiveConnections.WithLabelValues(protocol).Inc()
	defer m.ActiveConnections.WithLabelValues(protocol).Dec()

	start := time.Now()
	defer func() {
		duration := time.Since(start).Seconds()
		m.ConnectionDuration.WithLabelValues(protocol).Observe(duration)
	}()

	err := f()
	status := "success"
	if err != nil {
		status = "error"
	}
	m.TotalConnections.WithLabelValues(protocol, status).Inc()

	return err
}

// ObserveFrame records an inbound frame handled since start.
func (m *Metrics) ObserveFrame(action string, size int, start time.Time) {
	m.FramesTotal.WithLabelValues(action, Inbound).Inc()
	m.FrameSize.WithLabelValues(Inbound).Observe(float64(size))
	m.FrameDuration.WithLabelValues(action).Observe(time.Since(start).Seconds())
}

// ObserveOutbound records a frame written to a connection.
func (m *Metrics) ObserveOutbound(action string, size int) {
	m.FramesTotal.WithLabelValues(action, Outbound).Inc()
	m.FrameSize.WithLabelValues(Outbound).Observe(float64(size))
}
