// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package breaker

import (
	"context"
	"log/slog"

	"github.com/absmach/mstomp/pkg/destination"
	"github.com/absmach/mstomp/pkg/metrics"
)

// Guard returns svc with its handler called through cb.
func Guard(svc destination.Service, cb *CircuitBreaker) destination.Service {
	next := svc.Handle
	svc.Handle = func(ctx context.Context, args destination.Args) (any, error) {
		var result any
		err := cb.Call(ctx, func(ctx context.Context) error {
			var err error
			result, err = next(ctx, args)
			return err
		})
		if err != nil {
			return nil, err
		}
		return result, nil
	}
	return svc
}

// Middleware gives every destination registered after it its own breaker.
// State changes are logged and, when m is set, exported per destination.
func Middleware(cfg Config, m *metrics.Metrics, logger *slog.Logger) destination.Middleware {
	if logger == nil {
		logger = slog.Default()
	}

	return func(dest string, svc destination.Service) destination.Service {
		c := cfg
		c.OnStateChange = func(from, to State) {
			logger.Warn("Circuit breaker state changed",
				slog.String("destination", dest),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
			if m != nil {
				m.BreakerState.WithLabelValues(dest).Set(float64(to))
				if to == StateOpen {
					m.BreakerTrips.WithLabelValues(dest).Inc()
				}
			}
			if cfg.OnStateChange != nil {
				cfg.OnStateChange(from, to)
			}
		}
		if m != nil {
			m.BreakerState.WithLabelValues(dest).Set(float64(StateClosed))
		}
		return Guard(svc, New(c))
	}
}
