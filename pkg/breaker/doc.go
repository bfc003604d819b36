// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package breaker guards destination services with a circuit breaker.
//
// A breaker starts closed. After MaxFailures consecutive failed calls it
// opens and rejects calls with ErrCircuitOpen. Once ResetTimeout has passed
// the next call is let through in the half-open state: SuccessThreshold
// successes close the circuit, any failure opens it again.
//
// The dispatcher reports a rejected SEND like any other service error, so
// the client receives an ERROR frame unless errors are ignored.
//
//	reg.Use(breaker.Middleware(breaker.Config{MaxFailures: 5}, m, logger))
package breaker
