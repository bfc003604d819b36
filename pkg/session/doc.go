// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package session holds per-connection STOMP state.
//
// A Session bundles the subscription registry, the transaction buffer, the
// negotiated heart-beat and the handler context of one connection. Sessions
// live in a Store keyed by connection id; they are created on the first frame
// and removed when the connection ends.
//
// # Concurrency
//
// Transactions carry no lock: all frames of a connection are handled on that
// connection's reader goroutine. Subscriptions are written the same way but
// read by broadcasts from other connections, so they hold a read-write lock.
// The Store guards only its map. The heart-beat is guarded separately because
// transports read it from their pulse goroutines.
package session
