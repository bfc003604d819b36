// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package server holds what the STOMP transports share: the Dispatcher they
// feed frames to and the heart-beat pulse.
//
// # Transports
//
//   - tcp: raw STOMP over TCP, frames delimited by NUL
//   - websocket: one STOMP frame per WebSocket text message
//
// Each transport reads frames on one goroutine per connection and hands them
// to Dispatcher.HandleFrame. Once CONNECT completed, the transport reads the
// negotiated heart-beat from the session: it starts a Pulse goroutine for the
// outgoing direction and sets read deadlines from the incoming one. When the
// connection ends the transport calls Dispatcher.Release.
package server
