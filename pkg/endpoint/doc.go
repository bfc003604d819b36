// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package endpoint wires the STOMP transports to network listeners.
//
// # Available Endpoints
//
//   - TCP: raw STOMP on host:port, optionally over TLS
//   - WebSocket: STOMP over WebSocket, mounted at Path (default /stomp)
//
// Every endpoint feeds the same Dispatcher, so a MESSAGE published by a TCP
// client reaches WebSocket subscribers and the other way round.
//
// # Example
//
//	d := stomp.New(stomp.Config{Destinations: registry})
//
//	tcpEndpoint := endpoint.NewTCP(endpoint.TCPConfig{Port: "61613"}, d)
//	wsEndpoint := endpoint.NewWebSocket(endpoint.WebSocketConfig{Port: "8080"}, d)
//
//	g.Go(func() error { return tcpEndpoint.Listen(ctx) })
//	g.Go(func() error { return wsEndpoint.Listen(ctx) })
//
// Listen blocks until ctx is cancelled, then drains open connections for up
// to ShutdownTimeout.
package endpoint
