// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package tcp serves STOMP over raw TCP.
//
// # Overview
//
// The server accepts connections and hands every inbound frame to a
// Dispatcher. It supports TLS, heart-beating and graceful shutdown.
//
//	┌─────────┐         ┌─────────┐         ┌────────────┐
//	│ Client  │ ←─TCP─→ │  Server │ ──────→ │ Dispatcher │
//	└─────────┘         └─────────┘         └────────────┘
//
// # Connection Flow
//
//  1. Client connects to server
//  2. Server completes the TLS handshake, if any
//  3. Server reads NUL-terminated frames and calls HandleFrame for each
//  4. After CONNECTED the server pulses and enforces the read deadline
//  5. When either side closes, the server calls Release
//
// Inbound frames honour content-length, so a body may carry NUL bytes. A bare
// EOL between frames is passed to the dispatcher as a heart-beat. Frames
// larger than MaxFrameSize end the connection.
//
// # Graceful Shutdown
//
// When context is canceled:
//
//  1. Server stops accepting new connections
//  2. Server waits for existing connections (with timeout)
//  3. After ShutdownTimeout, forcefully closes remaining connections
//  4. Returns ErrShutdownTimeout if timeout exceeded
//
// # Example
//
//	cfg := tcp.Config{
//		Address:         ":61613",
//		ShutdownTimeout: 30 * time.Second,
//	}
//
//	server := tcp.New(cfg, dispatcher)
//	if err := server.Listen(ctx); err != nil {
//		log.Fatal(err)
//	}
package tcp
