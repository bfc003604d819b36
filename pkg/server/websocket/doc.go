// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package websocket serves STOMP over WebSocket.
//
// # Overview
//
// Handler is an http.Handler. It upgrades the request with gorilla/websocket,
// offering the v11.stomp and v10.stomp subprotocols, and then feeds every
// text or binary message to the Dispatcher as one frame. Writes, including
// broadcasts and heart-beats, go out as text messages.
//
// # Origins
//
// When Config.AllowedOrigins is set, upgrades from any other Origin are
// refused with 403 and logged as an invalid origin.
//
// # Shutdown
//
// An http.Server does not track hijacked connections. Call Handler.Shutdown
// after the server stopped accepting requests to close the open WebSockets
// and wait for their sessions to be released.
package websocket
