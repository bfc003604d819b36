// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package handler provides the interface that links the STOMP dispatcher to business logic.
//
// # Architecture Overview
//
// The Handler interface serves as the bridge between the frame dispatcher and
// application-level authorization and event handling. When the dispatcher extracts
// credentials or a destination from an inbound frame, it calls the corresponding
// Handler methods.
//
// # Data Flow
//
//	Client → Codec (parses frame) → Dispatcher → Handler (authorizes) → Destination service
//	Destination service → Broadcaster → Handler (notifies) → Subscribers
//
// # Handler Methods
//
// Authorization methods (Auth*) are called before a frame takes effect:
//   - AuthConnect: Verifies login/passcode during CONNECT
//   - AuthSubscribe: Authorizes a SUBSCRIBE destination
//   - AuthSend: Authorizes a SEND destination and payload
//
// Notification methods (On*) are called after successful operations:
//   - OnConnect: Notifies successful connection
//   - OnSubscribe: Notifies subscription
//   - OnUnsubscribe: Notifies unsubscription
//   - OnSend: Notifies a handled SEND
//   - OnHeartbeat: Notifies a client heartbeat pulse
//   - OnDisconnect: Notifies the end of a session
//
// # Context
//
// The Context struct carries session metadata across all handler calls:
//   - SessionID: Connection identifier, echoed in CONNECTED
//   - Username, Password: login and passcode headers
//   - Host: virtual host requested by the client
//   - Version: negotiated protocol version
//   - RemoteAddr: Client's network address
//   - Protocol: Transport name (tcp, ws)
//   - Cert: Client certificate for TLS connections
//
// # Example
//
//	type MyHandler struct {
//		handler.NoopHandler
//		authService AuthService
//	}
//
//	func (h *MyHandler) AuthConnect(ctx context.Context, hctx *handler.Context) error {
//		return h.authService.Authenticate(hctx.Username, hctx.Password)
//	}
//
//	func (h *MyHandler) AuthSend(ctx context.Context, hctx *handler.Context, destination *string, payload *[]byte) error {
//		return h.authService.AuthorizeSend(hctx.Username, *destination)
//	}
package handler
