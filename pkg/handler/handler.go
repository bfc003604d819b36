// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package handler

import (
	"context"
	"crypto/x509"
)

// Context contains connection metadata and credentials extracted from frames.
// It is passed to Handler methods to provide auth context.
type Context struct {
	// SessionID is the connection identifier, also sent back in CONNECTED.
	SessionID string

	// Username from the CONNECT login header
	Username string

	// Password from the CONNECT passcode header (raw bytes, not hashed)
	Password []byte

	// Host from the CONNECT host header (virtual host)
	Host string

	// Version is the negotiated protocol version, set once CONNECT succeeds
	Version string

	// RemoteAddr is the client's network address
	RemoteAddr string

	// Protocol indicates the transport being used (tcp, ws)
	Protocol string

	// Cert is the client's TLS certificate (if using mTLS)
	Cert *x509.Certificate
}

// Handler defines authorization and notification callbacks for STOMP frames.
// The dispatcher calls these methods at appropriate points in the frame lifecycle.
//
// Authorization methods (AuthConnect, AuthSubscribe, AuthSend) are called BEFORE
// the frame takes effect. They can:
// - Return an error to reject the frame
// - Modify mutable parameters (destination, payload) via pointers
// - Update the handler context
//
// Notification methods (OnConnect, OnSend, etc.) are called AFTER successful actions
// for audit logging, metrics, or post-processing. Errors from these methods are logged
// but don't undo the action.
type Handler interface {
	// AuthConnect authorizes a CONNECT or STOMP frame.
	// Return an error to reject the connection; the client receives an ERROR frame.
	AuthConnect(ctx context.Context, hctx *Context) error

	// AuthSubscribe authorizes a SUBSCRIBE frame.
	// The destination can be rewritten via the pointer.
	// Return an error to reject the subscription.
	AuthSubscribe(ctx context.Context, hctx *Context, destination *string) error

	// AuthSend authorizes a SEND frame before the destination service runs.
	// The destination and payload can be modified via their pointers.
	// Return an error to reject the frame.
	AuthSend(ctx context.Context, hctx *Context, destination *string, payload *[]byte) error

	// OnConnect is called after CONNECTED was written.
	OnConnect(ctx context.Context, hctx *Context) error

	// OnSubscribe is called after the subscription was registered.
	OnSubscribe(ctx context.Context, hctx *Context, id, destination string) error

	// OnUnsubscribe is called after the subscription was removed.
	OnUnsubscribe(ctx context.Context, hctx *Context, id, destination string) error

	// OnSend is called after the destination service handled a SEND frame.
	// Note: destination and payload are immutable copies (not pointers).
	OnSend(ctx context.Context, hctx *Context, destination string, payload []byte) error

	// OnHeartbeat is called for every heartbeat pulse received from the client.
	OnHeartbeat(ctx context.Context, hctx *Context) error

	// OnDisconnect is called when a session ends, by DISCONNECT or transport close.
	OnDisconnect(ctx context.Context, hctx *Context) error
}

// NoopHandler is a Handler implementation that allows all operations.
// Useful for testing or when no authorization is needed.
type NoopHandler struct{}

var _ Handler = (*NoopHandler)(nil)

func (h *NoopHandler) AuthConnect(ctx context.Context, hctx *Context) error {
	return nil
}

func (h *NoopHandler) AuthSubscribe(ctx context.Context, hctx *Context, destination *string) error {
	return nil
}

func (h *NoopHandler) AuthSend(ctx context.Context, hctx *Context, destination *string, payload *[]byte) error {
	return nil
}

func (h *NoopHandler) OnConnect(ctx context.Context, hctx *Context) error {
	return nil
}

func (h *NoopHandler) OnSubscribe(ctx context.Context, hctx *Context, id, destination string) error {
	return nil
}

func (h *NoopHandler) OnUnsubscribe(ctx context.Context, hctx *Context, id, destination string) error {
	return nil
}

func (h *NoopHandler) OnSend(ctx context.Context, hctx *Context, destination string, payload []byte) error {
	return nil
}

func (h *NoopHandler) OnHeartbeat(ctx context.Context, hctx *Context) error {
	return nil
}

func (h *NoopHandler) OnDisconnect(ctx context.Context, hctx *Context) error {
	return nil
}
