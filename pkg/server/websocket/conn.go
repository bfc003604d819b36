// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package websocket

import (
	"crypto/x509"
	"sync"
	"sync/atomic"
	"time"

	"github.com/absmach/mstomp/pkg/stomp"
	"github.com/gorilla/websocket"
)

// Conn is a STOMP connection carried by a WebSocket. Every write is sent as
// one text message.
type Conn struct {
	ws           *websocket.Conn
	id           string
	remote       string
	cert         *x509.Certificate
	writeTimeout time.Duration

	wio       sync.Mutex
	suspended atomic.Bool
	closed    atomic.Bool
}

var _ stomp.CertConn = (*Conn)(nil)

// NewConn wraps ws as a STOMP connection identified by id.
func NewConn(ws *websocket.Conn, id, remote string, writeTimeout time.Duration) *Conn {
	return &Conn{
		ws:           ws,
		id:           id,
		remote:       remote,
		writeTimeout: writeTimeout,
	}
}

func (c *Conn) ID() string                     { return c.id }
func (c *Conn) RemoteAddr() string             { return c.remote }
func (c *Conn) Protocol() string               { return Protocol }
func (c *Conn) Certificate() *x509.Certificate { return c.cert }
func (c *Conn) Suspended() bool                { return c.suspended.Load() }
func (c *Conn) Suspend()                       { c.suspended.Store(true) }

// Write sends p as a single text message.
func (c *Conn) Write(p []byte) error {
	c.wio.Lock()
	defer c.wio.Unlock()

	if c.closed.Load() {
		return websocket.ErrCloseSent
	}
	if c.writeTimeout > 0 {
		if err := c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return err
		}
	}
	return c.ws.WriteMessage(websocket.TextMessage, p)
}

// Close sends a close message and closes the underlying connection. Only the
// first call has an effect.
func (c *Conn) Close(reason stomp.CloseReason) error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason.String())
	_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))

	return c.ws.Close()
}
