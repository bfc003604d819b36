// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package stomp

import (
	"crypto/x509"

	"github.com/absmach/mstomp/pkg/broadcast"
)

// CloseReason records which side ended a connection.
type CloseReason int

const (
	// CloseByServer is a close decided by the dispatcher, such as a failed CONNECT.
	CloseByServer CloseReason = iota
	// CloseByClient is a close requested with DISCONNECT.
	CloseByClient
)

func (r CloseReason) String() string {
	if r == CloseByClient {
		return "client"
	}
	return "server"
}

// Conn is the transport connection seen by the dispatcher.
// Write must be safe for concurrent use: broadcasts from other connections
// and heart-beat pulses write alongside frame responses.
type Conn interface {
	ID() string
	RemoteAddr() string
	Protocol() string
	Write(p []byte) error

	// Suspended reports whether the connection is held open for pushes.
	Suspended() bool
	Suspend()

	Close(reason CloseReason) error
}

// CertConn is a Conn that carries the verified client certificate of a
// TLS session.
type CertConn interface {
	Conn
	Certificate() *x509.Certificate
}

// Broadcaster is the fan-out the dispatcher attaches connections to.
type Broadcaster interface {
	Attach(destination string, sub broadcast.Subscriber)
	Detach(destination, id string)
	Lookup(destination string) *broadcast.Target
}

// Directive tells the transport what to do after a frame was handled.
type Directive int

const (
	// Continue processing; the frame was handled.
	Continue Directive = iota
	// Skip the frame; the connection stays usable.
	Skip
	// Cancel the frame. When the connection should end the dispatcher has
	// already closed it.
	Cancel
)

func (d Directive) String() string {
	switch d {
	case Continue:
		return "continue"
	case Skip:
		return "skip"
	case Cancel:
		return "cancel"
	default:
		return "unknown"
	}
}

var (
	_ Broadcaster          = (*broadcast.Broadcaster)(nil)
	_ broadcast.Subscriber = (Conn)(nil)
)
