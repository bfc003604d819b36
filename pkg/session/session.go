// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"sync"
	"time"

	"github.com/absmach/mstomp/pkg/handler"
)

// Heartbeat is the negotiated heart-beat of a connection.
// Outgoing is how often the server pulses the client, Incoming how often the
// client promised to pulse the server. Zero disables either direction.
type Heartbeat struct {
	Outgoing time.Duration
	Incoming time.Duration
}

// Session is the per-connection state owned by the dispatcher.
type Session struct {
	ID            string
	Subscriptions *Subscriptions
	Transactions  *Transactions

	// Context is handed to handler hooks. It is only touched from the
	// connection's reader goroutine.
	Context handler.Context

	mu        sync.RWMutex
	heartbeat Heartbeat
	connected bool
}

// New creates an empty session for connection id.
func New(id string) *Session {
	return &Session{
		ID:            id,
		Subscriptions: NewSubscriptions(),
		Transactions:  NewTransactions(),
		Context:       handler.Context{SessionID: id},
	}
}

// SetHeartbeat records the heart-beat negotiated on CONNECT and marks the
// session connected.
func (s *Session) SetHeartbeat(hb Heartbeat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.heartbeat = hb
	s.connected = true
}

// Heartbeat returns the negotiated heart-beat. Transports read it from their
// own goroutines to schedule pulses and read deadlines.
func (s *Session) Heartbeat() Heartbeat {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.heartbeat
}

// Connected reports whether CONNECT completed on this session.
func (s *Session) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// Reset drops subscriptions and open transactions.
func (s *Session) Reset() {
	s.Subscriptions.Clear()
	s.Transactions.Clear()
}
