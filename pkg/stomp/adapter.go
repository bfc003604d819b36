// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package stomp

import (
	"fmt"

	"github.com/absmach/mstomp/pkg/errors"
	"github.com/absmach/mstomp/pkg/session"
)

// Adapter names in configuration.
const (
	DefaultAdapter   = "default"
	ImmediateAdapter = "immediate"
)

// Deliver broadcasts a service result to its destination.
type Deliver func(p session.Pending)

// Adapter decides how SEND results and transaction frames are applied.
type Adapter interface {
	// Validate checks the transaction named by a SEND before its service runs.
	Validate(s *session.Session, tx string) error

	// Send delivers p now or holds it in transaction tx.
	Send(s *session.Session, tx string, p session.Pending, deliver Deliver) error

	Begin(s *session.Session, tx string) error
	Commit(s *session.Session, tx string, deliver Deliver) error
	Abort(s *session.Session, tx string) error
}

// NewAdapter returns the adapter registered under name. An empty name selects
// the default adapter.
func NewAdapter(name string) (Adapter, error) {
	switch name {
	case "", DefaultAdapter:
		return transactional{}, nil
	case ImmediateAdapter:
		return immediate{}, nil
	default:
		return nil, fmt.Errorf("unknown adapter %q", name)
	}
}

// transactional buffers results of transactional SENDs until COMMIT.
type transactional struct{}

func (transactional) Validate(s *session.Session, tx string) error {
	if tx == "" || s.Transactions.IsOpen(tx) {
		return nil
	}
	return fmt.Errorf("%w: %q", errors.ErrUnknownTransaction, tx)
}

func (transactional) Send(s *session.Session, tx string, p session.Pending, deliver Deliver) error {
	if tx == "" {
		deliver(p)
		return nil
	}
	return s.Transactions.Add(tx, p)
}

func (transactional) Begin(s *session.Session, tx string) error {
	return s.Transactions.Begin(tx)
}

func (transactional) Commit(s *session.Session, tx string, deliver Deliver) error {
	return s.Transactions.Commit(tx, func(p session.Pending) error {
		deliver(p)
		return nil
	})
}

func (transactional) Abort(s *session.Session, tx string) error {
	return s.Transactions.Abort(tx)
}

// immediate ignores transactions: results are delivered as soon as the
// service returns and BEGIN, COMMIT and ABORT are accepted without effect.
type immediate struct{}

func (immediate) Validate(*session.Session, string) error { return nil }

func (immediate) Send(_ *session.Session, _ string, p session.Pending, deliver Deliver) error {
	deliver(p)
	return nil
}

func (immediate) Begin(*session.Session, string) error           { return nil }
func (immediate) Commit(*session.Session, string, Deliver) error { return nil }
func (immediate) Abort(*session.Session, string) error           { return nil }
