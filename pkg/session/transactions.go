// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"container/list"
	"fmt"

	"github.com/absmach/mstomp/pkg/errors"
)

// Pending is a service result held back until its transaction commits.
type Pending struct {
	Destination string
	Payload     any
}

// Transactions buffers broadcasts per transaction id. Not safe for
// concurrent use.
type Transactions struct {
	open map[string]*list.List
}

// NewTransactions returns an empty transaction buffer.
func NewTransactions() *Transactions {
	return &Transactions{}
}

// Begin opens transaction id.
func (t *Transactions) Begin(id string) error {
	if t.open == nil {
		t.open = make(map[string]*list.List)
	}
	if _, ok := t.open[id]; ok {
		return fmt.Errorf("%w: %q", errors.ErrTransactionInProgress, id)
	}
	t.open[id] = list.New()
	return nil
}

// Add queues p on transaction id.
func (t *Transactions) Add(id string, p Pending) error {
	l, ok := t.open[id]
	if !ok {
		return fmt.Errorf("%w: %q", errors.ErrUnknownTransaction, id)
	}
	l.PushBack(p)
	return nil
}

// Commit calls fn for every queued result in order, then closes the
// transaction. The first error from fn stops the flush; the transaction is
// closed either way.
func (t *Transactions) Commit(id string, fn func(Pending) error) error {
	l, ok := t.open[id]
	if !ok {
		return fmt.Errorf("%w: %q", errors.ErrUnknownTransaction, id)
	}
	delete(t.open, id)
	for e := l.Front(); e != nil; e = e.Next() {
		if err := fn(e.Value.(Pending)); err != nil {
			return err
		}
	}
	return nil
}

// Abort discards transaction id and everything queued on it.
func (t *Transactions) Abort(id string) error {
	l, ok := t.open[id]
	if !ok {
		return fmt.Errorf("%w: %q", errors.ErrUnknownTransaction, id)
	}
	l.Init()
	delete(t.open, id)
	return nil
}

// IsOpen reports whether id was begun and not yet committed or aborted.
func (t *Transactions) IsOpen(id string) bool {
	_, ok := t.open[id]
	return ok
}

// Len returns the number of open transactions.
func (t *Transactions) Len() int {
	return len(t.open)
}

// Clear aborts every open transaction.
func (t *Transactions) Clear() {
	t.open = nil
}
