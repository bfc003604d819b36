// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"fmt"
	"sync"

	"github.com/absmach/mstomp/pkg/errors"
)

// Subscription binds a client-chosen id to a destination.
type Subscription struct {
	ID          string
	Destination string
}

// Subscriptions maps subscription ids to destinations for one connection.
// Writes come from the connection's reader goroutine; reads also come from
// broadcasts running on other connections.
type Subscriptions struct {
	mu      sync.RWMutex
	entries []Subscription
}

// NewSubscriptions returns an empty registry.
func NewSubscriptions() *Subscriptions {
	return &Subscriptions{}
}

// Add registers id for destination. Adding a known id rebinds it in place.
func (s *Subscriptions) Add(id, destination string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.index(id); i >= 0 {
		s.entries[i].Destination = destination
		return
	}
	s.entries = append(s.entries, Subscription{ID: id, Destination: destination})
}

// Remove drops id. Unknown ids are ignored.
func (s *Subscriptions) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.index(id); i >= 0 {
		s.entries = append(s.entries[:i], s.entries[i+1:]...)
	}
}

// DestinationFor returns the destination bound to id.
func (s *Subscriptions) DestinationFor(id string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.index(id); i >= 0 {
		return s.entries[i].Destination, nil
	}
	return "", fmt.Errorf("%w: %q", errors.ErrUnknownSubscription, id)
}

// IDsFor returns the ids subscribed to destination, in subscription order.
func (s *Subscriptions) IDsFor(destination string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for _, e := range s.entries {
		if e.Destination == destination {
			ids = append(ids, e.ID)
		}
	}
	return ids
}

// AllDestinations returns every subscribed destination once, in first
// subscription order.
func (s *Subscriptions) AllDestinations() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{}, len(s.entries))
	var dests []string
	for _, e := range s.entries {
		if _, ok := seen[e.Destination]; ok {
			continue
		}
		seen[e.Destination] = struct{}{}
		dests = append(dests, e.Destination)
	}
	return dests
}

// Len returns the number of subscriptions.
func (s *Subscriptions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Clear drops all subscriptions.
func (s *Subscriptions) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
}

func (s *Subscriptions) index(id string) int {
	for i, e := range s.entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}
