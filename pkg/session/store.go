// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package session

import "sync"

// Store holds the sessions of all live connections.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
	}
}

// GetOrCreate returns the session for id, creating it on first use.
func (st *Store) GetOrCreate(id string) *Session {
	st.mu.RLock()
	s, exists := st.sessions[id]
	st.mu.RUnlock()
	if exists {
		return s
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	// Double-check after acquiring write lock
	if s, exists = st.sessions[id]; !exists {
		s = New(id)
		st.sessions[id] = s
	}
	return s
}

// Get returns the session for id, if any.
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	return s, ok
}

// Remove deletes and returns the session for id.
func (st *Store) Remove(id string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if ok {
		delete(st.sessions, id)
	}
	return s, ok
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
