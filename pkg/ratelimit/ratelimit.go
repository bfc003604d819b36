// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package ratelimit limits CONNECT and SEND frames with token buckets.
package ratelimit

import (
	"sync"
	"time"

	"github.com/absmach/mstomp/pkg/errors"
)

// ErrRateLimitExceeded is returned by the hooks of a limited Handler.
var ErrRateLimitExceeded = errors.ErrRateLimited

// TokenBucket implements the token bucket algorithm for rate limiting.
type TokenBucket struct {
	mu         sync.Mutex
	capacity   float64
	tokens     float64
	refillRate float64 // tokens per second
	lastRefill time.Time
	now        func() time.Time
}

// NewTokenBucket creates a full bucket holding capacity tokens and gaining
// refillRate tokens per second.
func NewTokenBucket(capacity, refillRate int64) *TokenBucket {
	return newTokenBucket(capacity, refillRate, time.Now)
}

func newTokenBucket(capacity, refillRate int64, now func() time.Time) *TokenBucket {
	return &TokenBucket{
		capacity:   float64(capacity),
		tokens:     float64(capacity),
		refillRate: float64(refillRate),
		lastRefill: now(),
		now:        now,
	}
}

// Allow takes one token if available.
func (tb *TokenBucket) Allow() bool {
	return tb.AllowN(1)
}

// AllowN takes n tokens if available.
func (tb *TokenBucket) AllowN(n int64) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()
	if tb.tokens < float64(n) {
		return false
	}
	tb.tokens -= float64(n)
	return true
}

// Available returns the number of whole tokens left.
func (tb *TokenBucket) Available() int64 {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()
	return int64(tb.tokens)
}

// lastUsed reports when the bucket was last refilled.
func (tb *TokenBucket) lastUsed() time.Time {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.lastRefill
}

func (tb *TokenBucket) refill() {
	now := tb.now()
	elapsed := now.Sub(tb.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	tb.tokens = min(tb.capacity, tb.tokens+elapsed*tb.refillRate)
	tb.lastRefill = now
}

// Limiter keeps one TokenBucket per key, such as a remote host or a session.
type Limiter struct {
	mu         sync.RWMutex
	buckets    map[string]*TokenBucket
	capacity   int64
	refillRate int64
	maxKeys    int
	idle       time.Duration
	now        func() time.Time

	done chan struct{}
	once sync.Once
}

// NewLimiter creates a keyed limiter. Buckets unused for idle are evicted;
// zero disables eviction. maxKeys bounds the number of tracked keys.
func NewLimiter(capacity, refillRate int64, maxKeys int, idle time.Duration) *Limiter {
	if maxKeys == 0 {
		maxKeys = 10000
	}

	l := &Limiter{
		buckets:    make(map[string]*TokenBucket),
		capacity:   capacity,
		refillRate: refillRate,
		maxKeys:    maxKeys,
		idle:       idle,
		now:        time.Now,
		done:       make(chan struct{}),
	}
	if idle > 0 {
		go l.evictLoop()
	}
	return l
}

// Allow takes one token from the bucket of key.
func (l *Limiter) Allow(key string) bool {
	return l.AllowN(key, 1)
}

// AllowN takes n tokens from the bucket of key. A new key is refused when the
// limiter already tracks maxKeys keys.
func (l *Limiter) AllowN(key string, n int64) bool {
	l.mu.RLock()
	tb, ok := l.buckets[key]
	l.mu.RUnlock()

	if !ok {
		l.mu.Lock()
		tb, ok = l.buckets[key]
		if !ok {
			if len(l.buckets) >= l.maxKeys {
				l.mu.Unlock()
				return false
			}
			tb = newTokenBucket(l.capacity, l.refillRate, l.now)
			l.buckets[key] = tb
		}
		l.mu.Unlock()
	}

	return tb.AllowN(n)
}

// Remove forgets the bucket of key.
func (l *Limiter) Remove(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.buckets)
}

// Evict drops buckets unused for longer than the idle period.
func (l *Limiter) Evict() {
	if l.idle <= 0 {
		return
	}
	cutoff := l.now().Add(-l.idle)

	l.mu.Lock()
	defer l.mu.Unlock()
	for key, tb := range l.buckets {
		if tb.lastUsed().Before(cutoff) {
			delete(l.buckets, key)
		}
	}
}

func (l *Limiter) evictLoop() {
	ticker := time.NewTicker(l.idle)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			l.Evict()
		}
	}
}

// Close stops the eviction goroutine.
func (l *Limiter) Close() {
	l.once.Do(func() { close(l.done) })
}
