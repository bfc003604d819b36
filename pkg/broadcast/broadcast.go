// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package broadcast

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/absmach/mstomp/pkg/metrics"
)

// Subscriber is a connection that can receive broadcasts.
type Subscriber interface {
	ID() string
	Write(payload []byte) error
}

// Filter turns a broadcast payload into the bytes written to one subscriber.
// Returning nil bytes and a nil error skips the subscriber.
type Filter func(destination string, sub Subscriber, payload any) ([]byte, error)

// Config holds the broadcaster configuration.
type Config struct {
	// Filter renders payloads per subscriber. Defaults to RawFilter.
	Filter Filter

	// Metrics is optional delivery instrumentation.
	Metrics *metrics.Metrics

	Logger *slog.Logger
}

// Broadcaster fans payloads out to the subscribers attached to a destination.
type Broadcaster struct {
	mu      sync.RWMutex
	targets map[string]*Target
	filter  Filter
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates a new broadcaster.
func New(cfg Config) *Broadcaster {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Filter == nil {
		cfg.Filter = RawFilter
	}
	return &Broadcaster{
		targets: make(map[string]*Target),
		filter:  cfg.Filter,
		metrics: cfg.Metrics,
		logger:  cfg.Logger,
	}
}

// SetFilter replaces the filter applied to every delivery.
func (b *Broadcaster) SetFilter(f Filter) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.filter = f
}

// Lookup returns the target for destination, creating it on first use.
func (b *Broadcaster) Lookup(destination string) *Target {
	b.mu.RLock()
	t, exists := b.targets[destination]
	b.mu.RUnlock()
	if exists {
		return t
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	// Double-check after acquiring write lock
	if t, exists = b.targets[destination]; !exists {
		t = &Target{
			destination: destination,
			subscribers: make(map[string]Subscriber),
			broadcaster: b,
		}
		b.targets[destination] = t
	}
	return t
}

// Attach adds sub to destination. Attaching twice is a no-op.
func (b *Broadcaster) Attach(destination string, sub Subscriber) {
	b.Lookup(destination).attach(sub)
}

// Detach removes the subscriber with id from destination.
func (b *Broadcaster) Detach(destination, id string) {
	b.mu.RLock()
	t, ok := b.targets[destination]
	b.mu.RUnlock()
	if ok {
		t.detach(id)
	}
}

// Broadcast delivers payload to every subscriber of destination and returns
// the number of successful writes.
func (b *Broadcaster) Broadcast(ctx context.Context, destination string, payload any) int {
	return b.Lookup(destination).Broadcast(ctx, payload)
}

// Destinations returns the destinations that have a target, sorted.
func (b *Broadcaster) Destinations() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	dests := make([]string, 0, len(b.targets))
	for d := range b.targets {
		dests = append(dests, d)
	}
	sort.Strings(dests)
	return dests
}

func (b *Broadcaster) currentFilter() Filter {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.filter
}

// Target is the fan-out point of one destination.
type Target struct {
	destination string
	broadcaster *Broadcaster

	mu          sync.RWMutex
	subscribers map[string]Subscriber
}

// Destination returns the destination this target serves.
func (t *Target) Destination() string {
	return t.destination
}

// Len returns the number of attached subscribers.
func (t *Target) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.subscribers)
}

// Broadcast delivers payload to every attached subscriber. Failures are
// logged and do not stop delivery to the others.
func (t *Target) Broadcast(ctx context.Context, payload any) int {
	t.mu.RLock()
	subs := make([]Subscriber, 0, len(t.subscribers))
	for _, s := range t.subscribers {
		subs = append(subs, s)
	}
	t.mu.RUnlock()

	b := t.broadcaster
	filter := b.currentFilter()
	delivered := 0
	for _, sub := range subs {
		if ctx.Err() != nil {
			break
		}
		data, err := filter(t.destination, sub, payload)
		if err != nil {
			b.logger.Warn("Broadcast filter failed",
				slog.String("destination", t.destination),
				slog.String("session", sub.ID()),
				slog.String("error", err.Error()))
			continue
		}
		if len(data) == 0 {
			continue
		}
		if err := sub.Write(data); err != nil {
			b.logger.Debug("Broadcast write failed",
				slog.String("destination", t.destination),
				slog.String("session", sub.ID()),
				slog.String("error", err.Error()))
			b.observe("failed")
			continue
		}
		b.observe("delivered")
		delivered++
	}
	return delivered
}

func (t *Target) attach(sub Subscriber) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.subscribers[sub.ID()] = sub
}

func (t *Target) detach(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.subscribers, id)
}

func (b *Broadcaster) observe(status string) {
	if b.metrics != nil {
		b.metrics.MessagesDelivered.WithLabelValues(status).Inc()
	}
}

// RawFilter writes string and []byte payloads unchanged and formats anything
// else with fmt.Sprint.
func RawFilter(_ string, _ Subscriber, payload any) ([]byte, error) {
	switch p := payload.(type) {
	case nil:
		return nil, nil
	case []byte:
		return p, nil
	case string:
		return []byte(p), nil
	default:
		return []byte(fmt.Sprint(p)), nil
	}
}
