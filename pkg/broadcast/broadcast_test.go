// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package broadcast

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/absmach/mstomp/pkg/metrics"
)

type mockSubscriber struct {
	id       string
	writeErr error

	mu       sync.Mutex
	received [][]byte
}

func (m *mockSubscriber) ID() string { return m.id }

func (m *mockSubscriber) Write(p []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	m.received = append(m.received, p)
	return nil
}

func (m *mockSubscriber) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.received)
}

func TestBroadcastRaw(t *testing.T) {
	b := New(Config{})
	a := &mockSubscriber{id: "a"}
	c := &mockSubscriber{id: "c"}
	b.Attach("/queue/a", a)
	b.Attach("/queue/a", c)
	b.Attach("/queue/a", a)

	n := b.Broadcast(context.Background(), "/queue/a", "hello")
	if n != 2 {
		t.Fatalf("Broadcast delivered %d, want 2", n)
	}
	if string(a.received[0]) != "hello" {
		t.Errorf("a received %q", a.received[0])
	}
	if a.count() != 1 {
		t.Errorf("double attach delivered %d times, want 1", a.count())
	}
}

func TestBroadcastDetach(t *testing.T) {
	b := New(Config{})
	a := &mockSubscriber{id: "a"}
	b.Attach("/queue/a", a)
	b.Detach("/queue/a", "a")
	b.Detach("/queue/unknown", "a")

	if n := b.Broadcast(context.Background(), "/queue/a", "x"); n != 0 {
		t.Errorf("Broadcast after Detach delivered %d, want 0", n)
	}
	if b.Lookup("/queue/a").Len() != 0 {
		t.Error("target still holds detached subscriber")
	}
}

func TestBroadcastFilter(t *testing.T) {
	skip := &mockSubscriber{id: "skip"}
	fail := &mockSubscriber{id: "fail"}
	ok := &mockSubscriber{id: "ok"}
	broken := &mockSubscriber{id: "broken", writeErr: errors.New("closed")}

	reg := prometheus.NewRegistry()
	m := metrics.New("test", reg)
	b := New(Config{
		Metrics: m,
		Filter: func(dest string, sub Subscriber, payload any) ([]byte, error) {
			switch sub.ID() {
			case "skip":
				return nil, nil
			case "fail":
				return nil, errors.New("no subscriptions")
			}
			return []byte(dest + ":" + payload.(string)), nil
		},
	})
	for _, s := range []*mockSubscriber{skip, fail, ok, broken} {
		b.Attach("/topic/t", s)
	}

	if n := b.Broadcast(context.Background(), "/topic/t", "p"); n != 1 {
		t.Fatalf("Broadcast delivered %d, want 1", n)
	}
	if string(ok.received[0]) != "/topic/t:p" {
		t.Errorf("ok received %q", ok.received[0])
	}
	if skip.count() != 0 || fail.count() != 0 {
		t.Error("filtered subscribers received data")
	}
	if got := testutil.ToFloat64(m.MessagesDelivered.WithLabelValues("delivered")); got != 1 {
		t.Errorf("delivered = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.MessagesDelivered.WithLabelValues("failed")); got != 1 {
		t.Errorf("failed = %v, want 1", got)
	}
}

func TestBroadcastCanceledContext(t *testing.T) {
	b := New(Config{})
	a := &mockSubscriber{id: "a"}
	b.Attach("/queue/a", a)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if n := b.Broadcast(ctx, "/queue/a", "x"); n != 0 {
		t.Errorf("Broadcast with canceled context delivered %d", n)
	}
}

func TestLookupAndDestinations(t *testing.T) {
	b := New(Config{})
	t1 := b.Lookup("/b")
	if b.Lookup("/b") != t1 {
		t.Error("Lookup returned a different target for the same destination")
	}
	b.Lookup("/a")
	if got := b.Destinations(); !slices.Equal(got, []string{"/a", "/b"}) {
		t.Errorf("Destinations() = %v", got)
	}
	if t1.Destination() != "/b" {
		t.Errorf("Destination() = %s", t1.Destination())
	}
}

func TestRawFilter(t *testing.T) {
	tests := []struct {
		payload any
		want    string
	}{
		{nil, ""},
		{"s", "s"},
		{[]byte("b"), "b"},
		{42, "42"},
	}
	for _, tt := range tests {
		got, err := RawFilter("/a", nil, tt.payload)
		if err != nil {
			t.Fatalf("RawFilter(%v) error: %v", tt.payload, err)
		}
		if string(got) != tt.want {
			t.Errorf("RawFilter(%v) = %q, want %q", tt.payload, got, tt.want)
		}
	}
}
