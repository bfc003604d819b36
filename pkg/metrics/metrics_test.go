// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveConnection(t *testing.T) {
	m := New("test", prometheus.NewRegistry())

	_ = m.ObserveConnection("tcp", func() error {
		if got := testutil.ToFloat64(m.ActiveConnections.WithLabelValues("tcp")); got != 1 {
			t.Errorf("active connections during f = %v, want 1", got)
		}
		return nil
	})
	err := m.ObserveConnection("tcp", func() error { return errors.New("reset") })
	if err == nil {
		t.Error("ObserveConnection swallowed the error")
	}

	if got := testutil.ToFloat64(m.ActiveConnections.WithLabelValues("tcp")); got != 0 {
		t.Errorf("active connections = %v, want 0", got)
	}
	if got := testutil.ToFloat64(m.TotalConnections.WithLabelValues("tcp", "success")); got != 1 {
		t.Errorf("successful connections = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.TotalConnections.WithLabelValues("tcp", "error")); got != 1 {
		t.Errorf("failed connections = %v, want 1", got)
	}
}

func TestObserveFrame(t *testing.T) {
	m := New("test", prometheus.NewRegistry())

	m.ObserveFrame("SEND", 42, time.Now())
	m.ObserveFrame("SEND", 10, time.Now())
	m.ObserveOutbound("MESSAGE", 50)

	if got := testutil.ToFloat64(m.FramesTotal.WithLabelValues("SEND", Inbound)); got != 2 {
		t.Errorf("inbound SEND = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.FramesTotal.WithLabelValues("MESSAGE", Outbound)); got != 1 {
		t.Errorf("outbound MESSAGE = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.FrameDuration); got != 1 {
		t.Errorf("frame duration series = %d, want 1", got)
	}
}

func TestSeparateRegistries(t *testing.T) {
	// Two instances must not collide when given their own registries.
	New("test", prometheus.NewRegistry())
	New("test", prometheus.NewRegistry())
}
