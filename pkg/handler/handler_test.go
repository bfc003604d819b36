// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package handler

import (
	"context"
	"errors"
	"testing"
)

func TestNoopHandler(t *testing.T) {
	handler := &NoopHandler{}
	ctx := context.Background()
	hctx := &Context{
		SessionID:  "test-session",
		Username:   "testuser",
		Password:   []byte("testpass"),
		Host:       "localhost",
		RemoteAddr: "127.0.0.1:1234",
		Protocol:   "tcp",
	}

	tests := []struct {
		name string
		fn   func() error
	}{
		{
			name: "AuthConnect",
			fn:   func() error { return handler.AuthConnect(ctx, hctx) },
		},
		{
			name: "AuthSubscribe",
			fn: func() error {
				dest := "/queue/a"
				return handler.AuthSubscribe(ctx, hctx, &dest)
			},
		},
		{
			name: "AuthSend",
			fn: func() error {
				dest := "/queue/a"
				payload := []byte("test payload")
				return handler.AuthSend(ctx, hctx, &dest, &payload)
			},
		},
		{
			name: "OnConnect",
			fn:   func() error { return handler.OnConnect(ctx, hctx) },
		},
		{
			name: "OnSubscribe",
			fn:   func() error { return handler.OnSubscribe(ctx, hctx, "0", "/queue/a") },
		},
		{
			name: "OnUnsubscribe",
			fn:   func() error { return handler.OnUnsubscribe(ctx, hctx, "0", "/queue/a") },
		},
		{
			name: "OnSend",
			fn:   func() error { return handler.OnSend(ctx, hctx, "/queue/a", []byte("payload")) },
		},
		{
			name: "OnHeartbeat",
			fn:   func() error { return handler.OnHeartbeat(ctx, hctx) },
		},
		{
			name: "OnDisconnect",
			fn:   func() error { return handler.OnDisconnect(ctx, hctx) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.fn(); err != nil {
				t.Errorf("%s() returned error: %v", tt.name, err)
			}
		})
	}
}

// MockHandler is a mock implementation for testing.
type MockHandler struct {
	NoopHandler

	ConnectErr error
	SendErr    error

	ConnectCalled bool
	SendCalled    bool

	RewriteDestination string
	LastDestination    string
	LastPayload        []byte
}

func (m *MockHandler) AuthConnect(ctx context.Context, hctx *Context) error {
	m.ConnectCalled = true
	return m.ConnectErr
}

func (m *MockHandler) AuthSend(ctx context.Context, hctx *Context, destination *string, payload *[]byte) error {
	m.SendCalled = true
	if m.RewriteDestination != "" {
		*destination = m.RewriteDestination
	}
	m.LastDestination = *destination
	m.LastPayload = *payload
	return m.SendErr
}

func TestMockHandler(t *testing.T) {
	mock := &MockHandler{
		ConnectErr:         errors.New("connection error"),
		RewriteDestination: "/queue/rewritten",
	}

	var h Handler = mock
	ctx := context.Background()
	hctx := &Context{
		SessionID: "test",
		Username:  "user",
	}

	if err := h.AuthConnect(ctx, hctx); err == nil {
		t.Error("Expected error from AuthConnect")
	}
	if !mock.ConnectCalled {
		t.Error("Expected ConnectCalled to be true")
	}

	dest := "/queue/original"
	payload := []byte("test payload")
	if err := h.AuthSend(ctx, hctx, &dest, &payload); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if dest != "/queue/rewritten" {
		t.Errorf("Expected destination rewritten through pointer, got %s", dest)
	}
	if string(mock.LastPayload) != string(payload) {
		t.Errorf("Expected payload %s, got %s", payload, mock.LastPayload)
	}

	// Embedded NoopHandler covers the rest.
	if err := h.OnHeartbeat(ctx, hctx); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}
