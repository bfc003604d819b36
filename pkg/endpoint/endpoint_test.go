// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package endpoint

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/absmach/mstomp/pkg/broadcast"
	"github.com/absmach/mstomp/pkg/destination"
	"github.com/absmach/mstomp/pkg/stomp"
	"github.com/fortytw2/leaktest"
	"github.com/gorilla/websocket"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func newDispatcher() *stomp.Dispatcher {
	reg := destination.NewRegistry(broadcast.New(broadcast.Config{Logger: discard}))
	return stomp.New(stomp.Config{Destinations: reg, Logger: discard})
}

func TestWebSocketPath(t *testing.T) {
	defer leaktest.Check(t)()

	cases := []struct {
		name string
		path string
		dial string
		ok   bool
	}{
		{"default path", "", "/stomp", true},
		{"custom path", "/ws", "/ws", true},
		{"wrong path", "", "/other", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := NewWebSocket(WebSocketConfig{Path: tc.path, Logger: discard}, newDispatcher())
			srv := httptest.NewServer(e.Handler())
			defer func() {
				srv.Close()
				if err := e.handler.Shutdown(context.Background()); err != nil {
					t.Errorf("Shutdown() error: %v", err)
				}
			}()

			url := "ws" + strings.TrimPrefix(srv.URL, "http") + tc.dial
			ws, resp, err := websocket.DefaultDialer.Dial(url, nil)
			if tc.ok {
				if err != nil {
					t.Fatalf("Dial(%s) error: %v", tc.dial, err)
				}
				ws.Close()
				return
			}
			if err == nil {
				ws.Close()
				t.Fatalf("Dial(%s) succeeded, want failure", tc.dial)
			}
			if resp == nil || resp.StatusCode != http.StatusNotFound {
				t.Errorf("Dial(%s) response = %v, want 404", tc.dial, resp)
			}
		})
	}
}

func TestListenStopsOnCancel(t *testing.T) {
	defer leaktest.Check(t)()

	d := newDispatcher()
	endpoints := map[string]interface {
		Listen(ctx context.Context) error
	}{
		"tcp":       NewTCP(TCPConfig{Host: "127.0.0.1", Port: "0", Logger: discard}, d),
		"websocket": NewWebSocket(WebSocketConfig{Host: "127.0.0.1", Port: "0", Logger: discard}, d),
	}

	for name, e := range endpoints {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			errCh := make(chan error, 1)
			go func() {
				errCh <- e.Listen(ctx)
			}()

			time.Sleep(50 * time.Millisecond)
			cancel()

			select {
			case err := <-errCh:
				if err != nil {
					t.Errorf("Listen() error: %v", err)
				}
			case <-time.After(5 * time.Second):
				t.Fatal("Listen() did not return after cancel")
			}
		})
	}
}
