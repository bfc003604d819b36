// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package stomp

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/absmach/mstomp/pkg/broadcast"
	"github.com/absmach/mstomp/pkg/codec"
	"github.com/absmach/mstomp/pkg/destination"
	"github.com/absmach/mstomp/pkg/frame"
	"github.com/absmach/mstomp/pkg/handler"
)

type mockConn struct {
	id string

	mu          sync.Mutex
	writes      [][]byte
	suspended   bool
	closed      bool
	closeReason CloseReason
}

func newMockConn(id string) *mockConn {
	return &mockConn{id: id}
}

func (c *mockConn) ID() string         { return c.id }
func (c *mockConn) RemoteAddr() string { return "127.0.0.1:61613" }
func (c *mockConn) Protocol() string   { return "tcp" }

func (c *mockConn) Write(p []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return io.ErrClosedPipe
	}
	c.writes = append(c.writes, append([]byte(nil), p...))
	return nil
}

func (c *mockConn) Suspended() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.suspended
}

func (c *mockConn) Suspend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.suspended = true
}

func (c *mockConn) Close(reason CloseReason) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.closeReason = reason
	return nil
}

func (c *mockConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// frames parses everything written so far and clears the buffer.
func (c *mockConn) frames(t *testing.T) []*frame.Frame {
	t.Helper()
	c.mu.Lock()
	writes := c.writes
	c.writes = nil
	c.mu.Unlock()

	text := &codec.Text{}
	var out []*frame.Frame
	for _, w := range writes {
		for _, chunk := range strings.Split(string(w), "\x00") {
			if strings.Trim(chunk, "\r\n") == "" {
				continue
			}
			f, err := text.Parse(chunk)
			if err != nil {
				t.Fatalf("connection %s received unparseable frame %q: %v", c.id, chunk, err)
			}
			out = append(out, f)
		}
	}
	return out
}

type mockHandler struct {
	handler.NoopHandler

	connectErr   error
	subscribeErr error
	sendErr      error
	rewrite      string

	mu          sync.Mutex
	heartbeats  int
	connects    int
	subscribes  []string
	unsubscribe []string
	sends       []string
	disconnects int
}

func (h *mockHandler) AuthConnect(_ context.Context, _ *handler.Context) error {
	return h.connectErr
}

func (h *mockHandler) AuthSubscribe(_ context.Context, _ *handler.Context, dest *string) error {
	if h.rewrite != "" {
		*dest = h.rewrite
	}
	return h.subscribeErr
}

func (h *mockHandler) AuthSend(_ context.Context, _ *handler.Context, dest *string, _ *[]byte) error {
	if h.rewrite != "" {
		*dest = h.rewrite
	}
	return h.sendErr
}

func (h *mockHandler) OnConnect(_ context.Context, _ *handler.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connects++
	return nil
}

func (h *mockHandler) OnSubscribe(_ context.Context, _ *handler.Context, id, dest string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscribes = append(h.subscribes, id+"@"+dest)
	return nil
}

func (h *mockHandler) OnUnsubscribe(_ context.Context, _ *handler.Context, id, dest string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unsubscribe = append(h.unsubscribe, id+"@"+dest)
	return nil
}

func (h *mockHandler) OnSend(_ context.Context, _ *handler.Context, dest string, payload []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sends = append(h.sends, dest+":"+string(payload))
	return nil
}

func (h *mockHandler) OnHeartbeat(_ context.Context, _ *handler.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.heartbeats++
	return nil
}

func (h *mockHandler) OnDisconnect(_ context.Context, _ *handler.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.disconnects++
	return nil
}

type testEnv struct {
	dispatcher  *Dispatcher
	registry    *destination.Registry
	broadcaster *broadcast.Broadcaster
	hooks       *mockHandler
	invocations int
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// newTestEnv binds the test services and builds a dispatcher. Services:
//
//	/echo   broadcasts the raw body
//	/void   accepts the body and broadcasts nothing
//	/fail   returns an error
//	/panic  panics
func newTestEnv(t *testing.T, opts ...func(*Config)) *testEnv {
	t.Helper()
	env := &testEnv{hooks: &mockHandler{}}
	env.broadcaster = broadcast.New(broadcast.Config{Logger: discard})
	env.registry = destination.NewRegistry(env.broadcaster)

	services := map[string]destination.Service{
		"/echo": {
			Params: []destination.Param{destination.RawBody},
			Handle: func(_ context.Context, args destination.Args) (any, error) {
				env.invocations++
				return args.Raw, nil
			},
		},
		"/void": {
			Handle: func(context.Context, destination.Args) (any, error) {
				env.invocations++
				return nil, nil
			},
		},
		"/fail": {
			Handle: func(context.Context, destination.Args) (any, error) {
				env.invocations++
				return nil, errors.New("service unavailable")
			},
		},
		"/panic": {
			Handle: func(context.Context, destination.Args) (any, error) {
				env.invocations++
				panic("boom")
			},
		},
	}
	for dest, svc := range services {
		if err := env.registry.Register(dest, svc); err != nil {
			t.Fatalf("Register(%s) error: %v", dest, err)
		}
	}

	cfg := Config{
		Destinations: env.registry,
		Handler:      env.hooks,
		Logger:       discard,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	env.dispatcher = New(cfg)
	return env
}

func (env *testEnv) handle(t *testing.T, conn *mockConn, raw string) Directive {
	t.Helper()
	return env.dispatcher.HandleFrame(context.Background(), []byte(raw), conn)
}

// connect runs CONNECT on conn and discards CONNECTED.
func (env *testEnv) connect(t *testing.T, conn *mockConn) {
	t.Helper()
	if d := env.handle(t, conn, "CONNECT\naccept-version:1.1\n\n\x00"); d != Continue {
		t.Fatalf("CONNECT directive = %v, want continue", d)
	}
	fs := conn.frames(t)
	if len(fs) != 1 || fs[0].Action() != frame.Connected {
		t.Fatalf("CONNECT produced %d frames, want CONNECTED", len(fs))
	}
}

func (env *testEnv) subscribe(t *testing.T, conn *mockConn, id, dest string) {
	t.Helper()
	env.handle(t, conn, "SUBSCRIBE\nid:"+id+"\ndestination:"+dest+"\n\n\x00")
	if fs := conn.frames(t); len(fs) != 0 {
		t.Fatalf("SUBSCRIBE produced %d frames, want none", len(fs))
	}
}

func actions(fs []*frame.Frame) []frame.Action {
	out := make([]frame.Action, len(fs))
	for i, f := range fs {
		out[i] = f.Action()
	}
	return out
}
