// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package destination

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/absmach/mstomp/pkg/broadcast"
	mserrors "github.com/absmach/mstomp/pkg/errors"
)

type stubConn struct{ id string }

func (c stubConn) ID() string           { return c.id }
func (c stubConn) Write(_ []byte) error { return nil }

type greeting struct {
	Text string `json:"text"`
}

func echo(_ context.Context, args Args) (any, error) {
	return args.Raw, nil
}

func TestRegister(t *testing.T) {
	r := NewRegistry(broadcast.New(broadcast.Config{}))

	tests := []struct {
		name        string
		destination string
		svc         Service
		wantErr     error
	}{
		{"valid", "/echo", Service{Params: []Param{RawBody}, Handle: echo}, nil},
		{"duplicate", "/echo", Service{Handle: echo}, ErrAlreadyBound},
		{"empty destination", "", Service{Handle: echo}, ErrInvalidService},
		{"no handler", "/nohandler", Service{}, ErrInvalidService},
		{"decoded without decoder", "/dto", Service{Params: []Param{DecodedBody}, Handle: echo}, ErrInvalidService},
		{"unknown param", "/bad", Service{Params: []Param{Param(9)}, Handle: echo}, ErrInvalidService},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.Register(tt.destination, tt.svc)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Register() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if got := r.Destinations(); !slices.Equal(got, []string{"/echo"}) {
		t.Errorf("Destinations() = %v, want [/echo]", got)
	}
}

func TestLookupSharesTarget(t *testing.T) {
	b := broadcast.New(broadcast.Config{})
	r := NewRegistry(b)
	if err := r.Register("/a", Service{Handle: echo}); err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	binding, ok := r.Lookup("/a")
	if !ok {
		t.Fatal("Lookup(/a) not found")
	}
	if binding.Target != b.Lookup("/a") {
		t.Error("binding target is not the broadcaster target")
	}
	if _, ok := r.Lookup("/missing"); ok {
		t.Error("Lookup(/missing) found a binding")
	}
}

func TestInvokeArguments(t *testing.T) {
	r := NewRegistry(broadcast.New(broadcast.Config{}))
	conn := stubConn{id: "c1"}

	var got Args
	err := r.Register("/all", Service{
		Params: []Param{ConnRef, TargetRef, RawBody, DecodedBody},
		Decode: JSON[greeting](),
		Handle: func(_ context.Context, args Args) (any, error) {
			got = args
			return nil, nil
		},
	})
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	binding, _ := r.Lookup("/all")

	result, err := binding.Invoke(context.Background(), conn, `{"text":"hi"}`)
	if err != nil {
		t.Fatalf("Invoke() error: %v", err)
	}
	if result != nil {
		t.Errorf("result = %v, want nil", result)
	}
	if got.Conn.ID() != "c1" {
		t.Errorf("Conn = %v", got.Conn)
	}
	if got.Target != binding.Target {
		t.Error("Target not passed")
	}
	if got.Raw != `{"text":"hi"}` {
		t.Errorf("Raw = %q", got.Raw)
	}
	if g, ok := got.Decoded.(greeting); !ok || g.Text != "hi" {
		t.Errorf("Decoded = %#v", got.Decoded)
	}
}

func TestInvokeOnlyRequestedArguments(t *testing.T) {
	r := NewRegistry(broadcast.New(broadcast.Config{}))
	var got Args
	_ = r.Register("/raw", Service{
		Params: []Param{RawBody},
		Handle: func(_ context.Context, args Args) (any, error) {
			got = args
			return args.Raw, nil
		},
	})
	binding, _ := r.Lookup("/raw")

	result, err := binding.Invoke(context.Background(), stubConn{id: "c1"}, "body")
	if err != nil {
		t.Fatalf("Invoke() error: %v", err)
	}
	if result != "body" {
		t.Errorf("result = %v, want body", result)
	}
	if got.Conn != nil || got.Target != nil || got.Decoded != nil {
		t.Errorf("unrequested arguments populated: %+v", got)
	}
}

func TestInvokeErrors(t *testing.T) {
	r := NewRegistry(broadcast.New(broadcast.Config{}))
	_ = r.Register("/fail", Service{Handle: func(context.Context, Args) (any, error) {
		return nil, errors.New("boom")
	}})
	_ = r.Register("/panic", Service{Handle: func(context.Context, Args) (any, error) {
		panic("kaboom")
	}})
	_ = r.Register("/decode", Service{
		Params: []Param{DecodedBody},
		Decode: JSON[greeting](),
		Handle: echo,
	})
	_ = r.Register("/encode", Service{
		Handle: func(context.Context, Args) (any, error) { return func() {}, nil },
		Encode: JSONEncode,
	})

	for _, dest := range []string{"/fail", "/panic", "/decode", "/encode"} {
		t.Run(dest, func(t *testing.T) {
			binding, _ := r.Lookup(dest)
			result, err := binding.Invoke(context.Background(), stubConn{id: "c1"}, "not json")
			if !errors.Is(err, mserrors.ErrHandlerInvocation) {
				t.Errorf("Invoke() error = %v, want ErrHandlerInvocation", err)
			}
			if result != nil {
				t.Errorf("result = %v, want nil", result)
			}
		})
	}
}

func TestInvokeEncode(t *testing.T) {
	r := NewRegistry(broadcast.New(broadcast.Config{}))
	_ = r.Register("/json", Service{
		Params: []Param{DecodedBody},
		Decode: JSON[greeting](),
		Encode: JSONEncode,
		Handle: func(_ context.Context, args Args) (any, error) {
			g := args.Decoded.(greeting)
			g.Text += "!"
			return g, nil
		},
	})
	binding, _ := r.Lookup("/json")

	result, err := binding.Invoke(context.Background(), stubConn{id: "c1"}, `{"text":"hi"}`)
	if err != nil {
		t.Fatalf("Invoke() error: %v", err)
	}
	if result != `{"text":"hi!"}` {
		t.Errorf("result = %v", result)
	}
}

func TestUseOrder(t *testing.T) {
	r := NewRegistry(broadcast.New(broadcast.Config{}))

	var order []string
	wrap := func(name string) Middleware {
		return func(dest string, svc Service) Service {
			next := svc.Handle
			svc.Handle = func(ctx context.Context, args Args) (any, error) {
				order = append(order, name+dest)
				return next(ctx, args)
			}
			return svc
		}
	}
	r.Use(wrap("outer"), wrap("inner"))
	if err := r.Register("/echo", Service{Params: []Param{RawBody}, Handle: echo}); err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	b, _ := r.Lookup("/echo")
	got, err := b.Invoke(context.Background(), stubConn{id: "c"}, "hi")
	if err != nil || got != "hi" {
		t.Fatalf("Invoke() = %v, %v", got, err)
	}
	if want := []string{"outer/echo", "inner/echo"}; !slices.Equal(order, want) {
		t.Errorf("middleware ran %v, want %v", order, want)
	}
}
