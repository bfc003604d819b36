// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package destination

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/absmach/mstomp/pkg/broadcast"
	mserrors "github.com/absmach/mstomp/pkg/errors"
)

var (
	// ErrAlreadyBound is returned when a destination already has a service.
	ErrAlreadyBound = errors.New("destination already bound")

	// ErrInvalidService is returned for a service that cannot be invoked.
	ErrInvalidService = errors.New("invalid service")
)

// Param names a value the dispatcher passes to a service.
type Param int

const (
	// ConnRef is the sending connection.
	ConnRef Param = iota
	// TargetRef is the fan-out target of the destination.
	TargetRef
	// RawBody is the SEND body as received.
	RawBody
	// DecodedBody is the SEND body after Service.Decode.
	DecodedBody
)

func (p Param) String() string {
	switch p {
	case ConnRef:
		return "conn"
	case TargetRef:
		return "target"
	case RawBody:
		return "raw-body"
	case DecodedBody:
		return "decoded-body"
	default:
		return "unknown"
	}
}

// Args carries the values a service asked for in its Params. Fields that
// were not requested are left zero.
type Args struct {
	Conn    broadcast.Subscriber
	Target  *broadcast.Target
	Raw     string
	Decoded any
}

// Service handles SEND frames addressed to one destination. A non-nil
// result is broadcast to the destination's subscribers.
type Service struct {
	Params []Param
	Handle func(ctx context.Context, args Args) (any, error)

	// Decode produces DecodedBody. Required when Params has DecodedBody.
	Decode func(raw string) (any, error)

	// Encode transforms a non-nil result before broadcast. Optional.
	Encode func(result any) (any, error)
}

// Binding is a registered service together with its fan-out target.
type Binding struct {
	Destination string
	Service     Service
	Target      *broadcast.Target
}

// Invoke calls the service with the arguments its Params describe and
// encodes the result. A panic in the service is returned as an error.
func (b *Binding) Invoke(ctx context.Context, conn broadcast.Subscriber, raw string) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("%w: panic: %v", mserrors.ErrHandlerInvocation, r)
		}
	}()

	var args Args
	for _, p := range b.Service.Params {
		switch p {
		case ConnRef:
			args.Conn = conn
		case TargetRef:
			args.Target = b.Target
		case RawBody:
			args.Raw = raw
		case DecodedBody:
			decoded, err := b.Service.Decode(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: decode: %w", mserrors.ErrHandlerInvocation, err)
			}
			args.Decoded = decoded
		}
	}

	result, err = b.Service.Handle(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", mserrors.ErrHandlerInvocation, err)
	}
	if result != nil && b.Service.Encode != nil {
		if result, err = b.Service.Encode(result); err != nil {
			return nil, fmt.Errorf("%w: encode: %w", mserrors.ErrHandlerInvocation, err)
		}
	}
	return result, nil
}

// Middleware wraps the service bound to destination.
type Middleware func(destination string, svc Service) Service

// Registry maps destinations to services.
type Registry struct {
	mu          sync.RWMutex
	bindings    map[string]*Binding
	middleware  []Middleware
	broadcaster *broadcast.Broadcaster
}

// NewRegistry creates a registry whose targets come from b.
func NewRegistry(b *broadcast.Broadcaster) *Registry {
	return &Registry{
		bindings:    make(map[string]*Binding),
		broadcaster: b,
	}
}

// Use appends middleware applied to services registered afterwards. The
// first middleware is the outermost.
func (r *Registry) Use(mw ...Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middleware = append(r.middleware, mw...)
}

// Register binds svc to destination. The descriptor is validated here so
// that invocation never fails on a malformed service.
func (r *Registry) Register(destination string, svc Service) error {
	if destination == "" {
		return fmt.Errorf("%w: empty destination", ErrInvalidService)
	}
	if svc.Handle == nil {
		return fmt.Errorf("%w: %s has no handler", ErrInvalidService, destination)
	}
	for _, p := range svc.Params {
		if p < ConnRef || p > DecodedBody {
			return fmt.Errorf("%w: %s has unknown parameter %d", ErrInvalidService, destination, p)
		}
		if p == DecodedBody && svc.Decode == nil {
			return fmt.Errorf("%w: %s takes a decoded body but has no decoder", ErrInvalidService, destination)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bindings[destination]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyBound, destination)
	}
	for i := len(r.middleware) - 1; i >= 0; i-- {
		svc = r.middleware[i](destination, svc)
	}
	r.bindings[destination] = &Binding{
		Destination: destination,
		Service:     svc,
		Target:      r.broadcaster.Lookup(destination),
	}
	return nil
}

// Lookup returns the binding for destination.
func (r *Registry) Lookup(destination string) (*Binding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bindings[destination]
	return b, ok
}

// Destinations returns the bound destinations, sorted.
func (r *Registry) Destinations() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	dests := make([]string, 0, len(r.bindings))
	for d := range r.bindings {
		dests = append(dests, d)
	}
	sort.Strings(dests)
	return dests
}

// Broadcaster returns the broadcaster that owns the targets.
func (r *Registry) Broadcaster() *broadcast.Broadcaster {
	return r.broadcaster
}

// JSON returns a decoder that unmarshals the body into a new T.
func JSON[T any]() func(raw string) (any, error) {
	return func(raw string) (any, error) {
		var v T
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, err
		}
		return v, nil
	}
}

// JSONEncode marshals a result so subscribers receive JSON text.
func JSONEncode(result any) (any, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}
