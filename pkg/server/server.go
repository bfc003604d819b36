// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"sync"
	"time"

	"github.com/absmach/mstomp/pkg/session"
	"github.com/absmach/mstomp/pkg/stomp"
)

// Heartbeat is the payload of a heart-beat pulse.
var Heartbeat = []byte{'\n'}

// Dispatcher is the frame processing core the transports feed.
// *stomp.Dispatcher implements it.
type Dispatcher interface {
	HandleFrame(ctx context.Context, raw []byte, conn stomp.Conn) stomp.Directive
	Release(ctx context.Context, conn stomp.Conn)
	Session(id string) (*session.Session, bool)
}

var _ Dispatcher = (*stomp.Dispatcher)(nil)

// Pulse writes a heart-beat every interval until ctx is done or a write
// fails. onPulse, when set, runs after every successful pulse.
func Pulse(ctx context.Context, interval time.Duration, write func([]byte) error, onPulse func()) error {
	if interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := write(Heartbeat); err != nil {
				return err
			}
			if onPulse != nil {
				onPulse()
			}
		}
	}
}

// ReadTimeout is how long a transport waits for inbound data once the client
// promised to pulse every incoming. The grace period absorbs network jitter.
func ReadTimeout(incoming time.Duration) time.Duration {
	if incoming <= 0 {
		return 0
	}
	return incoming + incoming/2
}

// Keepalive applies the heart-beat a connection negotiated on CONNECT.
// Transports call Update after every frame; once the session is connected it
// starts pulsing the client and ReadTimeout reports the read deadline.
type Keepalive struct {
	dispatcher Dispatcher
	id         string
	write      func([]byte) error
	onPulse    func()

	ctx    context.Context
	cancel context.CancelFunc
	pulses sync.WaitGroup

	readTimeout time.Duration
	negotiated  bool
}

// NewKeepalive tracks the session of connection id. Pulses stop when ctx is
// done or Stop is called.
func NewKeepalive(ctx context.Context, d Dispatcher, id string, write func([]byte) error, onPulse func()) *Keepalive {
	ctx, cancel := context.WithCancel(ctx)
	return &Keepalive{
		dispatcher: d,
		id:         id,
		write:      write,
		onPulse:    onPulse,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Update picks up the negotiated heart-beat the first time the session is
// seen connected. Later calls do nothing.
func (k *Keepalive) Update() {
	if k.negotiated {
		return
	}
	sess, ok := k.dispatcher.Session(k.id)
	if !ok || !sess.Connected() {
		return
	}
	k.negotiated = true

	hb := sess.Heartbeat()
	k.readTimeout = ReadTimeout(hb.Incoming)
	if hb.Outgoing > 0 {
		k.pulses.Add(1)
		go func() {
			defer k.pulses.Done()
			_ = Pulse(k.ctx, hb.Outgoing, k.write, k.onPulse)
		}()
	}
}

// ReadTimeout is the read deadline to apply before the next read. Zero
// means none.
func (k *Keepalive) ReadTimeout() time.Duration {
	return k.readTimeout
}

// Stop ends pulsing and waits for the pulse goroutine to return.
func (k *Keepalive) Stop() {
	k.cancel()
	k.pulses.Wait()
}
