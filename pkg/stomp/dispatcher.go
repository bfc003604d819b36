// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package stomp

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/absmach/mstomp/pkg/broadcast"
	"github.com/absmach/mstomp/pkg/codec"
	"github.com/absmach/mstomp/pkg/destination"
	"github.com/absmach/mstomp/pkg/frame"
	"github.com/absmach/mstomp/pkg/handler"
	"github.com/absmach/mstomp/pkg/metrics"
	"github.com/absmach/mstomp/pkg/session"
)

const tracerName = "github.com/absmach/mstomp/pkg/stomp"

// Config holds the dispatcher configuration.
type Config struct {
	// Destinations maps destinations to services. Required.
	Destinations *destination.Registry

	// Codec parses and formats frames. Defaults to codec.Text.
	Codec codec.Codec

	// Adapter applies SEND results and transactions. Defaults to the
	// transactional adapter.
	Adapter Adapter

	// Broadcaster attaches connections to destinations. Defaults to the
	// broadcaster owning the registry's targets.
	Broadcaster Broadcaster

	// Sessions holds per-connection state. Defaults to a new store.
	Sessions *session.Store

	// Handler receives auth and notification hooks. Defaults to NoopHandler.
	Handler handler.Handler

	// IgnoreErrors keeps connections open on frames that fail to parse.
	IgnoreErrors bool

	// HeartbeatMinimum is the shortest server pulse interval offered.
	HeartbeatMinimum time.Duration

	// ServerName is sent in the server header of CONNECTED.
	ServerName string

	// Metrics is optional instrumentation.
	Metrics *metrics.Metrics

	// Tracer defaults to the global OpenTelemetry tracer provider.
	Tracer trace.Tracer

	Logger *slog.Logger
}

type exchange struct {
	frame   *frame.Frame
	conn    Conn
	session *session.Session
	resp    *Responder
}

type actionHandler func(d *Dispatcher, ctx context.Context, ex *exchange) Directive

// Dispatcher routes inbound frames to per-action handlers.
type Dispatcher struct {
	handlers [frame.NumActions]actionHandler

	codec        codec.Codec
	adapter      Adapter
	destinations *destination.Registry
	broadcaster  Broadcaster
	sessions     *session.Store
	hooks        handler.Handler
	builder      *MessageBuilder

	ignoreErrors     bool
	heartbeatMinimum time.Duration
	serverName       string

	metrics *metrics.Metrics
	tracer  trace.Tracer
	logger  *slog.Logger
}

// New creates a dispatcher and installs its message filter on the
// registry's broadcaster.
func New(cfg Config) *Dispatcher {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Codec == nil {
		cfg.Codec = &codec.Text{}
	}
	if cfg.Adapter == nil {
		cfg.Adapter = transactional{}
	}
	if cfg.Sessions == nil {
		cfg.Sessions = session.NewStore()
	}
	if cfg.Handler == nil {
		cfg.Handler = &handler.NoopHandler{}
	}
	if cfg.ServerName == "" {
		cfg.ServerName = "mstomp"
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer(tracerName)
	}

	bc := cfg.Destinations.Broadcaster()
	if cfg.Broadcaster == nil {
		cfg.Broadcaster = bc
	}

	d := &Dispatcher{
		codec:            cfg.Codec,
		adapter:          cfg.Adapter,
		destinations:     cfg.Destinations,
		broadcaster:      cfg.Broadcaster,
		sessions:         cfg.Sessions,
		hooks:            cfg.Handler,
		builder:          NewMessageBuilder(cfg.Codec),
		ignoreErrors:     cfg.IgnoreErrors,
		heartbeatMinimum: cfg.HeartbeatMinimum,
		serverName:       cfg.ServerName,
		metrics:          cfg.Metrics,
		tracer:           cfg.Tracer,
		logger:           cfg.Logger,
	}

	// ACK and NACK have no handler.
	d.handlers = [frame.NumActions]actionHandler{
		frame.Null:        (*Dispatcher).heartbeat,
		frame.Connect:     (*Dispatcher).connect,
		frame.Stomp:       (*Dispatcher).connect,
		frame.Subscribe:   (*Dispatcher).subscribe,
		frame.Unsubscribe: (*Dispatcher).unsubscribe,
		frame.Send:        (*Dispatcher).send,
		frame.Begin:       (*Dispatcher).begin,
		frame.Commit:      (*Dispatcher).commit,
		frame.Abort:       (*Dispatcher).abort,
		frame.Disconnect:  (*Dispatcher).disconnect,
	}

	if bc != nil {
		bc.SetFilter(d.Filter)
	}
	return d
}

// HandleFrame parses raw, runs the handler for its action and writes any
// response frames to conn. It never returns an error: failures become a
// directive, a log line or an ERROR frame to conn.
func (d *Dispatcher) HandleFrame(ctx context.Context, raw []byte, conn Conn) Directive {
	start := time.Now()

	var f *frame.Frame
	if frame.IsHeartbeat(raw) {
		f = frame.Heartbeat()
	} else {
		parsed, err := d.codec.Parse(string(raw))
		if err != nil {
			d.logger.Warn("Failed to parse frame",
				slog.String("session", conn.ID()),
				slog.String("remote", conn.RemoteAddr()),
				slog.String("error", err.Error()))
			if d.metrics != nil {
				d.metrics.FrameErrors.WithLabelValues("UNKNOWN", "parse").Inc()
			}
			if d.ignoreErrors {
				return Skip
			}
			d.close(ctx, conn, CloseByServer)
			return Cancel
		}
		f = parsed
	}

	action := f.Action()
	attrs := []attribute.KeyValue{
		attribute.String("stomp.action", action.String()),
		attribute.String("stomp.session_id", conn.ID()),
		attribute.String("stomp.protocol", conn.Protocol()),
	}
	if dest, ok := f.Header(frame.Destination); ok {
		attrs = append(attrs, attribute.String("stomp.destination", dest))
	}
	ctx, span := d.tracer.Start(ctx, "stomp."+action.String(),
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attrs...),
	)
	defer span.End()

	h := d.handlers[action]
	if h == nil {
		d.logger.Warn("No handler for action",
			slog.String("action", action.String()),
			slog.String("session", conn.ID()))
		span.SetStatus(codes.Error, "no handler")
		if d.metrics != nil {
			d.metrics.FrameErrors.WithLabelValues(action.String(), "no_handler").Inc()
		}
		return Cancel
	}

	sess := d.sessions.GetOrCreate(conn.ID())
	wasSuspended := conn.Suspended()
	ex := &exchange{
		frame:   f,
		conn:    conn,
		session: sess,
		resp:    newResponder(conn, d.codec, d.metrics),
	}

	directive := h(d, ctx, ex)

	if action != frame.Connect && action != frame.Stomp && action != frame.Null &&
		!ex.resp.WroteError() && !ex.resp.WroteReceipt() {
		if id, ok := receiptOf(f); ok {
			if err := ex.resp.Receipt(id); err != nil {
				d.logger.Debug("Failed to write receipt",
					slog.String("session", conn.ID()),
					slog.String("error", err.Error()))
			}
		}
	}

	if !wasSuspended && conn.Suspended() {
		d.reattach(sess, conn)
	}

	if ex.resp.WroteError() {
		span.SetStatus(codes.Error, ex.resp.errMessage)
		if d.metrics != nil {
			d.metrics.FrameErrors.WithLabelValues(action.String(), "error_frame").Inc()
		}
	}
	span.SetAttributes(attribute.String("stomp.directive", directive.String()))
	if d.metrics != nil {
		d.metrics.ObserveFrame(action.String(), len(raw), start)
	}

	return directive
}

// FormatOutbound renders f with the configured codec.
func (d *Dispatcher) FormatOutbound(f *frame.Frame) string {
	return d.codec.Format(f)
}

// Filter renders a broadcast payload as one MESSAGE per subscription the
// receiving connection holds on destination. A connection whose session was
// already released is skipped. A connected one attached without any
// subscription to destination is an ErrIllegalState.
func (d *Dispatcher) Filter(destination string, sub broadcast.Subscriber, payload any) ([]byte, error) {
	sess, ok := d.sessions.Get(sub.ID())
	if !ok {
		return nil, nil
	}
	out, err := d.builder.Build(destination, payload, sess.Subscriptions.IDsFor(destination))
	if err != nil {
		return nil, err
	}
	if d.metrics != nil {
		d.metrics.ObserveOutbound(frame.Message.String(), len(out))
	}
	return out, nil
}

// Release drops the session of conn and detaches it from every destination.
// It is safe to call more than once.
func (d *Dispatcher) Release(ctx context.Context, conn Conn) {
	sess, ok := d.sessions.Remove(conn.ID())
	if !ok {
		return
	}
	dests := sess.Subscriptions.AllDestinations()
	for _, dest := range dests {
		d.broadcaster.Detach(dest, conn.ID())
	}
	if d.metrics != nil {
		d.metrics.ActiveSubscriptions.Sub(float64(sess.Subscriptions.Len()))
	}
	sess.Reset()

	if err := d.hooks.OnDisconnect(ctx, &sess.Context); err != nil {
		d.logger.Error("OnDisconnect hook failed",
			slog.String("session", conn.ID()),
			slog.String("error", err.Error()))
	}
	d.logger.Debug("Session released",
		slog.String("session", conn.ID()),
		slog.Int("destinations", len(dests)))
}

// Session returns the session of connection id, if any.
func (d *Dispatcher) Session(id string) (*session.Session, bool) {
	return d.sessions.Get(id)
}

// Sessions returns the number of live sessions.
func (d *Dispatcher) Sessions() int {
	return d.sessions.Len()
}

func (d *Dispatcher) close(ctx context.Context, conn Conn, reason CloseReason) {
	d.Release(ctx, conn)
	if err := conn.Close(reason); err != nil {
		d.logger.Debug("Failed to close connection",
			slog.String("session", conn.ID()),
			slog.String("reason", reason.String()),
			slog.String("error", err.Error()))
	}
}

// reattach subscribes a freshly suspended connection to everything in its
// registry again.
func (d *Dispatcher) reattach(sess *session.Session, conn Conn) {
	for _, dest := range sess.Subscriptions.AllDestinations() {
		d.broadcaster.Attach(dest, conn)
	}
}

// publish broadcasts a service result to its destination.
func (d *Dispatcher) publish(ctx context.Context) Deliver {
	return func(p session.Pending) {
		if p.Payload == nil {
			return
		}
		n := d.broadcaster.Lookup(p.Destination).Broadcast(ctx, p.Payload)
		d.logger.Debug("Broadcast",
			slog.String("destination", p.Destination),
			slog.Int("delivered", n))
	}
}
