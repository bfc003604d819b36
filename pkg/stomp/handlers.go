// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package stomp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/absmach/mstomp/pkg/errors"
	"github.com/absmach/mstomp/pkg/frame"
	"github.com/absmach/mstomp/pkg/metrics"
	"github.com/absmach/mstomp/pkg/session"
)

func (d *Dispatcher) heartbeat(ctx context.Context, ex *exchange) Directive {
	if d.metrics != nil {
		d.metrics.Heartbeats.WithLabelValues(metrics.Inbound).Inc()
	}
	if err := d.hooks.OnHeartbeat(ctx, &ex.session.Context); err != nil {
		d.logger.Error("OnHeartbeat hook failed",
			slog.String("session", ex.conn.ID()),
			slog.String("error", err.Error()))
	}
	return Continue
}

func (d *Dispatcher) connect(ctx context.Context, ex *exchange) Directive {
	f, conn := ex.frame, ex.conn

	version, err := negotiateVersion(f.Get(frame.AcceptVersion))
	if err != nil {
		d.logger.Warn("Version negotiation failed",
			slog.String("session", conn.ID()),
			slog.String("accept-version", f.Get(frame.AcceptVersion)))
		_ = ex.resp.Write(frame.New(frame.Error, map[string]string{
			frame.Version:       SupportedVersions,
			frame.MessageHeader: "Supported protocol versions are " + SupportedVersions,
			frame.ContentType:   "text/plain",
		}, "Supported protocol versions are "+SupportedVersions))
		d.close(ctx, conn, CloseByServer)
		return Cancel
	}

	cx, cy, err := parseHeartBeat(f.Get(frame.HeartBeat))
	if err != nil {
		d.logger.Warn("Invalid heart-beat header",
			slog.String("session", conn.ID()),
			slog.String("error", err.Error()))
		_ = ex.resp.Error(f, "invalid heart-beat header", err.Error())
		d.close(ctx, conn, CloseByServer)
		return Cancel
	}
	hb, hbHeader := negotiateHeartBeat(cx, cy, d.heartbeatMinimum)

	hctx := &ex.session.Context
	hctx.Username = f.Get(frame.Login)
	hctx.Password = []byte(f.Get(frame.Passcode))
	hctx.Host = f.Get(frame.Host)
	hctx.Version = version
	hctx.RemoteAddr = conn.RemoteAddr()
	hctx.Protocol = conn.Protocol()
	if cc, ok := conn.(CertConn); ok {
		hctx.Cert = cc.Certificate()
	}

	if d.metrics != nil {
		d.metrics.AuthAttempts.WithLabelValues(conn.Protocol(), "connect").Inc()
	}
	if err := d.hooks.AuthConnect(ctx, hctx); err != nil {
		d.logger.Warn("Connection rejected",
			slog.String("session", conn.ID()),
			slog.String("username", hctx.Username),
			slog.String("error", err.Error()))
		if d.metrics != nil {
			d.metrics.AuthFailures.WithLabelValues(conn.Protocol(), "connect", "rejected").Inc()
		}
		_ = ex.resp.Error(f, "connection rejected", err.Error())
		d.close(ctx, conn, CloseByServer)
		return Cancel
	}

	connected := frame.New(frame.Connected, map[string]string{
		frame.Version:   version,
		frame.Session:   conn.ID(),
		frame.Server:    d.serverName,
		frame.HeartBeat: hbHeader,
	}, "")
	if err := ex.resp.Write(connected); err != nil {
		d.logger.Debug("Failed to write CONNECTED",
			slog.String("session", conn.ID()),
			slog.String("error", err.Error()))
		return Cancel
	}
	ex.session.SetHeartbeat(hb)
	conn.Suspend()

	d.logger.Info("Client connected",
		slog.String("session", conn.ID()),
		slog.String("remote", conn.RemoteAddr()),
		slog.String("version", version),
		slog.String("heart-beat", hbHeader))

	if err := d.hooks.OnConnect(ctx, hctx); err != nil {
		d.logger.Error("OnConnect hook failed",
			slog.String("session", conn.ID()),
			slog.String("error", err.Error()))
	}
	return Continue
}

func (d *Dispatcher) subscribe(ctx context.Context, ex *exchange) Directive {
	f, conn, sess := ex.frame, ex.conn, ex.session

	dest := f.Get(frame.Destination)
	id, ok := f.Header(frame.ID)
	if !ok || id == "" {
		err := errors.New("subscribe", f.Action().String(), conn.ID(), dest, errors.ErrMissingHeader)
		_ = ex.resp.Error(f, "missing id header", err.Error())
		return Continue
	}

	if err := d.hooks.AuthSubscribe(ctx, &sess.Context, &dest); err != nil {
		d.logger.Warn("Subscription rejected",
			slog.String("session", conn.ID()),
			slog.String("destination", dest),
			slog.String("error", err.Error()))
		if d.metrics != nil {
			d.metrics.AuthFailures.WithLabelValues(conn.Protocol(), "subscribe", "rejected").Inc()
		}
		_ = ex.resp.Error(f, "subscription rejected", err.Error())
		return Continue
	}
	// Looked up after AuthSubscribe, which may rewrite dest.
	if _, ok := d.destinations.Lookup(dest); !ok {
		d.logger.Warn("No service bound to destination",
			slog.String("action", f.Action().String()),
			slog.String("session", conn.ID()),
			slog.String("destination", dest))
		return Continue
	}

	prev, err := sess.Subscriptions.DestinationFor(id)
	switch {
	case err != nil:
		if d.metrics != nil {
			d.metrics.ActiveSubscriptions.Inc()
		}
	case prev != dest:
		err := errors.New("subscribe", f.Action().String(), conn.ID(), dest,
			fmt.Errorf("%w: %q is subscribed to %s", errors.ErrSubscriptionInUse, id, prev))
		d.logger.Warn("Subscription id reused", slog.String("error", err.Error()))
		_ = ex.resp.Error(f, "subscription id already in use", err.Error())
		return Continue
	}
	sess.Subscriptions.Add(id, dest)
	d.broadcaster.Attach(dest, conn)

	d.logger.Debug("Subscribed",
		slog.String("session", conn.ID()),
		slog.String("id", id),
		slog.String("destination", dest))

	if err := d.hooks.OnSubscribe(ctx, &sess.Context, id, dest); err != nil {
		d.logger.Error("OnSubscribe hook failed",
			slog.String("session", conn.ID()),
			slog.String("error", err.Error()))
	}
	return Continue
}

func (d *Dispatcher) unsubscribe(ctx context.Context, ex *exchange) Directive {
	f, conn, sess := ex.frame, ex.conn, ex.session

	id := f.Get(frame.ID)
	dest, err := sess.Subscriptions.DestinationFor(id)
	if err != nil {
		d.logger.Warn("Unsubscribe from unknown subscription",
			slog.String("session", conn.ID()),
			slog.String("id", id))
		return Continue
	}

	// Detach before removing the last id so a concurrent broadcast never
	// finds the connection attached without a subscription.
	if len(sess.Subscriptions.IDsFor(dest)) == 1 {
		d.broadcaster.Detach(dest, conn.ID())
	}
	sess.Subscriptions.Remove(id)
	if d.metrics != nil {
		d.metrics.ActiveSubscriptions.Dec()
	}

	d.logger.Debug("Unsubscribed",
		slog.String("session", conn.ID()),
		slog.String("id", id),
		slog.String("destination", dest))

	if err := d.hooks.OnUnsubscribe(ctx, &sess.Context, id, dest); err != nil {
		d.logger.Error("OnUnsubscribe hook failed",
			slog.String("session", conn.ID()),
			slog.String("error", err.Error()))
	}
	return Continue
}

func (d *Dispatcher) send(ctx context.Context, ex *exchange) Directive {
	f, conn, sess := ex.frame, ex.conn, ex.session

	dest := f.Get(frame.Destination)
	payload := []byte(f.Body())
	if err := d.hooks.AuthSend(ctx, &sess.Context, &dest, &payload); err != nil {
		d.logger.Warn("Send rejected",
			slog.String("session", conn.ID()),
			slog.String("destination", dest),
			slog.String("error", err.Error()))
		if d.metrics != nil {
			d.metrics.AuthFailures.WithLabelValues(conn.Protocol(), "send", "rejected").Inc()
		}
		_ = ex.resp.Error(f, "send rejected", err.Error())
		return Continue
	}
	// Looked up after AuthSend, which may rewrite dest.
	binding, ok := d.destinations.Lookup(dest)
	if !ok {
		d.logger.Warn("No service bound to destination",
			slog.String("action", f.Action().String()),
			slog.String("session", conn.ID()),
			slog.String("destination", dest))
		return Continue
	}

	tx := f.Get(frame.Transaction)
	if err := d.adapter.Validate(sess, tx); err != nil {
		_ = ex.resp.Error(f, "unknown transaction", err.Error())
		return Continue
	}

	body := strings.TrimSuffix(string(payload), "\n")
	result, err := binding.Invoke(ctx, conn, body)
	if err != nil {
		err = errors.New("invoke", f.Action().String(), conn.ID(), dest, err)
		d.logger.Error("Service failed", slog.String("error", err.Error()))
		_ = ex.resp.Error(f, "handler invocation failed", err.Error())
		return Continue
	}

	if err := d.hooks.OnSend(ctx, &sess.Context, dest, []byte(body)); err != nil {
		d.logger.Error("OnSend hook failed",
			slog.String("session", conn.ID()),
			slog.String("error", err.Error()))
	}

	if result == nil {
		return Continue
	}
	pending := session.Pending{Destination: dest, Payload: result}
	if err := d.adapter.Send(sess, tx, pending, d.publish(ctx)); err != nil {
		_ = ex.resp.Error(f, "unknown transaction", err.Error())
	}
	return Continue
}

func (d *Dispatcher) begin(_ context.Context, ex *exchange) Directive {
	return d.transaction(ex, "begin", func(s *session.Session, tx string) error {
		return d.adapter.Begin(s, tx)
	})
}

func (d *Dispatcher) commit(ctx context.Context, ex *exchange) Directive {
	return d.transaction(ex, "commit", func(s *session.Session, tx string) error {
		return d.adapter.Commit(s, tx, d.publish(ctx))
	})
}

func (d *Dispatcher) abort(_ context.Context, ex *exchange) Directive {
	return d.transaction(ex, "abort", func(s *session.Session, tx string) error {
		return d.adapter.Abort(s, tx)
	})
}

func (d *Dispatcher) transaction(ex *exchange, op string, apply func(*session.Session, string) error) Directive {
	f, conn := ex.frame, ex.conn

	tx, ok := f.Header(frame.Transaction)
	if !ok || tx == "" {
		err := errors.New(op, f.Action().String(), conn.ID(), "", errors.ErrMissingHeader)
		_ = ex.resp.Error(f, "missing transaction header", err.Error())
		return Continue
	}

	if err := apply(ex.session, tx); err != nil {
		err = errors.New(op, f.Action().String(), conn.ID(), "", err)
		d.logger.Warn("Transaction failed", slog.String("error", err.Error()))
		_ = ex.resp.Error(f, "transaction failed", err.Error())
		return Continue
	}

	if d.metrics != nil {
		d.metrics.Transactions.WithLabelValues(op).Inc()
	}
	return Continue
}

func (d *Dispatcher) disconnect(ctx context.Context, ex *exchange) Directive {
	if id, ok := receiptOf(ex.frame); ok {
		_ = ex.resp.Receipt(id)
	}
	d.logger.Info("Client disconnected", slog.String("session", ex.conn.ID()))
	d.close(ctx, ex.conn, CloseByClient)
	return Cancel
}
