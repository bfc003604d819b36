// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package stomp

import (
	"github.com/absmach/mstomp/pkg/codec"
	"github.com/absmach/mstomp/pkg/frame"
	"github.com/absmach/mstomp/pkg/metrics"
)

// Responder writes response frames to the connection that sent the frame
// being handled.
type Responder struct {
	conn    Conn
	codec   codec.Codec
	metrics *metrics.Metrics

	wroteError   bool
	wroteReceipt bool
	errMessage   string
}

func newResponder(conn Conn, c codec.Codec, m *metrics.Metrics) *Responder {
	return &Responder{conn: conn, codec: c, metrics: m}
}

// Write formats f and writes it to the connection.
func (r *Responder) Write(f *frame.Frame) error {
	switch f.Action() {
	case frame.Error:
		r.wroteError = true
		r.errMessage = f.Get(frame.MessageHeader)
	case frame.Receipt:
		r.wroteReceipt = true
	}

	out := r.codec.Format(f)
	if r.metrics != nil {
		r.metrics.ObserveOutbound(f.Action().String(), len(out))
	}
	return r.conn.Write([]byte(out))
}

// Error writes an ERROR frame. The receipt id of the inbound frame is echoed
// so clients can correlate the failure.
func (r *Responder) Error(inbound *frame.Frame, message, detail string) error {
	headers := map[string]string{
		frame.MessageHeader: message,
		frame.ContentType:   "text/plain",
	}
	if id, ok := receiptOf(inbound); ok {
		headers[frame.ReceiptID] = id
	}
	return r.Write(frame.New(frame.Error, headers, detail))
}

// Receipt writes RECEIPT for id.
func (r *Responder) Receipt(id string) error {
	return r.Write(frame.New(frame.Receipt, map[string]string{frame.ReceiptID: id}, ""))
}

// WroteError reports whether an ERROR frame was written.
func (r *Responder) WroteError() bool {
	return r.wroteError
}

// WroteReceipt reports whether a RECEIPT frame was written.
func (r *Responder) WroteReceipt() bool {
	return r.wroteReceipt
}

// receiptOf returns the receipt requested by f, accepting the legacy
// receipt-id header as well.
func receiptOf(f *frame.Frame) (string, bool) {
	if f == nil {
		return "", false
	}
	if id, ok := f.Header(frame.ReceiptHeader); ok && id != "" {
		return id, true
	}
	if id, ok := f.Header(frame.ReceiptID); ok && id != "" {
		return id, true
	}
	return "", false
}
