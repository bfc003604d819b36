// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package frame defines the STOMP frame: an immutable action, header set and body.
package frame

import (
	"bytes"
	"maps"
	"slices"
	"strconv"
)

// Frame is one STOMP protocol message. A Frame is never modified after New returns.
type Frame struct {
	action  Action
	headers map[string]string
	body    string
}

// New builds a frame. The headers map is copied and its content-length entry is
// always replaced by the byte length of body.
func New(action Action, headers map[string]string, body string) *Frame {
	h := make(map[string]string, len(headers)+1)
	maps.Copy(h, headers)
	h[ContentLength] = strconv.Itoa(len(body))

	return &Frame{
		action:  action,
		headers: h,
		body:    body,
	}
}

// Heartbeat returns the NULL frame standing for a bare heartbeat.
func Heartbeat() *Frame {
	return New(Null, nil, "")
}

// Action returns the frame command.
func (f *Frame) Action() Action {
	return f.action
}

// Body returns the frame body. An empty string means no body.
func (f *Frame) Body() string {
	return f.body
}

// Header returns the value of key and whether it is present.
func (f *Frame) Header(key string) (string, bool) {
	v, ok := f.headers[key]
	return v, ok
}

// Get returns the value of key, or an empty string.
func (f *Frame) Get(key string) string {
	return f.headers[key]
}

// Headers returns a copy of the header map.
func (f *Frame) Headers() map[string]string {
	return maps.Clone(f.headers)
}

// Keys returns the header names in lexical order.
func (f *Frame) Keys() []string {
	return slices.Sorted(maps.Keys(f.headers))
}

// IsHeartbeat reports whether raw is a heartbeat payload: empty, or a single EOL.
func IsHeartbeat(raw []byte) bool {
	return len(raw) == 0 || bytes.Equal(raw, []byte{'\n'}) || bytes.Equal(raw, []byte("\r\n"))
}
