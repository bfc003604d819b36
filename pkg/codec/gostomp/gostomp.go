// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package gostomp provides a codec backed by the go-stomp frame reader and
// writer, for deployments that want the escaping rules of that library on the
// wire.
package gostomp

import (
	"bytes"
	"fmt"
	"strings"

	stompframe "github.com/go-stomp/stomp/v3/frame"

	"github.com/absmach/mstomp/pkg/codec"
	"github.com/absmach/mstomp/pkg/errors"
	"github.com/absmach/mstomp/pkg/frame"
)

// Name of this codec in configuration.
const Name = "go-stomp"

// Codec parses and formats frames through github.com/go-stomp/stomp/v3/frame.
type Codec struct{}

var _ codec.Codec = (*Codec)(nil)

// New returns the go-stomp codec.
func New() *Codec {
	return &Codec{}
}

// Parse reads a single frame. Leading EOLs are skipped and a missing NUL
// terminator is supplied, since the websocket transport delivers frames
// without one.
func (c *Codec) Parse(text string) (*frame.Frame, error) {
	text = strings.TrimLeft(text, "\r\n")
	if text == "" || text == "\x00" {
		return nil, fmt.Errorf("%w: empty frame", errors.ErrParse)
	}
	if strings.IndexByte(text, 0) < 0 {
		text += "\x00"
	}

	f, err := stompframe.NewReader(strings.NewReader(text)).Read()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrParse, err)
	}
	if f == nil {
		return frame.Heartbeat(), nil
	}

	action, err := frame.ParseAction(f.Command)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrParse, err)
	}

	headers := make(map[string]string, f.Header.Len())
	for i := 0; i < f.Header.Len(); i++ {
		key, value := f.Header.GetAt(i)
		if _, seen := headers[key]; !seen {
			headers[key] = value
		}
	}

	return frame.New(action, headers, string(f.Body)), nil
}

// Format writes the frame with the go-stomp writer. Headers are added in
// sorted order so output is deterministic.
func (c *Codec) Format(f *frame.Frame) string {
	out := stompframe.New(f.Action().String())
	for _, key := range f.Keys() {
		out.Header.Add(key, f.Get(key))
	}
	if body := f.Body(); body != "" {
		out.Body = []byte(body)
	}

	var buf bytes.Buffer
	if err := stompframe.NewWriter(&buf).Write(out); err != nil {
		// Writes to a bytes.Buffer only fail on allocation panics.
		return ""
	}
	return buf.String()
}
