// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package tcp

import (
	"errors"
	"io"
	"strings"
	"testing"

	mserrors "github.com/absmach/mstomp/pkg/errors"
)

func TestFrameReader(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "single frame",
			input: "SEND\ndestination:/a\n\nhi\x00",
			want:  []string{"SEND\ndestination:/a\n\nhi\x00"},
		},
		{
			name:  "heart-beats between frames",
			input: "\n\r\nBEGIN\ntransaction:t\n\n\x00\n",
			want:  []string{"\n", "\n", "BEGIN\ntransaction:t\n\n\x00", "\n"},
		},
		{
			name:  "content-length body carries NUL",
			input: "SEND\ncontent-length:3\n\na\x00b\x00",
			want:  []string{"SEND\ncontent-length:3\n\na\x00b\x00"},
		},
		{
			name:  "frame without blank line",
			input: "DISCONNECT\n\x00",
			want:  []string{"DISCONNECT\n\x00"},
		},
		{
			name:  "CRLF head",
			input: "SEND\r\ndestination:/a\r\n\r\nx\x00",
			want:  []string{"SEND\r\ndestination:/a\r\n\r\nx\x00"},
		},
		{
			name:  "body mentions content-length",
			input: "SEND\n\ncontent-length:1\nmore\x00",
			want:  []string{"SEND\n\ncontent-length:1\nmore\x00"},
		},
		{
			name:  "back to back",
			input: "SEND\n\na\x00SEND\n\nb\x00",
			want:  []string{"SEND\n\na\x00", "SEND\n\nb\x00"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fr := newFrameReader(strings.NewReader(tt.input), 0)
			for i, want := range tt.want {
				got, err := fr.next()
				if err != nil {
					t.Fatalf("next() #%d error: %v", i, err)
				}
				if string(got) != want {
					t.Errorf("next() #%d = %q, want %q", i, got, want)
				}
			}
			if _, err := fr.next(); !errors.Is(err, io.EOF) {
				t.Errorf("next() at end error = %v, want EOF", err)
			}
		})
	}
}

func TestFrameReaderErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		max   int
		want  error
	}{
		{
			name:  "head too large",
			input: "SEND\ndestination:" + strings.Repeat("a", 64) + "\n\n\x00",
			max:   32,
			want:  mserrors.ErrSizeLimitExceeded,
		},
		{
			name:  "body too large",
			input: "SEND\n\n" + strings.Repeat("b", 64) + "\x00",
			max:   32,
			want:  mserrors.ErrSizeLimitExceeded,
		},
		{
			name:  "content-length too large",
			input: "SEND\ncontent-length:64\n\n",
			max:   32,
			want:  mserrors.ErrSizeLimitExceeded,
		},
		{
			name:  "body overruns content-length",
			input: "SEND\ncontent-length:1\n\nab\x00",
			want:  mserrors.ErrParse,
		},
		{
			name:  "truncated frame",
			input: "SEND\n\nabc",
			want:  io.EOF,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fr := newFrameReader(strings.NewReader(tt.input), tt.max)
			if _, err := fr.next(); !errors.Is(err, tt.want) {
				t.Errorf("next() error = %v, want %v", err, tt.want)
			}
		})
	}
}
