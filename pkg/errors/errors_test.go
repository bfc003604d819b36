// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	if err := New("send", "SEND", "s1", "/a", nil); err != nil {
		t.Fatalf("New with nil error = %v, want nil", err)
	}

	err := New("unsubscribe", "UNSUBSCRIBE", "s1", "", ErrUnknownSubscription)
	if !errors.Is(err, ErrUnknownSubscription) {
		t.Errorf("errors.Is(%v, ErrUnknownSubscription) = false", err)
	}

	var fe *FrameError
	if !errors.As(err, &fe) {
		t.Fatalf("errors.As(%v) = false", err)
	}
	if fe.SessionID != "s1" {
		t.Errorf("SessionID = %q, want s1", fe.SessionID)
	}
}

func TestFrameErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "with destination",
			err:  New("send", "SEND", "s1", "/queue/a", ErrNoHandler),
			want: "SEND send [s1] /queue/a: no handler for destination",
		},
		{
			name: "without destination",
			err:  New("parse", "CONNECT", "s2", "", ErrParse),
			want: "CONNECT parse [s2]: malformed frame",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, "ctx") != nil {
		t.Error("Wrap(nil) should be nil")
	}
	err := Wrap(ErrIllegalState, "building message")
	if !errors.Is(err, ErrIllegalState) {
		t.Errorf("wrapped error lost its cause: %v", err)
	}
	if !strings.HasPrefix(err.Error(), "building message: ") {
		t.Errorf("unexpected message %q", err.Error())
	}
}
