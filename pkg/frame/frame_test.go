// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package frame

import (
	"errors"
	"strconv"
	"strings"
	"testing"

	mserrors "github.com/absmach/mstomp/pkg/errors"
)

func TestNewInjectsContentLength(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		body    string
		want    string
	}{
		{"no body", nil, "", "0"},
		{"ascii body", map[string]string{Destination: "/a"}, "hello", "5"},
		{"multibyte body", nil, "héllo", "6"},
		{"caller value overridden", map[string]string{ContentLength: "999"}, "abc", "3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New(Send, tt.headers, tt.body)
			got, ok := f.Header(ContentLength)
			if !ok {
				t.Fatal("content-length missing")
			}
			if got != tt.want {
				t.Errorf("content-length = %s, want %s", got, tt.want)
			}
			if got != strconv.Itoa(len(f.Body())) {
				t.Errorf("content-length %s does not match body length %d", got, len(f.Body()))
			}
		})
	}
}

func TestFrameIsImmutable(t *testing.T) {
	headers := map[string]string{Destination: "/a"}
	f := New(Send, headers, "x")

	headers[Destination] = "/b"
	if got := f.Get(Destination); got != "/a" {
		t.Errorf("frame observed caller mutation: destination = %s", got)
	}

	copied := f.Headers()
	copied[Destination] = "/c"
	if got := f.Get(Destination); got != "/a" {
		t.Errorf("frame observed mutation of Headers() copy: destination = %s", got)
	}
}

func TestParseAction(t *testing.T) {
	tests := []struct {
		token   string
		want    Action
		wantErr bool
	}{
		{"CONNECT", Connect, false},
		{"connect", Connect, false},
		{"Stomp", Stomp, false},
		{"SEND", Send, false},
		{"unsubscribe", Unsubscribe, false},
		{"ERROR", Error, false},
		{"NULL", Null, true},
		{"PUBLISH", Null, true},
		{"", Null, true},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got, err := ParseAction(tt.token)
			if tt.wantErr {
				if !errors.Is(err, mserrors.ErrIllegalAction) {
					t.Errorf("ParseAction(%q) error = %v, want ErrIllegalAction", tt.token, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAction(%q) unexpected error: %v", tt.token, err)
			}
			if got != tt.want {
				t.Errorf("ParseAction(%q) = %v, want %v", tt.token, got, tt.want)
			}
		})
	}
}

func TestActionString(t *testing.T) {
	for a := Null; int(a) < NumActions; a++ {
		if a.String() == "UNKNOWN" {
			t.Errorf("action %d has no name", a)
		}
	}
	if Action(-1).String() != "UNKNOWN" {
		t.Error("out of range action should be UNKNOWN")
	}
}

func TestIsHeartbeat(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{"", true},
		{"\n", true},
		{"\r\n", true},
		{"\n\n", false},
		{"SEND\n\n", false},
	}

	for _, tt := range tests {
		if got := IsHeartbeat([]byte(tt.raw)); got != tt.want {
			t.Errorf("IsHeartbeat(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestKeysSorted(t *testing.T) {
	f := New(Message, map[string]string{Subscription: "1", Destination: "/a", MessageID: "m"}, "")
	keys := f.Keys()
	want := []string{ContentLength, Destination, MessageID, Subscription}
	if len(keys) != len(want) {
		t.Fatalf("Keys() = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("Keys()[%d] = %s, want %s", i, keys[i], want[i])
		}
	}
}

func TestHeaderNamesAndActions(t *testing.T) {
	// Headers sharing a word with an action keep their own lowercase names.
	tests := []struct {
		header string
		action Action
		want   string
	}{
		{AckHeader, Ack, "ack"},
		{ReceiptHeader, Receipt, "receipt"},
		{MessageHeader, Message, "message"},
	}
	for _, tt := range tests {
		if tt.header != tt.want {
			t.Errorf("header = %q, want %q", tt.header, tt.want)
		}
		if got := tt.action.String(); got != strings.ToUpper(tt.want) {
			t.Errorf("%s.String() = %q, want %q", tt.want, got, strings.ToUpper(tt.want))
		}
	}

	f := New(Error, map[string]string{MessageHeader: "bad", ReceiptHeader: "7"}, "")
	if f.Get(MessageHeader) != "bad" || f.Get(ReceiptHeader) != "7" {
		t.Errorf("headers = %v", f.Headers())
	}
}
