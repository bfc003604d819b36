// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package stomp

import (
	"bytes"
	"fmt"

	"github.com/google/uuid"

	"github.com/absmach/mstomp/pkg/codec"
	"github.com/absmach/mstomp/pkg/errors"
	"github.com/absmach/mstomp/pkg/frame"
)

// MessageBuilder renders broadcast payloads as MESSAGE frames.
type MessageBuilder struct {
	codec codec.Codec
	newID func() string
}

// NewMessageBuilder returns a builder formatting with c. Message ids are
// random UUIDs.
func NewMessageBuilder(c codec.Codec) *MessageBuilder {
	return &MessageBuilder{
		codec: c,
		newID: uuid.NewString,
	}
}

// Build produces one MESSAGE per subscription id, each followed by an EOL.
// Every frame gets its own message-id.
func (b *MessageBuilder) Build(destination string, payload any, ids []string) ([]byte, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no subscription to %s", errors.ErrIllegalState, destination)
	}

	body := stringify(payload)
	var buf bytes.Buffer
	for _, id := range ids {
		msg := frame.New(frame.Message, map[string]string{
			frame.Destination:  destination,
			frame.MessageID:    b.newID(),
			frame.Subscription: id,
		}, body)
		buf.WriteString(b.codec.Format(msg))
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

func stringify(payload any) string {
	switch p := payload.(type) {
	case nil:
		return ""
	case string:
		return p
	case []byte:
		return string(p)
	case fmt.Stringer:
		return p.String()
	default:
		return fmt.Sprint(p)
	}
}
