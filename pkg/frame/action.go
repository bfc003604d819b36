// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package frame

import (
	"fmt"
	"strings"

	"github.com/absmach/mstomp/pkg/errors"
)

// Action is the command of a STOMP frame.
type Action int

const (
	// Null represents a bare heartbeat payload. It has no textual form.
	Null Action = iota
	Connect
	Stomp
	Connected
	Send
	Subscribe
	Unsubscribe
	Begin
	Commit
	Abort
	Ack
	Nack
	Disconnect
	Message
	Receipt
	Error

	// NumActions is the number of actions, Null included.
	NumActions = int(Error) + 1
)

var actionNames = [NumActions]string{
	Null:        "NULL",
	Connect:     "CONNECT",
	Stomp:       "STOMP",
	Connected:   "CONNECTED",
	Send:        "SEND",
	Subscribe:   "SUBSCRIBE",
	Unsubscribe: "UNSUBSCRIBE",
	Begin:       "BEGIN",
	Commit:      "COMMIT",
	Abort:       "ABORT",
	Ack:         "ACK",
	Nack:        "NACK",
	Disconnect:  "DISCONNECT",
	Message:     "MESSAGE",
	Receipt:     "RECEIPT",
	Error:       "ERROR",
}

// String returns the wire token of the action.
func (a Action) String() string {
	if a < 0 || int(a) >= NumActions {
		return "UNKNOWN"
	}
	return actionNames[a]
}

// ParseAction matches a command token case-insensitively.
// NULL is internal and is rejected like any unknown token.
func ParseAction(token string) (Action, error) {
	upper := strings.ToUpper(strings.TrimSpace(token))
	for a := Connect; int(a) < NumActions; a++ {
		if actionNames[a] == upper {
			return a, nil
		}
	}
	return Null, fmt.Errorf("%w: %q", errors.ErrIllegalAction, token)
}
