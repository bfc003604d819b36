// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package codec defines how STOMP frames travel as text.
//
// # Codec Interface
//
// The Codec interface has two methods:
//
//	Parse(text string) (*frame.Frame, error)
//	Format(f *frame.Frame) string
//
// Parse is called by the dispatcher for every inbound payload that is not a
// heartbeat. Format renders every frame the server writes: CONNECTED, RECEIPT,
// ERROR and the MESSAGE frames produced on broadcast.
//
// # Wire Format
//
//	COMMAND\n
//	key:value\n
//	...
//	\n
//	body\0
//
// Header values may contain colons; only the first colon of a line separates key
// from value. A heartbeat is a single EOL and never reaches a codec.
//
// # Implementations
//
//   - codec.Text: the built-in codec (configuration name "text")
//   - codec/gostomp: frames read and written by github.com/go-stomp/stomp/v3
//     (configuration name "go-stomp"), for peers that expect escaped header values
//
// Both are selected at startup by name and shared by every connection, so
// implementations must be safe for concurrent use.
package codec
