// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"github.com/absmach/mstomp/pkg/frame"
)

// Codec converts wire text to frames and back.
//
// Parse receives one frame worth of text. The text may still carry its NUL
// terminator and trailing EOLs. Heartbeat payloads are recognised by the caller
// and never reach Parse.
//
// Format renders a frame including its NUL terminator.
type Codec interface {
	Parse(text string) (*frame.Frame, error)
	Format(f *frame.Frame) string
}
