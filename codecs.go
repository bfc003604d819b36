// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package mstomp

import (
	"fmt"

	"github.com/absmach/mstomp/pkg/codec"
	"github.com/absmach/mstomp/pkg/codec/gostomp"
)

// TextCodec names the built-in text codec.
const TextCodec = "text"

// NewCodec returns the codec registered under name.
func NewCodec(name string) (codec.Codec, error) {
	switch name {
	case "", TextCodec:
		return &codec.Text{}, nil
	case gostomp.Name:
		return gostomp.New(), nil
	default:
		return nil, fmt.Errorf("unknown codec %q", name)
	}
}
