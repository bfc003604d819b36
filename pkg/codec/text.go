// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/absmach/mstomp/pkg/errors"
	"github.com/absmach/mstomp/pkg/frame"
)

// Name of the built-in codec in configuration.
const Name = "text"

// Text is the built-in codec.
type Text struct{}

var _ Codec = (*Text)(nil)

// Parse reads the command line, then header lines up to the first blank line.
// The remainder is the body, bounded by content-length when it is valid.
func (c *Text) Parse(text string) (*frame.Frame, error) {
	text = trimTerminator(text)
	text = strings.TrimLeft(text, "\r\n")
	if text == "" {
		return nil, fmt.Errorf("%w: empty frame", errors.ErrParse)
	}

	line, rest := nextLine(text)
	action, err := frame.ParseAction(line)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrParse, err)
	}

	headers := make(map[string]string)
	for rest != "" {
		line, rest = nextLine(rest)
		if line == "" {
			break
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("%w: header line %q has no colon", errors.ErrParse, line)
		}
		// Repeated headers keep their first value.
		if _, seen := headers[key]; !seen {
			headers[key] = value
		}
	}

	body := rest
	if cl, ok := headers[frame.ContentLength]; ok {
		if n, err := strconv.Atoi(cl); err == nil && n >= 0 && n <= len(body) {
			body = body[:n]
		}
	}

	return frame.New(action, headers, body), nil
}

// Format renders the command, the headers sorted by name, a blank line, the body
// and the NUL terminator.
func (c *Text) Format(f *frame.Frame) string {
	var sb strings.Builder
	sb.WriteString(f.Action().String())
	sb.WriteByte('\n')
	for _, key := range f.Keys() {
		sb.WriteString(key)
		sb.WriteByte(':')
		sb.WriteString(f.Get(key))
		sb.WriteByte('\n')
	}
	sb.WriteByte('\n')
	sb.WriteString(f.Body())
	sb.WriteByte(0)
	return sb.String()
}

// nextLine splits off one line, accepting both LF and CRLF.
func nextLine(s string) (line, rest string) {
	line, rest, _ = strings.Cut(s, "\n")
	return strings.TrimSuffix(line, "\r"), rest
}

// trimTerminator removes the NUL terminator and any EOLs that follow it.
func trimTerminator(s string) string {
	i := strings.LastIndexByte(s, 0)
	if i < 0 || strings.Trim(s[i+1:], "\r\n") != "" {
		return s
	}
	return s[:i]
}
