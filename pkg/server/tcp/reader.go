// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package tcp

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/absmach/mstomp/pkg/errors"
	"github.com/absmach/mstomp/pkg/server"
)

var contentLength = []byte("content-length:")

// frameReader splits a byte stream into raw STOMP frames. A bare EOL between
// frames is returned on its own as a heart-beat.
type frameReader struct {
	r   *bufio.Reader
	max int
}

func newFrameReader(r io.Reader, max int) *frameReader {
	return &frameReader{r: bufio.NewReader(r), max: max}
}

// next returns the next raw frame including its NUL terminator.
func (fr *frameReader) next() ([]byte, error) {
	b, err := fr.r.ReadByte()
	if err != nil {
		return nil, err
	}
	switch b {
	case '\n':
		return server.Heartbeat, nil
	case '\r':
		if p, err := fr.r.Peek(1); err == nil && p[0] == '\n' {
			_, _ = fr.r.ReadByte()
		}
		return server.Heartbeat, nil
	}

	buf := []byte{b}
	lineStart := 0
	for {
		c, err := fr.r.ReadByte()
		if err != nil {
			return nil, err
		}
		buf = append(buf, c)
		if err := fr.check(len(buf)); err != nil {
			return nil, err
		}
		if c == 0 {
			return buf, nil
		}
		if c != '\n' {
			continue
		}
		line := bytes.TrimRight(buf[lineStart:], "\r\n")
		lineStart = len(buf)
		if len(line) == 0 {
			break
		}
	}

	if n, ok := bodyLength(buf); ok {
		if err := fr.check(len(buf) + n + 1); err != nil {
			return nil, err
		}
		body := make([]byte, n+1)
		if _, err := io.ReadFull(fr.r, body); err != nil {
			return nil, err
		}
		if body[n] != 0 {
			return nil, fmt.Errorf("%w: body longer than content-length %d", errors.ErrParse, n)
		}
		return append(buf, body...), nil
	}

	for {
		chunk, err := fr.r.ReadSlice(0)
		buf = append(buf, chunk...)
		if cerr := fr.check(len(buf)); cerr != nil {
			return nil, cerr
		}
		switch err {
		case nil:
			return buf, nil
		case bufio.ErrBufferFull:
			continue
		default:
			return nil, err
		}
	}
}

func (fr *frameReader) check(n int) error {
	if fr.max > 0 && n > fr.max {
		return fmt.Errorf("%w: frame exceeds %d bytes", errors.ErrSizeLimitExceeded, fr.max)
	}
	return nil
}

// bodyLength reads the first content-length header of a frame head.
func bodyLength(head []byte) (int, bool) {
	lines := bytes.Split(head, []byte{'\n'})
	for _, line := range lines[1:] {
		line = bytes.TrimRight(line, "\r")
		if !bytes.HasPrefix(line, contentLength) {
			continue
		}
		n, err := strconv.Atoi(string(bytes.TrimSpace(line[len(contentLength):])))
		if err != nil || n < 0 {
			return 0, false
		}
		return n, true
	}
	return 0, false
}
