// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package stomp

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/absmach/mstomp/pkg/errors"
	"github.com/absmach/mstomp/pkg/session"
)

// SupportedVersions lists the protocol versions in the form sent back in the
// version header of a rejection.
const SupportedVersions = "1.0,1.1"

var supportedVersions = []string{"1.0", "1.1"}

// negotiateVersion picks the highest supported version offered in an
// accept-version header. An absent header means 1.0.
func negotiateVersion(accept string) (string, error) {
	if strings.TrimSpace(accept) == "" {
		return supportedVersions[0], nil
	}

	best := -1
	for _, v := range strings.Split(accept, ",") {
		v = strings.TrimSpace(v)
		for i, s := range supportedVersions {
			if v == s && i > best {
				best = i
			}
		}
	}
	if best < 0 {
		return "", fmt.Errorf("%w: %q", errors.ErrVersionMismatch, accept)
	}
	return supportedVersions[best], nil
}

// parseHeartBeat reads a "cx,cy" heart-beat header. An absent header is 0,0.
func parseHeartBeat(value string) (cx, cy int64, err error) {
	if value == "" {
		return 0, 0, nil
	}
	x, y, ok := strings.Cut(value, ",")
	if !ok {
		return 0, 0, fmt.Errorf("%w: heart-beat %q", errors.ErrParse, value)
	}
	if cx, err = strconv.ParseInt(strings.TrimSpace(x), 10, 64); err != nil || cx < 0 {
		return 0, 0, fmt.Errorf("%w: heart-beat %q", errors.ErrParse, value)
	}
	if cy, err = strconv.ParseInt(strings.TrimSpace(y), 10, 64); err != nil || cy < 0 {
		return 0, 0, fmt.Errorf("%w: heart-beat %q", errors.ErrParse, value)
	}
	return cx, cy, nil
}

// negotiateHeartBeat derives the server pulse from the client's "cx,cy"
// offer. The server pulses every max(cy, minimum) at whole-second
// granularity, or never when the client does not want pulses. The returned
// header value is "<server ms>,<cx>".
func negotiateHeartBeat(cx, cy int64, minimum time.Duration) (session.Heartbeat, string) {
	var seconds int64
	if cy != 0 {
		seconds = max(cy/1000, int64(minimum/time.Second))
	}
	hb := session.Heartbeat{
		Outgoing: time.Duration(seconds) * time.Second,
		Incoming: time.Duration(cx) * time.Millisecond,
	}
	return hb, fmt.Sprintf("%d,%d", seconds*1000, cx)
}
