// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package errors provides structured error handling for mstomp.
package errors

import (
	"errors"
	"fmt"
)

// Frame processing errors.
var (
	// ErrParse indicates raw text that does not conform to the frame grammar.
	ErrParse = errors.New("malformed frame")

	// ErrIllegalAction indicates an action token outside the STOMP command set.
	ErrIllegalAction = errors.New("illegal action")

	// ErrNoHandler indicates a destination with no bound service.
	ErrNoHandler = errors.New("no handler for destination")

	// ErrUnknownSubscription indicates a subscription id absent from the registry.
	ErrUnknownSubscription = errors.New("unknown subscription id")

	// ErrSubscriptionInUse indicates a SUBSCRIBE reusing an id bound to another destination.
	ErrSubscriptionInUse = errors.New("subscription id already in use")

	// ErrVersionMismatch indicates no protocol version in common with the client.
	ErrVersionMismatch = errors.New("protocol version mismatch")

	// ErrHandlerInvocation indicates a destination service failed while handling a SEND.
	ErrHandlerInvocation = errors.New("handler invocation failed")

	// ErrIllegalState indicates a broken internal invariant.
	ErrIllegalState = errors.New("illegal state")

	// ErrUnknownTransaction indicates a transaction id that was never begun.
	ErrUnknownTransaction = errors.New("unknown transaction")

	// ErrTransactionInProgress indicates a BEGIN for an id that is still open.
	ErrTransactionInProgress = errors.New("transaction already in progress")

	// ErrMissingHeader indicates a required header is absent.
	ErrMissingHeader = errors.New("missing required header")
)

// Transport errors.
var (
	// ErrUnauthorized indicates authentication or authorization failure.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrConnectionClosed indicates the connection was closed.
	ErrConnectionClosed = errors.New("connection closed")

	// ErrRateLimited indicates rate limit exceeded.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrSizeLimitExceeded indicates size limit exceeded.
	ErrSizeLimitExceeded = errors.New("size limit exceeded")

	// ErrInvalidOrigin indicates invalid WebSocket origin.
	ErrInvalidOrigin = errors.New("invalid origin")
)

// FrameError wraps an error with the frame context it occurred in.
type FrameError struct {
	Op          string // Operation that failed
	Action      string // STOMP action of the inbound frame
	SessionID   string // Session identifier
	Destination string // Destination, when the frame carries one
	Err         error  // Underlying error
}

// Error implements the error interface.
func (e *FrameError) Error() string {
	if e.Destination != "" {
		return fmt.Sprintf("%s %s [%s] %s: %v", e.Action, e.Op, e.SessionID, e.Destination, e.Err)
	}
	return fmt.Sprintf("%s %s [%s]: %v", e.Action, e.Op, e.SessionID, e.Err)
}

// Unwrap returns the underlying error.
func (e *FrameError) Unwrap() error {
	return e.Err
}

// New creates a new FrameError.
func New(op, action, sessionID, destination string, err error) error {
	if err == nil {
		return nil
	}
	return &FrameError{
		Op:          op,
		Action:      action,
		SessionID:   sessionID,
		Destination: destination,
		Err:         err,
	}
}

// Wrap wraps an error with context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
