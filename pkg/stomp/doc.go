// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package stomp implements the STOMP frame dispatcher.
//
// # Dispatch
//
// Transports hand every inbound payload to Dispatcher.HandleFrame together
// with the connection it arrived on. The dispatcher recognises heart-beats,
// parses everything else with the configured codec and runs the handler
// registered for the frame's action:
//
//	CONNECT, STOMP   negotiate version and heart-beat, reply CONNECTED
//	SUBSCRIBE        register the subscription, attach to the destination
//	UNSUBSCRIBE      drop the subscription, detach when it was the last one
//	SEND             invoke the destination service, broadcast its result
//	BEGIN, COMMIT,
//	ABORT            manage transactions through the Adapter
//	DISCONNECT       receipt, release the session, close
//
// ACK and NACK have no handler; those frames are dropped.
//
// After the handler ran, a RECEIPT is written for frames that asked for one,
// unless an ERROR or RECEIPT was already written. CONNECT never gets a receipt.
//
// # Directives
//
// HandleFrame returns a Directive instead of an error. Continue means the
// frame was handled, Skip that it was ignored, Cancel that it was dropped.
// When a frame ends the connection the dispatcher closes it itself.
//
// # Broadcast
//
// Service results go to the destination's broadcast target. The dispatcher
// installs Filter on the broadcaster so each receiving connection gets one
// MESSAGE per subscription it holds on the destination, each with its own
// message-id.
package stomp
