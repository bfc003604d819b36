// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package frame

// Header names interpreted by mstomp. Unknown headers are carried through untouched.
// Names that would clash with an Action carry a Header suffix.
const (
	AcceptVersion = "accept-version"
	Host          = "host"
	Login         = "login"
	Passcode      = "passcode"
	HeartBeat     = "heart-beat"
	Destination   = "destination"
	ContentType   = "content-type"
	ContentLength = "content-length"
	ID            = "id"
	AckHeader     = "ack"
	Transaction   = "transaction"
	ReceiptHeader = "receipt"
	ReceiptID     = "receipt-id"
	Subscription  = "subscription"
	MessageID     = "message-id"
	MessageHeader = "message"

	// Response headers of CONNECTED and ERROR frames.
	Version = "version"
	Session = "session"
	Server  = "server"
)
