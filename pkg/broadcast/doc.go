// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package broadcast provides the destination fan-out used by the dispatcher.
//
// Each destination has a Target holding the connections attached to it.
// Broadcasting runs the configured Filter once per attached connection, so a
// connection with several subscriptions to the same destination can receive
// one MESSAGE per subscription, and writes the result to that connection.
// A failing filter or write is logged and skipped.
package broadcast
