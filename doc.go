// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package mstomp holds the environment configuration of the mstomp server
// and the codec registry.
//
// Listeners read their configuration under their own prefix, for example
// MSTOMP_TCP_PORT and MSTOMP_WS_PORT. Frame processing is configured once
// under MSTOMP_:
//
//	MSTOMP_CODEC=text|go-stomp
//	MSTOMP_ADAPTER=default|immediate
//	MSTOMP_IGNORE_ERRORS=false
//	MSTOMP_HEARTBEAT_MINIMUM=60s
package mstomp
