// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package destination binds application services to STOMP destinations.
//
// # Services
//
// A Service declares which values it needs through Params:
//   - ConnRef: the sending connection
//   - TargetRef: the destination's broadcast target
//   - RawBody: the SEND body as received
//   - DecodedBody: the body after the service's Decode function
//
// The descriptor is checked once by Registry.Register. On every SEND the
// dispatcher calls Binding.Invoke, which fills Args from the descriptor,
// runs the handler and encodes the result.
//
// Middleware added with Registry.Use wraps every service registered after
// it, for example to guard services with a circuit breaker.
//
// # Example
//
//	reg := destination.NewRegistry(broadcaster)
//	err := reg.Register("/chat", destination.Service{
//		Params: []destination.Param{destination.DecodedBody},
//		Decode: destination.JSON[Message](),
//		Encode: destination.JSONEncode,
//		Handle: func(ctx context.Context, args destination.Args) (any, error) {
//			return args.Decoded, nil
//		},
//	})
package destination
