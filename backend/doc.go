// Copyright 2026 The Ringlink Authors
// SPDX-License-Identifier: Apache-2.0

// Package backend executes tunneled service requests on behalf of
// remote peers.
//
// A [Message] is the tagged union of tunneled protocols; today that is
// HTTP ([HTTPServerRequest]/[HTTPServerResponse]). The [Dispatcher]
// receives relayed payloads from established peer channels, opens the
// sealed body, and acts on the variant: requests are executed against
// the operator-configured local HTTP service ([HTTPService]) and
// answered along the reversed relay path; responses are surfaced for
// the overlay to deliver. Input that fails decryption or parsing is
// dropped without a reply — see the Dispatcher documentation for the
// reasoning.
//
// Execution failures never propagate to the transport: the remote peer
// receives a synthesized 500 carrying the error text, so every
// well-formed request terminates in exactly one response.
package backend
