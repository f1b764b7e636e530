// Copyright 2026 The Ringlink Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport establishes authenticated WebRTC data channels
// between ringlink nodes.
//
// A [Negotiator] wraps one PeerConnection and exposes the negotiation
// state machine: Start, CreateOffer/CreateAnswer (each coupled with
// setting the local description), SetRemoteDescription,
// AddICECandidate, and single-slot callback registration. Handshakes
// travel as signed trickle envelopes ([TricklePayload]): the SDP and
// the gathered candidate list are signed together, so a signaling hub
// can carry them but not tamper with them. [Negotiator.HandshakeInfo]
// produces this side's envelope and
// [Negotiator.RegisterRemoteInfo] verifies and applies the remote one,
// returning the signer's key for identity binding.
//
// Connection events reach the owner through a bounded, cloneable event
// channel ([NewChannel]): inbound messages become [ReceiveMsg], a dead
// connection becomes [ConnectFailed]. Native callbacks never do work
// beyond producing an event.
//
// [Connector] sits on top and turns fingerprints into connections. It
// exchanges envelopes over a [Signaler] (in-memory for tests, a
// WebSocket hub client for deployments), coalesces concurrent dials to
// one peer, and resolves simultaneous dials by fingerprint order.
package transport
