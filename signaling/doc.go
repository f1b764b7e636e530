// Copyright 2026 The Ringlink Authors
// SPDX-License-Identifier: Apache-2.0

// Package signaling implements the rendezvous hub two peers use to
// exchange handshake envelopes before a direct connection exists.
//
// The hub is deliberately dumb: it registers WebSocket clients by
// fingerprint and forwards opaque offer/answer frames between them. All
// authentication lives in the envelopes themselves, so a compromised
// hub can delay or drop handshakes but cannot forge or alter them.
package signaling
