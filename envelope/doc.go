// Copyright 2026 The Ringlink Authors
// SPDX-License-Identifier: Apache-2.0

// Package envelope implements the signed envelope that authenticates
// every out-of-band handshake payload.
//
// [Seal] serializes a payload with deterministic CBOR, signs the
// serialized bytes with the caller's Ed25519 key, and produces a base64
// string suitable for any text-oriented signaling channel. [Open]
// verifies the embedded signature before the payload is ever decoded —
// a payload from an envelope that fails verification is unreachable by
// construction. Verification needs only the signer identity embedded in
// the envelope; the caller compares it against the peer it expected.
package envelope
