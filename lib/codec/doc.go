// Copyright 2026 The Ringlink Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides Ringlink's standard CBOR encoding.
//
// All wire values — signed handshake envelopes, relay payloads, backend
// messages — are encoded with Core Deterministic Encoding so that
// signature verification operates on reproducible bytes. Consumers
// import only this package, not the CBOR library directly.
package codec
