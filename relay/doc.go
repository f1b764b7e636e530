// Copyright 2026 The Ringlink Authors
// SPDX-License-Identifier: Apache-2.0

// Package relay defines the metadata wrapper around application
// messages traveling over established peer channels.
//
// [Payload] carries a transaction id for request/response correlation,
// the hop path (peer fingerprints) a reply must retrace, the origin
// peer's age public key for sealing that reply, and the sealed body
// itself. [Payload.Reply] derives the return-hop context by echoing the
// transaction id and reversing the path — it never fabricates routing
// state.
//
// Bodies are compressed before sealing ([Pack]/[Unpack]): a one-byte
// algorithm tag, the uncompressed size, and the lz4- or zstd-compressed
// body, chosen by probing the achievable ratio. Tunneled HTTP traffic
// is frequently text, so this pays for itself on the wire.
package relay
