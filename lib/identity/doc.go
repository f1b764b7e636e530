// Copyright 2026 The Ringlink Authors
// SPDX-License-Identifier: Apache-2.0

// Package identity manages a node's Ed25519 signing identity.
//
// Every signed handshake envelope carries the signer's public key; peers
// address each other by [Fingerprint], the BLAKE3 digest of that key.
// The private seed is stored hex-encoded on disk and held in guarded
// memory (lib/secret) while the node runs. Keys are always passed
// explicitly to the operations that sign — never held as process-global
// state — so multiple identities can coexist in one process (which is
// also what makes the handshake testable).
package identity
