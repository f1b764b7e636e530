// Copyright 2026 The Ringlink Authors
// SPDX-License-Identifier: Apache-2.0

// Package sealed provides age encryption for relay payload bodies. It
// wraps filippo.io/age with the operations Ringlink needs: generate and
// persist an identity, seal a message body to a peer's published public
// key, and open bodies sealed to this node.
//
// Private keys are held in secret.Buffer guarded memory. Ciphertext is
// raw binary — payload bodies are carried as CBOR byte strings, so no
// base64 layer is involved.
package sealed
