// Copyright 2026 The Ringlink Authors
// SPDX-License-Identifier: Apache-2.0

package envelope

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/ringlink-foundation/ringlink/lib/codec"
)

// ErrBadSignature is returned by Open when signature verification
// fails. The payload is never exposed in that case.
var ErrBadSignature = errors.New("envelope: signature verification failed")

// signed is the wire form of an envelope: the deterministic CBOR bytes
// of the payload, the signer's Ed25519 public key, and the signer's
// signature over the payload bytes. The signature covers the exact
// encoded bytes, binding the whole payload — for a handshake, the SDP
// and every candidate — to one signer as a unit.
type signed struct {
	Payload   codec.RawMessage `cbor:"payload"`
	Signer    []byte           `cbor:"signer"`
	Signature []byte           `cbor:"signature"`
}

// Seal encodes value as deterministic CBOR, signs the encoded bytes
// with key, and returns the envelope in its transmissible base64 form.
// The key is supplied per call; nothing is held as ambient state.
func Seal[T any](key ed25519.PrivateKey, value T) (string, error) {
	if len(key) != ed25519.PrivateKeySize {
		return "", fmt.Errorf("envelope: signing key has wrong length: got %d bytes, want %d", len(key), ed25519.PrivateKeySize)
	}

	payload, err := codec.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("envelope: encoding payload: %w", err)
	}

	wrapped := signed{
		Payload:   payload,
		Signer:    key.Public().(ed25519.PublicKey),
		Signature: ed25519.Sign(key, payload),
	}

	encoded, err := codec.Marshal(wrapped)
	if err != nil {
		return "", fmt.Errorf("envelope: encoding envelope: %w", err)
	}

	return base64.StdEncoding.EncodeToString(encoded), nil
}

// Open decodes an envelope, verifies its signature, and only then
// unmarshals the payload into out. Returns the verified signer's public
// key so the caller can bind it to the peer identity it expected. On
// any failure out is left untouched.
func Open[T any](encoded string, out *T) (ed25519.PublicKey, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("envelope: decoding base64: %w", err)
	}

	var wrapped signed
	if err := codec.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("envelope: decoding envelope: %w", err)
	}

	if len(wrapped.Signer) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("envelope: signer key has wrong length: got %d bytes, want %d", len(wrapped.Signer), ed25519.PublicKeySize)
	}

	signer := ed25519.PublicKey(wrapped.Signer)
	if !ed25519.Verify(signer, wrapped.Payload, wrapped.Signature) {
		return nil, ErrBadSignature
	}

	// Decode into a scratch value so a payload that verifies but fails
	// to decode cannot leave out partially populated.
	var value T
	if err := codec.Unmarshal(wrapped.Payload, &value); err != nil {
		return nil, fmt.Errorf("envelope: decoding payload: %w", err)
	}
	*out = value

	return signer, nil
}
