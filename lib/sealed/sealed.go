// Copyright 2026 The Ringlink Authors
// SPDX-License-Identifier: Apache-2.0

package sealed

import (
	"bytes"
	"fmt"
	"io"

	"filippo.io/age"

	"github.com/ringlink-foundation/ringlink/lib/secret"
)

// Identity holds a node's age x25519 keypair. The private key lives in
// a guarded buffer (mmap-backed, locked against swap, excluded from
// core dumps, zeroed on close). The public key is a plain age1...
// string, safe to publish in relay payloads.
//
// The caller must Close the identity when it is no longer needed.
type Identity struct {
	// PrivateKey is the AGE-SECRET-KEY-1... identity in guarded
	// memory. Never log it or pass it on a command line.
	PrivateKey *secret.Buffer

	// PublicKey is the corresponding age1... recipient string. Remote
	// peers seal reply bodies to this key.
	PublicKey string
}

// Close releases the private key memory. Idempotent.
func (id *Identity) Close() error {
	if id.PrivateKey != nil {
		return id.PrivateKey.Close()
	}
	return nil
}

// GenerateIdentity creates a new age x25519 identity with the private
// key held in guarded memory.
func GenerateIdentity() (*Identity, error) {
	generated, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("generating age identity: %w", err)
	}

	// Move the private key into guarded memory immediately. The string
	// returned by the age library is heap-allocated and will be GC'd;
	// the guarded buffer is the durable copy.
	privateKey, err := secret.NewFromBytes([]byte(generated.String()))
	if err != nil {
		return nil, fmt.Errorf("protecting age private key: %w", err)
	}

	return &Identity{
		PrivateKey: privateKey,
		PublicKey:  generated.Recipient().String(),
	}, nil
}

// LoadIdentity reads an age identity from a key file written by
// SaveIdentity (or ringlink-keygen). The caller must Close it.
func LoadIdentity(path string) (*Identity, error) {
	privateKey, err := secret.ReadFromPath(path)
	if err != nil {
		return nil, fmt.Errorf("reading age identity: %w", err)
	}

	parsed, err := age.ParseX25519Identity(privateKey.String())
	if err != nil {
		privateKey.Close()
		return nil, fmt.Errorf("parsing age identity from %s: %w", path, err)
	}

	return &Identity{
		PrivateKey: privateKey,
		PublicKey:  parsed.Recipient().String(),
	}, nil
}

// SaveIdentity writes the private key to path with mode 0600.
func SaveIdentity(id *Identity, path string) error {
	return secret.WriteToPath(path, id.PrivateKey)
}

// Encrypt seals plaintext to one or more recipients identified by their
// age1... public keys. Returns the raw binary ciphertext — relay bodies
// travel inside CBOR byte strings, so no text armoring is applied.
func Encrypt(plaintext []byte, recipientKeys ...string) ([]byte, error) {
	if len(recipientKeys) == 0 {
		return nil, fmt.Errorf("at least one recipient is required")
	}

	recipients := make([]age.Recipient, 0, len(recipientKeys))
	for _, key := range recipientKeys {
		recipient, err := age.ParseX25519Recipient(key)
		if err != nil {
			return nil, fmt.Errorf("parsing recipient key %q: %w", key, err)
		}
		recipients = append(recipients, recipient)
	}

	var ciphertext bytes.Buffer
	writer, err := age.Encrypt(&ciphertext, recipients...)
	if err != nil {
		return nil, fmt.Errorf("creating age encryptor: %w", err)
	}
	if _, err := writer.Write(plaintext); err != nil {
		return nil, fmt.Errorf("writing plaintext to age encryptor: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalizing age encryption: %w", err)
	}

	return ciphertext.Bytes(), nil
}

// Decrypt opens ciphertext produced by Encrypt using the given
// identity. The identity is borrowed, not closed. Returns an error for
// ciphertext sealed to a different key or otherwise malformed input —
// the dispatcher treats that error as noise and drops the payload.
func Decrypt(ciphertext []byte, id *Identity) ([]byte, error) {
	parsed, err := age.ParseX25519Identity(id.PrivateKey.String())
	if err != nil {
		return nil, fmt.Errorf("parsing age identity: %w", err)
	}

	reader, err := age.Decrypt(bytes.NewReader(ciphertext), parsed)
	if err != nil {
		return nil, fmt.Errorf("decrypting: %w", err)
	}

	plaintext, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading decrypted plaintext: %w", err)
	}

	return plaintext, nil
}

// ParsePublicKey validates an age public key string. Used on keys
// arriving in relay payloads before sealing a reply to them.
func ParsePublicKey(publicKey string) error {
	if _, err := age.ParseX25519Recipient(publicKey); err != nil {
		return fmt.Errorf("invalid age public key: %w", err)
	}
	return nil
}
