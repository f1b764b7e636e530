// Copyright 2026 The Ringlink Authors
// SPDX-License-Identifier: Apache-2.0

package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"

	"github.com/ringlink-foundation/ringlink/lib/secret"
)

// FingerprintSize is the number of BLAKE3 output bytes used for a peer
// fingerprint. 128 bits is ample for overlay addressing and keeps the
// hex form short enough for logs and signaling keys.
const FingerprintSize = 16

// Keypair is a node's Ed25519 signing identity. The seed is kept in
// guarded memory; the public key and fingerprint are derived values
// that are safe to publish.
type Keypair struct {
	seed *secret.Buffer

	// PublicKey verifies envelopes signed by this node.
	PublicKey ed25519.PublicKey

	// Fingerprint is the node's stable overlay identifier, the hex
	// form of the BLAKE3 digest of the public key.
	Fingerprint string
}

// Generate creates a new Ed25519 keypair with the seed held in guarded
// memory. The caller must Close the keypair when done.
func Generate() (*Keypair, error) {
	publicKey, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating ed25519 keypair: %w", err)
	}

	seedBytes := privateKey.Seed()
	seed, err := secret.NewFromBytes(seedBytes)
	if err != nil {
		return nil, fmt.Errorf("protecting ed25519 seed: %w", err)
	}

	return &Keypair{
		seed:        seed,
		PublicKey:   publicKey,
		Fingerprint: Fingerprint(publicKey),
	}, nil
}

// Load reads a keypair from a hex-encoded seed file written by Save.
// Fails if the file does not decode to exactly an Ed25519 seed.
func Load(path string) (*Keypair, error) {
	hexSeed, err := secret.ReadFromPath(path)
	if err != nil {
		return nil, fmt.Errorf("reading signing key: %w", err)
	}
	defer hexSeed.Close()

	seedBytes, err := hex.DecodeString(hexSeed.String())
	if err != nil {
		return nil, fmt.Errorf("hex-decoding signing key from %s: %w", path, err)
	}
	if len(seedBytes) != ed25519.SeedSize {
		secret.Zero(seedBytes)
		return nil, fmt.Errorf("signing key in %s has wrong length: got %d bytes, want %d", path, len(seedBytes), ed25519.SeedSize)
	}

	publicKey := ed25519.NewKeyFromSeed(seedBytes).Public().(ed25519.PublicKey)

	seed, err := secret.NewFromBytes(seedBytes)
	if err != nil {
		return nil, fmt.Errorf("protecting ed25519 seed: %w", err)
	}

	return &Keypair{
		seed:        seed,
		PublicKey:   publicKey,
		Fingerprint: Fingerprint(publicKey),
	}, nil
}

// Save writes the hex-encoded seed to path with mode 0600.
func (k *Keypair) Save(path string) error {
	hexSeed, err := secret.NewFromBytes([]byte(hex.EncodeToString(k.seed.Bytes())))
	if err != nil {
		return fmt.Errorf("encoding signing key: %w", err)
	}
	defer hexSeed.Close()
	return secret.WriteToPath(path, hexSeed)
}

// PrivateKey materializes the Ed25519 private key for signing. The
// returned key is a heap value; callers should hold it for the life of
// the process rather than repeatedly materializing copies.
func (k *Keypair) PrivateKey() ed25519.PrivateKey {
	return ed25519.NewKeyFromSeed(k.seed.Bytes())
}

// Close releases the guarded seed. Idempotent.
func (k *Keypair) Close() error {
	if k.seed != nil {
		return k.seed.Close()
	}
	return nil
}

// Fingerprint computes the overlay identifier for an Ed25519 public
// key: hex of the first FingerprintSize bytes of its BLAKE3 digest.
func Fingerprint(publicKey ed25519.PublicKey) string {
	digest := blake3.Sum256(publicKey)
	return hex.EncodeToString(digest[:FingerprintSize])
}

// ParseFingerprint validates the textual form of a fingerprint.
func ParseFingerprint(s string) error {
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("invalid fingerprint %q: %w", s, err)
	}
	if len(decoded) != FingerprintSize {
		return fmt.Errorf("invalid fingerprint %q: got %d bytes, want %d", s, len(decoded), FingerprintSize)
	}
	return nil
}
