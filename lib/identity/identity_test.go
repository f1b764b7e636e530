// Copyright 2026 The Ringlink Authors
// SPDX-License-Identifier: Apache-2.0

package identity

import (
	"bytes"
	"crypto/ed25519"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
)

func TestGenerateProducesUsableKeypair(t *testing.T) {
	t.Parallel()
	keypair, err := Generate()
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	defer keypair.Close()

	message := []byte("prove it")
	signature := ed25519.Sign(keypair.PrivateKey(), message)
	if !ed25519.Verify(keypair.PublicKey, message, signature) {
		t.Fatal("signature from PrivateKey does not verify with PublicKey")
	}

	if err := ParseFingerprint(keypair.Fingerprint); err != nil {
		t.Fatalf("generated fingerprint invalid: %v", err)
	}
	if keypair.Fingerprint != Fingerprint(keypair.PublicKey) {
		t.Fatal("stored fingerprint does not match the derived one")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()
	keypair, err := Generate()
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	defer keypair.Close()

	path := filepath.Join(t.TempDir(), "signing.key")
	if err := keypair.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat key file: %v", err)
	}
	if mode := info.Mode().Perm(); mode != 0o600 {
		t.Fatalf("key file mode = %o, want 600", mode)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	defer loaded.Close()

	if !bytes.Equal(loaded.PublicKey, keypair.PublicKey) {
		t.Fatal("loaded public key differs from the saved one")
	}
	if loaded.Fingerprint != keypair.Fingerprint {
		t.Fatal("loaded fingerprint differs from the saved one")
	}
}

func TestLoadRejectsMalformedKeys(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	notHex := filepath.Join(dir, "nothex.key")
	if err := os.WriteFile(notHex, []byte("zzzz not hex\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(notHex); err == nil {
		t.Fatal("Load accepted a non-hex key file")
	}

	short := filepath.Join(dir, "short.key")
	if err := os.WriteFile(short, []byte(hex.EncodeToString([]byte("short"))+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(short); err == nil {
		t.Fatal("Load accepted a truncated key")
	}

	if _, err := Load(filepath.Join(dir, "absent.key")); err == nil {
		t.Fatal("Load accepted a missing file")
	}
}

func TestFingerprintIsStableAndDistinct(t *testing.T) {
	t.Parallel()
	first, err := Generate()
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	defer first.Close()
	second, err := Generate()
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	defer second.Close()

	if Fingerprint(first.PublicKey) != Fingerprint(first.PublicKey) {
		t.Fatal("fingerprint of one key varies between calls")
	}
	if first.Fingerprint == second.Fingerprint {
		t.Fatal("two fresh keys share a fingerprint")
	}

	raw, err := hex.DecodeString(first.Fingerprint)
	if err != nil || len(raw) != FingerprintSize {
		t.Fatalf("fingerprint %q is not %d hex bytes", first.Fingerprint, FingerprintSize)
	}
}

func TestParseFingerprint(t *testing.T) {
	t.Parallel()
	if err := ParseFingerprint("00112233445566778899aabbccddeeff"); err != nil {
		t.Fatalf("valid fingerprint rejected: %v", err)
	}
	for _, bad := range []string{"", "zz", "0011", "00112233445566778899aabbccddeeff00"} {
		if err := ParseFingerprint(bad); err == nil {
			t.Errorf("ParseFingerprint(%q) succeeded, want error", bad)
		}
	}
}
