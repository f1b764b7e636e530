// Copyright 2026 The Ringlink Authors
// SPDX-License-Identifier: Apache-2.0

// Command ringlink-keygen generates the two keys a node needs: an
// Ed25519 signing identity and an age sealing identity. Both are
// written with mode 0600; the derived public halves are printed so the
// operator can share them.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/ringlink-foundation/ringlink/lib/identity"
	"github.com/ringlink-foundation/ringlink/lib/sealed"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "ringlink-keygen:", err)
		os.Exit(1)
	}
}

func run() error {
	signingKeyFile := pflag.String("signing-key-file", "signing.key", "where to write the Ed25519 seed")
	sealedKeyFile := pflag.String("sealed-key-file", "sealed.key", "where to write the age identity")
	force := pflag.BoolP("force", "f", false, "overwrite existing key files")
	pflag.Parse()

	for _, path := range []string{*signingKeyFile, *sealedKeyFile} {
		if _, err := os.Stat(path); err == nil && !*force {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}

	keypair, err := identity.Generate()
	if err != nil {
		return err
	}
	defer keypair.Close()
	if err := keypair.Save(*signingKeyFile); err != nil {
		return err
	}

	sealedIdentity, err := sealed.GenerateIdentity()
	if err != nil {
		return err
	}
	defer sealedIdentity.Close()
	if err := sealed.SaveIdentity(sealedIdentity, *sealedKeyFile); err != nil {
		return err
	}

	fmt.Printf("fingerprint: %s\n", keypair.Fingerprint)
	fmt.Printf("sealed public key: %s\n", sealedIdentity.PublicKey)
	return nil
}
