// Copyright 2026 The Ringlink Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret provides guarded memory for private key material: the
// node's Ed25519 signing key and its age decryption identity.
//
// [Buffer] allocates memory outside the Go heap via mmap(MAP_ANONYMOUS),
// locks it into RAM via mlock (no swap), and excludes it from core dumps
// via madvise(MADV_DONTDUMP). Close zeros, unlocks, and unmaps the
// region. Because the memory is invisible to the garbage collector it is
// never copied or relocated, which is the only way to guarantee that key
// material does not linger after use.
//
// [ReadFromPath] and [WriteToPath] move keys between 0600-mode files and
// guarded buffers without leaving heap copies behind.
package secret
