// Copyright 2026 The Ringlink Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"testing"
)

func TestPackRoundTripSmall(t *testing.T) {
	t.Parallel()
	data := []byte("tiny")

	frame := Pack(data)
	if frame[0] != byte(compressionNone) {
		t.Fatalf("small body packed with tag %d, want none", frame[0])
	}

	unpacked, err := Unpack(frame)
	if err != nil {
		t.Fatalf("Unpack failed: %v", err)
	}
	if !bytes.Equal(unpacked, data) {
		t.Fatalf("round trip produced %q, want %q", unpacked, data)
	}
}

func TestPackRoundTripCompressible(t *testing.T) {
	t.Parallel()
	data := bytes.Repeat([]byte("ringlink payload body "), 200)

	frame := Pack(data)
	if frame[0] == byte(compressionNone) {
		t.Fatal("highly repetitive body was not compressed")
	}
	if len(frame) >= len(data) {
		t.Fatalf("compressed frame is %d bytes for %d bytes of input", len(frame), len(data))
	}

	unpacked, err := Unpack(frame)
	if err != nil {
		t.Fatalf("Unpack failed: %v", err)
	}
	if !bytes.Equal(unpacked, data) {
		t.Fatal("compressed round trip corrupted the body")
	}
}

func TestPackRoundTripIncompressible(t *testing.T) {
	t.Parallel()
	data := make([]byte, 4096)
	if _, err := rand.Read(data); err != nil {
		t.Fatalf("generating random body: %v", err)
	}

	unpacked, err := Unpack(Pack(data))
	if err != nil {
		t.Fatalf("Unpack failed: %v", err)
	}
	if !bytes.Equal(unpacked, data) {
		t.Fatal("incompressible round trip corrupted the body")
	}
}

func TestUnpackRejectsBadFrames(t *testing.T) {
	t.Parallel()
	cases := map[string][]byte{
		"empty":       nil,
		"truncated":   {byte(compressionNone)},
		"unknown tag": {0x7f, 0x04, 'd', 'a', 't', 'a'},
	}
	for name, frame := range cases {
		if _, err := Unpack(frame); err == nil {
			t.Errorf("Unpack accepted %s frame", name)
		}
	}
}

func TestUnpackRejectsHostileSizeHeader(t *testing.T) {
	t.Parallel()

	// A hand-built frame declaring a huge uncompressed size over a tiny
	// body. Unpack must reject the header without sizing an allocation
	// from it.
	hugeFrame := func(tag compressionTag, size uint64) []byte {
		frame := make([]byte, 1+binary.MaxVarintLen64)
		frame[0] = byte(tag)
		n := binary.PutUvarint(frame[1:], size)
		return append(frame[:1+n], "body"...)
	}

	cases := map[string][]byte{
		"lz4 absurd size":    hugeFrame(compressionLZ4, 1<<62),
		"zstd absurd size":   hugeFrame(compressionZstd, 1<<62),
		"lz4 over limit":     hugeFrame(compressionLZ4, maxUnpackedSize+1),
		"zstd over limit":    hugeFrame(compressionZstd, maxUnpackedSize+1),
		"lz4 absurd ratio":   hugeFrame(compressionLZ4, 1<<20),
		"none declares huge": hugeFrame(compressionNone, 1<<62),
	}
	for name, frame := range cases {
		if _, err := Unpack(frame); err == nil {
			t.Errorf("Unpack accepted %s frame", name)
		}
	}
}

func TestUnpackRejectsSizeMismatch(t *testing.T) {
	t.Parallel()
	frame := Pack(bytes.Repeat([]byte("abc"), 100))
	if frame[0] == byte(compressionNone) {
		t.Skip("body did not compress; no size header to falsify")
	}

	// Inflate the declared uncompressed size.
	tampered := append([]byte(nil), frame...)
	tampered[1] = 0xff
	tampered = append(tampered[:2], append([]byte{0x7f}, tampered[2:]...)...)

	if _, err := Unpack(tampered); err == nil {
		t.Fatal("Unpack accepted a frame with a falsified size header")
	}
}
