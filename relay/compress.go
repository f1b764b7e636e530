// Copyright 2026 The Ringlink Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"encoding/binary"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// compressionTag identifies the algorithm applied to a packed body.
// Stored as the first byte of the packed frame — these values are wire
// constants.
type compressionTag uint8

const (
	// compressionNone carries the body uncompressed. Chosen when the
	// body is small or incompressible (already-compressed content).
	compressionNone compressionTag = 0

	// compressionLZ4 is the fast path for bodies that compress only
	// modestly.
	compressionLZ4 compressionTag = 1

	// compressionZstd (level 3) is used for text-like bodies — JSON,
	// HTML, logs — where the ratio justifies the extra CPU.
	compressionZstd compressionTag = 2
)

// packThreshold is the minimum body size worth probing for
// compression. Below this, framing overhead eats any win.
const packThreshold = 128

// maxUnpackedSize caps the uncompressed size a frame may declare. The
// header arrives from the network before anything is verified, so it
// must never size an allocation on its own.
const maxUnpackedSize = 64 << 20

// maxCompressionRatio bounds how much larger than the compressed body
// the declared uncompressed size may be. LZ4 block expansion tops out
// near 255x; anything beyond this is a hostile header.
const maxCompressionRatio = 1024

// zstdEncoder and zstdDecoder are shared across calls; both are safe
// for concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("relay: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("relay: zstd decoder initialization failed: " + err.Error())
	}
}

// Pack frames data for transmission:
//
//	[tag: 1 byte] [uncompressed size: uvarint] [body]
//
// The algorithm is chosen by probing: zstd when the ratio reaches 1.5x,
// lz4 above 1.1x, otherwise the data travels uncompressed.
func Pack(data []byte) []byte {
	tag, compressed := compressionNone, data

	if len(data) >= packThreshold {
		probe := zstdEncoder.EncodeAll(data, nil)
		ratio := float64(len(data)) / float64(len(probe))
		switch {
		case ratio >= 1.5:
			tag, compressed = compressionZstd, probe
		case ratio >= 1.1:
			if block, err := compressLZ4(data); err == nil {
				tag, compressed = compressionLZ4, block
			}
		}
	}

	frame := make([]byte, 1+binary.MaxVarintLen64+len(compressed))
	frame[0] = byte(tag)
	offset := 1 + binary.PutUvarint(frame[1:], uint64(len(data)))
	copied := copy(frame[offset:], compressed)
	return frame[:offset+copied]
}

// Unpack reverses Pack, verifying that decompression reproduces the
// declared uncompressed size exactly.
func Unpack(frame []byte) ([]byte, error) {
	if len(frame) < 2 {
		return nil, fmt.Errorf("packed frame too short: %d bytes", len(frame))
	}

	tag := compressionTag(frame[0])
	size, varintLen := binary.Uvarint(frame[1:])
	if varintLen <= 0 {
		return nil, fmt.Errorf("packed frame has invalid size header")
	}
	body := frame[1+varintLen:]

	if size > maxUnpackedSize {
		return nil, fmt.Errorf("declared uncompressed size %d exceeds limit %d", size, uint64(maxUnpackedSize))
	}
	if tag != compressionNone && size > uint64(len(body))*maxCompressionRatio {
		return nil, fmt.Errorf("declared uncompressed size %d is implausible for a %d-byte body", size, len(body))
	}

	switch tag {
	case compressionNone:
		if uint64(len(body)) != size {
			return nil, fmt.Errorf("uncompressed body is %d bytes, header says %d", len(body), size)
		}
		return body, nil

	case compressionLZ4:
		destination := make([]byte, size)
		read, err := lz4.UncompressBlock(body, destination)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		if uint64(read) != size {
			return nil, fmt.Errorf("lz4 decompress: got %d bytes, expected %d", read, size)
		}
		return destination, nil

	case compressionZstd:
		result, err := zstdDecoder.DecodeAll(body, make([]byte, 0, size))
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		if uint64(len(result)) != size {
			return nil, fmt.Errorf("zstd decompress: got %d bytes, expected %d", len(result), size)
		}
		return result, nil

	default:
		return nil, fmt.Errorf("unknown compression tag %d", tag)
	}
}

// compressLZ4 applies block-mode LZ4, failing when the output would not
// be smaller than the input.
func compressLZ4(data []byte) ([]byte, error) {
	destination := make([]byte, lz4.CompressBlockBound(len(data)))
	written, err := lz4.CompressBlock(data, destination, nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	// CompressBlock returns 0 for incompressible input.
	if written == 0 || written >= len(data) {
		return nil, fmt.Errorf("data is incompressible")
	}
	return destination[:written], nil
}
