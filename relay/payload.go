// Copyright 2026 The Ringlink Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/ringlink-foundation/ringlink/lib/codec"
)

// Payload is one relayed application message as it travels over an
// established data channel. The body is sealed (age) to its recipient;
// the surrounding fields are routing metadata that intermediate hops
// read and extend.
type Payload struct {
	// TxID correlates a response with the request that caused it. A
	// reply carries the TxID of its request unchanged.
	TxID string `cbor:"tx_id"`

	// Path is the ordered list of peer fingerprints the payload has
	// traversed, origin first. Replies travel the reversed path. Hops
	// only append to or reverse this list — never fabricate entries.
	Path []string `cbor:"path"`

	// Origin is the age public key of the originating peer. Responders
	// seal reply bodies to this key.
	Origin string `cbor:"origin"`

	// Body is the sealed, compressed, CBOR-encoded application
	// message.
	Body []byte `cbor:"body"`
}

// NewTxID returns a fresh random 128-bit transaction id in hex.
func NewTxID() (string, error) {
	var raw [16]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", fmt.Errorf("generating transaction id: %w", err)
	}
	return hex.EncodeToString(raw[:]), nil
}

// Reply derives the return-hop payload for p: same transaction id,
// reversed path, empty body and origin for the responder to fill. Only
// existing state is echoed; nothing is invented on behalf of the
// original sender.
func (p *Payload) Reply() *Payload {
	reversed := make([]string, len(p.Path))
	for index, hop := range p.Path {
		reversed[len(p.Path)-1-index] = hop
	}
	return &Payload{
		TxID: p.TxID,
		Path: reversed,
	}
}

// Encode serializes the payload for transmission over a data channel.
func (p *Payload) Encode() ([]byte, error) {
	encoded, err := codec.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encoding relay payload: %w", err)
	}
	return encoded, nil
}

// Decode deserializes a payload received from a data channel.
func Decode(data []byte) (*Payload, error) {
	var payload Payload
	if err := codec.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decoding relay payload: %w", err)
	}
	return &payload, nil
}

// Sender delivers a reply payload along its (already reversed) path.
// The transport that received the request provides the implementation;
// the dispatcher never knows how the bytes travel.
type Sender interface {
	SendReply(ctx context.Context, reply *Payload) error
}
