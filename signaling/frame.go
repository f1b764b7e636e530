// Copyright 2026 The Ringlink Authors
// SPDX-License-Identifier: Apache-2.0

package signaling

import "time"

// FrameType discriminates the messages of the signaling protocol.
type FrameType string

const (
	// FrameRegister announces the sender's fingerprint. It must be
	// the first frame on a connection; everything else is rejected
	// until registration completes.
	FrameRegister FrameType = "register"

	// FrameOffer carries a handshake offer envelope toward To.
	FrameOffer FrameType = "offer"

	// FrameAnswer carries a handshake answer envelope back to the
	// offerer named in To.
	FrameAnswer FrameType = "answer"

	// FrameError reports a protocol violation to the sender. The hub
	// never forwards error frames between peers.
	FrameError FrameType = "error"
)

// Frame is one JSON message on a signaling connection. The hub routes
// offer and answer frames by To and stamps Timestamp on forward; it
// never inspects Envelope, which is an opaque signed handshake
// envelope.
type Frame struct {
	Type      FrameType `json:"type"`
	From      string    `json:"from,omitempty"`
	To        string    `json:"to,omitempty"`
	Envelope  string    `json:"envelope,omitempty"`
	Timestamp time.Time `json:"timestamp,omitzero"`
	Error     string    `json:"error,omitempty"`
}
